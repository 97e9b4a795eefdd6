package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Auth(t *testing.T) {
	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		w.Write([]byte(`{"items":[],"total":0}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "pat_abc", time.Second).Get("/api/v1/agents", nil)
	require.NoError(t, err)
	_, err = newClient(srv.URL, "", time.Second).Get("/api/v1/agents", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer pat_abc", ""}, gotAuth)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"agent not found"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}
	}))
	defer srv.Close()

	c := newClient(srv.URL, "key", time.Second)

	_, err := c.Get("/json", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "agent not found", apiErr.Message)

	_, err = c.Delete("/plain")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestWidgetChat_ReusesSession(t *testing.T) {
	var headers []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Get(sessionHeader))
		resp := DataResponse[ChatResponse]{Success: true, Data: ChatResponse{Response: "Здравствуйте"}}
		if r.Header.Get(sessionHeader) == "" {
			resp.Data.SessionToken = "tok-1"
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := &widgetChat{client: newClient(srv.URL, "", time.Second), widget: "shop"}
	require.NoError(t, c.send("Привет"))
	require.NoError(t, c.send("Ещё"))

	assert.Equal(t, []string{"", "tok-1"}, headers)
	assert.Equal(t, "tok-1", c.session)
}

func TestParseFields(t *testing.T) {
	data, err := parseFields([]string{"email=user@example.com", "query=a=b", "name="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"email": "user@example.com", "query": "a=b", "name": ""}, data)

	_, err = parseFields([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseFields([]string{"=value"})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Зарег...", truncate("Зарегистрироваться", 8))
}
