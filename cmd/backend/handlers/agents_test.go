package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/automation"
	"github.com/hairizuanbinnoorazman/pageagent/conversation"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSiteAnalyzer struct {
	analysis *automation.Analysis
	err      error
}

func (f *fakeSiteAnalyzer) AnalyzePage(ctx context.Context, url string) (*automation.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

type agentFixture struct {
	db            *gorm.DB
	router        *mux.Router
	agents        agent.Store
	conversations conversation.Store
}

func newAgentFixture(t *testing.T, analyzer SiteAnalyzer) *agentFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &agent.Agent{}, &conversation.Conversation{})

	log := logger.NewTestLogger()
	f := &agentFixture{
		db:            db,
		agents:        agent.NewMySQLStore(db, log),
		conversations: conversation.NewMySQLStore(db, log),
	}
	h := NewAgentHandler(f.agents, f.conversations, analyzer, "https://api.example.com/", log)

	r := mux.NewRouter()
	r.HandleFunc("/agents", h.List).Methods("GET")
	r.HandleFunc("/agents", h.Create).Methods("POST")
	r.HandleFunc("/agents/{id}", h.GetByID).Methods("GET")
	r.HandleFunc("/agents/{id}", h.Update).Methods("PUT")
	r.HandleFunc("/agents/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/agents/{id}/conversations", h.Conversations).Methods("GET")
	r.HandleFunc("/agents/{id}/widget-code", h.WidgetCode).Methods("GET")
	r.HandleFunc("/agents/{id}/activate", h.Activate).Methods("POST")
	f.router = r
	return f
}

func (f *agentFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *agentFixture) create(t *testing.T, req CreateAgentRequest) *agent.Agent {
	t.Helper()
	w := f.do(t, http.MethodPost, "/agents", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var a agent.Agent
	decode(t, w, &a)
	return &a
}

func TestAgentHandler_CreateAndGet(t *testing.T) {
	f := newAgentFixture(t, nil)

	a := f.create(t, CreateAgentRequest{Name: "ТехноМир", Description: "Магазин электроники", ResponseStyle: "formal"})
	assert.Len(t, a.WidgetCode, 8)
	assert.Equal(t, agent.StyleFormal, a.ResponseStyle)
	assert.True(t, a.IsActive)

	w := f.do(t, http.MethodGet, "/agents/"+a.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got agent.Agent
	decode(t, w, &got)
	assert.Equal(t, "ТехноМир", got.Name)

	inactive := false
	b := f.create(t, CreateAgentRequest{Name: "Черновик", IsActive: &inactive})
	assert.False(t, b.IsActive)
	stored, err := f.agents.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestAgentHandler_CreateValidation(t *testing.T) {
	f := newAgentFixture(t, nil)

	w := f.do(t, http.MethodPost, "/agents", CreateAgentRequest{Name: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/agents", CreateAgentRequest{Name: "A", ResponseStyle: "sarcastic"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.create(t, CreateAgentRequest{Name: "A", WidgetCode: "shop"})
	w = f.do(t, http.MethodPost, "/agents", CreateAgentRequest{Name: "B", WidgetCode: "shop"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAgentHandler_GetErrors(t *testing.T) {
	f := newAgentFixture(t, nil)

	w := f.do(t, http.MethodGet, "/agents/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/agents/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAgentHandler_List(t *testing.T) {
	f := newAgentFixture(t, nil)
	for _, name := range []string{"A", "B", "C"} {
		f.create(t, CreateAgentRequest{Name: name})
	}

	w := f.do(t, http.MethodGet, "/agents?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []agent.Agent `json:"items"`
		Total int           `json:"total"`
		Limit int           `json:"limit"`
	}
	decode(t, w, &resp)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Limit)
}

func TestAgentHandler_Update(t *testing.T) {
	f := newAgentFixture(t, nil)
	a := f.create(t, CreateAgentRequest{Name: "ТехноМир"})

	kb := "Доставка бесплатно"
	style := "casual"
	w := f.do(t, http.MethodPut, "/agents/"+a.ID.String(), UpdateAgentRequest{KnowledgeBase: &kb, ResponseStyle: &style})
	require.Equal(t, http.StatusOK, w.Code)

	var got agent.Agent
	decode(t, w, &got)
	assert.Equal(t, kb, got.KnowledgeBase)
	assert.Equal(t, agent.StyleCasual, got.ResponseStyle)

	w = f.do(t, http.MethodPut, "/agents/"+a.ID.String(), UpdateAgentRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	empty := ""
	w = f.do(t, http.MethodPut, "/agents/"+a.ID.String(), UpdateAgentRequest{Name: &empty})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAgentHandler_Delete(t *testing.T) {
	f := newAgentFixture(t, nil)
	a := f.create(t, CreateAgentRequest{Name: "ТехноМир"})

	w := f.do(t, http.MethodDelete, "/agents/"+a.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := f.agents.GetByID(context.Background(), a.ID)
	assert.ErrorIs(t, err, agent.ErrAgentNotFound)

	w = f.do(t, http.MethodDelete, "/agents/"+a.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAgentHandler_Conversations(t *testing.T) {
	f := newAgentFixture(t, nil)
	a := f.create(t, CreateAgentRequest{Name: "ТехноМир"})
	other := f.create(t, CreateAgentRequest{Name: "Другой"})

	hello := conversation.Messages{{Role: conversation.RoleUser, Content: "Привет"}}
	testutil.CreateFixtures(t, f.db,
		&conversation.Conversation{AgentID: a.ID, SessionID: "s1", UserIP: "1.2.3.4", Messages: hello},
		&conversation.Conversation{AgentID: a.ID, SessionID: "s2", Messages: hello},
		&conversation.Conversation{AgentID: other.ID, SessionID: "s3", Messages: hello},
	)

	w := f.do(t, http.MethodGet, "/agents/"+a.ID.String()+"/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []conversation.Conversation `json:"items"`
		Total int                         `json:"total"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Items, 2)
	assert.ElementsMatch(t, []string{"s1", "s2"}, []string{resp.Items[0].SessionID, resp.Items[1].SessionID})
	assert.Equal(t, 2, resp.Total)

	testutil.CreateFixture(t, f.db, &conversation.Conversation{AgentID: a.ID, SessionID: "s4", Messages: hello})
	w = f.do(t, http.MethodGet, "/agents/"+a.ID.String()+"/conversations?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Total)
}

func TestAgentHandler_WidgetCode(t *testing.T) {
	f := newAgentFixture(t, nil)
	a := f.create(t, CreateAgentRequest{Name: "ТехноМир", WidgetCode: "shop"})

	w := f.do(t, http.MethodGet, "/agents/"+a.ID.String()+"/widget-code", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data WidgetCodeResponse `json:"data"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "shop", resp.Data.WidgetCode)
	assert.Contains(t, resp.Data.Script, `"apiUrl": "https://api.example.com"`)
	assert.Contains(t, resp.Data.Script, "/api/v1/widget/")

	inactive := false
	b := f.create(t, CreateAgentRequest{Name: "Черновик", IsActive: &inactive})
	w = f.do(t, http.MethodGet, "/agents/"+b.ID.String()+"/widget-code", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAgentHandler_Activate(t *testing.T) {
	analyzer := &fakeSiteAnalyzer{analysis: &automation.Analysis{Description: "Страница: ТехноМир"}}
	f := newAgentFixture(t, analyzer)

	inactive := false
	a := f.create(t, CreateAgentRequest{Name: "ТехноМир", WebsiteURL: "https://shop.example", IsActive: &inactive})

	w := f.do(t, http.MethodPost, "/agents/"+a.ID.String()+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := f.agents.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Contains(t, got.SystemPrompt, "Ты - AI-ассистент для сайта \"ТехноМир\"")
	assert.Contains(t, got.SystemPrompt, "Страница: ТехноМир")

	analyzer.err = errors.New("offline")
	w = f.do(t, http.MethodPost, "/agents/"+a.ID.String()+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got, err = f.agents.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.NotContains(t, got.SystemPrompt, "Главная страница сайта")
}
