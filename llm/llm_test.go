package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (s statusErr) Error() string       { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestApology(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", &StatusError{Code: http.StatusTooManyRequests, Err: errors.New("slow down")}, ApologyOverloaded},
		{"unauthorized", fmt.Errorf("call: %w", &StatusError{Code: http.StatusUnauthorized, Err: errors.New("bad key")}), ApologyAuth},
		{"aws style status", fmt.Errorf("invoke: %w", statusErr(http.StatusTooManyRequests)), ApologyOverloaded},
		{"server error", &StatusError{Code: http.StatusBadGateway, Err: errors.New("upstream")}, ApologyGeneric},
		{"timeout", context.DeadlineExceeded, ApologyGeneric},
		{"empty", ErrEmptyResponse, ApologyGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apology(tt.err))
		})
	}
}

func TestFallbackReason(t *testing.T) {
	assert.Equal(t, "rate_limited", FallbackReason(&StatusError{Code: 429, Err: errors.New("x")}))
	assert.Equal(t, "unauthorized", FallbackReason(&StatusError{Code: 401, Err: errors.New("x")}))
	assert.Equal(t, "timeout", FallbackReason(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.Equal(t, "empty", FallbackReason(ErrEmptyResponse))
	assert.Equal(t, "error", FallbackReason(errors.New("boom")))
}

func TestStatusCode(t *testing.T) {
	assert.Zero(t, StatusCode(nil))
	assert.Zero(t, StatusCode(errors.New("plain")))
	assert.Equal(t, 503, StatusCode(statusErr(503)))
}

func TestConversation(t *testing.T) {
	history := []Message{
		{Role: RoleAssistant, Content: "Здравствуйте!"},
		{Role: RoleUser, Content: "Привет"},
		{Role: RoleAssistant, Content: "Чем помочь?"},
	}
	assert.Equal(t, history[1:], conversation(history))
	assert.Nil(t, conversation([]Message{{Role: RoleAssistant, Content: "hi"}}))
	assert.Nil(t, conversation(nil))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openrouter", Config{Provider: "openrouter", APIKey: "k"}, false},
		{"default provider", Config{APIKey: "k"}, false},
		{"openrouter without key", Config{Provider: "openrouter"}, true},
		{"anthropic", Config{Provider: "anthropic", APIKey: "k"}, false},
		{"anthropic without key", Config{Provider: "claude"}, true},
		{"bedrock without region", Config{Provider: "bedrock"}, true},
		{"unknown", Config{Provider: "gemini", APIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}
