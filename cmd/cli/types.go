package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/pagedata"
	"github.com/hairizuanbinnoorazman/pageagent/resolver"
)

// PaginatedResponse matches handlers.PaginatedResponse.
type PaginatedResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DataResponse matches handlers.DataResponse.
type DataResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// ErrorResponse matches handlers.ErrorResponse.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse matches handlers.SuccessResponse.
type SuccessResponse struct {
	Message string `json:"message"`
}

// CreateAgentRequest matches handlers.CreateAgentRequest.
type CreateAgentRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	WebsiteURL    string `json:"websiteUrl"`
	SystemPrompt  string `json:"systemPrompt"`
	ResponseStyle string `json:"responseStyle"`
	KnowledgeBase string `json:"knowledgeBase"`
	WidgetCode    string `json:"widgetCode,omitempty"`
	IsActive      *bool  `json:"isActive,omitempty"`
}

// UpdateAgentRequest matches handlers.UpdateAgentRequest.
type UpdateAgentRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	WebsiteURL    *string `json:"websiteUrl,omitempty"`
	SystemPrompt  *string `json:"systemPrompt,omitempty"`
	ResponseStyle *string `json:"responseStyle,omitempty"`
	KnowledgeBase *string `json:"knowledgeBase,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

// AgentResponse is used for deserializing agent responses.
type AgentResponse struct {
	ID            uuid.UUID           `json:"id"`
	WidgetCode    string              `json:"widget_code"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	WebsiteURL    string              `json:"website_url"`
	SystemPrompt  string              `json:"system_prompt"`
	ResponseStyle agent.ResponseStyle `json:"response_style"`
	KnowledgeBase string              `json:"knowledge_base"`
	IsActive      bool                `json:"is_active"`
	TotalMessages int64               `json:"total_messages"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ConversationResponse is used for deserializing conversation listings.
type ConversationResponse struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	UserIP    string    `json:"user_ip"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WidgetCodeResponse matches handlers.WidgetCodeResponse.
type WidgetCodeResponse struct {
	WidgetCode string `json:"widgetCode"`
	Script     string `json:"script"`
}

// PageRequest matches handlers.PageRequest.
type PageRequest struct {
	URL     string `json:"url"`
	AgentID string `json:"agentId,omitempty"`
}

// PageResponse matches handlers.PageResponse.
type PageResponse struct {
	Success  bool `json:"success"`
	Analysis struct {
		Visual      string             `json:"visual"`
		Data        *pagedata.Snapshot `json:"data"`
		Description string             `json:"description"`
		Degraded    bool               `json:"degraded"`
	} `json:"analysis"`
}

// ScreenshotRequest matches handlers.ScreenshotRequest.
type ScreenshotRequest struct {
	URL      string `json:"url"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	FullPage *bool  `json:"fullPage,omitempty"`
	Quality  int    `json:"quality,omitempty"`
}

// ScreenshotResponse matches handlers.ScreenshotResponse.
type ScreenshotResponse struct {
	Success    bool   `json:"success"`
	Screenshot string `json:"screenshot"`
	Path       string `json:"path,omitempty"`
	URL        string `json:"url,omitempty"`
}

// ContextRequest matches handlers.ContextRequest.
type ContextRequest struct {
	URL       string `json:"url"`
	Question  string `json:"question"`
	AgentID   string `json:"agentId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// ContextResponse matches handlers.ContextResponse.
type ContextResponse struct {
	Success     bool   `json:"success"`
	Response    string `json:"response"`
	PageContext struct {
		Title      string `json:"title"`
		URL        string `json:"url"`
		HasButtons bool   `json:"hasButtons"`
		HasForms   bool   `json:"hasForms"`
	} `json:"pageContext"`
}

// AutomateRequest matches automation.Request.
type AutomateRequest struct {
	Action string         `json:"action"`
	URL    string         `json:"url"`
	Params AutomateParams `json:"params"`
}

// AutomateParams matches automation.Params.
type AutomateParams struct {
	ButtonText        string            `json:"buttonText,omitempty"`
	FormData          map[string]string `json:"formData,omitempty"`
	SubmitSelector    string            `json:"submitSelector,omitempty"`
	WaitForNavigation *bool             `json:"waitForNavigation,omitempty"`
}

// AutomateResponse matches handlers.AutomateResponse.
type AutomateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		NewURL string                 `json:"newUrl,omitempty"`
		Match  *resolver.ElementMatch `json:"match,omitempty"`
	} `json:"data"`
}

// ChatRequest matches handlers.ChatRequest.
type ChatRequest struct {
	Message      string       `json:"message"`
	SessionToken string       `json:"sessionToken,omitempty"`
	PageContext  *ChatPageCtx `json:"pageContext,omitempty"`
}

// ChatPageCtx matches chat.PageContext.
type ChatPageCtx struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// ChatResponse matches handlers.ChatResponse.
type ChatResponse struct {
	Response       string `json:"response"`
	SessionID      string `json:"sessionId"`
	SessionToken   string `json:"sessionToken,omitempty"`
	HasPageContext bool   `json:"hasPageContext"`
	Action         bool   `json:"action,omitempty"`
}

// CreateTokenRequest matches handlers.CreateTokenRequest.
type CreateTokenRequest struct {
	Name           string `json:"name"`
	Scope          string `json:"scope"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

// CreateTokenResponse matches handlers.CreateTokenResponse.
type CreateTokenResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

// TokenListItem matches handlers.TokenListItem.
type TokenListItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Scope      string `json:"scope"`
	ExpiresAt  string `json:"expires_at"`
	LastUsedAt string `json:"last_used_at,omitempty"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
}

// TokenListResponse matches handlers.TokenListResponse.
type TokenListResponse struct {
	Tokens []TokenListItem `json:"tokens"`
	Total  int             `json:"total"`
}
