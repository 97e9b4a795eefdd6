package handlers

import (
	"net/http"
	"time"

	"github.com/hairizuanbinnoorazman/pageagent/apitoken"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
)

// APITokenHandler manages operator tokens.
type APITokenHandler struct {
	tokenStore apitoken.Store
	logger     logger.Logger
	now        func() time.Time
}

// NewAPITokenHandler creates a new API token handler.
func NewAPITokenHandler(tokenStore apitoken.Store, log logger.Logger) *APITokenHandler {
	return &APITokenHandler{
		tokenStore: tokenStore,
		logger:     log,
		now:        time.Now,
	}
}

// CreateTokenRequest represents a token creation request.
type CreateTokenRequest struct {
	Name           string `json:"name"`
	Scope          string `json:"scope"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

// CreateTokenResponse includes the raw token, shown once.
type CreateTokenResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

// TokenListItem represents a token in list responses (no secret).
type TokenListItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Scope      string `json:"scope"`
	ExpiresAt  string `json:"expires_at"`
	LastUsedAt string `json:"last_used_at,omitempty"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
}

// TokenListResponse is the response for listing tokens.
type TokenListResponse struct {
	Tokens []TokenListItem `json:"tokens"`
	Total  int             `json:"total"`
}

// Create handles creating a new operator token.
func (h *APITokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Scope == "" {
		req.Scope = apitoken.ScopeReadOnly
	}
	expiry := apitoken.ClampExpiry(time.Duration(req.ExpiresInHours) * time.Hour)

	rawToken, hash, err := apitoken.GenerateToken()
	if err != nil {
		h.logger.Error(r.Context(), "failed to generate token", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	token := &apitoken.APIToken{
		Name:      req.Name,
		TokenHash: hash,
		Scope:     req.Scope,
		ExpiresAt: h.now().Add(expiry),
		IsActive:  true,
	}

	if err := h.tokenStore.Create(r.Context(), token); err != nil {
		respondServiceError(w, r, err, "failed to create token", h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, CreateTokenResponse{
		ID:        token.ID.String(),
		Name:      token.Name,
		Scope:     token.Scope,
		Token:     rawToken,
		ExpiresAt: token.ExpiresAt.Format(time.RFC3339),
		CreatedAt: token.CreatedAt.Format(time.RFC3339),
	})
}

// List handles listing active operator tokens.
func (h *APITokenHandler) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokenStore.List(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "failed to list tokens", h.logger)
		return
	}

	items := make([]TokenListItem, len(tokens))
	for i, t := range tokens {
		items[i] = TokenListItem{
			ID:        t.ID.String(),
			Name:      t.Name,
			Scope:     t.Scope,
			ExpiresAt: t.ExpiresAt.Format(time.RFC3339),
			IsActive:  t.IsActive,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		}
		if t.LastUsedAt != nil {
			items[i].LastUsedAt = t.LastUsedAt.Format(time.RFC3339)
		}
	}

	respondJSON(w, http.StatusOK, TokenListResponse{
		Tokens: items,
		Total:  len(items),
	})
}

// Revoke handles revoking a token. A token may revoke itself.
func (h *APITokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := parseUUIDOrRespond(w, r, "token_id", "token")
	if !ok {
		return
	}

	if err := h.tokenStore.Revoke(r.Context(), tokenID); err != nil {
		respondServiceError(w, r, err, "failed to revoke token", h.logger)
		return
	}

	respondSuccess(w, "token revoked successfully")
}
