package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/pageagent/apitoken"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"golang.org/x/crypto/bcrypt"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// ScopeKey is the context key for the authenticated scope.
	ScopeKey ContextKey = "scope"

	// AuthMethodKey is the context key for the authentication method.
	AuthMethodKey ContextKey = "auth_method"

	// TokenIDKey is the context key for the operator token ID.
	TokenIDKey ContextKey = "token_id"
)

const (
	AuthMethodAPIKey = "api_key"
	AuthMethodToken  = "token"

	apiKeyHeader = "X-API-Key"
)

// APIKeyMiddleware protects the operator API. It accepts the bootstrap key,
// checked against a bcrypt hash, or an operator token from the token store.
// Both are read from "Authorization: Bearer" or X-API-Key.
type APIKeyMiddleware struct {
	keyHash []byte
	tokens  apitoken.Store
	logger  logger.Logger
	now     func() time.Time
}

// NewAPIKeyMiddleware creates the operator authentication middleware.
// An empty keyHash disables the bootstrap key; a nil store disables tokens.
func NewAPIKeyMiddleware(keyHash string, tokens apitoken.Store, log logger.Logger) *APIKeyMiddleware {
	m := &APIKeyMiddleware{
		tokens: tokens,
		logger: log,
		now:    time.Now,
	}
	if keyHash != "" {
		m.keyHash = []byte(keyHash)
	}
	return m
}

// Handler wraps an HTTP handler with operator authentication.
func (m *APIKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := credential(r)
		if raw == "" {
			m.logger.Warn(r.Context(), "missing api key", map[string]interface{}{
				"path": r.URL.Path,
			})
			respondError(w, http.StatusUnauthorized, "api key required")
			return
		}

		if m.tokens != nil && strings.HasPrefix(raw, apitoken.TokenPrefix) {
			m.handleToken(w, r, next, raw)
			return
		}

		if m.keyHash == nil || bcrypt.CompareHashAndPassword(m.keyHash, []byte(raw)) != nil {
			m.logger.Warn(r.Context(), "invalid api key", map[string]interface{}{
				"path": r.URL.Path,
			})
			respondError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		ctx := context.WithValue(r.Context(), ScopeKey, apitoken.ScopeReadWrite)
		ctx = context.WithValue(ctx, AuthMethodKey, AuthMethodAPIKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *APIKeyMiddleware) handleToken(w http.ResponseWriter, r *http.Request, next http.Handler, raw string) {
	token, err := m.tokens.GetByTokenHash(r.Context(), apitoken.HashToken(raw))
	if err != nil {
		m.logger.Warn(r.Context(), "invalid bearer token", map[string]interface{}{
			"path": r.URL.Path,
		})
		respondError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	if err := m.tokens.MarkUsed(r.Context(), token.ID, m.now()); err != nil {
		m.logger.Warn(r.Context(), "failed to record token use", map[string]interface{}{
			"error":    err.Error(),
			"token_id": token.ID.String(),
		})
	}

	ctx := context.WithValue(r.Context(), ScopeKey, token.Scope)
	ctx = context.WithValue(ctx, AuthMethodKey, AuthMethodToken)
	ctx = context.WithValue(ctx, TokenIDKey, token.ID)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func credential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get(apiKeyHeader))
}

// GetScope extracts the scope from the request context.
func GetScope(ctx context.Context) string {
	scope, ok := ctx.Value(ScopeKey).(string)
	if !ok {
		return apitoken.ScopeReadWrite
	}
	return scope
}

// GetAuthMethod extracts the authentication method from the request context.
func GetAuthMethod(ctx context.Context) string {
	method, ok := ctx.Value(AuthMethodKey).(string)
	if !ok {
		return AuthMethodAPIKey
	}
	return method
}

// GetTokenID returns the operator token behind the request, if any.
func GetTokenID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(TokenIDKey).(uuid.UUID)
	return id, ok
}

// RequireWriteScope checks if the current request has write scope.
// Returns true if the scope is read_write, false otherwise (and writes a 403 response).
func RequireWriteScope(w http.ResponseWriter, r *http.Request) bool {
	scope := GetScope(r.Context())
	if scope != apitoken.ScopeReadWrite {
		respondError(w, http.StatusForbidden, "write access required")
		return false
	}
	return true
}

// WriteScopeMiddleware enforces write scope for state-mutating HTTP methods.
// GET and HEAD requests pass through regardless of scope.
func WriteScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
			if !RequireWriteScope(w, r) {
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WidgetHeaders lets the widget be embedded in an iframe on any site.
func WidgetHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "frame-ancestors *; frame-src *")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware answers preflight requests. Paths under publicPrefix accept
// any origin; everything else only allowedOrigin. It wraps the whole router
// so preflight requests reach it before method matching.
func CORSMiddleware(allowedOrigin, publicPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			public := publicPrefix != "" && strings.HasPrefix(r.URL.Path, publicPrefix)

			if origin != "" && (public || origin == allowedOrigin) {
				h := w.Header()
				if public {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Widget-Session")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info(r.Context(), "http request", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			})
		})
	}
}
