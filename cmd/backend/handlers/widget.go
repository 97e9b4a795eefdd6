package handlers

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/chat"
	"github.com/hairizuanbinnoorazman/pageagent/conversation"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/session"
)

//go:embed templates/chat.html
var templatesFS embed.FS

var chatPage = template.Must(template.ParseFS(templatesFS, "templates/chat.html"))

// SessionHeader carries the visitor session token.
const SessionHeader = "X-Widget-Session"

const msgWidgetNotFound = "widget not found or inactive"

// WidgetChat is the chat service behind the public widget.
type WidgetChat interface {
	Config(ctx context.Context, widgetCode string) (*chat.WidgetConfig, error)
	Reply(ctx context.Context, widgetCode string, req chat.Request) (*chat.Reply, error)
}

// WidgetHandler serves the public widget endpoints.
type WidgetHandler struct {
	chat     WidgetChat
	sessions *session.Manager
	logger   logger.Logger
}

// NewWidgetHandler creates a new widget handler.
func NewWidgetHandler(chat WidgetChat, sessions *session.Manager, log logger.Logger) *WidgetHandler {
	return &WidgetHandler{
		chat:     chat,
		sessions: sessions,
		logger:   log,
	}
}

// ChatRequest is a visitor message sent by the widget.
type ChatRequest struct {
	Message      string            `json:"message"`
	SessionToken string            `json:"sessionToken,omitempty"`
	UserInfo     *ChatUserInfo     `json:"userInfo,omitempty"`
	PageContext  *chat.PageContext `json:"pageContext,omitempty"`
}

// ChatUserInfo is optional visitor metadata.
type ChatUserInfo struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// ChatResponse answers a ChatRequest. SessionToken is set only when a new
// session was started and the widget must store it.
type ChatResponse struct {
	Response       string `json:"response"`
	SessionID      string `json:"sessionId"`
	SessionToken   string `json:"sessionToken,omitempty"`
	HasPageContext bool   `json:"hasPageContext"`
	Action         bool   `json:"action,omitempty"`
}

// Config returns the public configuration of a widget.
func (h *WidgetHandler) Config(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	cfg, err := h.chat.Config(r.Context(), code)
	if err != nil {
		if errors.Is(err, agent.ErrAgentNotFound) {
			respondError(w, http.StatusNotFound, msgWidgetNotFound)
			return
		}
		respondServiceError(w, r, err, "failed to load widget", h.logger)
		return
	}

	respondData(w, http.StatusOK, cfg)
}

// Chat answers a visitor message.
func (h *WidgetHandler) Chat(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req ChatRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, chat.ErrEmptyMessage.Error())
		return
	}
	if req.PageContext != nil && strings.TrimSpace(req.PageContext.URL) == "" {
		req.PageContext = nil
	}

	// Sessions are only issued for widgets that exist.
	if _, err := h.chat.Config(r.Context(), code); err != nil {
		if errors.Is(err, agent.ErrAgentNotFound) {
			respondError(w, http.StatusNotFound, msgWidgetNotFound)
			return
		}
		respondServiceError(w, r, err, "failed to load widget", h.logger)
		return
	}

	token := r.Header.Get(SessionHeader)
	if token == "" {
		token = req.SessionToken
	}
	sess, newToken, err := h.sessions.Continue(code, token)
	if err != nil {
		respondServiceError(w, r, err, "failed to start session", h.logger)
		return
	}

	if req.PageContext != nil {
		page := session.Page{URL: req.PageContext.URL, Title: req.PageContext.Title}
		if err := h.sessions.Touch(sess.ID, page); err != nil {
			h.logger.Warn(r.Context(), "failed to record visitor page", map[string]interface{}{
				"error":      err.Error(),
				"session_id": sess.ID.String(),
			})
		}
	}

	reply, err := h.chat.Reply(r.Context(), code, chat.Request{
		Message:     req.Message,
		SessionID:   sess.ID.String(),
		PageContext: req.PageContext,
		Visitor:     visitorFrom(r, req.UserInfo),
	})
	if err != nil {
		if errors.Is(err, agent.ErrAgentNotFound) {
			respondError(w, http.StatusNotFound, msgWidgetNotFound)
			return
		}
		respondServiceError(w, r, err, "failed to process message", h.logger)
		return
	}

	respondData(w, http.StatusOK, ChatResponse{
		Response:       reply.Response,
		SessionID:      reply.SessionID,
		SessionToken:   newToken,
		HasPageContext: reply.HasPageContext,
		Action:         reply.Action,
	})
}

// Page serves the chat interface loaded in the widget iframe.
func (h *WidgetHandler) Page(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	cfg, err := h.chat.Config(r.Context(), code)
	if err != nil {
		if errors.Is(err, agent.ErrAgentNotFound) {
			http.Error(w, "Виджет не найден", http.StatusNotFound)
			return
		}
		h.logger.Error(r.Context(), "failed to load widget", map[string]interface{}{
			"error":       err.Error(),
			"widget_code": code,
		})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = chatPage.Execute(w, map[string]string{
		"BusinessName":   cfg.BusinessName,
		"WelcomeMessage": cfg.WelcomeMessage,
		"WidgetCode":     code,
		"ChatURL":        "/api/v1/widget/" + code + "/chat",
	})
	if err != nil {
		h.logger.Error(r.Context(), "failed to render chat page", map[string]interface{}{
			"error":       err.Error(),
			"widget_code": code,
		})
	}
}

// visitorFrom prefers what the widget reports and falls back to the request.
func visitorFrom(r *http.Request, info *ChatUserInfo) conversation.Visitor {
	v := conversation.Visitor{UserAgent: r.UserAgent(), IP: clientIP(r)}
	if info != nil {
		if info.IP != "" {
			v.IP = info.IP
		}
		if info.UserAgent != "" {
			v.UserAgent = info.UserAgent
		}
	}
	return v
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
