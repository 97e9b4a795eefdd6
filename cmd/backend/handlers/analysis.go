package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hairizuanbinnoorazman/pageagent/automation"
	"github.com/hairizuanbinnoorazman/pageagent/chat"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
)

// PageAutomator captures pages and runs automation primitives.
type PageAutomator interface {
	CaptureScreenshot(ctx context.Context, url string, opts automation.ScreenshotOptions) (*automation.Screenshot, error)
	Automate(ctx context.Context, req automation.Request) (*automation.Result, error)
	OpenScreenshot(ctx context.Context, name string) (io.ReadCloser, error)
}

// PageAssistant answers questions about pages with the LLM.
type PageAssistant interface {
	AnalyzeWithVision(ctx context.Context, url string) (*chat.PageReport, error)
	ContextualAnswer(ctx context.Context, req chat.ContextRequest) (*chat.ContextAnswer, error)
}

// AnalysisHandler serves the operator page analysis endpoints.
type AnalysisHandler struct {
	automator PageAutomator
	assistant PageAssistant
	logger    logger.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(automator PageAutomator, assistant PageAssistant, log logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		automator: automator,
		assistant: assistant,
		logger:    log,
	}
}

// PageRequest asks for a vision analysis of a page.
type PageRequest struct {
	URL     string `json:"url"`
	AgentID string `json:"agentId,omitempty"`
}

// PageResponse is the vision analysis of a page.
type PageResponse struct {
	Success  bool             `json:"success"`
	Analysis *chat.PageReport `json:"analysis"`
}

// ScreenshotRequest asks for a screenshot of a page.
type ScreenshotRequest struct {
	URL      string `json:"url"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	FullPage *bool  `json:"fullPage,omitempty"`
	Quality  int    `json:"quality,omitempty"`
}

// ScreenshotResponse carries the captured image.
type ScreenshotResponse struct {
	Success    bool   `json:"success"`
	Screenshot string `json:"screenshot"`
	Path       string `json:"path,omitempty"`
	URL        string `json:"url,omitempty"`
}

// ContextRequest asks a question about a page.
type ContextRequest struct {
	URL       string `json:"url"`
	Question  string `json:"question"`
	AgentID   string `json:"agentId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// ContextResponse answers a ContextRequest.
type ContextResponse struct {
	Success     bool             `json:"success"`
	Response    string           `json:"response"`
	PageContext chat.PageSummary `json:"pageContext"`
}

// AutomateResponse reports the outcome of an automation primitive.
type AutomateResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    *automation.Result `json:"data"`
}

// Page handles vision analysis of a page.
func (h *AnalysisHandler) Page(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return
	}

	h.logger.Info(r.Context(), "analyzing page", map[string]interface{}{
		"url":      req.URL,
		"agent_id": req.AgentID,
	})

	report, err := h.assistant.AnalyzeWithVision(r.Context(), req.URL)
	if err != nil {
		respondServiceError(w, r, err, "failed to analyze page", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, PageResponse{Success: true, Analysis: report})
}

// Screenshot handles capturing a page screenshot.
func (h *AnalysisHandler) Screenshot(w http.ResponseWriter, r *http.Request) {
	var req ScreenshotRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return
	}

	opts := automation.ScreenshotOptions{
		Width:    req.Width,
		Height:   req.Height,
		FullPage: true,
		Quality:  req.Quality,
	}
	if req.FullPage != nil {
		opts.FullPage = *req.FullPage
	}

	shot, err := h.automator.CaptureScreenshot(r.Context(), req.URL, opts)
	if err != nil {
		respondServiceError(w, r, err, "failed to take screenshot", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, ScreenshotResponse{
		Success:    true,
		Screenshot: shot.Base64,
		Path:       shot.Path,
		URL:        shot.URL,
	})
}

// ScreenshotFile streams a stored screenshot.
func (h *AnalysisHandler) ScreenshotFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	rc, err := h.automator.OpenScreenshot(r.Context(), name)
	if err != nil {
		respondServiceError(w, r, err, "failed to load screenshot", h.logger)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn(r.Context(), "failed to stream screenshot", map[string]interface{}{
			"error": err.Error(),
			"name":  name,
		})
	}
}

// Context handles a question about a page.
func (h *AnalysisHandler) Context(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Question) == "" {
		respondError(w, http.StatusBadRequest, "URL and question are required")
		return
	}

	agentID, ok := optionalAgentID(req.AgentID)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid agent ID: must be a valid UUID")
		return
	}

	answer, err := h.assistant.ContextualAnswer(r.Context(), chat.ContextRequest{
		URL:       req.URL,
		Question:  req.Question,
		AgentID:   agentID,
		SessionID: req.SessionID,
	})
	if err != nil {
		respondServiceError(w, r, err, "failed to analyze with context", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, ContextResponse{
		Success:     true,
		Response:    answer.Response,
		PageContext: answer.PageContext,
	})
}

// Automate handles one browser automation primitive. A missing element is
// reported with success false and status 200.
func (h *AnalysisHandler) Automate(w http.ResponseWriter, r *http.Request) {
	var req automation.Request
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" || strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "action and URL are required")
		return
	}

	res, err := h.automator.Automate(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "failed to execute automation", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, AutomateResponse{
		Success: res.Success,
		Message: res.Message,
		Data:    res,
	})
}

// optionalAgentID accepts an empty value or "default" as no agent.
func optionalAgentID(raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
