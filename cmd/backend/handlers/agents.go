package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"

	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/automation"
	"github.com/hairizuanbinnoorazman/pageagent/conversation"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
)

// SiteAnalyzer analyses an agent's website when the agent is activated.
type SiteAnalyzer interface {
	AnalyzePage(ctx context.Context, url string) (*automation.Analysis, error)
}

// AgentHandler serves agent management for operators.
type AgentHandler struct {
	agentStore        agent.Store
	conversationStore conversation.Store
	analyzer          SiteAnalyzer
	publicURL         string
	logger            logger.Logger
}

// NewAgentHandler creates a new agent handler. publicURL is embedded in
// widget scripts; analyzer may be nil, in which case activation skips the
// site analysis.
func NewAgentHandler(agentStore agent.Store, conversationStore conversation.Store, analyzer SiteAnalyzer, publicURL string, log logger.Logger) *AgentHandler {
	return &AgentHandler{
		agentStore:        agentStore,
		conversationStore: conversationStore,
		analyzer:          analyzer,
		publicURL:         strings.TrimRight(publicURL, "/"),
		logger:            log,
	}
}

// CreateAgentRequest represents an agent creation request.
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

// UpdateAgentRequest represents an agent update request.
type UpdateAgentRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	WebsiteURL    *string `json:"websiteUrl,omitempty"`
	SystemPrompt  *string `json:"systemPrompt,omitempty"`
	ResponseStyle *string `json:"responseStyle,omitempty"`
	KnowledgeBase *string `json:"knowledgeBase,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

// WidgetCodeResponse carries the embed snippet for an agent.
type WidgetCodeResponse struct {
	WidgetCode string `json:"widgetCode"`
	Script     string `json:"script"`
}

// Create handles creating a new agent.
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a := &agent.Agent{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		WebsiteURL:    req.WebsiteURL,
		SystemPrompt:  req.SystemPrompt,
		ResponseStyle: agent.ResponseStyle(req.ResponseStyle),
		KnowledgeBase: req.KnowledgeBase,
		WidgetCode:    req.WidgetCode,
		IsActive:      true,
	}

	if err := h.agentStore.Create(r.Context(), a); err != nil {
		respondServiceError(w, r, err, "failed to create agent", h.logger)
		return
	}

	// The column defaults to active, so an inactive agent needs a second write.
	if req.IsActive != nil && !*req.IsActive {
		if err := h.agentStore.Update(r.Context(), a.ID, agent.SetActive(false)); err != nil {
			respondServiceError(w, r, err, "failed to create agent", h.logger)
			return
		}
		a.IsActive = false
	}

	respondJSON(w, http.StatusCreated, a)
}

// GetByID handles retrieving an agent by ID.
func (h *AgentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "agent")
	if !ok {
		return
	}

	a, err := h.agentStore.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get agent", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, a)
}

// List handles listing agents with pagination.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	agents, err := h.agentStore.List(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, r, err, "failed to list agents", h.logger)
		return
	}

	total, err := h.agentStore.Count(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "failed to count agents", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(agents, total, limit, offset))
}

// Update handles updating an agent.
func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "agent")
	if !ok {
		return
	}

	var req UpdateAgentRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var setters []agent.UpdateSetter
	if req.Name != nil {
		setters = append(setters, agent.SetName(strings.TrimSpace(*req.Name)))
	}
	if req.Description != nil {
		setters = append(setters, agent.SetDescription(*req.Description))
	}
	if req.WebsiteURL != nil {
		setters = append(setters, agent.SetWebsiteURL(*req.WebsiteURL))
	}
	if req.SystemPrompt != nil {
		setters = append(setters, agent.SetSystemPrompt(*req.SystemPrompt))
	}
	if req.ResponseStyle != nil {
		setters = append(setters, agent.SetResponseStyle(agent.ResponseStyle(*req.ResponseStyle)))
	}
	if req.KnowledgeBase != nil {
		setters = append(setters, agent.SetKnowledgeBase(*req.KnowledgeBase))
	}
	if req.IsActive != nil {
		setters = append(setters, agent.SetActive(*req.IsActive))
	}

	if len(setters) == 0 {
		respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := h.agentStore.Update(r.Context(), id, setters...); err != nil {
		respondServiceError(w, r, err, "failed to update agent", h.logger)
		return
	}

	updated, err := h.agentStore.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get updated agent", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Delete handles deleting an agent and its conversations.
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "agent")
	if !ok {
		return
	}

	if err := h.agentStore.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, err, "failed to delete agent", h.logger)
		return
	}

	respondSuccess(w, "agent deleted successfully")
}

// Conversations lists the conversations of an agent.
func (h *AgentHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "agent")
	if !ok {
		return
	}
	if _, err := h.agentStore.GetByID(r.Context(), id); err != nil {
		respondServiceError(w, r, err, "failed to get agent", h.logger)
		return
	}

	limit, offset := parsePagination(r)
	convs, err := h.conversationStore.ListByAgent(r.Context(), id, limit, offset)
	if err != nil {
		respondServiceError(w, r, err, "failed to list conversations", h.logger)
		return
	}
	total, err := h.conversationStore.CountByAgent(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to count conversations", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(convs, total, limit, offset))
}

// WidgetCode returns the embed snippet of an active agent.
func (h *AgentHandler) WidgetCode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "agent")
	if !ok {
		return
	}

	a, err := h.agentStore.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get agent", h.logger)
		return
	}
	if !a.IsActive {
		respondError(w, http.StatusBadRequest, "agent must be active to get the widget code")
		return
	}

	script, err := widgetScript(h.publicURL, a)
	if err != nil {
		respondServiceError(w, r, err, "failed to render widget script", h.logger)
		return
	}

	respondData(w, http.StatusOK, WidgetCodeResponse{WidgetCode: a.WidgetCode, Script: script})
}

// Activate analyses the agent's website, derives a system prompt from it
// and activates the agent.
func (h *AgentHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "agent")
	if !ok {
		return
	}

	a, err := h.agentStore.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get agent", h.logger)
		return
	}

	siteDescription := ""
	if h.analyzer != nil && a.WebsiteURL != "" {
		analysis, err := h.analyzer.AnalyzePage(r.Context(), a.WebsiteURL)
		if err != nil {
			h.logger.Warn(r.Context(), "site analysis skipped", map[string]interface{}{
				"agent_id": id.String(),
				"url":      a.WebsiteURL,
				"error":    err.Error(),
			})
		} else if !analysis.Degraded {
			siteDescription = analysis.Description
		}
	}

	err = h.agentStore.Update(r.Context(), id,
		agent.SetSystemPrompt(activationPrompt(a, siteDescription)),
		agent.SetActive(true),
	)
	if err != nil {
		respondServiceError(w, r, err, "failed to activate agent", h.logger)
		return
	}

	updated, err := h.agentStore.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "failed to get updated agent", h.logger)
		return
	}

	respondData(w, http.StatusOK, updated)
}

func activationPrompt(a *agent.Agent, siteDescription string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ты - AI-ассистент для сайта \"%s\".\n", a.Name)
	if a.Description != "" {
		fmt.Fprintf(&b, "Описание бизнеса: %s\n", a.Description)
	}
	if a.WebsiteURL != "" {
		fmt.Fprintf(&b, "Сайт: %s\n", a.WebsiteURL)
	}
	if siteDescription != "" {
		fmt.Fprintf(&b, "\nГлавная страница сайта:\n%s\n", siteDescription)
	}
	b.WriteString("\nТвоя задача - помогать посетителям сайта, отвечать на их вопросы и направлять их к нужным действиям.\n")
	b.WriteString("Будь дружелюбным, полезным и информативным.")
	return b.String()
}

var widgetScriptTemplate = template.Must(template.New("widget").Parse(`<!-- Bloop.ai Widget Script -->
<script>
(function() {
  var config = {{.Config}};
  var frame = document.createElement('iframe');
  frame.src = config.apiUrl + '/api/v1/widget/' + config.widgetCode + '/chat';
  frame.title = config.businessName;
  frame.style.cssText = 'position:fixed;bottom:20px;right:20px;width:350px;height:500px;border:none;z-index:9999;';
  document.body.appendChild(frame);
})();
</script>`))

func widgetScript(publicURL string, a *agent.Agent) (string, error) {
	config, err := json.MarshalIndent(map[string]string{
		"widgetCode":   a.WidgetCode,
		"apiUrl":       publicURL,
		"businessName": a.Name,
		"position":     "bottom-right",
		"theme":        "light",
		"primaryColor": "#3B82F6",
	}, "  ", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := widgetScriptTemplate.Execute(&b, map[string]string{"Config": string(config)}); err != nil {
		return "", err
	}
	return b.String(), nil
}
