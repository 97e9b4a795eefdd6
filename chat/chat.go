// Package chat answers widget visitors: intents first, then an LLM reply
// grounded in the agent's knowledge base and the visitor's current page.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/automation"
	"github.com/hairizuanbinnoorazman/pageagent/conversation"
	"github.com/hairizuanbinnoorazman/pageagent/intent"
	"github.com/hairizuanbinnoorazman/pageagent/llm"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/metrics"
)

const (
	EventReplied     = "chat reply sent"
	EventLLMFallback = "llm fallback reply used"
	EventPageSkipped = "page context skipped"
)

var (
	// ErrEmptyMessage is returned when a visitor sends a blank message.
	ErrEmptyMessage = errors.New("message is required")

	// ErrMissingSession is returned when a reply has no session to attach to.
	ErrMissingSession = errors.New("session id is required")
)

const (
	defaultHistoryWindow  = 8
	defaultVisionMaxWidth = 1024

	chatMaxTokens    = 500
	contextMaxTokens = 800
	visionMaxTokens  = 1000

	contextTemperature = 0.8

	contextTitle  = "Bloop.ai Contextual Chat"
	visionTitle   = "Bloop.ai Vision Analysis"
	visionReferer = "https://bloop.ai"
)

// PageAnalyzer produces a page analysis for prompts.
type PageAnalyzer interface {
	AnalyzePage(ctx context.Context, url string) (*automation.Analysis, error)
}

// IntentRunner handles messages that ask for an action.
type IntentRunner interface {
	DetectAndRun(ctx context.Context, message string, agent intent.AgentContext, page *intent.PageContext) (string, bool)
}

// Config tunes the chat service.
type Config struct {
	// HistoryWindow is how many earlier messages are sent to the model.
	HistoryWindow int
	// VisionMaxWidth bounds screenshots attached to vision prompts.
	VisionMaxWidth int
	// Referer is sent to OpenRouter for plain chat completions.
	Referer string
}

// DefaultConfig returns an eight message window and 1024px vision images.
func DefaultConfig() Config {
	return Config{HistoryWindow: defaultHistoryWindow, VisionMaxWidth: defaultVisionMaxWidth}
}

// Service answers widget chat messages.
type Service struct {
	cfg           Config
	agents        agent.Store
	conversations conversation.Store
	completer     llm.Completer
	analyzer      PageAnalyzer
	intents       IntentRunner
	metrics       *metrics.Metrics
	logger        logger.Logger
	now           func() time.Time
}

// New wires a chat service. analyzer and intents may be nil.
func New(cfg Config, agents agent.Store, conversations conversation.Store, completer llm.Completer,
	analyzer PageAnalyzer, intents IntentRunner, m *metrics.Metrics, log logger.Logger) *Service {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.VisionMaxWidth <= 0 {
		cfg.VisionMaxWidth = defaultVisionMaxWidth
	}
	return &Service{
		cfg:           cfg,
		agents:        agents,
		conversations: conversations,
		completer:     completer,
		analyzer:      analyzer,
		intents:       intents,
		metrics:       m,
		logger:        log.WithField("component", "chat"),
		now:           time.Now,
	}
}

// PageContext is what the widget reports about the visitor's page.
type PageContext struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Pathname string `json:"pathname,omitempty"`
}

// Request is one visitor message.
type Request struct {
	Message     string
	SessionID   string
	PageContext *PageContext
	Visitor     conversation.Visitor
}

// Reply is the assistant's answer.
type Reply struct {
	Response       string `json:"response"`
	SessionID      string `json:"sessionId"`
	HasPageContext bool   `json:"hasPageContext"`
	Action         bool   `json:"action"`
}

// WidgetConfig is what the widget needs before the first message.
type WidgetConfig struct {
	BusinessName   string `json:"businessName"`
	BusinessDesc   string `json:"businessDesc"`
	ResponseStyle  string `json:"responseStyle"`
	WelcomeMessage string `json:"welcomeMessage"`
}

// Config returns the public configuration of an active widget.
func (s *Service) Config(ctx context.Context, widgetCode string) (*WidgetConfig, error) {
	a, err := s.agents.GetByWidgetCode(ctx, widgetCode)
	if err != nil {
		return nil, err
	}
	return &WidgetConfig{
		BusinessName:   a.Name,
		BusinessDesc:   a.Description,
		ResponseStyle:  responseStyle(a),
		WelcomeMessage: a.WelcomeMessage(),
	}, nil
}

// Reply answers a visitor message for the agent behind widgetCode and
// records both turns in the session's conversation. Completion failures are
// answered with an apology, never surfaced as errors.
func (s *Service) Reply(ctx context.Context, widgetCode string, req Request) (*Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if req.SessionID == "" {
		return nil, ErrMissingSession
	}

	a, err := s.agents.GetByWidgetCode(ctx, widgetCode)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.FindOrCreate(ctx, a.ID, req.SessionID, req.Visitor)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	history := toLLMHistory(conv.Recent(s.cfg.HistoryWindow))

	log := s.logger.WithFields(map[string]interface{}{
		"agent_id":   a.ID.String(),
		"session_id": req.SessionID,
	})

	userMsg := conversation.Message{Role: conversation.RoleUser, Content: message, Timestamp: s.now()}
	if req.PageContext != nil {
		userMsg.PageContext = &conversation.PageContext{
			URL:      req.PageContext.URL,
			Title:    req.PageContext.Title,
			Pathname: req.PageContext.Pathname,
		}
	}

	response, action := s.answer(ctx, log, a, message, history, req.PageContext)

	assistantMsg := conversation.Message{Role: conversation.RoleAssistant, Content: response, Timestamp: s.now()}
	if err := s.conversations.AppendMessages(ctx, conv.ID, userMsg, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	if err := s.agents.IncrementMessages(ctx, a.ID, 2); err != nil {
		log.Warn(ctx, "failed to update agent message count", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info(ctx, EventReplied, map[string]interface{}{
		"action":           action,
		"has_page_context": req.PageContext != nil,
	})

	return &Reply{
		Response:       response,
		SessionID:      req.SessionID,
		HasPageContext: req.PageContext != nil,
		Action:         action,
	}, nil
}

// answer returns the reply text and whether an intent produced it.
func (s *Service) answer(ctx context.Context, log logger.Logger, a *agent.Agent, message string,
	history []llm.Message, page *PageContext) (string, bool) {
	if reply, ok := s.runIntent(ctx, a, message, page); ok {
		return reply, true
	}

	if page == nil || page.URL == "" {
		return s.complete(ctx, log, llm.Request{
			System:    systemPrompt(a),
			History:   history,
			Prompt:    message,
			MaxTokens: chatMaxTokens,
			Referer:   s.cfg.Referer,
		}), false
	}

	analysis, err := s.analyze(ctx, page.URL)
	switch {
	case errors.Is(err, automation.ErrInvalidURL):
		log.Info(ctx, EventPageSkipped, map[string]interface{}{
			"url":    page.URL,
			"reason": err.Error(),
		})
		return s.complete(ctx, log, llm.Request{
			System:    systemPrompt(a),
			History:   history,
			Prompt:    message,
			MaxTokens: chatMaxTokens,
			Referer:   s.cfg.Referer,
		}), false
	case err != nil:
		log.Warn(ctx, EventPageSkipped, map[string]interface{}{
			"url":   page.URL,
			"error": err.Error(),
		})
		return s.complete(ctx, log, llm.Request{
			System:    systemPrompt(a),
			History:   history,
			Prompt:    withPageHint(message, page.Title, page.URL),
			MaxTokens: chatMaxTokens,
			Referer:   s.cfg.Referer,
		}), false
	}

	return s.complete(ctx, log, s.contextualRequest(ctx, log, a, analysis, message, history)), false
}

func (s *Service) runIntent(ctx context.Context, a *agent.Agent, message string, page *PageContext) (string, bool) {
	if s.intents == nil {
		return "", false
	}
	var ip *intent.PageContext
	if page != nil {
		ip = &intent.PageContext{URL: page.URL, Title: page.Title}
	}
	return s.intents.DetectAndRun(ctx, message, intent.AgentContext{
		BusinessName:  a.Name,
		KnowledgeBase: a.KnowledgeBase,
	}, ip)
}

func (s *Service) analyze(ctx context.Context, url string) (*automation.Analysis, error) {
	if s.analyzer == nil {
		return nil, errors.New("page analysis is not configured")
	}
	return s.analyzer.AnalyzePage(ctx, url)
}

// contextualRequest builds a page-aware completion, attaching the screenshot
// when one was captured.
func (s *Service) contextualRequest(ctx context.Context, log logger.Logger, a *agent.Agent,
	analysis *automation.Analysis, message string, history []llm.Message) llm.Request {
	image := s.visionImage(ctx, log, analysis.ScreenshotBase64)
	hasScreenshot := image != ""

	return llm.Request{
		System:      contextualSystemPrompt(a, analysis.Snapshot, analysis.Description, hasScreenshot),
		History:     history,
		Prompt:      contextualQuestion(analysis.Snapshot, message, hasScreenshot),
		ImageBase64: image,
		MaxTokens:   contextMaxTokens,
		Temperature: contextTemperature,
		Title:       contextTitle,
		Referer:     analysis.Snapshot.URL,
	}
}

// visionImage downscales a screenshot. A screenshot that cannot be decoded
// is dropped and the prompt goes out text only.
func (s *Service) visionImage(ctx context.Context, log logger.Logger, b64 string) string {
	if b64 == "" {
		return ""
	}
	img, err := llm.PrepareImage(b64, s.cfg.VisionMaxWidth)
	if err != nil {
		log.Warn(ctx, "screenshot dropped from prompt", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	return img
}

// complete calls the model, replacing any failure with the matching apology.
func (s *Service) complete(ctx context.Context, log logger.Logger, req llm.Request) string {
	text, err := s.completer.Complete(ctx, req)
	if err == nil {
		return text
	}

	reason := llm.FallbackReason(err)
	s.metrics.LLMFallback(reason)
	log.Warn(ctx, EventLLMFallback, map[string]interface{}{
		"reason": reason,
		"status": llm.StatusCode(err),
		"error":  err.Error(),
	})
	return llm.Apology(err)
}

func toLLMHistory(msgs []conversation.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleUser
		if m.Role == conversation.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
