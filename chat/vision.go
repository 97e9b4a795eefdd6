package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/llm"
	"github.com/hairizuanbinnoorazman/pageagent/pagedata"
)

// ErrMissingQuestion is returned when a contextual request has no question.
var ErrMissingQuestion = errors.New("question is required")

const defaultAssistantName = "AI-ассистент"

// PageReport is a vision model's reading of a page next to the extracted data.
type PageReport struct {
	Visual      string             `json:"visual"`
	Data        *pagedata.Snapshot `json:"data"`
	Description string             `json:"description"`
	Degraded    bool               `json:"degraded,omitempty"`
}

// AnalyzeWithVision captures url and asks the model to describe it. Unlike
// chat replies, completion failures are returned to the caller.
func (s *Service) AnalyzeWithVision(ctx context.Context, url string) (*PageReport, error) {
	analysis, err := s.analyze(ctx, url)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithField("url", url)
	visual, err := s.completer.Complete(ctx, llm.Request{
		System:      visionSystemPrompt,
		Prompt:      visionPrompt(analysis.Snapshot),
		ImageBase64: s.visionImage(ctx, log, analysis.ScreenshotBase64),
		MaxTokens:   visionMaxTokens,
		Title:       visionTitle,
		Referer:     visionReferer,
	})
	if err != nil {
		s.metrics.LLMFallback(llm.FallbackReason(err))
		return nil, fmt.Errorf("failed to analyze page with vision: %w", err)
	}

	return &PageReport{
		Visual:      visual,
		Data:        analysis.Snapshot,
		Description: analysis.Description,
		Degraded:    analysis.Degraded,
	}, nil
}

// ContextRequest asks a question about a specific page.
type ContextRequest struct {
	URL       string    `json:"url"`
	Question  string    `json:"question"`
	AgentID   uuid.UUID `json:"agentId"`
	SessionID string    `json:"sessionId"`
}

// PageSummary tells the caller what was found on the page.
type PageSummary struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	HasButtons bool   `json:"hasButtons"`
	HasForms   bool   `json:"hasForms"`
}

// ContextAnswer is the reply to a ContextRequest.
type ContextAnswer struct {
	Response    string      `json:"response"`
	PageContext PageSummary `json:"pageContext"`
}

// ContextualAnswer answers a question using the analysed page, on behalf of
// the given agent or a generic assistant when AgentID is unset.
func (s *Service) ContextualAnswer(ctx context.Context, req ContextRequest) (*ContextAnswer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrMissingQuestion
	}

	a := &agent.Agent{Name: defaultAssistantName, ResponseStyle: agent.StyleHelpful}
	if req.AgentID != uuid.Nil {
		found, err := s.agents.GetByID(ctx, req.AgentID)
		if err != nil {
			return nil, err
		}
		a = found
	}

	analysis, err := s.analyze(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(map[string]interface{}{
		"url":        req.URL,
		"session_id": req.SessionID,
	})

	snap := analysis.Snapshot
	response, ok := s.runIntent(ctx, a, question, &PageContext{URL: snap.URL, Title: snap.Title})
	if !ok {
		response = s.complete(ctx, log, s.contextualRequest(ctx, log, a, analysis, question, nil))
	}

	return &ContextAnswer{
		Response: response,
		PageContext: PageSummary{
			Title:      snap.Title,
			URL:        snap.URL,
			HasButtons: len(snap.Buttons) > 0,
			HasForms:   len(snap.Forms) > 0,
		},
	}, nil
}
