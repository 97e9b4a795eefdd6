package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "qwen/qwen2.5-vl-32b-instruct:free"
	defaultTitle           = "Bloop.ai - AI Agent Platform"
)

// OpenRouter talks to OpenRouter, or any OpenAI compatible endpoint, through
// the chat completions API.
type OpenRouter struct {
	client *openai.Client
	model  string
}

func NewOpenRouter(cfg Config) (*OpenRouter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	if oc.BaseURL == "" {
		oc.BaseURL = DefaultOpenRouterURL
	}
	oc.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &attributionTransport{
			base:    http.DefaultTransport,
			referer: cfg.Referer,
			title:   cfg.Title,
		},
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouter{client: openai.NewClientWithConfig(oc), model: model}, nil
}

func (p *OpenRouter) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range conversation(req.History) {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openRouterUserTurn(req))

	ctx = withAttribution(ctx, req.Referer, req.Title)
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.maxTokens(),
		Temperature: float32(req.temperature()),
		TopP:        0.9,
	})
	if err != nil {
		return "", openRouterError(err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func openRouterUserTurn(req Request) openai.ChatCompletionMessage {
	if req.ImageBase64 == "" {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt}
	}
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: "data:image/jpeg;base64," + req.ImageBase64},
			},
		},
	}
}

func openRouterError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Code: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{Code: reqErr.HTTPStatusCode, Err: err}
	}
	return fmt.Errorf("openrouter: %w", err)
}

type attributionKey struct{}

type attribution struct {
	referer string
	title   string
}

// withAttribution overrides the attribution headers for one request.
func withAttribution(ctx context.Context, referer, title string) context.Context {
	if referer == "" && title == "" {
		return ctx
	}
	return context.WithValue(ctx, attributionKey{}, attribution{referer: referer, title: title})
}

// attributionTransport adds the HTTP-Referer and X-Title headers OpenRouter
// uses to attribute traffic.
type attributionTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *attributionTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	referer, title := t.referer, t.title
	if a, ok := r.Context().Value(attributionKey{}).(attribution); ok {
		if a.referer != "" {
			referer = a.referer
		}
		if a.title != "" {
			title = a.title
		}
	}
	if title == "" {
		title = defaultTitle
	}

	r = r.Clone(r.Context())
	if referer != "" {
		r.Header.Set("HTTP-Referer", referer)
	}
	r.Header.Set("X-Title", title)
	return t.base.RoundTrip(r)
}
