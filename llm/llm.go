package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when a provider answered without any text.
var ErrEmptyResponse = errors.New("empty completion response")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
)

// Apology replies shown to chat visitors instead of provider errors.
const (
	ApologyOverloaded = "Извините, сейчас большая нагрузка. Попробуйте чуть позже."
	ApologyAuth       = "Произошла ошибка авторизации AI сервиса. Обратитесь к администратору."
	ApologyGeneric    = "Извините, временно не могу ответить. Попробуйте переформулировать вопрос или обратитесь к нашему менеджеру."
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call. ImageBase64, when set, is a JPEG attached
// to the final user turn.
type Request struct {
	System      string
	History     []Message
	Prompt      string
	ImageBase64 string
	MaxTokens   int
	Temperature float64
	// Title and Referer identify the calling feature to providers that
	// support attribution headers.
	Title   string
	Referer string
}

func (r Request) maxTokens() int {
	if r.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return r.MaxTokens
}

func (r Request) temperature() float64 {
	if r.Temperature <= 0 {
		return defaultTemperature
	}
	return r.Temperature
}

// Completer generates a reply for a prompt and conversation history.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Region   string
	Timeout  time.Duration
	// Referer and Title are sent as OpenRouter attribution headers.
	Referer string
	Title   string
}

// New creates the provider named by cfg.Provider: "openrouter", "openai",
// "anthropic" or "bedrock".
func New(cfg Config) (Completer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch strings.ToLower(cfg.Provider) {
	case "openrouter", "openai", "":
		return NewOpenRouter(cfg)
	case "anthropic", "claude":
		return NewAnthropic(cfg)
	case "bedrock":
		return NewBedrock(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: openrouter, anthropic, bedrock)", cfg.Provider)
	}
}

// StatusCode extracts the HTTP status carried by a provider error, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	var withStatus interface{ HTTPStatusCode() int }
	if errors.As(err, &withStatus) {
		return withStatus.HTTPStatusCode()
	}
	return 0
}

// StatusError carries the HTTP status of a failed provider call.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm provider returned %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Apology maps a completion error to the reply shown to the visitor.
func Apology(err error) string {
	switch StatusCode(err) {
	case http.StatusTooManyRequests:
		return ApologyOverloaded
	case http.StatusUnauthorized:
		return ApologyAuth
	default:
		return ApologyGeneric
	}
}

// FallbackReason labels err for the fallback metric.
func FallbackReason(err error) string {
	switch code := StatusCode(err); {
	case code == http.StatusTooManyRequests:
		return "rate_limited"
	case code == http.StatusUnauthorized:
		return "unauthorized"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	default:
		return "error"
	}
}

// conversation returns history without leading assistant turns, since
// providers expect the first turn to come from the user.
func conversation(history []Message) []Message {
	for i, m := range history {
		if m.Role == RoleUser {
			return history[i:]
		}
	}
	return nil
}
