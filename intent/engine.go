package intent

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/pageagent/executor"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/metrics"
)

const (
	EventIntentMatched = "intent matched"
	EventIntentHandled = "intent handled"
)

const (
	clickPrompt     = `Укажите, какую кнопку нужно нажать. Например: "нажми войти", "кликни начать работу" или "нажать попробовать бесплатно"`
	registerPrompt  = `Для регистрации укажите ваш email адрес. Например: "зарегистрируй меня на user@example.com"`
	subscribePrompt = "Для подписки на обновления укажите ваш email адрес."
	demoPrompt      = "Для записи на демо укажите ваш email адрес."

	knowledgeUnavailable = "База знаний недоступна"
	knowledgeEmpty       = "По вашему запросу информация не найдена"
	knowledgeMaxLines    = 3

	contactsReply = "Наши контакты:\n" +
		"📧 Email: support@company.com\n" +
		"📞 Телефон: +7 (999) 123-45-67\n" +
		"🕒 Время работы: Пн-Пт 9:00-18:00 (МСК)\n" +
		"💬 Также вы можете написать нам прямо в этом чате!"

	// DefaultPageURL is used for browser intents when the widget did not
	// report the visitor's page.
	DefaultPageURL = "http://localhost:3000/"
)

// AgentContext is the slice of the agent record the handlers need.
type AgentContext struct {
	BusinessName  string
	KnowledgeBase string
}

// PageContext describes the page the visitor is on.
type PageContext struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Registration is the input for a sign-up on the visitor's page.
type Registration struct {
	Email        string
	Password     string
	Name         string
	SubmitLabels []string
}

// Automator performs browser intents. Each call runs in its own browser
// session against pageURL.
type Automator interface {
	ClickButton(ctx context.Context, pageURL, buttonText string) executor.ActionResult
	RegisterUser(ctx context.Context, pageURL string, reg Registration) executor.ActionResult
	NavigateTo(ctx context.Context, pageURL, targetPage string, labels []string) executor.ActionResult
}

// Engine detects an intent in a chat message and runs its handler.
type Engine struct {
	detector  *Detector
	automator Automator
	now       func() time.Time
	password  func() string
	metrics   *metrics.Metrics
	logger    logger.Logger
}

func NewEngine(d *Detector, a Automator, m *metrics.Metrics, log logger.Logger) *Engine {
	return &Engine{
		detector:  d,
		automator: a,
		now:       time.Now,
		password:  GeneratePassword,
		metrics:   m,
		logger:    log.WithField("component", "intent"),
	}
}

// DetectAndRun returns the reply for message and true when an intent
// matched. false means the caller should fall back to a general completion.
func (e *Engine) DetectAndRun(ctx context.Context, message string, agent AgentContext, page *PageContext) (string, bool) {
	match := e.detector.Detect(message)
	if match == nil {
		return "", false
	}

	e.metrics.Intent(string(match.Intent))
	e.logger.Info(ctx, EventIntentMatched, map[string]interface{}{
		"intent": string(match.Intent),
	})

	pageURL := DefaultPageURL
	if page != nil && page.URL != "" {
		pageURL = page.URL
	}

	reply := e.handle(ctx, match, agent, pageURL)
	e.logger.Debug(ctx, EventIntentHandled, map[string]interface{}{
		"intent":   string(match.Intent),
		"page_url": pageURL,
	})
	return reply, true
}

func (e *Engine) handle(ctx context.Context, m *Match, agent AgentContext, pageURL string) string {
	p := m.Params
	switch m.Intent {
	case Click:
		if p[ParamButtonText] == "" {
			return clickPrompt
		}
		return e.automator.ClickButton(ctx, pageURL, p[ParamButtonText]).Message

	case Register:
		if p[ParamEmail] == "" {
			return registerPrompt
		}
		return e.automator.RegisterUser(ctx, pageURL, Registration{
			Email:        p[ParamEmail],
			Password:     e.password(),
			Name:         p[ParamName],
			SubmitLabels: e.detector.rules.Register.SubmitLabels,
		}).Message

	case Navigate:
		target := p[ParamTargetPage]
		return e.automator.NavigateTo(ctx, pageURL, target, e.detector.rules.Navigate.Labels(target)).Message

	case Ticket:
		return fmt.Sprintf("Заявка #T%d успешно создана. Мы свяжемся с вами в ближайшее время.", e.now().UnixMilli())

	case Knowledge:
		return SearchKnowledge(p[ParamQuery], agent.KnowledgeBase)

	case Subscribe:
		if p[ParamEmail] == "" {
			return subscribePrompt
		}
		return fmt.Sprintf("Спасибо! Вы подписаны на обновления по адресу %s", p[ParamEmail])

	case Demo:
		if p[ParamEmail] == "" {
			return demoPrompt
		}
		return fmt.Sprintf("Отлично! Заявка на демо #M%d принята. Мы свяжемся с вами по email %s для уточнения времени.",
			e.now().UnixMilli(), p[ParamEmail])

	case Contacts:
		return contactsReply
	}
	return ""
}

// SearchKnowledge returns up to three knowledge base lines that contain any
// word of query, compared case-insensitively.
func SearchKnowledge(query, knowledgeBase string) string {
	if knowledgeBase == "" {
		return knowledgeUnavailable
	}

	keywords := strings.Fields(strings.ToLower(query))
	var found []string
	for _, line := range strings.Split(knowledgeBase, "\n") {
		lower := strings.ToLower(line)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				found = append(found, line)
				break
			}
		}
		if len(found) == knowledgeMaxLines {
			break
		}
	}

	if len(found) == 0 {
		return knowledgeEmpty
	}
	return "Найденная информация:\n" + strings.Join(found, "\n")
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GeneratePassword returns a throwaway password of the form Bloop + six
// lowercase letters or digits + "!".
func GeneratePassword() string {
	var b strings.Builder
	b.WriteString("Bloop")
	for i := 0; i < 6; i++ {
		b.WriteByte(passwordAlphabet[rand.IntN(len(passwordAlphabet))])
	}
	b.WriteString("!")
	return b.String()
}
