package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	rules, err := DefaultRules()
	require.NoError(t, err)
	d, err := NewDetector(rules)
	require.NoError(t, err)
	return d
}

func TestDefaultRules(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)

	order := make([]Name, 0, len(rules.Rules))
	for _, r := range rules.Rules {
		order = append(order, r.Intent)
	}
	assert.Equal(t, []Name{Click, Register, Navigate, Ticket, Knowledge, Subscribe, Demo, Contacts}, order)
	assert.Equal(t, "Начать работу", rules.Click.Aliases["начать"])
	assert.Equal(t, []string{"Войти", "Login", "Sign In", "Вход"}, rules.Navigate.Labels("LOGIN"))
	assert.Equal(t, []string{"pricing"}, rules.Navigate.Labels("pricing"))
}

func TestLoadRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "rules: [unclosed"},
		{"no rules", "click:\n  verbs: [нажми]\n"},
		{"unknown intent", "rules:\n  - intent: dance\n    any: [танцуй]\n"},
		{"rule without keywords", "rules:\n  - intent: contacts\n"},
		{"bad destination", "rules:\n  - intent: contacts\n    any: [контакт]\nnavigate:\n  destinations:\n    - {keyword: вход}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidRules)
		})
	}
}

func TestNewDetector_BadNamePattern(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)
	rules.Register.NamePatterns = []string{"(unclosed"}

	_, err = NewDetector(rules)
	assert.ErrorIs(t, err, ErrInvalidRules)
}

func TestDetector_Detect(t *testing.T) {
	d := newTestDetector(t)

	tests := []struct {
		name       string
		message    string
		wantIntent Name
		wantParams map[string]string
	}{
		{
			name:       "click with canonical label",
			message:    "кликни Войти",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "Войти"},
		},
		{
			name:       "click alias expands short name",
			message:    "нажми начать",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "Начать работу"},
		},
		{
			name:       "click alias login",
			message:    "Нажми логин",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "Войти"},
		},
		{
			name:       "click strips fillers and quotes",
			message:    `нажми на кнопку "Попробовать"`,
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "Попробовать бесплатно"},
		},
		{
			name:       "click polite form",
			message:    "нажмите войти",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "Войти"},
		},
		{
			name:       "click polite form of kliknut",
			message:    "Кликните на кнопку регистрация",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "Регистрация"},
		},
		{
			name:       "click strips guillemets",
			message:    "нажми на кнопку «Войти»",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "Войти"},
		},
		{
			name:       "click guillemets end the target",
			message:    "пожалуйста, нажмите «Оформить заказ» внизу",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "Оформить заказ"},
		},
		{
			name:       "click keeps multi word target",
			message:    "кликнуть Оформить заказ\nспасибо",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "Оформить заказ"},
		},
		{
			name:       "click filler prefix inside a word is kept",
			message:    "нажми надпись",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: "надпись"},
		},
		{
			name:       "click without target asks for clarification",
			message:    "нажми на кнопку",
			wantIntent: Click,
			wantParams: map[string]string{ParamButtonText: ""},
		},
		{
			name:       "register with email",
			message:    "зарегистрируй меня на new@user.com",
			wantIntent: Register,
			wantParams: map[string]string{ParamEmail: "new@user.com", ParamName: ""},
		},
		{
			name:       "register with email and name",
			message:    "Регистрация: меня зовут Анна, почта anna@example.org",
			wantIntent: Register,
			wantParams: map[string]string{ParamEmail: "anna@example.org", ParamName: "Анна"},
		},
		{
			name:       "register without email address",
			message:    "хочу зарегистрироваться, какой email нужен?",
			wantIntent: Register,
			wantParams: map[string]string{ParamEmail: "", ParamName: ""},
		},
		{
			name:       "navigate to login",
			message:    "перейди на страницу входа",
			wantIntent: Navigate,
			wantParams: map[string]string{ParamTargetPage: "login"},
		},
		{
			name:       "navigate to settings",
			message:    "открой настройки",
			wantIntent: Navigate,
			wantParams: map[string]string{ParamTargetPage: "settings"},
		},
		{
			name:       "ticket",
			message:    "хочу оставить заявку, пишите на me@corp.io",
			wantIntent: Ticket,
			wantParams: map[string]string{ParamEmail: "me@corp.io", ParamMessage: "хочу оставить заявку, пишите на me@corp.io"},
		},
		{
			name:       "ticket via all keywords",
			message:    "нужна помощь, где заявка?",
			wantIntent: Ticket,
			wantParams: map[string]string{ParamEmail: "", ParamMessage: "нужна помощь, где заявка?"},
		},
		{
			name:       "knowledge search",
			message:    "расскажи о тарифах",
			wantIntent: Knowledge,
			wantParams: map[string]string{ParamQuery: "расскажи о тарифах"},
		},
		{
			name:       "subscribe",
			message:    "хочу подписаться: news@site.com",
			wantIntent: Subscribe,
			wantParams: map[string]string{ParamEmail: "news@site.com"},
		},
		{
			name:       "demo",
			message:    "Запишите на демо",
			wantIntent: Demo,
			wantParams: map[string]string{ParamEmail: "", ParamMessage: "Запишите на демо"},
		},
		{
			name:       "contacts",
			message:    "Какой у вас телефон?",
			wantIntent: Contacts,
			wantParams: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := d.Detect(tt.message)
			require.NotNil(t, m)
			assert.Equal(t, tt.wantIntent, m.Intent)
			assert.Equal(t, tt.wantParams, m.Params)
		})
	}
}

func TestDetector_ClickPrecedesRegister(t *testing.T) {
	d := newTestDetector(t)

	m := d.Detect("нажми войти и зарегистрируй меня на test@x.com")
	require.NotNil(t, m)
	assert.Equal(t, Click, m.Intent)
	assert.Equal(t, "войти и зарегистрируй меня на test@x.com", m.Params[ParamButtonText])
}

func TestDetector_NavigateWithoutDestinationFallsThrough(t *testing.T) {
	d := newTestDetector(t)

	m := d.Detect("открой что такое тариф")
	require.NotNil(t, m)
	assert.Equal(t, Knowledge, m.Intent)

	assert.Nil(t, d.Detect("открой окно"))
}

func TestDetector_NoMatch(t *testing.T) {
	d := newTestDetector(t)

	for _, msg := range []string{"", "Привет!", "Сколько стоит подписка на год?"} {
		assert.Nil(t, d.Detect(msg), msg)
	}
}
