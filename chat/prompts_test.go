package chat

import (
	"strings"
	"testing"

	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/pagedata"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"control characters dropped", "Доставка\x00 бес\x07платно", 0, "Доставка бесплатно"},
		{"blank lines collapse", "a\n\n\n\n\nb", 0, "a\n\nb"},
		{"inline whitespace", "  a \t\t b  \r\n c ", 0, "a b\nc"},
		{"capped by runes", "абвгдеё", 3, "абв"},
		{"empty", "   ", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeText(tt.in, tt.limit))
		})
	}
}

func TestSystemPrompt(t *testing.T) {
	a := &agent.Agent{Name: "Shop", Description: "Магазин", KnowledgeBase: "FAQ\x00 line", ResponseStyle: agent.StyleFormal}
	p := systemPrompt(a)
	assert.True(t, strings.HasPrefix(p, `Ты - AI-ассистент для компании "Shop".`))
	assert.Contains(t, p, "Описание бизнеса: Магазин")
	assert.Contains(t, p, "Стиль общения: formal")
	assert.Contains(t, p, "База знаний компании:\nFAQ line")

	noKB := systemPrompt(&agent.Agent{Name: "Shop"})
	assert.NotContains(t, noKB, "База знаний")
	assert.Contains(t, noKB, "Стиль общения: helpful")
}

func TestContextualSystemPrompt(t *testing.T) {
	a := &agent.Agent{Name: "Shop", SystemPrompt: "Будь краток."}
	snap := &pagedata.Snapshot{URL: "https://shop.example", Title: "Главная"}

	p := contextualSystemPrompt(a, snap, "описание", false)
	assert.Contains(t, p, "Доступные кнопки: не определены")
	assert.Contains(t, p, "Заголовки: не определены")
	assert.Contains(t, p, "1. Предоставить общую информацию о странице")
	assert.Contains(t, p, "Будь краток.")

	withShot := contextualSystemPrompt(a, snap, "описание", true)
	assert.Contains(t, withShot, "1. Объяснить что находится на текущей странице")
}

func TestWithPageHint(t *testing.T) {
	assert.Equal(t, "q", withPageHint("q", "", "https://x"))
	assert.Equal(t, "q\n\nКонтекст: Пользователь находится на странице \"T\" (https://x)", withPageHint("q", "T", "https://x"))
}
