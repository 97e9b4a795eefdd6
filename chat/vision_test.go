package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/automation"
	"github.com/hairizuanbinnoorazman/pageagent/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestService_AnalyzeWithVision(t *testing.T) {
	f := newFixture(t)
	f.analyzer.analysis = pageAnalysis(testJPEG(t, 2000, 1000))
	f.completer.reply = "Это страница корзины."

	report, err := f.svc.AnalyzeWithVision(context.Background(), "https://shop.example/cart")
	require.NoError(t, err)
	assert.Equal(t, "Это страница корзины.", report.Visual)
	assert.Equal(t, "Корзина", report.Data.Title)
	assert.NotEmpty(t, report.Description)

	req := f.completer.last(t)
	assert.Equal(t, visionSystemPrompt, req.System)
	assert.Contains(t, req.Prompt, "Заголовок: Корзина")
	assert.Contains(t, req.Prompt, "Основные кнопки: Оформить заказ")
	assert.Contains(t, req.Prompt, "Формы: 1 шт.")
	assert.Equal(t, visionMaxTokens, req.MaxTokens)
	assert.Equal(t, visionTitle, req.Title)

	raw, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, defaultVisionMaxWidth, cfg.Width)
}

func TestService_AnalyzeWithVision_Errors(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		f := newFixture(t)
		f.analyzer.err = automation.ErrInvalidURL
		_, err := f.svc.AnalyzeWithVision(context.Background(), "ftp://x")
		assert.ErrorIs(t, err, automation.ErrInvalidURL)
	})

	t.Run("completion failure", func(t *testing.T) {
		f := newFixture(t)
		f.analyzer.analysis = pageAnalysis("")
		f.completer.err = llm.ErrEmptyResponse
		_, err := f.svc.AnalyzeWithVision(context.Background(), "https://shop.example/cart")
		assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	})

	t.Run("undecodable screenshot goes text only", func(t *testing.T) {
		f := newFixture(t)
		f.analyzer.analysis = pageAnalysis(base64.StdEncoding.EncodeToString([]byte("not a jpeg")))
		_, err := f.svc.AnalyzeWithVision(context.Background(), "https://shop.example/cart")
		require.NoError(t, err)
		assert.Empty(t, f.completer.last(t).ImageBase64)
	})
}

func TestService_ContextualAnswer(t *testing.T) {
	t.Run("with agent", func(t *testing.T) {
		f := newFixture(t)
		f.analyzer.analysis = pageAnalysis("")
		f.completer.reply = "Нажмите «Оформить заказ»."

		answer, err := f.svc.ContextualAnswer(context.Background(), ContextRequest{
			URL:       "https://shop.example/cart",
			Question:  "Как оплатить?",
			AgentID:   f.agent.ID,
			SessionID: "s1",
		})
		require.NoError(t, err)
		assert.Equal(t, "Нажмите «Оформить заказ».", answer.Response)
		assert.Equal(t, PageSummary{Title: "Корзина", URL: "https://shop.example/cart", HasButtons: true, HasForms: true}, answer.PageContext)
		assert.Contains(t, f.completer.last(t).System, "ТехноМир")
		assert.Empty(t, f.completer.last(t).History)
	})

	t.Run("generic assistant", func(t *testing.T) {
		f := newFixture(t)
		f.analyzer.analysis = pageAnalysis("")

		_, err := f.svc.ContextualAnswer(context.Background(), ContextRequest{URL: "https://shop.example/cart", Question: "Что тут?"})
		require.NoError(t, err)
		assert.Contains(t, f.completer.last(t).System, defaultAssistantName)
	})

	t.Run("intent wins", func(t *testing.T) {
		f := newFixture(t)
		f.analyzer.analysis = pageAnalysis("")
		f.intents.reply = "готово"

		answer, err := f.svc.ContextualAnswer(context.Background(), ContextRequest{URL: "https://shop.example/cart", Question: "нажми оформить"})
		require.NoError(t, err)
		assert.Equal(t, "готово", answer.Response)
		assert.Equal(t, "Корзина", f.intents.page.Title)
		assert.Zero(t, f.completer.calls())
	})

	t.Run("completion failure apologises", func(t *testing.T) {
		f := newFixture(t)
		f.analyzer.analysis = pageAnalysis("")
		f.completer.err = errors.New("boom")

		answer, err := f.svc.ContextualAnswer(context.Background(), ContextRequest{URL: "https://shop.example/cart", Question: "?"})
		require.NoError(t, err)
		assert.Equal(t, llm.ApologyGeneric, answer.Response)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ContextualAnswer(context.Background(), ContextRequest{URL: "https://shop.example"})
		assert.ErrorIs(t, err, ErrMissingQuestion)

		_, err = f.svc.ContextualAnswer(context.Background(), ContextRequest{URL: "https://shop.example", Question: "q", AgentID: uuid.New()})
		assert.ErrorIs(t, err, agent.ErrAgentNotFound)
	})
}
