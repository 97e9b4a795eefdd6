package resolver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resolverFixture = `<html><body>
<nav><a href="/" class="nav-link">Главная</a><a href="/login" class="nav-link">Войти</a></nav>
<button id="go">Начать работу</button>
<section id="checkout">
	<button class="primary">Submit</button>
	<button class="primary">Submit</button>
	<button class="primary">Submit</button>
</section>
<div class="btn-primary">Оплатить заказ</div>
<span role="button" aria-label="Закрыть окно"></span>
<input type="submit" value="Отправить">
</body></html>`

func newTestResolver(log logger.Logger) *Resolver {
	return New(Config{CSSWait: 100 * time.Millisecond}, nil, log)
}

func countMatches(t *testing.T, page *rod.Page, selector string) int {
	t.Helper()
	res, err := page.Eval(`s => document.querySelectorAll(s).length`, selector)
	require.NoError(t, err)
	return res.Value.Int()
}

func sameNode(t *testing.T, page *rod.Page, a, b string) bool {
	t.Helper()
	res, err := page.Eval(`(a, b) => document.querySelector(a) === document.querySelector(b)`, a, b)
	require.NoError(t, err)
	return res.Value.Bool()
}

func TestResolver_Resolve_Live(t *testing.T) {
	page := testutil.LivePage(t, resolverFixture)
	ctx := context.Background()

	tests := []struct {
		name         string
		search       string
		wantStrategy string
		wantText     string
	}{
		{"css selector as given", "#go", StrategyCSS, "Начать работу"},
		{"text search on button", "начать работу", StrategyTextSearch, "Начать работу"},
		{"text search on link", "Войти", StrategyTextSearch, "Войти"},
		{"text search by value", "отправить", StrategyTextSearch, "Отправить"},
		{"text search by aria label", "закрыть", StrategyTextSearch, "Закрыть окно"},
		{"xpath class contains btn", "ОПЛАТИТЬ", StrategyXPath, "Оплатить заказ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewTestLogger()
			r := newTestResolver(log)

			match, err := r.Resolve(ctx, page, tt.search)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStrategy, match.Strategy)
			assert.Equal(t, tt.wantText, match.MatchedText)
			assert.Equal(t, 1, countMatches(t, page, match.Selector), match.Selector)
			assert.Equal(t, 1, log.Count(EventTierSucceeded))
		})
	}
}

func TestResolver_Ambiguous_Live(t *testing.T) {
	page := testutil.LivePage(t, resolverFixture)
	r := newTestResolver(logger.NewTestLogger())

	match, err := r.Resolve(context.Background(), page, "Submit")
	require.NoError(t, err)

	assert.Equal(t, StrategyTextSearch, match.Strategy)
	assert.Contains(t, match.Selector, ":nth-of-type(")
	assert.Equal(t, 0, match.Index)
	assert.Equal(t, 1, countMatches(t, page, match.Selector))
	assert.NotEmpty(t, match.Marker)
	assert.True(t, sameNode(t, page, match.Selector, markerSelector(match.Marker)))
}

func TestResolver_Idempotent_Live(t *testing.T) {
	page := testutil.LivePage(t, resolverFixture)
	r := newTestResolver(logger.NewTestLogger())
	ctx := context.Background()

	first, err := r.Resolve(ctx, page, "Войти")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, page, "Войти")
	require.NoError(t, err)

	assert.True(t, sameNode(t, page, first.Selector, second.Selector))

	viaXPath, err := r.byXPath(ctx, page, "Войти")
	require.NoError(t, err)
	assert.True(t, sameNode(t, page, first.Selector, viaXPath.Selector))
}

func TestResolver_NotFound_Live(t *testing.T) {
	page := testutil.LivePage(t, resolverFixture)
	log := logger.NewTestLogger()
	r := newTestResolver(log)

	_, err := r.Resolve(context.Background(), page, "Удалить аккаунт")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 3, log.Count(EventTierFailed))
}

func TestResolver_EmptySearch(t *testing.T) {
	r := newTestResolver(logger.NewTestLogger())

	_, err := r.Resolve(context.Background(), nil, "   ")
	assert.True(t, IsNotFound(err))
}

func TestLocate_Live(t *testing.T) {
	page := testutil.LivePage(t, resolverFixture)
	r := newTestResolver(logger.NewTestLogger())

	match, err := r.Resolve(context.Background(), page, "Начать")
	require.NoError(t, err)

	el, err := Locate(page, match)
	require.NoError(t, err)
	text, err := el.Text()
	require.NoError(t, err)
	assert.Equal(t, "Начать работу", strings.TrimSpace(text))

	_, err = Locate(page, &ElementMatch{Selector: "#missing"})
	assert.True(t, IsNotFound(err))
}
