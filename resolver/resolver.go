package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/metrics"
)

// ErrNotFound is returned when no tier located the element.
var ErrNotFound = errors.New("element not found")

// IsNotFound reports whether err means the element is missing rather than
// a technical failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

const (
	StrategyCSS        = "css"
	StrategyTextSearch = "text-search"
	StrategyXPath      = "xpath"
)

const (
	EventTierSucceeded = "resolver tier succeeded"
	EventTierFailed    = "resolver tier failed"
	EventXPathInvalid  = "resolver xpath query failed"
)

const defaultCSSWait = 5 * time.Second

// ElementMatch identifies one element on an open page.
type ElementMatch struct {
	// Selector matches exactly the resolved element at resolution time.
	Selector    string `json:"selector"`
	MatchedText string `json:"matchedText"`
	Strategy    string `json:"strategy"`
	// Index is the 0-based position among nodes sharing the base selector,
	// or -1 when the base selector was already unique.
	Index int `json:"index"`
	// Marker is the MarkerAttribute value placed on the node, if any.
	Marker string `json:"marker,omitempty"`
}

type Config struct {
	// CSSWait bounds how long the CSS tier waits for searchText to appear.
	CSSWait time.Duration
}

// Resolver locates elements from free-text descriptions. It holds no page
// state and is safe for concurrent use across pages.
type Resolver struct {
	cssWait time.Duration
	metrics *metrics.Metrics
	logger  logger.Logger
}

func New(cfg Config, m *metrics.Metrics, log logger.Logger) *Resolver {
	if cfg.CSSWait <= 0 {
		cfg.CSSWait = defaultCSSWait
	}
	return &Resolver{
		cssWait: cfg.CSSWait,
		metrics: m,
		logger:  log.WithField("component", "resolver"),
	}
}

// Resolve finds the element described by searchText. The tiers run in
// order: searchText as a CSS selector, an in-page text search over
// clickable elements, then case-folded XPath queries.
func (r *Resolver) Resolve(ctx context.Context, page *rod.Page, searchText string) (*ElementMatch, error) {
	searchText = strings.TrimSpace(searchText)
	if searchText == "" {
		return nil, fmt.Errorf("%w: empty search text", ErrNotFound)
	}
	page = page.Context(ctx)

	tiers := []struct {
		strategy string
		run      func(context.Context, *rod.Page, string) (*ElementMatch, error)
	}{
		{StrategyCSS, r.byCSS},
		{StrategyTextSearch, r.byText},
		{StrategyXPath, r.byXPath},
	}

	for _, tier := range tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		match, err := tier.run(ctx, page, searchText)
		if err == nil {
			r.metrics.ResolverTier(tier.strategy, true)
			r.logger.Debug(ctx, EventTierSucceeded, map[string]interface{}{
				"strategy": tier.strategy,
				"search":   searchText,
				"selector": match.Selector,
			})
			return match, nil
		}

		r.metrics.ResolverTier(tier.strategy, false)
		r.logger.Debug(ctx, EventTierFailed, map[string]interface{}{
			"strategy": tier.strategy,
			"search":   searchText,
			"error":    err.Error(),
		})
		if !IsNotFound(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNotFound, searchText)
}

func (r *Resolver) byCSS(ctx context.Context, page *rod.Page, searchText string) (*ElementMatch, error) {
	p := page.Timeout(r.cssWait)
	el, err := p.Element(searchText)
	if err != nil {
		p.CancelTimeout()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: no node matches selector: %v", ErrNotFound, err)
	}
	el = el.CancelTimeout()

	return r.describe(el, StrategyCSS, "")
}

type textSearchResult struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
}

func (r *Resolver) byText(ctx context.Context, page *rod.Page, searchText string) (*ElementMatch, error) {
	marker := uuid.NewString()
	res, err := page.Eval(textSearchJS, searchText, marker, MarkerAttribute, ClickableSelector)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	var found textSearchResult
	if err := res.Value.Unmarshal(&found); err != nil {
		return nil, fmt.Errorf("decode text search result: %w", err)
	}
	if !found.Found {
		return nil, fmt.Errorf("%w: no clickable element contains text", ErrNotFound)
	}

	el, err := page.Element(markerSelector(marker))
	if err != nil {
		return nil, fmt.Errorf("select marked element: %w", err)
	}

	match, err := r.describe(el, StrategyTextSearch, marker)
	if err != nil {
		return nil, err
	}
	match.MatchedText = found.Text
	return match, nil
}

func (r *Resolver) byXPath(ctx context.Context, page *rod.Page, searchText string) (*ElementMatch, error) {
	for _, query := range XPathQueries(searchText) {
		els, err := page.ElementsX(query)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.logger.Warn(ctx, EventXPathInvalid, map[string]interface{}{
				"query": query,
				"error": err.Error(),
			})
			continue
		}
		if len(els) == 0 {
			continue
		}
		return r.describe(els[0], StrategyXPath, "")
	}
	return nil, fmt.Errorf("%w: no xpath query matched", ErrNotFound)
}

type builtSelector struct {
	Selector string `json:"selector"`
	Index    int    `json:"index"`
	Marked   bool   `json:"marked"`
}

// describe builds the unique selector for el. marker is reused when the
// element was already tagged.
func (r *Resolver) describe(el *rod.Element, strategy, marker string) (*ElementMatch, error) {
	if marker == "" {
		marker = uuid.NewString()
	}
	res, err := el.Eval(buildSelectorJS, marker, MarkerAttribute)
	if err != nil {
		return nil, fmt.Errorf("build selector: %w", err)
	}

	var built builtSelector
	if err := res.Value.Unmarshal(&built); err != nil {
		return nil, fmt.Errorf("decode selector: %w", err)
	}

	match := &ElementMatch{
		Selector: built.Selector,
		Strategy: strategy,
		Index:    built.Index,
	}
	if built.Marked || strategy == StrategyTextSearch {
		match.Marker = marker
	}
	if strategy != StrategyTextSearch {
		if text, err := el.Text(); err == nil {
			match.MatchedText = strings.TrimSpace(text)
		}
	}
	return match, nil
}

// Locate returns the element a match refers to on page.
func Locate(page *rod.Page, match *ElementMatch) (*rod.Element, error) {
	els, err := page.Elements(match.Selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", match.Selector, err)
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %q no longer matches", ErrNotFound, match.Selector)
	}
	return els[0], nil
}

func markerSelector(marker string) string {
	return fmt.Sprintf(`[%s="%s"]`, MarkerAttribute, marker)
}
