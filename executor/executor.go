package executor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/hairizuanbinnoorazman/pageagent/browser"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/hairizuanbinnoorazman/pageagent/metrics"
	"github.com/hairizuanbinnoorazman/pageagent/resolver"
)

const (
	EventClicked           = "element clicked"
	EventClickFailed       = "element click failed"
	EventNavigationSkipped = "click did not navigate"
	EventFieldFilled       = "form field filled"
	EventFieldSkipped      = "form field skipped"
	EventFormFilled        = "form filled"
	EventFormFailed        = "form fill failed"
)

// ActionResult is returned by every automation primitive. Message is always
// set; NewURL is set only when the page location changed.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	NewURL  string `json:"newUrl,omitempty"`
}

type Config struct {
	// ClickSettle is the pause between scrolling an element into view and
	// clicking it.
	ClickSettle time.Duration
	// AfterClick is the pause after a click that does not wait for navigation.
	AfterClick time.Duration
	// NavigationGrace is the pause after a click whose navigation wait
	// timed out.
	NavigationGrace time.Duration
	// NavigationTimeout bounds the wait for a click to navigate.
	NavigationTimeout time.Duration
	// FieldWait bounds the wait for each form field.
	FieldWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		ClickSettle:       time.Second,
		AfterClick:        time.Second,
		NavigationGrace:   2 * time.Second,
		NavigationTimeout: 30 * time.Second,
		FieldWait:         5 * time.Second,
	}
}

type ClickOptions struct {
	WaitForNavigation bool
	// Timeout overrides Config.NavigationTimeout when positive.
	Timeout time.Duration
}

// Field is one selector and the value to type into it.
type Field struct {
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

// FieldsFromMap orders a selector to value map by selector.
func FieldsFromMap(m map[string]string) []Field {
	fields := make([]Field, 0, len(m))
	for sel, v := range m {
		fields = append(fields, Field{Selector: sel, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Selector < fields[j].Selector
	})
	return fields
}

// Executor performs clicks and form input on an open page.
type Executor struct {
	cfg     Config
	metrics *metrics.Metrics
	logger  logger.Logger
}

func New(cfg Config, m *metrics.Metrics, log logger.Logger) *Executor {
	d := DefaultConfig()
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = d.NavigationTimeout
	}
	if cfg.FieldWait <= 0 {
		cfg.FieldWait = d.FieldWait
	}
	return &Executor{
		cfg:     cfg,
		metrics: m,
		logger:  log.WithField("component", "executor"),
	}
}

// Click scrolls the matched element into view, waits for it to settle and
// clicks it. When opts.WaitForNavigation is set a navigation timeout still
// counts as success, since not every click navigates.
func (e *Executor) Click(ctx context.Context, page *rod.Page, match *resolver.ElementMatch, opts ClickOptions) ActionResult {
	start := time.Now()
	page = page.Context(ctx)
	label := match.MatchedText
	if label == "" {
		label = match.Selector
	}
	before := currentURL(page)

	fail := func(err error) ActionResult {
		e.metrics.Action("click", false, time.Since(start))
		e.logger.Warn(ctx, EventClickFailed, map[string]interface{}{
			"selector": match.Selector,
			"error":    err.Error(),
		})
		return ActionResult{
			Message: fmt.Sprintf("Не удалось нажать на элемент \"%s\": %v", label, err),
		}
	}

	el, err := resolver.Locate(page, match)
	if err != nil {
		return fail(err)
	}
	if err := e.clickElement(ctx, page, el, opts); err != nil {
		return fail(err)
	}

	result := ActionResult{
		Success: true,
		Message: fmt.Sprintf("Элемент \"%s\" успешно нажат", label),
	}
	if after := currentURL(page); after != before {
		result.NewURL = after
	}

	e.metrics.Action("click", true, time.Since(start))
	e.logger.Info(ctx, EventClicked, map[string]interface{}{
		"selector": match.Selector,
		"strategy": match.Strategy,
		"new_url":  result.NewURL,
	})
	return result
}

func (e *Executor) clickElement(ctx context.Context, page *rod.Page, el *rod.Element, opts ClickOptions) error {
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	if err := browser.Pause(ctx, e.cfg.ClickSettle); err != nil {
		return err
	}

	if !opts.WaitForNavigation {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("click: %w", err)
		}
		return browser.Pause(ctx, e.cfg.AfterClick)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.cfg.NavigationTimeout
	}
	p := page.Timeout(timeout)
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.GetContext().Err() != nil {
		e.logger.Debug(ctx, EventNavigationSkipped, map[string]interface{}{
			"timeout": timeout.String(),
		})
		return browser.Pause(ctx, e.cfg.NavigationGrace)
	}
	return nil
}

// FillOptions controls the optional submit click after a form is filled.
type FillOptions struct {
	SubmitSelector string
	// Timeout bounds the navigation after the submit click; see ClickOptions.
	Timeout time.Duration
}

func (o FillOptions) submitClick() ClickOptions {
	return ClickOptions{WaitForNavigation: true, Timeout: o.Timeout}
}

// Fill types each value into its field, replacing existing content. A field
// that cannot be found or typed into is logged and skipped. When
// opts.SubmitSelector is set the submit element is clicked afterwards with
// the same navigation leniency as Click.
func (e *Executor) Fill(ctx context.Context, page *rod.Page, fields []Field, opts FillOptions) ActionResult {
	submitSelector := opts.SubmitSelector
	start := time.Now()
	page = page.Context(ctx)
	before := currentURL(page)

	filled := 0
	for _, f := range fields {
		if err := ctx.Err(); err != nil {
			return e.fillFailed(ctx, start, err)
		}
		if err := e.fillField(page, f); err != nil {
			e.logger.Warn(ctx, EventFieldSkipped, map[string]interface{}{
				"selector": f.Selector,
				"error":    err.Error(),
			})
			continue
		}
		filled++
		e.logger.Debug(ctx, EventFieldFilled, map[string]interface{}{
			"selector": f.Selector,
		})
	}

	if submitSelector != "" {
		p := page.Timeout(e.cfg.FieldWait)
		el, err := p.Element(submitSelector)
		p.CancelTimeout()
		if err != nil {
			return e.fillFailed(ctx, start, fmt.Errorf("submit element %q: %w", submitSelector, err))
		}
		el = el.Context(ctx)
		if err := e.clickElement(ctx, page, el, opts.submitClick()); err != nil {
			return e.fillFailed(ctx, start, err)
		}
	}

	msg := "Форма успешно заполнена"
	if submitSelector != "" {
		msg += " и отправлена"
	}
	result := ActionResult{Success: true, Message: msg}
	if after := currentURL(page); after != before {
		result.NewURL = after
	}

	e.metrics.Action("fill_form", true, time.Since(start))
	e.logger.Info(ctx, EventFormFilled, map[string]interface{}{
		"fields":    len(fields),
		"filled":    filled,
		"submitted": submitSelector != "",
		"new_url":   result.NewURL,
	})
	return result
}

func (e *Executor) fillField(page *rod.Page, f Field) error {
	p := page.Timeout(e.cfg.FieldWait)
	defer p.CancelTimeout()

	el, err := p.Element(f.Selector)
	if err != nil {
		return fmt.Errorf("wait for field: %w", err)
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select existing text: %w", err)
	}
	if err := el.Input(f.Value); err != nil {
		return fmt.Errorf("type value: %w", err)
	}
	return nil
}

func (e *Executor) fillFailed(ctx context.Context, start time.Time, err error) ActionResult {
	e.metrics.Action("fill_form", false, time.Since(start))
	e.logger.Warn(ctx, EventFormFailed, map[string]interface{}{
		"error": err.Error(),
	})
	return ActionResult{
		Message: fmt.Sprintf("Не удалось заполнить форму: %v", err),
	}
}

func currentURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}
