package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/hairizuanbinnoorazman/pageagent/browser"
	"github.com/hairizuanbinnoorazman/pageagent/executor"
	"github.com/hairizuanbinnoorazman/pageagent/resolver"
)

const (
	ActionClick      = "click"
	ActionFillForm   = "fill_form"
	ActionFindButton = "find_button"
)

// Request is one primitive automation call.
type Request struct {
	Action string `json:"action"`
	URL    string `json:"url"`
	Params Params `json:"params"`
}

type Params struct {
	ButtonText string            `json:"buttonText,omitempty"`
	FormData   map[string]string `json:"formData,omitempty"`
	// SubmitSelector is clicked after fill_form when set.
	SubmitSelector string `json:"submitSelector,omitempty"`
	// WaitForNavigation defaults to true for click.
	WaitForNavigation *bool `json:"waitForNavigation,omitempty"`
}

// Result is an ActionResult plus the resolved element, when there was one.
type Result struct {
	executor.ActionResult
	Match *resolver.ElementMatch `json:"match,omitempty"`
}

func (r Request) validate() error {
	if err := ValidateURL(r.URL); err != nil {
		return err
	}
	switch r.Action {
	case ActionClick, ActionFindButton:
		if r.Params.ButtonText == "" {
			return fmt.Errorf("%w: buttonText is required for %s action", ErrMissingParameter, r.Action)
		}
	case ActionFillForm:
		if len(r.Params.FormData) == 0 {
			return fmt.Errorf("%w: formData is required for fill_form action", ErrMissingParameter)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAction, r.Action)
	}
	return nil
}

// Automate runs one primitive in its own browser session. Invalid input is
// rejected before a browser is launched. A missing element is a negative
// Result, not an error; errors are reserved for input and environment
// failures such as browser.ErrLaunchFailed.
func (s *Service) Automate(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	start := s.now()

	var res *Result
	err := s.browser.WithSession(ctx, req.URL, browser.SessionOptions{}, func(sess *browser.Session) error {
		switch req.Action {
		case ActionFindButton:
			res = s.findButton(ctx, sess, req.Params.ButtonText)
		case ActionClick:
			res = s.click(ctx, sess, req.Params)
		case ActionFillForm:
			fields := executor.FieldsFromMap(req.Params.FormData)
			res = &Result{ActionResult: s.executor.Fill(ctx, sess.Page, fields, executor.FillOptions{
				SubmitSelector: req.Params.SubmitSelector,
				Timeout:        sess.Timeouts.Navigation,
			})}
		}
		return nil
	})
	if err != nil {
		s.metrics.Action(req.Action, false, time.Since(start))
		return nil, err
	}

	s.logger.Info(ctx, EventActionCompleted, map[string]interface{}{
		"action":  req.Action,
		"url":     req.URL,
		"success": res.Success,
	})
	return res, nil
}

func (s *Service) findButton(ctx context.Context, sess *browser.Session, text string) *Result {
	start := s.now()
	match, err := s.resolver.Resolve(ctx, sess.Page, text)
	s.metrics.Action(ActionFindButton, err == nil, time.Since(start))
	switch {
	case err == nil:
		msg := fmt.Sprintf("Кнопка \"%s\" найдена", text)
		if match.Strategy == resolver.StrategyXPath {
			msg += " через XPath"
		}
		return &Result{ActionResult: executor.ActionResult{Success: true, Message: msg}, Match: match}
	case resolver.IsNotFound(err):
		return &Result{ActionResult: executor.ActionResult{
			Message: fmt.Sprintf("Кнопка \"%s\" не найдена на странице", text),
		}}
	default:
		return &Result{ActionResult: executor.ActionResult{
			Message: fmt.Sprintf("Ошибка поиска кнопки: %v", err),
		}}
	}
}

func (s *Service) click(ctx context.Context, sess *browser.Session, p Params) *Result {
	found := s.findButton(ctx, sess, p.ButtonText)
	if !found.Success {
		return found
	}

	wait := p.WaitForNavigation == nil || *p.WaitForNavigation
	result := s.executor.Click(ctx, sess.Page, found.Match, executor.ClickOptions{
		WaitForNavigation: wait,
		Timeout:           sess.Timeouts.Navigation,
	})
	return &Result{ActionResult: result, Match: found.Match}
}
