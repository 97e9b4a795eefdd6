package automation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hairizuanbinnoorazman/pageagent/browser"
	"github.com/hairizuanbinnoorazman/pageagent/executor"
	"github.com/hairizuanbinnoorazman/pageagent/intent"
	"github.com/hairizuanbinnoorazman/pageagent/resolver"
)

var _ intent.Automator = (*Service)(nil)

// Selectors tried for each registration field, in order.
var (
	emailSelectors = []string{
		`input[type="email"]`,
		`input[name="email"]`,
		`input[placeholder*="email"]`,
		`input[placeholder*="Email"]`,
	}
	passwordSelectors = []string{
		`input[type="password"]`,
		`input[name="password"]`,
		`input[placeholder*="password"]`,
		`input[placeholder*="Password"]`,
		`input[placeholder*="пароль"]`,
	}
	nameSelectors = []string{
		`input[name="name"]`,
		`input[placeholder*="name"]`,
		`input[placeholder*="Name"]`,
		`input[placeholder*="имя"]`,
	}
)

// ClickButton finds buttonText on pageURL and clicks it. When the exact text
// is not found, case and whitespace variants are tried. When the click
// itself fails, one more click without waiting for navigation is attempted.
func (s *Service) ClickButton(ctx context.Context, pageURL, buttonText string) executor.ActionResult {
	start := s.now()
	technical := executor.ActionResult{
		Message: fmt.Sprintf("Техническая ошибка при нажатии кнопки \"%s\". Попробуйте еще раз или укажите кнопку по-другому.", buttonText),
	}
	if err := ValidateURL(pageURL); err != nil {
		return s.actionDone(ctx, "click_button", start, technical, err)
	}

	var result executor.ActionResult
	err := s.browser.WithSession(ctx, pageURL, browser.SessionOptions{}, func(sess *browser.Session) error {
		var (
			match *resolver.ElementMatch
			err   error
		)
		for _, candidate := range textVariants(buttonText) {
			match, err = s.resolver.Resolve(ctx, sess.Page, candidate)
			if err == nil || !resolver.IsNotFound(err) {
				break
			}
		}
		if err != nil {
			if resolver.IsNotFound(err) {
				result = executor.ActionResult{
					Message: fmt.Sprintf("Кнопка \"%s\" не найдена на странице. Возможно, она называется по-другому или не видна. Доступные кнопки можно увидеть через анализ страницы.", buttonText),
				}
				return nil
			}
			return err
		}

		clicked := s.executor.Click(ctx, sess.Page, match, executor.ClickOptions{
			WaitForNavigation: true,
			Timeout:           sess.Timeouts.Navigation,
		})
		if clicked.Success {
			result = executor.ActionResult{
				Success: true,
				Message: withURL(fmt.Sprintf("✅ Кнопка \"%s\" успешно нажата!", buttonText), "Перешли на", clicked.NewURL),
				NewURL:  clicked.NewURL,
			}
			return nil
		}

		simple := s.simpleClick(ctx, sess, buttonText)
		if simple.Success {
			result = executor.ActionResult{
				Success: true,
				Message: withURL(fmt.Sprintf("✅ Кнопка \"%s\" нажата (простой режим)!", buttonText), "Текущая страница", simple.NewURL),
				NewURL:  simple.NewURL,
			}
			return nil
		}

		result = executor.ActionResult{
			Message: fmt.Sprintf("Не удалось нажать кнопку \"%s\": %s", buttonText, clicked.Message),
		}
		return nil
	})
	if err != nil {
		return s.actionDone(ctx, "click_button", start, technical, err)
	}
	return s.actionDone(ctx, "click_button", start, result, nil)
}

// simpleClick re-resolves text on the current page and clicks without
// waiting for navigation.
func (s *Service) simpleClick(ctx context.Context, sess *browser.Session, text string) executor.ActionResult {
	match, err := s.resolver.Resolve(ctx, sess.Page, text)
	if err != nil {
		return executor.ActionResult{Message: err.Error()}
	}
	return s.executor.Click(ctx, sess.Page, match, executor.ClickOptions{})
}

// RegisterUser fills the sign-up form on pageURL and clicks the first submit
// label that can be found. A form that was filled but not submitted is
// still a success, with a reply asking the visitor to finish.
func (s *Service) RegisterUser(ctx context.Context, pageURL string, reg intent.Registration) executor.ActionResult {
	start := s.now()
	technical := executor.ActionResult{Message: "Техническая ошибка при регистрации"}
	if err := ValidateURL(pageURL); err != nil {
		return s.actionDone(ctx, "register", start, technical, err)
	}
	if reg.Password == "" {
		reg.Password = intent.GeneratePassword()
	}

	var result executor.ActionResult
	err := s.browser.WithSession(ctx, pageURL, browser.SessionOptions{}, func(sess *browser.Session) error {
		filled := s.executor.Fill(ctx, sess.Page, registrationFields(reg), executor.FillOptions{})
		if !filled.Success {
			result = executor.ActionResult{
				Message: fmt.Sprintf("Не удалось заполнить форму регистрации: %s", filled.Message),
			}
			return nil
		}

		for _, label := range reg.SubmitLabels {
			match, err := s.resolver.Resolve(ctx, sess.Page, label)
			if err != nil {
				if resolver.IsNotFound(err) {
					continue
				}
				return err
			}
			clicked := s.executor.Click(ctx, sess.Page, match, executor.ClickOptions{
				WaitForNavigation: true,
				Timeout:           sess.Timeouts.Navigation,
			})
			if clicked.Success {
				result = executor.ActionResult{
					Success: true,
					Message: withURL(fmt.Sprintf("✅ Регистрация выполнена! Email: %s, Пароль: %s.", reg.Email, reg.Password), "Текущая страница", clicked.NewURL),
					NewURL:  clicked.NewURL,
				}
				return nil
			}
		}

		result = executor.ActionResult{
			Success: true,
			Message: fmt.Sprintf("✅ Форма регистрации заполнена! Email: %s, Пароль: %s. Нажмите \"Зарегистрироваться\" для завершения.", reg.Email, reg.Password),
		}
		return nil
	})
	if err != nil {
		return s.actionDone(ctx, "register", start, technical, err)
	}
	return s.actionDone(ctx, "register", start, result, nil)
}

func registrationFields(reg intent.Registration) []executor.Field {
	fields := make([]executor.Field, 0, len(emailSelectors)+len(passwordSelectors)+len(nameSelectors))
	for _, sel := range emailSelectors {
		fields = append(fields, executor.Field{Selector: sel, Value: reg.Email})
	}
	for _, sel := range passwordSelectors {
		fields = append(fields, executor.Field{Selector: sel, Value: reg.Password})
	}
	if reg.Name != "" {
		for _, sel := range nameSelectors {
			fields = append(fields, executor.Field{Selector: sel, Value: reg.Name})
		}
	}
	return fields
}

// NavigateTo clicks the first of labels found on pageURL.
func (s *Service) NavigateTo(ctx context.Context, pageURL, targetPage string, labels []string) executor.ActionResult {
	start := s.now()
	technical := executor.ActionResult{Message: "Техническая ошибка при навигации"}
	if err := ValidateURL(pageURL); err != nil {
		return s.actionDone(ctx, "navigate", start, technical, err)
	}
	if len(labels) == 0 {
		labels = []string{targetPage}
	}

	result := executor.ActionResult{
		Message: fmt.Sprintf("Не удалось найти способ перейти на страницу \"%s\"", targetPage),
	}
	err := s.browser.WithSession(ctx, pageURL, browser.SessionOptions{}, func(sess *browser.Session) error {
		for _, label := range labels {
			match, err := s.resolver.Resolve(ctx, sess.Page, label)
			if err != nil {
				if resolver.IsNotFound(err) {
					continue
				}
				return err
			}
			clicked := s.executor.Click(ctx, sess.Page, match, executor.ClickOptions{
				WaitForNavigation: true,
				Timeout:           sess.Timeouts.Navigation,
			})
			if !clicked.Success {
				continue
			}
			current := clicked.NewURL
			if current == "" {
				current = sess.URL()
			}
			result = executor.ActionResult{
				Success: true,
				Message: fmt.Sprintf("✅ Успешно перешли на страницу \"%s\"! Текущий URL: %s", targetPage, current),
				NewURL:  clicked.NewURL,
			}
			return nil
		}
		return nil
	})
	if err != nil {
		return s.actionDone(ctx, "navigate", start, technical, err)
	}
	return s.actionDone(ctx, "navigate", start, result, nil)
}

func (s *Service) actionDone(ctx context.Context, action string, start time.Time, result executor.ActionResult, err error) executor.ActionResult {
	s.metrics.Action(action, result.Success, time.Since(start))
	fields := map[string]interface{}{
		"action":  action,
		"success": result.Success,
	}
	if result.NewURL != "" {
		fields["new_url"] = result.NewURL
	}
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Warn(ctx, EventActionCompleted, fields)
		return result
	}
	s.logger.Info(ctx, EventActionCompleted, fields)
	return result
}

// textVariants returns text followed by its lower case, upper case,
// capitalised and whitespace-collapsed forms, without duplicates.
func textVariants(text string) []string {
	candidates := []string{
		text,
		strings.ToLower(text),
		strings.ToUpper(text),
		capitalize(text),
		strings.Join(strings.Fields(text), " "),
	}
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func withURL(msg, label, u string) string {
	if u == "" {
		return msg
	}
	return fmt.Sprintf("%s %s: %s", msg, label, u)
}
