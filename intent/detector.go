package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Parameter keys set on a Match.
const (
	ParamButtonText = "buttonText"
	ParamEmail      = "email"
	ParamName       = "name"
	ParamTargetPage = "targetPage"
	ParamQuery      = "query"
	ParamMessage    = "message"
)

var emailPattern = regexp.MustCompile(`[\w._%+-]+@[\w.-]+\.[A-Za-z]{2,}`)

const (
	quotes     = "\"'«»"
	quoteSpace = " \t\r" + quotes
)

// Match is the detected intent with its extracted parameters. Missing
// parameters are empty strings; the handler decides how to prompt.
type Match struct {
	Intent Name
	Params map[string]string
}

type extractor func(message, lower string) (map[string]string, bool)

type entry struct {
	rule    Rule
	extract extractor
}

// Detector maps chat messages to intents using an ordered rule table.
type Detector struct {
	rules         *Rules
	clickPatterns []*regexp.Regexp
	namePatterns  []*regexp.Regexp
	table         []entry
}

func NewDetector(r *Rules) (*Detector, error) {
	d := &Detector{rules: r}

	for _, verb := range r.Click.Verbs {
		d.clickPatterns = append(d.clickPatterns, clickVerbPattern(verb))
	}
	for _, p := range r.Register.NamePatterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("%w: name pattern %q: %v", ErrInvalidRules, p, err)
		}
		d.namePatterns = append(d.namePatterns, re)
	}

	extractors := map[Name]extractor{
		Click:     d.extractClick,
		Register:  d.extractRegister,
		Navigate:  d.extractNavigate,
		Ticket:    extractEmailAndMessage,
		Knowledge: extractQuery,
		Subscribe: extractEmail,
		Demo:      extractEmailAndMessage,
		Contacts:  extractNothing,
	}
	for _, rule := range r.Rules {
		d.table = append(d.table, entry{rule: rule, extract: extractors[rule.Intent]})
	}
	return d, nil
}

// Detect returns the first rule that matches message, or nil.
func (d *Detector) Detect(message string) *Match {
	lower := strings.ToLower(message)
	for _, e := range d.table {
		if !e.rule.matches(lower) {
			continue
		}
		params, ok := e.extract(message, lower)
		if !ok {
			continue
		}
		return &Match{Intent: e.rule.Intent, Params: params}
	}
	return nil
}

// extractClick takes the text after the first click verb up to the end of
// the line or a quote, dropping leading filler words. An empty target still
// matches so the caller can ask which button to press.
func (d *Detector) extractClick(message, _ string) (map[string]string, bool) {
	for _, re := range d.clickPatterns {
		loc := re.FindStringIndex(message)
		if loc == nil {
			continue
		}
		target := d.clickTarget(message[loc[1]:])
		if target == "" {
			continue
		}
		return map[string]string{ParamButtonText: d.NormalizeButton(target)}, true
	}
	return map[string]string{ParamButtonText: ""}, true
}

// clickVerbPattern matches verb as a whole word, including its polite
// "-те" form, so "нажмите войти" targets "войти".
func clickVerbPattern(verb string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(verb) + `(?:те)?(?:[^\p{L}\p{N}]|$)`)
}

func (d *Detector) clickTarget(rest string) string {
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	for {
		rest = strings.TrimLeft(rest, quoteSpace)
		words := strings.Fields(rest)
		if len(words) == 0 {
			return ""
		}
		if !d.isFiller(words[0]) {
			break
		}
		rest = strings.TrimPrefix(rest, words[0])
	}
	if i := strings.IndexAny(rest, quotes); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func (d *Detector) isFiller(word string) bool {
	for _, f := range d.rules.Click.Fillers {
		if strings.EqualFold(word, f) {
			return true
		}
	}
	return false
}

// NormalizeButton maps a spoken button name to its canonical label.
func (d *Detector) NormalizeButton(text string) string {
	if canonical, ok := d.rules.Click.Aliases[strings.ToLower(text)]; ok {
		return canonical
	}
	return text
}

func (d *Detector) extractRegister(message, _ string) (map[string]string, bool) {
	params := map[string]string{
		ParamEmail: emailPattern.FindString(message),
		ParamName:  "",
	}
	for _, re := range d.namePatterns {
		if m := re.FindStringSubmatch(message); m != nil && len(m) > 1 {
			params[ParamName] = strings.TrimRight(m[1], ",.;:!?")
			break
		}
	}
	return params, true
}

// extractNavigate only matches when a known destination is named.
func (d *Detector) extractNavigate(_, lower string) (map[string]string, bool) {
	for _, dest := range d.rules.Navigate.Destinations {
		if strings.Contains(lower, strings.ToLower(dest.Keyword)) {
			return map[string]string{ParamTargetPage: dest.Page}, true
		}
	}
	return nil, false
}

func extractEmailAndMessage(message, _ string) (map[string]string, bool) {
	return map[string]string{
		ParamEmail:   emailPattern.FindString(message),
		ParamMessage: message,
	}, true
}

func extractQuery(message, _ string) (map[string]string, bool) {
	return map[string]string{ParamQuery: message}, true
}

func extractEmail(message, _ string) (map[string]string, bool) {
	return map[string]string{ParamEmail: emailPattern.FindString(message)}, true
}

func extractNothing(string, string) (map[string]string, bool) {
	return map[string]string{}, true
}
