package intent

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

var ErrInvalidRules = errors.New("invalid intent rules")

// Name identifies one intent handler.
type Name string

const (
	Click     Name = "click"
	Register  Name = "register"
	Navigate  Name = "navigate"
	Ticket    Name = "ticket"
	Knowledge Name = "knowledge"
	Subscribe Name = "subscribe"
	Demo      Name = "demo"
	Contacts  Name = "contacts"
)

var knownIntents = map[Name]bool{
	Click: true, Register: true, Navigate: true, Ticket: true,
	Knowledge: true, Subscribe: true, Demo: true, Contacts: true,
}

// Rule is the keyword predicate for one intent. It holds when any keyword
// in Any is present or every keyword in All is present, and additionally
// at least one of Requires when Requires is set. Keywords are matched
// against the lowercased message.
type Rule struct {
	Intent   Name     `yaml:"intent"`
	Any      []string `yaml:"any"`
	All      []string `yaml:"all"`
	Requires []string `yaml:"requires"`
}

func (r Rule) matches(lower string) bool {
	hit := containsAny(lower, r.Any) || (len(r.All) > 0 && containsAll(lower, r.All))
	if !hit {
		return false
	}
	return len(r.Requires) == 0 || containsAny(lower, r.Requires)
}

type ClickRules struct {
	Verbs   []string          `yaml:"verbs"`
	Fillers []string          `yaml:"fillers"`
	Aliases map[string]string `yaml:"aliases"`
}

type RegisterRules struct {
	NamePatterns []string `yaml:"name_patterns"`
	SubmitLabels []string `yaml:"submit_labels"`
}

type Destination struct {
	Keyword string `yaml:"keyword"`
	Page    string `yaml:"page"`
}

type NavigateRules struct {
	Destinations []Destination      `yaml:"destinations"`
	Pages        map[string][]string `yaml:"pages"`
}

// Labels returns the candidate link or button labels for a logical page.
// Unknown pages are searched for by name.
func (n NavigateRules) Labels(page string) []string {
	if labels, ok := n.Pages[strings.ToLower(page)]; ok && len(labels) > 0 {
		return labels
	}
	return []string{page}
}

// Rules is the full intent table.
type Rules struct {
	Rules    []Rule        `yaml:"rules"`
	Click    ClickRules    `yaml:"click"`
	Register RegisterRules `yaml:"register"`
	Navigate NavigateRules `yaml:"navigate"`
}

// LoadRules parses a YAML rule table.
func LoadRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// DefaultRules returns the embedded rule table.
func DefaultRules() (*Rules, error) {
	return LoadRules(defaultRules)
}

func (r *Rules) validate() error {
	if len(r.Rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidRules)
	}
	for i, rule := range r.Rules {
		if !knownIntents[rule.Intent] {
			return fmt.Errorf("%w: rule %d: unknown intent %q", ErrInvalidRules, i, rule.Intent)
		}
		if len(rule.Any) == 0 && len(rule.All) == 0 {
			return fmt.Errorf("%w: rule %d (%s) has no keywords", ErrInvalidRules, i, rule.Intent)
		}
	}
	for _, d := range r.Navigate.Destinations {
		if d.Keyword == "" || d.Page == "" {
			return fmt.Errorf("%w: navigation destination needs keyword and page", ErrInvalidRules)
		}
	}
	return nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func containsAll(s string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(s, strings.ToLower(k)) {
			return false
		}
	}
	return true
}
