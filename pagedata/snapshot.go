package pagedata

import (
	"fmt"
	"strings"
)

const (
	minTextLength    = 10
	maxTextNodes     = 50
	maxTextRunes     = 2000
	describeLinks    = 10
	describeTextSize = 500
)

// Snapshot is a size-capped summary of a page, built fresh for each
// analysis and never modified afterwards.
type Snapshot struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	Headings        []string `json:"headings"`
	Links           []Link   `json:"links"`
	Buttons         []string `json:"buttons"`
	Forms           []Form   `json:"forms"`
	Images          []Image  `json:"images"`
	Text            string   `json:"text"`
}

type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

type Form struct {
	Action string   `json:"action"`
	Inputs []string `json:"inputs"`
}

type Image struct {
	Alt string `json:"alt"`
	Src string `json:"src"`
}

func newSnapshot(url string) *Snapshot {
	return &Snapshot{
		URL:      url,
		Headings: []string{},
		Links:    []Link{},
		Buttons:  []string{},
		Forms:    []Form{},
		Images:   []Image{},
	}
}

// normalize replaces nil slices so snapshots always serialize as arrays.
func (s *Snapshot) normalize() {
	if s.Headings == nil {
		s.Headings = []string{}
	}
	if s.Links == nil {
		s.Links = []Link{}
	}
	if s.Buttons == nil {
		s.Buttons = []string{}
	}
	if s.Forms == nil {
		s.Forms = []Form{}
	}
	for i := range s.Forms {
		if s.Forms[i].Inputs == nil {
			s.Forms[i].Inputs = []string{}
		}
	}
	if s.Images == nil {
		s.Images = []Image{}
	}
}

// Describe renders the snapshot as the plain-text page description that is
// placed into LLM prompts.
func Describe(s *Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Страница: %s\n", s.Title)
	fmt.Fprintf(&b, "URL: %s\n", s.URL)

	if s.MetaDescription != "" {
		fmt.Fprintf(&b, "Описание: %s\n", s.MetaDescription)
	}
	if len(s.Headings) > 0 {
		fmt.Fprintf(&b, "Заголовки: %s\n", strings.Join(s.Headings, ", "))
	}
	if len(s.Buttons) > 0 {
		fmt.Fprintf(&b, "Кнопки: %s\n", strings.Join(s.Buttons, ", "))
	}
	if len(s.Links) > 0 {
		links := s.Links
		if len(links) > describeLinks {
			links = links[:describeLinks]
		}
		texts := make([]string, 0, len(links))
		for _, l := range links {
			texts = append(texts, l.Text)
		}
		fmt.Fprintf(&b, "Ссылки: %s\n", strings.Join(texts, ", "))
	}
	if len(s.Forms) > 0 {
		fmt.Fprintf(&b, "Формы: %d форм(ы)\n", len(s.Forms))
	}
	fmt.Fprintf(&b, "Текст: %s...", truncate(s.Text, describeTextSize))

	return b.String()
}

// joinText applies the body-text rule: keep nodes longer than ten
// characters, join the first fifty with a space and cap the result.
func joinText(nodes []string) string {
	kept := make([]string, 0, maxTextNodes)
	for _, n := range nodes {
		if len([]rune(n)) <= minTextLength {
			continue
		}
		kept = append(kept, n)
		if len(kept) == maxTextNodes {
			break
		}
	}
	return truncate(strings.Join(kept, " "), maxTextRunes)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
