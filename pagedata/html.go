package pagedata

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FromHTML applies the Extract rules to a static document. Scripts are not
// executed, so the result reflects the markup as served.
func FromHTML(url string, r io.Reader) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return FromDocument(url, doc), nil
}

// FromDocument builds a snapshot from an already parsed document.
func FromDocument(url string, doc *goquery.Document) *Snapshot {
	s := newSnapshot(url)
	s.Title = strings.TrimSpace(doc.Find("title").First().Text())
	s.MetaDescription = doc.Find(`meta[name="description"]`).First().AttrOr("content", "")

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		if t := trimmedText(sel); t != "" {
			s.Headings = append(s.Headings, t)
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if t := trimmedText(sel); t != "" {
			s.Links = append(s.Links, Link{Text: t, Href: sel.AttrOr("href", "")})
		}
	})

	doc.Find(ButtonSelector).Each(func(_ int, sel *goquery.Selection) {
		if t := firstNonEmpty(trimmedText(sel), sel.AttrOr("value", ""), sel.AttrOr("aria-label", "")); t != "" {
			s.Buttons = append(s.Buttons, t)
		}
	})

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		f := Form{Action: form.AttrOr("action", ""), Inputs: []string{}}
		form.Find("input, textarea, select").Each(func(_ int, in *goquery.Selection) {
			if t := firstNonEmpty(in.AttrOr("placeholder", ""), in.AttrOr("name", ""), in.AttrOr("type", "")); t != "" {
				f.Inputs = append(f.Inputs, t)
			}
		})
		s.Forms = append(s.Forms, f)
	})

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		img := Image{Alt: sel.AttrOr("alt", ""), Src: sel.AttrOr("src", "")}
		if img.Alt != "" || img.Src != "" {
			s.Images = append(s.Images, img)
		}
	})

	var nodes []string
	doc.Find("p, span, div, li").Each(func(_ int, sel *goquery.Selection) {
		nodes = append(nodes, trimmedText(sel))
	})
	s.Text = joinText(nodes)

	return s
}

func trimmedText(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
