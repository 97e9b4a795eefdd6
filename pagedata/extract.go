package pagedata

import (
	"fmt"

	"github.com/go-rod/rod"
)

// ButtonSelector lists the elements treated as buttons when summarising a page.
const ButtonSelector = `button, input[type="button"], input[type="submit"], .btn, [role="button"]`

const extractJS = `(currentURL) => {
	const trimmed = el => (el.textContent || '').trim();
	const attr = (el, name) => el.getAttribute(name) || '';

	const headings = Array.from(document.querySelectorAll('h1, h2, h3, h4, h5, h6'))
		.map(trimmed)
		.filter(t => t.length > 0);

	const links = Array.from(document.querySelectorAll('a[href]'))
		.map(a => ({ text: trimmed(a), href: attr(a, 'href') }))
		.filter(l => l.text.length > 0);

	const buttons = Array.from(document.querySelectorAll(` + "`" + ButtonSelector + "`" + `))
		.map(b => trimmed(b) || attr(b, 'value') || attr(b, 'aria-label'))
		.filter(t => t.length > 0);

	const forms = Array.from(document.querySelectorAll('form')).map(f => ({
		action: attr(f, 'action'),
		inputs: Array.from(f.querySelectorAll('input, textarea, select'))
			.map(i => attr(i, 'placeholder') || attr(i, 'name') || attr(i, 'type'))
			.filter(t => t.length > 0)
	}));

	const images = Array.from(document.querySelectorAll('img'))
		.map(img => ({ alt: attr(img, 'alt'), src: attr(img, 'src') }))
		.filter(img => img.alt.length > 0 || img.src.length > 0);

	const textNodes = Array.from(document.querySelectorAll('p, span, div, li')).map(trimmed);

	const meta = document.querySelector('meta[name="description"]');

	return {
		url: currentURL,
		title: document.title || '',
		metaDescription: meta ? attr(meta, 'content') : '',
		headings,
		links,
		buttons,
		forms,
		images,
		textNodes
	};
}`

type rawSnapshot struct {
	Snapshot
	TextNodes []string `json:"textNodes"`
}

// Extract summarises the DOM currently loaded in page. It only reads the
// document.
func Extract(page *rod.Page, url string) (*Snapshot, error) {
	res, err := page.Eval(extractJS, url)
	if err != nil {
		return nil, fmt.Errorf("evaluate extraction script: %w", err)
	}

	var raw rawSnapshot
	if err := res.Value.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("decode page data: %w", err)
	}

	s := raw.Snapshot
	s.Text = joinText(raw.TextNodes)
	s.normalize()
	return &s, nil
}
