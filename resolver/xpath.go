package resolver

import (
	"fmt"
	"strings"
)

// Case folding covers the Latin and Cyrillic alphabets only.
const (
	upperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZАБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯ"
	lowerAlphabet = "abcdefghijklmnopqrstuvwxyzабвгдеёжзийклмнопрстуфхцчшщъыьэюя"
)

var xpathTemplates = []string{
	"//button[contains(%s, %s)]",
	"//input[@type='button' or @type='submit'][contains(%s, %s)]",
	"//a[contains(%s, %s)]",
	"//*[@role='button'][contains(%s, %s)]",
	"//*[contains(@class, 'btn')][contains(%s, %s)]",
}

// XPathQueries returns the fallback XPath expressions for searchText in
// evaluation order.
func XPathQueries(searchText string) []string {
	needle := xpathLiteral(strings.ToLower(searchText))
	queries := make([]string, 0, len(xpathTemplates))
	for i, tmpl := range xpathTemplates {
		source := "text()"
		if i == 1 {
			source = "@value"
		}
		queries = append(queries, fmt.Sprintf(tmpl, fold(source), needle))
	}
	return queries
}

func fold(expr string) string {
	return fmt.Sprintf("translate(%s, '%s', '%s')", expr, upperAlphabet, lowerAlphabet)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	args := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if p != "" {
			args = append(args, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
