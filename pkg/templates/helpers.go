package templates

import (
	"html"
	"strings"
	"text/template"
	"unicode/utf8"
)

// EscapeHTML escapes text for Telegram HTML parse mode.
// This is a shared helper used by both templates and telegram package
func EscapeHTML(text string) string {
	return html.EscapeString(strings.ToValidUTF8(text, ""))
}

// Truncate shortens text to at most max runes, marking the cut with an ellipsis
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

// FuncMap returns helpers available to every registry template
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"escape":   EscapeHTML,
		"truncate": func(max int, s string) string { return Truncate(s, max) },
		"upper":    strings.ToUpper,
		"join":     strings.Join,
		"add":      func(a, b int) int { return a + b },
	}
}
