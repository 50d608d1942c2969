package telegram

import (
	"calendarbot/pkg/templates"
)

// EscapeHTML escapes text for Telegram's HTML parse mode
func EscapeHTML(text string) string {
	return templates.EscapeHTML(text)
}

// Bold wraps already-escaped HTML in <b>
func Bold(s string) string {
	return "<b>" + s + "</b>"
}

// Italic wraps already-escaped HTML in <i>
func Italic(s string) string {
	return "<i>" + s + "</i>"
}

// Code escapes s and wraps it in <code>
func Code(s string) string {
	return "<code>" + EscapeHTML(s) + "</code>"
}

// Pre escapes s and wraps it in <pre>
func Pre(s string) string {
	return "<pre>" + EscapeHTML(s) + "</pre>"
}
