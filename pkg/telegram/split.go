package telegram

import (
	"strings"
	"unicode/utf8"
)

// Split breaks text into chunks of at most limit runes.
//
// Cuts are made just before occurrences of marker where possible; sections are
// packed greedily. A section longer than limit is cut at its last newline inside
// the window, or exactly at limit when there is none. Nothing is added or
// removed, so joining the chunks yields text.
func Split(text string, limit int, marker string) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, section := range sections(text, marker) {
		n := utf8.RuneCountInString(section)

		if currentLen+n <= limit {
			current.WriteString(section)
			currentLen += n
			continue
		}

		flush()

		if n <= limit {
			current.WriteString(section)
			currentLen = n
			continue
		}

		pieces := hardSplit(section, limit)
		for _, p := range pieces[:len(pieces)-1] {
			chunks = append(chunks, p)
		}
		last := pieces[len(pieces)-1]
		current.WriteString(last)
		currentLen = utf8.RuneCountInString(last)
	}

	flush()
	return chunks
}

// sections cuts text before every marker occurrence
func sections(text, marker string) []string {
	if marker == "" {
		return []string{text}
	}

	var out []string
	start := 0
	for start+1 < len(text) {
		idx := strings.Index(text[start+1:], marker)
		if idx < 0 {
			break
		}
		cut := start + 1 + idx
		out = append(out, text[start:cut])
		start = cut
	}
	return append(out, text[start:])
}

func hardSplit(section string, limit int) []string {
	var pieces []string
	runes := []rune(section)

	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		pieces = append(pieces, string(runes[:cut]))
		runes = runes[cut:]
	}

	return append(pieces, string(runes))
}
