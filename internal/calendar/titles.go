package calendar

import (
	"regexp"
	"strings"
)

var qualifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\s*\(Q[1-4]\)\s*`),
	regexp.MustCompile(`\s*\([A-Za-z]{3}\)\s*`),
	regexp.MustCompile(`\s*\((?:MoM|YoY|QoQ)\)\s*`),
	regexp.MustCompile(`\s*\([A-Za-z]{3}/\d{4}\)\s*`),
}

// StripQualifiers removes period qualifiers like "(Q1)", "(MoM)", "(May)" or "(Apr/2025)"
func StripQualifiers(title string) string {
	for _, re := range qualifierPatterns {
		title = re.ReplaceAllString(title, " ")
	}
	return strings.Join(strings.Fields(title), " ")
}
