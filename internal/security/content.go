package security

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Patterns that hint at script injection in user submitted text. A match is a
// signal for downstream sanitization, not a substitute for output encoding.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)document\s*\.\s*cookie`),
	regexp.MustCompile(`(?i)\b(local|session)Storage\b`),
	regexp.MustCompile(`(?i)<\s*iframe`),
}

func ContainsSuspiciousContent(text string) bool {
	for _, p := range suspiciousPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// StripMarkup drops every tag and the contents of script and style elements,
// keeping the remaining text
func StripMarkup(text string) string {
	z := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail, either way keep what was read
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			if isRawTextTag(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	default:
		return false
	}
}

// SanitizeInput trims text and removes control characters other than newlines and tabs
func SanitizeInput(text string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text))
}
