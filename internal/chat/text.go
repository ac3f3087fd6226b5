package chat

import (
	"html"
	"strings"
	"unicode"

	"mvdan.cc/xurls/v2"
)

// MaxTextLength caps message text, counted in runes.
const MaxTextLength = 250

var urlPattern = xurls.Relaxed()

// TransformText truncates text, strips control characters, escapes HTML and
// turns URLs (with or without a scheme) into anchors.
func TransformText(text string) string {
	sanitized := Sanitize(text)

	var b strings.Builder
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(sanitized, -1) {
		b.WriteString(html.EscapeString(sanitized[last:loc[0]]))
		b.WriteString(anchor(sanitized[loc[0]:loc[1]]))
		last = loc[1]
	}
	b.WriteString(html.EscapeString(sanitized[last:]))
	return b.String()
}

// Sanitize truncates text to MaxTextLength runes and removes control characters.
func Sanitize(text string) string {
	runes := []rune(text)
	if len(runes) > MaxTextLength {
		runes = runes[:MaxTextLength]
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, string(runes))
}

func anchor(raw string) string {
	href := raw
	if !strings.Contains(raw, "://") && !strings.HasPrefix(strings.ToLower(raw), "mailto:") {
		href = "http://" + raw
	}
	return `<a href="` + html.EscapeString(href) + `" target="_blank" rel="nofollow">` +
		html.EscapeString(raw) + `</a>`
}
