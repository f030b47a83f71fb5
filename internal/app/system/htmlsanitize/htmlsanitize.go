// Package htmlsanitize renders check-in notes safely. Notes are usually plain
// text, but pasted content can carry markup; only light inline formatting and
// lists survive.
package htmlsanitize

import (
	"html/template"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
	stripOnce  sync.Once
	strip      *bluemonday.Policy
)

func notesPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.NewPolicy()
		policy.AllowElements("p", "br", "b", "strong", "i", "em", "u", "s", "mark", "ul", "ol", "li", "blockquote")
	})
	return policy
}

func stripPolicy() *bluemonday.Policy {
	stripOnce.Do(func() {
		strip = bluemonday.StrictPolicy()
	})
	return strip
}

// Sanitize keeps the allowed formatting and drops every other tag and all
// attributes.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return notesPolicy().Sanitize(html)
}

// IsPlainText reports whether content has no tags.
func IsPlainText(content string) bool {
	return !strings.Contains(content, "<") || !strings.Contains(content, ">")
}

// PlainTextToHTML escapes text and turns line breaks into <br>.
func PlainTextToHTML(text string) string {
	if text == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(text)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareForDisplay returns notes as HTML ready for a template.
func PrepareForDisplay(content string) template.HTML {
	if content == "" {
		return ""
	}
	if IsPlainText(content) {
		return template.HTML(PlainTextToHTML(content))
	}
	return template.HTML(Sanitize(content))
}

// Excerpt returns the notes as plain text cut to max runes, with an ellipsis
// when shortened.
func Excerpt(content string, max int) string {
	text := strings.Join(strings.Fields(stripPolicy().Sanitize(content)), " ")
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", `"`, "&#39;", "'").Replace(text)
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "…"
}
