package format

import (
	"regexp"
	"strings"
)

// reservedChars are the characters the MarkdownV2 dialect treats as
// markup and requires escaped when literal.
const reservedChars = "_*[]()~`>#+-=|{}.!"

var (
	boldRe   = regexp.MustCompile(`\\\*(.+?)\\\*`)
	italicRe = regexp.MustCompile(`\\_(.+?)\\_`)
	bulletRe = regexp.MustCompile(`(?m)^\\([-*]) `)
	linkRe   = regexp.MustCompile(`\\\[(.+?)\\\]\\\((.+?)\\\)`)
)

// Escape backslash-escapes every reserved MarkdownV2 character
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text) * 2)
	for _, r := range text {
		if strings.ContainsRune(reservedChars, r) || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Render makes text safe for the delivery channel while keeping the
// markup the summarizer intentionally emitted: everything is escaped
// first, then bold, italic, leading bullets, and links are restored.
func Render(text string) string {
	out := Escape(text)

	out = boldRe.ReplaceAllString(out, "*$1*")
	out = italicRe.ReplaceAllString(out, "_$1_")
	out = bulletRe.ReplaceAllString(out, "$1 ")

	out = linkRe.ReplaceAllStringFunc(out, func(m string) string {
		parts := linkRe.FindStringSubmatch(m)
		if len(parts) != 3 {
			return m
		}
		// URLs only need ')' and '\' kept escaped inside the parens
		url := strings.NewReplacer(
			`\.`, `.`, `\-`, `-`, `\_`, `_`, `\#`, `#`, `\+`, `+`,
			`\=`, `=`, `\~`, `~`, `\!`, `!`, `\*`, `*`, `\[`, `[`, `\]`, `]`,
		).Replace(parts[2])
		return "[" + parts[1] + "](" + url + ")"
	})

	return out
}
