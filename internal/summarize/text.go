package summarize

import "strings"

// isAllowedRune reports whether a rune survives sanitization. The model
// is assumed to mis-handle exotic encodings, so input is reduced to
// ASCII letters, digits, and a small punctuation whitelist.
func isAllowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case ' ', '\n', '.', ',', ';', ':', '!', '?', '\'', '"', '(', ')', '-', '@', '/':
		return true
	}
	return false
}

// Sanitize strips non-whitelisted runes, collapses whitespace runs, and
// truncates the result to maxSize bytes
func Sanitize(text string, maxSize int) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := false
	lastNewline := false
	for _, r := range text {
		if r == '\t' || r == '\r' {
			r = ' '
		}
		if !isAllowedRune(r) {
			continue
		}
		switch r {
		case '\n':
			if lastNewline {
				continue
			}
			lastNewline = true
			lastSpace = false
		case ' ':
			if lastSpace || lastNewline {
				continue
			}
			lastSpace = true
		default:
			lastSpace = false
			lastNewline = false
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	if maxSize > 0 && len(out) > maxSize {
		out = out[:maxSize]
	}
	return out
}

// SplitChunks splits text into chunks of at most maxChunk bytes, cutting
// only at sentence boundaries. Every chunk except possibly the last ends
// with a period. A single sentence longer than maxChunk is hard-truncated
// rather than split mid-way through the corpus.
func SplitChunks(text string, maxChunk int) []string {
	if maxChunk <= 0 || len(text) <= maxChunk {
		return []string{text}
	}

	sentences := strings.SplitAfter(text, ".")
	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		if sentence == "" {
			continue
		}
		if len(sentence) > maxChunk {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, sentence[:maxChunk])
			continue
		}
		if current.Len()+len(sentence) > maxChunk {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
