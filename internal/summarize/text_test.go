package summarize

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{
			name: "strips non-ascii",
			in:   "Héllo wörld ☃ ok",
			max:  0,
			want: "Hllo wrld ok",
		},
		{
			name: "keeps punctuation whitelist",
			in:   `Hi, there; see: a@b.com (really!) - "quoted" / done?`,
			max:  0,
			want: `Hi, there; see: a@b.com (really!) - "quoted" / done?`,
		},
		{
			name: "collapses whitespace runs",
			in:   "a   b\t\tc\nd\n\n\ne",
			max:  0,
			want: "a b c\nd\ne",
		},
		{
			name: "truncates to max size",
			in:   "abcdefghij",
			max:  4,
			want: "abcd",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  \n hello \n ",
			max:  0,
			want: "hello",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in, tc.max); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplitChunksSentenceBoundaries(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("This is a reasonably sized sentence about newsletters.")
	}
	text := b.String()

	const maxChunk = 200
	chunks := SplitChunks(text, maxChunk)

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want the input split", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > maxChunk {
			t.Errorf("chunk %d is %d bytes, exceeds %d", i, len(chunk), maxChunk)
		}
		if !strings.HasSuffix(chunk, ".") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", i, chunk)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("concatenated chunks do not reproduce the input")
	}
}

func TestSplitChunksSmallInputIsSingleChunk(t *testing.T) {
	chunks := SplitChunks("short text.", 100)
	if len(chunks) != 1 || chunks[0] != "short text." {
		t.Errorf("chunks = %q, want the input unchanged", chunks)
	}
}

func TestSplitChunksOversizedSentenceIsTruncated(t *testing.T) {
	long := strings.Repeat("x", 500) + "."
	chunks := SplitChunks("First. "+long, 100)
	for i, chunk := range chunks {
		if len(chunk) > 100 {
			t.Errorf("chunk %d is %d bytes, exceeds 100", i, len(chunk))
		}
	}
}
