package chunking

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// DefaultSafetyMargin is subtracted from the model's max sequence length to
// get the character budget of a chunk.
const DefaultSafetyMargin = 10

// Budget returns the chunk character budget for a model max sequence length.
func Budget(maxSequenceLength, safetyMargin int) int {
	return maxSequenceLength - safetyMargin
}

// Chunks yields word-bounded chunks of text, each at most budget characters
// long unless a single word is longer than budget on its own.
func Chunks(text string, budget int) iter.Seq[string] {
	return func(yield func(string) bool) {
		var sb strings.Builder
		count := 0
		for _, word := range strings.Fields(text) {
			n := utf8.RuneCountInString(word)
			if count > 0 && count+n+1 > budget {
				if !yield(sb.String()) {
					return
				}
				sb.Reset()
				count = 0
			}
			if count > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(word)
			count += n + 1
		}
		if count > 0 {
			yield(sb.String())
		}
	}
}

// Split collects Chunks into a slice.
func Split(text string, budget int) []string {
	var chunks []string
	for c := range Chunks(text, budget) {
		chunks = append(chunks, c)
	}
	return chunks
}
