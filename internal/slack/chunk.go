// Package slack delivers digests to a Slack incoming webhook.
package slack

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars stays below Slack's 40k character text limit.
const DefaultMaxChars = 35000

// Chunk splits msg on line boundaries so that every chunk is at most maxChars
// characters. A single line longer than maxChars becomes its own chunk.
// Newlines are kept, so joining the chunks gives back msg.
func Chunk(msg string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if utf8.RuneCountInString(msg) <= maxChars {
		return []string{msg}
	}

	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)
	for _, line := range strings.SplitAfter(msg, "\n") {
		if line == "" {
			continue
		}
		n := utf8.RuneCountInString(line)
		if bufLen > 0 && bufLen+n > maxChars {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
		buf.WriteString(line)
		bufLen += n
	}
	if bufLen > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}
