package tools

import (
	"fmt"
	"unicode/utf8"
)

// DefaultMaxObservationChars caps tool output fed back to the model.
const DefaultMaxObservationChars = 64 * 1024

// Head/tail split for oversized output.
const (
	HeadRatio = 0.7
	TailRatio = 0.2
)

// TruncateOutput keeps the head and tail of text when it exceeds maxChars,
// with a marker noting how much was dropped. Sizes are in bytes; multi-byte
// characters are never split. maxChars <= 0 disables truncation.
func TruncateOutput(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	headChars := int(float64(maxChars) * HeadRatio)
	tailChars := int(float64(maxChars) * TailRatio)

	// Cuts move inward to rune boundaries so no character is split.
	headEnd := headChars
	for headEnd > 0 && !utf8.RuneStart(text[headEnd]) {
		headEnd--
	}
	tailStart := len(text) - tailChars
	for tailStart < len(text) && !utf8.RuneStart(text[tailStart]) {
		tailStart++
	}

	head := text[:headEnd]
	tail := text[tailStart:]

	marker := fmt.Sprintf("\n\n[...output truncated: kept %d+%d chars of %d...]\n\n",
		len(head), len(tail), len(text))

	return head + marker + tail
}
