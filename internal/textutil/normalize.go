package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTranscript prepares transcribed speech for classification and
// retrieval: NFC-composed (Whisper sometimes emits decomposed Hangul jamo),
// whitespace-collapsed, and trimmed.
func NormalizeTranscript(text string) string {
	composed := norm.NFC.String(text)
	return strings.TrimSpace(CollapseWhitespace(composed))
}
