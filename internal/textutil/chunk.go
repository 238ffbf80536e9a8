package textutil

import "strings"

// DefaultChunkChars and DefaultOverlapChars control the corpus chunk window.
// Overlap keeps sentences that straddle a boundary retrievable from both sides.
const (
	DefaultChunkChars   = 800
	DefaultOverlapChars = 200
)

// ChunkText splits text into overlapping windows of at most size runes,
// stepping size-overlap runes each time. Whitespace is collapsed first so
// window boundaries are stable across formatting-only edits. Returns nil for
// text with no content.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkChars
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlapChars
		if overlap >= size {
			overlap = size / 4
		}
	}

	runes := []rune(CollapseWhitespace(text))
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// CollapseWhitespace rewrites all whitespace runs as single spaces.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
