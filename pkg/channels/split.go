package channels

import "unicode/utf8"

// Split cuts text into contiguous, non-overlapping segments of at most
// limit bytes each, in order. A boundary that would land mid-rune backs off
// to the previous rune start, so every segment is valid UTF-8 on its own.
// Concatenating the segments reproduces the original text exactly; nothing
// is trimmed, re-encoded, or duplicated at the boundaries.
func Split(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	segments := make([]string, 0, (len(text)+limit-1)/limit)
	for start := 0; start < len(text); {
		end := start + limit
		if end >= len(text) {
			segments = append(segments, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		// A single rune wider than the limit cannot be kept whole.
		if end == start {
			end = start + limit
		}
		segments = append(segments, text[start:end])
		start = end
	}
	return segments
}
