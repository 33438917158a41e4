// Package chunker cuts section text into overlapping windows sized for a
// model context. Splitting is deterministic: the same text and settings
// always produce the same chunks.
package chunker

import "math"

// Split cuts text into chunks of at most maxChars characters with
// overlapChars of trailing context carried into the next chunk. Cut
// points prefer a sentence end, then a newline, then a space inside the
// overlap window, falling back to a hard cut. Concatenating the chunks
// minus their overlaps reproduces the input exactly.
func Split(text string, maxChars, overlapChars int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= maxChars {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxChars
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		// Only look for a break near the end of the window so chunks
		// stay close to full size.
		searchFrom := end - maxChars/10
		if searchFrom < start {
			searchFrom = start
		}
		if cut := naturalBreak(runes, searchFrom, end); cut > start {
			end = cut + 1
		}
		chunks = append(chunks, string(runes[start:end]))

		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// naturalBreak returns the last sentence end, newline, or space in
// [from, end), or -1 if the range has none.
func naturalBreak(runes []rune, from, end int) int {
	for i := end - 1; i >= from; i-- {
		switch runes[i] {
		case '.', '\n', ' ':
			return i
		}
	}
	return -1
}

// SplitSample splits text like Split and then keeps only a ratio of the
// chunks: always the first and last, plus evenly spaced interior chunks.
// A ratio of 1.0 keeps everything. Used for fast preview runs where full
// coverage is not required.
func SplitSample(text string, maxChars, overlapChars int, ratio float64) []string {
	chunks := Split(text, maxChars, overlapChars)
	if ratio >= 1.0 || len(chunks) <= 2 {
		return chunks
	}

	keep := int(math.Round(ratio * float64(len(chunks))))
	if keep < 2 {
		keep = 2
	}
	if keep >= len(chunks) {
		return chunks
	}

	sampled := make([]string, 0, keep)
	sampled = append(sampled, chunks[0])
	interior := keep - 2
	for i := 1; i <= interior; i++ {
		// Evenly spaced positions strictly between first and last.
		pos := i * (len(chunks) - 1) / (interior + 1)
		if pos == 0 {
			pos = 1
		}
		sampled = append(sampled, chunks[pos])
	}
	sampled = append(sampled, chunks[len(chunks)-1])
	return sampled
}
