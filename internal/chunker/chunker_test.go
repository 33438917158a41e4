package chunker

import (
	"strings"
	"testing"
)

func TestSplitShortText(t *testing.T) {
	chunks := Split("short text.", 100, 20)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short text." {
		t.Errorf("Expected input unchanged, got %q", chunks[0])
	}
}

func TestSplitEmptyText(t *testing.T) {
	if chunks := Split("", 100, 20); chunks != nil {
		t.Errorf("Expected nil for empty input, got %v", chunks)
	}
}

func TestSplitRespectsMaxChars(t *testing.T) {
	text := strings.Repeat("una frase di prova. ", 500)
	chunks := Split(text, 200, 40)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 200 {
			t.Errorf("Chunk %d exceeds max size: %d chars", i, n)
		}
	}
}

func TestSplitPrefersSentenceBreaks(t *testing.T) {
	text := strings.Repeat("una frase di prova. ", 500)
	chunks := Split(text, 200, 40)

	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, ". ") && !strings.HasSuffix(c, ".") && !strings.HasSuffix(c, " ") {
			t.Errorf("Chunk %d does not end on a natural break: %q", i, c[len(c)-10:])
		}
	}
}

func TestSplitCoversEntireInput(t *testing.T) {
	text := strings.Repeat("il testo continua senza sosta. ", 300)
	overlap := 50
	chunks := Split(text, 400, overlap)

	// Dropping each chunk's leading overlap (except the first) and
	// joining must reproduce the input.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	covered := len([]rune(chunks[0]))
	runes := []rune(text)
	for _, c := range chunks[1:] {
		cr := []rune(c)
		// Find where this chunk starts in the original.
		start := covered - overlap
		if start < 0 {
			start = 0
		}
		// The chunk must match the original at its position.
		if string(runes[start:start+len(cr)]) != c {
			t.Fatalf("Chunk does not match original text at offset %d", start)
		}
		rebuilt.WriteString(string(cr[overlap:]))
		covered = start + len(cr)
	}
	if covered != len(runes) {
		t.Errorf("Chunks cover %d of %d chars", covered, len(runes))
	}
	if rebuilt.String() != text {
		t.Error("Rebuilt text does not match input")
	}
}

func TestSplitHardTextWithoutBreaks(t *testing.T) {
	text := strings.Repeat("x", 1000)
	chunks := Split(text, 300, 50)

	if len(chunks) < 3 {
		t.Fatalf("Expected at least 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 300 {
			t.Errorf("Chunk %d exceeds max size: %d", i, len(c))
		}
	}
	if strings.Join(dedupOverlap(chunks, 50), "") != text {
		t.Error("Hard-cut chunks do not reassemble into input")
	}
}

func dedupOverlap(chunks []string, overlap int) []string {
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		out[i] = chunks[i][overlap:]
	}
	return out
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("capitolo uno della storia. ", 200)
	a := Split(text, 250, 60)
	b := Split(text, 250, 60)
	if len(a) != len(b) {
		t.Fatalf("Non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Chunk %d differs between runs", i)
		}
	}
}

func TestSplitSampleKeepsEndpoints(t *testing.T) {
	text := strings.Repeat("una frase di prova. ", 1000)
	full := Split(text, 200, 40)
	sampled := SplitSample(text, 200, 40, 0.3)

	if len(sampled) >= len(full) {
		t.Fatalf("Expected sampling to drop chunks: %d vs %d", len(sampled), len(full))
	}
	if sampled[0] != full[0] {
		t.Error("Sampling dropped the first chunk")
	}
	if sampled[len(sampled)-1] != full[len(full)-1] {
		t.Error("Sampling dropped the last chunk")
	}
}

func TestSplitSampleFullRatio(t *testing.T) {
	text := strings.Repeat("una frase di prova. ", 500)
	full := Split(text, 200, 40)
	sampled := SplitSample(text, 200, 40, 1.0)
	if len(sampled) != len(full) {
		t.Errorf("Expected ratio 1.0 to keep all %d chunks, got %d", len(full), len(sampled))
	}
}

func TestSplitSampleMinimumTwo(t *testing.T) {
	text := strings.Repeat("una frase di prova. ", 1000)
	sampled := SplitSample(text, 200, 40, 0.01)
	if len(sampled) != 2 {
		t.Errorf("Expected minimum of 2 chunks, got %d", len(sampled))
	}
}
