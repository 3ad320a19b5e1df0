package chunker

import (
	"strings"
	"testing"
)

func TestChunkRespectsMaxLength(t *testing.T) {
	text := strings.Repeat("word ", 5000)
	chunks := Split(text, 1000, 100)

	for _, c := range chunks {
		if len(c.Text) > 1100 {
			t.Fatalf("chunk %d exceeds size+overlap: len=%d", c.Index, len(c.Text))
		}
	}
}

func TestChunkProducesNoEmptyChunks(t *testing.T) {
	text := strings.Repeat("a.", 2000)
	chunks := Split(text, 500, 50)

	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Fatalf("chunk %d is empty", c.Index)
		}
	}
}

func TestChunkEmptyInputReturnsNoChunks(t *testing.T) {
	if chunks := Split("", 100, 10); chunks != nil {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestChunkThirtyFiveKInputYieldsThreeChunks(t *testing.T) {
	// Mirrors the documented pipeline-resume scenario's input shape.
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 778) // ~35k chars
	chunks := Split(text, 16000, 800)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for a 35k-char input at size=16000 overlap=800, got %d (len=%d)", len(chunks), len(text))
	}
}

func TestChunkPrefersSentenceBoundary(t *testing.T) {
	text := strings.Repeat("x", 400) + ". " + strings.Repeat("y", 400)
	chunks := Split(text, 420, 0)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Fatalf("expected first chunk to end at the sentence boundary, got suffix %q", chunks[0].Text[len(chunks[0].Text)-10:])
	}
}

func TestSourceFingerprintIsStableAndContentAddressed(t *testing.T) {
	a := SourceFingerprint("hello world")
	b := SourceFingerprint("hello world")
	c := SourceFingerprint("hello there")

	if a != b {
		t.Fatal("expected identical text to produce identical fingerprints")
	}
	if a == c {
		t.Fatal("expected different text to produce different fingerprints")
	}
	if len(a) != 64 {
		t.Fatalf("expected a 64-char hex SHA-256 digest, got length %d", len(a))
	}
}
