package messaging

import (
	"strings"
	"testing"
)

func TestSplitMessageShortTextIsOneChunk(t *testing.T) {
	chunks := SplitMessage("γεια σου", 800)
	if len(chunks) != 1 || chunks[0] != "γεια σου" {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	if chunks := SplitMessage("   ", 800); chunks != nil {
		t.Fatalf("chunks = %v, want nil", chunks)
	}
}

func TestSplitMessagePrefersNewlineBoundary(t *testing.T) {
	text := strings.Repeat("α", 500) + "\n" + strings.Repeat("β", 500)
	chunks := SplitMessage(text, 800)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0] != strings.Repeat("α", 500) {
		t.Fatalf("first chunk broke mid-line: %d runes", len([]rune(chunks[0])))
	}
	if chunks[1] != strings.Repeat("β", 500) {
		t.Fatalf("second chunk wrong: %d runes", len([]rune(chunks[1])))
	}
}

func TestSplitMessageBreaksOnSpace(t *testing.T) {
	var words []string
	for i := 0; i < 300; i++ {
		words = append(words, "λέξη")
	}
	text := strings.Join(words, " ")

	chunks := SplitMessage(text, 800)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 800 {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Fatalf("chunk %d not trimmed: %q", i, c)
		}
	}

	rejoined := strings.Join(chunks, " ")
	if rejoined != text {
		t.Fatal("chunks do not reassemble the original text")
	}
}

func TestSplitMessageHardBreakWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("α", 1000)
	chunks := SplitMessage(text, 800)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if n := len([]rune(chunks[0])); n != 800 {
		t.Fatalf("first chunk has %d runes, want 800", n)
	}
	if n := len([]rune(chunks[1])); n != 200 {
		t.Fatalf("second chunk has %d runes, want 200", n)
	}
}
