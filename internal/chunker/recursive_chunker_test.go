package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"ragqa/internal/domain"
)

const sample = `LangChain is a framework for developing applications powered by language models.

It enables applications that are context-aware. They connect a language model to sources of context.
They also rely on a language model to reason about how to answer based on provided context.

The main value props are components and off-the-shelf chains.`

func TestSplit_QuickBrownFox(t *testing.T) {
	text := "The quick brown fox. The lazy dog sleeps."
	parts := Split(text, 20)
	if len(parts) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d: %q", len(parts), parts)
	}
	for _, p := range parts {
		if n := utf8.RuneCountInString(p); n > 20 {
			t.Errorf("chunk %q has %d runes, max 20", p, n)
		}
	}
	if got := strings.Join(parts, ""); got != text {
		t.Errorf("reconstruction mismatch: %q", got)
	}
}

func TestSplit_BoundsAndReconstruction(t *testing.T) {
	inputs := []string{
		sample,
		strings.Repeat("word ", 500),
		strings.Repeat("x", 257),
		"héllo wörld ünïcode " + strings.Repeat("ß", 40),
		"\n\n\n",
	}
	for _, size := range []int{1, 7, 20, 64, 300} {
		for _, in := range inputs {
			parts := Split(in, size)
			for _, p := range parts {
				if p == "" {
					t.Fatalf("size=%d: empty chunk", size)
				}
				if n := utf8.RuneCountInString(p); n > size {
					t.Fatalf("size=%d: chunk of %d runes", size, n)
				}
			}
			if got := strings.Join(parts, ""); got != in {
				t.Fatalf("size=%d: reconstruction mismatch", size)
			}
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	a := Split(sample, 80)
	b := Split(sample, 80)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("split is not deterministic")
	}
}

func TestSplit_PrefersParagraphs(t *testing.T) {
	text := "first paragraph here.\n\nsecond paragraph here."
	parts := Split(text, 30)
	if len(parts) != 2 {
		t.Fatalf("expected 2 chunks, got %q", parts)
	}
	if parts[0] != "first paragraph here.\n\n" {
		t.Errorf("unexpected first chunk %q", parts[0])
	}
}

func TestSplit_Empty(t *testing.T) {
	if parts := Split("", 10); parts != nil {
		t.Errorf("expected nil, got %q", parts)
	}
}

func TestRecursiveChunker_Overlap(t *testing.T) {
	c := NewRecursiveChunker(40, 10)
	doc := domain.Document{ID: "demo", Content: sample}
	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	var rebuilt strings.Builder
	runes := []rune(sample)
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Text); n > 40 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
		if ch.Index != i || ch.DocumentID != "demo" || ch.ChunkID == "" {
			t.Errorf("chunk %d has bad metadata: %+v", i, ch)
		}
		if i == 0 && ch.Overlap != 0 {
			t.Errorf("first chunk must not overlap")
		}
		textRunes := []rune(ch.Text)
		if got := string(runes[ch.Offset : ch.Offset+len(textRunes)]); got != ch.Text {
			t.Errorf("chunk %d offset %d does not point at its text", i, ch.Offset)
		}
		rebuilt.WriteString(string(textRunes[ch.Overlap:]))
	}
	if rebuilt.String() != sample {
		t.Errorf("dropping overlap does not reconstruct the source")
	}
}

func TestRecursiveChunker_StableIDs(t *testing.T) {
	c := NewRecursiveChunker(50, 0)
	doc := domain.Document{ID: "demo", Content: sample}
	a, _ := c.Chunk(doc)
	b, _ := c.Chunk(doc)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("chunking is not deterministic")
	}
	seen := map[string]bool{}
	for _, ch := range a {
		if seen[ch.ChunkID] {
			t.Errorf("duplicate chunk id %s", ch.ChunkID)
		}
		seen[ch.ChunkID] = true
	}
}

func TestNewRecursiveChunker_Clamps(t *testing.T) {
	c := NewRecursiveChunker(0, -3)
	if c.ChunkSize() != DefaultChunkSize || c.Overlap() != 0 {
		t.Errorf("unexpected defaults: size=%d overlap=%d", c.ChunkSize(), c.Overlap())
	}
	c = NewRecursiveChunker(10, 50)
	if c.Overlap() != 9 {
		t.Errorf("expected overlap clamped to 9, got %d", c.Overlap())
	}
}
