package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"ragqa/internal/domain"
)

// DefaultChunkSize is used when a non-positive size is configured.
const DefaultChunkSize = 1000

// separators are tried in order, coarsest first. A text that still does not fit
// after the last separator is cut on rune boundaries.
var separators = []string{"\n\n", "\n", ". ", " "}

// RecursiveChunker splits text on paragraph, line, sentence and word boundaries
// so that no chunk exceeds chunkSize runes.
type RecursiveChunker struct {
	chunkSize int
	overlap   int
}

// NewRecursiveChunker creates a chunker. overlap is clamped to [0, chunkSize).
func NewRecursiveChunker(chunkSize, overlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &RecursiveChunker{chunkSize: chunkSize, overlap: overlap}
}

// ChunkSize returns the maximum chunk length in runes.
func (c *RecursiveChunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in runes.
func (c *RecursiveChunker) Overlap() int { return c.overlap }

// Chunk splits the document content into chunks carrying offsets and stable ids.
func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	parts := Split(document.Content, c.chunkSize)
	chunks := make([]domain.Chunk, 0, len(parts))
	offset := 0
	for i, part := range parts {
		text := part
		n := 0
		if i > 0 && c.overlap > 0 {
			n = overlapLen(parts[i-1], part, c.overlap, c.chunkSize)
			text = lastRunes(parts[i-1], n) + part
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    chunkID(document.ID, i, text),
			Text:       text,
			Index:      i,
			Offset:     offset - n,
			Overlap:    n,
		})
		offset += utf8.RuneCountInString(part)
	}
	return chunks, nil
}

// Split cuts text into disjoint pieces of at most maxChunkSize runes whose
// concatenation is text. Identical input always yields identical output.
func Split(text string, maxChunkSize int) []string {
	if text == "" {
		return nil
	}
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	return splitRecursive(text, maxChunkSize, separators)
}

func splitRecursive(text string, max int, seps []string) []string {
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardCut(text, max)
	}
	parts := splitKeep(text, seps[0])
	if len(parts) == 1 {
		return splitRecursive(text, max, seps[1:])
	}
	var out, fitting []string
	flush := func() {
		out = append(out, merge(fitting, max)...)
		fitting = nil
	}
	for _, p := range parts {
		if utf8.RuneCountInString(p) <= max {
			fitting = append(fitting, p)
			continue
		}
		flush()
		out = append(out, splitRecursive(p, max, seps[1:])...)
	}
	flush()
	return out
}

// splitKeep splits after each separator, keeping it on the left piece.
func splitKeep(text, sep string) []string {
	raw := strings.SplitAfter(text, sep)
	out := raw[:0]
	for _, r := range raw {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// merge joins consecutive pieces greedily while the result fits in max runes.
func merge(pieces []string, max int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if curLen > 0 && curLen+n > max {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		cur.WriteString(p)
		curLen += n
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}

func hardCut(text string, max int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/max+1)
	for start := 0; start < len(runes); start += max {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func overlapLen(prev, cur string, overlap, max int) int {
	n := overlap
	if l := utf8.RuneCountInString(prev); l < n {
		n = l
	}
	if room := max - utf8.RuneCountInString(cur); room < n {
		n = room
	}
	if n < 0 {
		n = 0
	}
	return n
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	return string(runes[len(runes)-n:])
}

func chunkID(documentID string, index int, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d:%s", documentID, index, text))).String()
}
