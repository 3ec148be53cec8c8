package snapshot

import (
	"bufio"
	"encoding/gob"
	"os"

	"ragqa/internal/domain"
)

type gobPayload struct {
	Chunks  []domain.Chunk
	Vectors [][]float32
}

// GobCodec stores chunks and vectors in a single gob stream.
type GobCodec struct{}

func (GobCodec) Format() string   { return "gob" }
func (GobCodec) FileName() string { return "index.gob" }

func (GobCodec) Encode(path string, chunks []domain.Chunk, vectors [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := gob.NewEncoder(w).Encode(gobPayload{Chunks: chunks, Vectors: vectors}); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (GobCodec) Decode(path string) ([]domain.Chunk, [][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	var p gobPayload
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&p); err != nil {
		return nil, nil, err
	}
	return p.Chunks, p.Vectors, nil
}
