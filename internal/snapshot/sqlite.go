package snapshot

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"ragqa/internal/domain"
)

const chunksSchema = `
CREATE TABLE IF NOT EXISTS chunks (
    seq INTEGER PRIMARY KEY,
    chunk_id TEXT NOT NULL,
    document_id TEXT NOT NULL,
    start_rune INTEGER NOT NULL,
    overlap_runes INTEGER NOT NULL,
    content TEXT NOT NULL,
    embedding BLOB
);
`

// SQLiteCodec stores one row per chunk with the embedding as a float32 BLOB.
type SQLiteCodec struct{}

func (SQLiteCodec) Format() string   { return "sqlite" }
func (SQLiteCodec) FileName() string { return "index.db" }

func (SQLiteCodec) Encode(path string, chunks []domain.Chunk, vectors [][]float32) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.Exec(chunksSchema); err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO chunks(seq, chunk_id, document_id, start_rune, overlap_runes, content, embedding) VALUES(?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range chunks {
		if _, err := stmt.Exec(c.Index, c.ChunkID, c.DocumentID, c.Offset, c.Overlap, c.Text, encodeEmbedding(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (SQLiteCodec) Decode(path string) ([]domain.Chunk, [][]float32, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	rows, err := db.Query(`SELECT seq, chunk_id, document_id, start_rune, overlap_runes, content, embedding FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var chunks []domain.Chunk
	var vectors [][]float32
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.Index, &c.ChunkID, &c.DocumentID, &c.Offset, &c.Overlap, &c.Text, &blob); err != nil {
			return nil, nil, err
		}
		vec, err := decodeEmbedding(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		chunks = append(chunks, c)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return chunks, vectors, nil
}

// encodeEmbedding writes little-endian IEEE 754 float32 values without a length prefix.
func encodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
