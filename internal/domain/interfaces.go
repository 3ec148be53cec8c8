package domain

// Document represents a single corpus loaded into the system.
type Document struct {
	ID      string
	Path    string
	Content string
	// Hash is the hex SHA-256 of the raw source bytes.
	Hash string
}

// Chunk is a bounded part of a document used as a retrieval unit.
type Chunk struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
	Text       string `json:"text"`
	Index      int    `json:"index"`
	// Offset is the rune offset of the first rune of Text in the source.
	Offset int `json:"offset"`
	// Overlap is the number of leading runes of Text repeated from the previous chunk.
	Overlap int `json:"overlap"`
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Answer is the result of one retrieval-augmented query.
type Answer struct {
	Query   string         `json:"query"`
	Text    string         `json:"text"`
	Sources []SearchResult `json:"sources"`
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}
