// Package cache decides at startup whether to restore a persisted index
// snapshot or rebuild the index from its corpus.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ragqa/internal/domain"
	"ragqa/internal/embedding"
	"ragqa/internal/snapshot"
	"ragqa/internal/vectorstore"
	"ragqa/internal/vectorstore/memory"
)

// Source tells how an index was obtained.
type Source string

const (
	SourceLoaded  Source = "loaded"
	SourceBuilt   Source = "built"
	SourceRebuilt Source = "rebuilt"
)

// CorpusLoader reads a corpus by name.
type CorpusLoader interface {
	Load(name string) (domain.Document, error)
}

// Chunker splits a document and reports the parameters it splits with.
type Chunker interface {
	domain.Chunker
	ChunkSize() int
	Overlap() int
}

// Options configures snapshot handling.
type Options struct {
	IndexDir  string
	Format    string
	BatchSize int
	// TrustSnapshot restores any existing snapshot without reading the corpus.
	TrustSnapshot bool
}

// Result is an index ready for querying.
type Result struct {
	Storage  vectorstore.Storage
	Manifest snapshot.Manifest
	Source   Source
	// SaveErr is a *domain.WriteError when a freshly built index could not be
	// persisted. Storage is still usable.
	SaveErr error
}

// Manager obtains vector indexes for corpora.
type Manager struct {
	loader     CorpusLoader
	chunker    Chunker
	embedder   embedding.Embedder
	opts       Options
	logger     *slog.Logger
	newStorage func() vectorstore.Storage
}

// NewManager creates a cache manager.
func NewManager(loader CorpusLoader, chunker Chunker, embedder embedding.Embedder, opts Options, logger *slog.Logger) *Manager {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.IndexDir == "" {
		opts.IndexDir = "."
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		loader:     loader,
		chunker:    chunker,
		embedder:   embedder,
		opts:       opts,
		logger:     logger,
		newStorage: func() vectorstore.Storage { return memory.NewStorage() },
	}
}

// SnapshotPath returns the deterministic snapshot location for a corpus.
func (m *Manager) SnapshotPath(corpusID string) string {
	return snapshot.Path(m.opts.IndexDir, corpusID)
}

// Obtain restores the snapshot for corpusID when it is current, and otherwise
// builds the index from the corpus and persists it.
func (m *Manager) Obtain(ctx context.Context, corpusID string) (*Result, error) {
	return m.obtain(ctx, corpusID, false)
}

// Rebuild ignores any existing snapshot and builds the index from the corpus.
func (m *Manager) Rebuild(ctx context.Context, corpusID string) (*Result, error) {
	return m.obtain(ctx, corpusID, true)
}

func (m *Manager) obtain(ctx context.Context, corpusID string, force bool) (*Result, error) {
	dir := m.SnapshotPath(corpusID)
	exists := snapshot.Exists(dir)
	if exists && !force && m.opts.TrustSnapshot {
		return m.restore(dir)
	}

	doc, err := m.loader.Load(corpusID)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) && exists && !force {
			m.logger.Warn("corpus missing, using existing snapshot", "corpus", nf.Path, "snapshot", dir)
			return m.restore(dir)
		}
		return nil, err
	}

	source := SourceBuilt
	if exists {
		source = SourceRebuilt
	}
	if exists && !force {
		man, err := snapshot.ReadManifest(dir)
		if err != nil {
			return nil, err
		}
		reason := m.staleReason(man, doc)
		if reason == "" {
			return m.restore(dir)
		}
		m.logger.Info("snapshot is stale, rebuilding", "snapshot", dir, "reason", reason)
	}
	return m.build(ctx, doc, dir, source)
}

func (m *Manager) staleReason(man snapshot.Manifest, doc domain.Document) string {
	var reasons []string
	if man.CorpusSHA256 != doc.Hash {
		reasons = append(reasons, "corpus changed")
	}
	if man.Embedder != m.embedder.Name() {
		reasons = append(reasons, fmt.Sprintf("embedder %s, want %s", man.Embedder, m.embedder.Name()))
	}
	if man.ChunkSize != m.chunker.ChunkSize() || man.ChunkOverlap != m.chunker.Overlap() {
		reasons = append(reasons, "chunking parameters changed")
	}
	if want := m.format(); man.Format != want {
		reasons = append(reasons, fmt.Sprintf("format %s, want %s", man.Format, want))
	}
	return strings.Join(reasons, "; ")
}

func (m *Manager) format() string {
	if m.opts.Format == "" {
		return "gob"
	}
	return m.opts.Format
}

func (m *Manager) restore(dir string) (*Result, error) {
	snap, err := snapshot.Load(dir)
	if err != nil {
		return nil, err
	}
	if snap.Manifest.Embedder != m.embedder.Name() {
		return nil, &domain.LoadError{
			Path: dir,
			Err:  fmt.Errorf("snapshot embedded with %s, configured embedder is %s", snap.Manifest.Embedder, m.embedder.Name()),
		}
	}
	st := m.newStorage()
	if err := st.Init(snap.Manifest.Dimension); err != nil {
		return nil, &domain.LoadError{Path: dir, Err: err}
	}
	if err := st.Upsert(snap.Chunks, snap.Vectors); err != nil {
		return nil, &domain.LoadError{Path: dir, Err: err}
	}
	m.logger.Info("snapshot restored", "snapshot", dir, "chunks", st.Len(), "created_at", snap.Manifest.CreatedAt)
	return &Result{Storage: st, Manifest: snap.Manifest, Source: SourceLoaded}, nil
}

func (m *Manager) build(ctx context.Context, doc domain.Document, dir string, source Source) (*Result, error) {
	all, err := m.chunker.Chunk(doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.Path, err)
	}
	chunks := all[:0]
	for _, c := range all {
		if strings.TrimSpace(c.Text) != "" {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("corpus %s has no indexable text", doc.Path)
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += m.opts.BatchSize {
		end := start + m.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		vecs, err := m.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d of %s: %w", start, end-1, doc.ID, err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(texts))
		}
		vectors = append(vectors, vecs...)
		m.logger.Debug("embedded batch", "from", start, "to", end, "total", len(chunks))
	}

	st := m.newStorage()
	if err := st.Init(len(vectors[0])); err != nil {
		return nil, err
	}
	if err := st.Upsert(chunks, vectors); err != nil {
		return nil, err
	}

	man := snapshot.Manifest{
		Version:      snapshot.Version,
		Corpus:       doc.ID,
		CorpusSHA256: doc.Hash,
		Embedder:     m.embedder.Name(),
		Dimension:    st.Dimension(),
		ChunkSize:    m.chunker.ChunkSize(),
		ChunkOverlap: m.chunker.Overlap(),
		Chunks:       len(chunks),
		Format:       m.format(),
		CreatedAt:    time.Now().UTC(),
	}
	res := &Result{Storage: st, Manifest: man, Source: source}
	if err := snapshot.Save(dir, &snapshot.Snapshot{Manifest: man, Chunks: chunks, Vectors: vectors}); err != nil {
		m.logger.Error("snapshot not saved, continuing with in-memory index", "snapshot", dir, "error", err)
		res.SaveErr = err
		return res, nil
	}
	m.logger.Info("snapshot saved", "snapshot", dir, "chunks", len(chunks), "format", man.Format)
	return res, nil
}
