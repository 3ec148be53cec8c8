// Package snapshot persists a vector index as a directory holding a YAML
// manifest and one data file. The manifest is written last and describes
// what the data was built from, so callers can tell a stale snapshot apart.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ragqa/internal/domain"
)

// Version is bumped whenever the on-disk layout changes.
const Version = 1

const manifestFile = "manifest.yaml"

// Manifest describes a snapshot and the inputs it was built from.
type Manifest struct {
	Version      int       `yaml:"version"`
	Corpus       string    `yaml:"corpus"`
	CorpusSHA256 string    `yaml:"corpus_sha256"`
	Embedder     string    `yaml:"embedder"`
	Dimension    int       `yaml:"dimension"`
	ChunkSize    int       `yaml:"chunk_size"`
	ChunkOverlap int       `yaml:"chunk_overlap"`
	Chunks       int       `yaml:"chunks"`
	Format       string    `yaml:"format"`
	CreatedAt    time.Time `yaml:"created_at"`
}

// Snapshot is the full persisted state of an index.
type Snapshot struct {
	Manifest Manifest
	Chunks   []domain.Chunk
	Vectors  [][]float32
}

// Codec reads and writes the data file of one format.
type Codec interface {
	Format() string
	FileName() string
	Encode(path string, chunks []domain.Chunk, vectors [][]float32) error
	Decode(path string) ([]domain.Chunk, [][]float32, error)
}

var codecs = map[string]Codec{
	"gob":    GobCodec{},
	"sqlite": SQLiteCodec{},
}

// CodecFor returns the codec registered for a format name.
func CodecFor(format string) (Codec, error) {
	if format == "" {
		format = "gob"
	}
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
	return c, nil
}

// Path returns the snapshot directory for a corpus name.
func Path(dir, corpus string) string {
	return filepath.Join(dir, corpus+".index")
}

// Exists reports whether a snapshot directory is present.
func Exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// ReadManifest reads the manifest of the snapshot at dir.
// Any failure is reported as *domain.LoadError.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return m, &domain.LoadError{Path: dir, Err: err}
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, &domain.LoadError{Path: dir, Err: fmt.Errorf("parse manifest: %w", err)}
	}
	if m.Version != Version {
		return m, &domain.LoadError{Path: dir, Err: fmt.Errorf("unsupported snapshot version %d", m.Version)}
	}
	if _, err := CodecFor(m.Format); err != nil {
		return m, &domain.LoadError{Path: dir, Err: err}
	}
	return m, nil
}

// Load restores the snapshot at dir. Any failure is reported as *domain.LoadError.
func Load(dir string) (*Snapshot, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	codec, _ := CodecFor(m.Format)
	chunks, vectors, err := codec.Decode(filepath.Join(dir, codec.FileName()))
	if err != nil {
		return nil, &domain.LoadError{Path: dir, Err: err}
	}
	if len(chunks) != m.Chunks || len(vectors) != m.Chunks {
		return nil, &domain.LoadError{Path: dir, Err: fmt.Errorf("manifest lists %d chunks, data holds %d chunks and %d vectors", m.Chunks, len(chunks), len(vectors))}
	}
	for i, v := range vectors {
		if len(v) != m.Dimension {
			return nil, &domain.LoadError{Path: dir, Err: fmt.Errorf("vector %d has dimension %d, manifest says %d", i, len(v), m.Dimension)}
		}
	}
	return &Snapshot{Manifest: m, Chunks: chunks, Vectors: vectors}, nil
}

// Save writes s to dir, replacing any previous snapshot directory. The data is
// staged in a sibling directory and renamed into place. A dir that exists but
// is not a directory is left untouched. Failures are *domain.WriteError.
func Save(dir string, s *Snapshot) (err error) {
	codec, err := CodecFor(s.Manifest.Format)
	if err != nil {
		return &domain.WriteError{Path: dir, Err: err}
	}
	if len(s.Chunks) != len(s.Vectors) {
		return &domain.WriteError{Path: dir, Err: errors.New("chunks and vectors length mismatch")}
	}
	info, statErr := os.Lstat(dir)
	switch {
	case statErr == nil && !info.IsDir():
		return &domain.WriteError{Path: dir, Err: errors.New("path exists and is not a snapshot directory")}
	case statErr != nil && !errors.Is(statErr, os.ErrNotExist):
		return &domain.WriteError{Path: dir, Err: statErr}
	}
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return &domain.WriteError{Path: dir, Err: err}
	}
	tmp, err := os.MkdirTemp(parent, filepath.Base(dir)+".tmp-*")
	if err != nil {
		return &domain.WriteError{Path: dir, Err: err}
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := codec.Encode(filepath.Join(tmp, codec.FileName()), s.Chunks, s.Vectors); err != nil {
		return &domain.WriteError{Path: dir, Err: err}
	}
	m := s.Manifest
	m.Version = Version
	m.Format = codec.Format()
	m.Chunks = len(s.Chunks)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return &domain.WriteError{Path: dir, Err: err}
	}
	if err := os.WriteFile(filepath.Join(tmp, manifestFile), data, 0o644); err != nil {
		return &domain.WriteError{Path: dir, Err: err}
	}
	// The previous snapshot is moved aside and restored if the swap fails.
	var previous string
	if statErr == nil {
		previous = tmp + ".old"
		if err := os.Rename(dir, previous); err != nil {
			return &domain.WriteError{Path: dir, Err: err}
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		if previous != "" {
			_ = os.Rename(previous, dir)
		}
		return &domain.WriteError{Path: dir, Err: err}
	}
	if previous != "" {
		_ = os.RemoveAll(previous)
	}
	return nil
}
