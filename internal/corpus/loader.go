package corpus

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"ragqa/internal/domain"
)

// Loader resolves corpus names to files and reads them.
type Loader struct {
	dir string
	ext string
}

// NewLoader creates a loader reading <dir>/<name><ext>.
func NewLoader(dir, ext string) *Loader {
	if dir == "" {
		dir = "."
	}
	if ext == "" {
		ext = ".txt"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Loader{dir: dir, ext: ext}
}

// Path returns the source path for a corpus name.
func (l *Loader) Path(name string) string {
	return filepath.Join(l.dir, name+l.ext)
}

// Load reads the named corpus. A missing file yields *domain.NotFoundError.
func (l *Loader) Load(name string) (domain.Document, error) {
	path := l.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Document{}, &domain.NotFoundError{Path: path, Err: err}
		}
		return domain.Document{}, fmt.Errorf("read corpus %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return domain.Document{}, fmt.Errorf("corpus %s is not valid UTF-8", path)
	}
	sum := sha256.Sum256(data)
	content := string(data)
	switch strings.ToLower(l.ext) {
	case ".html", ".htm":
		content, err = extractHTML(path, data)
		if err != nil {
			return domain.Document{}, fmt.Errorf("extract text from %s: %w", path, err)
		}
	}
	return domain.Document{
		ID:      name,
		Path:    path,
		Content: content,
		Hash:    hex.EncodeToString(sum[:]),
	}, nil
}

func extractHTML(path string, data []byte) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	article, err := readability.FromReader(bytes.NewReader(data), &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(article.TextContent)
	if article.Title != "" && !strings.HasPrefix(text, article.Title) {
		text = article.Title + "\n\n" + text
	}
	return text, nil
}
