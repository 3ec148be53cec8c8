package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ragqa/internal/domain"
)

func TestLoader_Text(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "demo.txt"), []byte("hello corpus"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(dir, "txt")
	doc, err := l.Load("demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "demo" || doc.Content != "hello corpus" {
		t.Errorf("unexpected document: %+v", doc)
	}
	if len(doc.Hash) != 64 {
		t.Errorf("expected sha256 hex digest, got %q", doc.Hash)
	}
}

func TestLoader_HashChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.txt")
	l := NewLoader(dir, ".txt")
	_ = os.WriteFile(path, []byte("one"), 0o644)
	a, _ := l.Load("demo")
	_ = os.WriteFile(path, []byte("two"), 0o644)
	b, _ := l.Load("demo")
	if a.Hash == b.Hash {
		t.Error("expected hash to change with content")
	}
}

func TestLoader_NotFound(t *testing.T) {
	l := NewLoader(t.TempDir(), ".txt")
	_, err := l.Load("missing")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !strings.HasSuffix(nf.Path, "missing.txt") {
		t.Errorf("unexpected path %s", nf.Path)
	}
}

func TestLoader_HTML(t *testing.T) {
	dir := t.TempDir()
	page := `<html><head><title>LangChain</title></head><body>
<nav>menu</nav>
<article><h1>LangChain</h1>
<p>LangChain is a framework for developing applications powered by language models.
It connects models to sources of context and lets them reason about answers.</p>
<p>Chains combine components into pipelines that can be reused across many applications and tasks.</p>
</article></body></html>`
	if err := os.WriteFile(filepath.Join(dir, "page.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := NewLoader(dir, ".html").Load("page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(doc.Content, "<p>") {
		t.Errorf("markup leaked into content: %q", doc.Content)
	}
	if !strings.Contains(doc.Content, "framework for developing applications") {
		t.Errorf("article text missing: %q", doc.Content)
	}
}
