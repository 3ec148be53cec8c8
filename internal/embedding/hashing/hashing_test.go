package hashing

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbedder_NameAndDimension(t *testing.T) {
	e := NewEmbedder(0)
	if e.Dimension() != DefaultDimension {
		t.Errorf("expected default dimension, got %d", e.Dimension())
	}
	if e.Name() != "hashing-512" {
		t.Errorf("unexpected name %q", e.Name())
	}
}

func TestEmbedder_NormalizedAndDeterministic(t *testing.T) {
	e := NewEmbedder(256)
	vecs, err := e.Embed(context.Background(), []string{"LangChain is a framework", "LangChain is a framework"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 256 {
		t.Fatalf("unexpected shape %d x %d", len(vecs), len(vecs[0]))
	}
	if !reflect.DeepEqual(vecs[0], vecs[1]) {
		t.Error("same text produced different vectors")
	}
	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("expected unit vector, norm^2=%f", norm)
	}
}

func TestEmbedder_RelatedTextsAreCloser(t *testing.T) {
	e := NewEmbedder(512)
	vecs, _ := e.Embed(context.Background(), []string{
		"What is LangChain?",
		"LangChain is a framework for developing applications powered by language models.",
		"The lazy dog sleeps in the sun all afternoon.",
	})
	related := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("expected related similarity %f > unrelated %f", related, unrelated)
	}
}

func TestEmbedder_StopwordsOnlyIsZero(t *testing.T) {
	e := NewEmbedder(64)
	vecs, _ := e.Embed(context.Background(), []string{"the and of"})
	for _, v := range vecs[0] {
		if v != 0 {
			t.Fatal("expected zero vector")
		}
	}
}

func TestEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewEmbedder(8).Embed(ctx, []string{"x"}); err == nil {
		t.Fatal("expected context error")
	}
}
