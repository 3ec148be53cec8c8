package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"ragqa/internal/domain"
	"ragqa/internal/embedding"
	"ragqa/internal/llm"
	"ragqa/internal/vectorstore"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// Options tunes retrieval and prompting.
type Options struct {
	TopK         int
	SystemPrompt string
}

// RAGService answers questions over an indexed corpus.
type RAGService struct {
	embedder embedding.Embedder
	store    vectorstore.Storage
	provider llm.Provider
	opts     Options
	logger   *slog.Logger
}

func NewRAGService(embedder embedding.Embedder, store vectorstore.Storage, provider llm.Provider, opts Options, logger *slog.Logger) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = llm.DefaultSystemPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGService{embedder: embedder, store: store, provider: provider, opts: opts, logger: logger}
}

// Answer retrieves the chunks most similar to query and asks the provider to
// answer from them. The provider's text is returned unmodified.
func (s *RAGService) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	results, err := s.Query(ctx, query, s.opts.TopK)
	if err != nil {
		return nil, err
	}
	prompt := llm.Prompt{System: s.opts.SystemPrompt, Question: query}
	for _, r := range results {
		prompt.Context = append(prompt.Context, r.Chunk.Text)
	}
	s.logger.Debug("asking provider", "provider", s.provider.Name(), "context_chunks", len(prompt.Context))
	text, err := s.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &domain.Answer{Query: query, Text: text, Sources: results}, nil
}

// Query returns the topK chunks nearest to query. When the embedding carries no
// signal it falls back to token overlap ranking.
func (s *RAGService) Query(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}
	vec := vecs[0]
	zero := true
	for _, v := range vec {
		if v != 0 {
			zero = false
			break
		}
	}
	if zero {
		s.logger.Debug("query embedding is empty, using lexical ranking")
		return s.lexicalSearch(query, topK), nil
	}
	res, err := s.store.Search(vec, topK)
	if err != nil {
		return nil, err
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		s.logger.Debug("no similar chunks, using lexical ranking")
		return s.lexicalSearch(query, topK), nil
	}
	return res, nil
}

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

func (s *RAGService) lexicalSearch(query string, topK int) []domain.SearchResult {
	chunks, _ := s.store.Entries()
	qset := toTokenSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(chunks))
	for i, ch := range chunks {
		scores[i] = pair{i, overlapOchiai(qset, ch.Text)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.SearchResult, 0, topK)
	for _, p := range scores[:topK] {
		out = append(out, domain.SearchResult{Chunk: chunks[p.idx], Score: p.score})
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai returns |A∩B| / sqrt(|A||B|) over distinct lowercase words.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	stoks := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(stoks))
	inter := 0
	for _, t := range stoks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
