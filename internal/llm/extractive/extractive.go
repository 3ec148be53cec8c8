// Package extractive answers questions offline by quoting the context
// sentences that best match the question.
package extractive

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"ragqa/internal/llm"
)

// NoAnswer is returned when no context sentence shares a term with the question.
const NoAnswer = "I don't know."

// Provider ranks context sentences by term frequency, boosted by overlap
// with the question, and returns the best ones in their original order.
type Provider struct {
	maxSentences int
	tokenPattern *regexp.Regexp
	sentencePat  *regexp.Regexp
	stopwords    map[string]struct{}
}

// New creates an extractive answerer returning at most maxSentences sentences.
func New(maxSentences int) *Provider {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Provider{
		maxSentences: maxSentences,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		sentencePat:  regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:    defaultStopwords(),
	}
}

func (p *Provider) Name() string { return "extractive" }

// Complete returns the selected sentences joined by spaces.
func (p *Provider) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var sentences []string
	for _, passage := range prompt.Context {
		found := p.sentencePat.FindAllString(passage, -1)
		if len(found) == 0 && strings.TrimSpace(passage) != "" {
			found = []string{passage}
		}
		for _, s := range found {
			if s = strings.TrimSpace(s); s != "" {
				sentences = append(sentences, s)
			}
		}
	}
	question := make(map[string]struct{})
	for _, tok := range p.tokens(prompt.Question) {
		question[tok] = struct{}{}
	}
	if len(sentences) == 0 || len(question) == 0 {
		return NoAnswer, nil
	}
	// Compute word frequencies
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range p.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	type pair struct {
		idx   int
		score float64
	}
	var scores []pair
	for i, sent := range sentences {
		toks := p.tokens(sent)
		if len(toks) == 0 {
			continue
		}
		sscore, hits := 0.0, 0
		for _, tok := range toks {
			sscore += freq[tok]
			if _, ok := question[tok]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		// Normalize by sentence length to avoid bias
		sscore = (sscore + 2*float64(hits)) / math.Sqrt(float64(len(toks)))
		scores = append(scores, pair{i, sscore})
	}
	if len(scores) == 0 {
		return NoAnswer, nil
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	n := p.maxSentences
	if n > len(scores) {
		n = len(scores)
	}
	// Keep original order among selected
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, n)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

func (p *Provider) tokens(text string) []string {
	raw := p.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, ok := p.stopwords[t]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "what", "which", "who", "how", "do", "does",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
