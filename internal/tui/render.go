package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ragqa/internal/domain"
)

// RenderAnswer writes the answer followed by its sources, highlighting the
// sentence of each source that best matches the question.
func RenderAnswer(w io.Writer, ans *domain.Answer) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(ans.Text))
	b.WriteString("\n")
	if len(ans.Sources) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Sources"))
		b.WriteString("\n")
	}
	for i, r := range ans.Sources {
		title := fmt.Sprintf("[%d] chunk %d  score=%.3f", i+1, r.Chunk.Index, r.Score)
		b.WriteString(sourceTitleStyle.Render(title))
		b.WriteString("\n")
		b.WriteString(highlightBestSentence(r.Chunk.Text, ans.Query))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the answer as an indented JSON object.
func RenderJSON(w io.Writer, ans *domain.Answer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ans)
}

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sourceTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe       = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := splitSentences(text)
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx && bestScore > 0 {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

// splitSentences keeps any trailing text that lacks terminal punctuation.
func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		out = append(out, text[loc[0]:loc[1]])
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
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

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
