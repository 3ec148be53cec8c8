package llm

import (
	"context"
	"strings"
)

// DefaultSystemPrompt instructs the model to stay within the retrieved context.
const DefaultSystemPrompt = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer."

// Prompt is a single question with the retrieved context passages.
type Prompt struct {
	System   string
	Question string
	Context  []string
}

// UserMessage renders the context passages followed by the question.
func (p Prompt) UserMessage() string {
	var b strings.Builder
	for i, c := range p.Context {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(c))
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(p.Question))
	b.WriteString("\nHelpful Answer:")
	return b.String()
}

// Provider produces an answer for a prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}
