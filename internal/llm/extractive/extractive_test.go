package extractive

import (
	"context"
	"strings"
	"testing"

	"ragqa/internal/llm"
)

func TestProvider_PicksMatchingSentence(t *testing.T) {
	p := New(1)
	answer, err := p.Complete(context.Background(), llm.Prompt{
		Question: "What is LangChain?",
		Context: []string{
			"The lazy dog sleeps. Foxes are quick.",
			"LangChain is a framework for developing applications powered by language models. It is open source.",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "LangChain is a framework for developing applications powered by language models." {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestProvider_KeepsOriginalOrder(t *testing.T) {
	p := New(2)
	answer, _ := p.Complete(context.Background(), llm.Prompt{
		Question: "chains and agents",
		Context:  []string{"Agents pick tools. Unrelated filler here. Chains call models in sequence."},
	})
	if !strings.HasPrefix(answer, "Agents pick tools.") || !strings.HasSuffix(answer, "Chains call models in sequence.") {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestProvider_NoOverlap(t *testing.T) {
	answer, _ := New(3).Complete(context.Background(), llm.Prompt{
		Question: "quantum chromodynamics",
		Context:  []string{"The lazy dog sleeps."},
	})
	if answer != NoAnswer {
		t.Errorf("expected %q, got %q", NoAnswer, answer)
	}
}

func TestProvider_EmptyContext(t *testing.T) {
	answer, _ := New(3).Complete(context.Background(), llm.Prompt{Question: "anything"})
	if answer != NoAnswer {
		t.Errorf("expected %q, got %q", NoAnswer, answer)
	}
}
