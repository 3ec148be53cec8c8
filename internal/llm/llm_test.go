package llm

import "testing"

func TestPrompt_UserMessage(t *testing.T) {
	p := Prompt{Question: " What is LangChain? ", Context: []string{"LangChain is a framework.\n", "Chains compose calls."}}
	want := "LangChain is a framework.\n\nChains compose calls.\n\nQuestion: What is LangChain?\nHelpful Answer:"
	if got := p.UserMessage(); got != want {
		t.Errorf("unexpected message:\n%q\nwant\n%q", got, want)
	}
}

func TestPrompt_UserMessageNoContext(t *testing.T) {
	p := Prompt{Question: "hi"}
	if got := p.UserMessage(); got != "Question: hi\nHelpful Answer:" {
		t.Errorf("unexpected message %q", got)
	}
}
