package openrouter

import (
	"strings"
	"testing"
)

func filterAll(f *actionPromptFilter, fragments ...string) string {
	var out strings.Builder
	for _, fragment := range fragments {
		out.WriteString(f.Filter(fragment))
	}
	out.WriteString(f.Flush())
	return out.String()
}

func TestActionPromptFilterRemovesDirectivesAndTrailingSpace(t *testing.T) {
	got := filterAll(&actionPromptFilter{}, "[happy]  Hello, ", "[smiles] friend.")
	if got != "Hello, friend." {
		t.Fatalf("expected %q, got %q", "Hello, friend.", got)
	}
}

func TestActionPromptFilterReleasesUnclosedBracketOnNewline(t *testing.T) {
	got := filterAll(&actionPromptFilter{}, "see [note\nnext")
	if got != "see [note\nnext" {
		t.Fatalf("expected unclosed bracket to be kept, got %q", got)
	}
}

func TestActionPromptFilterReleasesUnclosedBracketAtEnd(t *testing.T) {
	got := filterAll(&actionPromptFilter{}, "trailing [open")
	if got != "trailing [open" {
		t.Fatalf("expected held text to be flushed, got %q", got)
	}
}

func TestActionPromptFilterReleasesOverlongBracket(t *testing.T) {
	long := "[" + strings.Repeat("x", maxActionPromptRunes+5)
	got := filterAll(&actionPromptFilter{}, long)
	if got != long {
		t.Fatalf("expected overlong bracket to be released, got %q", got)
	}
}
