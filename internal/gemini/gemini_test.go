package gemini

import (
	"strings"
	"testing"
)

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "fenced with language",
			response: "Here you go:\n```python\nprint('hi')\n```\nDone.",
			want:     "print('hi')",
		},
		{
			name:     "fenced without language",
			response: "```\nx = 1\ny = 2\n```",
			want:     "x = 1\ny = 2",
		},
		{
			name:     "bare response",
			response: "  def f():\n    return 1\n",
			want:     "def f():\n    return 1",
		},
		{
			name:     "first block wins",
			response: "```python\na = 1\n```\nand also\n```python\nb = 2\n```",
			want:     "a = 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCode(tt.response); got != tt.want {
				t.Errorf("ExtractCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildFixPrompt(t *testing.T) {
	prompt := BuildFixPrompt("main.py", "print(x", []string{"main.py:1: unexpected EOF"}, "conservative")

	for _, want := range []string{
		"main.py",
		"print(x",
		"unexpected EOF",
		"minimal changes",
		"ONLY the fixed code",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("fix prompt missing %q", want)
		}
	}
}

func TestBuildFixPromptUnknownStrategyFallsBack(t *testing.T) {
	prompt := BuildFixPrompt("a.py", "x", nil, "nonsense")
	if !strings.Contains(prompt, strategyInstructions["standard"]) {
		t.Error("unknown strategy did not fall back to standard instruction")
	}
}

func TestBuildRewritePrompt(t *testing.T) {
	prompt := BuildRewritePrompt("app.py", "broken = ", []string{"SyntaxError", "NameError"})

	for _, want := range []string{
		"app.py",
		"SyntaxError, NameError",
		"rewrite this file completely",
		"broken = ",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("rewrite prompt missing %q", want)
		}
	}
}

func TestClientCloseIsSafe(t *testing.T) {
	var c Client
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPersonaSystemPrompts(t *testing.T) {
	all := []Persona{
		PersonaSeniorDeveloper,
		PersonaCodeReviewer,
		PersonaDebugger,
		PersonaArchitect,
		PersonaTester,
		PersonaOptimizer,
		PersonaSecurityExpert,
	}

	seen := make(map[string]Persona, len(all))
	for _, p := range all {
		if !p.Valid() {
			t.Errorf("persona %s reported invalid", p)
		}
		sp := p.SystemPrompt()
		if sp == "" {
			t.Errorf("persona %s has empty system prompt", p)
		}
		if prev, dup := seen[sp]; dup {
			t.Errorf("personas %s and %s share a system prompt", prev, p)
		}
		seen[sp] = p
	}

	if got := Persona("made_up").SystemPrompt(); got != PersonaSeniorDeveloper.SystemPrompt() {
		t.Error("unknown persona did not fall back to senior developer")
	}
	if Persona("made_up").Valid() {
		t.Error("unknown persona reported valid")
	}
}
