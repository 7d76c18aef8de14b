package corrector

import (
	"context"
	"strings"
	"testing"

	"vibeforge/internal/fileset"
	"vibeforge/internal/gemini"
	"vibeforge/internal/report"
)

type fakeFixer struct {
	fix     func(path, content string, errors []string, strategy string) (string, error)
	rewrite func(path, content string, errors []string) (string, error)

	fixCalls     []string // "strategy:path"
	rewriteCalls []string
}

func (f *fakeFixer) FixCode(_ context.Context, path, content string, errors []string, strategy string, _ gemini.Persona) (string, error) {
	f.fixCalls = append(f.fixCalls, strategy+":"+path)
	if f.fix != nil {
		return f.fix(path, content, errors, strategy)
	}
	return content, nil
}

func (f *fakeFixer) RegenerateFile(_ context.Context, path, content string, errors []string) (string, error) {
	f.rewriteCalls = append(f.rewriteCalls, path)
	if f.rewrite != nil {
		return f.rewrite(path, content, errors)
	}
	return content, nil
}

// scriptedTester returns each report in order, repeating the last one.
type scriptedTester struct {
	reports []*report.TestReport
	calls   int
}

func (t *scriptedTester) TestProject(_ context.Context, _ *fileset.FileSet, _ string) *report.TestReport {
	i := t.calls
	if i >= len(t.reports) {
		i = len(t.reports) - 1
	}
	t.calls++
	return t.reports[i]
}

func failingReport(c report.Classification, errs ...string) *report.TestReport {
	rep := &report.TestReport{Classification: c, Errors: errs}
	if c == report.SyntaxError {
		rep.SyntaxIssues = errs
	}
	if c == report.RuntimeError {
		rep.RuntimeIssues = errs
	}
	return rep
}

func passingReport() *report.TestReport {
	return &report.TestReport{Classification: report.Success, Success: true}
}

func sampleFiles() *fileset.FileSet {
	return fileset.FromMap(map[string]string{
		"main.py":  "print(x\n",
		"util.py":  "def helper():\n    return 1\n",
		"notes.md": "readme\n",
	})
}

func TestAlreadySuccessfulNeedsNoWork(t *testing.T) {
	fixer := &fakeFixer{}
	engine := NewEngine(fixer, &scriptedTester{}, 5)
	files := sampleFiles()

	session := engine.CorrectProject(context.Background(), "clean", files, passingReport())

	if !session.Success || session.FinalScore != 100.0 {
		t.Fatalf("success=%v score=%v", session.Success, session.FinalScore)
	}
	if len(session.Attempts) != 0 {
		t.Errorf("attempts = %d, want 0", len(session.Attempts))
	}
	if len(fixer.fixCalls)+len(fixer.rewriteCalls) != 0 {
		t.Error("fixer invoked for passing project")
	}
	if session.FinalFiles.Hash() != files.Hash() {
		t.Error("final files differ from originals")
	}
}

func TestCorrectionSucceedsOnSecondAttempt(t *testing.T) {
	fixer := &fakeFixer{
		fix: func(path, content string, _ []string, _ string) (string, error) {
			return content + "# fixed\n", nil
		},
	}
	tst := &scriptedTester{reports: []*report.TestReport{
		failingReport(report.RuntimeError, "main.py: NameError: name 'x' is not defined"),
		passingReport(),
	}}
	engine := NewEngine(fixer, tst, 5)

	initial := failingReport(report.RuntimeError,
		"main.py: NameError: name 'x' is not defined",
		"util.py: AttributeError")

	session := engine.CorrectProject(context.Background(), "proj", sampleFiles(), initial)

	if !session.Success {
		t.Fatalf("session failed: %+v", session)
	}
	if len(session.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(session.Attempts))
	}
	if session.FinalScore != 100.0 {
		t.Errorf("final score = %v", session.FinalScore)
	}

	// Runtime progression starts at standard, then escalates to aggressive.
	if session.Attempts[0].Strategy != StrategyStandard {
		t.Errorf("attempt 1 strategy = %s", session.Attempts[0].Strategy)
	}
	if session.Attempts[1].Strategy != StrategyAggressive {
		t.Errorf("attempt 2 strategy = %s", session.Attempts[1].Strategy)
	}

	// First attempt improved (2 errors -> 1), so its files were adopted.
	content, _ := session.FinalFiles.Get("main.py")
	if !strings.Contains(content, "# fixed") {
		t.Error("final files missing applied fix")
	}
}

func TestRepeatedHashForcesRewrite(t *testing.T) {
	// Fixer returns content verbatim, so the candidate never changes and no
	// improvement is recorded.
	fixer := &fakeFixer{}
	tst := &scriptedTester{reports: []*report.TestReport{
		failingReport(report.RuntimeError, "main.py: NameError"),
	}}
	engine := NewEngine(fixer, tst, 3)

	session := engine.CorrectProject(context.Background(), "stuck", sampleFiles(),
		failingReport(report.RuntimeError, "main.py: NameError"))

	if session.Success {
		t.Fatal("stuck session reported success")
	}
	if len(session.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(session.Attempts))
	}
	if session.Attempts[0].Strategy != StrategyStandard {
		t.Errorf("attempt 1 strategy = %s", session.Attempts[0].Strategy)
	}
	for _, a := range session.Attempts[1:] {
		if a.Strategy != StrategyRewrite {
			t.Errorf("attempt %d strategy = %s, want rewrite after repeated hash", a.Number, a.Strategy)
		}
	}
	if len(fixer.rewriteCalls) == 0 {
		t.Error("rewrite never invoked")
	}
}

func TestNoImprovementReturnsOriginalFiles(t *testing.T) {
	fixer := &fakeFixer{
		fix: func(path, content string, _ []string, _ string) (string, error) {
			return content + "# worse\n", nil
		},
		rewrite: func(path, content string, _ []string) (string, error) {
			return content + "# worse\n", nil
		},
	}
	tst := &scriptedTester{reports: []*report.TestReport{
		failingReport(report.RuntimeError, "main.py: NameError", "util.py: TypeError", "main.py: ValueError"),
	}}
	engine := NewEngine(fixer, tst, 2)
	files := sampleFiles()

	session := engine.CorrectProject(context.Background(), "worse", files,
		failingReport(report.RuntimeError, "main.py: NameError"))

	if session.Success {
		t.Fatal("failing session reported success")
	}
	if session.FinalScore != 0 {
		t.Errorf("final score = %v, want 0", session.FinalScore)
	}
	if session.FinalFiles.Hash() != files.Hash() {
		t.Error("final files not the originals after zero improvement")
	}
}

func TestPartialImprovementKeepsBestAttempt(t *testing.T) {
	fixer := &fakeFixer{
		fix: func(path, content string, _ []string, _ string) (string, error) {
			return content + "# pass\n", nil
		},
		rewrite: func(path, content string, _ []string) (string, error) {
			return content + "# pass\n", nil
		},
	}
	// Errors drop from 4 to 2 and then stay there.
	tst := &scriptedTester{reports: []*report.TestReport{
		failingReport(report.RuntimeError, "main.py: NameError", "util.py: TypeError"),
	}}
	engine := NewEngine(fixer, tst, 2)

	session := engine.CorrectProject(context.Background(), "partial", sampleFiles(),
		failingReport(report.RuntimeError, "main.py: a", "main.py: b", "util.py: c", "util.py: d"))

	if session.Success {
		t.Fatal("partial session reported success")
	}
	if session.FinalScore != 50.0 {
		t.Errorf("final score = %v, want 50", session.FinalScore)
	}
	content, _ := session.FinalFiles.Get("main.py")
	if !strings.Contains(content, "# pass") {
		t.Error("final files missing best attempt's changes")
	}
}

func TestSelectStrategyProgressions(t *testing.T) {
	tests := []struct {
		name           string
		classification report.Classification
		attempt        int
		want           Strategy
	}{
		{"syntax first", report.SyntaxError, 1, StrategyConservative},
		{"syntax second", report.SyntaxError, 2, StrategyStandard},
		{"syntax fourth", report.SyntaxError, 4, StrategyRewrite},
		{"runtime first", report.RuntimeError, 1, StrategyStandard},
		{"runtime third", report.RuntimeError, 3, StrategyPersonaSwitch},
		{"security first", report.SecurityError, 1, StrategyAggressive},
		{"security second", report.SecurityError, 2, StrategyRewrite},
		{"timeout first", report.Timeout, 1, StrategyAggressive},
		{"unknown first", report.UnknownError, 1, StrategyStandard},
		{"memory first", report.MemoryError, 1, StrategyStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := &report.TestReport{Classification: tt.classification}
			if got := selectStrategy(rep, tt.attempt, 10); got != tt.want {
				t.Errorf("selectStrategy() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSelectStrategyEscalation(t *testing.T) {
	rep := &report.TestReport{Classification: report.SecurityError}

	// Security ladder has two rungs; past it, position decides.
	if got := selectStrategy(rep, 8, 10); got != StrategyRewrite {
		t.Errorf("attempt 8/10 = %s, want rewrite", got)
	}
	if got := selectStrategy(rep, 6, 10); got != StrategyPersonaSwitch {
		t.Errorf("attempt 6/10 = %s, want persona_switch", got)
	}
	if got := selectStrategy(rep, 4, 10); got != StrategyAggressive {
		t.Errorf("attempt 4/10 = %s, want aggressive", got)
	}
}

func TestSelectPersona(t *testing.T) {
	if got := selectPersona(StrategyStandard, 1, report.SecurityError); got != gemini.PersonaSecurityExpert {
		t.Errorf("security persona = %s", got)
	}
	if got := selectPersona(StrategyStandard, 1, report.Timeout); got != gemini.PersonaOptimizer {
		t.Errorf("timeout persona = %s", got)
	}
	if got := selectPersona(StrategyStandard, 1, report.UnknownError); got != gemini.PersonaSeniorDeveloper {
		t.Errorf("fallback persona = %s", got)
	}

	// Persona switch cycles the roster by attempt number.
	cycle := []gemini.Persona{
		gemini.PersonaDebugger,
		gemini.PersonaSeniorDeveloper,
		gemini.PersonaOptimizer,
		gemini.PersonaArchitect,
		gemini.PersonaSecurityExpert,
		gemini.PersonaDebugger,
	}
	for i, want := range cycle {
		if got := selectPersona(StrategyPersonaSwitch, i+1, report.RuntimeError); got != want {
			t.Errorf("cycle attempt %d = %s, want %s", i+1, got, want)
		}
	}
}

func TestImprovementScore(t *testing.T) {
	tests := []struct {
		name   string
		before *report.TestReport
		after  *report.TestReport
		want   float64
	}{
		{
			name:   "success is perfect",
			before: failingReport(report.RuntimeError, "a", "b"),
			after:  passingReport(),
			want:   100,
		},
		{
			name:   "half the errors",
			before: failingReport(report.RuntimeError, "a", "b", "c", "d"),
			after:  failingReport(report.RuntimeError, "a", "b"),
			want:   50,
		},
		{
			name:   "more errors scores zero",
			before: failingReport(report.RuntimeError, "a"),
			after:  failingReport(report.RuntimeError, "a", "b"),
			want:   0,
		},
		{
			name:   "no prior errors and still failing",
			before: &report.TestReport{Classification: report.UnknownError},
			after:  failingReport(report.RuntimeError, "a"),
			want:   0,
		},
		{
			name: "syntax bonus",
			before: &report.TestReport{
				Classification: report.SyntaxError,
				Errors:         []string{"a", "b"},
				SyntaxIssues:   []string{"a", "b"},
			},
			after: &report.TestReport{
				Classification: report.SyntaxError,
				Errors:         []string{"a"},
				SyntaxIssues:   []string{"a"},
			},
			want: 60, // 50% reduction + 10 syntax bonus
		},
		{
			name: "capped at 100",
			before: &report.TestReport{
				Classification: report.SecurityError,
				Errors:         []string{"a", "b"},
				SyntaxIssues:   []string{"a"},
				SecurityIssues: []string{"b"},
			},
			after: &report.TestReport{
				Classification: report.RuntimeError,
				Errors:         []string{"c"},
			},
			want: 80, // 50% reduction + 10 + 20
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := improvementScore(tt.before, tt.after); got != tt.want {
				t.Errorf("improvementScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBestAttempt(t *testing.T) {
	if bestAttempt(nil) != nil {
		t.Error("empty attempts returned non-nil")
	}

	attempts := []Attempt{
		{Number: 1, ImprovementScore: 30},
		{Number: 2, ImprovementScore: 60},
		{Number: 3, ImprovementScore: 10},
	}
	if got := bestAttempt(attempts); got.Number != 2 {
		t.Errorf("best attempt = %d, want 2", got.Number)
	}

	attempts[2].Success = true
	if got := bestAttempt(attempts); got.Number != 3 {
		t.Errorf("best attempt = %d, want first success", got.Number)
	}
}
