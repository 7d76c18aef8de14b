package corrector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vibeforge/internal/fileset"
	"vibeforge/internal/gemini"
	"vibeforge/internal/logging"
	"vibeforge/internal/report"
)

// Fixer produces corrected file content. Satisfied by *gemini.Client.
type Fixer interface {
	FixCode(ctx context.Context, path, content string, errors []string, strategy string, persona gemini.Persona) (string, error)
	RegenerateFile(ctx context.Context, path, content string, errors []string) (string, error)
}

// Tester validates a candidate file set. Satisfied by *tester.Orchestrator.
type Tester interface {
	TestProject(ctx context.Context, fs *fileset.FileSet, name string) *report.TestReport
}

// Attempt records one correction round.
type Attempt struct {
	Number           int
	Strategy         Strategy
	Persona          gemini.Persona
	OriginalErrors   []string
	Files            *fileset.FileSet
	Report           *report.TestReport
	Success          bool
	ImprovementScore float64
	CodeHash         string
	Timestamp        time.Time
}

// Session is the complete record of a correction run.
type Session struct {
	ProjectName   string
	OriginalFiles *fileset.FileSet
	Attempts      []Attempt
	FinalFiles    *fileset.FileSet
	TotalTime     time.Duration
	Success       bool
	FinalScore    float64
}

// Engine drives the correction loop: pick a strategy, ask the fixer for
// corrected files, re-test, and keep whatever improves.
type Engine struct {
	fixer       Fixer
	tester      Tester
	maxAttempts int
}

// NewEngine creates a correction engine.
func NewEngine(fixer Fixer, tester Tester, maxAttempts int) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Engine{
		fixer:       fixer,
		tester:      tester,
		maxAttempts: maxAttempts,
	}
}

// CorrectProject runs the correction loop until the project passes, the
// attempt budget is spent, or the context is cancelled. The session always
// carries usable final files: the fix, the best partial improvement, or the
// untouched originals.
func (e *Engine) CorrectProject(ctx context.Context, name string, files *fileset.FileSet, initial *report.TestReport) *Session {
	start := time.Now()
	session := &Session{
		ProjectName:   name,
		OriginalFiles: files.Clone(),
		FinalFiles:    files.Clone(),
	}

	logging.Session("Starting correction session for project: %s", name)

	if initial.Success {
		logging.Session("Project already passes all tests, no correction needed")
		session.Success = true
		session.FinalScore = 100.0
		session.TotalTime = time.Since(start)
		return session
	}

	current := files.Clone()
	currentReport := initial
	seenHashes := make(map[string]bool)

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			logging.CorrectorWarn("Correction cancelled after %d attempts", len(session.Attempts))
			break
		}

		var strategy Strategy
		hash := current.Hash()
		if seenHashes[hash] {
			logging.CorrectorWarn("Code hash already seen, switching to drastic strategy")
			strategy = StrategyRewrite
		} else {
			seenHashes[hash] = true
			strategy = selectStrategy(currentReport, attempt, e.maxAttempts)
		}

		persona := selectPersona(strategy, attempt, currentReport.Classification)

		logging.Corrector("Attempt %d/%d: Strategy=%s, Persona=%s", attempt, e.maxAttempts, strategy, persona)

		corrected, err := e.applyStrategy(ctx, current, currentReport, strategy, persona)
		if err != nil {
			logging.CorrectorError("Correction attempt %d failed: %v", attempt, err)
			continue
		}

		testReport := e.tester.TestProject(ctx, corrected, fmt.Sprintf("%s_attempt_%d", name, attempt))
		score := improvementScore(currentReport, testReport)

		session.Attempts = append(session.Attempts, Attempt{
			Number:           attempt,
			Strategy:         strategy,
			Persona:          persona,
			OriginalErrors:   append([]string(nil), currentReport.Errors...),
			Files:            corrected,
			Report:           testReport,
			Success:          testReport.Success,
			ImprovementScore: score,
			CodeHash:         corrected.Hash(),
			Timestamp:        time.Now(),
		})

		logging.Corrector("Attempt %d result: Success=%v, Improvement=%.1f%%, Errors=%d",
			attempt, testReport.Success, score, len(testReport.Errors))

		if testReport.Success {
			logging.Corrector("Project corrected successfully in %d attempts", attempt)
			session.FinalFiles = corrected
			session.Success = true
			session.FinalScore = 100.0
			break
		}

		if score > 0 {
			logging.CorrectorDebug("Improvement detected, continuing with corrected code")
			current = corrected
			currentReport = testReport
		} else {
			logging.CorrectorWarn("No improvement, trying different strategy")
		}
	}

	if !session.Success {
		if best := bestAttempt(session.Attempts); best != nil && best.ImprovementScore > 0 {
			session.FinalFiles = best.Files
			session.FinalScore = best.ImprovementScore
			logging.Corrector("Using best attempt with %.1f%% improvement", best.ImprovementScore)
		} else {
			logging.SessionWarn("No successful correction found, returning original files")
		}
	}

	session.TotalTime = time.Since(start)

	logging.Session("Correction session completed: Success=%v, Time=%.1fs, Attempts=%d",
		session.Success, session.TotalTime.Seconds(), len(session.Attempts))

	return session
}

func (e *Engine) applyStrategy(ctx context.Context, files *fileset.FileSet, rep *report.TestReport, strategy Strategy, persona gemini.Persona) (*fileset.FileSet, error) {
	switch strategy {
	case StrategyConservative:
		return e.conservativeFix(ctx, files, rep, persona)
	case StrategyStandard, StrategyPersonaSwitch:
		return e.standardFix(ctx, files, rep, persona)
	case StrategyAggressive:
		return e.aggressiveFix(ctx, files, rep, persona)
	case StrategyRewrite:
		return e.rewriteFix(ctx, files, rep)
	case StrategyHybrid:
		return e.hybridFix(ctx, files, rep, persona)
	default:
		return e.standardFix(ctx, files, rep, persona)
	}
}

// conservativeFix repairs only files implicated in critical errors: syntax
// issues plus the runtime errors most likely to be structural.
func (e *Engine) conservativeFix(ctx context.Context, files *fileset.FileSet, rep *report.TestReport, persona gemini.Persona) (*fileset.FileSet, error) {
	critical := append([]string(nil), rep.SyntaxIssues...)
	for _, issue := range rep.RuntimeIssues {
		lower := strings.ToLower(issue)
		for _, keyword := range []string{"syntax", "indentation", "import", "undefined"} {
			if strings.Contains(lower, keyword) {
				critical = append(critical, issue)
				break
			}
		}
	}

	if len(critical) == 0 {
		return files.Clone(), nil
	}

	updates := make(map[string]string)
	for _, path := range files.Paths() {
		if !mentionedIn(path, critical) {
			continue
		}
		content, _ := files.Get(path)
		fixed, err := e.fixer.FixCode(ctx, path, content, critical, string(StrategyConservative), persona)
		if err != nil {
			logging.CorrectorError("Conservative fix failed for %s: %v", path, err)
			continue
		}
		updates[path] = fixed
		logging.CorrectorDebug("Conservative fix applied to %s", path)
	}

	return files.Merge(updates), nil
}

// standardFix repairs every file with errors attributed to it. Errors that
// name no file at all are handed to every file.
func (e *Engine) standardFix(ctx context.Context, files *fileset.FileSet, rep *report.TestReport, persona gemini.Persona) (*fileset.FileSet, error) {
	if len(rep.Errors) == 0 {
		return files.Clone(), nil
	}

	updates := make(map[string]string)
	for _, path := range files.Paths() {
		var relevant []string
		for _, errMsg := range rep.Errors {
			if strings.Contains(errMsg, path) || !mentionsAnyFile(errMsg, files) {
				relevant = append(relevant, errMsg)
			}
		}
		if len(relevant) == 0 {
			continue
		}

		content, _ := files.Get(path)
		fixed, err := e.fixer.FixCode(ctx, path, content, relevant, string(StrategyStandard), persona)
		if err != nil {
			logging.CorrectorError("Standard fix failed for %s: %v", path, err)
			continue
		}
		updates[path] = fixed
		logging.CorrectorDebug("Standard fix applied to %s", path)
	}

	return files.Merge(updates), nil
}

// aggressiveFix hands every file the full issue list, warnings and
// suggestions included, and accepts sweeping changes.
func (e *Engine) aggressiveFix(ctx context.Context, files *fileset.FileSet, rep *report.TestReport, persona gemini.Persona) (*fileset.FileSet, error) {
	var allIssues []string
	allIssues = append(allIssues, rep.Errors...)
	allIssues = append(allIssues, rep.Warnings...)
	allIssues = append(allIssues, rep.Suggestions...)

	updates := make(map[string]string)
	for _, path := range files.Paths() {
		content, _ := files.Get(path)
		fixed, err := e.fixer.FixCode(ctx, path, content, allIssues, string(StrategyAggressive), persona)
		if err != nil {
			logging.CorrectorError("Aggressive fix failed for %s: %v", path, err)
			continue
		}
		updates[path] = fixed
		logging.CorrectorDebug("Aggressive fix applied to %s", path)
	}

	return files.Merge(updates), nil
}

// rewriteFix regenerates the most problematic files from scratch. When the
// errors name no file (a truncated traceback, a harness-level failure), every
// Python file is regenerated so a forced rewrite can never be a no-op.
func (e *Engine) rewriteFix(ctx context.Context, files *fileset.FileSet, rep *report.TestReport) (*fileset.FileSet, error) {
	targets := problematicFiles(files, rep)
	if len(targets) == 0 {
		targets = files.PythonFiles()
	}

	updates := make(map[string]string)
	for _, path := range targets {
		content, ok := files.Get(path)
		if !ok {
			continue
		}
		rewritten, err := e.fixer.RegenerateFile(ctx, path, content, rep.Errors)
		if err != nil {
			logging.CorrectorError("Rewrite failed for %s: %v", path, err)
			continue
		}
		updates[path] = rewritten
		logging.Corrector("File %s completely rewritten", path)
	}

	return files.Merge(updates), nil
}

// hybridFix applies a conservative pass, re-tests, and finishes with an
// aggressive pass on whatever still fails.
func (e *Engine) hybridFix(ctx context.Context, files *fileset.FileSet, rep *report.TestReport, persona gemini.Persona) (*fileset.FileSet, error) {
	corrected, err := e.conservativeFix(ctx, files, rep, persona)
	if err != nil {
		return nil, err
	}

	intermediate := e.tester.TestProject(ctx, corrected, "hybrid_intermediate")
	if intermediate.Success {
		return corrected, nil
	}

	return e.aggressiveFix(ctx, corrected, intermediate, persona)
}

// problematicFiles ranks files by how often the error list mentions them and
// returns the worst three.
func problematicFiles(files *fileset.FileSet, rep *report.TestReport) []string {
	counts := make(map[string]int)
	for _, errMsg := range rep.Errors {
		for _, path := range files.Paths() {
			if strings.Contains(errMsg, path) {
				counts[path]++
			}
		}
	}

	var ranked []string
	for path := range counts {
		ranked = append(ranked, path)
	}
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if counts[ranked[j]] > counts[ranked[i]] {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}

	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	return ranked
}

// improvementScore compares two reports. Success is a perfect score; anything
// else scores the error reduction with bonuses for clearing syntax or
// security issues.
func improvementScore(before, after *report.TestReport) float64 {
	if after.Success {
		return 100.0
	}

	oldCount := before.ErrorCount()
	newCount := after.ErrorCount()

	if oldCount == 0 {
		if newCount > 0 {
			return 0.0
		}
		return 100.0
	}

	reduction := float64(oldCount-newCount) / float64(oldCount) * 100
	if reduction < 0 {
		reduction = 0
	}

	bonus := 0.0
	if len(after.SyntaxIssues) < len(before.SyntaxIssues) {
		bonus += 10
	}
	if len(after.SecurityIssues) < len(before.SecurityIssues) {
		bonus += 20
	}

	score := reduction + bonus
	if score > 100 {
		score = 100
	}
	return score
}

// bestAttempt prefers the first success, then the highest improvement.
func bestAttempt(attempts []Attempt) *Attempt {
	if len(attempts) == 0 {
		return nil
	}

	for i := range attempts {
		if attempts[i].Success {
			return &attempts[i]
		}
	}

	best := &attempts[0]
	for i := range attempts[1:] {
		if attempts[i+1].ImprovementScore > best.ImprovementScore {
			best = &attempts[i+1]
		}
	}
	return best
}

func mentionedIn(path string, messages []string) bool {
	for _, m := range messages {
		if strings.Contains(m, path) {
			return true
		}
	}
	return false
}

func mentionsAnyFile(message string, files *fileset.FileSet) bool {
	for _, path := range files.Paths() {
		if strings.Contains(message, path) {
			return true
		}
	}
	return false
}
