// Package tester sequences the security gate, syntax/static analysis, and
// the sandboxed execution harness into one classified report per file set.
// TestProject is the sole externally callable testing entry point.
package tester

import (
	"context"
	"time"

	"vibeforge/internal/analysis"
	"vibeforge/internal/fileset"
	"vibeforge/internal/logging"
	"vibeforge/internal/report"
	"vibeforge/internal/sandbox"
	"vibeforge/internal/security"
)

// securitySuggestions accompany every security rejection.
var securitySuggestions = []string{
	"Remove dangerous operations",
	"Use safer alternatives",
}

// Orchestrator owns the "test a file set" operation. All collaborators are
// injected at construction; the orchestrator itself is stateless and safe
// for concurrent use.
type Orchestrator struct {
	gate     *security.Gate
	analyzer *analysis.Analyzer
	harness  *sandbox.Harness
}

// NewOrchestrator wires the three stages together.
func NewOrchestrator(gate *security.Gate, analyzer *analysis.Analyzer, harness *sandbox.Harness) *Orchestrator {
	return &Orchestrator{
		gate:     gate,
		analyzer: analyzer,
		harness:  harness,
	}
}

// TestProject runs gate, analysis, and (when clean enough) execution over
// the file set, short-circuiting on the first fatal category.
//
// Guarantees: an unsafe file set never touches the disk, and a file set
// with syntax errors is never executed.
func (o *Orchestrator) TestProject(ctx context.Context, fs *fileset.FileSet, name string) *report.TestReport {
	start := time.Now()
	logging.Tester("Testing project: %s (%d files)", name, fs.Len())

	rep := o.test(ctx, fs, name)
	rep.ExecutionTimeSeconds = time.Since(start).Seconds()

	logging.Tester("Project %s: classification=%s success=%v errors=%d",
		name, rep.Classification, rep.Success, len(rep.Errors))
	return rep
}

func (o *Orchestrator) test(ctx context.Context, fs *fileset.FileSet, name string) *report.TestReport {
	// 1. Security gate. Nothing is written to disk for an unsafe set.
	finding := o.gate.Check(fs)
	if !finding.IsSafe {
		return &report.TestReport{
			Classification: report.SecurityError,
			Errors:         append([]string(nil), finding.Issues...),
			SecurityIssues: append([]string(nil), finding.Issues...),
			Suggestions:    append([]string(nil), securitySuggestions...),
		}
	}

	// 2. Syntax and static analysis. Static findings only warn or suggest;
	// they never block execution.
	var syntaxIssues, warnings, suggestions []string
	for _, res := range o.analyzer.Analyze(fs) {
		syntaxIssues = append(syntaxIssues, res.Errors...)
		warnings = append(warnings, res.Warnings...)
		suggestions = append(suggestions, res.Suggestions...)
	}

	// 3. Runtime execution, skipped entirely when syntax is already known
	// bad: running it would waste the timeout budget for nothing.
	var runtimeIssues []string
	var stdout string
	var peakMemory float64
	var exitCode *int
	runClassification := report.RuntimeError

	if len(syntaxIssues) == 0 {
		runRep := o.harness.Run(ctx, fs, name)
		warnings = append(warnings, runRep.Warnings...)

		switch runRep.Classification {
		case report.Timeout:
			runRep.Warnings = warnings
			runRep.Suggestions = append(suggestions, runRep.Suggestions...)
			return runRep
		case report.UnknownError:
			runRep.Warnings = warnings
			runRep.Suggestions = suggestions
			return runRep
		}

		if runRep.Classification == report.MemoryError {
			runClassification = report.MemoryError
		}
		runtimeIssues = runRep.RuntimeIssues
		stdout = runRep.Stdout
		peakMemory = runRep.PeakMemoryMB
		exitCode = runRep.ExitCode
	} else {
		logging.TesterDebug("Skipping execution of %s: %d syntax issues", name, len(syntaxIssues))
	}

	// 4. Terminal classification, highest-priority category first.
	allErrors := make([]string, 0, len(syntaxIssues)+len(runtimeIssues))
	allErrors = append(allErrors, syntaxIssues...)
	allErrors = append(allErrors, runtimeIssues...)

	var classification report.Classification
	switch {
	case len(syntaxIssues) > 0:
		classification = report.SyntaxError
	case len(runtimeIssues) > 0:
		classification = runClassification
	case len(allErrors) > 0:
		classification = report.UnknownError
	default:
		classification = report.Success
	}

	return &report.TestReport{
		Classification: classification,
		Success:        len(allErrors) == 0,
		PeakMemoryMB:   peakMemory,
		Stdout:         stdout,
		Errors:         allErrors,
		Warnings:       warnings,
		SyntaxIssues:   syntaxIssues,
		RuntimeIssues:  runtimeIssues,
		Suggestions:    suggestions,
		ExitCode:       exitCode,
	}
}
