// Package report defines the classified result of testing one candidate
// file set. Reports are created once per test invocation and treated as
// immutable afterward.
package report

// Classification tags the dominant failure category of a test run.
type Classification string

const (
	Success       Classification = "success"
	SyntaxError   Classification = "syntax_error"
	RuntimeError  Classification = "runtime_error"
	Timeout       Classification = "timeout"
	MemoryError   Classification = "memory_error"
	SecurityError Classification = "security_error"
	UnknownError  Classification = "unknown_error"
)

// TestReport aggregates every finding from one pass over a file set.
//
// Invariant: Success is true iff Classification == Success and every issue
// list (Errors, SyntaxIssues, RuntimeIssues, SecurityIssues) is empty.
type TestReport struct {
	Classification Classification `json:"classification"`
	Success        bool           `json:"success"`

	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	PeakMemoryMB         float64 `json:"peak_memory_mb"`

	Stdout string `json:"stdout"`

	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	SyntaxIssues   []string `json:"syntax_issues"`
	RuntimeIssues  []string `json:"runtime_issues"`
	SecurityIssues []string `json:"security_issues"`
	Suggestions    []string `json:"suggestions"`

	// ExitCode is nil when no process ran (security/syntax short-circuit).
	ExitCode *int `json:"exit_code,omitempty"`
}

// ErrorCount returns the merged error count used by improvement scoring.
func (r *TestReport) ErrorCount() int {
	return len(r.Errors)
}

// IntPtr is a small helper for populating the optional exit code.
func IntPtr(v int) *int {
	return &v
}
