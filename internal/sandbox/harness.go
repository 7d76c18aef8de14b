// Package sandbox materializes a candidate file set into an isolated working
// directory and runs its entry file as a child process under a wall-clock
// timeout with bounded output capture. The working directory is exclusive to
// one run and always removed before Run returns, on every exit path.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vibeforge/internal/fileset"
	"vibeforge/internal/logging"
	"vibeforge/internal/report"
)

// entryCandidates is the priority-ordered list of conventional entry file
// names checked at the project root before any content-based fallback.
var entryCandidates = []string{
	"main.py", "app.py", "run.py", "start.py", "__main__.py",
	"index.py", "server.py", "bot.py", "client.py",
}

// mainGuard marks a file runnable as a script.
const mainGuard = `if __name__ == "__main__"`

// Options configures a Harness.
type Options struct {
	// WorkRoot is the directory under which run directories are created.
	WorkRoot string

	// PythonBinary is the interpreter to launch (default "python3").
	PythonBinary string

	// Timeout is the wall-clock budget per run.
	Timeout time.Duration

	// MaxOutputBytes bounds captured stdout and stderr, each.
	MaxOutputBytes int64
}

// Harness executes file sets in throwaway working directories.
// Construct once and share; Run is safe for concurrent use because every
// run gets its own uniquely named directory.
type Harness struct {
	workRoot  string
	python    string
	timeout   time.Duration
	maxOutput int64
}

// NewHarness creates a Harness with the given options.
func NewHarness(opts Options) *Harness {
	if opts.PythonBinary == "" {
		opts.PythonBinary = "python3"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = 1024 * 1024
	}
	if opts.WorkRoot == "" {
		opts.WorkRoot = filepath.Join(os.TempDir(), "vibeforge")
	}
	return &Harness{
		workRoot:  opts.WorkRoot,
		python:    opts.PythonBinary,
		timeout:   opts.Timeout,
		maxOutput: opts.MaxOutputBytes,
	}
}

// Run materializes the file set, launches its entry file, and reports the
// outcome. Internal failures are converted into an UnknownError report
// rather than returned, so one bad run never aborts the caller's loop.
func (h *Harness) Run(ctx context.Context, fs *fileset.FileSet, name string) *report.TestReport {
	timer := logging.StartTimer(logging.CategorySandbox, "Sandboxed run")
	defer timer.Stop()

	start := time.Now()
	rep := h.run(ctx, fs, name)
	rep.ExecutionTimeSeconds = time.Since(start).Seconds()
	return rep
}

func (h *Harness) run(ctx context.Context, fs *fileset.FileSet, name string) *report.TestReport {
	runDir := filepath.Join(h.workRoot, fmt.Sprintf("run_%s_%s", sanitizeName(name), uuid.NewString()[:8]))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return unknownReport(fmt.Sprintf("failed to create working directory: %v", err))
	}
	// Release is paired with acquisition regardless of how we return.
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			logging.SandboxWarn("Failed to clean up %s: %v", runDir, err)
		} else {
			logging.SandboxDebug("Cleaned up %s", runDir)
		}
	}()

	var warnings []string
	for _, path := range fs.Paths() {
		content, _ := fs.Get(path)
		dst := filepath.Join(runDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to write file %s: %v", path, err))
			continue
		}
		if err := os.WriteFile(dst, []byte(content), 0644); err != nil {
			logging.SandboxWarn("Failed to write file %s: %v", path, err)
			warnings = append(warnings, fmt.Sprintf("Failed to write file %s: %v", path, err))
			continue
		}
	}

	entry := findEntryFile(fs)
	if entry == "" {
		rep := &report.TestReport{
			Classification: report.RuntimeError,
			RuntimeIssues:  []string{"No executable entry file found"},
			Errors:         []string{"No executable entry file found"},
			Warnings:       warnings,
		}
		return rep
	}
	logging.Sandbox("Running %s (entry: %s, timeout: %s)", name, entry, h.timeout)

	execCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, h.python, filepath.FromSlash(entry))
	cmd.Dir = runDir
	setupProcessGroup(cmd)
	// Kill the whole group on timeout so grandchildren cannot linger.
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdoutBuf, max: h.maxOutput}
	cmd.Stderr = &limitedWriter{w: &stderrBuf, max: h.maxOutput}

	runErr := cmd.Run()

	rep := &report.TestReport{
		Stdout:       stdoutBuf.String(),
		Warnings:     warnings,
		PeakMemoryMB: peakRSSMB(cmd),
	}

	if execCtx.Err() == context.DeadlineExceeded {
		rep.Classification = report.Timeout
		rep.Errors = []string{"Execution timeout"}
		rep.RuntimeIssues = []string{"Execution timeout"}
		rep.Suggestions = []string{"Optimize performance", "Check for infinite loops"}
		logging.SandboxWarn("Run %s killed after %s", name, h.timeout)
		return rep
	}

	stderr := stderrBuf.String()

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		rep.ExitCode = report.IntPtr(0)
	case errors.As(runErr, &exitErr):
		rep.ExitCode = report.IntPtr(exitErr.ExitCode())
	default:
		// Launch or wait failed before the program could run.
		return unknownReport(fmt.Sprintf("Execution failed: %v", runErr))
	}

	if stderr != "" {
		msg := "Runtime error: " + strings.TrimSpace(stderr)
		rep.RuntimeIssues = append(rep.RuntimeIssues, msg)
		rep.Errors = append(rep.Errors, msg)
		if strings.Contains(stderr, "MemoryError") {
			rep.Classification = report.MemoryError
		} else {
			rep.Classification = report.RuntimeError
		}
		return rep
	}

	rep.Classification = report.Success
	rep.Success = true
	logging.Sandbox("Run %s completed: exit=%d, stdout=%d bytes", name, *rep.ExitCode, len(rep.Stdout))
	return rep
}

// findEntryFile selects the file to launch, in priority order: conventional
// names at the root, any file bearing the script guard, the first Python
// file anywhere in the tree.
func findEntryFile(fs *fileset.FileSet) string {
	for _, candidate := range entryCandidates {
		if _, ok := fs.Get(candidate); ok {
			return candidate
		}
	}

	pyFiles := fs.PythonFiles()
	for _, path := range pyFiles {
		if content, _ := fs.Get(path); strings.Contains(content, mainGuard) {
			return path
		}
	}

	if len(pyFiles) > 0 {
		return pyFiles[0]
	}
	return ""
}

// unknownReport covers internal harness failures. The message stays in the
// uncategorized error list; it is not a finding about the candidate code.
func unknownReport(msg string) *report.TestReport {
	return &report.TestReport{
		Classification: report.UnknownError,
		Errors:         []string{msg},
	}
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "project"
	}
	return b.String()
}

// limitedWriter is an io.Writer that caps total bytes written, discarding
// the rest so runaway output cannot grow memory without bound.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil // Pretend we wrote it
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // Report full length to avoid short-write errors
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
