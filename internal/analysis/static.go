package analysis

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"vibeforge/internal/fileset"
	"vibeforge/internal/logging"
)

// maxLineLength is the long-line warning threshold.
const maxLineLength = 120

// Analyzer runs syntax and static checks over a file set. Stateless; safe
// for concurrent use across sessions.
type Analyzer struct{}

// NewAnalyzer returns a new Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze checks every Python file in the set. Files are processed
// concurrently but results are merged in file order, so output is
// deterministic for a given input.
func (a *Analyzer) Analyze(fs *fileset.FileSet) []FileResult {
	timer := logging.StartTimer(logging.CategoryAnalysis, "Static analysis")
	defer timer.Stop()

	paths := fs.PythonFiles()
	results := make([]FileResult, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		content, _ := fs.Get(path)
		g.Go(func() error {
			results[i] = analyzeFile(path, content)
			return nil
		})
	}
	// Workers never return errors; findings are data, not failures.
	_ = g.Wait()

	return results
}

func analyzeFile(path, content string) FileResult {
	res := FileResult{Path: path}

	res.Errors = CheckSyntax(path, content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if len(line) > maxLineLength {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Long line in %s:%d (%d chars)", path, i+1, len(line)))
		}
	}

	if strings.Contains(content, "def ") &&
		!strings.Contains(content, `"""`) && !strings.Contains(content, "'''") {
		res.Suggestions = append(res.Suggestions,
			fmt.Sprintf("Consider adding docstrings to %s", path))
	}

	if strings.Contains(content, "print(") {
		res.Suggestions = append(res.Suggestions,
			fmt.Sprintf("Consider using logging instead of print in %s", path))
	}

	for _, name := range topLevelImports(lines) {
		// One mention means the import statement itself is the only use.
		if strings.Count(content, name) <= 1 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Potentially unused import in %s: %s", path, name))
		}
	}

	return res
}

// topLevelImports extracts imported names from `import x` lines. This is a
// textual heuristic feeding a warning, so `from` imports and aliased forms
// are intentionally out of scope here.
func topLevelImports(lines []string) []string {
	var names []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "import ") {
			continue
		}
		rest := strings.TrimPrefix(trimmed, "import ")
		for _, part := range strings.Split(rest, ",") {
			name := strings.TrimSpace(part)
			if idx := strings.Index(name, " as "); idx >= 0 {
				name = strings.TrimSpace(name[idx+4:])
			}
			// Track the leading component of dotted imports.
			if idx := strings.Index(name, "."); idx > 0 {
				name = name[:idx]
			}
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
