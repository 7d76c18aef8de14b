// Package analysis parses candidate files and reports syntax errors plus
// cheap static findings. It never executes anything; its output feeds the
// test orchestrator's classification and the correction engine's prompts.
package analysis

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"vibeforge/internal/logging"
)

// FileResult holds the findings for one file.
type FileResult struct {
	Path        string
	Errors      []string
	Warnings    []string
	Suggestions []string
}

// maxSyntaxErrors bounds error collection on heavily malformed input.
const maxSyntaxErrors = 50

// CheckSyntax parses content and returns one message per ERROR or MISSING
// node, with 1-based line numbers. An empty slice means the file parses.
func CheckSyntax(path, content string) []string {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	defer parser.Close()

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(content))
	if err != nil {
		return []string{fmt.Sprintf("Parse error in %s: %v", path, err)}
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	var errs []string
	collectSyntaxErrors(root, path, []byte(content), &errs, 0)
	if len(errs) == 0 {
		// HasError with no reachable ERROR node still means a bad parse.
		errs = append(errs, fmt.Sprintf("Syntax error in %s", path))
	}
	logging.AnalysisDebug("Syntax check %s: %d errors", path, len(errs))
	return errs
}

func collectSyntaxErrors(node *sitter.Node, path string, content []byte, errs *[]string, depth int) {
	if depth > 1000 || len(*errs) >= maxSyntaxErrors {
		return
	}

	if node.IsError() || node.IsMissing() {
		line := int(node.StartPoint().Row) + 1
		if node.IsMissing() {
			*errs = append(*errs, fmt.Sprintf("Syntax error in %s: missing %s at line %d", path, node.Type(), line))
		} else {
			snippet := errorSnippet(node, content)
			if snippet != "" {
				*errs = append(*errs, fmt.Sprintf("Syntax error in %s: unexpected %q at line %d", path, snippet, line))
			} else {
				*errs = append(*errs, fmt.Sprintf("Syntax error in %s at line %d", path, line))
			}
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectSyntaxErrors(node.Child(i), path, content, errs, depth+1)
	}
}

func errorSnippet(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(content)) {
		end = uint32(len(content))
	}
	if end <= start || end-start > 60 {
		return ""
	}
	return string(content[start:end])
}
