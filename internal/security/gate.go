// Package security screens untrusted file sets for disallowed operations
// before anything is written to disk or executed. The pattern table is a
// best-effort layer, not a sound sandbox: it is a security boundary that
// must be reviewed whenever the supported language surface changes.
package security

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"vibeforge/internal/fileset"
	"vibeforge/internal/logging"
)

// Finding is the immutable result of one gate pass over a file set.
type Finding struct {
	IsSafe            bool     `json:"is_safe"`
	Issues            []string `json:"issues"`
	BlockedOperations []string `json:"blocked_operations"`
}

// dangerousPatterns textually matches constructs that must never run:
// process spawning, dynamic evaluation, raw file/network primitives, and
// forced interpreter exit. Matching is case-insensitive.
var dangerousPatterns = []string{
	`import\s+os\s*\.\s*system`,
	`subprocess\s*\.\s*call`,
	`subprocess\s*\.\s*run`,
	`subprocess\s*\.\s*Popen`,
	`eval\s*\(`,
	`exec\s*\(`,
	`__import__\s*\(`,
	`open\s*\([^)]*["'][rwa]`,
	`file\s*\(`,
	`input\s*\(`,
	`raw_input\s*\(`,
	`socket\s*\.`,
	`urllib\s*\.`,
	`requests\s*\.`,
	`http\s*\.`,
	`ftplib\s*\.`,
	`smtplib\s*\.`,
	`pickle\s*\.`,
	`marshal\s*\.`,
	`ctypes\s*\.`,
	`sys\s*\.\s*exit`,
	`os\s*\.\s*_exit`,
	`quit\s*\(`,
	`exit\s*\(`,
}

// dangerousModules is the import-level deny list. Kept as a data table, not
// code, so the boundary is reviewable in one place.
var dangerousModules = map[string]struct{}{
	"os": {}, "subprocess": {}, "sys": {}, "socket": {},
	"urllib": {}, "urllib2": {}, "urllib3": {}, "requests": {},
	"http": {}, "ftplib": {}, "smtplib": {}, "pickle": {},
	"marshal": {}, "ctypes": {}, "importlib": {},
	"__builtin__": {}, "builtins": {},
}

// Gate screens file sets against the pattern and import tables.
// Construct once and share; Check is safe for concurrent use.
type Gate struct {
	patterns []*regexp.Regexp
}

// NewGate compiles the pattern table.
func NewGate() *Gate {
	patterns := make([]*regexp.Regexp, 0, len(dangerousPatterns))
	for _, p := range dangerousPatterns {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+p))
	}
	return &Gate{patterns: patterns}
}

// Check scans every file for disallowed patterns and imports. It is pure:
// nothing is executed or written. Duplicate findings from the two layers are
// acceptable and informative.
func (g *Gate) Check(fs *fileset.FileSet) Finding {
	var issues []string
	var blocked []string

	for _, path := range fs.Paths() {
		content, _ := fs.Get(path)

		for i, re := range g.patterns {
			matches := re.FindAllString(content, -1)
			if len(matches) > 0 {
				issues = append(issues, fmt.Sprintf("Dangerous operation in %s: %s", path, dangerousPatterns[i]))
				blocked = append(blocked, matches...)
			}
		}

		// Independent AST pass so imports written in an unusual style are
		// still caught. A parse failure here is not a security issue; it is
		// deferred to syntax analysis.
		for _, mod := range importedModules(content) {
			root := mod
			if i := strings.IndexByte(root, '.'); i >= 0 {
				root = root[:i]
			}
			if _, bad := dangerousModules[root]; bad {
				issues = append(issues, fmt.Sprintf("Dangerous import in %s: %s", path, mod))
			}
		}
	}

	safe := len(issues) == 0
	if !safe {
		logging.SecurityWarn("Security issues found: %d issues", len(issues))
	}

	return Finding{
		IsSafe:            safe,
		Issues:            issues,
		BlockedOperations: blocked,
	}
}

// importedModules extracts module names from import statements using a
// Tree-sitter parse. Returns nil when the content cannot be parsed.
func importedModules(content string) []string {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	defer parser.Close()

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(content))
	if err != nil {
		return nil
	}
	defer tree.Close()

	src := []byte(content)
	var modules []string
	collectImports(tree.RootNode(), src, &modules)
	return modules
}

// collectImports walks the AST gathering imported module names from both
// `import x` and `from x import y` forms, including aliased imports.
func collectImports(node *sitter.Node, src []byte, modules *[]string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "import_statement":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				name := child.NamedChild(j)
				switch name.Type() {
				case "dotted_name":
					*modules = append(*modules, nodeText(name, src))
				case "aliased_import":
					if inner := name.ChildByFieldName("name"); inner != nil {
						*modules = append(*modules, nodeText(inner, src))
					}
				}
			}

		case "import_from_statement":
			if mod := child.ChildByFieldName("module_name"); mod != nil {
				*modules = append(*modules, nodeText(mod, src))
			}

		default:
			// Imports can appear inside functions, classes, and branches.
			collectImports(child, src, modules)
		}
	}
}

func nodeText(n *sitter.Node, src []byte) string {
	return strings.TrimSpace(string(src[n.StartByte():n.EndByte()]))
}
