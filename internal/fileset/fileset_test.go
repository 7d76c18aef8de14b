package fileset

import (
	"testing"
)

func TestPutPreservesInsertionOrder(t *testing.T) {
	fs := New()
	fs.Put("b.py", "b")
	fs.Put("a.py", "a")
	fs.Put("b.py", "b2") // overwrite must not reorder

	paths := fs.Paths()
	if len(paths) != 2 || paths[0] != "b.py" || paths[1] != "a.py" {
		t.Fatalf("unexpected order: %v", paths)
	}
	if c, _ := fs.Get("b.py"); c != "b2" {
		t.Fatalf("overwrite lost: %q", c)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := New()
	orig.Put("main.py", "print('hi')")

	clone := orig.Clone()
	clone.Put("main.py", "mutated")
	clone.Put("extra.py", "x")

	if c, _ := orig.Get("main.py"); c != "print('hi')" {
		t.Errorf("original mutated through clone: %q", c)
	}
	if orig.Len() != 1 {
		t.Errorf("original grew: %d files", orig.Len())
	}
}

func TestMergePassesThroughUntouched(t *testing.T) {
	fs := New()
	fs.Put("main.py", "old main")
	fs.Put("util.py", "old util")

	merged := fs.Merge(map[string]string{"main.py": "new main"})

	if c, _ := merged.Get("main.py"); c != "new main" {
		t.Errorf("merged main.py = %q", c)
	}
	if c, _ := merged.Get("util.py"); c != "old util" {
		t.Errorf("untouched file changed: %q", c)
	}
	if c, _ := fs.Get("main.py"); c != "old main" {
		t.Errorf("merge mutated receiver: %q", c)
	}
}

func TestHashStableAcrossInsertionOrder(t *testing.T) {
	a := New()
	a.Put("x.py", "1")
	a.Put("y.py", "2")

	b := New()
	b.Put("y.py", "2")
	b.Put("x.py", "1")

	if a.Hash() != b.Hash() {
		t.Error("hash depends on insertion order")
	}

	b.Put("x.py", "changed")
	if a.Hash() == b.Hash() {
		t.Error("hash did not change with content")
	}
}

func TestPythonFiles(t *testing.T) {
	fs := FromMap(map[string]string{
		"main.py":   "",
		"README.md": "",
		"gui.pyw":   "",
	})
	got := fs.PythonFiles()
	if len(got) != 2 {
		t.Fatalf("PythonFiles = %v", got)
	}
}
