// Package fileset holds the in-memory representation of one candidate
// project version: an ordered mapping from relative path to file content.
// Sets are cloned, never aliased, when handed across component boundaries
// so a retry can never corrupt the snapshot it started from.
package fileset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// FileSet maps relative paths to full file contents, preserving insertion
// order for deterministic materialization and iteration.
type FileSet struct {
	order    []string
	contents map[string]string
}

// New returns an empty FileSet.
func New() *FileSet {
	return &FileSet{
		contents: make(map[string]string),
	}
}

// FromMap builds a FileSet from a plain map, ordering paths lexically so the
// result is deterministic regardless of map iteration order.
func FromMap(files map[string]string) *FileSet {
	fs := New()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fs.Put(p, files[p])
	}
	return fs
}

// Put sets the content for path, appending it to the order on first insert.
func (fs *FileSet) Put(path, content string) {
	if _, ok := fs.contents[path]; !ok {
		fs.order = append(fs.order, path)
	}
	fs.contents[path] = content
}

// Get returns the content for path.
func (fs *FileSet) Get(path string) (string, bool) {
	c, ok := fs.contents[path]
	return c, ok
}

// Paths returns the paths in insertion order. The returned slice is a copy.
func (fs *FileSet) Paths() []string {
	out := make([]string, len(fs.order))
	copy(out, fs.order)
	return out
}

// Len returns the number of files in the set.
func (fs *FileSet) Len() int {
	return len(fs.order)
}

// Clone returns a deep copy. Mutating the clone never affects the original.
func (fs *FileSet) Clone() *FileSet {
	out := New()
	for _, p := range fs.order {
		out.Put(p, fs.contents[p])
	}
	return out
}

// Merge returns a clone of fs with the contents of updates layered on top.
// Files not named by updates pass through unchanged; new paths are appended.
func (fs *FileSet) Merge(updates map[string]string) *FileSet {
	out := fs.Clone()
	paths := make([]string, 0, len(updates))
	for p := range updates {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		out.Put(p, updates[p])
	}
	return out
}

// Hash returns a stable SHA-256 digest over the sorted path:content pairs.
// Two sets with identical contents hash identically regardless of insertion
// order, which is what the correction loop's cycle detection needs.
func (fs *FileSet) Hash() string {
	paths := make([]string, len(fs.order))
	copy(paths, fs.order)
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s:%s\n", p, fs.contents[p])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PythonFiles returns the paths with a .py or .pyw extension, in order.
func (fs *FileSet) PythonFiles() []string {
	var out []string
	for _, p := range fs.order {
		if strings.HasSuffix(p, ".py") || strings.HasSuffix(p, ".pyw") {
			out = append(out, p)
		}
	}
	return out
}
