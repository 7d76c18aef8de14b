package fileset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxFileBytes caps individual files read from disk. Anything larger is not
// plausible machine-generated source and is skipped.
const maxFileBytes = 4 << 20

// LoadDir reads a project directory into a FileSet. Paths are stored relative
// to root with forward slashes. Hidden entries and common build artifacts are
// skipped.
func LoadDir(root string) (*FileSet, error) {
	set := New()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "__pycache__" || name == "node_modules" || name == "venv") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".pyc") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxFileBytes {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		set.Put(filepath.ToSlash(rel), string(data))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if set.Len() == 0 {
		return nil, fmt.Errorf("no files found in %s", root)
	}
	return set, nil
}

// WriteDir materializes the set under root, creating directories as needed.
func (fs *FileSet) WriteDir(root string) error {
	for _, p := range fs.order {
		target := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
		if err := os.WriteFile(target, []byte(fs.contents[p]), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
	}
	return nil
}
