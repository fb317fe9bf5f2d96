package testutils

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// GetDirContents returns the contents of a directory as a map of slash separated relative file paths to file contents.
// The maxDepth parameter limits the depth of the directory tree to read.
func GetDirContents(t *testing.T, dir string, maxDepth uint) (map[string]string, error) {
	t.Helper()

	files := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == dir {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		depth := uint(strings.Count(filepath.ToSlash(relPath), "/") + 1)
		if depth > maxDepth {
			return fmt.Errorf("max depth %d exceeded at %s", maxDepth, relPath)
		}

		if d.IsDir() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		// Normalize content between Windows and Linux
		content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
		files[filepath.ToSlash(relPath)] = string(content)

		return nil
	})

	return files, err
}

// WriteFiles writes every file of files, keyed by slash separated relative path, under dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750), "Setup: could not create directory for %s", name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600), "Setup: could not write %s", name)
	}
}
