package fileutils_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/macdeacon99/jamf-rings/internal/fileutils"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data            []byte
		fileExists      bool
		fileExistsPerms os.FileMode
		invalidDir      bool

		wantErr bool
	}{
		"Empty file":              {data: []byte{}},
		"Non-empty file":          {data: []byte("data")},
		"Override file":           {data: []byte("data"), fileExistsPerms: 0600, fileExists: true},
		"Override with empty":     {data: []byte{}, fileExistsPerms: 0600, fileExists: true},
		"Override read-only file": {data: []byte("data"), fileExistsPerms: 0400, fileExists: true, wantErr: runtime.GOOS == "windows"},

		"Error on missing parent dir": {data: []byte("data"), invalidDir: true, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			oldContent := []byte("old feed")
			path := filepath.Join(t.TempDir(), "feed.json")
			if tc.invalidDir {
				path = filepath.Join(filepath.Dir(path), "missing", "feed.json")
			}

			if tc.fileExists {
				require.NoError(t, os.WriteFile(path, oldContent, tc.fileExistsPerms), "Setup: WriteFile should not return an error")
				t.Cleanup(func() { _ = os.Chmod(path, 0600) })
			}

			err := fileutils.AtomicWrite(path, tc.data)
			if tc.wantErr {
				require.Error(t, err, "AtomicWrite should return an error")
				if !tc.fileExists {
					return
				}
				got, err := os.ReadFile(path)
				require.NoError(t, err, "ReadFile should not return an error")
				require.Equal(t, oldContent, got, "AtomicWrite should not overwrite the file on failure")
				return
			}
			require.NoError(t, err, "AtomicWrite should not return an error")

			got, err := os.ReadFile(path)
			require.NoError(t, err, "ReadFile should not return an error")
			require.Equal(t, tc.data, got, "AtomicWrite should write the data to the file")

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err, "ReadDir should not return an error")
			require.Len(t, entries, 1, "AtomicWrite should not leave temporary files behind")
		})
	}
}

func TestReadFileIfExists(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content *string
		isDir   bool

		wantExists bool
		wantErr    bool
	}{
		"Existing file":        {content: ptr("tag"), wantExists: true},
		"Existing empty file":  {content: ptr(""), wantExists: true},
		"Missing file":         {},
		"Error when directory": {isDir: true, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "file")
			if tc.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tc.content), 0600), "Setup: could not write file")
			}
			if tc.isDir {
				require.NoError(t, os.Mkdir(path, 0750), "Setup: could not create directory")
			}

			data, exists, err := fileutils.ReadFileIfExists(path)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantExists, exists)
			if tc.content != nil {
				require.Equal(t, *tc.content, string(data))
			}
		})
	}
}

func TestReadTrimmedLogError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "etag")
	require.NoError(t, os.WriteFile(path, []byte("  \"abc\"\n"), 0600), "Setup: could not write file")

	require.Equal(t, `"abc"`, fileutils.ReadTrimmedLogError(path, slog.Default()))
	require.Empty(t, fileutils.ReadTrimmedLogError(filepath.Join(dir, "missing"), slog.Default()))
	require.Empty(t, fileutils.ReadTrimmedLogError(dir, slog.Default()), "Reading a directory should log and return empty")
}

func TestRemoveIfExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "etag")
	require.NoError(t, os.WriteFile(path, []byte("tag"), 0600), "Setup: could not write file")

	require.NoError(t, fileutils.RemoveIfExists(path))
	require.NoFileExists(t, path)
	require.NoError(t, fileutils.RemoveIfExists(path), "Removing a missing file should not error")
}

func ptr[T any](v T) *T {
	return &v
}
