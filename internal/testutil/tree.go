package testutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile writes content under root at the given relative path, creating
// intermediate directories, and pins the modification time so file
// identities are deterministic across test runs.
func WriteFile(t *testing.T, root, rel, content string, modTime time.Time) string {
	t.Helper()

	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	if err := os.Chtimes(abs, modTime, modTime); err != nil {
		t.Fatalf("failed to set mtime of %s: %v", rel, err)
	}
	return abs
}

// ZipEntry is one member of a zip archive built by WriteZip.
type ZipEntry struct {
	Name    string
	Data    string
	ModTime time.Time
}

// WriteZip writes a zip archive under root with the given members and outer
// modification time.
func WriteZip(t *testing.T, root, rel string, entries []ZipEntry, modTime time.Time) string {
	t.Helper()

	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}

	f, err := os.Create(abs)
	if err != nil {
		t.Fatalf("failed to create %s: %v", rel, err)
	}
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: e.ModTime,
		})
		if err != nil {
			t.Fatalf("failed to add %s to %s: %v", e.Name, rel, err)
		}
		if _, err := w.Write([]byte(e.Data)); err != nil {
			t.Fatalf("failed to write %s in %s: %v", e.Name, rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", rel, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close %s: %v", rel, err)
	}
	if err := os.Chtimes(abs, modTime, modTime); err != nil {
		t.Fatalf("failed to set mtime of %s: %v", rel, err)
	}
	return abs
}
