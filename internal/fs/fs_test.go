package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDir(t *testing.T) {
	t.Run("resolves existing directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		got, err := ResolveDir(dir)
		if err != nil {
			t.Fatalf("ResolveDir() error = %v", err)
		}
		if !filepath.IsAbs(got) {
			t.Errorf("ResolveDir() = %q, want absolute path", got)
		}
	})

	t.Run("fails for missing path", func(t *testing.T) {
		t.Parallel()
		if _, err := ResolveDir(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("expected error for missing path")
		}
	})

	t.Run("fails for regular file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		file := filepath.Join(dir, "f.txt")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := ResolveDir(file); err == nil {
			t.Error("expected error for regular file")
		}
	})
}

func TestEnsureWritableDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	target := filepath.Join(dir, "out", "nested")

	got, err := EnsureWritableDir(target)
	if err != nil {
		t.Fatalf("EnsureWritableDir() error = %v", err)
	}
	info, err := os.Stat(got)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %q, err = %v", got, err)
	}
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{
			name:         "basename glob matches file in subdirectory",
			patterns:     []string{".DS_Store"},
			relativePath: filepath.Join("export1", ".DS_Store"),
			want:         true,
		},
		{
			name:         "glob pattern on basename",
			patterns:     []string{"*.part"},
			relativePath: filepath.Join("export1", "video.mp4.part"),
			want:         true,
		},
		{
			name:         "path pattern only matches full relative path",
			patterns:     []string{"tmp/*"},
			relativePath: filepath.Join("tmp", "x.txt"),
			want:         true,
		},
		{
			name:         "non-matching file passes",
			patterns:     []string{".DS_Store", "*.part"},
			relativePath: filepath.Join("export1", "_chat.txt"),
			want:         false,
		},
		{
			name:         "no patterns matches nothing",
			patterns:     nil,
			relativePath: "anything",
			want:         false,
		},
		{
			name:         "comments and blanks are skipped",
			patterns:     []string{"# comment", "", "*.bak"},
			relativePath: "old.bak",
			want:         true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}
