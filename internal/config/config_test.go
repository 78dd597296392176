package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		InputDirs: []string{"/home/user/exports", "/mnt/phone/whatsapp"},
		OutputDir: "/home/user/chats-html",
		LogDir:    "/home/user/.local/share/wab/log",
		Workers:   4,
		Filesystem: FilesystemConfig{
			Ignore: []string{".DS_Store", "*.part"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if len(got.InputDirs) != 2 {
		t.Fatalf("len(InputDirs) = %d, want 2", len(got.InputDirs))
	}
	if got.InputDirs[0] != original.InputDirs[0] {
		t.Errorf("InputDirs[0] = %q, want %q", got.InputDirs[0], original.InputDirs[0])
	}
	if got.OutputDir != original.OutputDir {
		t.Errorf("OutputDir = %q, want %q", got.OutputDir, original.OutputDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Workers != 4 {
		t.Errorf("Workers = %d, want 4", got.Workers)
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := &Config{
		InputDirs: []string{"/in"},
		OutputDir: "/out",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	noInput := &Config{OutputDir: "/out"}
	if err := noInput.Validate(); err == nil {
		t.Error("expected error for missing input dirs")
	}

	noOutput := &Config{InputDirs: []string{"/in"}}
	if err := noOutput.Validate(); err == nil {
		t.Error("expected error for missing output dir")
	}

	negWorkers := &Config{InputDirs: []string{"/in"}, OutputDir: "/out", Workers: -1}
	if err := negWorkers.Validate(); err == nil {
		t.Error("expected error for negative workers")
	}
}

func TestConfig_EffectiveWorkers(t *testing.T) {
	cfg := &Config{Workers: 3}
	if got := cfg.EffectiveWorkers(); got != 3 {
		t.Errorf("EffectiveWorkers() = %d, want 3", got)
	}

	cfg = &Config{}
	if got := cfg.EffectiveWorkers(); got < 1 {
		t.Errorf("EffectiveWorkers() = %d, want >= 1", got)
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.toml")

	cfg := NewConfig(dir)
	cfg.InputDirs = []string{"/in"}
	cfg.OutputDir = "/out"

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// second init must refuse to overwrite
	if err := Init(path, cfg); err == nil {
		t.Error("expected error when config already exists")
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.OutputDir != "/out" {
		t.Errorf("OutputDir = %q, want %q", got.OutputDir, "/out")
	}
}
