// Package fs provides the small amount of direct filesystem access the tool
// needs outside the VFS: root validation and ignore-pattern matching.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveDir validates that a raw path names a readable directory and returns
// its absolute form. Used for input roots, where failure is fatal.
func ResolveDir(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", absPath)
	}

	return absPath, nil
}

// EnsureWritableDir creates the directory if needed and verifies it can be
// written to by creating and removing a probe file. Used for the output
// directory, where failure is fatal before any state mutation.
func EnsureWritableDir(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	probe, err := os.CreateTemp(absPath, ".wab-probe-*")
	if err != nil {
		return "", fmt.Errorf("directory not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	return absPath, nil
}
