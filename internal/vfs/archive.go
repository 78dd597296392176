package vfs

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sync"

	"wab-go/internal/model"
)

// archiveSet tracks zip archives by their outer identity and defers opening
// them until a member's bytes are actually needed. Each archive is opened at
// most once and member reads are serialized per handle.
type archiveSet struct {
	mu      sync.Mutex
	handles map[model.FileID]*archiveHandle
}

type archiveHandle struct {
	mu      sync.Mutex
	absPath string
	reader  *zip.ReadCloser // nil until first member read
}

func newArchiveSet() *archiveSet {
	return &archiveSet{handles: make(map[model.FileID]*archiveHandle)}
}

// track associates an archive identity with its on-disk location. Listing
// has already happened by the time this is called; the handle stays closed
// until a member read.
func (s *archiveSet) track(id model.FileID, absPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[id]; ok {
		h.absPath = absPath
		return
	}
	s.handles[id] = &archiveHandle{absPath: absPath}
}

// openMember reads one member fully into memory and returns a reader over
// the copy, so the shared zip handle is never held open by a caller.
func (s *archiveSet) openMember(archiveID model.FileID, memberPath string) (io.ReadCloser, error) {
	s.mu.Lock()
	h, ok := s.handles[archiveID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("archive not present in current scan: %s", archiveID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.reader == nil {
		zr, err := zip.OpenReader(h.absPath)
		if err != nil {
			return nil, fmt.Errorf("opening archive %s: %w", h.absPath, err)
		}
		h.reader = zr
	}

	f, err := h.reader.Open(memberPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive member %s: %w", memberPath, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading archive member %s: %w", memberPath, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *archiveSet) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, h := range s.handles {
		h.mu.Lock()
		if h.reader != nil {
			if err := h.reader.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			h.reader = nil
		}
		h.mu.Unlock()
	}
	return firstErr
}

// listArchive opens a zip file just long enough to read its table of
// contents. Directories are skipped.
func listArchive(absPath string) ([]zip.FileHeader, error) {
	zr, err := zip.OpenReader(absPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	headers := make([]zip.FileHeader, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		headers = append(headers, f.FileHeader)
	}
	return headers, nil
}
