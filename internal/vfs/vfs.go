// Package vfs indexes every file the tool knows about — loose files on disk,
// members of zip archives, and files remembered from a prior run — under one
// lookup interface keyed by content-derived identity.
package vfs

import (
	"fmt"
	"io"
	"os"
	"sort"

	"wab-go/internal/model"
)

type pathKey struct {
	parent model.FileID
	path   string
}

// VFS is the in-memory index unifying files on disk and inside archives.
// It is populated once per run (prior-state merge, then live scan) and read
// from thereafter; it is not safe for concurrent mutation.
type VFS struct {
	byID     map[model.FileID]*model.FileRecord
	byPath   map[pathKey]*model.FileRecord
	byName   map[string][]*model.FileRecord
	children map[model.FileID][]*model.FileRecord // archive -> members

	// loosePaths maps records observed in the current scan to their absolute
	// on-disk location. Records merged from prior state are never opened, so
	// they have no entry here.
	loosePaths map[model.FileID]string
	archives   *archiveSet
}

// New returns an empty VFS.
func New() *VFS {
	return &VFS{
		byID:       make(map[model.FileID]*model.FileRecord),
		byPath:     make(map[pathKey]*model.FileRecord),
		byName:     make(map[string][]*model.FileRecord),
		children:   make(map[model.FileID][]*model.FileRecord),
		loosePaths: make(map[model.FileID]string),
		archives:   newArchiveSet(),
	}
}

// Register inserts or updates a record in all indices. Re-registering the
// same ID overwrites in place; since identity is metadata-derived this only
// happens when metadata is corrected (for example, when a live scan confirms
// a file remembered from prior state).
func (v *VFS) Register(rec *model.FileRecord) {
	if old, ok := v.byID[rec.ID]; ok {
		v.removeFromIndices(old)
	}
	v.byID[rec.ID] = rec
	v.byPath[pathKey{parent: rec.Parent, path: rec.Path}] = rec
	v.byName[rec.BaseName] = append(v.byName[rec.BaseName], rec)
	if rec.Parent != "" {
		v.children[rec.Parent] = append(v.children[rec.Parent], rec)
	}
}

func (v *VFS) removeFromIndices(rec *model.FileRecord) {
	key := pathKey{parent: rec.Parent, path: rec.Path}
	if v.byPath[key] == rec {
		delete(v.byPath, key)
	}
	v.byName[rec.BaseName] = removeRecord(v.byName[rec.BaseName], rec)
	if rec.Parent != "" {
		v.children[rec.Parent] = removeRecord(v.children[rec.Parent], rec)
	}
}

func removeRecord(recs []*model.FileRecord, rec *model.FileRecord) []*model.FileRecord {
	for i, r := range recs {
		if r == rec {
			return append(recs[:i], recs[i+1:]...)
		}
	}
	return recs
}

// ByID returns the record with the given identity, or nil.
func (v *VFS) ByID(id model.FileID) *model.FileRecord {
	return v.byID[id]
}

// ByPath returns the record at the given container-relative path, or nil.
// parent is empty for loose files.
func (v *VFS) ByPath(parent model.FileID, relPath string) *model.FileRecord {
	return v.byPath[pathKey{parent: parent, path: relPath}]
}

// ByBaseName returns every record with the given base filename, ordered by
// FileID for determinism. Callers that care about proximity (media
// resolution) check the co-located path first and use this as the fallback.
func (v *VFS) ByBaseName(name string) []*model.FileRecord {
	recs := v.byName[name]
	out := make([]*model.FileRecord, len(recs))
	copy(out, recs)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Members returns the known members of an archive.
func (v *VFS) Members(archive model.FileID) []*model.FileRecord {
	return v.children[archive]
}

// Records returns a snapshot of every known record keyed by identity.
func (v *VFS) Records() map[model.FileID]*model.FileRecord {
	out := make(map[model.FileID]*model.FileRecord, len(v.byID))
	for id, rec := range v.byID {
		out[id] = rec
	}
	return out
}

// MergePrior folds prior-run records into the indices. Records whose
// identity is not already present are registered with Exists=false; the
// following live scan flips them back if it observes them, and archives it
// confirms unchanged are not re-opened. Call before scanning.
func (v *VFS) MergePrior(prior map[model.FileID]*model.FileRecord) {
	for _, rec := range prior {
		if v.byID[rec.ID] != nil {
			continue
		}
		c := rec.Clone()
		c.Exists = false
		v.Register(c)
	}
}

// Open returns a reader for a record observed in the current scan. Loose
// files are opened from disk; archive members are read through the lazily
// opened archive handle. Opening a record that was not observed this run is
// an error.
func (v *VFS) Open(rec *model.FileRecord) (io.ReadCloser, error) {
	if rec.Parent != "" {
		return v.archives.openMember(rec.Parent, rec.Path)
	}
	absPath, ok := v.loosePaths[rec.ID]
	if !ok {
		return nil, fmt.Errorf("file not present in current scan: %s", rec.Path)
	}
	return os.Open(absPath)
}

// ReadAll reads the full contents of a record.
func (v *VFS) ReadAll(rec *model.FileRecord) ([]byte, error) {
	rc, err := v.Open(rec)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Close releases any open archive handles.
func (v *VFS) Close() error {
	return v.archives.close()
}
