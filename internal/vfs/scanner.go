package vfs

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	wabfs "wab-go/internal/fs"
	"wab-go/internal/logging"
	"wab-go/internal/model"
)

// TranscriptName is the base filename marking a directory or archive as a
// chat export.
const TranscriptName = "_chat.txt"

// ScanRoot walks a directory tree and registers a record for every regular
// file. Zip archives whose listing contains a transcript are expanded into
// member records; archives without one are ignored entirely (not a valid
// export). Archives already known from prior state with an unchanged outer
// identity are not re-opened — their remembered members are confirmed
// instead.
//
// The scan fails fast only if the root itself is unreadable. Unreadable
// subpaths and archives are skipped with a warning; the returned slice
// carries one entry per skipped artifact.
func (v *VFS) ScanRoot(root string, ignore *wabfs.IgnoreMatcher, logger logging.Logger) ([]string, error) {
	if _, err := os.ReadDir(root); err != nil {
		return nil, fmt.Errorf("input root unreadable: %w", err)
	}

	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		logger.Warn("scan warning", "detail", msg)
		warnings = append(warnings, msg)
	}

	logger.Info("scanning input root", "root", root)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			warn("skipping unreadable path %s: %v", path, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			warn("skipping %s: %v", path, err)
			return nil
		}
		if ignore != nil && ignore.Match(rel) {
			logger.Debug("ignoring file", "path", rel)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			warn("skipping unreadable path %s: %v", path, err)
			return nil
		}

		relSlash := filepath.ToSlash(rel)
		if strings.EqualFold(filepath.Ext(path), ".zip") {
			v.scanArchive(path, relSlash, info, warn, logger)
			return nil
		}

		rec := model.NewFileRecord(relSlash, info.Size(), info.ModTime(), "")
		v.Register(rec)
		v.loosePaths[rec.ID] = path
		return nil
	})
	if err != nil {
		return warnings, fmt.Errorf("walking input root: %w", err)
	}

	return warnings, nil
}

// scanArchive registers a zip archive and its members. The archive is opened
// for listing only when it is newly seen or its outer identity changed since
// the prior run; member bytes are read later, on demand.
func (v *VFS) scanArchive(absPath, relSlash string, info fs.FileInfo, warn func(string, ...any), logger logging.Logger) {
	outer := model.NewFileRecord(relSlash, info.Size(), info.ModTime(), "")

	if v.byID[outer.ID] != nil && len(v.children[outer.ID]) > 0 {
		// Unchanged since the prior run: confirm the remembered listing
		// without re-opening the archive.
		v.byID[outer.ID].Exists = true
		for _, member := range v.children[outer.ID] {
			member.Exists = true
		}
		v.archives.track(outer.ID, absPath)
		logger.Debug("archive unchanged, listing reused", "path", relSlash)
		return
	}

	headers, err := listArchive(absPath)
	if err != nil {
		warn("skipping unreadable archive %s: %v", relSlash, err)
		return
	}

	hasTranscript := false
	for i := range headers {
		if path.Base(filepath.ToSlash(headers[i].Name)) == TranscriptName {
			hasTranscript = true
			break
		}
	}
	if !hasTranscript {
		logger.Debug("archive has no transcript, ignored", "path", relSlash)
		return
	}

	v.Register(outer)
	v.loosePaths[outer.ID] = absPath
	v.archives.track(outer.ID, absPath)

	for i := range headers {
		h := &headers[i]
		member := model.NewFileRecord(filepath.ToSlash(h.Name), int64(h.UncompressedSize64), h.Modified, outer.ID)
		v.Register(member)
	}
	logger.Debug("archive listed", "path", relSlash, "members", len(headers))
}
