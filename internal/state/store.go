// Package state loads and persists the merged model of a run as a single
// SQLite document inside the output directory, with an atomic
// replace-with-backup write protocol.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"wab-go/internal/logging"
	"wab-go/internal/model"
	"wab-go/internal/state/migrations"
)

const (
	stateFileName  = "wab-state.db"
	newFileName    = "wab-state-new.db"
	backupFileName = "wab-state-backup.db"
)

// Store reads and writes the persisted state document. A missing file means
// an empty initial state; an unreadable one is downgraded to a cold start
// with a warning, never a fatal error. Saves go through write-new →
// backup-old → promote-new, so an interruption at any point leaves the
// canonical file intact and at most one backup generation behind.
type Store struct {
	dir    string
	logger logging.Logger
}

// NewStore creates a store rooted at the output directory.
func NewStore(outputDir string, logger logging.Logger) *Store {
	return &Store{dir: outputDir, logger: logger}
}

// Path returns the canonical state file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, stateFileName)
}

func (s *Store) newPath() string {
	return filepath.Join(s.dir, newFileName)
}

// BackupPath returns the rotating backup path.
func (s *Store) BackupPath() string {
	return filepath.Join(s.dir, backupFileName)
}

// Load reads the prior run's state. Absence yields an empty state silently;
// a file that cannot be opened, is at the wrong schema version, or fails to
// read yields an empty state with a warning — messages remembered only in
// state may be lost in that case, which is why the warning points at the
// backup file.
func (s *Store) Load() (*model.State, error) {
	path := s.Path()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.logger.Debug("no prior state file, starting empty", "path", path)
		return model.NewState(), nil
	}

	db, err := openConnection(path)
	if err != nil {
		s.warnCorrupt(path, err)
		return model.NewState(), nil
	}
	defer db.Close()

	if err := migrations.CheckStatus(db); err != nil {
		s.warnCorrupt(path, err)
		return model.NewState(), nil
	}

	st, err := readState(db)
	if err != nil {
		s.warnCorrupt(path, err)
		return model.NewState(), nil
	}

	s.logger.Debug("prior state loaded", "files", len(st.Files), "chats", len(st.Chats))
	return st, nil
}

func (s *Store) warnCorrupt(path string, err error) {
	s.logger.Warn("prior state unusable, regenerating from input",
		"path", path, "error", err, "backup", s.BackupPath())
}

// Save persists the state. A complete new database is built at a temporary
// path first; only after it is fully written does the existing canonical
// file rotate to the single backup slot and the new file take its place. If
// anything fails before the final rename, the prior canonical file is
// untouched.
func (s *Store) Save(st *model.State) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	newPath := s.newPath()
	os.Remove(newPath) // stale leftover from an interrupted run

	if err := s.writeNew(newPath, st); err != nil {
		os.Remove(newPath)
		return err
	}

	canonical := s.Path()
	if _, err := os.Stat(canonical); err == nil {
		backup := s.BackupPath()
		os.Remove(backup)
		if err := os.Rename(canonical, backup); err != nil {
			os.Remove(newPath)
			return fmt.Errorf("rotating state backup: %w", err)
		}
	}

	if err := os.Rename(newPath, canonical); err != nil {
		return fmt.Errorf("promoting new state file: %w", err)
	}

	s.logger.Info("state persisted", "path", canonical, "files", len(st.Files), "chats", len(st.Chats))
	return nil
}

func (s *Store) writeNew(path string, st *model.State) error {
	db, err := openConnection(path)
	if err != nil {
		return fmt.Errorf("creating new state file: %w", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return fmt.Errorf("preparing state schema: %w", err)
	}

	if err := writeState(db, st); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}

	return nil
}

// openConnection opens and configures a SQLite connection with the
// appropriate PRAGMAs.
func openConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}
