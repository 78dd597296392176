// Package app is the application layer between the CLI and the regeneration
// core: it constructs all dependencies from config and manages the log file
// lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"wab-go/internal/config"
	"wab-go/internal/logging"
	"wab-go/internal/parser"
	"wab-go/internal/render"
	"wab-go/internal/state"
	"wab-go/internal/wab"
)

// App wires the coordinator and its collaborators from a config.
// The caller must call Close when done.
type App struct {
	cfg     *config.Config
	store   *state.Store
	coord   *wab.Coordinator
	logger  logging.Logger
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Generate", "Status") and tags
// every log line of this invocation.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store := state.NewStore(cfg.OutputDir, logger)
	renderer := render.New(cfg.OutputDir, logger)
	coord := wab.NewCoordinator(cfg, store, renderer, parser.New(), logger,
		wab.RealClock{}, wab.UUIDGenerator{})

	return &App{
		cfg:     cfg,
		store:   store,
		coord:   coord,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Generate runs one full regeneration pass.
func (a *App) Generate(ctx context.Context) (*wab.RunSummary, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return a.coord.Run(ctx)
}

// ChatStatus summarizes one chat from the persisted state.
type ChatStatus struct {
	Name     string
	Years    []int
	Messages int
}

// Status summarizes the persisted state of an output directory.
type Status struct {
	StatePath    string
	StateExists  bool
	FilesKnown   int
	FilesPresent int
	Chats        []ChatStatus
}

// Status reads the persisted state without touching the inputs.
func (a *App) Status() (*Status, error) {
	st, err := a.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	s := &Status{StatePath: a.store.Path()}
	if _, err := os.Stat(s.StatePath); err == nil {
		s.StateExists = true
	}
	s.FilesKnown = len(st.Files)
	for _, rec := range st.Files {
		if rec.Exists {
			s.FilesPresent++
		}
	}
	for _, name := range st.ChatNames() {
		chat := st.Chats[name]
		s.Chats = append(s.Chats, ChatStatus{
			Name:     name,
			Years:    chat.Years(),
			Messages: len(chat.Messages),
		})
	}
	return s, nil
}

// Close releases the log file.
func (a *App) Close() error {
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}
