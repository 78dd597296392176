// Package wab contains the regeneration core: the reconciler that decides
// which output pages must be rebuilt, and the coordinator that drives one
// full run of load → scan → reconcile → render → save.
package wab

import (
	"time"

	"github.com/google/uuid"

	"wab-go/internal/model"
	"wab-go/internal/vfs"
)

// StateStore persists the merged model between runs.
type StateStore interface {
	Load() (*model.State, error)
	Save(*model.State) error
}

// TranscriptParser turns transcript file contents into messages. It is pure:
// no filesystem access, called once per transcript with bytes supplied by
// the VFS.
type TranscriptParser interface {
	Parse(data []byte, source model.FileID) (*model.Transcript, error)
}

// Renderer writes the browsable output tree. RenderYear is invoked only for
// dirty output records; the entry page and per-chat indexes are rewritten
// every run.
type Renderer interface {
	// Stylesheet describes the embedded stylesheet as a file record, so it
	// participates in dependency tracking like any other input.
	Stylesheet() *model.FileRecord
	RenderYear(fsys *vfs.VFS, chat *model.Chat, out *model.OutputFile) error
	RenderIndexes(st *model.State) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator implements IDGenerator using random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.New().String() }
