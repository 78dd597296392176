package testutil

import (
	"fmt"
	"time"

	"wab-go/internal/model"
	"wab-go/internal/vfs"
)

// StubRenderer records render calls instead of writing HTML. FailYears
// entries (keyed "chat/year") make the corresponding RenderYear call fail.
type StubRenderer struct {
	css        *model.FileRecord
	YearCalls  []string
	IndexCalls int
	LastState  *model.State
	FailYears  map[string]bool
}

// NewStubRenderer creates a stub renderer with a fixed stylesheet identity.
func NewStubRenderer() *StubRenderer {
	return &StubRenderer{
		css:       model.NewFileRecord("style.css", 42, time.Unix(1000, 0), ""),
		FailYears: make(map[string]bool),
	}
}

// SetStylesheet replaces the stylesheet record, simulating a stylesheet
// change between runs.
func (r *StubRenderer) SetStylesheet(rec *model.FileRecord) { r.css = rec }

func (r *StubRenderer) Stylesheet() *model.FileRecord { return r.css.Clone() }

func (r *StubRenderer) RenderYear(fsys *vfs.VFS, chat *model.Chat, out *model.OutputFile) error {
	key := fmt.Sprintf("%s/%d", chat.Name, out.Year)
	if r.FailYears[key] {
		return fmt.Errorf("render failure injected for %s", key)
	}
	r.YearCalls = append(r.YearCalls, key)
	return nil
}

func (r *StubRenderer) RenderIndexes(st *model.State) error {
	r.IndexCalls++
	r.LastState = st
	return nil
}
