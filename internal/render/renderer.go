// Package render writes the browsable HTML tree: one entry page, one
// directory per chat with an index and one page per year, media copied next
// to the pages, and a single shared stylesheet at the output root.
package render

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"wab-go/internal/logging"
	"wab-go/internal/model"
	"wab-go/internal/vfs"
)

// StylesheetName is the filename of the shared stylesheet at the output
// root. Year pages reference it relative to their chat directory.
const StylesheetName = "browseability-generator.css"

//go:embed stylesheet.css
var stylesheetCSS []byte

// Renderer writes HTML pages for chats. Pages are written atomically
// (temp file, then rename) so an interrupted run never leaves a truncated
// page behind.
type Renderer struct {
	outputDir string
	logger    logging.Logger
}

// New creates a renderer targeting the given output directory.
func New(outputDir string, logger logging.Logger) *Renderer {
	return &Renderer{outputDir: outputDir, logger: logger}
}

// Stylesheet describes the embedded stylesheet as a file record so it
// participates in dependency tracking. The record's timestamp is derived
// from the content hash: editing the stylesheet changes the identity and
// marks every page dirty, even when the size happens to stay the same.
func (r *Renderer) Stylesheet() *model.FileRecord {
	sum := sha1.Sum(stylesheetCSS)
	pseudoMTime := time.Unix(0, int64(binary.BigEndian.Uint64(sum[:8])&(1<<62-1)))
	return model.NewFileRecord(StylesheetName, int64(len(stylesheetCSS)), pseudoMTime, "")
}

type messageView struct {
	Timestamp  string
	Sender     string
	Lines      []string
	MediaHref  string
	MediaName  string
	MediaImage bool
	Unresolved bool
}

type yearView struct {
	ChatName   string
	Year       int
	Stylesheet string
	Messages   []messageView
}

// RenderYear writes one per-year chat page and copies the media it
// references out of the VFS (loose files and archive members alike) into
// the chat's media directory.
func (r *Renderer) RenderYear(fsys *vfs.VFS, chat *model.Chat, out *model.OutputFile) error {
	chatDir := filepath.Join(r.outputDir, chatDirName(chat.Name))
	if err := os.MkdirAll(chatDir, 0755); err != nil {
		return fmt.Errorf("creating chat directory: %w", err)
	}

	if err := r.copyMedia(fsys, chatDir, out); err != nil {
		return err
	}

	view := yearView{
		ChatName:   chat.Name,
		Year:       out.Year,
		Stylesheet: "../" + StylesheetName,
	}
	for _, m := range chat.Messages {
		if m.Year != out.Year {
			continue
		}
		view.Messages = append(view.Messages, newMessageView(m))
	}

	target := filepath.Join(chatDir, fmt.Sprintf("%d.html", out.Year))
	if err := writeTemplate(target, yearTemplate, view); err != nil {
		return err
	}
	r.logger.Debug("page written", "chat", chat.Name, "year", out.Year, "messages", len(view.Messages))
	return nil
}

func newMessageView(m *model.Message) messageView {
	v := messageView{
		Timestamp: m.Timestamp,
		Sender:    m.Sender,
		MediaName: m.MediaName,
	}
	if m.Content != "" {
		v.Lines = strings.Split(m.Content, "\n")
	}
	if m.MediaName == "" {
		return v
	}
	if m.Media == "" {
		v.Unresolved = true
		return v
	}
	v.MediaHref = path.Join("media", m.MediaName)
	switch strings.ToLower(path.Ext(m.MediaName)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		v.MediaImage = true
	}
	return v
}

func (r *Renderer) copyMedia(fsys *vfs.VFS, chatDir string, out *model.OutputFile) error {
	mediaDir := filepath.Join(chatDir, "media")
	for name, id := range out.MediaDeps {
		if id == "" {
			continue
		}
		rec := fsys.ByID(id)
		if rec == nil {
			return fmt.Errorf("media %s: record %s not known", name, id)
		}
		if !rec.Exists {
			// Remembered from prior state; the copy made when the file was
			// last seen is still in place under media/.
			continue
		}
		if err := os.MkdirAll(mediaDir, 0755); err != nil {
			return fmt.Errorf("creating media directory: %w", err)
		}
		if err := copyRecord(fsys, rec, filepath.Join(mediaDir, name)); err != nil {
			return fmt.Errorf("copying media %s: %w", name, err)
		}
	}
	return nil
}

func copyRecord(fsys *vfs.VFS, rec *model.FileRecord, target string) error {
	src, err := fsys.Open(rec)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".wab-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

type chatEntry struct {
	Name string
	Dir  string
}

type entryView struct {
	Stylesheet string
	Chats      []chatEntry
}

type chatIndexView struct {
	ChatName   string
	Stylesheet string
	Years      []int
}

// RenderIndexes rewrites the stylesheet, the entry page, and every chat's
// index page. These are cheap and rewritten every run; only the per-year
// pages are regenerated selectively.
func (r *Renderer) RenderIndexes(st *model.State) error {
	if err := writeFileAtomic(filepath.Join(r.outputDir, StylesheetName), stylesheetCSS); err != nil {
		return fmt.Errorf("writing stylesheet: %w", err)
	}

	entry := entryView{Stylesheet: StylesheetName}
	for _, name := range st.ChatNames() {
		chat := st.Chats[name]
		dir := chatDirName(name)
		entry.Chats = append(entry.Chats, chatEntry{Name: name, Dir: dir})

		chatDir := filepath.Join(r.outputDir, dir)
		if err := os.MkdirAll(chatDir, 0755); err != nil {
			return fmt.Errorf("creating chat directory: %w", err)
		}
		view := chatIndexView{
			ChatName:   name,
			Stylesheet: "../" + StylesheetName,
			Years:      chat.Years(),
		}
		if err := writeTemplate(filepath.Join(chatDir, "index.html"), chatIndexTemplate, view); err != nil {
			return fmt.Errorf("chat index for %q: %w", name, err)
		}
	}

	if err := writeTemplate(filepath.Join(r.outputDir, "index.html"), entryTemplate, entry); err != nil {
		return fmt.Errorf("entry page: %w", err)
	}
	r.logger.Debug("index pages written", "chats", len(entry.Chats))
	return nil
}

// chatDirName maps a chat display name to a filesystem-safe directory name.
func chatDirName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, name)
	mapped = strings.TrimSpace(mapped)
	if mapped == "" || mapped == "." || mapped == ".." {
		return "_chat"
	}
	return mapped
}
