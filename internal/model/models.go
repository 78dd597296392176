package model

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"time"
)

// FileID identifies one physical artifact (transcript, media file, or archive
// member) by a stable hash of its path, size, and modification time. Equal IDs
// are treated as equal content without ever reading bytes; an unmodified file
// with a touched mtime gets a new ID, which is accepted as the cost of
// avoiding content hashing.
type FileID string

// NewFileID derives a FileID from file metadata. The path must already be
// normalized (slash-separated, relative to its container). Deterministic, no
// error path.
func NewFileID(relPath string, size int64, modTime time.Time) FileID {
	sum := sha1.Sum([]byte(fmt.Sprintf("%d:%d:%s", modTime.UnixNano(), size, relPath)))
	return FileID(base64.StdEncoding.EncodeToString(sum[:]))
}

// FileRecord describes one file known to the system, whether it was seen in
// the current scan or only remembered from a prior run. Records are never
// deleted from persisted state; when a file disappears from the input it is
// kept with Exists=false because old output files may still reference it.
type FileRecord struct {
	ID       FileID
	Path     string // slash-separated, relative to the scan root or archive
	BaseName string
	Size     int64
	ModTime  time.Time
	Parent   FileID // containing archive, empty for loose files
	Exists   bool   // observed in the current scan
}

// NewFileRecord builds a record with its derived ID. relPath must be
// slash-separated.
func NewFileRecord(relPath string, size int64, modTime time.Time, parent FileID) *FileRecord {
	return &FileRecord{
		ID:       NewFileID(relPath, size, modTime),
		Path:     relPath,
		BaseName: path.Base(relPath),
		Size:     size,
		ModTime:  modTime,
		Parent:   parent,
		Exists:   true,
	}
}

// Clone returns a copy of the record.
func (r *FileRecord) Clone() *FileRecord {
	c := *r
	return &c
}

// Message is one logical chat entry. Timestamps are kept verbatim in their
// original localized format; only the four-digit year is extracted, because
// localized timestamps are not reliably comparable.
type Message struct {
	Timestamp string
	Sender    string
	Content   string // possibly multi-line; empty when the entry is a media reference
	Year      int
	Source    FileID // transcript the message was parsed from
	MediaName string // base name of the referenced media file, empty if none
	Media     FileID // resolved media record, empty if unresolved or no media
}

// DedupKey is the natural key for collapsing exact duplicates across
// overlapping transcript exports.
func (m *Message) DedupKey() string {
	return m.Timestamp + "|" + m.Sender + "|" + m.Content + "|" + m.MediaName
}

// OutputFile tracks the dependency set of one generated per-year chat page.
// The page is regenerated if and only if some element of this set differs
// from the prior run's record for the same chat and year.
type OutputFile struct {
	Year           int
	TranscriptDeps []FileID          // sorted, transcripts contributing messages
	MediaDeps      map[string]FileID // base name -> resolved ID, empty ID = unresolved
	Stylesheet     FileID
}

// NewOutputFile returns an empty dependency record for a year.
func NewOutputFile(year int) *OutputFile {
	return &OutputFile{Year: year, MediaDeps: make(map[string]FileID)}
}

// AddTranscriptDep inserts a transcript dependency, keeping the set sorted
// and free of duplicates.
func (o *OutputFile) AddTranscriptDep(id FileID) {
	i := sort.Search(len(o.TranscriptDeps), func(i int) bool { return o.TranscriptDeps[i] >= id })
	if i < len(o.TranscriptDeps) && o.TranscriptDeps[i] == id {
		return
	}
	o.TranscriptDeps = append(o.TranscriptDeps, "")
	copy(o.TranscriptDeps[i+1:], o.TranscriptDeps[i:])
	o.TranscriptDeps[i] = id
}

// Equal reports whether two dependency records are identical. An entry that
// is unresolved on both sides compares equal, which is what keeps a
// permanently missing media file from causing regeneration churn.
func (o *OutputFile) Equal(other *OutputFile) bool {
	if other == nil {
		return false
	}
	if o.Year != other.Year || o.Stylesheet != other.Stylesheet {
		return false
	}
	if len(o.TranscriptDeps) != len(other.TranscriptDeps) {
		return false
	}
	for i, id := range o.TranscriptDeps {
		if other.TranscriptDeps[i] != id {
			return false
		}
	}
	if len(o.MediaDeps) != len(other.MediaDeps) {
		return false
	}
	for name, id := range o.MediaDeps {
		otherID, ok := other.MediaDeps[name]
		if !ok || otherID != id {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the record.
func (o *OutputFile) Clone() *OutputFile {
	c := NewOutputFile(o.Year)
	c.TranscriptDeps = append([]FileID(nil), o.TranscriptDeps...)
	for name, id := range o.MediaDeps {
		c.MediaDeps[name] = id
	}
	c.Stylesheet = o.Stylesheet
	return c
}

// Chat is a named conversation aggregated from one or more transcript
// exports. The name is the sender of the first system-style line of the
// earliest transcript.
type Chat struct {
	Name     string
	Messages []*Message
	Outputs  map[int]*OutputFile // year -> dependency record
}

// NewChat returns an empty chat.
func NewChat(name string) *Chat {
	return &Chat{Name: name, Outputs: make(map[int]*OutputFile)}
}

// Years returns the chat's output years in ascending order.
func (c *Chat) Years() []int {
	years := make([]int, 0, len(c.Outputs))
	for y := range c.Outputs {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Transcript is the result of parsing one transcript file: the derived chat
// name and the messages in file order.
type Transcript struct {
	ChatName string
	Messages []*Message
}

// State is the single persisted document: every known FileRecord (including
// non-existent ones, for history) and every chat with its messages and
// output dependency records.
type State struct {
	Files map[FileID]*FileRecord
	Chats map[string]*Chat
}

// NewState returns an empty state, the starting point when no prior persisted
// file exists.
func NewState() *State {
	return &State{
		Files: make(map[FileID]*FileRecord),
		Chats: make(map[string]*Chat),
	}
}

// ChatNames returns all chat names in lexical order.
func (s *State) ChatNames() []string {
	names := make([]string, 0, len(s.Chats))
	for name := range s.Chats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
