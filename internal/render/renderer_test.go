package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wab-go/internal/logging"
	"wab-go/internal/model"
	"wab-go/internal/testutil"
	"wab-go/internal/vfs"
)

func TestRenderYear(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()

	mtime := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	mediaPath := testutil.WriteFile(t, input, "trip/IMG-1.jpg", "jpeg bytes", mtime)

	fsys := vfs.New()
	defer fsys.Close()
	if _, err := fsys.ScanRoot(input, nil, logging.NewNopLogger()); err != nil {
		t.Fatalf("ScanRoot() error = %v", err)
	}
	info, err := os.Stat(mediaPath)
	if err != nil {
		t.Fatal(err)
	}
	mediaID := model.NewFileID("trip/IMG-1.jpg", info.Size(), info.ModTime())

	chat := model.NewChat("Trip <Planning>")
	chat.Messages = []*model.Message{
		{Timestamp: "[01.02.2023, 10:00:00]", Sender: "Ana", Content: "hello <world>\nsecond line", Year: 2023},
		{Timestamp: "[01.02.2023, 10:01:00]", Sender: "Ben", Year: 2023, MediaName: "IMG-1.jpg", Media: mediaID},
		{Timestamp: "[01.02.2023, 10:02:00]", Sender: "Ben", Year: 2023, MediaName: "gone.jpg"},
		{Timestamp: "[05.05.2022, 09:00:00]", Sender: "Ana", Content: "wrong year", Year: 2022},
	}
	out := model.NewOutputFile(2023)
	out.MediaDeps["IMG-1.jpg"] = mediaID
	out.MediaDeps["gone.jpg"] = ""

	r := New(output, logging.NewNopLogger())
	if err := r.RenderYear(fsys, chat, out); err != nil {
		t.Fatalf("RenderYear() error = %v", err)
	}

	chatDir := filepath.Join(output, "Trip _Planning_")
	page, err := os.ReadFile(filepath.Join(chatDir, "2023.html"))
	if err != nil {
		t.Fatalf("year page not written: %v", err)
	}
	html := string(page)

	if !strings.Contains(html, "hello &lt;world&gt;") {
		t.Error("message content not escaped into page")
	}
	if !strings.Contains(html, "second line") {
		t.Error("multi-line content truncated")
	}
	if strings.Contains(html, "wrong year") {
		t.Error("message from another year leaked into page")
	}
	if !strings.Contains(html, `img src="media/IMG-1.jpg"`) {
		t.Error("resolved image not embedded")
	}
	if !strings.Contains(html, "attachment missing: gone.jpg") {
		t.Error("unresolved media not flagged")
	}

	copied, err := os.ReadFile(filepath.Join(chatDir, "media", "IMG-1.jpg"))
	if err != nil {
		t.Fatalf("media not copied: %v", err)
	}
	if string(copied) != "jpeg bytes" {
		t.Errorf("copied media = %q, want original bytes", copied)
	}
}

func TestRenderYearSkipsVanishedMedia(t *testing.T) {
	output := t.TempDir()

	mtime := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	gone := model.NewFileRecord("trip/IMG-1.jpg", 6, mtime, "")
	gone.Exists = false

	fsys := vfs.New()
	defer fsys.Close()
	fsys.Register(gone)

	chat := model.NewChat("Trip")
	chat.Messages = []*model.Message{
		{Timestamp: "[01.02.2023, 10:00:00]", Sender: "Ana", Year: 2023, MediaName: "IMG-1.jpg", Media: gone.ID},
	}
	out := model.NewOutputFile(2023)
	out.MediaDeps["IMG-1.jpg"] = gone.ID

	r := New(output, logging.NewNopLogger())
	if err := r.RenderYear(fsys, chat, out); err != nil {
		t.Fatalf("RenderYear() error = %v", err)
	}

	page, err := os.ReadFile(filepath.Join(output, "Trip", "2023.html"))
	if err != nil {
		t.Fatalf("year page not written: %v", err)
	}
	if !strings.Contains(string(page), `img src="media/IMG-1.jpg"`) {
		t.Error("remembered image not embedded")
	}
}

func TestRenderIndexes(t *testing.T) {
	output := t.TempDir()

	st := model.NewState()
	chat := model.NewChat("Family")
	chat.Outputs[2022] = model.NewOutputFile(2022)
	chat.Outputs[2023] = model.NewOutputFile(2023)
	st.Chats["Family"] = chat
	st.Chats["Trip"] = model.NewChat("Trip")

	r := New(output, logging.NewNopLogger())
	if err := r.RenderIndexes(st); err != nil {
		t.Fatalf("RenderIndexes() error = %v", err)
	}

	entry, err := os.ReadFile(filepath.Join(output, "index.html"))
	if err != nil {
		t.Fatalf("entry page not written: %v", err)
	}
	for _, want := range []string{"Family/index.html", "Trip/index.html"} {
		if !strings.Contains(string(entry), want) {
			t.Errorf("entry page missing link %q", want)
		}
	}

	chatIndex, err := os.ReadFile(filepath.Join(output, "Family", "index.html"))
	if err != nil {
		t.Fatalf("chat index not written: %v", err)
	}
	for _, want := range []string{"2022.html", "2023.html"} {
		if !strings.Contains(string(chatIndex), want) {
			t.Errorf("chat index missing link %q", want)
		}
	}

	css, err := os.ReadFile(filepath.Join(output, StylesheetName))
	if err != nil {
		t.Fatalf("stylesheet not written: %v", err)
	}
	if len(css) == 0 {
		t.Error("stylesheet written empty")
	}
}

func TestStylesheetIdentityStable(t *testing.T) {
	r := New(t.TempDir(), logging.NewNopLogger())
	a := r.Stylesheet()
	b := r.Stylesheet()
	if a.ID != b.ID {
		t.Errorf("stylesheet identity differs between calls: %s vs %s", a.ID, b.ID)
	}
	if a.BaseName != StylesheetName {
		t.Errorf("stylesheet base name = %q, want %q", a.BaseName, StylesheetName)
	}
}

func TestChatDirName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Family", "Family"},
		{"slashes", "a/b\\c", "a_b_c"},
		{"reserved", "..", "_chat"},
		{"empty", "", "_chat"},
		{"spaces kept", "Holiday Planning", "Holiday Planning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chatDirName(tt.in); got != tt.want {
				t.Errorf("chatDirName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
