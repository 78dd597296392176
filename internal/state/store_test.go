package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wab-go/internal/logging"
	"wab-go/internal/model"
)

func sampleState(t *testing.T) *model.State {
	t.Helper()

	st := model.NewState()

	transcript := model.NewFileRecord("holiday/_chat.txt", 120, time.Unix(1700000000, 0), "")
	photo := model.NewFileRecord("holiday/IMG-0001.jpg", 4096, time.Unix(1700000100, 0), "")
	vanished := model.NewFileRecord("old/_chat.txt", 50, time.Unix(1600000000, 0), "")
	vanished.Exists = false
	css := model.NewFileRecord("browseability-generator.css", 300, time.Unix(0, 0), "")

	for _, r := range []*model.FileRecord{transcript, photo, vanished, css} {
		st.Files[r.ID] = r
	}

	chat := model.NewChat("Holiday Planning")
	chat.Messages = []*model.Message{
		{
			Timestamp: "[12.03.23, 14:01:02]",
			Sender:    "Ana",
			Content:   "see you there",
			Year:      2023,
			Source:    transcript.ID,
		},
		{
			Timestamp: "[12.03.23, 14:05:00]",
			Sender:    "Ben",
			Year:      2023,
			Source:    transcript.ID,
			MediaName: "IMG-0001.jpg",
			Media:     photo.ID,
		},
	}
	out := model.NewOutputFile(2023)
	out.AddTranscriptDep(transcript.ID)
	out.MediaDeps["IMG-0001.jpg"] = photo.ID
	out.MediaDeps["IMG-0002.jpg"] = "" // unresolved
	out.Stylesheet = css.ID
	chat.Outputs[2023] = out
	st.Chats[chat.Name] = chat

	st.Chats["Empty Chat"] = model.NewChat("Empty Chat")

	return st
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, logging.NewNopLogger())

	want := sampleState(t)
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(got.Files) != len(want.Files) {
		t.Fatalf("Load() files = %d, want %d", len(got.Files), len(want.Files))
	}
	for id, wr := range want.Files {
		gr, ok := got.Files[id]
		if !ok {
			t.Fatalf("file %s missing after round trip", wr.Path)
		}
		if gr.Path != wr.Path || gr.BaseName != wr.BaseName || gr.Size != wr.Size ||
			gr.Parent != wr.Parent || gr.Exists != wr.Exists ||
			!gr.ModTime.Equal(wr.ModTime) {
			t.Errorf("file %s = %+v, want %+v", wr.Path, gr, wr)
		}
	}

	if len(got.Chats) != len(want.Chats) {
		t.Fatalf("Load() chats = %d, want %d", len(got.Chats), len(want.Chats))
	}
	gotChat := got.Chats["Holiday Planning"]
	wantChat := want.Chats["Holiday Planning"]
	if gotChat == nil {
		t.Fatal("chat missing after round trip")
	}
	if len(gotChat.Messages) != len(wantChat.Messages) {
		t.Fatalf("messages = %d, want %d", len(gotChat.Messages), len(wantChat.Messages))
	}
	for i, wm := range wantChat.Messages {
		gm := gotChat.Messages[i]
		if *gm != *wm {
			t.Errorf("message %d = %+v, want %+v", i, gm, wm)
		}
	}

	gotOut := gotChat.Outputs[2023]
	if gotOut == nil {
		t.Fatal("output record missing after round trip")
	}
	if !gotOut.Equal(wantChat.Outputs[2023]) {
		t.Errorf("output = %+v, want %+v", gotOut, wantChat.Outputs[2023])
	}
	if id, ok := gotOut.MediaDeps["IMG-0002.jpg"]; !ok || id != "" {
		t.Errorf("unresolved media dep = (%q, %v), want (\"\", true)", id, ok)
	}

	if empty := got.Chats["Empty Chat"]; empty == nil || len(empty.Messages) != 0 {
		t.Errorf("empty chat = %+v, want empty", empty)
	}
}

func TestStoreLoadAbsent(t *testing.T) {
	store := NewStore(t.TempDir(), logging.NewNopLogger())

	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(st.Files) != 0 || len(st.Chats) != 0 {
		t.Errorf("Load() of absent file = %d files, %d chats, want empty", len(st.Files), len(st.Chats))
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, logging.NewNopLogger())

	if err := os.WriteFile(store.Path(), []byte("this is not a database"), 0644); err != nil {
		t.Fatal(err)
	}

	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want downgrade to empty state", err)
	}
	if len(st.Files) != 0 || len(st.Chats) != 0 {
		t.Errorf("Load() of corrupt file = %d files, %d chats, want empty", len(st.Files), len(st.Chats))
	}
}

func TestStoreSaveRotatesBackup(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, logging.NewNopLogger())

	first := model.NewState()
	first.Chats["First"] = model.NewChat("First")
	if err := store.Save(first); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if _, err := os.Stat(store.BackupPath()); !os.IsNotExist(err) {
		t.Errorf("backup exists after first save, want absent")
	}

	second := model.NewState()
	second.Chats["Second"] = model.NewChat("Second")
	if err := store.Save(second); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if _, err := os.Stat(store.BackupPath()); err != nil {
		t.Fatalf("backup missing after second save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := got.Chats["Second"]; !ok {
		t.Errorf("canonical state chats = %v, want Second", got.ChatNames())
	}

	if _, err := os.Stat(store.newPath()); !os.IsNotExist(err) {
		t.Errorf("temporary new-state file left behind after save")
	}

	// The backup holds the previous generation: promote it manually and it
	// must load as the first state.
	if err := os.Rename(store.BackupPath(), store.Path()); err != nil {
		t.Fatal(err)
	}
	restored, err := store.Load()
	if err != nil {
		t.Fatalf("Load() of promoted backup error = %v", err)
	}
	if _, ok := restored.Chats["First"]; !ok {
		t.Errorf("backup state chats = %v, want First", restored.ChatNames())
	}
}

func TestStoreSaveKeepsCanonicalOnFailure(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, logging.NewNopLogger())

	first := model.NewState()
	first.Chats["Keep Me"] = model.NewChat("Keep Me")
	if err := store.Save(first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A non-empty directory squatting on the temp path makes the new-file
	// build fail.
	if err := os.Mkdir(store.newPath(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.newPath(), "blocker"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(model.NewState()); err == nil {
		t.Fatal("Save() with blocked temp path succeeded, want error")
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := got.Chats["Keep Me"]; !ok {
		t.Errorf("canonical state lost after failed save, chats = %v", got.ChatNames())
	}
}
