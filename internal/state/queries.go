package state

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"wab-go/internal/model"
)

// writeState inserts the entire state into a freshly migrated database in a
// single transaction. Rows are inserted in deterministic order so equal
// states produce byte-comparable files.
func writeState(db *sql.DB, st *model.State) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := writeFiles(tx, st); err != nil {
		return err
	}
	if err := writeChats(tx, st); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

func writeFiles(tx *sql.Tx, st *model.State) error {
	ids := make([]model.FileID, 0, len(st.Files))
	for id := range st.Files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	stmt, err := tx.Prepare(`INSERT INTO files (id, path, base_name, size, mod_time_ns, parent_id, present)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare files insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		r := st.Files[id]
		present := 0
		if r.Exists {
			present = 1
		}
		if _, err := stmt.Exec(string(r.ID), r.Path, r.BaseName, r.Size,
			r.ModTime.UnixNano(), string(r.Parent), present); err != nil {
			return fmt.Errorf("failed to insert file %s: %w", r.Path, err)
		}
	}
	return nil
}

func writeChats(tx *sql.Tx, st *model.State) error {
	msgStmt, err := tx.Prepare(`INSERT INTO messages (chat_name, seq, timestamp, sender, content, year, source_id, media_name, media_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare messages insert: %w", err)
	}
	defer msgStmt.Close()

	for _, name := range st.ChatNames() {
		chat := st.Chats[name]
		if _, err := tx.Exec(`INSERT INTO chats (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("failed to insert chat %q: %w", name, err)
		}

		for seq, m := range chat.Messages {
			if _, err := msgStmt.Exec(name, seq, m.Timestamp, m.Sender, m.Content,
				m.Year, string(m.Source), m.MediaName, string(m.Media)); err != nil {
				return fmt.Errorf("failed to insert message %d of chat %q: %w", seq, name, err)
			}
		}

		if err := writeOutputs(tx, name, chat); err != nil {
			return err
		}
	}
	return nil
}

func writeOutputs(tx *sql.Tx, chatName string, chat *model.Chat) error {
	for _, year := range chat.Years() {
		out := chat.Outputs[year]
		if _, err := tx.Exec(`INSERT INTO output_files (chat_name, year, stylesheet_id) VALUES (?, ?, ?)`,
			chatName, year, string(out.Stylesheet)); err != nil {
			return fmt.Errorf("failed to insert output %q/%d: %w", chatName, year, err)
		}

		for _, dep := range out.TranscriptDeps {
			if _, err := tx.Exec(`INSERT INTO output_transcript_deps (chat_name, year, file_id) VALUES (?, ?, ?)`,
				chatName, year, string(dep)); err != nil {
				return fmt.Errorf("failed to insert transcript dep for %q/%d: %w", chatName, year, err)
			}
		}

		names := make([]string, 0, len(out.MediaDeps))
		for n := range out.MediaDeps {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if _, err := tx.Exec(`INSERT INTO output_media_deps (chat_name, year, base_name, file_id) VALUES (?, ?, ?, ?)`,
				chatName, year, n, string(out.MediaDeps[n])); err != nil {
				return fmt.Errorf("failed to insert media dep for %q/%d: %w", chatName, year, err)
			}
		}
	}
	return nil
}

// readState reconstructs a full state from the database.
func readState(db *sql.DB) (*model.State, error) {
	st := model.NewState()

	if err := readFiles(db, st); err != nil {
		return nil, err
	}
	if err := readChats(db, st); err != nil {
		return nil, err
	}
	if err := readMessages(db, st); err != nil {
		return nil, err
	}
	if err := readOutputs(db, st); err != nil {
		return nil, err
	}

	return st, nil
}

func readFiles(db *sql.DB, st *model.State) error {
	rows, err := db.Query(`SELECT id, path, base_name, size, mod_time_ns, parent_id, present FROM files`)
	if err != nil {
		return fmt.Errorf("failed to read files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, path, baseName, parent string
			size, modTimeNS            int64
			present                    int
		)
		if err := rows.Scan(&id, &path, &baseName, &size, &modTimeNS, &parent, &present); err != nil {
			return fmt.Errorf("failed to scan file row: %w", err)
		}
		st.Files[model.FileID(id)] = &model.FileRecord{
			ID:       model.FileID(id),
			Path:     path,
			BaseName: baseName,
			Size:     size,
			ModTime:  time.Unix(0, modTimeNS),
			Parent:   model.FileID(parent),
			Exists:   present == 1,
		}
	}
	return rows.Err()
}

func readChats(db *sql.DB, st *model.State) error {
	rows, err := db.Query(`SELECT name FROM chats`)
	if err != nil {
		return fmt.Errorf("failed to read chats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan chat row: %w", err)
		}
		st.Chats[name] = model.NewChat(name)
	}
	return rows.Err()
}

func readMessages(db *sql.DB, st *model.State) error {
	rows, err := db.Query(`SELECT chat_name, timestamp, sender, content, year, source_id, media_name, media_id
		FROM messages ORDER BY chat_name, seq`)
	if err != nil {
		return fmt.Errorf("failed to read messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			chatName, timestamp, sender, content string
			sourceID, mediaName, mediaID         string
			year                                 int
		)
		if err := rows.Scan(&chatName, &timestamp, &sender, &content, &year,
			&sourceID, &mediaName, &mediaID); err != nil {
			return fmt.Errorf("failed to scan message row: %w", err)
		}
		chat, ok := st.Chats[chatName]
		if !ok {
			return fmt.Errorf("message references unknown chat %q", chatName)
		}
		chat.Messages = append(chat.Messages, &model.Message{
			Timestamp: timestamp,
			Sender:    sender,
			Content:   content,
			Year:      year,
			Source:    model.FileID(sourceID),
			MediaName: mediaName,
			Media:     model.FileID(mediaID),
		})
	}
	return rows.Err()
}

func readOutputs(db *sql.DB, st *model.State) error {
	rows, err := db.Query(`SELECT chat_name, year, stylesheet_id FROM output_files`)
	if err != nil {
		return fmt.Errorf("failed to read output files: %w", err)
	}
	for rows.Next() {
		var (
			chatName, stylesheet string
			year                 int
		)
		if err := rows.Scan(&chatName, &year, &stylesheet); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan output row: %w", err)
		}
		chat, ok := st.Chats[chatName]
		if !ok {
			rows.Close()
			return fmt.Errorf("output references unknown chat %q", chatName)
		}
		out := model.NewOutputFile(year)
		out.Stylesheet = model.FileID(stylesheet)
		chat.Outputs[year] = out
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if err := readTranscriptDeps(db, st); err != nil {
		return err
	}
	return readMediaDeps(db, st)
}

func readTranscriptDeps(db *sql.DB, st *model.State) error {
	rows, err := db.Query(`SELECT chat_name, year, file_id FROM output_transcript_deps ORDER BY chat_name, year, file_id`)
	if err != nil {
		return fmt.Errorf("failed to read transcript deps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			chatName, fileID string
			year             int
		)
		if err := rows.Scan(&chatName, &year, &fileID); err != nil {
			return fmt.Errorf("failed to scan transcript dep row: %w", err)
		}
		out, err := outputFor(st, chatName, year)
		if err != nil {
			return err
		}
		out.TranscriptDeps = append(out.TranscriptDeps, model.FileID(fileID))
	}
	return rows.Err()
}

func readMediaDeps(db *sql.DB, st *model.State) error {
	rows, err := db.Query(`SELECT chat_name, year, base_name, file_id FROM output_media_deps`)
	if err != nil {
		return fmt.Errorf("failed to read media deps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			chatName, baseName, fileID string
			year                       int
		)
		if err := rows.Scan(&chatName, &year, &baseName, &fileID); err != nil {
			return fmt.Errorf("failed to scan media dep row: %w", err)
		}
		out, err := outputFor(st, chatName, year)
		if err != nil {
			return err
		}
		out.MediaDeps[baseName] = model.FileID(fileID)
	}
	return rows.Err()
}

func outputFor(st *model.State, chatName string, year int) (*model.OutputFile, error) {
	chat, ok := st.Chats[chatName]
	if !ok {
		return nil, fmt.Errorf("dependency references unknown chat %q", chatName)
	}
	out, ok := chat.Outputs[year]
	if !ok {
		return nil, fmt.Errorf("dependency references unknown output %q/%d", chatName, year)
	}
	return out, nil
}
