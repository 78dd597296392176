package wab

import (
	"context"
	"path"
	"sort"

	"golang.org/x/sync/errgroup"

	"wab-go/internal/logging"
	"wab-go/internal/model"
	"wab-go/internal/vfs"
)

// Reconciler compares the freshly scanned inputs against the prior persisted
// state and decides, per chat and year, which output pages must be rebuilt.
// It produces the full merged state to persist; clean outputs retain exactly
// the prior dependency record, which is what bounds regeneration churn.
type Reconciler struct {
	fsys    *vfs.VFS
	parser  TranscriptParser
	logger  logging.Logger
	workers int
}

// DirtyOutput is one output page that must be regenerated, with the chat it
// belongs to.
type DirtyOutput struct {
	Chat   *model.Chat
	Output *model.OutputFile
}

// NewReconciler creates a reconciler over an already populated VFS.
func NewReconciler(fsys *vfs.VFS, parser TranscriptParser, logger logging.Logger, workers int) *Reconciler {
	if workers < 1 {
		workers = 1
	}
	return &Reconciler{fsys: fsys, parser: parser, logger: logger, workers: workers}
}

type parsedTranscript struct {
	rec *model.FileRecord
	tr  *model.Transcript
	err error
}

// Reconcile runs the decision core once. Transcripts observed in the current
// scan are parsed (in parallel), their messages merged with the messages
// remembered in prior state, media references re-resolved, and the resulting
// per-year dependency records compared against the prior run's. The returned
// state is complete and ready to persist; the dirty list is ordered by chat
// name then year.
//
// Parse failures and unresolved media are recorded on the report and never
// abort the run. The only error path is context cancellation.
func (r *Reconciler) Reconcile(ctx context.Context, prior *model.State, stylesheet model.FileID, report *Report) (*model.State, []DirtyOutput, error) {
	parsed, err := r.parseTranscripts(ctx)
	if err != nil {
		return nil, nil, err
	}

	byChat := make(map[string][]parsedTranscript)
	for _, p := range parsed {
		if p.err != nil {
			report.Warn("transcript %s skipped: %v", p.rec.Path, p.err)
			r.logger.Warn("transcript skipped", "path", p.rec.Path, "error", p.err)
			continue
		}
		byChat[p.tr.ChatName] = append(byChat[p.tr.ChatName], p)
	}

	next := model.NewState()
	for id, rec := range r.fsys.Records() {
		next.Files[id] = rec.Clone()
	}

	var dirty []DirtyOutput
	for _, name := range chatNameUnion(byChat, prior) {
		chat := r.buildChat(name, byChat[name], prior.Chats[name], stylesheet)
		next.Chats[name] = chat

		priorChat := prior.Chats[name]
		for _, year := range chat.Years() {
			out := chat.Outputs[year]
			var priorOut *model.OutputFile
			if priorChat != nil {
				priorOut = priorChat.Outputs[year]
			}
			if priorOut != nil && out.Equal(priorOut) {
				chat.Outputs[year] = priorOut.Clone()
				continue
			}
			dirty = append(dirty, DirtyOutput{Chat: chat, Output: out})
			r.logger.Debug("output dirty", "chat", name, "year", year, "prior", priorOut != nil)
		}

		// Years recorded before that produced no messages this run keep
		// their prior record untouched.
		if priorChat != nil {
			for year, priorOut := range priorChat.Outputs {
				if chat.Outputs[year] == nil {
					chat.Outputs[year] = priorOut.Clone()
				}
			}
		}
	}

	r.checkIntegrity(next, report)

	r.logger.Info("reconciled", "chats", len(next.Chats), "dirty", len(dirty))
	return next, dirty, nil
}

// parseTranscripts parses every transcript observed in the current scan,
// ordered by modification time then identity so overlapping exports merge
// deterministically.
func (r *Reconciler) parseTranscripts(ctx context.Context) ([]parsedTranscript, error) {
	var transcripts []*model.FileRecord
	for _, rec := range r.fsys.ByBaseName(vfs.TranscriptName) {
		if rec.Exists {
			transcripts = append(transcripts, rec)
		}
	}
	sort.SliceStable(transcripts, func(i, j int) bool {
		if !transcripts[i].ModTime.Equal(transcripts[j].ModTime) {
			return transcripts[i].ModTime.Before(transcripts[j].ModTime)
		}
		return transcripts[i].ID < transcripts[j].ID
	})

	results := make([]parsedTranscript, len(transcripts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, rec := range transcripts {
		i, rec := i, rec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i].rec = rec
			data, err := r.fsys.ReadAll(rec)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].tr, results[i].err = r.parser.Parse(data, rec.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// buildChat merges a chat's remembered messages with its freshly parsed
// transcripts, deduplicates, resolves media, and groups the survivors into
// per-year dependency records. Prior messages are seeded first: content
// whose source transcript disappeared is never discarded, and re-parsed
// duplicates of it collapse against the remembered copies.
func (r *Reconciler) buildChat(name string, transcripts []parsedTranscript, priorChat *model.Chat, stylesheet model.FileID) *model.Chat {
	chat := model.NewChat(name)

	seen := make(map[string]bool)
	keep := func(m *model.Message) {
		key := m.DedupKey()
		if seen[key] {
			return
		}
		seen[key] = true
		c := *m
		chat.Messages = append(chat.Messages, &c)
	}

	if priorChat != nil {
		for _, m := range priorChat.Messages {
			keep(m)
		}
	}
	for _, p := range transcripts {
		for _, m := range p.tr.Messages {
			keep(m)
		}
	}

	for _, m := range chat.Messages {
		out := chat.Outputs[m.Year]
		if out == nil {
			out = model.NewOutputFile(m.Year)
			out.Stylesheet = stylesheet
			chat.Outputs[m.Year] = out
		}
		out.AddTranscriptDep(m.Source)

		if m.MediaName != "" {
			m.Media = r.resolveMedia(m.Source, m.MediaName)
			out.MediaDeps[m.MediaName] = m.Media
		}
	}

	return chat
}

// resolveMedia locates the file backing a media reference: first a file
// co-located with the referencing transcript (same container, same
// directory), then any file with that base name anywhere known, ordered by
// identity. Records remembered from prior state resolve too — a reference
// whose file vanished keeps its remembered identity instead of flipping to
// unresolved and dirtying the page — but among base-name matches, files
// observed in the current scan win over remembered ones. Returns empty when
// nothing matches.
func (r *Reconciler) resolveMedia(source model.FileID, name string) model.FileID {
	if src := r.fsys.ByID(source); src != nil {
		candidate := path.Join(path.Dir(src.Path), name)
		if rec := r.fsys.ByPath(src.Parent, candidate); rec != nil {
			return rec.ID
		}
	}
	matches := r.fsys.ByBaseName(name)
	for _, rec := range matches {
		if rec.Exists {
			return rec.ID
		}
	}
	if len(matches) > 0 {
		return matches[0].ID
	}
	return ""
}

// checkIntegrity verifies that every identity referenced by an output record
// is known to the state being persisted. A miss is a defect in the
// reconciliation itself; it is surfaced loudly but the run still persists.
func (r *Reconciler) checkIntegrity(st *model.State, report *Report) {
	check := func(chat string, year int, kind string, id model.FileID) {
		if id == "" {
			return
		}
		if st.Files[id] == nil {
			report.Defect("output %s/%d references unknown %s file %s", chat, year, kind, id)
			r.logger.Error("dependency references unregistered file",
				"chat", chat, "year", year, "kind", kind, "id", string(id))
		}
	}

	for _, name := range st.ChatNames() {
		chat := st.Chats[name]
		for _, year := range chat.Years() {
			out := chat.Outputs[year]
			for _, dep := range out.TranscriptDeps {
				check(name, year, "transcript", dep)
			}
			for _, id := range out.MediaDeps {
				check(name, year, "media", id)
			}
			check(name, year, "stylesheet", out.Stylesheet)
		}
	}
}

func chatNameUnion(byChat map[string][]parsedTranscript, prior *model.State) []string {
	set := make(map[string]bool, len(byChat)+len(prior.Chats))
	for name := range byChat {
		set[name] = true
	}
	for name := range prior.Chats {
		set[name] = true
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
