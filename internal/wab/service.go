package wab

import (
	"context"
	"fmt"
	"time"

	"wab-go/internal/config"
	wabfs "wab-go/internal/fs"
	"wab-go/internal/logging"
	"wab-go/internal/model"
	"wab-go/internal/vfs"
)

// Coordinator drives one full generation run in fixed order: load prior
// state, scan and merge the VFS, reconcile, render dirty outputs, persist.
// Failures in individual renders downgrade to warnings and never prevent the
// save; fatal errors occur only before any state mutation.
type Coordinator struct {
	cfg      *config.Config
	store    StateStore
	renderer Renderer
	parser   TranscriptParser
	logger   logging.Logger
	clock    Clock
	ids      IDGenerator
}

// RunSummary is what one invocation reports back to the caller.
type RunSummary struct {
	RunID    string
	Duration time.Duration
	Chats    int
	Files    int
	Dirty    int
	Rendered int
	Report   *Report
}

// NewCoordinator wires a coordinator from its collaborators.
func NewCoordinator(cfg *config.Config, store StateStore, renderer Renderer, parser TranscriptParser, logger logging.Logger, clock Clock, ids IDGenerator) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		renderer: renderer,
		parser:   parser,
		logger:   logger,
		clock:    clock,
		ids:      ids,
	}
}

// Run executes one generation pass. The returned summary is non-nil whenever
// the run got past input validation, even if the final save failed.
func (c *Coordinator) Run(ctx context.Context) (*RunSummary, error) {
	start := c.clock.Now()
	runID := c.ids.NewID()
	report := NewReport()
	c.logger.Info("run starting", "run_id", runID, "inputs", len(c.cfg.InputDirs))

	inputs := make([]string, 0, len(c.cfg.InputDirs))
	for _, raw := range c.cfg.InputDirs {
		abs, err := wabfs.ResolveDir(raw)
		if err != nil {
			return nil, fmt.Errorf("input directory %s: %w", raw, err)
		}
		inputs = append(inputs, abs)
	}
	if _, err := wabfs.EnsureWritableDir(c.cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("output directory %s: %w", c.cfg.OutputDir, err)
	}

	prior, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading prior state: %w", err)
	}

	fsys := vfs.New()
	defer fsys.Close()
	fsys.MergePrior(prior.Files)

	ignore := wabfs.NewIgnoreMatcher(c.cfg.Filesystem.Ignore)
	for _, root := range inputs {
		warnings, err := fsys.ScanRoot(root, ignore, c.logger)
		for _, w := range warnings {
			report.Warn("%s", w)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}

	css := c.renderer.Stylesheet()
	fsys.Register(css)

	reconciler := NewReconciler(fsys, c.parser, c.logger, c.cfg.EffectiveWorkers())
	next, dirty, err := reconciler.Reconcile(ctx, prior, css.ID, report)
	if err != nil {
		return nil, err
	}

	rendered := 0
	for _, d := range dirty {
		if err := c.renderYear(fsys, d, prior, report); err == nil {
			rendered++
		}
	}

	if err := c.renderer.RenderIndexes(next); err != nil {
		report.Warn("index pages: %v", err)
		c.logger.Warn("index render failed", "error", err)
	}

	summary := &RunSummary{
		RunID:    runID,
		Chats:    len(next.Chats),
		Files:    len(next.Files),
		Dirty:    len(dirty),
		Rendered: rendered,
		Report:   report,
	}

	if err := c.store.Save(next); err != nil {
		summary.Duration = c.clock.Now().Sub(start)
		return summary, fmt.Errorf("persisting state: %w", err)
	}

	summary.Duration = c.clock.Now().Sub(start)
	c.logger.Info("run complete", "run_id", runID,
		"chats", summary.Chats, "dirty", summary.Dirty, "rendered", summary.Rendered,
		"warnings", len(report.Warnings), "duration", summary.Duration.String())
	return summary, nil
}

// renderYear regenerates one dirty page. On failure the output's dependency
// record reverts to the prior run's (or is dropped when there was none), so
// the page is retried on the next run instead of being recorded as current.
func (c *Coordinator) renderYear(fsys *vfs.VFS, d DirtyOutput, prior *model.State, report *Report) error {
	err := c.renderer.RenderYear(fsys, d.Chat, d.Output)
	if err == nil {
		return nil
	}

	report.Warn("rendering %s/%d: %v", d.Chat.Name, d.Output.Year, err)
	c.logger.Warn("render failed", "chat", d.Chat.Name, "year", d.Output.Year, "error", err)

	var priorOut *model.OutputFile
	if priorChat := prior.Chats[d.Chat.Name]; priorChat != nil {
		priorOut = priorChat.Outputs[d.Output.Year]
	}
	if priorOut != nil {
		d.Chat.Outputs[d.Output.Year] = priorOut.Clone()
	} else {
		delete(d.Chat.Outputs, d.Output.Year)
	}
	return err
}
