package wab

import "fmt"

// Report accumulates the sub-fatal problems of one run. Warnings are
// recoverable per-artifact conditions (unreadable subpath, unparsable
// transcript, unresolved media); defects are internal consistency failures
// that should never happen and are surfaced loudly while the run still
// persists what it has.
type Report struct {
	Warnings []string
	Defects  []string
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{}
}

// Warn records a recoverable problem.
func (r *Report) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Defect records an internal consistency failure.
func (r *Report) Defect(format string, args ...any) {
	r.Defects = append(r.Defects, fmt.Sprintf(format, args...))
}

// Clean reports whether the run completed without warnings or defects.
func (r *Report) Clean() bool {
	return len(r.Warnings) == 0 && len(r.Defects) == 0
}
