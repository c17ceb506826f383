// Package trace records per-cycle execution events and renders them into
// a human-readable report, the way the teacher's verification reports
// summarize a functional simulation run. Per-cycle bookkeeping also goes
// through log/slog at a custom level above Info, the way the teacher's
// core/util.go keeps its waveform/trace logging out of default output.
package trace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// LevelTrace sits above slog.LevelInfo, mirroring core/util.go's
// LevelTrace/LevelWaveform pair: per-cycle issue/completion bookkeeping
// logs here, so it stays out of a program's default Info-level output.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs msg at LevelTrace. Callers pass key/value pairs the same
// way they would to slog.Info.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// Entry is one recorded event: an instruction issued or completed.
type Entry struct {
	Cycle         uint64
	Engine        string
	EngineID      int
	InstructionID uint32
	Event         string // "ISSUED" or "COMPLETED"
}

// Statistics accumulates simulation-wide counters.
type Statistics struct {
	CyclesElapsed         uint64
	InstructionsIssued    int
	InstructionsCompleted int
	PerOpcodeCounts       map[string]int
}

// NewStatistics returns a zeroed Statistics ready to accumulate.
func NewStatistics() *Statistics {
	return &Statistics{PerOpcodeCounts: make(map[string]int)}
}

// RecordIssue counts an instruction being issued to an engine.
func (s *Statistics) RecordIssue(opcode string) {
	s.InstructionsIssued++
	s.PerOpcodeCounts[opcode]++
}

// RecordCompletion counts an instruction retiring.
func (s *Statistics) RecordCompletion() {
	s.InstructionsCompleted++
}

// Recorder buffers trace entries for a run, in cycle order.
type Recorder struct {
	entries  []Entry
	enabled  bool
	Stats    *Statistics
}

// NewRecorder builds a trace recorder. Recording starts enabled.
func NewRecorder() *Recorder {
	return &Recorder{enabled: true, Stats: NewStatistics()}
}

// Enable turns recording on or off; Statistics still accumulate either way.
func (r *Recorder) Enable(enabled bool) {
	r.enabled = enabled
}

// Record appends an entry if recording is enabled, and always logs it at
// LevelTrace -- recording controls the in-memory buffer used for
// WriteReport, not the slog stream.
func (r *Recorder) Record(e Entry) {
	Trace(e.Event, "cycle", e.Cycle, "engine", e.Engine, "engine_id", e.EngineID, "inst", e.InstructionID)

	if !r.enabled {
		return
	}
	r.entries = append(r.entries, e)
}

// LogSnapshot logs a component-status snapshot at slog.Debug, mirroring
// core/util.go's LogState/StateCheckpoint: one structured record per
// engine kind, summarizing its busy instance count out of its total.
func LogSnapshot(cycle uint64, busyByKind map[string][2]int) {
	slog.Debug("ComponentStatus", "cycle", cycle, "engines", slog.Any("busy", busyByKind))
}

// Entries returns the recorded trace in order.
func (r *Recorder) Entries() []Entry {
	return r.entries
}

// WriteReport renders a summary of the run: per-cycle trace followed by
// aggregate statistics, in the teacher's banner-and-dash report style.
func (r *Recorder) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)
	dash := strings.Repeat("-", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "KPU EXECUTION TRACE")
	fmt.Fprintln(w, separator)

	for _, e := range r.entries {
		fmt.Fprintf(w, "[cycle %6d] %-10s id=%-3d inst=%-4d %s\n", e.Cycle, e.Engine, e.EngineID, e.InstructionID, e.Event)
	}

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STATISTICS")
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "cycles elapsed:          %d\n", r.Stats.CyclesElapsed)
	fmt.Fprintf(w, "instructions issued:     %d\n", r.Stats.InstructionsIssued)
	fmt.Fprintf(w, "instructions completed:  %d\n", r.Stats.InstructionsCompleted)

	fmt.Fprintln(w, dash)
	opcodes := make([]string, 0, len(r.Stats.PerOpcodeCounts))
	for op := range r.Stats.PerOpcodeCounts {
		opcodes = append(opcodes, op)
	}
	sort.Strings(opcodes)
	for _, op := range opcodes {
		fmt.Fprintf(w, "  %-12s %d\n", op, r.Stats.PerOpcodeCounts[op])
	}
}
