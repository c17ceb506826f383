package executor

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stillwater-sc/kpu-sim-sub001/trace"
)

// PrintComponentStatus renders a snapshot of every engine's busy/idle
// state and the executor's own progress, in the same tabular style the
// disassembler uses for a program listing, and logs the same snapshot at
// slog.Debug the way core/util.go's LogState checkpoints PE state.
func (e *Executor) PrintComponentStatus(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Engine", "ID", "Status"})

	busy := map[string][2]int{
		"dma":        {0, len(e.hw.DMAEngines)},
		"blockmover": {0, len(e.hw.BlockMovers)},
		"streamer":   {0, len(e.hw.Streamers)},
		"compute":    {0, len(e.hw.ComputeFabrics)},
	}

	for _, d := range e.hw.DMAEngines {
		t.AppendRow(table.Row{"DMA", d.ID, busyLabel(d.IsBusy())})
		if d.IsBusy() {
			busy["dma"] = [2]int{busy["dma"][0] + 1, busy["dma"][1]}
		}
	}
	for _, b := range e.hw.BlockMovers {
		t.AppendRow(table.Row{"BlockMover", b.ID, busyLabel(b.IsBusy())})
		if b.IsBusy() {
			busy["blockmover"] = [2]int{busy["blockmover"][0] + 1, busy["blockmover"][1]}
		}
	}
	for _, s := range e.hw.Streamers {
		t.AppendRow(table.Row{"Streamer", s.ID, busyLabel(s.IsBusy())})
		if s.IsBusy() {
			busy["streamer"] = [2]int{busy["streamer"][0] + 1, busy["streamer"][1]}
		}
	}
	for _, c := range e.hw.ComputeFabrics {
		t.AppendRow(table.Row{"Compute", c.ID, busyLabel(c.IsBusy())})
		if c.IsBusy() {
			busy["compute"] = [2]int{busy["compute"][0] + 1, busy["compute"][1]}
		}
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"cycle", e.currentCycle, e.state.String()})
	t.AppendRow(table.Row{"pc", e.pc, fmt.Sprintf("%d/%d", e.pc, len(e.program.Instructions))})

	t.Render()
	trace.LogSnapshot(e.currentCycle, busy)
}

func busyLabel(busy bool) string {
	if busy {
		return "BUSY"
	}
	return "idle"
}
