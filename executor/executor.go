package executor

import (
	"github.com/stillwater-sc/kpu-sim-sub001/isa"
	"github.com/stillwater-sc/kpu-sim-sub001/trace"
)

// CompletionCallback is invoked once per instruction, the cycle its
// transaction retires.
type CompletionCallback func(instructionID uint32)

// Executor is the Concurrent Executor: it owns a HardwareContext, a
// loaded program, a program counter, the current cycle, the pending-
// instruction sets (dma, block_mover, streamer, and nop -- NOP has no
// engine of its own, but still needs one cycle to retire), and
// accumulated statistics. It is single-threaded and cycle-stepped: all
// concurrency is modeled by advancing several engine instances once per
// step.
type Executor struct {
	hw      *HardwareContext
	program *isa.Program

	state        State
	pc           int
	currentCycle uint64
	stats        Statistics
	runErr       error

	pendingDMA map[uint32]bool
	pendingBM  map[uint32]bool
	pendingStr map[uint32]bool
	pendingNOP map[uint32]bool

	Trace      *trace.Recorder
	onComplete CompletionCallback
}

// New builds an executor bound to a hardware context. It starts in IDLE
// until a program is loaded.
func New(hw *HardwareContext) *Executor {
	return &Executor{
		hw:         hw,
		state:      Idle,
		pendingDMA: make(map[uint32]bool),
		pendingBM:  make(map[uint32]bool),
		pendingStr: make(map[uint32]bool),
		pendingNOP: make(map[uint32]bool),
		Trace:      trace.NewRecorder(),
	}
}

// SetCompletionCallback registers a callback fired once per retiring
// instruction.
func (e *Executor) SetCompletionCallback(cb CompletionCallback) {
	e.onComplete = cb
}

// LoadProgram loads a program for execution. Per-run state (pc, pending
// sets, cycle, statistics) is reset; the program itself is treated as
// immutable once loaded.
func (e *Executor) LoadProgram(p *isa.Program) {
	e.program = p
	e.pc = 0
	e.currentCycle = 0
	e.stats = Statistics{}
	e.runErr = nil
	e.pendingDMA = make(map[uint32]bool)
	e.pendingBM = make(map[uint32]bool)
	e.pendingStr = make(map[uint32]bool)
	e.pendingNOP = make(map[uint32]bool)
	e.state = Running
}

// State returns the executor's current state.
func (e *Executor) State() State { return e.state }

// CurrentCycle returns the cycle count reached so far.
func (e *Executor) CurrentCycle() uint64 { return e.currentCycle }

// Statistics returns the accumulated run statistics.
func (e *Executor) Statistics() Statistics { return e.stats }

// IsRunning reports whether the executor is actively making progress or
// waiting on in-flight hardware. An executor with no program loaded is
// still steppable -- a caller driving engines directly through the
// simulator's ad-hoc Start* wrappers, with no isa.Program in the
// picture, still needs Step/Run to retire what it enqueued.
func (e *Executor) IsRunning() bool {
	return e.state == Running || e.state == Waiting || (e.state == Idle && e.program == nil)
}

// IsCompleted reports whether the loaded program retired successfully.
func (e *Executor) IsCompleted() bool {
	return e.state == Completed
}

// Err returns the error that put the executor into the ERROR state, if
// any.
func (e *Executor) Err() error {
	return e.runErr
}

// Reset drops all queued and active transactions without firing
// callbacks and returns every engine to idle. It is the only
// cancellation mechanism.
func (e *Executor) Reset() {
	for _, d := range e.hw.DMAEngines {
		d.Reset()
	}
	for _, b := range e.hw.BlockMovers {
		b.Reset()
	}
	for _, s := range e.hw.Streamers {
		s.Reset()
	}
	for _, c := range e.hw.ComputeFabrics {
		c.Reset()
	}

	e.program = nil
	e.pc = 0
	e.currentCycle = 0
	e.stats = Statistics{}
	e.runErr = nil
	e.pendingDMA = make(map[uint32]bool)
	e.pendingBM = make(map[uint32]bool)
	e.pendingStr = make(map[uint32]bool)
	e.pendingNOP = make(map[uint32]bool)
	e.state = Idle
}

// Step executes one cycle: an issue phase (while pc is not blocked), a
// fixed-order engine update phase (DMA -> Block Mover -> Streamer ->
// Compute), and a state transition. It returns false once the executor
// is no longer running (COMPLETED or ERROR).
func (e *Executor) Step() (bool, error) {
	if !e.IsRunning() {
		return false, e.runErr
	}

	if e.program != nil {
		for e.pc < len(e.program.Instructions) {
			instr := e.program.Instructions[e.pc]
			issued, err := e.tryIssue(instr)
			if err != nil {
				e.state = Error
				e.runErr = err
				return false, err
			}
			if !issued {
				break
			}
			e.recordIssue(instr)
			e.pc++
		}
	}

	blocked := e.program != nil && e.pc < len(e.program.Instructions)

	if err := e.updateEngines(); err != nil {
		e.state = Error
		e.runErr = err
		return false, err
	}

	e.currentCycle++
	e.stats.TotalCycles = e.currentCycle

	pendingEmpty := len(e.pendingDMA) == 0 && len(e.pendingBM) == 0 && len(e.pendingStr) == 0 && len(e.pendingNOP) == 0 && e.allIdle()

	if !blocked && pendingEmpty {
		e.state = Completed
		return false, nil
	}

	if blocked && !pendingEmpty {
		e.state = Waiting
	} else {
		e.state = Running
	}

	return true, nil
}

// Run steps the executor until COMPLETED, ERROR, or current_cycle
// reaches maxCycles (0 means unlimited), returning a TimeoutError in the
// last case.
func (e *Executor) Run(maxCycles uint64) error {
	for {
		running, err := e.Step()
		if err != nil {
			return err
		}
		if !running {
			break
		}
		if maxCycles > 0 && e.currentCycle >= maxCycles {
			return &TimeoutError{MaxCycles: maxCycles}
		}
	}

	if e.state == Error {
		return e.runErr
	}

	return nil
}

func (e *Executor) allComputeIdle() bool {
	for _, c := range e.hw.ComputeFabrics {
		if c.IsBusy() {
			return false
		}
	}
	return true
}

// allIdle reports whether every engine instance is idle -- live hardware
// state, not just the executor's own pending-id bookkeeping. A transfer
// enqueued directly on an engine (bypassing program issue, via the
// simulator's ad-hoc Start* wrappers) never enters a pending set, so
// completion detection has to fall back to the engines' own IsBusy
// rather than trust the pending sets alone.
func (e *Executor) allIdle() bool {
	for _, d := range e.hw.DMAEngines {
		if d.IsBusy() {
			return false
		}
	}
	for _, b := range e.hw.BlockMovers {
		if b.IsBusy() {
			return false
		}
	}
	for _, s := range e.hw.Streamers {
		if s.IsBusy() {
			return false
		}
	}
	return e.allComputeIdle()
}

func (e *Executor) pendingAnywhere(id uint32) bool {
	return e.pendingDMA[id] || e.pendingBM[id] || e.pendingStr[id] || e.pendingNOP[id]
}

func (e *Executor) fire(id uint32) {
	e.Trace.Record(trace.Entry{Cycle: e.currentCycle, InstructionID: id, Event: "COMPLETED"})
	e.Trace.Stats.RecordCompletion()
	e.Trace.Stats.CyclesElapsed = e.currentCycle
	if e.onComplete != nil {
		e.onComplete(id)
	}
}

func (e *Executor) recordIssue(instr isa.Instruction) {
	e.Trace.Record(trace.Entry{Cycle: e.currentCycle, InstructionID: instr.ID, Event: "ISSUED"})
	e.Trace.Stats.RecordIssue(instr.Opcode.String())
}
