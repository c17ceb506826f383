package executor

import "fmt"

// TimeoutError is returned by Run when current_cycle reaches max_cycles
// before the program completes.
type TimeoutError struct {
	MaxCycles uint64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("executor: run exceeded max_cycles=%d without completing", e.MaxCycles)
}

// EngineFaultError wraps an error surfaced by an engine's update, setting
// the executor to the ERROR state. There is no per-engine retry.
type EngineFaultError struct {
	InstructionID uint32
	Err           error
}

func (e *EngineFaultError) Error() string {
	return fmt.Sprintf("executor: instruction %d faulted: %v", e.InstructionID, e.Err)
}

func (e *EngineFaultError) Unwrap() error {
	return e.Err
}
