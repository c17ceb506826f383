package isa

import "fmt"

// InvalidProgramError reports a schedule that fails validate: instruction
// ids out of order, tile coordinates out of bounds, an engine id the
// configured hardware doesn't have, or a program that contains a MATMUL
// but no BARRIER anywhere.
type InvalidProgramError struct {
	InstructionID uint32
	Reason        string
}

func (e *InvalidProgramError) Error() string {
	return fmt.Sprintf("invalid program at instruction %d: %s", e.InstructionID, e.Reason)
}
