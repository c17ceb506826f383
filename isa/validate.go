package isa

// HardwareLimits names the engine counts a program is validated against.
// kpu.Simulator.LoadProgram fills it from the lengths of its
// HardwareContext's engine slices; tests can supply a literal.
type HardwareLimits struct {
	DMAEngines  int
	BlockMovers int
	Streamers   int
	ComputeTiles int
}

// Validate checks a program against the structural invariants the
// concurrent executor assumes: strictly increasing instruction ids, tile
// coordinates within the kernel's own tiling, engine ids that exist on
// the target hardware, and -- if the program contains any MATMUL -- at
// least one BARRIER somewhere in the program. It does not require a
// BARRIER immediately before each individual MATMUL: a program may issue
// several MATMULs and let one BARRIER near the end drain them all, same
// as a program that barriers once per MATMUL.
//
// It does not check data-flow correctness (whether a BARRIER actually
// covers the right engines); the executor's BARRIER completion
// semantics handle that at run time.
func Validate(p *Program, limits HardwareLimits) error {
	lastID := int64(-1)
	var lastMatmulID uint32
	sawMatmul := false
	sawBarrier := false

	for _, instr := range p.Instructions {
		if int64(instr.ID) <= lastID {
			return &InvalidProgramError{InstructionID: instr.ID, Reason: "instruction ids must be strictly increasing"}
		}
		lastID = int64(instr.ID)

		switch instr.Opcode {
		case OpDMALoad, OpDMAStore:
			if instr.Tile.I < 0 || instr.Tile.I >= ceilDiv(p.Header.M, p.Header.Ti) ||
				instr.Tile.J < 0 || instr.Tile.J >= ceilDiv(p.Header.N, p.Header.Tj) {
				return &InvalidProgramError{InstructionID: instr.ID, Reason: "tile coordinate out of bounds"}
			}
			if limits.DMAEngines > 0 && instr.L3TileID >= limits.DMAEngines {
				return &InvalidProgramError{InstructionID: instr.ID, Reason: "DMA engine id exceeds configured count"}
			}
		case OpBMMove:
			if instr.SrcL3Tile >= limits.DMAEngines && limits.DMAEngines > 0 {
				return &InvalidProgramError{InstructionID: instr.ID, Reason: "source L3 tile id exceeds configured count"}
			}
			if limits.BlockMovers > 0 && instr.DstL2Bank >= limits.BlockMovers {
				return &InvalidProgramError{InstructionID: instr.ID, Reason: "block mover id exceeds configured count"}
			}
		case OpSTRRow, OpSTRCol, OpSTROut:
			if limits.Streamers > 0 && instr.SrcL2Bank >= limits.Streamers {
				return &InvalidProgramError{InstructionID: instr.ID, Reason: "streamer id exceeds configured count"}
			}
		case OpMatmul:
			if limits.ComputeTiles > 0 && instr.ComputeTile >= limits.ComputeTiles {
				return &InvalidProgramError{InstructionID: instr.ID, Reason: "compute tile id exceeds configured count"}
			}
			sawMatmul = true
			lastMatmulID = instr.ID
		case OpBarrier:
			sawBarrier = true
		}
	}

	if sawMatmul && !sawBarrier {
		return &InvalidProgramError{InstructionID: lastMatmulID, Reason: "a program containing MATMUL must contain at least one BARRIER"}
	}

	return nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
