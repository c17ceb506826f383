// Package isa defines the Data Movement ISA: the instruction set, program
// structure, and validation/disassembly logic the KPU's concurrent
// executor interprets. The program is a schedule of data-transfer
// operations; arithmetic happens autonomously in the compute fabric as
// operand tokens arrive, not because an instruction told a PE to multiply.
package isa

import "fmt"

// EngineKind names the four classes of hardware the executor issues
// instructions to.
type EngineKind uint8

const (
	EngineDMA EngineKind = iota
	EngineBlockMover
	EngineStreamer
	EngineCompute
	engineKindCount
)

func (k EngineKind) String() string {
	switch k {
	case EngineDMA:
		return "DMA"
	case EngineBlockMover:
		return "BlockMover"
	case EngineStreamer:
		return "Streamer"
	case EngineCompute:
		return "Compute"
	default:
		return "Unknown"
	}
}

// EngineMask is a bitset of EngineKind, used by BARRIER to name which
// engine kinds it waits on.
type EngineMask uint8

// Has reports whether the mask includes kind.
func (m EngineMask) Has(kind EngineKind) bool {
	return m&(1<<kind) != 0
}

// With returns a mask with kind added.
func (m EngineMask) With(kind EngineKind) EngineMask {
	return m | (1 << kind)
}

// AllEngines is a mask covering every engine kind.
var AllEngines = EngineMask(0).With(EngineDMA).With(EngineBlockMover).With(EngineStreamer).With(EngineCompute)

// Opcode is one Data Movement ISA instruction kind.
type Opcode uint8

const (
	OpDMALoad Opcode = iota
	OpDMAStore
	OpBMMove
	OpSTRRow
	OpSTRCol
	OpSTROut
	OpMatmul
	OpBarrier
	OpWaitID
	OpNop
)

var opcodeNames = map[Opcode]string{
	OpDMALoad:  "DMA_LOAD",
	OpDMAStore: "DMA_STORE",
	OpBMMove:   "BM_MOVE",
	OpSTRRow:   "STR_ROW",
	OpSTRCol:   "STR_COL",
	OpSTROut:   "STR_OUT",
	OpMatmul:   "MATMUL",
	OpBarrier:  "BARRIER",
	OpWaitID:   "WAIT_ID",
	OpNop:      "NOP",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OPCODE(%d)", o)
}

// EngineKind reports which engine kind executes this opcode, or false for
// BARRIER/WAIT_ID/NOP which are handled by the executor directly.
func (o Opcode) EngineKind() (EngineKind, bool) {
	switch o {
	case OpDMALoad, OpDMAStore:
		return EngineDMA, true
	case OpBMMove:
		return EngineBlockMover, true
	case OpSTRRow, OpSTRCol, OpSTROut:
		return EngineStreamer, true
	case OpMatmul:
		return EngineCompute, true
	default:
		return 0, false
	}
}

// MatrixID identifies which operand matrix an instruction concerns.
type MatrixID uint8

const (
	MatrixA MatrixID = iota
	MatrixB
	MatrixC
)

func (m MatrixID) String() string {
	switch m {
	case MatrixA:
		return "A"
	case MatrixB:
		return "B"
	case MatrixC:
		return "C"
	default:
		return "?"
	}
}

// ElementKind is the matrix element type. f32 is the default; f64 is used
// internally by the PE accumulator regardless of the configured element
// kind.
type ElementKind uint8

const (
	ElementF32 ElementKind = iota
	ElementF64
)

func (e ElementKind) String() string {
	if e == ElementF64 {
		return "f64"
	}
	return "f32"
}

// Size returns the element's width in bytes.
func (e ElementKind) Size() uint64 {
	if e == ElementF64 {
		return 8
	}
	return 4
}

// ActivationKind is the optional activation applied after a kernel's
// output tile is produced. The core ISA does not execute it (that is the
// compute fabric's SFU's job, out of scope here); it is carried in the
// program header so a schedule fully describes its kernel.
type ActivationKind uint8

const (
	ActivationNone ActivationKind = iota
	ActivationReLU
)

func (a ActivationKind) String() string {
	if a == ActivationReLU {
		return "relu"
	}
	return "none"
}

// Transform is the optional in-flight transform a Block Mover applies
// while streaming a block from L3 to L2 (or back).
type Transform uint8

const (
	TransformIdentity Transform = iota
	TransformTranspose
	TransformPad
)

func (t Transform) String() string {
	switch t {
	case TransformTranspose:
		return "TRANSPOSE"
	case TransformPad:
		return "PAD"
	default:
		return "IDENTITY"
	}
}

// TileCoord indexes one tile of a matrix in units of the program's tile
// shape (Ti, Tj, Tk).
type TileCoord struct {
	I, J int
}
