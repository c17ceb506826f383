package isa

// StreamGeometry describes one row/column/output streaming operation: how
// many elements move, in what element size, and which L2/L1 addresses
// anchor the transfer. FabricSize is the systolic array dimension the
// stream feeds (rows for STR_ROW, columns for STR_COL). The executor sizes
// a stream from the program header's tile shape (Ti, Tj, Tk); Count is
// carried through encoding and disassembly but is not read when the
// stream runs.
type StreamGeometry struct {
	Count       int
	ElementSize uint64
	FabricSize  int
	L2Addr      uint64
	L1Addr      uint64
}

// Instruction is one Data Movement ISA instruction. Only the fields
// relevant to Opcode are meaningful; the others are left zero. This
// mirrors the original implementation's per-opcode payload structs
// collapsed into one instruction record, which is how the teacher's own
// instruction type carries heterogeneous operand kinds.
type Instruction struct {
	ID     uint32
	Opcode Opcode

	// DMA_LOAD / DMA_STORE
	Matrix        MatrixID
	Tile          TileCoord
	ExternalBank  int
	HostAddr      uint64
	ExternalAddr  uint64
	L3TileID      int
	L3Offset      uint64
	TransferSize  uint64

	// BM_MOVE
	SrcL3Tile   int
	L3Addr      uint64
	DstL2Bank   int
	L2Addr      uint64
	Rows, Cols  int
	ElementSize uint64
	Transform   Transform
	L2ToL3      bool // false: L3->L2 (the common direction); true: writeback

	// STR_ROW / STR_COL / STR_OUT
	SrcL2Bank   int
	DstL1Buffer int
	L1ToL2      bool // STR_OUT direction flag
	Geometry    StreamGeometry

	// MATMUL
	ComputeTile int
	AAddr, BAddr, CAddr uint64
	M, N, K     int
	// BColumnMajor must match the layout the STR_COL/STR_ROW feeding
	// BAddr actually wrote: true when B arrived via STR_COL (column-major,
	// c*K+k), false for STR_ROW (row-major, k*N+c).
	BColumnMajor bool

	// BARRIER
	Mask EngineMask

	// WAIT_ID
	WaitID uint32
}

// Header carries the kernel-level metadata a schedule of instructions
// implements: the overall problem shape, its tiling, element kind, and
// any fused epilogue.
type Header struct {
	M, N, K    int
	Ti, Tj, Tk int
	Element    ElementKind
	HasBias    bool
	Activation ActivationKind
}

// Program is a fully-formed Data Movement ISA schedule: a header
// describing the kernel it implements, plus the ordered instruction
// stream the concurrent executor issues from.
type Program struct {
	Header       Header
	Instructions []Instruction
}

// NewProgram returns an empty program with the given header.
func NewProgram(header Header) *Program {
	return &Program{Header: header}
}

// Append adds an instruction to the end of the program, assigning it the
// next sequential id.
func (p *Program) Append(instr Instruction) {
	instr.ID = uint32(len(p.Instructions))
	p.Instructions = append(p.Instructions, instr)
}

// Len returns the instruction count.
func (p *Program) Len() int {
	return len(p.Instructions)
}
