// Package compute models the Compute Fabric: the systolic array (or, in
// BASIC_MATMUL mode, a direct triple-loop multiply) that evacuates
// accumulated tiles back to L1 once a MATMUL instruction's tile has fully
// propagated through the array.
package compute

import (
	"encoding/binary"
	"math"

	"github.com/stillwater-sc/kpu-sim-sub001/storage"
)

// Mode selects how the fabric computes a tile.
type Mode uint8

const (
	SystolicArray Mode = iota
	BasicMatmul
)

// DefaultRows and DefaultCols are the systolic array's default geometry.
const (
	DefaultRows = 16
	DefaultCols = 16
)

// PE is one processing element: an accumulator plus the registers that
// carry operands to its neighbors.
type PE struct {
	AIn, AOut float64
	BIn, BOut float64
	CAccum    float64
}

// MatmulRequest is the contract for start_matmul: a tile small enough to
// fit the fabric (m <= rows, n <= cols), its operand addresses in L1, and
// where to evacuate the result.
type MatmulRequest struct {
	ID                  uint32
	L1Buffer            *storage.Primitive
	AAddr, BAddr, CAddr uint64
	M, N, K             int
	Element             ElementKind

	// BColumnMajor selects B's layout in L1. STR_ROW deposits B row-major
	// (k*N+c); STR_COL deposits it column-major (c*K+k), matching how a
	// column streamer walks B one column at a time. The fabric has to
	// know which layout it is reading, since both are valid ways to get
	// B into L1 and the wire format carries no self-describing stride.
	BColumnMajor bool
}

// ElementKind is the on-the-wire width of matrix elements; the PE
// accumulator is always f64 regardless of this setting.
type ElementKind uint8

const (
	ElementF32 ElementKind = iota
	ElementF64
)

func (e ElementKind) size() uint64 {
	if e == ElementF64 {
		return 8
	}
	return 4
}

// Fabric is one compute tile: a Rows x Cols grid of PEs plus the state of
// whatever MATMUL it is currently evacuating.
type Fabric struct {
	ID   int
	Rows int
	Cols int
	Mode Mode

	pes []PE

	busy       bool
	request    MatmulRequest
	startCycle uint64
	totalCycle int
}

// New builds a compute fabric of the given geometry. A zero rows/cols
// argument falls back to the 16x16 default.
func New(id, rows, cols int, mode Mode) *Fabric {
	if rows <= 0 {
		rows = DefaultRows
	}
	if cols <= 0 {
		cols = DefaultCols
	}
	return &Fabric{ID: id, Rows: rows, Cols: cols, Mode: mode, pes: make([]PE, rows*cols)}
}

// IsBusy reports whether a MATMUL is in progress.
func (f *Fabric) IsBusy() bool {
	return f.busy
}

func (f *Fabric) pe(r, c int) *PE {
	return &f.pes[r*f.Cols+c]
}

// StartMatmul begins a tile multiply. It fails with a BusyError if the
// fabric is already computing, or a TileTooLargeError if (m, n) exceeds
// the fabric's geometry.
func (f *Fabric) StartMatmul(cycle uint64, req MatmulRequest) error {
	if f.busy {
		return &BusyError{FabricID: f.ID}
	}
	if req.M > f.Rows || req.N > f.Cols {
		return &TileTooLargeError{FabricID: f.ID, M: req.M, N: req.N, Rows: f.Rows, Cols: f.Cols}
	}

	for i := range f.pes {
		f.pes[i] = PE{}
	}

	f.busy = true
	f.request = req
	f.startCycle = cycle
	f.totalCycle = req.K + f.Rows + f.Cols - 2
	if f.Mode == BasicMatmul {
		f.totalCycle = ceilDiv(req.M*req.N*req.K, f.Rows*f.Cols)
		if f.totalCycle < 1 {
			f.totalCycle = 1
		}
	}

	return nil
}

// Update advances the fabric by one cycle: injecting new operands from
// the edges, accumulating, and propagating. When the schedule completes
// it writes the output tile back to L1 and reports completion.
func (f *Fabric) Update(cycle uint64) (completedID uint32, completed bool, err error) {
	if !f.busy {
		return 0, false, nil
	}

	elapsed := int(cycle - f.startCycle)

	if f.Mode == BasicMatmul {
		if elapsed+1 < f.totalCycle {
			return 0, false, nil
		}
		if err := f.computeBasic(); err != nil {
			f.busy = false
			return 0, false, err
		}
		id := f.request.ID
		f.busy = false
		return id, true, nil
	}

	f.stepSystolic(elapsed)

	if elapsed+1 < f.totalCycle {
		return 0, false, nil
	}

	if err := f.evacuate(); err != nil {
		f.busy = false
		return 0, false, err
	}

	id := f.request.ID
	f.busy = false

	return id, true, nil
}

// stepSystolic injects operands due this cycle, accumulates, and
// propagates every PE's registers to its neighbors.
func (f *Fabric) stepSystolic(cycle int) {
	req := f.request
	elemSize := req.Element.size()

	for r := 0; r < f.Rows && r < req.M; r++ {
		if k := cycle - r; k >= 0 && k < req.K {
			f.pe(r, 0).AIn = f.readElement(req.L1Buffer, req.AAddr, r*req.K+k, elemSize)
		}
	}
	for c := 0; c < f.Cols && c < req.N; c++ {
		if k := cycle - c; k >= 0 && k < req.K {
			f.pe(0, c).BIn = f.readElement(req.L1Buffer, req.BAddr, bIndex(k, c, req.N, req.K, req.BColumnMajor), elemSize)
		}
	}

	for r := 0; r < f.Rows; r++ {
		for c := 0; c < f.Cols; c++ {
			pe := f.pe(r, c)
			pe.CAccum += pe.AIn * pe.BIn
		}
	}

	for r := 0; r < f.Rows; r++ {
		for c := f.Cols - 1; c > 0; c-- {
			f.pe(r, c).AIn = f.pe(r, c-1).AIn
		}
	}
	for c := 0; c < f.Cols; c++ {
		for r := f.Rows - 1; r > 0; r-- {
			f.pe(r, c).BIn = f.pe(r-1, c).BIn
		}
	}
	for r := 0; r < f.Rows; r++ {
		f.pe(r, 0).AIn = 0
	}
	for c := 0; c < f.Cols; c++ {
		f.pe(0, c).BIn = 0
	}
}

// bIndex resolves B[k][c]'s flat index in L1, accounting for which
// streamer laid it down: row-major (STR_ROW, k*N+c) or column-major
// (STR_COL, c*K+k).
func bIndex(k, c, n, kDim int, columnMajor bool) int {
	if columnMajor {
		return c*kDim + k
	}
	return k*n + c
}

func (f *Fabric) readElement(buf *storage.Primitive, base uint64, index int, elemSize uint64) float64 {
	raw := make([]byte, elemSize)
	_ = buf.Read(base+uint64(index)*elemSize, raw, elemSize)
	return decodeFloat(raw, elemSize)
}

func (f *Fabric) evacuate() error {
	req := f.request
	elemSize := req.Element.size()

	for r := 0; r < req.M; r++ {
		for c := 0; c < req.N; c++ {
			v := f.pe(r, c).CAccum
			raw := encodeFloat(v, elemSize)
			if err := req.L1Buffer.Write(req.CAddr+uint64(r*req.N+c)*elemSize, raw, elemSize); err != nil {
				return err
			}
		}
	}

	return nil
}

func (f *Fabric) computeBasic() error {
	req := f.request
	elemSize := req.Element.size()

	out := make([]float64, req.M*req.N)
	for r := 0; r < req.M; r++ {
		for c := 0; c < req.N; c++ {
			var acc float64
			for k := 0; k < req.K; k++ {
				a := f.readElement(req.L1Buffer, req.AAddr, r*req.K+k, elemSize)
				b := f.readElement(req.L1Buffer, req.BAddr, bIndex(k, c, req.N, req.K, req.BColumnMajor), elemSize)
				acc += a * b
			}
			out[r*req.N+c] = acc
		}
	}

	for r := 0; r < req.M; r++ {
		for c := 0; c < req.N; c++ {
			raw := encodeFloat(out[r*req.N+c], elemSize)
			if err := req.L1Buffer.Write(req.CAddr+uint64(r*req.N+c)*elemSize, raw, elemSize); err != nil {
				return err
			}
		}
	}

	return nil
}

// Reset clears any in-flight computation.
func (f *Fabric) Reset() {
	f.busy = false
	for i := range f.pes {
		f.pes[i] = PE{}
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func decodeFloat(raw []byte, size uint64) float64 {
	if size == 8 {
		return math.Float64frombits(binary.LittleEndian.Uint64(raw))
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
}

func encodeFloat(v float64, size uint64) []byte {
	if size == 8 {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		return buf
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	return buf
}
