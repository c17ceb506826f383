// Package dma models the DMA Engine: the component that moves bytes
// between host memory, external memory banks, and L3 tiles, at a cost in
// cycles set by the engine's configured bandwidth. It does not touch L2
// banks or L1 buffers directly — those are reached by the Block Mover and
// Streamer respectively.
package dma

import (
	"math"

	"github.com/stillwater-sc/kpu-sim-sub001/storage"
)

// Kind names one endpoint class a DMA engine can move bytes to or from.
type Kind uint8

const (
	HostMemory Kind = iota
	External
	L3Tile
)

func (k Kind) String() string {
	switch k {
	case HostMemory:
		return "HOST_MEMORY"
	case External:
		return "EXTERNAL"
	case L3Tile:
		return "L3_TILE"
	default:
		return "UNKNOWN"
	}
}

var validRoutes = map[[2]Kind]bool{
	{HostMemory, External}: true,
	{External, HostMemory}: true,
	{External, L3Tile}:     true,
	{L3Tile, External}:     true,
	{HostMemory, L3Tile}:   true,
	{L3Tile, HostMemory}:   true,
}

// ValidRoute reports whether a DMA transfer between two memory kinds is
// physically wired.
func ValidRoute(src, dst Kind) bool {
	return validRoutes[[2]Kind{src, dst}]
}

// State is the DMA engine's coarse execution state.
type State uint8

const (
	Idle State = iota
	Active
)

// Transfer is one in-flight or completed DMA transfer. Src/Dst point at
// the actual storage primitives backing the endpoints; the engine copies
// bytes between them when the transfer completes.
type Transfer struct {
	ID       uint32
	SrcKind  Kind
	DstKind  Kind
	SrcID    int
	DstID    int
	SrcOffset uint64
	DstOffset uint64
	Size     uint64
	Src      *storage.Primitive
	Dst      *storage.Primitive
}

// Engine is one DMA engine instance: a queue of transfers serviced one at
// a time, at a throughput set by its configured clock and bandwidth.
type Engine struct {
	ID           int
	ClockGHz     float64
	BandwidthGBs float64

	state           State
	queue           []Transfer
	current         Transfer
	cyclesRemaining uint64
	startCycle      uint64
}

// New builds a DMA engine with the given clock frequency (GHz) and
// theoretical bandwidth (GB/s).
func New(id int, clockGHz, bandwidthGBs float64) *Engine {
	return &Engine{ID: id, ClockGHz: clockGHz, BandwidthGBs: bandwidthGBs, state: Idle}
}

// IsBusy reports whether a transfer is active or queued.
func (e *Engine) IsBusy() bool {
	return e.state == Active || len(e.queue) > 0
}

// BytesPerCycle is the engine's configured transfer rate.
func (e *Engine) BytesPerCycle() float64 {
	if e.ClockGHz <= 0 {
		return e.BandwidthGBs
	}
	return e.BandwidthGBs / e.ClockGHz
}

// CyclesFor returns the number of cycles a transfer of size bytes takes,
// rounded up, with a floor of one cycle.
func (e *Engine) CyclesFor(size uint64) uint64 {
	bpc := e.BytesPerCycle()
	if bpc <= 0 {
		return 1
	}
	cycles := uint64(math.Ceil(float64(size) / bpc))
	if cycles < 1 {
		cycles = 1
	}
	return cycles
}

// Enqueue queues a transfer, starting it immediately if the engine is
// idle. It fails with a RoutingError if the kinds aren't connected by a
// physical route.
func (e *Engine) Enqueue(cycle uint64, t Transfer) error {
	if !ValidRoute(t.SrcKind, t.DstKind) {
		return &RoutingError{Src: t.SrcKind, Dst: t.DstKind}
	}

	e.queue = append(e.queue, t)
	if e.state == Idle {
		e.startNext(cycle)
	}

	return nil
}

func (e *Engine) startNext(cycle uint64) {
	if len(e.queue) == 0 {
		return
	}
	e.current, e.queue = e.queue[0], e.queue[1:]
	e.cyclesRemaining = e.CyclesFor(e.current.Size)
	e.startCycle = cycle
	e.state = Active
}

// Update advances the engine by one cycle. When the in-flight transfer's
// remaining cycle count reaches zero, the bytes are copied and the
// transfer's id is returned with completed=true.
func (e *Engine) Update(cycle uint64) (completedID uint32, completed bool, err error) {
	if e.state != Active {
		return 0, false, nil
	}

	if e.cyclesRemaining > 0 {
		e.cyclesRemaining--
	}

	if e.cyclesRemaining > 0 {
		return 0, false, nil
	}

	buf := make([]byte, e.current.Size)
	if rerr := e.current.Src.Read(e.current.SrcOffset, buf, e.current.Size); rerr != nil {
		e.state = Idle
		return 0, false, rerr
	}
	if werr := e.current.Dst.Write(e.current.DstOffset, buf, e.current.Size); werr != nil {
		e.state = Idle
		return 0, false, werr
	}

	id := e.current.ID
	e.state = Idle
	e.current = Transfer{}
	e.startNext(cycle + 1)

	return id, true, nil
}

// Reset returns the engine to idle, discarding any queued or in-flight
// transfer.
func (e *Engine) Reset() {
	e.state = Idle
	e.queue = nil
	e.current = Transfer{}
	e.cyclesRemaining = 0
}
