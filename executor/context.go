// Package executor implements the Concurrent Executor: the component
// that interprets a loaded Data Movement ISA program and drives DMA
// engines, Block Movers, Streamers and Compute Fabrics through it,
// cycle by cycle, in program order, under a fixed per-cycle engine
// update order. An instruction's own L3 tile, L2 bank, or compute tile
// id doubles as the engine instance id that services it -- there is no
// separate engine-selection policy to apply.
package executor

import (
	"github.com/stillwater-sc/kpu-sim-sub001/blockmover"
	"github.com/stillwater-sc/kpu-sim-sub001/compute"
	"github.com/stillwater-sc/kpu-sim-sub001/dma"
	"github.com/stillwater-sc/kpu-sim-sub001/storage"
	"github.com/stillwater-sc/kpu-sim-sub001/streamer"
)

// HardwareContext is the executor's non-owning view of every memory and
// engine it coordinates. The executor never allocates hardware itself;
// the simulator builds the hierarchy and hands it a context.
type HardwareContext struct {
	HostMemory     *storage.Primitive
	ExternalMemory []*storage.ExternalMemoryBank
	L3Tiles        []*storage.L3TileMem
	L2Banks        []*storage.L2BankMem
	L1Buffers      []*storage.L1BufferMem
	PageBuffers    []*storage.PageBufferMem

	DMAEngines     []*dma.Engine
	BlockMovers    []*blockmover.Mover
	Streamers      []*streamer.Streamer
	ComputeFabrics []*compute.Fabric
}
