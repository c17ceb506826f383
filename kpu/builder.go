package kpu

import (
	"github.com/stillwater-sc/kpu-sim-sub001/addrdecoder"
	"github.com/stillwater-sc/kpu-sim-sub001/blockmover"
	"github.com/stillwater-sc/kpu-sim-sub001/compute"
	"github.com/stillwater-sc/kpu-sim-sub001/dma"
	"github.com/stillwater-sc/kpu-sim-sub001/executor"
	"github.com/stillwater-sc/kpu-sim-sub001/storage"
	"github.com/stillwater-sc/kpu-sim-sub001/streamer"
)

// Builder assembles a Simulator from a Config, the way the teacher's
// DeviceBuilder turns mesh dimensions into a wired CGRA device: a fluent
// set of With* overrides followed by one Build call.
type Builder struct {
	cfg Config
}

// NewBuilder starts from DefaultConfig.
func NewBuilder() Builder {
	return Builder{cfg: DefaultConfig()}
}

// WithConfig replaces the builder's config wholesale.
func (b Builder) WithConfig(cfg Config) Builder {
	b.cfg = cfg
	return b
}

// WithMemoryBanks sets the external memory bank count and per-bank
// capacity (MB).
func (b Builder) WithMemoryBanks(count, capacityMB int) Builder {
	b.cfg.MemoryBankCount = count
	b.cfg.MemoryBankCapacityMB = capacityMB
	return b
}

// WithComputeTiles sets the compute tile count and systolic array
// geometry.
func (b Builder) WithComputeTiles(count, rows, cols int) Builder {
	b.cfg.ComputeTileCount = count
	b.cfg.ProcessorArrayRows = rows
	b.cfg.ProcessorArrayCols = cols
	return b
}

// WithMode selects BASIC_MATMUL (false) or SYSTOLIC_ARRAY (true) mode.
func (b Builder) WithMode(systolic bool) Builder {
	b.cfg.UseSystolicArrayMode = systolic
	return b
}

// Build wires the configured hardware hierarchy: it allocates every
// memory and engine instance, assigns each a disjoint region of the
// unified address space, and returns a Simulator ready to load a
// program.
func (b Builder) Build() *Simulator {
	cfg := b.cfg
	dec := addrdecoder.New()

	var nextBase uint64
	place := func(kind addrdecoder.Kind, id int, size uint64, name string) uint64 {
		base := nextBase
		if err := dec.AddRegion(base, size, kind, id, name); err != nil {
			panic(err) // the builder itself never produces overlaps
		}
		nextBase += size
		return base
	}

	host := storage.New("host", cfg.HostMemoryCapacityBytes)
	place(addrdecoder.HostMemory, 0, cfg.HostMemoryCapacityBytes, "host")

	var extBanks []*storage.ExternalMemoryBank
	for i := 0; i < cfg.MemoryBankCount; i++ {
		bank := storage.NewExternalMemoryBank("ext", cfg.MemoryBankCapacityMB, cfg.MemoryBandwidthGBs)
		place(addrdecoder.External, i, bank.Capacity(), "ext")
		extBanks = append(extBanks, bank)
	}

	// One DMA engine and one L3 tile per id: an instruction's L3TileID
	// names both which L3 tile it lands in and which DMA engine instance
	// services it, since a DMA engine's queue holds transfers to and from
	// whichever external bank (or host) a given transfer names.
	var l3Tiles []*storage.L3TileMem
	var dmaEngines []*dma.Engine
	var pageBuffers []*storage.PageBufferMem
	for i := 0; i < cfg.L3TileCount; i++ {
		tile := storage.NewL3Tile("l3", cfg.L3TileCapacityKB)
		place(addrdecoder.L3Tile, i, tile.Capacity(), "l3")
		l3Tiles = append(l3Tiles, tile)
		dmaEngines = append(dmaEngines, dma.New(i, 1.0, cfg.MemoryBandwidthGBs))

		// Each DMA engine owns a page buffer for coalescing; it is
		// addressable but never targeted by an opcode directly.
		pb := storage.NewPageBuffer("page", cfg.PageBufferCapacityKB)
		place(addrdecoder.PageBuffer, i, pb.Capacity(), "page")
		pageBuffers = append(pageBuffers, pb)
	}

	// One Block Mover and one Streamer per L2 bank: an instruction's
	// destination/source L2 bank id doubles as the engine instance that
	// feeds it, the same one-resource-one-engine convention as DMA/L3.
	var l2Banks []*storage.L2BankMem
	var movers []*blockmover.Mover
	var streamers []*streamer.Streamer
	for i := 0; i < cfg.L2BankCount; i++ {
		bank := storage.NewL2Bank("l2", cfg.L2BankCapacityKB)
		place(addrdecoder.L2Bank, i, bank.Capacity(), "l2")
		l2Banks = append(l2Banks, bank)
		movers = append(movers, blockmover.New(i, cfg.MemoryBandwidthGBs))
		streamers = append(streamers, streamer.New(i))
	}

	var l1Buffers []*storage.L1BufferMem
	for i := 0; i < cfg.L1BufferCount; i++ {
		buf := storage.NewL1Buffer("l1", cfg.L1BufferCapacityKB)
		place(addrdecoder.L1Buffer, i, buf.Capacity(), "l1")
		l1Buffers = append(l1Buffers, buf)
	}

	var fabrics []*compute.Fabric
	for i := 0; i < cfg.ComputeTileCount; i++ {
		fabrics = append(fabrics, compute.New(i, cfg.ProcessorArrayRows, cfg.ProcessorArrayCols, cfg.computeMode()))
	}

	hw := &executor.HardwareContext{
		HostMemory:     host,
		ExternalMemory: extBanks,
		L3Tiles:        l3Tiles,
		L2Banks:        l2Banks,
		L1Buffers:      l1Buffers,
		PageBuffers:    pageBuffers,
		DMAEngines:     dmaEngines,
		BlockMovers:    movers,
		Streamers:      streamers,
		ComputeFabrics: fabrics,
	}

	return &Simulator{
		cfg:      cfg,
		decoder:  dec,
		hw:       hw,
		executor: executor.New(hw),
	}
}
