package kpu

import (
	"io"

	"github.com/stillwater-sc/kpu-sim-sub001/addrdecoder"
	"github.com/stillwater-sc/kpu-sim-sub001/blockmover"
	"github.com/stillwater-sc/kpu-sim-sub001/compute"
	"github.com/stillwater-sc/kpu-sim-sub001/executor"
	"github.com/stillwater-sc/kpu-sim-sub001/isa"
	"github.com/stillwater-sc/kpu-sim-sub001/storage"
	"github.com/stillwater-sc/kpu-sim-sub001/streamer"
)

// Simulator is a fully wired KPU instance: a memory hierarchy, a set of
// engines, and the concurrent executor driving them from a loaded
// program. It is the single entry point a caller (a CLI, a test, an
// embedding application) drives the cycle-accurate model through.
type Simulator struct {
	cfg      Config
	decoder  *addrdecoder.Decoder
	hw       *executor.HardwareContext
	executor *executor.Executor
}

// Config returns the configuration the simulator was built from.
func (s *Simulator) Config() Config {
	return s.cfg
}

// AddressMap returns the decoder resolving the unified address space the
// simulator's engines were assigned into.
func (s *Simulator) AddressMap() *addrdecoder.Decoder {
	return s.decoder
}

// LoadProgram loads a Data Movement ISA program for execution, validating
// it against this simulator's own hardware counts first.
func (s *Simulator) LoadProgram(p *isa.Program) error {
	limits := isa.HardwareLimits{
		DMAEngines:   len(s.hw.DMAEngines),
		BlockMovers:  len(s.hw.BlockMovers),
		Streamers:    len(s.hw.Streamers),
		ComputeTiles: len(s.hw.ComputeFabrics),
	}
	if err := isa.Validate(p, limits); err != nil {
		return err
	}

	s.executor.LoadProgram(p)

	return nil
}

// Step advances the simulator by one cycle. It returns false once the
// loaded program has completed or faulted.
func (s *Simulator) Step() (bool, error) {
	return s.executor.Step()
}

// RunUntilIdle steps the simulator until the program completes, faults,
// or maxCycles is reached.
func (s *Simulator) RunUntilIdle(maxCycles uint64) error {
	return s.executor.Run(maxCycles)
}

// CurrentCycle returns the cycle count reached so far.
func (s *Simulator) CurrentCycle() uint64 {
	return s.executor.CurrentCycle()
}

// State returns the executor's coarse progress state.
func (s *Simulator) State() executor.State {
	return s.executor.State()
}

// Statistics returns the accumulated run statistics.
func (s *Simulator) Statistics() executor.Statistics {
	return s.executor.Statistics()
}

// Reset drops all in-flight work and returns every engine to idle.
func (s *Simulator) Reset() {
	s.executor.Reset()
}

// PrintComponentStatus writes a snapshot of every engine's busy/idle
// state to w.
func (s *Simulator) PrintComponentStatus(w io.Writer) {
	s.executor.PrintComponentStatus(w)
}

// WriteReport writes the recorded execution trace and statistics to w.
func (s *Simulator) WriteReport(w io.Writer) {
	s.executor.Trace.WriteReport(w)
}

// WriteMemoryBank writes size bytes into external memory bank id at
// offset, bypassing any engine -- the host-side staging step before a
// program's first DMA_LOAD.
func (s *Simulator) WriteMemoryBank(id int, offset uint64, data []byte) error {
	return s.hw.ExternalMemory[id].Write(offset, data, uint64(len(data)))
}

// ReadMemoryBank reads size bytes from external memory bank id at
// offset.
func (s *Simulator) ReadMemoryBank(id int, offset uint64, size uint64) ([]byte, error) {
	buf := make([]byte, size)
	if err := s.hw.ExternalMemory[id].Read(offset, buf, size); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteL3Tile writes bytes directly into L3 tile id, bypassing the block
// mover.
func (s *Simulator) WriteL3Tile(id int, offset uint64, data []byte) error {
	return s.hw.L3Tiles[id].Write(offset, data, uint64(len(data)))
}

// ReadL3Tile reads bytes directly from L3 tile id.
func (s *Simulator) ReadL3Tile(id int, offset, size uint64) ([]byte, error) {
	buf := make([]byte, size)
	if err := s.hw.L3Tiles[id].Read(offset, buf, size); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteL2Bank writes bytes directly into L2 bank id, bypassing the
// streamer.
func (s *Simulator) WriteL2Bank(id int, offset uint64, data []byte) error {
	return s.hw.L2Banks[id].Write(offset, data, uint64(len(data)))
}

// ReadL2Bank reads bytes directly from L2 bank id.
func (s *Simulator) ReadL2Bank(id int, offset, size uint64) ([]byte, error) {
	buf := make([]byte, size)
	if err := s.hw.L2Banks[id].Read(offset, buf, size); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteL1Buffer writes bytes directly into L1 buffer id, bypassing the
// compute fabric.
func (s *Simulator) WriteL1Buffer(id int, offset uint64, data []byte) error {
	return s.hw.L1Buffers[id].Write(offset, data, uint64(len(data)))
}

// ReadL1Buffer reads bytes directly from L1 buffer id.
func (s *Simulator) ReadL1Buffer(id int, offset, size uint64) ([]byte, error) {
	buf := make([]byte, size)
	if err := s.hw.L1Buffers[id].Read(offset, buf, size); err != nil {
		return nil, err
	}
	return buf, nil
}

// L3TileStorage exposes L3 tile id's backing storage, for callers
// assembling a blockmover.BlockTransfer or dma.Transfer by hand to drive
// through StartBlockTransfer without a loaded program.
func (s *Simulator) L3TileStorage(id int) *storage.Primitive {
	return s.hw.L3Tiles[id].Primitive
}

// L2BankStorage exposes L2 bank id's backing storage, for ad-hoc
// StartBlockTransfer/StartRowStream/StartColumnStream callers.
func (s *Simulator) L2BankStorage(id int) *storage.Primitive {
	return s.hw.L2Banks[id].Primitive
}

// L1BufferStorage exposes L1 buffer id's backing storage, for ad-hoc
// StartRowStream/StartColumnStream/StartMatmul callers.
func (s *Simulator) L1BufferStorage(id int) *storage.Primitive {
	return s.hw.L1Buffers[id].Primitive
}

// StartBlockTransfer queues a block move directly on L2 bank id's mover,
// bypassing a loaded program -- the same bypass surface the bank/tile
// read/write methods offer for the other memory tiers. t.Src/t.Dst must
// already be populated, typically from L3TileStorage/L2BankStorage.
func (s *Simulator) StartBlockTransfer(l2BankID int, t blockmover.BlockTransfer) {
	s.hw.BlockMovers[l2BankID].Enqueue(t)
}

// StartRowStream queues an A-matrix row stream directly on L2 bank id's
// streamer, bypassing a loaded program. cfg.L2Bank/cfg.L1Buffer must
// already be populated, typically from L2BankStorage/L1BufferStorage.
func (s *Simulator) StartRowStream(l2BankID int, cfg streamer.Config) {
	cfg.Kind = streamer.RowStream
	s.hw.Streamers[l2BankID].Enqueue(cfg, s.executor.CurrentCycle())
}

// StartColumnStream queues a B-matrix column stream directly on L2 bank
// id's streamer, bypassing a loaded program. cfg.L2Bank/cfg.L1Buffer must
// already be populated, typically from L2BankStorage/L1BufferStorage.
func (s *Simulator) StartColumnStream(l2BankID int, cfg streamer.Config) {
	cfg.Kind = streamer.ColumnStream
	s.hw.Streamers[l2BankID].Enqueue(cfg, s.executor.CurrentCycle())
}

// StartMatmul fires a matmul directly on compute tile id's fabric,
// bypassing a loaded program. It fails with a BusyError if the fabric is
// already computing. req.L1Buffer must already be populated, typically
// from L1BufferStorage.
func (s *Simulator) StartMatmul(tileID int, req compute.MatmulRequest) error {
	return s.hw.ComputeFabrics[tileID].StartMatmul(s.executor.CurrentCycle(), req)
}
