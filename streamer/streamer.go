// Package streamer models the Streamer: the engine that feeds the
// systolic array from L2 into L1 (row or column streams) and drains
// results the other way, staggering each lane to match systolic timing.
package streamer

import (
	"github.com/stillwater-sc/kpu-sim-sub001/storage"
)

// Direction is which way bytes move between L2 and L1.
type Direction uint8

const (
	L2ToL1 Direction = iota
	L1ToL2
)

// Kind distinguishes row streams (feeding the A matrix) from column
// streams (feeding the B matrix).
type Kind uint8

const (
	RowStream Kind = iota
	ColumnStream
)

// DefaultCacheLineSize is the value Enqueue stores in Config.CacheLineSize
// when it is left zero. The streamer keeps no cache-line buffer: Update
// reads and writes one element at a time and never consults
// CacheLineSize.
const DefaultCacheLineSize = 64

// Config describes one stream: its L2/L1 endpoints, matrix geometry, and
// the fabric it feeds.
type Config struct {
	ID          uint32
	L2Bank      *storage.Primitive
	L1Buffer    *storage.Primitive
	L2BaseAddr  uint64
	L1BaseAddr  uint64
	Height      int // matrix rows
	Width       int // matrix cols
	ElementSize uint64
	FabricSize  int
	Direction   Direction
	Kind        Kind
	CacheLineSize uint64
}

// state tracks one in-flight stream's progress.
type state struct {
	config       Config
	startCycle   uint64
	elementsDone int
	total        int
}

// Streamer serializes a queue of streams, staggering per-lane starts so
// lane k begins k cycles after lane 0.
type Streamer struct {
	ID int

	queue   []Config
	current *state
}

// New builds a streamer.
func New(id int) *Streamer {
	return &Streamer{ID: id}
}

// IsBusy reports whether a stream is active or queued.
func (s *Streamer) IsBusy() bool {
	return s.current != nil || len(s.queue) > 0
}

// Enqueue adds a stream, starting it immediately if the streamer is idle.
func (s *Streamer) Enqueue(cfg Config, cycle uint64) {
	if cfg.CacheLineSize == 0 {
		cfg.CacheLineSize = DefaultCacheLineSize
	}
	s.queue = append(s.queue, cfg)
	if s.current == nil {
		s.startNext(cycle)
	}
}

func (s *Streamer) startNext(cycle uint64) {
	if len(s.queue) == 0 {
		return
	}
	cfg := s.queue[0]
	s.queue = s.queue[1:]
	s.current = &state{config: cfg, startCycle: cycle, total: lanes(cfg)}
}

func lanes(cfg Config) int {
	if cfg.Kind == RowStream {
		return cfg.Height
	}
	return cfg.Width
}

func laneLength(cfg Config) int {
	if cfg.Kind == RowStream {
		return cfg.Width
	}
	return cfg.Height
}

// calculateRowAddress computes the L2/L1 address of element (row, col) of
// a row-major matrix stream.
func calculateRowAddress(base uint64, width int, elementSize uint64, row, col int) uint64 {
	return base + uint64(row*width+col)*elementSize
}

// shouldStreamThisCycle reports whether lane fits the spec's staggering
// rule: (current_cycle - start_cycle) >= k.
func shouldStreamThisCycle(startCycle, currentCycle uint64, lane int) bool {
	if currentCycle < startCycle {
		return false
	}
	return currentCycle-startCycle >= uint64(lane)
}

// Update advances every lane of the in-flight stream by at most one
// element each, honoring the stagger rule, and reports the stream's id
// once every lane has transferred its full length.
func (s *Streamer) Update(cycle uint64) (completedID uint32, completed bool, err error) {
	if s.current == nil {
		return 0, false, nil
	}

	cfg := s.current.config
	length := laneLength(cfg)
	lanes := s.current.total
	if lanes > cfg.FabricSize && cfg.FabricSize > 0 {
		lanes = cfg.FabricSize
	}

	done := true
	for lane := 0; lane < lanes; lane++ {
		if !shouldStreamThisCycle(s.current.startCycle, cycle, lane) {
			done = false
			continue
		}

		step := int(cycle - s.current.startCycle - uint64(lane))
		if step >= length {
			continue
		}
		done = false

		if err := s.transferElement(cfg, lane, step); err != nil {
			s.current = nil
			return 0, false, err
		}
	}

	if !done {
		return 0, false, nil
	}

	id := cfg.ID
	s.current = nil
	s.startNext(cycle + 1)

	return id, true, nil
}

func (s *Streamer) transferElement(cfg Config, lane, step int) error {
	var row, col int
	if cfg.Kind == RowStream {
		row, col = lane, step
	} else {
		row, col = step, lane
	}

	// The L2 matrix is always row-major regardless of stream kind; only
	// the mapping from (lane, step) to (row, col) swaps between row and
	// column streams. L1 is written lane by lane, so a row stream lands
	// row-major and a column stream lands column-major.
	l2Addr := calculateRowAddress(cfg.L2BaseAddr, cfg.Width, cfg.ElementSize, row, col)
	l1Addr := cfg.L1BaseAddr + uint64(lane*laneLength(cfg)+step)*cfg.ElementSize

	buf := make([]byte, cfg.ElementSize)

	if cfg.Direction == L2ToL1 {
		if err := cfg.L2Bank.Read(l2Addr, buf, cfg.ElementSize); err != nil {
			return err
		}
		return cfg.L1Buffer.Write(l1Addr, buf, cfg.ElementSize)
	}

	if err := cfg.L1Buffer.Read(l1Addr, buf, cfg.ElementSize); err != nil {
		return err
	}
	return cfg.L2Bank.Write(l2Addr, buf, cfg.ElementSize)
}

// Reset drops all pending and in-flight streams.
func (s *Streamer) Reset() {
	s.queue = nil
	s.current = nil
}

// CalculateStreamCycles is the spec's rough scheduling oracle:
// max(matrix_height, matrix_width) + fabric_size - 1.
func CalculateStreamCycles(height, width, fabricSize int) int {
	longest := height
	if width > longest {
		longest = width
	}
	return longest + fabricSize - 1
}
