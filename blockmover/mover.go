// Package blockmover models the Block Mover: the engine that moves 2-D
// blocks between an L3 tile and an L2 bank, optionally transforming the
// block in flight (identity copy, transpose, or zero-padding).
package blockmover

import (
	"github.com/stillwater-sc/kpu-sim-sub001/isa"
	"github.com/stillwater-sc/kpu-sim-sub001/storage"
)

// State is the mover's coarse execution state.
type State uint8

const (
	Idle State = iota
	Active
)

// BlockTransfer is one queued or in-flight block move.
type BlockTransfer struct {
	ID          uint32
	Src         *storage.Primitive
	Dst         *storage.Primitive
	SrcOffset   uint64
	DstOffset   uint64
	Rows, Cols  int
	ElementSize uint64
	Transform   isa.Transform
	// DstRows/DstCols matter only for PAD, where the destination block can
	// be larger than the source; zero means "same as source".
	DstRows, DstCols int
}

func (t BlockTransfer) dstRows() int {
	if t.DstRows > 0 {
		return t.DstRows
	}
	return t.Rows
}

func (t BlockTransfer) dstCols() int {
	if t.DstCols > 0 {
		return t.DstCols
	}
	return t.Cols
}

// Mover is one Block Mover instance. It serializes transfers; running
// several block moves concurrently means configuring several movers.
type Mover struct {
	ID             int
	BandwidthBytes float64 // bytes per cycle

	state           State
	queue           []BlockTransfer
	current         BlockTransfer
	cyclesRemaining uint64
}

// New builds a block mover with the given per-cycle byte bandwidth.
func New(id int, bandwidthBytesPerCycle float64) *Mover {
	return &Mover{ID: id, BandwidthBytes: bandwidthBytesPerCycle, state: Idle}
}

// IsBusy reports whether a transfer is active or queued.
func (m *Mover) IsBusy() bool {
	return m.state == Active || len(m.queue) > 0
}

// Cycles returns the modeled cost of a block transfer: rows *
// max(1, cols*element_size/bytes_per_cycle).
func (m *Mover) Cycles(t BlockTransfer) uint64 {
	bpc := m.BandwidthBytes
	if bpc <= 0 {
		bpc = 1
	}
	perRow := float64(t.Cols) * float64(t.ElementSize) / bpc
	if perRow < 1 {
		perRow = 1
	}
	return uint64(t.Rows) * uint64(perRow)
}

// Enqueue adds a block transfer to the mover's queue, starting it
// immediately if the mover is idle.
func (m *Mover) Enqueue(t BlockTransfer) {
	m.queue = append(m.queue, t)
	if m.state == Idle {
		m.startNext()
	}
}

func (m *Mover) startNext() {
	if len(m.queue) == 0 {
		return
	}
	m.current, m.queue = m.queue[0], m.queue[1:]
	m.cyclesRemaining = m.Cycles(m.current)
	m.state = Active
}

// Update advances the mover by one cycle, performing the block copy (with
// its transform applied) and reporting completion when the in-flight
// transfer's cycle budget is exhausted.
func (m *Mover) Update(cycle uint64) (completedID uint32, completed bool, err error) {
	if m.state != Active {
		return 0, false, nil
	}

	if m.cyclesRemaining > 0 {
		m.cyclesRemaining--
	}
	if m.cyclesRemaining > 0 {
		return 0, false, nil
	}

	if err := applyTransform(m.current); err != nil {
		m.state = Idle
		return 0, false, err
	}

	id := m.current.ID
	m.state = Idle
	m.current = BlockTransfer{}
	m.startNext()

	return id, true, nil
}

// Reset drops all pending and in-flight work.
func (m *Mover) Reset() {
	m.state = Idle
	m.queue = nil
	m.current = BlockTransfer{}
	m.cyclesRemaining = 0
}

func applyTransform(t BlockTransfer) error {
	elem := int(t.ElementSize)
	row := make([]byte, t.Cols*elem)

	switch t.Transform {
	case isa.TransformIdentity:
		for r := 0; r < t.Rows; r++ {
			if err := t.Src.Read(t.SrcOffset+uint64(r*t.Cols*elem), row, uint64(len(row))); err != nil {
				return err
			}
			if err := t.Dst.Write(t.DstOffset+uint64(r*t.Cols*elem), row, uint64(len(row))); err != nil {
				return err
			}
		}
	case isa.TransformTranspose:
		cell := make([]byte, elem)
		for i := 0; i < t.Rows; i++ {
			for j := 0; j < t.Cols; j++ {
				srcOff := t.SrcOffset + uint64((i*t.Cols+j)*elem)
				dstOff := t.DstOffset + uint64((j*t.Rows+i)*elem)
				if err := t.Src.Read(srcOff, cell, uint64(elem)); err != nil {
					return err
				}
				if err := t.Dst.Write(dstOff, cell, uint64(elem)); err != nil {
					return err
				}
			}
		}
	case isa.TransformPad:
		dr, dc := t.dstRows(), t.dstCols()
		zero := make([]byte, dc*elem)
		for i := 0; i < dr; i++ {
			if err := t.Dst.Write(t.DstOffset+uint64(i*dc*elem), zero, uint64(len(zero))); err != nil {
				return err
			}
		}
		cell := make([]byte, elem)
		for i := 0; i < t.Rows; i++ {
			for j := 0; j < t.Cols; j++ {
				srcOff := t.SrcOffset + uint64((i*t.Cols+j)*elem)
				dstOff := t.DstOffset + uint64((i*dc+j)*elem)
				if err := t.Src.Read(srcOff, cell, uint64(elem)); err != nil {
					return err
				}
				if err := t.Dst.Write(dstOff, cell, uint64(elem)); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
