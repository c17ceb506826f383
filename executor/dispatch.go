package executor

import (
	"github.com/stillwater-sc/kpu-sim-sub001/blockmover"
	"github.com/stillwater-sc/kpu-sim-sub001/compute"
	"github.com/stillwater-sc/kpu-sim-sub001/dma"
	"github.com/stillwater-sc/kpu-sim-sub001/isa"
	"github.com/stillwater-sc/kpu-sim-sub001/storage"
	"github.com/stillwater-sc/kpu-sim-sub001/streamer"
)

// tryIssue attempts to issue the instruction at pc. It returns issued=false
// (no error) when the instruction's target engine is busy and the program
// counter should hold, or an error when the program itself is malformed in
// a way validation should have caught.
//
// A resource's own id doubles as the id of the engine instance that
// services it (the DMA engine bound to an L3 tile, the Block Mover bound
// to an L2 bank, the Streamer bound to an L2 bank, the compute tile
// itself) -- there is no separate round-robin engine assignment.
func (e *Executor) tryIssue(instr isa.Instruction) (bool, error) {
	switch instr.Opcode {
	case isa.OpDMALoad, isa.OpDMAStore:
		return e.issueDMA(instr)
	case isa.OpBMMove:
		return e.issueBlockMove(instr)
	case isa.OpSTRRow, isa.OpSTRCol, isa.OpSTROut:
		return e.issueStream(instr)
	case isa.OpMatmul:
		return e.issueMatmul(instr)
	case isa.OpBarrier:
		return e.issueBarrier(instr)
	case isa.OpWaitID:
		return e.issueWaitID(instr)
	case isa.OpNop:
		// NOP has no engine of its own to queue on, but still must not
		// retire inside the same Step() it issues in -- otherwise a run
		// of N consecutive NOPs would all issue and fire within a
		// single issue-phase loop, completing the program in one cycle
		// instead of N. Holding pc until the previous NOP has drained
		// from updateEngines gives it the same one-cycle retirement
		// every other engine gets.
		if len(e.pendingNOP) > 0 {
			return false, nil
		}
		e.pendingNOP[instr.ID] = true
		return true, nil
	default:
		return true, nil
	}
}

func (e *Executor) issueDMA(instr isa.Instruction) (bool, error) {
	l3 := e.hw.L3Tiles[instr.L3TileID]

	var extKind dma.Kind
	var extPrim *storage.Primitive
	var extOffset uint64
	if instr.ExternalBank >= 0 {
		extKind = dma.External
		extPrim = e.hw.ExternalMemory[instr.ExternalBank].Primitive
		extOffset = instr.ExternalAddr
	} else {
		extKind = dma.HostMemory
		extPrim = e.hw.HostMemory
		extOffset = instr.HostAddr
	}

	t := dma.Transfer{ID: instr.ID, Size: instr.TransferSize}
	if instr.Opcode == isa.OpDMALoad {
		t.SrcKind, t.Src, t.SrcOffset = extKind, extPrim, extOffset
		t.DstKind, t.Dst, t.DstOffset = dma.L3Tile, l3.Primitive, instr.L3Offset
	} else {
		t.SrcKind, t.Src, t.SrcOffset = dma.L3Tile, l3.Primitive, instr.L3Offset
		t.DstKind, t.Dst, t.DstOffset = extKind, extPrim, extOffset
	}

	engine := e.hw.DMAEngines[instr.L3TileID]
	if err := engine.Enqueue(e.currentCycle, t); err != nil {
		return false, err
	}

	e.pendingDMA[instr.ID] = true
	e.stats.L3BytesTransferred += instr.TransferSize
	if extKind == dma.External {
		e.stats.ExternalBytesTransferred += instr.TransferSize
	}

	return true, nil
}

func (e *Executor) issueBlockMove(instr isa.Instruction) (bool, error) {
	l3 := e.hw.L3Tiles[instr.SrcL3Tile]
	l2 := e.hw.L2Banks[instr.DstL2Bank]
	mover := e.hw.BlockMovers[instr.DstL2Bank]

	t := blockmover.BlockTransfer{
		ID:          instr.ID,
		Rows:        instr.Rows,
		Cols:        instr.Cols,
		ElementSize: instr.ElementSize,
		Transform:   instr.Transform,
	}
	if !instr.L2ToL3 {
		t.Src, t.SrcOffset = l3.Primitive, instr.L3Addr
		t.Dst, t.DstOffset = l2.Primitive, instr.L2Addr
	} else {
		t.Src, t.SrcOffset = l2.Primitive, instr.L2Addr
		t.Dst, t.DstOffset = l3.Primitive, instr.L3Addr
	}

	mover.Enqueue(t)
	e.pendingBM[instr.ID] = true

	bytes := uint64(instr.Rows) * uint64(instr.Cols) * instr.ElementSize
	e.stats.L3BytesTransferred += bytes
	e.stats.L2BytesTransferred += bytes

	return true, nil
}

func (e *Executor) issueStream(instr isa.Instruction) (bool, error) {
	l2 := e.hw.L2Banks[instr.SrcL2Bank]
	l1 := e.hw.L1Buffers[instr.DstL1Buffer]
	s := e.hw.Streamers[instr.SrcL2Bank]

	cfg := streamer.Config{
		ID:          instr.ID,
		L2Bank:      l2.Primitive,
		L1Buffer:    l1.Primitive,
		L2BaseAddr:  instr.Geometry.L2Addr,
		L1BaseAddr:  instr.Geometry.L1Addr,
		ElementSize: instr.Geometry.ElementSize,
		FabricSize:  instr.Geometry.FabricSize,
	}

	if instr.L1ToL2 {
		cfg.Direction = streamer.L1ToL2
	} else {
		cfg.Direction = streamer.L2ToL1
	}

	switch instr.Opcode {
	case isa.OpSTRCol:
		cfg.Kind = streamer.ColumnStream
		cfg.Height, cfg.Width = e.program.Header.Tk, e.program.Header.Tj
	case isa.OpSTROut:
		cfg.Kind = streamer.RowStream
		cfg.Height, cfg.Width = e.program.Header.Ti, e.program.Header.Tj
	default: // OpSTRRow
		cfg.Kind = streamer.RowStream
		cfg.Height, cfg.Width = e.program.Header.Ti, e.program.Header.Tk
	}

	s.Enqueue(cfg, e.currentCycle)
	e.pendingStr[instr.ID] = true
	e.stats.L2BytesTransferred += uint64(cfg.Height) * uint64(cfg.Width) * cfg.ElementSize

	return true, nil
}

func (e *Executor) issueMatmul(instr isa.Instruction) (bool, error) {
	fabric := e.hw.ComputeFabrics[instr.ComputeTile]

	element := compute.ElementF32
	if e.program.Header.Element == isa.ElementF64 {
		element = compute.ElementF64
	}

	req := compute.MatmulRequest{
		ID:           instr.ID,
		L1Buffer:     e.hw.L1Buffers[instr.DstL1Buffer].Primitive,
		AAddr:        instr.AAddr,
		BAddr:        instr.BAddr,
		CAddr:        instr.CAddr,
		M:            instr.M,
		N:            instr.N,
		K:            instr.K,
		Element:      element,
		BColumnMajor: instr.BColumnMajor,
	}

	err := fabric.StartMatmul(e.currentCycle, req)
	if err == nil {
		return true, nil
	}
	if _, busy := err.(*compute.BusyError); busy {
		return false, nil
	}
	return false, err
}

// issueBarrier holds pc until every pending set named in the barrier's
// mask has drained -- and, for the compute bit, until no compute fabric is
// busy. Compute has no pending-set entry of its own: it is the one engine
// kind the barrier checks directly against live hardware state rather than
// a tracked id set, since a MATMUL never queues on a full fabric the way a
// DMA or block transfer queues on a busy engine.
func (e *Executor) issueBarrier(instr isa.Instruction) (bool, error) {
	if instr.Mask.Has(isa.EngineDMA) && len(e.pendingDMA) > 0 {
		return false, nil
	}
	if instr.Mask.Has(isa.EngineBlockMover) && len(e.pendingBM) > 0 {
		return false, nil
	}
	if instr.Mask.Has(isa.EngineStreamer) && len(e.pendingStr) > 0 {
		return false, nil
	}
	if instr.Mask.Has(isa.EngineCompute) && !e.allComputeIdle() {
		return false, nil
	}

	e.stats.BarriersHit++
	e.stats.InstructionsExecuted++
	e.fire(instr.ID)

	return true, nil
}

// issueWaitID holds pc until the named instruction id has left every
// tracked pending set. A WAIT_ID naming a MATMUL's id is satisfied the
// instant it is checked, since compute completions are never recorded in
// a pending set -- the same asymmetry issueBarrier applies to the compute
// bit.
func (e *Executor) issueWaitID(instr isa.Instruction) (bool, error) {
	if e.pendingAnywhere(instr.WaitID) {
		return false, nil
	}

	e.stats.InstructionsExecuted++
	e.fire(instr.ID)

	return true, nil
}

// updateEngines advances every configured engine instance by one cycle in
// the fixed order DMA -> Block Mover -> Streamer -> Compute.
func (e *Executor) updateEngines() error {
	for _, d := range e.hw.DMAEngines {
		id, completed, err := d.Update(e.currentCycle)
		if err != nil {
			return &EngineFaultError{InstructionID: id, Err: err}
		}
		if completed {
			delete(e.pendingDMA, id)
			e.stats.DMAOperations++
			e.stats.InstructionsExecuted++
			e.fire(id)
		}
	}

	for _, b := range e.hw.BlockMovers {
		id, completed, err := b.Update(e.currentCycle)
		if err != nil {
			return &EngineFaultError{InstructionID: id, Err: err}
		}
		if completed {
			delete(e.pendingBM, id)
			e.stats.BlockMoverOperations++
			e.stats.InstructionsExecuted++
			e.fire(id)
		}
	}

	for _, s := range e.hw.Streamers {
		id, completed, err := s.Update(e.currentCycle)
		if err != nil {
			return &EngineFaultError{InstructionID: id, Err: err}
		}
		if completed {
			delete(e.pendingStr, id)
			e.stats.StreamerOperations++
			e.stats.InstructionsExecuted++
			e.fire(id)
		}
	}

	for _, c := range e.hw.ComputeFabrics {
		id, completed, err := c.Update(e.currentCycle)
		if err != nil {
			return &EngineFaultError{InstructionID: id, Err: err}
		}
		if completed {
			e.stats.InstructionsExecuted++
			e.fire(id)
		}
	}

	for id := range e.pendingNOP {
		delete(e.pendingNOP, id)
		e.stats.InstructionsExecuted++
		e.fire(id)
	}

	return nil
}
