// Package addrdecoder implements the KPU's unified address space decoder:
// the single place that knows how physical addresses map onto the memory
// hierarchy (external memory banks, L3 tiles, L2 banks, L1 buffers, page
// buffers). The engines do not consult it: DMA engines, Block Movers and
// Streamers are handed storage primitives directly, and the decoder
// records the address map the simulator builder assigned.
package addrdecoder

import "fmt"

// OverlapError is returned by AddRegion when the new region intersects an
// already-registered region.
type OverlapError struct {
	Base, Size   uint64
	ExistingBase uint64
	ExistingSize uint64
	ExistingName string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf(
		"memory region [0x%x-0x%x) overlaps existing region [0x%x-0x%x) (%s)",
		e.Base, e.Base+e.Size, e.ExistingBase, e.ExistingBase+e.ExistingSize, e.ExistingName,
	)
}

// UnmappedAddressError is returned by Decode when no region covers the
// requested address.
type UnmappedAddressError struct {
	Addr uint64
}

func (e *UnmappedAddressError) Error() string {
	return fmt.Sprintf("address 0x%x is not mapped to any memory region", e.Addr)
}

// RangeError describes an [addr, addr+size) transfer range that spans
// more than one region. No function in this module returns it;
// IsValidRange reports the same condition as a bool.
type RangeError struct {
	Addr uint64
	Size uint64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range [0x%x-0x%x) crosses a region boundary", e.Addr, e.Addr+e.Size)
}
