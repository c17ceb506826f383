// Package kpu assembles the address decoder, storage hierarchy, engines,
// and concurrent executor into one simulator instance, and exposes the
// convenience operations a caller drives it through. It plays the role
// the teacher's config package plays for a CGRA device: turning a set of
// dimensions into a fully wired piece of hardware.
package kpu

import "github.com/stillwater-sc/kpu-sim-sub001/compute"

// Config names every dimension of a KPU instance: how many of each
// engine and memory kind to build, and their individual capacities.
type Config struct {
	MemoryBankCount       int
	MemoryBankCapacityMB  int
	MemoryBandwidthGBs    float64

	L3TileCount     int
	L3TileCapacityKB int

	L2BankCount      int
	L2BankCapacityKB int

	L1BufferCount      int
	L1BufferCapacityKB int

	// One page buffer per DMA engine (see L3TileCount).
	PageBufferCapacityKB int

	// DMA engines track L3 tiles one-for-one, and Block Movers/Streamers
	// track L2 banks one-for-one: an instruction's own L3/L2 id doubles as
	// its engine instance id, so there is no separate engine count to set.

	ComputeTileCount   int
	ProcessorArrayRows int
	ProcessorArrayCols int
	UseSystolicArrayMode bool

	HostMemoryCapacityBytes uint64
}

// DefaultConfig returns a small, single-tile configuration suitable for
// the 2x2 and 4x4 scenarios: one of everything, a 16x16 systolic array.
func DefaultConfig() Config {
	return Config{
		MemoryBankCount:      1,
		MemoryBankCapacityMB: 16,
		MemoryBandwidthGBs:   100,

		L3TileCount:      1,
		L3TileCapacityKB: 256,

		L2BankCount:      1,
		L2BankCapacityKB: 64,

		L1BufferCount:      1,
		L1BufferCapacityKB: 16,

		PageBufferCapacityKB: 4,

		ComputeTileCount:     1,
		ProcessorArrayRows:   compute.DefaultRows,
		ProcessorArrayCols:   compute.DefaultCols,
		UseSystolicArrayMode: true,

		HostMemoryCapacityBytes: 1 << 20,
	}
}

func (c Config) computeMode() compute.Mode {
	if c.UseSystolicArrayMode {
		return compute.SystolicArray
	}
	return compute.BasicMatmul
}
