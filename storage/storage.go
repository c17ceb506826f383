// Package storage implements the KPU's L0 storage primitives: raw,
// byte-addressable memories that differ from each other only in capacity
// and which engine kinds are allowed to touch them. Every primitive is
// backed by akita's mem.Storage, the same byte-addressable storage type
// the teacher simulator wires into its ideal memory controllers.
package storage

import "github.com/sarchlab/akita/v4/mem/mem"

// Primitive is a bounds-checked byte array shared by every memory kind in
// the hierarchy (external memory bank, L3 tile, L2 bank, L1 buffer, page
// buffer). Reads and writes are ordered by call order: the simulator is
// single-threaded internally, so a Primitive needs no locking of its own.
type Primitive struct {
	Name     string
	Base     uint64
	capacity uint64
	backing  *mem.Storage
}

// New creates a zeroed primitive of the given capacity in bytes.
func New(name string, capacityBytes uint64) *Primitive {
	return &Primitive{
		Name:     name,
		capacity: capacityBytes,
		backing:  mem.NewStorage(capacityBytes),
	}
}

// Capacity returns the primitive's size in bytes.
func (p *Primitive) Capacity() uint64 {
	return p.capacity
}

// Read copies size bytes starting at offset into dst, which must be at
// least size bytes long.
func (p *Primitive) Read(offset uint64, dst []byte, size uint64) error {
	if offset+size > p.capacity {
		return &OutOfRangeError{Name: p.Name, Offset: offset, Size: size, Capacity: p.capacity}
	}

	data, err := p.backing.Read(offset, size)
	if err != nil {
		return err
	}

	copy(dst, data)

	return nil
}

// Write copies size bytes from src into the primitive starting at offset.
func (p *Primitive) Write(offset uint64, src []byte, size uint64) error {
	if offset+size > p.capacity {
		return &OutOfRangeError{Name: p.Name, Offset: offset, Size: size, Capacity: p.capacity}
	}

	return p.backing.Write(offset, src[:size])
}

// Reset zeroes the primitive, dropping any content written so far.
func (p *Primitive) Reset() {
	p.backing = mem.NewStorage(p.capacity)
}

// ExternalMemoryBank is the KPU's off-chip memory (GDDR6/HBM class).
// Capacity is MB-scale; bandwidth governs DMA cycle cost.
type ExternalMemoryBank struct {
	*Primitive
	BandwidthGBs float64
}

// NewExternalMemoryBank builds an external memory bank of the given
// capacity (MB) and bandwidth (GB/s).
func NewExternalMemoryBank(name string, capacityMB int, bandwidthGBs float64) *ExternalMemoryBank {
	return &ExternalMemoryBank{
		Primitive:    New(name, uint64(capacityMB)*1<<20),
		BandwidthGBs: bandwidthGBs,
	}
}

// L3TileMem is an on-chip L3 cache tile, hundreds-of-KB scale.
type L3TileMem struct {
	*Primitive
}

// NewL3Tile builds an L3 tile of the given capacity in KB.
func NewL3Tile(name string, capacityKB int) *L3TileMem {
	return &L3TileMem{Primitive: New(name, uint64(capacityKB)*1<<10)}
}

// L2BankMem is an on-chip L2 cache bank, tens-of-KB scale.
type L2BankMem struct {
	*Primitive
}

// NewL2Bank builds an L2 bank of the given capacity in KB.
func NewL2Bank(name string, capacityKB int) *L2BankMem {
	return &L2BankMem{Primitive: New(name, uint64(capacityKB)*1<<10)}
}

// L1BufferMem is an L1 streaming buffer feeding one side of a compute tile.
type L1BufferMem struct {
	*Primitive
}

// NewL1Buffer builds an L1 buffer of the given capacity in KB.
func NewL1Buffer(name string, capacityKB int) *L1BufferMem {
	return &L1BufferMem{Primitive: New(name, uint64(capacityKB)*1<<10)}
}

// PageBufferMem is a memory-controller scratch area used to coalesce
// accesses; it has no engine-specific routing rules of its own.
type PageBufferMem struct {
	*Primitive
}

// NewPageBuffer builds a page buffer of the given capacity in KB.
func NewPageBuffer(name string, capacityKB int) *PageBufferMem {
	return &PageBufferMem{Primitive: New(name, uint64(capacityKB)*1<<10)}
}
