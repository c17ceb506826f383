package addrdecoder

// Kind identifies the class of hardware resource a region routes to.
// Mirrors sw::memory::MemoryType / sw::kpu::ResourceType from the modeled
// hardware, narrowed to what the address decoder itself needs to route.
type Kind uint8

const (
	HostMemory Kind = iota
	External
	L3Tile
	L2Bank
	L1Buffer
	PageBuffer
)

// String names the kind the way the decoder's memory map table prints it.
func (k Kind) String() string {
	switch k {
	case HostMemory:
		return "HOST"
	case External:
		return "EXTERNAL"
	case L3Tile:
		return "L3_TILE"
	case L2Bank:
		return "L2_BANK"
	case L1Buffer:
		return "L1"
	case PageBuffer:
		return "PAGE_BUFFER"
	default:
		return "UNKNOWN"
	}
}

// Region is one disjoint span of the unified address space.
type Region struct {
	Base uint64
	Size uint64
	Kind Kind
	ID   int
	Name string
}

// End returns the address one past the last byte of the region.
func (r Region) End() uint64 {
	return r.Base + r.Size
}

// Contains reports whether addr falls within [Base, End).
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Base && addr < r.End()
}
