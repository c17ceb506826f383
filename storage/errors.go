package storage

import "fmt"

// OutOfRangeError is returned whenever an offset+size pair would read or
// write past a primitive's capacity.
type OutOfRangeError struct {
	Name     string
	Offset   uint64
	Size     uint64
	Capacity uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf(
		"%s: access [0x%x, 0x%x) exceeds capacity 0x%x",
		e.Name, e.Offset, e.Offset+e.Size, e.Capacity,
	)
}
