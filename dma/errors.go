package dma

import "fmt"

// RoutingError reports a transfer requested between two memory kinds that
// no physical DMA route connects. Only HOST<->EXTERNAL, EXTERNAL<->L3_TILE
// and HOST<->L3_TILE are wired; L2/L1 are reached via the Block Mover and
// Streamer instead.
type RoutingError struct {
	Src, Dst Kind
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("dma: no route from %s to %s", e.Src, e.Dst)
}
