package addrdecoder

import (
	"errors"
	"testing"
)

func TestAddRegionRejectsOverlap(t *testing.T) {
	d := New()

	if err := d.AddRegion(0x0, 1<<20, External, 0, "bank0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := d.AddRegion(0x800, 1<<20, External, 1, "bank1")
	if err == nil {
		t.Fatalf("expected OverlapError, got nil")
	}

	var overlap *OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected *OverlapError, got %T", err)
	}

	if len(d.Regions()) != 1 {
		t.Fatalf("region set must be unchanged after a rejected add, got %d regions", len(d.Regions()))
	}
}

func TestDecode(t *testing.T) {
	d := New()
	mustAdd(t, d, 0x0, 0x1000, External, 0, "bank0")
	mustAdd(t, d, 0x2000, 0x1000, L3Tile, 0, "l3-0")

	tests := []struct {
		name    string
		addr    uint64
		wantErr bool
		kind    Kind
		id      int
		offset  uint64
	}{
		{"start of first region", 0x0, false, External, 0, 0x0},
		{"middle of first region", 0x500, false, External, 0, 0x500},
		{"start of second region", 0x2000, false, L3Tile, 0, 0x0},
		{"gap between regions", 0x1500, true, 0, 0, 0},
		{"past last region", 0x3000, true, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := d.Decode(tt.addr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got route %+v", route)
				}
				var unmapped *UnmappedAddressError
				if !errors.As(err, &unmapped) {
					t.Fatalf("expected *UnmappedAddressError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if route.Kind != tt.kind || route.ID != tt.id || route.Offset != tt.offset {
				t.Fatalf("got %+v, want kind=%v id=%d offset=0x%x", route, tt.kind, tt.id, tt.offset)
			}
		})
	}
}

func TestIsValidRange(t *testing.T) {
	d := New()
	mustAdd(t, d, 0x0, 0x1000, External, 0, "bank0")
	mustAdd(t, d, 0x1000, 0x1000, L3Tile, 0, "l3-0")

	if !d.IsValidRange(0x100, 0x10) {
		t.Fatal("range fully inside one region should be valid")
	}

	if d.IsValidRange(0xFF0, 0x20) {
		t.Fatal("range crossing two regions should be invalid")
	}

	if !d.IsValidRange(0x100, 0) {
		t.Fatal("a zero-size range is always valid")
	}
}

func mustAdd(t *testing.T, d *Decoder, base, size uint64, kind Kind, id int, name string) {
	t.Helper()
	if err := d.AddRegion(base, size, kind, id, name); err != nil {
		t.Fatalf("AddRegion(%#x, %#x) failed: %v", base, size, err)
	}
}
