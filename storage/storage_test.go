package storage

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	p := New("bank0", 1024)

	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := p.Write(16, src, uint64(len(src))); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	dst := make([]byte, len(src))
	if err := p.Read(16, dst, uint64(len(dst))); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	for i := range src {
		if src[i] != dst[i] {
			t.Fatalf("byte %d: got %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestOutOfRange(t *testing.T) {
	p := New("tiny", 8)

	err := p.Write(4, []byte{1, 2, 3, 4, 5}, 5)
	if err == nil {
		t.Fatal("expected OutOfRangeError")
	}

	if _, ok := err.(*OutOfRangeError); !ok {
		t.Fatalf("expected *OutOfRangeError, got %T", err)
	}
}

func TestReset(t *testing.T) {
	p := New("bank0", 64)
	_ = p.Write(0, []byte{0xFF, 0xFF}, 2)

	p.Reset()

	dst := make([]byte, 2)
	_ = p.Read(0, dst, 2)
	if dst[0] != 0 || dst[1] != 0 {
		t.Fatalf("expected zeroed storage after Reset, got %v", dst)
	}
}
