package compute

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stillwater-sc/kpu-sim-sub001/storage"
)

func putF32(t *testing.T, p *storage.Primitive, offset uint64, v float32) {
	t.Helper()
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	if err := p.Write(offset, buf, 4); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}
}

func getF32(t *testing.T, p *storage.Primitive, offset uint64) float32 {
	t.Helper()
	buf := make([]byte, 4)
	if err := p.Read(offset, buf, 4); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}

func runUntilDone(t *testing.T, f *Fabric, maxCycles uint64) uint32 {
	t.Helper()
	for cycle := uint64(0); cycle < maxCycles; cycle++ {
		id, completed, err := f.Update(cycle)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if completed {
			return id
		}
	}
	t.Fatal("matmul never completed")
	return 0
}

// TestSystolic2x2Matmul reproduces the spec's 2x2 x 2x2 scenario:
// A=[[1,2],[3,4]], B=[[5,6],[7,8]], expected C=[[19,22],[43,50]].
func TestSystolic2x2Matmul(t *testing.T) {
	l1 := storage.New("l1", 256)

	a := []float32{1, 2, 3, 4}
	b := []float32{5, 6, 7, 8}
	for i, v := range a {
		putF32(t, l1, uint64(i)*4, v)
	}
	for i, v := range b {
		putF32(t, l1, 64+uint64(i)*4, v)
	}

	f := New(0, 2, 2, SystolicArray)
	if err := f.StartMatmul(0, MatmulRequest{ID: 1, L1Buffer: l1, AAddr: 0, BAddr: 64, CAddr: 128, M: 2, N: 2, K: 2}); err != nil {
		t.Fatalf("StartMatmul failed: %v", err)
	}

	id := runUntilDone(t, f, 64)
	if id != 1 {
		t.Fatalf("got completed id %d, want 1", id)
	}

	want := []float32{19, 22, 43, 50}
	for i, w := range want {
		got := getF32(t, l1, 128+uint64(i)*4)
		if math.Abs(float64(got-w)) > 1e-3 {
			t.Fatalf("C[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestStartMatmulRejectsWhenBusy(t *testing.T) {
	l1 := storage.New("l1", 256)
	f := New(0, 2, 2, SystolicArray)
	_ = f.StartMatmul(0, MatmulRequest{ID: 1, L1Buffer: l1, M: 2, N: 2, K: 2})

	err := f.StartMatmul(0, MatmulRequest{ID: 2, L1Buffer: l1, M: 2, N: 2, K: 2})
	if _, ok := err.(*BusyError); !ok {
		t.Fatalf("expected *BusyError, got %v", err)
	}
}

func TestStartMatmulRejectsOversizedTile(t *testing.T) {
	l1 := storage.New("l1", 256)
	f := New(0, 2, 2, SystolicArray)

	err := f.StartMatmul(0, MatmulRequest{ID: 1, L1Buffer: l1, M: 4, N: 2, K: 2})
	if _, ok := err.(*TileTooLargeError); !ok {
		t.Fatalf("expected *TileTooLargeError, got %v", err)
	}
}

// TestBasicMatmulColumnMajorB reproduces a non-square tile (M=2, K=3,
// N=2) with B laid out column-major in L1, the format STR_COL produces.
// A row-major read of the same bytes would silently transpose B and
// produce the wrong product, which square tiles can't catch.
func TestBasicMatmulColumnMajorB(t *testing.T) {
	l1 := storage.New("l1", 256)

	a := []float32{1, 2, 3, 4, 5, 6} // [[1,2,3],[4,5,6]]
	for i, v := range a {
		putF32(t, l1, uint64(i)*4, v)
	}

	// B = [[7,8],[9,10],[11,12]], column-major: col0=[7,9,11], col1=[8,10,12].
	bColumnMajor := []float32{7, 9, 11, 8, 10, 12}
	for i, v := range bColumnMajor {
		putF32(t, l1, 64+uint64(i)*4, v)
	}

	f := New(0, 2, 2, BasicMatmul)
	req := MatmulRequest{
		ID: 1, L1Buffer: l1, AAddr: 0, BAddr: 64, CAddr: 128,
		M: 2, N: 2, K: 3, BColumnMajor: true,
	}
	if err := f.StartMatmul(0, req); err != nil {
		t.Fatalf("StartMatmul failed: %v", err)
	}
	runUntilDone(t, f, 64)

	want := []float32{58, 64, 139, 154}
	for i, w := range want {
		got := getF32(t, l1, 128+uint64(i)*4)
		if math.Abs(float64(got-w)) > 1e-3 {
			t.Fatalf("C[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestBasicMatmulIdentity4x4(t *testing.T) {
	l1 := storage.New("l1", 512)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			v := float32(0)
			if i == j {
				v = 1
			}
			putF32(t, l1, uint64(i*4+j)*4, v)
		}
	}
	for i := 0; i < 16; i++ {
		putF32(t, l1, 64+uint64(i)*4, float32(i+1))
	}

	f := New(0, 4, 4, BasicMatmul)
	if err := f.StartMatmul(0, MatmulRequest{ID: 1, L1Buffer: l1, AAddr: 0, BAddr: 64, CAddr: 128, M: 4, N: 4, K: 4}); err != nil {
		t.Fatalf("StartMatmul failed: %v", err)
	}
	runUntilDone(t, f, 64)

	for i := 0; i < 16; i++ {
		got := getF32(t, l1, 128+uint64(i)*4)
		want := float32(i + 1)
		if math.Abs(float64(got-want)) > 1e-3 {
			t.Fatalf("C[%d] = %v, want %v (identity * B == B)", i, got, want)
		}
	}
}
