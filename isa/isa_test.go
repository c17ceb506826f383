package isa

import (
	"strings"
	"testing"
)

func sampleProgram() *Program {
	p := NewProgram(Header{M: 2, N: 2, K: 2, Ti: 2, Tj: 2, Tk: 2, Element: ElementF32})

	p.Append(Instruction{Opcode: OpDMALoad, Matrix: MatrixA, Tile: TileCoord{0, 0}, HostAddr: 0x1000, L3TileID: 0, L3Offset: 0, TransferSize: 16})
	p.Append(Instruction{Opcode: OpDMALoad, Matrix: MatrixB, Tile: TileCoord{0, 0}, HostAddr: 0x2000, L3TileID: 0, L3Offset: 16, TransferSize: 16})
	p.Append(Instruction{Opcode: OpBarrier, Mask: AllEngines})
	p.Append(Instruction{Opcode: OpMatmul, ComputeTile: 0, M: 2, N: 2, K: 2, AAddr: 0, BAddr: 16, CAddr: 32})

	return p
}

func TestValidateAcceptsWellFormedProgram(t *testing.T) {
	p := sampleProgram()
	limits := HardwareLimits{DMAEngines: 1, BlockMovers: 1, Streamers: 1, ComputeTiles: 1}

	if err := Validate(p, limits); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsMatmulWithoutBarrier(t *testing.T) {
	p := NewProgram(Header{M: 2, N: 2, K: 2, Ti: 2, Tj: 2, Tk: 2})
	p.Append(Instruction{Opcode: OpMatmul, M: 2, N: 2, K: 2})

	err := Validate(p, HardwareLimits{ComputeTiles: 1})
	if err == nil {
		t.Fatal("expected InvalidProgramError")
	}
	if _, ok := err.(*InvalidProgramError); !ok {
		t.Fatalf("expected *InvalidProgramError, got %T", err)
	}
}

// TestValidateAcceptsBarrierNotImmediatelyPrecedingEveryMatmul confirms
// the BARRIER requirement is program-wide, not per-MATMUL: a BARRIER
// anywhere before program end satisfies it even when a MATMUL precedes
// that BARRIER with nothing in between.
func TestValidateAcceptsBarrierNotImmediatelyPrecedingEveryMatmul(t *testing.T) {
	p := NewProgram(Header{M: 2, N: 2, K: 2, Ti: 2, Tj: 2, Tk: 2})
	p.Append(Instruction{Opcode: OpMatmul, ComputeTile: 0, M: 2, N: 2, K: 2})
	p.Append(Instruction{Opcode: OpBarrier, Mask: AllEngines})
	p.Append(Instruction{Opcode: OpMatmul, ComputeTile: 0, M: 2, N: 2, K: 2})

	if err := Validate(p, HardwareLimits{ComputeTiles: 1}); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsOutOfRangeTile(t *testing.T) {
	p := NewProgram(Header{M: 2, N: 2, K: 2, Ti: 2, Tj: 2, Tk: 2})
	p.Append(Instruction{Opcode: OpDMALoad, Tile: TileCoord{5, 5}})

	if err := Validate(p, HardwareLimits{}); err == nil {
		t.Fatal("expected InvalidProgramError for out-of-bounds tile")
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	p := sampleProgram()

	data, err := EncodeBinary(p)
	if err != nil {
		t.Fatalf("EncodeBinary failed: %v", err)
	}

	decoded, err := DecodeBinary(data)
	if err != nil {
		t.Fatalf("DecodeBinary failed: %v", err)
	}

	if decoded.Header != p.Header {
		t.Fatalf("header mismatch: got %+v, want %+v", decoded.Header, p.Header)
	}
	if len(decoded.Instructions) != len(p.Instructions) {
		t.Fatalf("instruction count mismatch: got %d, want %d", len(decoded.Instructions), len(p.Instructions))
	}
	for i := range p.Instructions {
		if decoded.Instructions[i] != p.Instructions[i] {
			t.Fatalf("instruction %d mismatch: got %+v, want %+v", i, decoded.Instructions[i], p.Instructions[i])
		}
	}
}

func TestBinaryRejectsCorruptChecksum(t *testing.T) {
	p := sampleProgram()
	data, _ := EncodeBinary(p)
	data[len(data)-1] ^= 0xFF

	if _, err := DecodeBinary(data); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

func TestKernelRoundTrip(t *testing.T) {
	k := &Kernel{Name: "matmul2x2", Program: sampleProgram()}

	data, err := EncodeKernel(k)
	if err != nil {
		t.Fatalf("EncodeKernel failed: %v", err)
	}

	decoded, err := DecodeKernel(data)
	if err != nil {
		t.Fatalf("DecodeKernel failed: %v", err)
	}

	if decoded.Name != k.Name {
		t.Fatalf("name mismatch: got %q, want %q", decoded.Name, k.Name)
	}
	if len(decoded.Program.Instructions) != len(k.Program.Instructions) {
		t.Fatalf("instruction count mismatch after kernel round trip")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	p := sampleProgram()

	data, err := MarshalJSON(p)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	decoded, err := UnmarshalJSON(data)
	if err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}

	if decoded.Header != p.Header {
		t.Fatalf("header mismatch after JSON round trip: got %+v, want %+v", decoded.Header, p.Header)
	}
	if len(decoded.Instructions) != len(p.Instructions) {
		t.Fatalf("instruction count mismatch after JSON round trip")
	}
}

func TestDisassembleIncludesOpcodes(t *testing.T) {
	out := Disassemble(sampleProgram())
	for _, want := range []string{"DMA_LOAD", "BARRIER", "MATMUL"} {
		if !strings.Contains(out, want) {
			t.Fatalf("disassembly missing opcode %q:\n%s", want, out)
		}
	}
}
