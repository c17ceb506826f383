package isa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// binMagic identifies a .kpubin program blob: "KPUB" read as a big-endian
// uint32. EncodeBinary writes it little-endian like every other field, so
// the blob's first four bytes are "BUPK".
const binMagic uint32 = 0x4B505542

// binVersion is the .kpubin wire format version, written immediately
// after the magic number.
const binVersion uint32 = 1

// kernelMagic identifies a .kpukernel file, matching the original
// implementation's KERNEL_MAGIC constant. Like binMagic it spells its name
// ("KPUK") only when read big-endian; on disk it is little-endian.
const kernelMagic uint32 = 0x4B50554B

const kernelVersion uint32 = 1

// EncodeBinary serializes a program to the .kpubin wire format: magic,
// version, header, instruction count, instructions, then a trailing
// CRC32 over everything written before it.
func EncodeBinary(p *Program) ([]byte, error) {
	buf := &bytes.Buffer{}

	if err := binary.Write(buf, binary.LittleEndian, binMagic); err != nil {
		return nil, err
	}

	if err := binary.Write(buf, binary.LittleEndian, binVersion); err != nil {
		return nil, err
	}

	if err := writeHeader(buf, p.Header); err != nil {
		return nil, err
	}

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(p.Instructions))); err != nil {
		return nil, err
	}

	for _, instr := range p.Instructions {
		if err := writeInstruction(buf, instr); err != nil {
			return nil, err
		}
	}

	checksum := crc32.ChecksumIEEE(buf.Bytes())
	if err := binary.Write(buf, binary.LittleEndian, checksum); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeBinary parses a .kpubin blob produced by EncodeBinary, validating
// its magic number and trailing CRC32.
func DecodeBinary(data []byte) (*Program, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("isa: truncated .kpubin blob")
	}

	body, trailer := data[:len(data)-4], data[len(data)-4:]
	want := binary.LittleEndian.Uint32(trailer)
	got := crc32.ChecksumIEEE(body)
	if got != want {
		return nil, fmt.Errorf("isa: .kpubin checksum mismatch: got 0x%x, want 0x%x", got, want)
	}

	r := bytes.NewReader(body)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != binMagic {
		return nil, fmt.Errorf("isa: bad .kpubin magic 0x%x", magic)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != binVersion {
		return nil, fmt.Errorf("isa: unsupported .kpubin version %d", version)
	}

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	p := NewProgram(header)
	for i := uint32(0); i < count; i++ {
		instr, err := readInstruction(r)
		if err != nil {
			return nil, err
		}
		p.Instructions = append(p.Instructions, instr)
	}

	return p, nil
}

func writeHeader(w *bytes.Buffer, h Header) error {
	fields := []int32{int32(h.M), int32(h.N), int32(h.K), int32(h.Ti), int32(h.Tj), int32(h.Tk)}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(h.Element)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, boolToByte(h.HasBias)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint8(h.Activation))
}

func readHeader(r *bytes.Reader) (Header, error) {
	var h Header
	ints := make([]int32, 6)
	for i := range ints {
		if err := binary.Read(r, binary.LittleEndian, &ints[i]); err != nil {
			return h, err
		}
	}
	h.M, h.N, h.K, h.Ti, h.Tj, h.Tk = int(ints[0]), int(ints[1]), int(ints[2]), int(ints[3]), int(ints[4]), int(ints[5])

	var element, bias, activation uint8
	if err := binary.Read(r, binary.LittleEndian, &element); err != nil {
		return h, err
	}
	if err := binary.Read(r, binary.LittleEndian, &bias); err != nil {
		return h, err
	}
	if err := binary.Read(r, binary.LittleEndian, &activation); err != nil {
		return h, err
	}
	h.Element = ElementKind(element)
	h.HasBias = bias != 0
	h.Activation = ActivationKind(activation)

	return h, nil
}

// writeInstruction serializes every field of Instruction in a fixed
// canonical order regardless of opcode. Fields unused by a given opcode
// are written as zero; this trades a few bytes of padding per
// instruction for a format simple enough to encode/decode without a
// per-opcode union.
func writeInstruction(w *bytes.Buffer, i Instruction) error {
	u32 := []uint32{i.ID, i.WaitID}
	for _, v := range u32 {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	u8 := []uint8{uint8(i.Opcode), uint8(i.Matrix), uint8(i.Transform), uint8(i.Mask), boolToByte(i.L2ToL3), boolToByte(i.L1ToL2), boolToByte(i.BColumnMajor)}
	for _, v := range u8 {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	ints := []int32{
		int32(i.Tile.I), int32(i.Tile.J), int32(i.ExternalBank),
		int32(i.L3TileID), int32(i.SrcL3Tile), int32(i.DstL2Bank),
		int32(i.Rows), int32(i.Cols),
		int32(i.SrcL2Bank), int32(i.DstL1Buffer),
		int32(i.ComputeTile), int32(i.M), int32(i.N), int32(i.K),
		int32(i.Geometry.Count), int32(i.Geometry.FabricSize),
	}
	for _, v := range ints {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	u64 := []uint64{
		i.HostAddr, i.ExternalAddr, i.L3Offset, i.TransferSize,
		i.L3Addr, i.L2Addr, i.ElementSize,
		i.AAddr, i.BAddr, i.CAddr,
		i.Geometry.ElementSize, i.Geometry.L2Addr, i.Geometry.L1Addr,
	}
	for _, v := range u64 {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	return nil
}

func readInstruction(r *bytes.Reader) (Instruction, error) {
	var i Instruction

	u32 := make([]uint32, 2)
	for idx := range u32 {
		if err := binary.Read(r, binary.LittleEndian, &u32[idx]); err != nil {
			return i, err
		}
	}
	i.ID, i.WaitID = u32[0], u32[1]

	u8 := make([]uint8, 7)
	for idx := range u8 {
		if err := binary.Read(r, binary.LittleEndian, &u8[idx]); err != nil {
			return i, err
		}
	}
	i.Opcode = Opcode(u8[0])
	i.Matrix = MatrixID(u8[1])
	i.Transform = Transform(u8[2])
	i.Mask = EngineMask(u8[3])
	i.L2ToL3 = u8[4] != 0
	i.L1ToL2 = u8[5] != 0
	i.BColumnMajor = u8[6] != 0

	ints := make([]int32, 16)
	for idx := range ints {
		if err := binary.Read(r, binary.LittleEndian, &ints[idx]); err != nil {
			return i, err
		}
	}
	i.Tile.I, i.Tile.J, i.ExternalBank = int(ints[0]), int(ints[1]), int(ints[2])
	i.L3TileID, i.SrcL3Tile, i.DstL2Bank = int(ints[3]), int(ints[4]), int(ints[5])
	i.Rows, i.Cols = int(ints[6]), int(ints[7])
	i.SrcL2Bank, i.DstL1Buffer = int(ints[8]), int(ints[9])
	i.ComputeTile, i.M, i.N, i.K = int(ints[10]), int(ints[11]), int(ints[12]), int(ints[13])
	i.Geometry.Count, i.Geometry.FabricSize = int(ints[14]), int(ints[15])

	u64 := make([]uint64, 13)
	for idx := range u64 {
		if err := binary.Read(r, binary.LittleEndian, &u64[idx]); err != nil {
			return i, err
		}
	}
	i.HostAddr, i.ExternalAddr, i.L3Offset, i.TransferSize = u64[0], u64[1], u64[2], u64[3]
	i.L3Addr, i.L2Addr, i.ElementSize = u64[4], u64[5], u64[6]
	i.AAddr, i.BAddr, i.CAddr = u64[7], u64[8], u64[9]
	i.Geometry.ElementSize, i.Geometry.L2Addr, i.Geometry.L1Addr = u64[10], u64[11], u64[12]

	return i, nil
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
