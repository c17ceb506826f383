package isa

import "encoding/json"

// jsonInstruction mirrors Instruction with JSON-friendly field names; kept
// separate from Instruction so the in-memory type stays free of tags
// aimed only at the on-disk mirror format.
type jsonInstruction struct {
	ID     uint32 `json:"id"`
	Opcode string `json:"opcode"`

	Matrix       string `json:"matrix,omitempty"`
	Tile         *TileCoord `json:"tile,omitempty"`
	ExternalBank int    `json:"external_bank,omitempty"`
	HostAddr     uint64 `json:"host_addr,omitempty"`
	ExternalAddr uint64 `json:"external_addr,omitempty"`
	L3TileID     int    `json:"l3_tile_id,omitempty"`
	L3Offset     uint64 `json:"l3_offset,omitempty"`
	TransferSize uint64 `json:"transfer_size,omitempty"`

	SrcL3Tile   int    `json:"src_l3_tile,omitempty"`
	L3Addr      uint64 `json:"l3_addr,omitempty"`
	DstL2Bank   int    `json:"dst_l2_bank,omitempty"`
	L2Addr      uint64 `json:"l2_addr,omitempty"`
	Rows        int    `json:"rows,omitempty"`
	Cols        int    `json:"cols,omitempty"`
	ElementSize uint64 `json:"element_size,omitempty"`
	Transform   string `json:"transform,omitempty"`
	L2ToL3      bool   `json:"l2_to_l3,omitempty"`

	SrcL2Bank   int             `json:"src_l2_bank,omitempty"`
	DstL1Buffer int             `json:"dst_l1_buffer,omitempty"`
	L1ToL2      bool            `json:"l1_to_l2,omitempty"`
	Geometry    *StreamGeometry `json:"geometry,omitempty"`

	ComputeTile  int    `json:"compute_tile,omitempty"`
	AAddr        uint64 `json:"a_addr,omitempty"`
	BAddr        uint64 `json:"b_addr,omitempty"`
	CAddr        uint64 `json:"c_addr,omitempty"`
	M            int    `json:"m,omitempty"`
	N            int    `json:"n,omitempty"`
	K            int    `json:"k,omitempty"`
	BColumnMajor bool   `json:"b_column_major,omitempty"`

	Mask   uint8  `json:"mask,omitempty"`
	WaitID uint32 `json:"wait_id,omitempty"`
}

type jsonHeader struct {
	M          int    `json:"m"`
	N          int    `json:"n"`
	K          int    `json:"k"`
	Ti         int    `json:"ti"`
	Tj         int    `json:"tj"`
	Tk         int    `json:"tk"`
	Element    string `json:"element"`
	HasBias    bool   `json:"has_bias"`
	Activation string `json:"activation"`
}

type jsonProgram struct {
	Header       jsonHeader        `json:"header"`
	Instructions []jsonInstruction `json:"instructions"`
}

// MarshalJSON renders a program as the human-readable JSON mirror format,
// used for diffing schedules in review and for test fixtures.
func MarshalJSON(p *Program) ([]byte, error) {
	jp := jsonProgram{
		Header: jsonHeader{
			M: p.Header.M, N: p.Header.N, K: p.Header.K,
			Ti: p.Header.Ti, Tj: p.Header.Tj, Tk: p.Header.Tk,
			Element:    p.Header.Element.String(),
			HasBias:    p.Header.HasBias,
			Activation: p.Header.Activation.String(),
		},
	}

	for _, i := range p.Instructions {
		ji := jsonInstruction{
			ID:     i.ID,
			Opcode: i.Opcode.String(),
			Mask:   uint8(i.Mask),
			WaitID: i.WaitID,
		}

		switch i.Opcode {
		case OpDMALoad, OpDMAStore:
			ji.Matrix = i.Matrix.String()
			tile := i.Tile
			ji.Tile = &tile
			ji.ExternalBank = i.ExternalBank
			ji.HostAddr, ji.ExternalAddr = i.HostAddr, i.ExternalAddr
			ji.L3TileID, ji.L3Offset, ji.TransferSize = i.L3TileID, i.L3Offset, i.TransferSize
		case OpBMMove:
			ji.SrcL3Tile, ji.L3Addr = i.SrcL3Tile, i.L3Addr
			ji.DstL2Bank, ji.L2Addr = i.DstL2Bank, i.L2Addr
			ji.Rows, ji.Cols, ji.ElementSize = i.Rows, i.Cols, i.ElementSize
			ji.Transform = i.Transform.String()
			ji.L2ToL3 = i.L2ToL3
		case OpSTRRow, OpSTRCol, OpSTROut:
			ji.SrcL2Bank, ji.DstL1Buffer, ji.L1ToL2 = i.SrcL2Bank, i.DstL1Buffer, i.L1ToL2
			geom := i.Geometry
			ji.Geometry = &geom
		case OpMatmul:
			ji.ComputeTile = i.ComputeTile
			ji.AAddr, ji.BAddr, ji.CAddr = i.AAddr, i.BAddr, i.CAddr
			ji.M, ji.N, ji.K = i.M, i.N, i.K
			ji.BColumnMajor = i.BColumnMajor
		}

		jp.Instructions = append(jp.Instructions, ji)
	}

	return json.MarshalIndent(jp, "", "  ")
}

// UnmarshalJSON parses the JSON mirror format produced by MarshalJSON.
func UnmarshalJSON(data []byte) (*Program, error) {
	var jp jsonProgram
	if err := json.Unmarshal(data, &jp); err != nil {
		return nil, err
	}

	p := NewProgram(Header{
		M: jp.Header.M, N: jp.Header.N, K: jp.Header.K,
		Ti: jp.Header.Ti, Tj: jp.Header.Tj, Tk: jp.Header.Tk,
		Element:    parseElement(jp.Header.Element),
		HasBias:    jp.Header.HasBias,
		Activation: parseActivation(jp.Header.Activation),
	})

	for _, ji := range jp.Instructions {
		instr := Instruction{
			ID:     ji.ID,
			Opcode: parseOpcode(ji.Opcode),
			Mask:   EngineMask(ji.Mask),
			WaitID: ji.WaitID,
		}

		instr.Matrix = parseMatrix(ji.Matrix)
		if ji.Tile != nil {
			instr.Tile = *ji.Tile
		}
		instr.ExternalBank = ji.ExternalBank
		instr.HostAddr, instr.ExternalAddr = ji.HostAddr, ji.ExternalAddr
		instr.L3TileID, instr.L3Offset, instr.TransferSize = ji.L3TileID, ji.L3Offset, ji.TransferSize
		instr.SrcL3Tile, instr.L3Addr = ji.SrcL3Tile, ji.L3Addr
		instr.DstL2Bank, instr.L2Addr = ji.DstL2Bank, ji.L2Addr
		instr.Rows, instr.Cols, instr.ElementSize = ji.Rows, ji.Cols, ji.ElementSize
		instr.Transform = parseTransform(ji.Transform)
		instr.L2ToL3 = ji.L2ToL3
		instr.SrcL2Bank, instr.DstL1Buffer, instr.L1ToL2 = ji.SrcL2Bank, ji.DstL1Buffer, ji.L1ToL2
		if ji.Geometry != nil {
			instr.Geometry = *ji.Geometry
		}
		instr.ComputeTile = ji.ComputeTile
		instr.AAddr, instr.BAddr, instr.CAddr = ji.AAddr, ji.BAddr, ji.CAddr
		instr.M, instr.N, instr.K = ji.M, ji.N, ji.K
		instr.BColumnMajor = ji.BColumnMajor

		p.Instructions = append(p.Instructions, instr)
	}

	return p, nil
}

func parseOpcode(s string) Opcode {
	for op, name := range opcodeNames {
		if name == s {
			return op
		}
	}
	return OpNop
}

func parseMatrix(s string) MatrixID {
	switch s {
	case "A":
		return MatrixA
	case "B":
		return MatrixB
	case "C":
		return MatrixC
	default:
		return MatrixA
	}
}

func parseTransform(s string) Transform {
	switch s {
	case "TRANSPOSE":
		return TransformTranspose
	case "PAD":
		return TransformPad
	default:
		return TransformIdentity
	}
}

func parseElement(s string) ElementKind {
	if s == "f64" {
		return ElementF64
	}
	return ElementF32
}

func parseActivation(s string) ActivationKind {
	if s == "relu" {
		return ActivationReLU
	}
	return ActivationNone
}
