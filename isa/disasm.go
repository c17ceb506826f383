package isa

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Disassemble renders a program as a human-readable instruction table,
// one row per instruction, mirroring the original implementation's
// disassemble_program helper.
func Disassemble(p *Program) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "header: M=%d N=%d K=%d tile=(%d,%d,%d) element=%s activation=%s\n",
		p.Header.M, p.Header.N, p.Header.K, p.Header.Ti, p.Header.Tj, p.Header.Tk,
		p.Header.Element, p.Header.Activation)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"ID", "Opcode", "Operands"})

	for _, instr := range p.Instructions {
		t.AppendRow(table.Row{instr.ID, instr.Opcode.String(), operandString(instr)})
	}

	sb.WriteString(t.Render())
	sb.WriteString("\n")

	return sb.String()
}

func operandString(i Instruction) string {
	switch i.Opcode {
	case OpDMALoad:
		return fmt.Sprintf("%s tile(%d,%d) host=0x%x -> l3[%d]+0x%x (%d bytes)",
			i.Matrix, i.Tile.I, i.Tile.J, i.HostAddr, i.L3TileID, i.L3Offset, i.TransferSize)
	case OpDMAStore:
		return fmt.Sprintf("%s tile(%d,%d) l3[%d]+0x%x -> host=0x%x (%d bytes)",
			i.Matrix, i.Tile.I, i.Tile.J, i.L3TileID, i.L3Offset, i.HostAddr, i.TransferSize)
	case OpBMMove:
		dir := "l3->l2"
		if i.L2ToL3 {
			dir = "l2->l3"
		}
		return fmt.Sprintf("%s l3[%d]+0x%x <-> l2[%d]+0x%x rows=%d cols=%d elem=%d xform=%s",
			dir, i.SrcL3Tile, i.L3Addr, i.DstL2Bank, i.L2Addr, i.Rows, i.Cols, i.ElementSize, i.Transform)
	case OpSTRRow, OpSTRCol:
		return fmt.Sprintf("l2[%d] -> l1[%d] count=%d elem=%d fabric=%d",
			i.SrcL2Bank, i.DstL1Buffer, i.Geometry.Count, i.Geometry.ElementSize, i.Geometry.FabricSize)
	case OpSTROut:
		dir := "l1->l2"
		if !i.L1ToL2 {
			dir = "l2->l1"
		}
		return fmt.Sprintf("%s l2[%d] l1[%d] count=%d", dir, i.SrcL2Bank, i.DstL1Buffer, i.Geometry.Count)
	case OpMatmul:
		bLayout := "row-major"
		if i.BColumnMajor {
			bLayout = "col-major"
		}
		return fmt.Sprintf("tile[%d] C=A*B M=%d N=%d K=%d A=0x%x B=0x%x(%s) C=0x%x",
			i.ComputeTile, i.M, i.N, i.K, i.AAddr, i.BAddr, bLayout, i.CAddr)
	case OpBarrier:
		return fmt.Sprintf("mask=%08b", i.Mask)
	case OpWaitID:
		return fmt.Sprintf("id=%d", i.WaitID)
	default:
		return ""
	}
}
