// Command kpubin-disasm disassembles a .kpubin or .kpukernel file and
// prints its instruction listing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stillwater-sc/kpu-sim-sub001/isa"
)

func main() {
	cmd := &cobra.Command{
		Use:   "kpubin-disasm <file.kpubin|file.kpukernel>",
		Short: "Disassemble a Data Movement ISA binary",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	program, err := decode(data)
	if err != nil {
		return err
	}

	fmt.Println(isa.Disassemble(program))

	return nil
}

func decode(data []byte) (*isa.Program, error) {
	if p, err := isa.DecodeBinary(data); err == nil {
		return p, nil
	}

	kernel, err := isa.DecodeKernel(data)
	if err != nil {
		return nil, fmt.Errorf("not a recognized .kpubin or .kpukernel file: %w", err)
	}

	return kernel.Program, nil
}
