// Command kpu-runner loads a Data Movement ISA program onto a default KPU
// instance, runs it to completion, and prints an execution report.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stillwater-sc/kpu-sim-sub001/isa"
	"github.com/stillwater-sc/kpu-sim-sub001/kpu"
)

func main() {
	var maxCycles uint64
	var showStatus bool

	cmd := &cobra.Command{
		Use:   "kpu-runner <file.kpubin|file.kpukernel|file.json>",
		Short: "Run a Data Movement ISA program on a default KPU instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], maxCycles, showStatus)
		},
	}

	cmd.Flags().Uint64Var(&maxCycles, "max-cycles", 1_000_000, "cycle budget before the run is declared a timeout")
	cmd.Flags().BoolVar(&showStatus, "status", false, "print per-engine status after the run")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(path string, maxCycles uint64, showStatus bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	program, err := decodeProgram(data)
	if err != nil {
		return err
	}

	sim := kpu.NewBuilder().Build()
	if err := sim.LoadProgram(program); err != nil {
		return fmt.Errorf("loading program: %w", err)
	}

	runErr := sim.RunUntilIdle(maxCycles)

	sim.WriteReport(os.Stdout)
	if showStatus {
		sim.PrintComponentStatus(os.Stdout)
	}

	return runErr
}

func decodeProgram(data []byte) (*isa.Program, error) {
	if p, err := isa.UnmarshalJSON(data); err == nil {
		return p, nil
	}
	if p, err := isa.DecodeBinary(data); err == nil {
		return p, nil
	}
	if k, err := isa.DecodeKernel(data); err == nil {
		return k.Program, nil
	}

	return nil, fmt.Errorf("unrecognized program file format")
}
