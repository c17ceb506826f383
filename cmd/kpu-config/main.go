// Command kpu-config builds a KPU instance from flags and prints its
// resulting unified address map, without running any program.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stillwater-sc/kpu-sim-sub001/kpu"
)

func main() {
	cfg := kpu.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "kpu-config",
		Short: "Print the address map a KPU configuration resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			sim := kpu.NewBuilder().WithConfig(cfg).Build()
			fmt.Print(sim.AddressMap().String())
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.MemoryBankCount, "memory-banks", cfg.MemoryBankCount, "external memory bank count")
	cmd.Flags().IntVar(&cfg.MemoryBankCapacityMB, "memory-bank-mb", cfg.MemoryBankCapacityMB, "capacity per memory bank, in MB")
	cmd.Flags().IntVar(&cfg.L3TileCount, "l3-tiles", cfg.L3TileCount, "L3 tile (and DMA engine) count")
	cmd.Flags().IntVar(&cfg.L3TileCapacityKB, "l3-tile-kb", cfg.L3TileCapacityKB, "capacity per L3 tile, in KB")
	cmd.Flags().IntVar(&cfg.L2BankCount, "l2-banks", cfg.L2BankCount, "L2 bank (and block mover/streamer) count")
	cmd.Flags().IntVar(&cfg.L2BankCapacityKB, "l2-bank-kb", cfg.L2BankCapacityKB, "capacity per L2 bank, in KB")
	cmd.Flags().IntVar(&cfg.L1BufferCount, "l1-buffers", cfg.L1BufferCount, "L1 buffer count")
	cmd.Flags().IntVar(&cfg.L1BufferCapacityKB, "l1-buffer-kb", cfg.L1BufferCapacityKB, "capacity per L1 buffer, in KB")
	cmd.Flags().IntVar(&cfg.ComputeTileCount, "compute-tiles", cfg.ComputeTileCount, "compute tile count")
	cmd.Flags().IntVar(&cfg.ProcessorArrayRows, "array-rows", cfg.ProcessorArrayRows, "systolic array rows per compute tile")
	cmd.Flags().IntVar(&cfg.ProcessorArrayCols, "array-cols", cfg.ProcessorArrayCols, "systolic array columns per compute tile")
	cmd.Flags().BoolVar(&cfg.UseSystolicArrayMode, "systolic", cfg.UseSystolicArrayMode, "use SYSTOLIC_ARRAY mode instead of BASIC_MATMUL")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
