package kpu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stillwater-sc/kpu-sim-sub001/kpu"
)

var _ = Describe("Builder", func() {
	Context("with the default config", func() {
		It("builds a simulator with one of everything", func() {
			sim := kpu.NewBuilder().Build()

			Expect(sim.Config().L3TileCount).To(Equal(1))
			Expect(sim.Config().L2BankCount).To(Equal(1))
			Expect(sim.Config().UseSystolicArrayMode).To(BeTrue())
		})

		It("places every region at a disjoint, decodable address", func() {
			sim := kpu.NewBuilder().Build()
			dec := sim.AddressMap()

			regions := dec.Regions()
			Expect(regions).NotTo(BeEmpty())

			for _, r := range regions {
				resolved, err := dec.Decode(r.Base)
				Expect(err).NotTo(HaveOccurred())
				Expect(resolved.Kind).To(Equal(r.Kind))
				Expect(resolved.ID).To(Equal(r.ID))
			}
		})
	})

	Context("WithMemoryBanks", func() {
		It("overrides the external bank count and capacity", func() {
			sim := kpu.NewBuilder().WithMemoryBanks(2, 32).Build()
			Expect(sim.Config().MemoryBankCount).To(Equal(2))
			Expect(sim.Config().MemoryBankCapacityMB).To(Equal(32))
		})
	})

	Context("WithComputeTiles", func() {
		It("overrides the compute tile count and systolic geometry", func() {
			sim := kpu.NewBuilder().WithComputeTiles(2, 8, 8).Build()
			Expect(sim.Config().ComputeTileCount).To(Equal(2))
			Expect(sim.Config().ProcessorArrayRows).To(Equal(8))
			Expect(sim.Config().ProcessorArrayCols).To(Equal(8))
		})
	})

	Context("WithMode", func() {
		It("selects BASIC_MATMUL when systolic mode is off", func() {
			cfg := kpu.DefaultConfig()
			cfg.UseSystolicArrayMode = false
			sim := kpu.NewBuilder().WithConfig(cfg).Build()

			Expect(sim.Config().UseSystolicArrayMode).To(BeFalse())
		})
	})

	Context("address map rendering", func() {
		It("labels every region with its storage kind", func() {
			sim := kpu.NewBuilder().Build()
			text := sim.AddressMap().String()

			Expect(text).To(ContainSubstring("l3"))
			Expect(text).To(ContainSubstring("l2"))
		})
	})
})

var _ = Describe("DefaultConfig", func() {
	It("defaults to the systolic array mode", func() {
		Expect(kpu.DefaultConfig().UseSystolicArrayMode).To(BeTrue())
	})
})
