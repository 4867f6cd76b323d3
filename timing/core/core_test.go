package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quadcore/mesisim/insts"
	"github.com/quadcore/mesisim/timing/bus"
	"github.com/quadcore/mesisim/timing/core"
	"github.com/quadcore/mesisim/timing/pipeline"
)

func encode(op insts.Op, rd, rs, rt uint8, imm int32) uint32 {
	return uint32(op)<<24 | uint32(rd&0xF)<<20 | uint32(rs&0xF)<<16 | uint32(rt&0xF)<<12 | uint32(imm)&0xFFF
}

var _ = Describe("Core", func() {
	It("wires pipeline, cache, and register file together and reports HALT-only stats", func() {
		imem := pipeline.NewInstrMem()
		imem.LoadWords([]uint32{encode(insts.OpHALT, 0, 0, 0, 0)})

		b := bus.New()
		c := core.NewCore(0, imem, b)

		for i := 0; i < 10 && !c.Done(); i++ {
			c.Pipeline.CommitWriteback()
			c.Pipeline.ComputeNext()
			c.Pipeline.Latch()
		}

		Expect(c.Done()).To(BeTrue())
		Expect(c.Stats().Instructions).To(Equal(uint64(1)))
		Expect(c.ID()).To(Equal(0))
	})
})
