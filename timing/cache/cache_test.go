package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quadcore/mesisim/timing/cache"
)

var _ = Describe("Cache", func() {
	var c *cache.Cache

	BeforeEach(func() {
		c = cache.New(0)
	})

	Describe("Probe on a cold cache", func() {
		It("reports Invalid for every address", func() {
			Expect(c.Probe(0x10)).To(Equal(cache.StateI))
		})
	})

	Describe("Fill then read/write", func() {
		It("fills a line Exclusive, then promotes to Modified on write", func() {
			block := [cache.WordsPerLine]uint32{1, 2, 3, 4, 5, 6, 7, 8}
			evicted, _, _ := c.Fill(0x10, block, cache.StateE)
			Expect(evicted).To(BeFalse())
			Expect(c.Probe(0x10)).To(Equal(cache.StateE))
			Expect(c.ReadWord(0x11)).To(Equal(uint32(2)))

			c.WriteWord(0x11, 99)
			Expect(c.Probe(0x10)).To(Equal(cache.StateM))
			Expect(c.ReadWord(0x11)).To(Equal(uint32(99)))
		})

		It("fills Shared when the block was shared elsewhere", func() {
			var block [cache.WordsPerLine]uint32
			c.Fill(0x10, block, cache.StateS)
			Expect(c.Probe(0x10)).To(Equal(cache.StateS))
		})

		It("reports the evicted block when overwriting a Modified line", func() {
			var blockA [cache.WordsPerLine]uint32
			blockA[0] = 0xAAAA
			c.Fill(0x10, blockA, cache.StateE)
			c.WriteWord(0x10, 0xAAAA) // -> Modified

			var blockB [cache.WordsPerLine]uint32
			blockB[0] = 0xBBBB
			// Same index (bits [8:3]) for addresses 0x10 and 0x210 (64 lines * 8 = 0x200 stride).
			evicted, evictedAddr, evictedBlock := c.Fill(0x210, blockB, cache.StateE)
			Expect(evicted).To(BeTrue())
			Expect(evictedAddr).To(Equal(uint32(0x10)))
			Expect(evictedBlock[0]).To(Equal(uint32(0xAAAA)))
			Expect(c.Probe(0x210)).To(Equal(cache.StateE))
		})
	})

	Describe("Snoop", func() {
		It("demotes Modified to Shared on RD and provides the dirty data", func() {
			var block [cache.WordsPerLine]uint32
			block[3] = 0x42
			c.Fill(0x10, block, cache.StateE)
			c.WriteWord(0x13, 0x42) // -> Modified

			had, wasM, data := c.Snoop(0x10, cache.CmdRD)
			Expect(had).To(BeTrue())
			Expect(wasM).To(BeTrue())
			Expect(data[3]).To(Equal(uint32(0x42)))
			Expect(c.Probe(0x10)).To(Equal(cache.StateS))
		})

		It("invalidates Modified on RDX", func() {
			var block [cache.WordsPerLine]uint32
			c.Fill(0x10, block, cache.StateE)
			c.WriteWord(0x10, 1)

			c.Snoop(0x10, cache.CmdRDX)
			Expect(c.Probe(0x10)).To(Equal(cache.StateI))
		})

		It("invalidates Shared on RDX but not on RD", func() {
			var block [cache.WordsPerLine]uint32
			c.Fill(0x10, block, cache.StateS)

			had, wasM, _ := c.Snoop(0x10, cache.CmdRD)
			Expect(had).To(BeTrue())
			Expect(wasM).To(BeFalse())
			Expect(c.Probe(0x10)).To(Equal(cache.StateS))

			c.Snoop(0x10, cache.CmdRDX)
			Expect(c.Probe(0x10)).To(Equal(cache.StateI))
		})

		It("reports no line present for a cold address", func() {
			had, wasM, _ := c.Snoop(0x999, cache.CmdRD)
			Expect(had).To(BeFalse())
			Expect(wasM).To(BeFalse())
		})
	})

	Describe("Dumps", func() {
		It("DumpData lays out line*8+offset", func() {
			block := [cache.WordsPerLine]uint32{1, 2, 3, 4, 5, 6, 7, 8}
			c.Fill(0x10, block, cache.StateE) // index = (0x10/8) % 64 = 2
			dump := c.DumpData()
			for i := 0; i < cache.WordsPerLine; i++ {
				Expect(dump[2*cache.WordsPerLine+i]).To(Equal(uint32(i + 1)))
			}
		})

		It("DumpTagState encodes (state<<12)|tag and zero for Invalid lines", func() {
			var block [cache.WordsPerLine]uint32
			c.Fill(0x10, block, cache.StateM)
			dump := c.DumpTagState()
			// index 2 (0x10 / 8), tag = (0x10 >> 9) & 0xFFF = 0
			Expect(dump[2]).To(Equal(uint32(cache.StateM) << 12))
			Expect(dump[0]).To(Equal(uint32(0)))
		})
	})
})
