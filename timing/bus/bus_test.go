package bus_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quadcore/mesisim/memory"
	"github.com/quadcore/mesisim/timing/bus"
	"github.com/quadcore/mesisim/timing/cache"
)

func newCaches() [bus.NumCores]*cache.Cache {
	var caches [bus.NumCores]*cache.Cache
	for i := range caches {
		caches[i] = cache.New(i)
	}
	return caches
}

// drive runs Advance until a transaction completes, returning the number of
// cycles it took and the completed origin.
func drive(b *bus.Bus, caches [bus.NumCores]*cache.Cache, mem *memory.Memory) (cycles int, origin int) {
	for {
		cycles++
		_, completedOrigin, completed := b.Advance(caches, mem)
		if completed {
			return cycles, completedOrigin
		}
		if cycles > 1000 {
			panic("bus never completed")
		}
	}
}

var _ = Describe("Bus", func() {
	var (
		b      *bus.Bus
		caches [bus.NumCores]*cache.Cache
		mem    *memory.Memory
	)

	BeforeEach(func() {
		b = bus.New()
		caches = newCaches()
		mem = memory.New()
	})

	Describe("arbitration", func() {
		It("is round-robin, starting from slot 0 on a cold bus", func() {
			b.Request(2, cache.CmdRD, 0x10)
			b.Request(0, cache.CmdRD, 0x20)

			_, origin1 := drive(b, caches, mem)
			Expect(origin1).To(Equal(0))

			_, origin2 := drive(b, caches, mem)
			Expect(origin2).To(Equal(2))
		})

		It("does not re-queue a core that already has an active request", func() {
			b.Request(1, cache.CmdRD, 0x10)
			b.Request(1, cache.CmdRD, 0x30) // ignored, slot already active

			line, _, _ := b.Advance(caches, mem)
			Expect(line.Addr).To(Equal(uint32(0x10)))
		})
	})

	Describe("transaction sourcing", func() {
		It("sources from memory when no peer has the line, at fixed latency", func() {
			mem.WriteBlock(0, [cache.WordsPerLine]uint32{1, 2, 3, 4, 5, 6, 7, 8})
			b.Request(0, cache.CmdRD, 0x0)

			cycles, origin := drive(b, caches, mem)
			Expect(origin).To(Equal(0))
			Expect(cycles).To(Equal(bus.MemLatency + cache.WordsPerLine))
			Expect(caches[0].Probe(0x0)).To(Equal(cache.StateE))
		})

		It("sources from a peer's Modified line with zero extra wait latency", func() {
			var block [cache.WordsPerLine]uint32
			caches[1].Fill(0x10, block, cache.StateE)
			caches[1].WriteWord(0x10, 0xCAFE) // -> Modified in core 1

			b.Request(0, cache.CmdRD, 0x10)

			cycles, origin := drive(b, caches, mem)
			Expect(origin).To(Equal(0))
			Expect(cycles).To(Equal(1 + cache.WordsPerLine))
			Expect(caches[0].ReadWord(0x10)).To(Equal(uint32(0xCAFE)))
			// the provider's own copy is demoted to Shared by the snoop
			Expect(caches[1].Probe(0x10)).To(Equal(cache.StateS))
			// RD with a peer holding the line fills Shared, not Exclusive
			Expect(caches[0].Probe(0x10)).To(Equal(cache.StateS))
		})

		It("fills Modified on RDX even with no peer sharing", func() {
			b.Request(0, cache.CmdRDX, 0x10)
			_, origin := drive(b, caches, mem)
			Expect(origin).To(Equal(0))
			Expect(caches[0].Probe(0x10)).To(Equal(cache.StateM))
		})

		It("invalidates a peer's Shared line on RDX", func() {
			var block [cache.WordsPerLine]uint32
			caches[1].Fill(0x10, block, cache.StateS)

			b.Request(0, cache.CmdRDX, 0x10)
			drive(b, caches, mem)

			Expect(caches[1].Probe(0x10)).To(Equal(cache.StateI))
		})

		It("writes an evicted dirty victim back to memory on fill", func() {
			var blockA [cache.WordsPerLine]uint32
			blockA[0] = 0xAAAA
			caches[0].Fill(0x10, blockA, cache.StateE)
			caches[0].WriteWord(0x10, 0xAAAA)

			// 0x210 maps to the same line as 0x10 (64 lines * 8 words stride).
			b.Request(0, cache.CmdRD, 0x210)
			drive(b, caches, mem)

			Expect(mem.Read(0x10)).To(Equal(uint32(0xAAAA)))
		})
	})

	Describe("flush streaming", func() {
		It("drives 8 FLUSH words with ascending addresses and the block's data", func() {
			mem.WriteBlock(0x10, [cache.WordsPerLine]uint32{1, 2, 3, 4, 5, 6, 7, 8})
			b.Request(0, cache.CmdRD, 0x10)

			for i := 0; i < bus.MemLatency; i++ {
				b.Advance(caches, mem)
			}

			for i := 0; i < cache.WordsPerLine; i++ {
				line, _, _ := b.Advance(caches, mem)
				Expect(line.Cmd).To(Equal(bus.TraceFlush))
				Expect(line.Addr).To(Equal(uint32(0x10 + i)))
				Expect(line.Data).To(Equal(uint32(i + 1)))
			}
		})
	})
})
