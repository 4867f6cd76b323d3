package ioformat_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quadcore/mesisim/ioformat"
	"github.com/quadcore/mesisim/timing/pipeline"
)

var _ = Describe("ReadHexWords/WriteHexWords", func() {
	It("round-trips words through the 8-hex-digit-per-line format", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "imem0")

		Expect(ioformat.WriteHexWords(path, []uint32{0xDEADBEEF, 0, 0x12345678})).To(Succeed())

		words, err := ioformat.ReadHexWords(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(words).To(Equal([]uint32{0xDEADBEEF, 0, 0x12345678}))
	})

	It("errors on a missing file", func() {
		_, err := ioformat.ReadHexWords(filepath.Join(GinkgoT().TempDir(), "nope"))
		Expect(err).To(HaveOccurred())
	})

	It("skips blank lines", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "memin")
		Expect(os.WriteFile(path, []byte("00000001\n\n00000002\n"), 0o644)).To(Succeed())

		words, err := ioformat.ReadHexWords(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(words).To(Equal([]uint32{1, 2}))
	})
})

var _ = Describe("WriteStats", func() {
	It("writes the eight name-value lines in spec order", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "stats0")

		s := pipeline.Stats{
			Cycles: 10, Instructions: 2, ReadHit: 0, WriteHit: 0,
			ReadMiss: 1, WriteMiss: 0, DecodeStall: 3, MemStall: 4,
		}
		Expect(ioformat.WriteStats(path, s)).To(Succeed())

		content, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal(
			"cycles 10\ninstructions 2\nread_hit 0\nwrite_hit 0\n" +
				"read_miss 1\nwrite_miss 0\ndecode_stall 3\nmem_stall 4\n"))
	})
})
