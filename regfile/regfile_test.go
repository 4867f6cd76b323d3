package regfile_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quadcore/mesisim/regfile"
)

var _ = Describe("File", func() {
	var f *regfile.File

	BeforeEach(func() {
		f = regfile.New()
	})

	It("R0 always reads as zero, even after a write attempt", func() {
		f.Write(0, 0xDEADBEEF)
		Expect(f.Read(0)).To(Equal(uint32(0)))
	})

	It("ignores writes to R1 but SetImmediate still updates it", func() {
		f.Write(1, 0xDEADBEEF)
		Expect(f.Read(1)).To(Equal(uint32(0)))

		f.SetImmediate(42)
		Expect(f.Read(1)).To(Equal(uint32(42)))
	})

	It("writes and reads R2..R15 normally", func() {
		f.Write(2, 100)
		f.Write(15, 200)
		Expect(f.Read(2)).To(Equal(uint32(100)))
		Expect(f.Read(15)).To(Equal(uint32(200)))
	})

	It("dumps R2..R15 in order", func() {
		for i := uint8(2); i <= 15; i++ {
			f.Write(i, uint32(i))
		}
		dump := f.Dump()
		Expect(len(dump)).To(Equal(14))
		for i := 0; i < 14; i++ {
			Expect(dump[i]).To(Equal(uint32(i + 2)))
		}
	})
})
