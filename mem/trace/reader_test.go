package trace

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem/cache"
)

var _ = Describe("ReadGeometry", func() {
	It("should read the three fields in order", func() {
		g, err := ReadGeometry(strings.NewReader(
			"Number of sets: 4\n\nSet size: 1\nLine size: 8\nignored: x\n"))

		Expect(err).NotTo(HaveOccurred())
		Expect(g.NumSets()).To(Equal(4))
		Expect(g.Associativity()).To(Equal(1))
		Expect(g.LineSize()).To(Equal(8))
	})

	It("should ignore the label text", func() {
		g, err := ReadGeometry(strings.NewReader("a: 16\nb: 2\nc: 32\n"))

		Expect(err).NotTo(HaveOccurred())
		Expect(g.TotalSize()).To(Equal(uint64(16 * 2 * 32)))
	})

	DescribeTable("should name the bad field",
		func(input, field string) {
			_, err := ReadGeometry(strings.NewReader(input))

			var cfgErr *cache.ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Field).To(Equal(field))
		},
		Entry("missing line size", "sets: 4\nways: 1\n", "line size"),
		Entry("empty input", "", "set count"),
		Entry("not an integer", "sets: four\nways: 1\nline: 8\n", "set count"),
		Entry("no colon", "sets: 4\nways 1\nline: 8\n", "associativity"),
		Entry("no value", "sets: 4\nways: 1\nline:\n", "line size"),
		Entry("line size not a power of two", "sets: 4\nways: 1\nline: 12\n",
			"line size"),
		Entry("zero sets", "sets: 0\nways: 1\nline: 8\n", "set count"),
	)
})

var _ = Describe("ParseRecord", func() {
	It("should parse the sized form", func() {
		rec, err := ParseRecord(3, "W:4:0x1c")

		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Seq).To(Equal(uint64(3)))
		Expect(rec.Op).To(Equal(cache.OpWrite))
		Expect(rec.Size).To(Equal(uint64(4)))
		Expect(rec.Address).To(Equal(uint64(0x1c)))
		Expect(rec.InstructionFetch).To(BeFalse())
		Expect(rec.Line).To(Equal("W:4:0x1c"))
	})

	It("should parse the short form with size 1", func() {
		rec, err := ParseRecord(1, "r ff")

		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Op).To(Equal(cache.OpRead))
		Expect(rec.Size).To(Equal(uint64(1)))
		Expect(rec.Address).To(Equal(uint64(0xff)))
	})

	It("should accept spaces around the fields of the sized form", func() {
		rec, err := ParseRecord(1, "R : 8 : 0X40")

		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Size).To(Equal(uint64(8)))
		Expect(rec.Address).To(Equal(uint64(0x40)))
	})

	DescribeTable("should parse the numeric form",
		func(line string, op cache.Operation, fetch bool) {
			rec, err := ParseRecord(1, line)

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Op).To(Equal(op))
			Expect(rec.InstructionFetch).To(Equal(fetch))
			Expect(rec.Address).To(Equal(uint64(0x408ed4)))
		},
		Entry("instruction fetch", "0 408ed4", cache.OpRead, true),
		Entry("load", "1 408ed4", cache.OpRead, false),
		Entry("store", "2 408ed4", cache.OpWrite, false),
	)

	DescribeTable("should reject malformed lines",
		func(line string) {
			_, err := ParseRecord(9, line)

			Expect(errors.Is(err, cache.ErrMalformedRecord)).To(BeTrue())

			var recErr *cache.RecordError
			Expect(errors.As(err, &recErr)).To(BeTrue())
			Expect(recErr.Seq).To(Equal(uint64(9)))
			Expect(recErr.Line).To(Equal(line))
		},
		Entry("unknown op", "X:4:10"),
		Entry("unknown numeric op", "3 10"),
		Entry("bad hex", "R:4:zz"),
		Entry("bad size", "R:four:10"),
		Entry("too many fields", "R:4:10:2"),
		Entry("single field", "R"),
		Entry("three words", "R 10 20"),
	)

	It("should leave size validation to the simulator", func() {
		rec, err := ParseRecord(1, "R:3:0x10")

		Expect(err).NotTo(HaveOccurred())
		Expect(errors.Is(rec.Validate(), cache.ErrInvalidAccessSize)).To(BeTrue())
	})
})

var _ = Describe("Reader", func() {
	It("should number records and skip blanks and comments", func() {
		r := NewReader(strings.NewReader(
			"# header\nR:4:0\n\n  W 8  \n# more\nbogus\nR:4:10\n"))

		rec, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Seq).To(Equal(uint64(1)))

		rec, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Seq).To(Equal(uint64(2)))
		Expect(rec.Op).To(Equal(cache.OpWrite))

		_, err = r.Next()
		Expect(errors.Is(err, cache.ErrMalformedRecord)).To(BeTrue())

		rec, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Seq).To(Equal(uint64(4)))

		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
		Expect(r.Offset()).To(Equal(uint64(44)))

		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
	})

	It("should reject an over-long line and read the next one", func() {
		long := "W:4:" + strings.Repeat("0", maxLineLength+10)
		r := NewReader(strings.NewReader("R:4:0\n" + long + "\nR:4:8\n"))

		_, err := r.Next()
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Next()
		var recErr *cache.RecordError
		Expect(errors.As(err, &recErr)).To(BeTrue())
		Expect(recErr.Seq).To(Equal(uint64(2)))
		Expect(recErr.Err).To(Equal(cache.ErrMalformedRecord))
		Expect(len(recErr.Line)).To(BeNumerically("<", 64))

		rec, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Seq).To(Equal(uint64(3)))
		Expect(rec.Address).To(Equal(uint64(8)))
	})

	It("should count every byte of CRLF lines", func() {
		input := "R:4:0\r\nW:4:8\r\n"
		r := NewReader(strings.NewReader(input))

		rec, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Address).To(Equal(uint64(0)))

		rec, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Op).To(Equal(cache.OpWrite))

		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
		Expect(r.Offset()).To(Equal(uint64(len(input))))
	})

	It("should count a last line without a terminator", func() {
		r := NewReader(strings.NewReader("R:4:0\nR:4:8"))

		_, err := r.Next()
		Expect(err).NotTo(HaveOccurred())

		rec, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Address).To(Equal(uint64(8)))

		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
		Expect(r.Offset()).To(Equal(uint64(11)))
	})
})
