package trace

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim/hooking"
)

var _ = Describe("Report", func() {
	var (
		buf bytes.Buffer
		g   cache.Geometry
	)

	BeforeEach(func() {
		buf.Reset()

		var err error
		g, err = cache.NewGeometry(4, 1, 8)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should print the configuration with the real line size", func() {
		g16, err := cache.NewGeometry(8, 2, 16)
		Expect(err).NotTo(HaveOccurred())

		PrintHeader(&buf, g16, cache.WriteThrough, cache.WriteAround)

		Expect(buf.String()).To(ContainSubstring("8 2-way set associative entries"))
		Expect(buf.String()).To(ContainSubstring("of line size 16 bytes"))
		Expect(buf.String()).To(ContainSubstring("write-through, write-around"))
		Expect(buf.String()).To(ContainSubstring(
			"Ref  Access Address    Tag   Index Offset Result Memrefs"))
	})

	It("should print NaN ratios for an empty run", func() {
		PrintSummary(&buf, Summary{Geometry: g})

		Expect(buf.String()).To(ContainSubstring("Total Accesses: 0\n"))
		Expect(buf.String()).To(ContainSubstring("Hit Ratio: NaN\n"))
		Expect(buf.String()).To(ContainSubstring("Miss Ratio: NaN\n"))
		Expect(buf.String()).NotTo(ContainSubstring("References Per Instruction"))
		Expect(buf.String()).NotTo(ContainSubstring("Rejected Records"))
	})

	It("should print ratios with six decimal places", func() {
		PrintSummary(&buf, Summary{
			Geometry: g,
			Stats: cache.Stats{
				Hits:               1,
				Misses:             2,
				InstructionFetches: 2,
			},
			Rejected:   1,
			DirtyLines: 3,
		})

		Expect(buf.String()).To(ContainSubstring("Total Hits: 1\n"))
		Expect(buf.String()).To(ContainSubstring("Total Misses: 2\n"))
		Expect(buf.String()).To(ContainSubstring("Total Accesses: 3\n"))
		Expect(buf.String()).To(ContainSubstring("Hit Ratio: 0.333333\n"))
		Expect(buf.String()).To(ContainSubstring("Miss Ratio: 0.666667\n"))
		Expect(buf.String()).To(ContainSubstring("References Per Instruction: 1.500000\n"))
		Expect(buf.String()).To(ContainSubstring("Dirty Lines Remaining: 3\n"))
		Expect(buf.String()).To(ContainSubstring("Rejected Records: 1\n"))
	})
})

var _ = Describe("Tracer", func() {
	var (
		buf    bytes.Buffer
		tracer *Tracer
	)

	BeforeEach(func() {
		buf.Reset()
		tracer = NewTracer(log.New(&buf, "", 0))
	})

	It("should format a row in fixed columns", func() {
		out := cache.Outcome{
			Record:          cache.Record{Seq: 1, Op: cache.OpRead, Size: 4, Address: 0x10},
			Tag:             0,
			Index:           2,
			Offset:          0,
			MemoryTransfers: 1,
		}

		Expect(FormatOutcome(out)).To(Equal(
			"   1   Read       10       0     2      0   miss       1"))
	})

	It("should print accesses and ignore other positions", func() {
		out := cache.Outcome{
			Record: cache.Record{Seq: 12, Op: cache.OpWrite, Size: 1, Address: 0xabc},
			Tag:    42,
			Index:  3,
			Offset: 4,
			Hit:    true,
		}

		tracer.Func(hooking.HookCtx{Pos: cache.HookPosAccess, Item: out})
		tracer.Func(hooking.HookCtx{Pos: cache.HookPosReject, Item: out})
		tracer.Func(hooking.HookCtx{Pos: hooking.HookPosRunEnd})

		Expect(buf.String()).To(Equal(
			"  12  Write      abc      42     3      4    hit       0\n"))
	})

	It("should line up with the table header", func() {
		simulator, err := cache.MakeBuilder().
			WithNumSets(4).
			WithWayAssociativity(1).
			WithLineSize(8).
			Build()
		Expect(err).NotTo(HaveOccurred())

		simulator.AcceptHook(tracer)

		_, err = simulator.Access(cache.Record{Seq: 1, Op: cache.OpRead, Size: 4, Address: 0x20})
		Expect(err).NotTo(HaveOccurred())

		var header bytes.Buffer
		PrintHeader(&header, simulator.Geometry(),
			simulator.WritePolicy(), simulator.WriteMissPolicy())

		lines := bytes.Split(bytes.TrimRight(header.Bytes(), "\n"), []byte("\n"))
		Expect(len(buf.String()) - 1).To(Equal(len(lines[len(lines)-1])))
	})
})
