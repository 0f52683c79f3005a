package trace

import (
	"fmt"
	"io"
	"math"

	"github.com/sarchlab/cachesim/mem/cache"
)

// A Summary is what a run leaves behind.
type Summary struct {
	Geometry        cache.Geometry
	WritePolicy     cache.WritePolicy
	WriteMissPolicy cache.WriteMissPolicy

	Stats cache.Stats

	// Rejected counts the records skipped because they were invalid.
	Rejected uint64

	// DirtyLines counts the lines still holding data that never reached
	// memory when the trace ended.
	DirtyLines int
}

// PrintHeader writes the cache configuration and the header of the
// per-access table.
func PrintHeader(
	w io.Writer,
	g cache.Geometry,
	wp cache.WritePolicy,
	wmp cache.WriteMissPolicy,
) {
	fmt.Fprintf(w, "Cache Configuration\n\n")
	fmt.Fprintf(w, "   %d %d-way set associative entries\n",
		g.NumSets(), g.Associativity())
	fmt.Fprintf(w, "   of line size %d bytes\n", g.LineSize())
	fmt.Fprintf(w, "   %s, %s\n\n\n", wp, wmp)
	fmt.Fprintf(w, "Results for Each Reference\n\n")
	fmt.Fprintf(w, "Ref  Access Address    Tag   Index Offset Result Memrefs\n")
	fmt.Fprintf(w, "---- ------ -------- ------- ----- ------ ------ -------\n")
}

// PrintSummary writes the end-of-run statistics. Ratios have six decimal
// places and print as NaN when nothing was accessed.
func PrintSummary(w io.Writer, s Summary) {
	st := s.Stats

	fmt.Fprintf(w, "\n\nCache Statistics:\n")
	fmt.Fprintf(w, "Total Hits: %d\n", st.Hits)
	fmt.Fprintf(w, "Total Misses: %d\n", st.Misses)
	fmt.Fprintf(w, "Total Accesses: %d\n", st.Accesses())
	fmt.Fprintf(w, "Hit Ratio: %s\n", formatRatio(st.HitRatio()))
	fmt.Fprintf(w, "Miss Ratio: %s\n\n", formatRatio(st.MissRatio()))

	fmt.Fprintf(w, "Read Hits: %d\n", st.ReadHits)
	fmt.Fprintf(w, "Read Misses: %d\n", st.ReadMisses)
	fmt.Fprintf(w, "Write Hits: %d\n", st.WriteHits)
	fmt.Fprintf(w, "Write Misses: %d\n", st.WriteMisses)
	fmt.Fprintf(w, "Memory Reads: %d\n", st.MemoryReads)
	fmt.Fprintf(w, "Memory Writes: %d\n", st.MemoryWrites)
	fmt.Fprintf(w, "Memory Transfers: %d\n", st.MemoryTransfers)
	fmt.Fprintf(w, "Dirty Lines Remaining: %d\n", s.DirtyLines)

	if st.InstructionFetches > 0 {
		fmt.Fprintf(w, "Instruction Fetches: %d\n", st.InstructionFetches)
		fmt.Fprintf(w, "References Per Instruction: %s\n",
			formatRatio(st.ReferencesPerInstruction()))
	}

	if s.Rejected > 0 {
		fmt.Fprintf(w, "Rejected Records: %d\n", s.Rejected)
	}
}

func formatRatio(r float64) string {
	if math.IsNaN(r) {
		return "NaN"
	}

	return fmt.Sprintf("%.6f", r)
}
