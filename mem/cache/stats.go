package cache

import "math"

// Stats accumulates the outcomes of a simulation.
//
// The zero value is ready to use.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`

	ReadHits    uint64 `json:"read_hits"`
	ReadMisses  uint64 `json:"read_misses"`
	WriteHits   uint64 `json:"write_hits"`
	WriteMisses uint64 `json:"write_misses"`

	InstructionFetches uint64 `json:"instruction_fetches"`

	MemoryTransfers uint64 `json:"memory_transfers"`
	MemoryReads     uint64 `json:"memory_reads"`
	MemoryWrites    uint64 `json:"memory_writes"`

	Evictions  uint64 `json:"evictions"`
	Writebacks uint64 `json:"writebacks"`
}

// Accumulate adds one outcome to the counters.
func (s *Stats) Accumulate(out Outcome) {
	if out.Hit {
		s.Hits++
	} else {
		s.Misses++
	}

	switch out.Record.Op {
	case OpRead:
		if out.Hit {
			s.ReadHits++
		} else {
			s.ReadMisses++
		}
	case OpWrite:
		if out.Hit {
			s.WriteHits++
		} else {
			s.WriteMisses++
		}
	}

	if out.Record.InstructionFetch {
		s.InstructionFetches++
	}

	s.MemoryTransfers += uint64(out.MemoryTransfers)
	s.MemoryReads += uint64(out.MemoryReads)
	s.MemoryWrites += uint64(out.MemoryWrites)

	if out.Evicted {
		s.Evictions++
	}

	if out.Writeback {
		s.Writebacks++
	}
}

// Accesses returns the number of accesses accumulated.
func (s Stats) Accesses() uint64 {
	return s.Hits + s.Misses
}

// HitRatio returns hits over accesses. It returns NaN if there was no access.
func (s Stats) HitRatio() float64 {
	return ratio(s.Hits, s.Accesses())
}

// MissRatio returns misses over accesses. It returns NaN if there was no
// access.
func (s Stats) MissRatio() float64 {
	return ratio(s.Misses, s.Accesses())
}

// ReferencesPerInstruction returns accesses over instruction fetches. It
// returns NaN if the trace contains no instruction fetch.
func (s Stats) ReferencesPerInstruction() float64 {
	return ratio(s.Accesses(), s.InstructionFetches)
}

func ratio(n, d uint64) float64 {
	if d == 0 {
		return math.NaN()
	}

	return float64(n) / float64(d)
}

// Reset clears all the counters.
func (s *Stats) Reset() {
	*s = Stats{}
}
