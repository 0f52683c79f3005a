package cache

// Operation is the kind of a memory access.
type Operation int

// The operations a trace can contain.
const (
	OpRead Operation = iota
	OpWrite
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// A Record is one access of the trace.
type Record struct {
	Seq     uint64
	Op      Operation
	Size    uint64
	Address uint64

	// InstructionFetch marks a read that fetches an instruction rather than
	// data. It is counted separately but simulated as a plain read.
	InstructionFetch bool

	// Line is the text the record was parsed from, if any.
	Line string
}

// Validate checks the size and the alignment of the access.
func (r Record) Validate() error {
	switch r.Size {
	case 1, 2, 4, 8:
	default:
		return &RecordError{Seq: r.Seq, Line: r.Line, Err: ErrInvalidAccessSize}
	}

	if r.Address%r.Size != 0 {
		return &RecordError{Seq: r.Seq, Line: r.Line, Err: ErrMisalignedAccess}
	}

	return nil
}

// An Outcome is the result of simulating one access.
type Outcome struct {
	Record Record

	Tag    uint64
	Index  int
	Offset uint64
	Way    int

	Hit bool

	// MemoryTransfers is MemoryReads plus MemoryWrites.
	MemoryTransfers int
	MemoryReads     int
	MemoryWrites    int

	Installed  bool
	Evicted    bool
	Writeback  bool
	EvictedTag uint64
}
