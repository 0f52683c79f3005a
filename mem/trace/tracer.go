package trace

import (
	"fmt"
	"log"

	"github.com/rs/xid"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// A Tracer is a hook that prints one row per access.
type Tracer struct {
	logger *log.Logger
}

// NewTracer creates a Tracer that prints rows to the logger. The logger
// should have no flags and no prefix so the rows line up with the header
// printed by PrintHeader.
func NewTracer(logger *log.Logger) *Tracer {
	return &Tracer{logger: logger}
}

// Func prints the outcome carried by an access hook.
func (t *Tracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	out, ok := ctx.Item.(cache.Outcome)
	if !ok {
		return
	}

	t.logger.Print(FormatOutcome(out))
}

// FormatOutcome renders an outcome as a row of the per-access table.
func FormatOutcome(out cache.Outcome) string {
	result := "miss"
	if out.Hit {
		result = "hit"
	}

	return fmt.Sprintf("%4d %6s %8x %7d %5d %6d %6s %7d",
		out.Record.Seq,
		out.Record.Op,
		out.Record.Address,
		out.Tag,
		out.Index,
		out.Offset,
		result,
		out.MemoryTransfers,
	)
}

// accessEntry is one access in the database. Addresses and tags are hex
// strings because SQLite integers are signed.
type accessEntry struct {
	ID               string
	RunID            string
	Seq              int64
	Operation        string
	Size             int64
	Address          string
	Tag              string
	SetIndex         int
	Offset           int64
	Way              int
	Hit              bool
	InstructionFetch bool
	MemoryReads      int
	MemoryWrites     int
	Evicted          bool
	EvictedTag       string
	Writeback        bool
}

// rejectionEntry is one rejected record in the database.
type rejectionEntry struct {
	ID     string
	RunID  string
	Seq    int64
	Line   string
	Reason string
}

// summaryEntry is one run in the database.
type summaryEntry struct {
	RunID           string
	NumSets         int
	Associativity   int
	LineSize        int
	WritePolicy     string
	WriteMissPolicy string
	Hits            int64
	Misses          int64
	ReadHits        int64
	ReadMisses      int64
	WriteHits       int64
	WriteMisses     int64
	MemoryReads     int64
	MemoryWrites    int64
	Evictions       int64
	Writebacks      int64
	Rejected        int64
	DirtyLines      int
	HitRatio        float64
}

// Table names written by the DBTracer.
const (
	AccessTable    = "cache_accesses"
	RejectionTable = "cache_rejections"
	SummaryTable   = "cache_summary"
)

// A DBTracer is a hook that records accesses, rejected records, and the
// summary of a run into a database using the data recorder.
type DBTracer struct {
	runID        string
	dataRecorder datarecording.DataRecorder
}

// NewDBTracer creates a DBTracer and the tables it writes.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{
		runID:        xid.New().String(),
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(AccessTable, accessEntry{})
	t.dataRecorder.CreateTable(RejectionTable, rejectionEntry{})
	t.dataRecorder.CreateTable(SummaryTable, summaryEntry{})

	return t
}

// RunID returns the identifier shared by every row the tracer writes.
func (t *DBTracer) RunID() string {
	return t.runID
}

// Func records the item carried by the hook.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case cache.HookPosAccess:
		if out, ok := ctx.Item.(cache.Outcome); ok {
			t.recordAccess(out)
		}
	case cache.HookPosReject:
		if err, ok := ctx.Item.(*cache.RecordError); ok {
			t.recordRejection(err)
		}
	case hooking.HookPosRunEnd:
		if s, ok := ctx.Item.(Summary); ok {
			t.recordSummary(s)
		}
	}
}

func (t *DBTracer) recordAccess(out cache.Outcome) {
	entry := accessEntry{
		ID:               xid.New().String(),
		RunID:            t.runID,
		Seq:              int64(out.Record.Seq),
		Operation:        out.Record.Op.String(),
		Size:             int64(out.Record.Size),
		Address:          hex(out.Record.Address),
		Tag:              hex(out.Tag),
		SetIndex:         out.Index,
		Offset:           int64(out.Offset),
		Way:              out.Way,
		Hit:              out.Hit,
		InstructionFetch: out.Record.InstructionFetch,
		MemoryReads:      out.MemoryReads,
		MemoryWrites:     out.MemoryWrites,
		Evicted:          out.Evicted,
		Writeback:        out.Writeback,
	}

	if out.Evicted {
		entry.EvictedTag = hex(out.EvictedTag)
	}

	t.dataRecorder.InsertData(AccessTable, entry)
}

func (t *DBTracer) recordRejection(err *cache.RecordError) {
	t.dataRecorder.InsertData(RejectionTable, rejectionEntry{
		ID:     xid.New().String(),
		RunID:  t.runID,
		Seq:    int64(err.Seq),
		Line:   err.Line,
		Reason: err.Err.Error(),
	})
}

func (t *DBTracer) recordSummary(s Summary) {
	t.dataRecorder.InsertData(SummaryTable, summaryEntry{
		RunID:           t.runID,
		NumSets:         s.Geometry.NumSets(),
		Associativity:   s.Geometry.Associativity(),
		LineSize:        s.Geometry.LineSize(),
		WritePolicy:     s.WritePolicy.String(),
		WriteMissPolicy: s.WriteMissPolicy.String(),
		Hits:            int64(s.Stats.Hits),
		Misses:          int64(s.Stats.Misses),
		ReadHits:        int64(s.Stats.ReadHits),
		ReadMisses:      int64(s.Stats.ReadMisses),
		WriteHits:       int64(s.Stats.WriteHits),
		WriteMisses:     int64(s.Stats.WriteMisses),
		MemoryReads:     int64(s.Stats.MemoryReads),
		MemoryWrites:    int64(s.Stats.MemoryWrites),
		Evictions:       int64(s.Stats.Evictions),
		Writebacks:      int64(s.Stats.Writebacks),
		Rejected:        int64(s.Rejected),
		DirtyLines:      s.DirtyLines,
		HitRatio:        s.Stats.HitRatio(),
	})

	t.dataRecorder.Flush()
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
