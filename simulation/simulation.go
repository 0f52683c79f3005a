// Package simulation runs a trace through a cache simulator.
package simulation

import (
	"errors"
	"io"
	"log"
	"sync"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// A Simulation owns a cache simulator and the statistics of the trace driven
// through it.
//
// Records are applied one at a time in trace order. The lock only keeps the
// monitor from reading the simulator in the middle of an access.
type Simulation struct {
	id string

	lock      sync.Mutex
	simulator *cache.Simulator
	stats     cache.Stats
	rejected  uint64

	errLogger *log.Logger
	traceSize uint64

	dataRecorder datarecording.DataRecorder
	dbTracer     *trace.DBTracer
	monitor      *monitoring.Monitor
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Simulator returns the cache simulator.
func (s *Simulation) Simulator() *cache.Simulator {
	return s.simulator
}

// GetDataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// Stats returns a copy of the statistics so far.
func (s *Simulation) Stats() cache.Stats {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.stats
}

// Rejected returns the number of records skipped so far.
func (s *Simulation) Rejected() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.rejected
}

// Inspect calls f while no access is in progress.
func (s *Simulation) Inspect(f func(sim *cache.Simulator, stats cache.Stats)) {
	s.lock.Lock()
	defer s.lock.Unlock()

	f(s.simulator, s.stats)
}

// Run drives every record of the reader through the simulator. Invalid
// records are reported on the error logger and skipped. Run stops early only
// if the reader fails.
func (s *Simulation) Run(r *trace.Reader) (trace.Summary, error) {
	s.simulator.InvokeHook(hooking.HookCtx{
		Domain: s.simulator,
		Pos:    hooking.HookPosRunStart,
		Item:   s.simulator.Geometry(),
	})

	var bar *monitoring.ProgressBar
	if s.monitor != nil {
		bar = s.monitor.CreateProgressBar("Trace", s.traceSize)
		defer s.monitor.CompleteProgressBar(bar)
	}

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var recErr *cache.RecordError
			if !errors.As(err, &recErr) {
				return s.Summary(), err
			}

			s.simulator.InvokeHook(hooking.HookCtx{
				Domain: s.simulator,
				Pos:    cache.HookPosReject,
				Item:   recErr,
			})
			s.reject(recErr)

			continue
		}

		s.access(rec)

		if bar != nil {
			bar.SetFinished(r.Offset())
		}
	}

	summary := s.Summary()

	s.simulator.InvokeHook(hooking.HookCtx{
		Domain: s.simulator,
		Pos:    hooking.HookPosRunEnd,
		Item:   summary,
	})

	return summary, nil
}

func (s *Simulation) access(rec cache.Record) {
	s.lock.Lock()
	out, err := s.simulator.Access(rec)
	if err == nil {
		s.stats.Accumulate(out)
	}
	s.lock.Unlock()

	if err != nil {
		s.reject(err)
	}
}

func (s *Simulation) reject(err error) {
	s.lock.Lock()
	s.rejected++
	s.lock.Unlock()

	s.errLogger.Printf("skipped %v", err)
}

// Summary returns what the run has produced so far.
func (s *Simulation) Summary() trace.Summary {
	s.lock.Lock()
	defer s.lock.Unlock()

	return trace.Summary{
		Geometry:        s.simulator.Geometry(),
		WritePolicy:     s.simulator.WritePolicy(),
		WriteMissPolicy: s.simulator.WriteMissPolicy(),
		Stats:           s.stats,
		Rejected:        s.rejected,
		DirtyLines:      s.simulator.Store().DirtyLines(),
	}
}

// Terminate flushes and closes the data recorder.
func (s *Simulation) Terminate() error {
	if s.dataRecorder == nil {
		return nil
	}

	return s.dataRecorder.Close()
}
