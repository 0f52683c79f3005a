package simulation

import (
	"log"
	"os"

	"github.com/rs/xid"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
)

// Builder can be used to build a simulation.
type Builder struct {
	simulator      *cache.Simulator
	errLogger      *log.Logger
	traceSize      uint64
	monitorOn      bool
	monitorPort    int
	recordOn       bool
	outputFileName string
	dataRecorder   datarecording.DataRecorder
}

// MakeBuilder creates a new builder. Monitoring and recording are off by
// default.
func MakeBuilder() Builder {
	return Builder{}
}

// WithSimulator sets the cache simulator to drive.
func (b Builder) WithSimulator(s *cache.Simulator) Builder {
	b.simulator = s
	return b
}

// WithErrorLogger sets the logger that receives one line per rejected record.
func (b Builder) WithErrorLogger(l *log.Logger) Builder {
	b.errLogger = l
	return b
}

// WithTraceSize sets the size of the trace in bytes, used as the total of the
// progress bar.
func (b Builder) WithTraceSize(size uint64) Builder {
	b.traceSize = size
	return b
}

// WithMonitoring turns on the monitoring server.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithRecording turns on recording the run into a SQLite database.
func (b Builder) WithRecording() Builder {
	b.recordOn = true
	return b
}

// WithOutputFileName sets the file name of the database, without the
// .sqlite3 suffix. It turns recording on.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.recordOn = true
	b.outputFileName = filename

	return b
}

// WithDataRecorder records the run into the given recorder instead of a
// SQLite file. The simulation closes the recorder when it terminates.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.recordOn = true
	b.dataRecorder = r

	return b
}

func (b Builder) parametersMustBeValid() {
	if b.simulator == nil {
		panic("simulator is not set")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if b.dataRecorder != nil && b.outputFileName != "" {
		panic("output file name cannot be set with a custom data recorder")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:        xid.New().String(),
		simulator: b.simulator,
		errLogger: b.errLogger,
		traceSize: b.traceSize,
	}

	if s.errLogger == nil {
		s.errLogger = log.New(os.Stderr, "cachesim: ", 0)
	}

	if b.recordOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "cachesim_" + s.id
		}

		s.dataRecorder = b.dataRecorder
		if s.dataRecorder == nil {
			s.dataRecorder = datarecording.New(outputPath)
		}

		s.dbTracer = trace.NewDBTracer(s.dataRecorder)
		s.simulator.AcceptHook(s.dbTracer)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}

		s.monitor.RegisterTarget(s)
		s.monitor.StartServer()
	}

	return s
}
