package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/simulation"
)

// envFlags maps the flags that can be given through the environment to their
// variables.
var envFlags = map[string]string{
	"config":         "CACHESIM_CONFIG",
	"trace":          "CACHESIM_TRACE",
	"write-policy":   "CACHESIM_WRITE_POLICY",
	"write-miss":     "CACHESIM_WRITE_MISS",
	"clickhouse-dsn": "CACHESIM_CLICKHOUSE_DSN",
}

type runOptions struct {
	configPath    string
	tracePath     string
	writePolicy   string
	writeMiss     string
	quiet         bool
	record        bool
	recordFile    string
	clickHouseDSN string
	monitor       bool
	monitorPort   int
	openBrowser   bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a trace.",
	Long: "`run --config geometry.txt --trace trace.txt` prints one line per " +
		"access and the statistics of the run. The trace is read from the " +
		"standard input if no trace file is given.",
	Run: func(cmd *cobra.Command, _ []string) {
		errLogger := log.New(os.Stderr, "cachesim: ", 0)

		envFile, _ := cmd.Flags().GetString("env-file")

		err := loadEnv(envFile)
		if err == nil {
			err = applyEnvDefaults(cmd.Flags())
		}

		if err == nil {
			err = runSimulation(runOpts, os.Stdin, os.Stdout, os.Stderr)
		}

		if err != nil {
			errLogger.Print(err)
			atexit.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVar(&runOpts.configPath, "config", "",
		"File with the set count, the associativity, and the line size")
	f.StringVar(&runOpts.tracePath, "trace", "",
		"Trace file; standard input if empty or -")
	f.StringVar(&runOpts.writePolicy, "write-policy", "write-back",
		"write-back or write-through")
	f.StringVar(&runOpts.writeMiss, "write-miss", "default",
		"write-allocate, write-around, or default for the policy's usual choice")
	f.BoolVar(&runOpts.quiet, "quiet", false,
		"Print only the statistics, not one line per access")
	f.BoolVar(&runOpts.record, "record", false,
		"Record the run into a SQLite database")
	f.StringVar(&runOpts.recordFile, "record-file", "",
		"Database file name without the .sqlite3 suffix; implies --record")
	f.StringVar(&runOpts.clickHouseDSN, "clickhouse-dsn", "",
		"Record the run into the ClickHouse server with this DSN")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"Serve the state of the simulation over HTTP")
	f.IntVar(&runOpts.monitorPort, "monitor-port", 0,
		"Port of the monitoring server; random if 0")
	f.BoolVar(&runOpts.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser; implies --monitor")
	f.String("env-file", "",
		"File of environment variables; .env is read if present")
}

// loadEnv loads the given file, or .env if it exists. Variables already set
// are not overridden.
func loadEnv(envFile string) error {
	if envFile != "" {
		return godotenv.Load(envFile)
	}

	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// applyEnvDefaults fills the flags that were not given from the environment.
func applyEnvDefaults(flags *pflag.FlagSet) error {
	for flag, env := range envFlags {
		if flags.Changed(flag) {
			continue
		}

		value, ok := os.LookupEnv(env)
		if !ok {
			continue
		}

		if err := flags.Set(flag, value); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}

	return nil
}

func runSimulation(
	opts runOptions,
	stdin io.Reader,
	stdout, stderr io.Writer,
) error {
	simulator, err := buildSimulator(opts)
	if err != nil {
		return err
	}

	traceReader, traceSize, closeTrace, err := openTrace(opts.tracePath, stdin)
	if err != nil {
		return err
	}
	defer closeTrace()

	if !opts.quiet {
		trace.PrintHeader(stdout, simulator.Geometry(),
			simulator.WritePolicy(), simulator.WriteMissPolicy())
		simulator.AcceptHook(trace.NewTracer(log.New(stdout, "", 0)))
	}

	errLogger := log.New(stderr, "cachesim: ", 0)

	b := simulation.MakeBuilder().
		WithSimulator(simulator).
		WithErrorLogger(errLogger).
		WithTraceSize(traceSize)

	switch {
	case opts.clickHouseDSN != "":
		recorder, err := datarecording.NewClickHouse(opts.clickHouseDSN)
		if err != nil {
			return err
		}

		b = b.WithDataRecorder(recorder)
	case opts.record || opts.recordFile != "":
		b = b.WithRecording()
		if opts.recordFile != "" {
			b = b.WithOutputFileName(opts.recordFile)
		}
	}

	monitorOn := opts.monitor || opts.openBrowser
	if monitorOn {
		b = b.WithMonitoring().WithMonitorPort(opts.monitorPort)
	}

	s := b.Build()

	if opts.openBrowser {
		if err := s.GetMonitor().OpenInBrowser(); err != nil {
			errLogger.Printf("cannot open browser: %v", err)
		}
	}

	summary, runErr := s.Run(trace.NewReader(traceReader))
	trace.PrintSummary(stdout, summary)

	err = s.Terminate()

	if runErr != nil {
		return fmt.Errorf("reading trace: %w", runErr)
	}

	if err != nil {
		return err
	}

	if monitorOn {
		waitForInterrupt(stderr)
	}

	return nil
}

func buildSimulator(opts runOptions) (*cache.Simulator, error) {
	if opts.configPath == "" {
		return nil, &cache.ConfigError{
			Field:  "config file",
			Reason: "not given; use --config or CACHESIM_CONFIG",
		}
	}

	configFile, err := os.Open(opts.configPath)
	if err != nil {
		return nil, err
	}
	defer configFile.Close()

	g, err := trace.ReadGeometry(configFile)
	if err != nil {
		return nil, err
	}

	wp, err := cache.ParseWritePolicy(opts.writePolicy)
	if err != nil {
		return nil, err
	}

	wmp, err := cache.ParseWriteMissPolicy(opts.writeMiss)
	if err != nil {
		return nil, err
	}

	return cache.MakeBuilder().
		WithGeometry(g).
		WithWritePolicy(wp).
		WithWriteMissPolicy(wmp).
		Build()
}

func openTrace(
	path string,
	stdin io.Reader,
) (r io.Reader, size uint64, closeFn func(), err error) {
	if path == "" || path == "-" {
		return stdin, 0, func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, nil, err
	}

	return f, uint64(info.Size()), func() { f.Close() }, nil
}

func waitForInterrupt(stderr io.Writer) {
	fmt.Fprintln(stderr, "Simulation finished. Press Ctrl+C to stop the monitor.")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}
