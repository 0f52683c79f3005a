// Package monitoring serves the state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/monitoring/web"
)

// An Inspectable gives read access to a simulator and its statistics. The
// callback must not keep the simulator after it returns.
type Inspectable interface {
	Inspect(f func(s *cache.Simulator, stats cache.Stats))
}

// Monitor turns a simulation into a server so that it can be watched while it
// runs.
type Monitor struct {
	target       Inspectable
	portNumber   int
	profileDelay time.Duration

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	url string
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{profileDelay: time.Second}
}

// WithPortNumber sets the port number of the monitor. Privileged ports are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterTarget registers the simulation to watch.
func (m *Monitor) RegisterTarget(t Inspectable) {
	m.target = t
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the ones shown.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler of all the monitoring routes.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/config", m.config)
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/set/{index}", m.set)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(web.Handler())

	return r
}

// StartServer starts serving in the background and returns the URL of the
// server.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	return m.url
}

// OpenInBrowser opens the page of a started server.
func (m *Monitor) OpenInBrowser() error {
	if m.url == "" {
		return fmt.Errorf("monitoring server not started")
	}

	return browser.OpenURL(m.url)
}

type configRsp struct {
	NumSets         int    `json:"num_sets"`
	Associativity   int    `json:"associativity"`
	LineSize        int    `json:"line_size"`
	TotalSize       uint64 `json:"total_size"`
	OffsetBits      uint   `json:"offset_bits"`
	IndexBits       uint   `json:"index_bits"`
	WritePolicy     string `json:"write_policy"`
	WriteMissPolicy string `json:"write_miss_policy"`
}

func (m *Monitor) config(w http.ResponseWriter, _ *http.Request) {
	if !m.mustHaveTarget(w) {
		return
	}

	var rsp configRsp

	m.target.Inspect(func(s *cache.Simulator, _ cache.Stats) {
		g := s.Geometry()
		rsp = configRsp{
			NumSets:         g.NumSets(),
			Associativity:   g.Associativity(),
			LineSize:        g.LineSize(),
			TotalSize:       g.TotalSize(),
			OffsetBits:      g.OffsetBits(),
			IndexBits:       g.IndexBits(),
			WritePolicy:     s.WritePolicy().String(),
			WriteMissPolicy: s.WriteMissPolicy().String(),
		}
	})

	writeJSON(w, rsp)
}

// statsRsp reports ratios as null when they are undefined, since JSON has no
// NaN.
type statsRsp struct {
	cache.Stats

	Accesses  uint64   `json:"accesses"`
	HitRatio  *float64 `json:"hit_ratio"`
	MissRatio *float64 `json:"miss_ratio"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	if !m.mustHaveTarget(w) {
		return
	}

	var rsp statsRsp

	m.target.Inspect(func(_ *cache.Simulator, st cache.Stats) {
		rsp = statsRsp{
			Stats:     st,
			Accesses:  st.Accesses(),
			HitRatio:  finiteOrNil(st.HitRatio()),
			MissRatio: finiteOrNil(st.MissRatio()),
		}
	})

	writeJSON(w, rsp)
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return &v
}

type setView struct {
	Index int
	Lines []cache.LineState
}

// set serializes one set. The optional field query parameter selects a
// dotted path inside the set, such as "Lines.0".
func (m *Monitor) set(w http.ResponseWriter, r *http.Request) {
	if !m.mustHaveTarget(w) {
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "set index must be an integer", http.StatusBadRequest)
		return
	}

	view := &setView{Index: index}

	m.target.Inspect(func(s *cache.Simulator, _ cache.Stats) {
		view.Lines, err = s.Store().Lines(index)
	})

	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(view)
	serializer.SetMaxDepth(2)

	if field := r.URL.Query().Get("field"); field != "" {
		err = serializer.SetEntryPoint(strings.Split(field, "."))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))

	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDelay)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func (m *Monitor) mustHaveTarget(w http.ResponseWriter) bool {
	if m.target == nil {
		http.Error(w, "no simulation registered", http.StatusServiceUnavailable)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
