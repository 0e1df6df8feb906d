// Package monitoring serves the state of a running simulation over HTTP and
// lets users pause and resume it.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"

	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/monitoring/web"
	"github.com/sarchlab/netsim/routing"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/traffic"
	"github.com/sarchlab/netsim/tracing"
)

// Engine is the part of the event engine the monitor controls.
type Engine interface {
	timing.TimeTeller
	hooking.Hookable
	Pause()
	Continue()
	IsPaused() bool
}

// RouteLister returns the routing table of a node.
type RouteLister func(node sim.NodeID) ([]routing.Entry, error)

// AppLister returns a snapshot of the applications.
type AppLister interface {
	Apps() []traffic.AppInfo
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine     Engine
	topo       *topology.Graph
	routes     RouteLister
	apps       AppLister
	trace      *tracing.Emitter
	portNumber int
	logger     *zap.Logger

	registry *prometheus.Registry
	metrics  *TraceMetrics

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()

	return &Monitor{
		logger:   zap.NewNop(),
		registry: registry,
		metrics:  NewTraceMetrics(registry),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random free port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		m.logger.Warn("monitor port not allowed, using a random port",
			zap.Int("port", portNumber))
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *zap.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e Engine) {
	m.engine = e

	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "netsim_simulated_time_seconds",
			Help: "Time of the most recently dispatched event.",
		}, e.CurrentTime))
}

// RegisterTopology registers the network elements.
func (m *Monitor) RegisterTopology(g *topology.Graph) {
	m.topo = g
}

// RegisterRoutes registers the source of routing tables.
func (m *Monitor) RegisterRoutes(routes RouteLister) {
	m.routes = routes
}

// RegisterApps registers the applications.
func (m *Monitor) RegisterApps(apps AppLister) {
	m.apps = apps
}

// RegisterTrace registers the trace and counts its records as metrics.
func (m *Monitor) RegisterTrace(e *tracing.Emitter) {
	m.trace = e
	e.AddWriter(m.metrics)
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

// TrackSimulatedTime creates a bar that follows the engine clock up to stop.
func (m *Monitor) TrackSimulatedTime(stop timing.VTimeInSec) *ProgressBar {
	bar := m.CreateProgressBar("Simulated time (us)", microseconds(stop))
	m.engine.AcceptHook(&clockProgress{bar: bar})

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
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

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/nodes", m.listNodes)
	r.HandleFunc("/api/routes/{node}", m.listRoutes)
	r.HandleFunc("/api/apps", m.listApps)
	r.HandleFunc("/api/app/{id}", m.appDetails)
	r.HandleFunc("/api/trace", m.listTrace)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor stopped", zap.Error(err))
		}
	}()

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	return url, nil
}

// OpenBrowser shows the monitor page in the default browser.
func OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, map[string]any{
		"now":    m.engine.CurrentTime(),
		"paused": m.engine.IsPaused(),
	})
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	rsp := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		rsp = append(rsp, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, rsp)
}

type interfaceRsp struct {
	ID      int    `json:"id"`
	Link    int    `json:"link"`
	Address string `json:"address"`
}

type nodeRsp struct {
	ID         int            `json:"id"`
	Neighbors  []int          `json:"neighbors"`
	Interfaces []interfaceRsp `json:"interfaces"`
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	rsp := make([]nodeRsp, 0, len(m.topo.Nodes()))

	for _, n := range m.topo.Nodes() {
		node := nodeRsp{ID: int(n.ID), Neighbors: []int{}}

		for _, nb := range m.topo.Neighbors(n.ID) {
			node.Neighbors = append(node.Neighbors, int(nb))
		}

		for _, id := range n.Interfaces {
			iface := m.topo.Interface(id)
			node.Interfaces = append(node.Interfaces, interfaceRsp{
				ID:      int(iface.ID),
				Link:    int(iface.Link),
				Address: iface.Address.String(),
			})
		}

		rsp = append(rsp, node)
	}

	m.writeJSON(w, rsp)
}

type routeRsp struct {
	Destination int `json:"destination"`
	Interface   int `json:"interface"`
	NextHop     int `json:"next_hop"`
}

func (m *Monitor) listRoutes(w http.ResponseWriter, r *http.Request) {
	node, err := strconv.Atoi(mux.Vars(r)["node"])
	if err != nil {
		http.Error(w, "bad node id", http.StatusBadRequest)
		return
	}

	entries, err := m.routes(sim.NodeID(node))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	rsp := make([]routeRsp, 0, len(entries))
	for _, e := range entries {
		rsp = append(rsp, routeRsp{
			Destination: int(e.Destination),
			Interface:   int(e.Interface),
			NextHop:     int(e.NextHop),
		})
	}

	m.writeJSON(w, rsp)
}

type appRsp struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Node            int     `json:"node"`
	Role            string  `json:"role"`
	State           string  `json:"state"`
	SentPackets     uint64  `json:"sent_packets"`
	ReceivedPackets uint64  `json:"received_packets"`
	ReceivedBytes   uint64  `json:"received_bytes"`
	LastReceive     float64 `json:"last_receive"`
}

// pausedOr409 guards reads of state that the dispatch loop mutates.
func (m *Monitor) pausedOr409(w http.ResponseWriter) bool {
	if m.engine.IsPaused() {
		return true
	}

	http.Error(w, "pause the simulation first", http.StatusConflict)

	return false
}

func (m *Monitor) listApps(w http.ResponseWriter, _ *http.Request) {
	if !m.pausedOr409(w) {
		return
	}

	infos := m.apps.Apps()
	rsp := make([]appRsp, 0, len(infos))

	for _, a := range infos {
		rsp = append(rsp, appRsp{
			ID:              int(a.ID),
			Name:            a.Name,
			Node:            int(a.Node),
			Role:            a.Role.String(),
			State:           a.State.String(),
			SentPackets:     a.Stats.SentPackets,
			ReceivedPackets: a.Stats.ReceivedPackets,
			ReceivedBytes:   a.Stats.ReceivedBytes,
			LastReceive:     a.Stats.LastReceive,
		})
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) appDetails(w http.ResponseWriter, r *http.Request) {
	if !m.pausedOr409(w) {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "bad application id", http.StatusBadRequest)
		return
	}

	infos := m.apps.Apps()
	if id < 0 || id >= len(infos) {
		http.Error(w, "application not found", http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&infos[id])
	serializer.SetMaxDepth(2)

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listTrace(w http.ResponseWriter, r *http.Request) {
	limit := 100

	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}

		limit = n
	}

	records := m.trace.Tail(limit)
	rsp := make([]tracing.DBRecord, 0, len(records))

	for _, rec := range records {
		rsp = append(rsp, tracing.ToDBRecord(rec))
	}

	m.writeJSON(w, rsp)
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

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		m.logger.Warn("monitor response not written", zap.Error(err))
	}
}

func dieOnErr(err error) {
	if err != nil {
		panic(err)
	}
}
