// Package simulation is the entry point for declaring and running a network
// simulation.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"github.com/sarchlab/netsim/addressing"
	"github.com/sarchlab/netsim/datarecording"
	"github.com/sarchlab/netsim/link"
	"github.com/sarchlab/netsim/monitoring"
	"github.com/sarchlab/netsim/network"
	"github.com/sarchlab/netsim/routing"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/tracing"
	"github.com/sarchlab/netsim/traffic"
)

// A Simulation owns one engine and everything it drives: the topology, the
// addresses, the routes and the applications.
type Simulation struct {
	id     string
	logger *zap.Logger

	engine   *timing.SerialEngine
	topo     *topology.Graph
	registry *addressing.Registry
	network  *network.Handler
	apps     *traffic.Manager
	emitter  *tracing.Emitter

	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor

	routes       routing.Tables
	routesBuilt  bool
	routeVersion uint64
	ran          bool
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the engine used in the simulation.
func (s *Simulation) Engine() *timing.SerialEngine {
	return s.engine
}

// Topology returns the network elements.
func (s *Simulation) Topology() *topology.Graph {
	return s.topo
}

// Registry returns the address registry.
func (s *Simulation) Registry() *addressing.Registry {
	return s.registry
}

// Trace returns the emitter that collects every trace record.
func (s *Simulation) Trace() *tracing.Emitter {
	return s.emitter
}

// Monitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// CreateNode adds a node.
func (s *Simulation) CreateNode() sim.NodeID {
	return s.topo.CreateNode()
}

// CreateLink connects nodes with a link.
func (s *Simulation) CreateLink(
	kind link.Kind,
	bandwidth sim.DataRate,
	delay timing.VTimeInSec,
	nodes ...sim.NodeID,
) (sim.LinkID, error) {
	return s.topo.CreateLink(kind, bandwidth, delay, nodes...)
}

// AssignSubnet gives every interface on the link an address from the subnet,
// in attach order.
func (s *Simulation) AssignSubnet(
	linkID sim.LinkID,
	base netip.Addr,
	prefixLen int,
) ([]netip.Addr, error) {
	l := s.topo.Link(linkID)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", sim.ErrUnknownLink, linkID)
	}

	addrs, err := s.registry.Assign(linkID, l.Interfaces, base, prefixLen)
	if err != nil {
		return nil, err
	}

	for i, iface := range l.Interfaces {
		if err := s.topo.SetAddress(iface, addrs[i]); err != nil {
			return nil, err
		}
	}

	s.logger.Info("subnet assigned",
		zap.Stringer("link", linkID),
		zap.Stringer("base", base),
		zap.Int("prefix", prefixLen))

	return addrs, nil
}

// CreateApplication installs an application and schedules its window.
func (s *Simulation) CreateApplication(cfg traffic.Config) (sim.AppID, error) {
	if s.ran {
		return sim.NoApp, sim.ErrAlreadyRun
	}

	if s.topo.Node(cfg.Node) == nil {
		return sim.NoApp, fmt.Errorf("%w: %s", sim.ErrUnknownNode, cfg.Node)
	}

	return s.apps.Add(cfg)
}

// BuildRoutes computes the routing tables. When some nodes cannot reach each
// other the tables are still installed and the error lists every such pair.
func (s *Simulation) BuildRoutes() error {
	tables, err := routing.Build(s.topo)

	var unreachable *routing.UnreachableError
	if err != nil && !errors.As(err, &unreachable) {
		return err
	}

	s.routes = tables
	s.routesBuilt = true
	s.routeVersion = s.topo.Version()
	s.network.SetRoutes(tables)

	s.logger.Info("routes built", zap.Int("nodes", len(tables)))

	return err
}

// Run processes events earlier than stop and returns the trace. A
// simulation runs once.
func (s *Simulation) Run(stop timing.VTimeInSec) ([]tracing.Record, error) {
	if s.ran {
		return nil, sim.ErrAlreadyRun
	}

	if math.IsNaN(float64(stop)) {
		return nil, fmt.Errorf("%w: stop time is not a number", sim.ErrConfiguration)
	}

	if !s.routesBuilt {
		return nil, sim.ErrRoutesNotBuilt
	}

	if s.routeVersion != s.topo.Version() {
		return nil, fmt.Errorf("%w: topology changed since routes were built",
			sim.ErrRoutesNotBuilt)
	}

	s.ran = true

	if s.monitor != nil {
		bar := s.monitor.TrackSimulatedTime(stop)
		defer s.monitor.CompleteProgressBar(bar)
	}

	start := time.Now()
	err := s.engine.Run(stop)
	s.apps.Teardown()

	s.logger.Info("simulation finished",
		zap.Float64("now", s.engine.CurrentTime()),
		zap.Int("records", s.emitter.Len()),
		zap.Duration("wall", time.Since(start)))

	err = errors.Join(err, s.emitter.Flush())

	return s.emitter.Records(), err
}

// Routes returns the routing table of a node.
func (s *Simulation) Routes(node sim.NodeID) ([]routing.Entry, error) {
	if !s.routesBuilt {
		return nil, sim.ErrRoutesNotBuilt
	}

	if node < 0 || int(node) >= len(s.routes) {
		return nil, fmt.Errorf("%w: %s", sim.ErrUnknownNode, node)
	}

	return s.routes[node].Entries(), nil
}

// Interfaces returns the interfaces of a node.
func (s *Simulation) Interfaces(node sim.NodeID) ([]topology.Interface, error) {
	n := s.topo.Node(node)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", sim.ErrUnknownNode, node)
	}

	ifaces := make([]topology.Interface, 0, len(n.Interfaces))
	for _, id := range n.Interfaces {
		ifaces = append(ifaces, *s.topo.Interface(id))
	}

	return ifaces, nil
}

// AppStats returns the counters of an application.
func (s *Simulation) AppStats(app sim.AppID) (traffic.Stats, error) {
	return s.apps.Stats(app)
}

// AppState returns the lifecycle state of an application.
func (s *Simulation) AppState(app sim.AppID) (traffic.State, error) {
	return s.apps.State(app)
}

// Apps returns a snapshot of every application.
func (s *Simulation) Apps() []traffic.AppInfo {
	return s.apps.Apps()
}

// Terminate flushes and closes the trace writers and stops the monitor.
func (s *Simulation) Terminate() error {
	err := s.emitter.Close()

	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err = errors.Join(err, s.monitor.StopServer(ctx))
	}

	return err
}
