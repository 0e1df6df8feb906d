// Package topology keeps the nodes, interfaces and links of a simulated
// network and answers neighbor queries over them.
package topology

import (
	"fmt"
	"net/netip"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sarchlab/netsim/link"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/timing"
)

// A Node is a network host or router.
type Node struct {
	ID         sim.NodeID
	Interfaces []sim.InterfaceID
}

// An Interface is a node's attachment to a link.
type Interface struct {
	ID      sim.InterfaceID
	Node    sim.NodeID
	Link    sim.LinkID
	Address netip.Addr
}

// Graph owns the network elements. Every mutation bumps Version so that
// derived data, such as routing tables, can detect it is stale.
type Graph struct {
	logger *zap.Logger

	nodes      []*Node
	interfaces []*Interface
	links      []*link.Link

	connectivity *simple.UndirectedGraph
	version      uint64
}

// New creates an empty graph.
func New(logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Graph{
		logger:       logger,
		connectivity: simple.NewUndirectedGraph(),
	}
}

// CreateNode adds a node and returns its ID.
func (g *Graph) CreateNode() sim.NodeID {
	id := sim.NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id})
	g.connectivity.AddNode(simple.Node(id))
	g.version++

	g.logger.Debug("node created", zap.Stringer("node", id))

	return id
}

// CreateLink connects the nodes with a new link. One interface is created on
// every node, in the order the nodes are given.
func (g *Graph) CreateLink(
	kind link.Kind,
	bandwidth sim.DataRate,
	delay timing.VTimeInSec,
	nodes ...sim.NodeID,
) (sim.LinkID, error) {
	err := link.CheckParams(kind, bandwidth, delay, len(nodes))
	if err != nil {
		return 0, err
	}

	seen := make(map[sim.NodeID]bool, len(nodes))
	for _, n := range nodes {
		if g.Node(n) == nil {
			return 0, fmt.Errorf("%w: %s", sim.ErrUnknownNode, n)
		}

		if seen[n] {
			return 0, fmt.Errorf("%w: %s attached twice",
				sim.ErrInvalidLinkArity, n)
		}

		seen[n] = true
	}

	id := sim.LinkID(len(g.links))
	ifaces := make([]sim.InterfaceID, 0, len(nodes))

	for _, n := range nodes {
		iface := &Interface{
			ID:   sim.InterfaceID(len(g.interfaces)),
			Node: n,
			Link: id,
		}
		g.interfaces = append(g.interfaces, iface)
		g.nodes[n].Interfaces = append(g.nodes[n].Interfaces, iface.ID)
		ifaces = append(ifaces, iface.ID)
	}

	l, err := link.New(id, kind, bandwidth, delay, ifaces)
	if err != nil {
		panic(err)
	}

	g.links = append(g.links, l)

	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			g.connectivity.SetEdge(g.connectivity.NewEdge(
				simple.Node(a), simple.Node(b)))
		}
	}

	g.version++

	g.logger.Debug("link created",
		zap.Stringer("link", id),
		zap.Stringer("kind", kind),
		zap.Stringer("bandwidth", bandwidth),
		zap.Float64("delay", delay),
		zap.Int("nodes", len(nodes)))

	return id, nil
}

// SetAddress records the address assigned to an interface.
func (g *Graph) SetAddress(id sim.InterfaceID, addr netip.Addr) error {
	iface := g.Interface(id)
	if iface == nil {
		return fmt.Errorf("%w: interface %s", sim.ErrUnknownNode, id)
	}

	iface.Address = addr

	return nil
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id sim.NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}

	return g.nodes[id]
}

// Interface returns the interface with the given ID, or nil.
func (g *Graph) Interface(id sim.InterfaceID) *Interface {
	if id < 0 || int(id) >= len(g.interfaces) {
		return nil
	}

	return g.interfaces[id]
}

// Link returns the link with the given ID, or nil.
func (g *Graph) Link(id sim.LinkID) *link.Link {
	if id < 0 || int(id) >= len(g.links) {
		return nil
	}

	return g.links[id]
}

// Nodes returns every node in ID order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Links returns every link in ID order.
func (g *Graph) Links() []*link.Link {
	return g.links
}

// Interfaces returns every interface in ID order.
func (g *Graph) Interfaces() []*Interface {
	return g.interfaces
}

// Neighbors returns the nodes sharing a link with the node, in ascending ID
// order.
func (g *Graph) Neighbors(id sim.NodeID) []sim.NodeID {
	if g.Node(id) == nil {
		return nil
	}

	nodes := graph.NodesOf(g.connectivity.From(int64(id)))
	neighbors := make([]sim.NodeID, 0, len(nodes))

	for _, n := range nodes {
		neighbors = append(neighbors, sim.NodeID(n.ID()))
	}

	slices.Sort(neighbors)

	return neighbors
}

// InterfaceOn returns the node's interface on the link.
func (g *Graph) InterfaceOn(
	node sim.NodeID,
	linkID sim.LinkID,
) (sim.InterfaceID, bool) {
	n := g.Node(node)
	if n == nil {
		return sim.NoInterface, false
	}

	for _, i := range n.Interfaces {
		if g.interfaces[i].Link == linkID {
			return i, true
		}
	}

	return sim.NoInterface, false
}

// InterfaceToward returns the node's interface on the lowest-numbered link
// that also reaches the neighbor.
func (g *Graph) InterfaceToward(
	node, neighbor sim.NodeID,
) (sim.InterfaceID, bool) {
	n := g.Node(node)
	if n == nil || g.Node(neighbor) == nil {
		return sim.NoInterface, false
	}

	best := sim.NoInterface

	for _, i := range n.Interfaces {
		l := g.interfaces[i].Link
		if _, ok := g.InterfaceOn(neighbor, l); !ok {
			continue
		}

		if best == sim.NoInterface || l < g.interfaces[best].Link {
			best = i
		}
	}

	return best, best != sim.NoInterface
}

// Connectivity exposes the node adjacency as a gonum graph. Node IDs in the
// graph equal sim.NodeID values.
func (g *Graph) Connectivity() graph.Undirected {
	return g.connectivity
}

// Version changes whenever the graph is mutated.
func (g *Graph) Version() uint64 {
	return g.version
}
