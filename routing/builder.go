package routing

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/sarchlab/netsim/sim"
)

// Topology is what the builder needs to know about the network.
type Topology interface {
	Connectivity() graph.Undirected
	Neighbors(node sim.NodeID) []sim.NodeID
	InterfaceToward(node, neighbor sim.NodeID) (sim.InterfaceID, bool)
}

// Pair is an ordered source/destination pair.
type Pair struct {
	Src, Dst sim.NodeID
}

// UnreachableError lists every pair of nodes without a path. It matches
// sim.ErrUnreachableDestination.
type UnreachableError struct {
	Pairs []Pair
}

const maxListedPairs = 8

func (e *UnreachableError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %d pairs", sim.ErrUnreachableDestination, len(e.Pairs))

	for i, p := range e.Pairs {
		if i == maxListedPairs {
			b.WriteString(", ...")
			break
		}

		fmt.Fprintf(&b, ", %s->%s", p.Src, p.Dst)
	}

	return b.String()
}

func (e *UnreachableError) Is(target error) bool {
	return target == sim.ErrUnreachableDestination
}

// Build computes minimum-hop routes between every pair of nodes. Among equal
// length paths the one through the lowest neighbor IDs wins, so repeated
// builds over the same topology give equal tables.
//
// If some pairs are unreachable, Build still returns the tables for the rest
// together with an *UnreachableError.
func Build(t Topology) (Tables, error) {
	nodes := sortedNodes(t.Connectivity())

	tables := make(Tables, len(nodes))
	for i := range tables {
		tables[i] = NewTable()
	}

	for _, src := range nodes {
		for dst, hop := range firstHops(t, src) {
			iface, ok := t.InterfaceToward(src, hop)
			if !ok {
				panic(fmt.Sprintf("%s and %s are adjacent without a link",
					src, hop))
			}

			tables[src].DefineRoute(Entry{
				Destination: dst,
				Interface:   iface,
				NextHop:     hop,
			})
		}
	}

	if pairs := unreachablePairs(t.Connectivity()); len(pairs) > 0 {
		return tables, &UnreachableError{Pairs: pairs}
	}

	return tables, nil
}

func sortedNodes(g graph.Graph) []sim.NodeID {
	gNodes := graph.NodesOf(g.Nodes())

	nodes := make([]sim.NodeID, 0, len(gNodes))
	for _, n := range gNodes {
		nodes = append(nodes, sim.NodeID(n.ID()))
	}

	slices.Sort(nodes)

	for i, n := range nodes {
		if int(n) != i {
			panic("node IDs are not dense")
		}
	}

	return nodes
}

// firstHops runs a breadth-first search from src and returns, for every
// reachable destination, the neighbor of src the path starts with.
func firstHops(t Topology, src sim.NodeID) map[sim.NodeID]sim.NodeID {
	hops := make(map[sim.NodeID]sim.NodeID)
	visited := map[sim.NodeID]bool{src: true}
	queue := []sim.NodeID{src}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		for _, next := range t.Neighbors(n) {
			if visited[next] {
				continue
			}

			visited[next] = true

			if n == src {
				hops[next] = next
			} else {
				hops[next] = hops[n]
			}

			queue = append(queue, next)
		}
	}

	return hops
}

func unreachablePairs(g graph.Undirected) []Pair {
	components := topo.ConnectedComponents(g)
	if len(components) <= 1 {
		return nil
	}

	componentOf := make(map[sim.NodeID]int)
	for i, c := range components {
		for _, n := range c {
			componentOf[sim.NodeID(n.ID())] = i
		}
	}

	nodes := sortedNodes(g)

	var pairs []Pair

	for _, src := range nodes {
		for _, dst := range nodes {
			if componentOf[src] != componentOf[dst] {
				pairs = append(pairs, Pair{Src: src, Dst: dst})
			}
		}
	}

	return pairs
}
