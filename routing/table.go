// Package routing computes the next-hop tables that packets follow across
// multiple links.
package routing

import (
	"slices"

	"github.com/sarchlab/netsim/sim"
)

// An Entry tells a node how to reach Destination: leave through Interface
// toward the neighbor NextHop.
type Entry struct {
	Destination sim.NodeID
	Interface   sim.InterfaceID
	NextHop     sim.NodeID
}

// Table is the routing table of one node.
type Table interface {
	NextHop(dst sim.NodeID) (Entry, bool)
	DefineRoute(entry Entry)
	Entries() []Entry
}

// NewTable creates an empty Table.
func NewTable() Table {
	t := &table{}
	t.t = make(map[sim.NodeID]Entry)

	return t
}

type table struct {
	t map[sim.NodeID]Entry
}

func (t table) NextHop(dst sim.NodeID) (Entry, bool) {
	e, found := t.t[dst]
	return e, found
}

func (t *table) DefineRoute(entry Entry) {
	t.t[entry.Destination] = entry
}

// Entries lists the routes ordered by destination.
func (t table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.t))
	for _, e := range t.t {
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return int(a.Destination) - int(b.Destination)
	})

	return entries
}

// Tables holds one Table per node, indexed by node ID.
type Tables []Table

// Lookup finds the route from src to dst.
func (ts Tables) Lookup(src, dst sim.NodeID) (Entry, bool) {
	if src < 0 || int(src) >= len(ts) {
		return Entry{}, false
	}

	return ts[src].NextHop(dst)
}
