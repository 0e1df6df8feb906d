package routing_test

import (
	"errors"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/netsim/link"
	"github.com/sarchlab/netsim/routing"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/topology"
)

// buildNineNodes creates two LANs joined by a chain of point-to-point links:
//
//	LAN {0,1,2}, 1-3, 3-6, 4-5, 5-6, LAN {6,7,8}
func buildNineNodes() *topology.Graph {
	g := topology.New(nil)
	for range 9 {
		g.CreateNode()
	}

	mustLink := func(kind link.Kind, nodes ...sim.NodeID) {
		_, err := g.CreateLink(kind, 80*sim.Mbps, 5e-6, nodes...)
		Expect(err).NotTo(HaveOccurred())
	}

	mustLink(link.Shared, 0, 1, 2)
	mustLink(link.Shared, 6, 7, 8)
	mustLink(link.PointToPoint, 1, 3)
	mustLink(link.PointToPoint, 3, 6)
	mustLink(link.PointToPoint, 4, 5)
	mustLink(link.PointToPoint, 5, 6)

	return g
}

func entriesOf(ts routing.Tables) [][]routing.Entry {
	out := make([][]routing.Entry, len(ts))
	for i, t := range ts {
		out[i] = t.Entries()
	}

	return out
}

var _ = Describe("Build", func() {
	It("should route across multiple hops", func() {
		g := buildNineNodes()

		tables, err := routing.Build(g)
		Expect(err).NotTo(HaveOccurred())

		path := []sim.NodeID{4}
		for cur := sim.NodeID(4); cur != 2; {
			e, ok := tables.Lookup(cur, 2)
			Expect(ok).To(BeTrue())
			Expect(g.Interface(e.Interface).Node).To(Equal(cur))

			cur = e.NextHop
			path = append(path, cur)
		}

		Expect(path).To(Equal([]sim.NodeID{4, 5, 6, 3, 1, 2}))
	})

	It("should send shared-link neighbors out of the shared interface", func() {
		g := buildNineNodes()

		tables, err := routing.Build(g)
		Expect(err).NotTo(HaveOccurred())

		e, ok := tables.Lookup(0, 2)
		Expect(ok).To(BeTrue())
		Expect(e.NextHop).To(Equal(sim.NodeID(2)))
		Expect(g.Interface(e.Interface).Link).To(Equal(sim.LinkID(0)))
	})

	It("should not route a node to itself", func() {
		tables, err := routing.Build(buildNineNodes())
		Expect(err).NotTo(HaveOccurred())

		_, ok := tables.Lookup(3, 3)
		Expect(ok).To(BeFalse())
		Expect(tables[3].Entries()).To(HaveLen(8))
	})

	It("should build equal tables twice", func() {
		g := buildNineNodes()

		first, err := routing.Build(g)
		Expect(err).NotTo(HaveOccurred())
		second, err := routing.Build(g)
		Expect(err).NotTo(HaveOccurred())

		diff := cmp.Diff(entriesOf(first), entriesOf(second))
		Expect(diff).To(BeEmpty())
	})

	It("should break ties toward the lowest neighbor", func() {
		g := topology.New(nil)
		for range 4 {
			g.CreateNode()
		}

		for _, pair := range [][2]sim.NodeID{{0, 2}, {0, 1}, {2, 3}, {1, 3}} {
			_, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0,
				pair[0], pair[1])
			Expect(err).NotTo(HaveOccurred())
		}

		tables, err := routing.Build(g)
		Expect(err).NotTo(HaveOccurred())

		e, _ := tables.Lookup(0, 3)
		Expect(e.NextHop).To(Equal(sim.NodeID(1)))
	})

	It("should report unreachable pairs in one batch", func() {
		g := topology.New(nil)
		for range 4 {
			g.CreateNode()
		}

		_, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0, 0, 1)
		Expect(err).NotTo(HaveOccurred())
		_, err = g.CreateLink(link.PointToPoint, sim.Mbps, 0, 2, 3)
		Expect(err).NotTo(HaveOccurred())

		tables, err := routing.Build(g)

		Expect(err).To(MatchError(sim.ErrUnreachableDestination))

		var unreachable *routing.UnreachableError
		Expect(errors.As(err, &unreachable)).To(BeTrue())
		Expect(unreachable.Pairs).To(HaveLen(8))
		Expect(unreachable.Pairs[0]).To(Equal(routing.Pair{Src: 0, Dst: 2}))

		e, ok := tables.Lookup(2, 3)
		Expect(ok).To(BeTrue())
		Expect(e.NextHop).To(Equal(sim.NodeID(3)))
	})
})

var _ = Describe("Table", func() {
	It("should list entries by destination", func() {
		t := routing.NewTable()
		t.DefineRoute(routing.Entry{Destination: 5, Interface: 1, NextHop: 2})
		t.DefineRoute(routing.Entry{Destination: 1, Interface: 0, NextHop: 1})

		Expect(t.Entries()).To(Equal([]routing.Entry{
			{Destination: 1, Interface: 0, NextHop: 1},
			{Destination: 5, Interface: 1, NextHop: 2},
		}))
	})

	It("should override an existing route", func() {
		t := routing.NewTable()
		t.DefineRoute(routing.Entry{Destination: 5, Interface: 1, NextHop: 2})
		t.DefineRoute(routing.Entry{Destination: 5, Interface: 3, NextHop: 4})

		e, ok := t.NextHop(5)
		Expect(ok).To(BeTrue())
		Expect(e.NextHop).To(Equal(sim.NodeID(4)))
	})
})
