package topology

import (
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/netsim/link"
	"github.com/sarchlab/netsim/sim"
)

var _ = Describe("Graph", func() {
	var (
		g          *Graph
		n0, n1, n2 sim.NodeID
	)

	BeforeEach(func() {
		g = New(nil)
		n0 = g.CreateNode()
		n1 = g.CreateNode()
		n2 = g.CreateNode()
	})

	It("should assign dense node IDs", func() {
		Expect([]sim.NodeID{n0, n1, n2}).To(Equal([]sim.NodeID{0, 1, 2}))
		Expect(g.Nodes()).To(HaveLen(3))
	})

	It("should create one interface per attached node", func() {
		l, err := g.CreateLink(link.Shared, 25*sim.Mbps, 10e-6, n2, n0, n1)
		Expect(err).NotTo(HaveOccurred())

		Expect(g.Link(l).Interfaces).To(Equal([]sim.InterfaceID{0, 1, 2}))
		Expect(g.Interface(0).Node).To(Equal(n2))
		Expect(g.Node(n0).Interfaces).To(Equal([]sim.InterfaceID{1}))
	})

	It("should list neighbors in ascending order", func() {
		_, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0, n1, n2)
		Expect(err).NotTo(HaveOccurred())
		_, err = g.CreateLink(link.PointToPoint, sim.Mbps, 0, n1, n0)
		Expect(err).NotTo(HaveOccurred())

		Expect(g.Neighbors(n1)).To(Equal([]sim.NodeID{n0, n2}))
		Expect(g.Neighbors(n0)).To(Equal([]sim.NodeID{n1}))
	})

	It("should pick the lowest link among parallel links", func() {
		_, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0, n0, n2)
		Expect(err).NotTo(HaveOccurred())
		l1, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0, n1, n0)
		Expect(err).NotTo(HaveOccurred())
		l2, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0, n0, n1)
		Expect(err).NotTo(HaveOccurred())

		iface, ok := g.InterfaceToward(n0, n1)
		Expect(ok).To(BeTrue())
		Expect(g.Interface(iface).Link).To(Equal(l1))

		iface, ok = g.InterfaceOn(n0, l2)
		Expect(ok).To(BeTrue())
		Expect(g.Interface(iface).Link).To(Equal(l2))
	})

	It("should report missing adjacency", func() {
		_, ok := g.InterfaceToward(n0, n2)
		Expect(ok).To(BeFalse())
	})

	It("should reject unknown nodes", func() {
		_, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0, n0, 9)
		Expect(err).To(MatchError(sim.ErrUnknownNode))
	})

	It("should reject a node attached twice", func() {
		_, err := g.CreateLink(link.Shared, sim.Mbps, 0, n0, n1, n0)
		Expect(err).To(MatchError(sim.ErrInvalidLinkArity))
	})

	It("should reject bad arity without creating interfaces", func() {
		_, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0, n0, n1, n2)
		Expect(err).To(MatchError(sim.ErrInvalidLinkArity))
		Expect(g.Interfaces()).To(BeEmpty())
		Expect(g.Links()).To(BeEmpty())
	})

	It("should bump the version on mutation", func() {
		v := g.Version()
		_, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0, n0, n1)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Version()).To(BeNumerically(">", v))

		v = g.Version()
		g.CreateNode()
		Expect(g.Version()).To(BeNumerically(">", v))
	})

	It("should record addresses", func() {
		_, err := g.CreateLink(link.PointToPoint, sim.Mbps, 0, n0, n1)
		Expect(err).NotTo(HaveOccurred())

		addr := netip.MustParseAddr("10.0.1.1")
		Expect(g.SetAddress(0, addr)).To(Succeed())
		Expect(g.Interface(0).Address).To(Equal(addr))
	})

	It("should mirror connectivity into the graph", func() {
		_, err := g.CreateLink(link.Shared, sim.Mbps, 0, n0, n1, n2)
		Expect(err).NotTo(HaveOccurred())

		c := g.Connectivity()
		Expect(c.HasEdgeBetween(int64(n0), int64(n2))).To(BeTrue())
		Expect(c.HasEdgeBetween(int64(n1), int64(n2))).To(BeTrue())
	})
})
