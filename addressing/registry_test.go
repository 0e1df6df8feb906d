package addressing

import (
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/netsim/sim"
)

var _ = Describe("Registry", func() {
	var r *Registry

	addr := netip.MustParseAddr

	BeforeEach(func() {
		r = NewRegistry()
	})

	It("should hand out hosts in interface order", func() {
		addrs, err := r.Assign(0, []sim.InterfaceID{3, 4, 5},
			addr("192.138.1.0"), 24)

		Expect(err).NotTo(HaveOccurred())
		Expect(addrs).To(Equal([]netip.Addr{
			addr("192.138.1.1"), addr("192.138.1.2"), addr("192.138.1.3"),
		}))

		t, ok := r.Resolve(addr("192.138.1.2"))
		Expect(ok).To(BeTrue())
		Expect(t).To(Equal(Target{Link: 0, Interface: 4}))
	})

	It("should resolve the broadcast address to the link", func() {
		_, err := r.Assign(2, []sim.InterfaceID{0, 1}, addr("10.0.1.0"), 30)
		Expect(err).NotTo(HaveOccurred())

		t, ok := r.Resolve(addr("10.0.1.3"))
		Expect(ok).To(BeTrue())
		Expect(t.Broadcast).To(BeTrue())
		Expect(t.Link).To(Equal(sim.LinkID(2)))

		b, ok := r.Broadcast(2)
		Expect(ok).To(BeTrue())
		Expect(b).To(Equal(addr("10.0.1.3")))
	})

	It("should not resolve unknown addresses", func() {
		_, ok := r.Resolve(addr("10.9.9.9"))
		Expect(ok).To(BeFalse())
	})

	It("should fill a /30 with two hosts", func() {
		_, err := r.Assign(0, []sim.InterfaceID{0, 1}, addr("10.0.1.0"), 30)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should report exhaustion", func() {
		_, err := r.Assign(0, []sim.InterfaceID{0, 1, 2},
			addr("10.0.1.0"), 30)
		Expect(err).To(MatchError(sim.ErrAddressSpaceExhausted))
		Expect(err).To(MatchError(sim.ErrConfiguration))
		Expect(r.Subnets()).To(BeEmpty())
	})

	It("should report overlapping subnets", func() {
		_, err := r.Assign(0, []sim.InterfaceID{0, 1}, addr("10.0.0.0"), 16)
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Assign(1, []sim.InterfaceID{2, 3}, addr("10.0.4.0"), 24)
		Expect(err).To(MatchError(sim.ErrOverlappingSubnet))
	})

	It("should accept adjacent subnets", func() {
		_, err := r.Assign(0, []sim.InterfaceID{0, 1}, addr("10.0.1.0"), 30)
		Expect(err).NotTo(HaveOccurred())
		_, err = r.Assign(1, []sim.InterfaceID{2, 3}, addr("10.0.1.4"), 30)
		Expect(err).NotTo(HaveOccurred())

		Expect(r.Subnets()).To(Equal([]netip.Prefix{
			netip.MustParsePrefix("10.0.1.0/30"),
			netip.MustParsePrefix("10.0.1.4/30"),
		}))
	})

	It("should refuse to address a link twice", func() {
		_, err := r.Assign(0, []sim.InterfaceID{0, 1}, addr("10.0.1.0"), 30)
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Assign(0, []sim.InterfaceID{0, 1}, addr("10.0.2.0"), 30)
		Expect(err).To(MatchError(sim.ErrLinkAlreadyAddressed))
	})

	It("should reject a base with host bits", func() {
		_, err := r.Assign(0, []sim.InterfaceID{0, 1}, addr("10.0.1.1"), 24)
		Expect(err).To(MatchError(sim.ErrInvalidSubnet))
	})

	It("should reject a bad prefix length", func() {
		_, err := r.Assign(0, []sim.InterfaceID{0, 1}, addr("10.0.1.0"), 33)
		Expect(err).To(MatchError(sim.ErrInvalidSubnet))
	})

	It("should address IPv6 links", func() {
		addrs, err := r.Assign(0, []sim.InterfaceID{0, 1},
			addr("2001:db8::"), 64)

		Expect(err).NotTo(HaveOccurred())
		Expect(addrs[1]).To(Equal(addr("2001:db8::2")))

		_, ok := r.Broadcast(0)
		Expect(ok).To(BeFalse())
	})
})
