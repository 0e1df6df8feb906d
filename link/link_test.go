package link

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/netsim/sim"
)

var _ = Describe("Link", func() {
	Context("point-to-point", func() {
		var l *Link

		BeforeEach(func() {
			var err error
			l, err = New(0, PointToPoint, 80*sim.Mbps, 5e-6,
				[]sim.InterfaceID{4, 7})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should add serialization to propagation", func() {
			Expect(l.TransmitDelay(1500)).
				To(BeNumerically("~", 155e-6, 1e-12))
		})

		It("should deliver to the far end", func() {
			Expect(l.Receivers(4, sim.NoInterface)).
				To(Equal([]sim.InterfaceID{7}))
			Expect(l.Receivers(7, 4)).To(Equal([]sim.InterfaceID{4}))
		})

		It("should reject three endpoints", func() {
			_, err := New(1, PointToPoint, sim.Mbps, 0,
				[]sim.InterfaceID{1, 2, 3})
			Expect(err).To(MatchError(sim.ErrInvalidLinkArity))
			Expect(err).To(MatchError(sim.ErrConfiguration))
		})
	})

	Context("shared", func() {
		var l *Link

		BeforeEach(func() {
			var err error
			l, err = New(1, Shared, 25*sim.Mbps, 10e-6,
				[]sim.InterfaceID{0, 1, 2})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should deliver only to the addressed interface", func() {
			Expect(l.Receivers(0, 1)).To(Equal([]sim.InterfaceID{1}))
		})

		It("should broadcast without a target", func() {
			Expect(l.Receivers(1, sim.NoInterface)).
				To(Equal([]sim.InterfaceID{0, 2}))
		})

		It("should not send back to the sender", func() {
			Expect(l.Receivers(2, 2)).To(Equal([]sim.InterfaceID{0, 1}))
		})

		It("should reject a single endpoint", func() {
			_, err := New(2, Shared, sim.Mbps, 0, []sim.InterfaceID{5})
			Expect(err).To(MatchError(sim.ErrInvalidLinkArity))
		})
	})

	It("should reject zero bandwidth", func() {
		err := CheckParams(PointToPoint, 0, 0, 2)
		Expect(err).To(MatchError(sim.ErrInvalidLinkParams))
	})

	It("should reject negative delay", func() {
		err := CheckParams(Shared, sim.Mbps, -1, 3)
		Expect(err).To(MatchError(sim.ErrInvalidLinkParams))
	})

	It("should reject delays that are not finite", func() {
		err := CheckParams(PointToPoint, sim.Mbps, math.NaN(), 2)
		Expect(err).To(MatchError(sim.ErrInvalidLinkParams))

		err = CheckParams(PointToPoint, sim.Mbps, math.Inf(1), 2)
		Expect(err).To(MatchError(sim.ErrInvalidLinkParams))
	})

	It("should parse kinds", func() {
		k, err := ParseKind("csma")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(Shared))

		_, err = ParseKind("wifi")
		Expect(err).To(MatchError(sim.ErrConfiguration))
	})
})
