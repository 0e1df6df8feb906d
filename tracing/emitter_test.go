package tracing

import (
	"errors"
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/sim"
)

func samplePacket() sim.Packet {
	return sim.Packet{
		ID:       7,
		Size:     1500,
		Protocol: sim.Stream,
		Src:      netip.MustParseAddrPort("10.0.3.1:49153"),
		Dst:      netip.MustParseAddrPort("192.138.1.3:2400"),
		TTL:      sim.DefaultTTL,
	}
}

var _ = Describe("Emitter", func() {
	var (
		mockCtrl *gomock.Controller
		writer   *MockWriter
		emitter  *Emitter
		domain   *hooking.HookableBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		writer = NewMockWriter(mockCtrl)
		emitter = NewEmitter(writer)
		domain = hooking.NewHookableBase()
		CollectTrace(domain, emitter)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should keep and forward emitted records", func() {
		rec := PacketRecord(3, KindSend, 4, 6, 3, samplePacket(),
			sim.OutcomeDelivered)

		writer.EXPECT().Write(rec).Return(nil)

		Emit(domain, rec)

		Expect(emitter.Records()).To(Equal([]Record{rec}))
		Expect(emitter.Len()).To(Equal(1))
		Expect(emitter.Count(KindSend, sim.OutcomeDelivered)).To(Equal(1))
		Expect(emitter.Count(KindReceive, sim.OutcomeDelivered)).To(Equal(0))
	})

	It("should report write errors on flush", func() {
		rec := AppRecord(2, KindAppStart, 2, 0)
		failure := errors.New("disk full")

		writer.EXPECT().Write(rec).Return(failure)
		writer.EXPECT().Flush().Return(nil)

		Emit(domain, rec)

		Expect(emitter.Flush()).To(MatchError(failure))
	})

	It("should return the tail of the trace", func() {
		writer.EXPECT().Write(gomock.Any()).Times(3)

		for i := range 3 {
			Emit(domain, AppRecord(float64(i), KindAppStart, 0, sim.AppID(i)))
		}

		tail := emitter.Tail(2)
		Expect(tail).To(HaveLen(2))
		Expect(tail[0].App).To(Equal(sim.AppID(1)))
		Expect(emitter.Tail(10)).To(HaveLen(3))
	})

	It("should ignore other hook positions", func() {
		domain.InvokeHook(hooking.HookCtx{
			Domain: domain,
			Pos:    &hooking.HookPos{Name: "Other"},
			Item:   42,
		})

		Expect(emitter.Len()).To(Equal(0))
	})

	It("should refuse the same writer twice", func() {
		Expect(func() { CollectTrace(domain, emitter) }).To(Panic())
	})
})

var _ = Describe("Filter", func() {
	It("should pass only accepted records", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		writer := NewMockWriter(mockCtrl)
		f := Filter(writer, func(r Record) bool { return r.Node == 3 })

		kept := AppRecord(1, KindAppStop, 3, 0)
		writer.EXPECT().Write(kept).Return(nil)

		Expect(f.Write(AppRecord(1, KindAppStop, 2, 0))).To(Succeed())
		Expect(f.Write(kept)).To(Succeed())
	})
})

var _ = Describe("Emit", func() {
	It("should do nothing without hooks", func() {
		domain := hooking.NewHookableBase()
		Expect(func() {
			Emit(domain, AppRecord(0, KindAppStart, 0, 0))
		}).NotTo(Panic())
	})
})
