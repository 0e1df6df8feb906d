// Package network moves packets between nodes. It turns Send events into
// Receive events on the far side of a link and forwards packets that are not
// addressed to the node they arrive at.
package network

import (
	"fmt"
	"net/netip"

	"go.uber.org/zap"

	"github.com/sarchlab/netsim/addressing"
	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/routing"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/tracing"
)

// An Originator owns the applications that generate packets.
type Originator interface {
	// Departing is called when a packet of the application is about to
	// leave its node. It returns false if the application may no longer
	// send, in which case the packet is suppressed.
	Departing(app sim.AppID, pkt sim.Packet, now timing.VTimeInSec) bool
}

// A Receiver takes the packets that reach their destination node.
type Receiver interface {
	// Receive hands over a packet and returns the application that took it,
	// or sim.NoApp, together with the outcome.
	Receive(
		node sim.NodeID,
		iface sim.InterfaceID,
		pkt sim.Packet,
		now timing.VTimeInSec,
	) (sim.AppID, sim.Outcome)
}

// Routes finds the next hop from one node toward another.
type Routes interface {
	Lookup(src, dst sim.NodeID) (routing.Entry, bool)
}

// Handler handles SendEvent and ReceiveEvent.
type Handler struct {
	*hooking.HookableBase

	engine   timing.EventScheduler
	topo     *topology.Graph
	registry *addressing.Registry
	logger   *zap.Logger

	routes     Routes
	originator Originator
	receiver   Receiver
}

// NewHandler creates a handler over the network elements. Routes and
// applications are attached later with SetRoutes and Attach.
func NewHandler(
	engine timing.EventScheduler,
	topo *topology.Graph,
	registry *addressing.Registry,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		HookableBase: hooking.NewHookableBase(),
		engine:       engine,
		topo:         topo,
		registry:     registry,
		logger:       logger,
	}
}

// SetRoutes replaces the routes packets follow.
func (h *Handler) SetRoutes(routes Routes) {
	h.routes = routes
}

// Attach connects the handler to the applications.
func (h *Handler) Attach(o Originator, r Receiver) {
	h.originator = o
	h.receiver = r
}

// Handle dispatches network events.
func (h *Handler) Handle(event any) error {
	switch e := event.(type) {
	case *sim.SendEvent:
		return h.send(e)
	case *sim.ReceiveEvent:
		return h.receive(e)
	default:
		return fmt.Errorf("network: unknown event type %T", event)
	}
}

func (h *Handler) send(e *sim.SendEvent) error {
	now := h.engine.CurrentTime()
	pkt := e.Packet

	if e.Origin != sim.NoApp &&
		(h.originator == nil || !h.originator.Departing(e.Origin, pkt, now)) {
		h.record(now, tracing.KindSend, e.Node, sim.NoInterface, e.Origin,
			pkt, sim.OutcomeSuppressed)
		return nil
	}

	target, ok := h.registry.Resolve(pkt.Dst.Addr())
	if !ok {
		h.drop(now, e, "unknown destination")
		return nil
	}

	if target.Broadcast {
		out, attached := h.topo.InterfaceOn(e.Node, target.Link)
		if !attached {
			h.drop(now, e, "broadcast on a link the node is not attached to")
			return nil
		}

		h.transmit(now, e, out, sim.NoInterface)

		return nil
	}

	dstIface := h.topo.Interface(target.Interface)
	if dstIface.Node == e.Node {
		h.loopback(now, e, dstIface)
		return nil
	}

	if h.routes == nil {
		return fmt.Errorf("network: %w", sim.ErrRoutesNotBuilt)
	}

	entry, ok := h.routes.Lookup(e.Node, dstIface.Node)
	if !ok {
		h.drop(now, e, "no route")
		return nil
	}

	out := h.topo.Interface(entry.Interface)

	nextHop, ok := h.topo.InterfaceOn(entry.NextHop, out.Link)
	if !ok {
		return fmt.Errorf("network: route %s->%s leaves through %s, "+
			"which does not reach %s",
			e.Node, dstIface.Node, out.ID, entry.NextHop)
	}

	h.transmit(now, e, out.ID, nextHop)

	return nil
}

func (h *Handler) transmit(
	now timing.VTimeInSec,
	e *sim.SendEvent,
	out sim.InterfaceID,
	target sim.InterfaceID,
) {
	iface := h.topo.Interface(out)
	l := h.topo.Link(iface.Link)
	pkt := withSourceFrom(e.Packet, iface.Address)
	arrival := now + l.TransmitDelay(pkt.Size)

	for _, r := range l.Receivers(out, target) {
		h.engine.Schedule(timing.ScheduledEvent{
			Event: &sim.ReceiveEvent{
				Packet:    pkt,
				Interface: r,
				Node:      h.topo.Interface(r).Node,
			},
			Time:    arrival,
			Handler: h,
		})
	}

	h.record(now, tracing.KindSend, e.Node, out, e.Origin, pkt,
		sim.OutcomeDelivered)
}

func (h *Handler) loopback(
	now timing.VTimeInSec,
	e *sim.SendEvent,
	iface *topology.Interface,
) {
	pkt := withSourceFrom(e.Packet, iface.Address)

	h.engine.Schedule(timing.ScheduledEvent{
		Event: &sim.ReceiveEvent{
			Packet:    pkt,
			Interface: iface.ID,
			Node:      iface.Node,
		},
		Time:    now,
		Handler: h,
	})

	h.record(now, tracing.KindSend, e.Node, iface.ID, e.Origin, pkt,
		sim.OutcomeDelivered)
}

func (h *Handler) drop(now timing.VTimeInSec, e *sim.SendEvent, reason string) {
	h.logger.Debug("packet dropped",
		zap.Float64("time", now),
		zap.Stringer("node", e.Node),
		zap.Stringer("packet", e.Packet),
		zap.String("reason", reason))

	h.record(now, tracing.KindSend, e.Node, sim.NoInterface, e.Origin,
		e.Packet, sim.OutcomeDropped)
}

func (h *Handler) receive(e *sim.ReceiveEvent) error {
	now := h.engine.CurrentTime()
	pkt := e.Packet

	if h.addressedTo(e.Node, e.Interface, pkt.Dst.Addr()) {
		app, outcome := sim.NoApp, sim.OutcomeDropped
		if h.receiver != nil {
			app, outcome = h.receiver.Receive(e.Node, e.Interface, pkt, now)
		}

		h.record(now, tracing.KindReceive, e.Node, e.Interface, app, pkt,
			outcome)

		return nil
	}

	fwd := pkt.Forwarded()
	if fwd.TTL == 0 {
		h.logger.Debug("packet dropped",
			zap.Float64("time", now),
			zap.Stringer("node", e.Node),
			zap.Stringer("packet", pkt),
			zap.String("reason", "ttl exhausted"))

		h.record(now, tracing.KindReceive, e.Node, e.Interface, sim.NoApp,
			pkt, sim.OutcomeDropped)

		return nil
	}

	h.record(now, tracing.KindReceive, e.Node, e.Interface, sim.NoApp, pkt,
		sim.OutcomeForwarded)

	h.engine.Schedule(timing.ScheduledEvent{
		Event: &sim.SendEvent{
			Packet: fwd,
			Node:   e.Node,
			Origin: sim.NoApp,
		},
		Time:    now,
		Handler: h,
	})

	return nil
}

// addressedTo tells if dst names the node: one of its interface addresses or
// the broadcast address of the link the packet arrived on.
func (h *Handler) addressedTo(
	node sim.NodeID,
	arrival sim.InterfaceID,
	dst netip.Addr,
) bool {
	target, ok := h.registry.Resolve(dst)
	if !ok {
		return false
	}

	if target.Broadcast {
		return h.topo.Interface(arrival).Link == target.Link
	}

	return h.topo.Interface(target.Interface).Node == node
}

func (h *Handler) record(
	now timing.VTimeInSec,
	kind tracing.Kind,
	node sim.NodeID,
	iface sim.InterfaceID,
	app sim.AppID,
	pkt sim.Packet,
	outcome sim.Outcome,
) {
	tracing.Emit(h, tracing.PacketRecord(now, kind, node, iface, app, pkt,
		outcome))
}

func withSourceFrom(pkt sim.Packet, addr netip.Addr) sim.Packet {
	src := pkt.Src.Addr()
	if src.IsValid() && !src.IsUnspecified() {
		return pkt
	}

	return pkt.WithSource(addr)
}
