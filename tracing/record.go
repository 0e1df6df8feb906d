// Package tracing turns what happens to packets and applications into
// timestamped trace records and hands them to writers.
package tracing

import (
	"fmt"
	"net/netip"

	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/timing"
)

// Kind is the kind of event a record describes.
type Kind int

// Record kinds.
const (
	KindSend Kind = iota
	KindReceive
	KindAppStart
	KindAppStop
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindReceive:
		return "receive"
	case KindAppStart:
		return "app-start"
	case KindAppStop:
		return "app-stop"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// A Record is one line of the trace.
type Record struct {
	Time      timing.VTimeInSec
	Kind      Kind
	Node      sim.NodeID
	Interface sim.InterfaceID
	App       sim.AppID

	PacketID   sim.PacketID
	PacketSize int
	Protocol   sim.Protocol
	Src        netip.AddrPort
	Dst        netip.AddrPort

	Outcome sim.Outcome
}

// IsPacket tells if the record is about a packet rather than an application.
func (r Record) IsPacket() bool {
	return r.Kind == KindSend || r.Kind == KindReceive
}

func (r Record) String() string {
	if !r.IsPacket() {
		return fmt.Sprintf("%.9f %s %s %s", r.Time, r.Kind, r.Node, r.App)
	}

	return fmt.Sprintf("%.9f %s %s %s %s pkt%d %s %dB %s>%s %s",
		r.Time, r.Kind, r.Node, r.Interface, r.App,
		r.PacketID, r.Protocol, r.PacketSize, r.Src, r.Dst, r.Outcome)
}

// PacketRecord describes what happened to a packet at a node.
func PacketRecord(
	now timing.VTimeInSec,
	kind Kind,
	node sim.NodeID,
	iface sim.InterfaceID,
	app sim.AppID,
	pkt sim.Packet,
	outcome sim.Outcome,
) Record {
	return Record{
		Time:       now,
		Kind:       kind,
		Node:       node,
		Interface:  iface,
		App:        app,
		PacketID:   pkt.ID,
		PacketSize: pkt.Size,
		Protocol:   pkt.Protocol,
		Src:        pkt.Src,
		Dst:        pkt.Dst,
		Outcome:    outcome,
	}
}

// AppRecord describes an application starting or stopping.
func AppRecord(
	now timing.VTimeInSec,
	kind Kind,
	node sim.NodeID,
	app sim.AppID,
) Record {
	return Record{
		Time:      now,
		Kind:      kind,
		Node:      node,
		Interface: sim.NoInterface,
		App:       app,
		Outcome:   sim.OutcomeNone,
	}
}

// HookPosRecord is where domains publish trace records.
var HookPosRecord = &hooking.HookPos{Name: "Record"}

// Emit publishes a record to the hooks of a domain.
func Emit(domain hooking.Hookable, rec Record) {
	if len(domain.Hooks()) == 0 {
		return
	}

	domain.InvokeHook(hooking.HookCtx{
		Domain: domain,
		Pos:    HookPosRecord,
		Item:   rec,
	})
}
