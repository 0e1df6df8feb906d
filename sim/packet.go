package sim

import (
	"fmt"
	"net/netip"
)

// Protocol tells how a packet is carried end to end.
type Protocol int

const (
	// Datagram is the UDP-like unreliable datagram protocol.
	Datagram Protocol = iota
	// Stream is the TCP-like reliable stream protocol. Reliability is not
	// modeled; stream packets are simply counted by their receivers.
	Stream
)

func (p Protocol) String() string {
	switch p {
	case Datagram:
		return "udp"
	case Stream:
		return "tcp"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol accepts "udp"/"datagram" and "tcp"/"stream".
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "udp", "datagram":
		return Datagram, nil
	case "tcp", "stream":
		return Stream, nil
	default:
		return 0, fmt.Errorf("%w: unknown protocol %q", ErrConfiguration, s)
	}
}

// PacketID identifies a packet within one simulation.
type PacketID uint64

// DefaultTTL is the hop budget a packet starts with.
const DefaultTTL = 64

// Packet is an abstract packet. It is a value: helpers return modified copies
// and never change the receiver.
type Packet struct {
	ID       PacketID
	Size     int
	Protocol Protocol

	// Marker is an opaque payload marker. It is carried, never interpreted.
	Marker uint64

	Src netip.AddrPort
	Dst netip.AddrPort

	// Seq numbers the packets of one sending application from 0.
	Seq uint32
	TTL uint8
}

// WithSource returns a copy of p with the source address set, keeping the
// source port.
func (p Packet) WithSource(addr netip.Addr) Packet {
	p.Src = netip.AddrPortFrom(addr, p.Src.Port())
	return p
}

// Forwarded returns a copy of p with one hop consumed.
func (p Packet) Forwarded() Packet {
	if p.TTL > 0 {
		p.TTL--
	}

	return p
}

// Reply returns a packet travelling back to p's source with the same size and
// marker.
func (p Packet) Reply(id PacketID) Packet {
	return Packet{
		ID:       id,
		Size:     p.Size,
		Protocol: p.Protocol,
		Marker:   p.Marker,
		Src:      p.Dst,
		Dst:      p.Src,
		Seq:      p.Seq,
		TTL:      DefaultTTL,
	}
}

func (p Packet) String() string {
	return fmt.Sprintf("pkt%d[%s %dB %s->%s]",
		p.ID, p.Protocol, p.Size, p.Src, p.Dst)
}
