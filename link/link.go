// Package link models the transmission channels that connect node
// interfaces.
package link

import (
	"fmt"
	"math"

	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/timing"
)

// Kind tells how a link distributes packets among its interfaces.
type Kind int

const (
	// PointToPoint links connect exactly two interfaces.
	PointToPoint Kind = iota
	// Shared links connect two or more interfaces on a common medium.
	Shared
)

func (k Kind) String() string {
	switch k {
	case PointToPoint:
		return "p2p"
	case Shared:
		return "shared"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts "p2p"/"point-to-point" and "shared"/"csma".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "p2p", "point-to-point":
		return PointToPoint, nil
	case "shared", "csma":
		return Shared, nil
	default:
		return 0, fmt.Errorf("%w: unknown link kind %q",
			sim.ErrInvalidLinkParams, s)
	}
}

// A Link is a transmission channel. Its parameters never change after
// creation.
type Link struct {
	ID         sim.LinkID
	Kind       Kind
	Bandwidth  sim.DataRate
	Delay      timing.VTimeInSec
	Interfaces []sim.InterfaceID
}

// New validates the parameters and creates a link over the given interfaces.
func New(
	id sim.LinkID,
	kind Kind,
	bandwidth sim.DataRate,
	delay timing.VTimeInSec,
	interfaces []sim.InterfaceID,
) (*Link, error) {
	if err := CheckParams(kind, bandwidth, delay, len(interfaces)); err != nil {
		return nil, err
	}

	return &Link{
		ID:         id,
		Kind:       kind,
		Bandwidth:  bandwidth,
		Delay:      delay,
		Interfaces: append([]sim.InterfaceID(nil), interfaces...),
	}, nil
}

// CheckParams validates link parameters before any interface is created.
func CheckParams(
	kind Kind,
	bandwidth sim.DataRate,
	delay timing.VTimeInSec,
	endpoints int,
) error {
	switch kind {
	case PointToPoint:
		if endpoints != 2 {
			return fmt.Errorf("%w: point-to-point link needs 2 nodes, got %d",
				sim.ErrInvalidLinkArity, endpoints)
		}
	case Shared:
		if endpoints < 2 {
			return fmt.Errorf("%w: shared link needs at least 2 nodes, got %d",
				sim.ErrInvalidLinkArity, endpoints)
		}
	default:
		return fmt.Errorf("%w: unknown link kind %d",
			sim.ErrInvalidLinkParams, int(kind))
	}

	if bandwidth == 0 {
		return fmt.Errorf("%w: bandwidth must be positive",
			sim.ErrInvalidLinkParams)
	}

	if !(delay >= 0) || math.IsInf(float64(delay), 1) {
		return fmt.Errorf("%w: delay %v is not a finite non-negative time",
			sim.ErrInvalidLinkParams, delay)
	}

	return nil
}

// TransmitDelay is the time between a send of sizeBytes starting and its
// arrival at the far end: serialization plus propagation.
func (l *Link) TransmitDelay(sizeBytes int) timing.VTimeInSec {
	return l.Bandwidth.TransferTime(sizeBytes) + l.Delay
}

// Attached tells if the interface belongs to the link.
func (l *Link) Attached(iface sim.InterfaceID) bool {
	for _, i := range l.Interfaces {
		if i == iface {
			return true
		}
	}

	return false
}

// Receivers returns the interfaces that receive a packet sent by from.
//
// On a point-to-point link that is the far end. On a shared link, a packet
// whose next hop is an attached interface reaches only that interface. Any
// other target, such as sim.NoInterface, broadcasts to every interface but
// the sender.
func (l *Link) Receivers(from, target sim.InterfaceID) []sim.InterfaceID {
	if l.Kind == PointToPoint {
		if l.Interfaces[0] == from {
			return []sim.InterfaceID{l.Interfaces[1]}
		}

		return []sim.InterfaceID{l.Interfaces[0]}
	}

	if target != from && l.Attached(target) {
		return []sim.InterfaceID{target}
	}

	receivers := make([]sim.InterfaceID, 0, len(l.Interfaces)-1)
	for _, i := range l.Interfaces {
		if i != from {
			receivers = append(receivers, i)
		}
	}

	return receivers
}

func (l *Link) String() string {
	return fmt.Sprintf("%s(%s %s %gs %d ifaces)",
		l.ID, l.Kind, l.Bandwidth, l.Delay, len(l.Interfaces))
}
