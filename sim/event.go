package sim

// SendEvent makes Node put Packet on the wire toward Packet.Dst. Origin names
// the application that generated the packet, or NoApp for forwarded traffic.
type SendEvent struct {
	Packet Packet
	Node   NodeID
	Origin AppID
}

// ReceiveEvent is the arrival of Packet at Interface, which belongs to Node.
type ReceiveEvent struct {
	Packet    Packet
	Interface InterfaceID
	Node      NodeID
}

// AppStartEvent activates an application.
type AppStartEvent struct {
	App AppID
}

// AppStopEvent stops an application for good.
type AppStopEvent struct {
	App AppID
}

// Outcome is what happened to a packet at one trace point.
type Outcome int

const (
	// OutcomeNone is used by records that do not carry a packet.
	OutcomeNone Outcome = iota
	// OutcomeDelivered means the packet was put on the link, or accepted by
	// the application at its destination.
	OutcomeDelivered
	// OutcomeSuppressed means the owning application was not active.
	OutcomeSuppressed
	// OutcomeDropped means nobody could take the packet: no route, no
	// listener, or an exhausted TTL.
	OutcomeDropped
	// OutcomeForwarded means a transit node relayed the packet.
	OutcomeForwarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeDropped:
		return "dropped"
	case OutcomeForwarded:
		return "forwarded"
	default:
		return "unknown"
	}
}
