// Package sim holds the value types shared by every part of the network
// simulator: identifiers, packets, event payloads and the error taxonomy.
package sim

import "strconv"

// NodeID identifies a node. IDs are dense and assigned in creation order.
type NodeID int

// InterfaceID identifies an interface, i.e. a node's attachment to a link.
type InterfaceID int

// LinkID identifies a link.
type LinkID int

// AppID identifies an application.
type AppID int

// NoApp marks packets that no application originated, such as forwarded
// traffic.
const NoApp AppID = -1

// NoInterface marks trace records that are not tied to an interface.
const NoInterface InterfaceID = -1

func (id NodeID) String() string { return "n" + strconv.Itoa(int(id)) }

func (id InterfaceID) String() string { return "if" + strconv.Itoa(int(id)) }

func (id LinkID) String() string { return "l" + strconv.Itoa(int(id)) }

func (id AppID) String() string {
	if id == NoApp {
		return "-"
	}

	return "app" + strconv.Itoa(int(id))
}
