// Package traffic implements the applications that generate and consume
// packets: constant-rate and on/off sources, echo servers and packet sinks.
package traffic

import (
	"fmt"
	"math"
	"net/netip"

	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/timing"
)

// Role tells whether an application generates or consumes traffic.
type Role int

const (
	// RoleAuto takes the role from the policy.
	RoleAuto Role = iota
	RoleSource
	RoleSink
)

func (r Role) String() string {
	switch r {
	case RoleAuto:
		return "auto"
	case RoleSource:
		return "source"
	case RoleSink:
		return "sink"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Window is the active period of an application. Stop equal to Start is a
// window that never opens.
type Window struct {
	Start timing.VTimeInSec
	Stop  timing.VTimeInSec
}

// Empty tells if the window has zero duration.
func (w Window) Empty() bool {
	return w.Stop == w.Start
}

// Contains tells if t falls inside the window.
func (w Window) Contains(t timing.VTimeInSec) bool {
	return t >= w.Start && t < w.Stop
}

// Policy decides what an application does.
type Policy interface {
	Role() Role
}

// Config describes an application.
//
// For a source, Address is the destination of its packets. For a sink it is
// the local address to bind; only the port matters.
type Config struct {
	Name     string
	Role     Role
	Node     sim.NodeID
	Address  netip.AddrPort
	Protocol sim.Protocol
	Policy   Policy
	Window   Window
}

// DefaultOnOffRate is used when an on/off source sets neither a data rate nor
// an interval.
const DefaultOnOffRate = 500 * sim.Kbps

// ConstantRate sends PacketSize-byte packets every Interval. If Interval is
// zero it is derived from DataRate.
type ConstantRate struct {
	PacketSize int
	Interval   timing.VTimeInSec
	DataRate   sim.DataRate

	// MaxPackets stops sending after that many packets; 0 means no limit.
	MaxPackets int
	Marker     uint64
}

// Role returns RoleSource.
func (ConstantRate) Role() Role { return RoleSource }

// OnOff alternates between on-periods, during which it sends like
// ConstantRate, and silent off-periods. Period lengths are drawn from the
// random variables. An unset OnTime means one second; an unset OffTime means
// no off-periods.
type OnOff struct {
	PacketSize int
	Interval   timing.VTimeInSec
	DataRate   sim.DataRate
	OnTime     RandomVariable
	OffTime    RandomVariable
	MaxPackets int
	Marker     uint64
}

// Role returns RoleSource.
func (OnOff) Role() Role { return RoleSource }

// Echo counts received packets and answers datagrams with a packet of the
// same size and marker.
type Echo struct{}

// Role returns RoleSink.
func (Echo) Role() Role { return RoleSink }

// PacketSink counts received packets.
type PacketSink struct{}

// Role returns RoleSink.
func (PacketSink) Role() Role { return RoleSink }

func sendInterval(
	size int,
	interval timing.VTimeInSec,
	rate sim.DataRate,
) timing.VTimeInSec {
	if interval > 0 {
		return interval
	}

	return rate.TransferTime(size)
}

// Validate checks the configuration and fills in the derived role.
func (c *Config) Validate() error {
	if c.Policy == nil {
		return fmt.Errorf("%w: %s has no policy", sim.ErrInvalidApplication, c.Name)
	}

	role := c.Policy.Role()
	if c.Role != RoleAuto && c.Role != role {
		return fmt.Errorf("%w: %s is a %s but its policy is a %s",
			sim.ErrInvalidApplication, c.Name, c.Role, role)
	}

	c.Role = role

	if !finiteTime(c.Window.Start) || !finiteTime(c.Window.Stop) ||
		c.Window.Start < 0 || c.Window.Stop < c.Window.Start {
		return fmt.Errorf("%w: %s has window [%g, %g)",
			sim.ErrInvalidApplication, c.Name, c.Window.Start, c.Window.Stop)
	}

	if c.Address.Port() == 0 {
		return fmt.Errorf("%w: %s needs a port", sim.ErrInvalidApplication, c.Name)
	}

	switch p := c.Policy.(type) {
	case ConstantRate:
		return c.validateRate(p.PacketSize, p.Interval, p.DataRate, p.MaxPackets)
	case OnOff:
		if p.Interval == 0 && p.DataRate == 0 {
			p.DataRate = DefaultOnOffRate
		}

		if p.OnTime == (RandomVariable{}) {
			p.OnTime = Constant(1)
		}

		c.Policy = p

		if err := p.OnTime.validate(true); err != nil {
			return fmt.Errorf("%w: %s on-time: %v",
				sim.ErrInvalidApplication, c.Name, err)
		}

		if err := p.OffTime.validate(false); err != nil {
			return fmt.Errorf("%w: %s off-time: %v",
				sim.ErrInvalidApplication, c.Name, err)
		}

		return c.validateRate(p.PacketSize, p.Interval, p.DataRate, p.MaxPackets)
	case Echo, PacketSink:
		return nil
	default:
		return fmt.Errorf("%w: %s has unknown policy %T",
			sim.ErrInvalidApplication, c.Name, c.Policy)
	}
}

func (c *Config) validateRate(
	size int,
	interval timing.VTimeInSec,
	rate sim.DataRate,
	maxPackets int,
) error {
	if !c.Address.Addr().IsValid() {
		return fmt.Errorf("%w: %s needs a destination address",
			sim.ErrInvalidApplication, c.Name)
	}

	if size <= 0 {
		return fmt.Errorf("%w: %s has packet size %d",
			sim.ErrInvalidApplication, c.Name, size)
	}

	if !finiteTime(interval) || interval < 0 || (interval == 0 && rate == 0) {
		return fmt.Errorf("%w: %s needs a positive interval or data rate",
			sim.ErrInvalidApplication, c.Name)
	}

	if maxPackets < 0 {
		return fmt.Errorf("%w: %s has negative packet limit",
			sim.ErrInvalidApplication, c.Name)
	}

	return nil
}

func finiteTime(t timing.VTimeInSec) bool {
	return !math.IsNaN(float64(t)) && !math.IsInf(float64(t), 0)
}
