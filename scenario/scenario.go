// Package scenario reads simulation descriptions from YAML files and sets
// them up on a simulation.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/netsim/link"
	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/simulation"
	"github.com/sarchlab/netsim/traffic"
)

// DefaultStop is the stop time of a scenario that does not set one.
const DefaultStop = Duration(20)

// Scenario describes a whole simulation.
type Scenario struct {
	Name         string        `yaml:"name"`
	Stop         Duration      `yaml:"stop"`
	Nodes        int           `yaml:"nodes"`
	Links        []Link        `yaml:"links"`
	Applications []Application `yaml:"applications"`
	Captures     []Capture     `yaml:"captures"`

	linkIDs map[string]sim.LinkID
}

// Link describes a link and the subnet of its interfaces.
type Link struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Bandwidth DataRate `yaml:"bandwidth"`
	Delay     Duration `yaml:"delay"`
	Nodes     []int    `yaml:"nodes"`
	Subnet    string   `yaml:"subnet"`
}

// Application describes an application. Policy is one of "onoff",
// "constant", "echo" and "sink".
type Application struct {
	Name       string    `yaml:"name"`
	Policy     string    `yaml:"policy"`
	Node       int       `yaml:"node"`
	Protocol   string    `yaml:"protocol"`
	Address    string    `yaml:"address"`
	Start      Duration  `yaml:"start"`
	Stop       Duration  `yaml:"stop"`
	PacketSize int       `yaml:"packet_size"`
	Interval   Duration  `yaml:"interval"`
	DataRate   DataRate  `yaml:"data_rate"`
	MaxPackets int       `yaml:"max_packets"`
	Marker     uint64    `yaml:"marker"`
	OnTime     *Variable `yaml:"on_time"`
	OffTime    *Variable `yaml:"off_time"`
}

// Variable is a random variable, in seconds.
type Variable struct {
	Dist  string  `yaml:"dist"`
	Value float64 `yaml:"value"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return sc, nil
}

// Parse decodes a scenario. Unknown fields are errors.
func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{Stop: DefaultStop}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(sc); err != nil {
		return nil, fmt.Errorf("%w: %v", sim.ErrConfiguration, err)
	}

	if sc.Nodes <= 0 {
		return nil, fmt.Errorf("%w: scenario has no nodes", sim.ErrConfiguration)
	}

	return sc, nil
}

// Apply creates the nodes, links, addresses and applications of the scenario
// and builds the routes. Unreachable node pairs are reported in the returned
// error, but the simulation can still run.
func (sc *Scenario) Apply(s *simulation.Simulation) error {
	nodes := make([]sim.NodeID, sc.Nodes)
	for i := range nodes {
		nodes[i] = s.CreateNode()
	}

	sc.linkIDs = make(map[string]sim.LinkID, len(sc.Links))

	for i, l := range sc.Links {
		if err := sc.applyLink(s, nodes, i, l); err != nil {
			return err
		}
	}

	for i, a := range sc.Applications {
		cfg, err := a.config(nodes)
		if err != nil {
			return fmt.Errorf("application %d: %w", i, err)
		}

		if _, err := s.CreateApplication(cfg); err != nil {
			return fmt.Errorf("application %d: %w", i, err)
		}
	}

	return s.BuildRoutes()
}

func (sc *Scenario) applyLink(
	s *simulation.Simulation,
	nodes []sim.NodeID,
	i int,
	l Link,
) error {
	name := l.Name
	if name == "" {
		name = fmt.Sprintf("l%d", i)
	}

	if _, dup := sc.linkIDs[name]; dup {
		return fmt.Errorf("%w: link name %q used twice", sim.ErrConfiguration, name)
	}

	kind, err := link.ParseKind(l.Kind)
	if err != nil {
		return fmt.Errorf("link %s: %w", name, err)
	}

	members := make([]sim.NodeID, 0, len(l.Nodes))
	for _, n := range l.Nodes {
		if n < 0 || n >= len(nodes) {
			return fmt.Errorf("link %s: %w: %d", name, sim.ErrUnknownNode, n)
		}

		members = append(members, nodes[n])
	}

	id, err := s.CreateLink(kind, sim.DataRate(l.Bandwidth),
		l.Delay.Seconds(), members...)
	if err != nil {
		return fmt.Errorf("link %s: %w", name, err)
	}

	sc.linkIDs[name] = id

	if l.Subnet == "" {
		return nil
	}

	prefix, err := netip.ParsePrefix(l.Subnet)
	if err != nil {
		return fmt.Errorf("link %s: %w: %v", name, sim.ErrInvalidSubnet, err)
	}

	if _, err := s.AssignSubnet(id, prefix.Addr(), prefix.Bits()); err != nil {
		return fmt.Errorf("link %s: %w", name, err)
	}

	return nil
}

// LinkID returns the ID a named link got when the scenario was applied.
func (sc *Scenario) LinkID(name string) (sim.LinkID, bool) {
	id, ok := sc.linkIDs[name]
	return id, ok
}

func (a Application) config(nodes []sim.NodeID) (traffic.Config, error) {
	cfg := traffic.Config{
		Name:   a.Name,
		Window: traffic.Window{Start: a.Start.Seconds(), Stop: a.Stop.Seconds()},
	}

	if a.Node < 0 || a.Node >= len(nodes) {
		return cfg, fmt.Errorf("%w: %d", sim.ErrUnknownNode, a.Node)
	}

	cfg.Node = nodes[a.Node]

	if a.Protocol != "" {
		p, err := sim.ParseProtocol(a.Protocol)
		if err != nil {
			return cfg, err
		}

		cfg.Protocol = p
	}

	addr, err := netip.ParseAddrPort(a.Address)
	if err != nil {
		return cfg, fmt.Errorf("%w: address: %v", sim.ErrInvalidApplication, err)
	}

	cfg.Address = addr

	policy, err := a.policy()
	if err != nil {
		return cfg, err
	}

	cfg.Policy = policy

	return cfg, nil
}

func (a Application) policy() (traffic.Policy, error) {
	switch a.Policy {
	case "constant":
		return traffic.ConstantRate{
			PacketSize: a.PacketSize,
			Interval:   a.Interval.Seconds(),
			DataRate:   sim.DataRate(a.DataRate),
			MaxPackets: a.MaxPackets,
			Marker:     a.Marker,
		}, nil
	case "onoff":
		on, err := a.OnTime.variable()
		if err != nil {
			return nil, err
		}

		off, err := a.OffTime.variable()
		if err != nil {
			return nil, err
		}

		return traffic.OnOff{
			PacketSize: a.PacketSize,
			Interval:   a.Interval.Seconds(),
			DataRate:   sim.DataRate(a.DataRate),
			OnTime:     on,
			OffTime:    off,
			MaxPackets: a.MaxPackets,
			Marker:     a.Marker,
		}, nil
	case "echo":
		return traffic.Echo{}, nil
	case "sink":
		return traffic.PacketSink{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown policy %q",
			sim.ErrInvalidApplication, a.Policy)
	}
}

var errUnknownDist = errors.New("unknown distribution")

// variable converts v. A nil v is the zero RandomVariable, which lets the
// application pick its default.
func (v *Variable) variable() (traffic.RandomVariable, error) {
	if v == nil {
		return traffic.RandomVariable{}, nil
	}

	switch v.Dist {
	case "", "constant":
		return traffic.Constant(v.Value), nil
	case "uniform":
		return traffic.Uniform(v.Min, v.Max), nil
	case "exponential":
		return traffic.Exponential(v.Value), nil
	default:
		return traffic.RandomVariable{}, fmt.Errorf("%w: %w %q",
			sim.ErrInvalidApplication, errUnknownDist, v.Dist)
	}
}
