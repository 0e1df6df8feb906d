package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/simulation"
	"github.com/sarchlab/netsim/tracing"
)

// Capture selects the records of one node, optionally only those on its
// interface to one link, and writes them to a file.
type Capture struct {
	// Format is "pcap" or "ascii".
	Format string `yaml:"format"`
	Node   int    `yaml:"node"`
	Link   string `yaml:"link"`
	File   string `yaml:"file"`
}

// OpenCaptures creates the capture files under dir and attaches them to the
// trace of s. They are closed when s terminates. Apply must run first.
func (sc *Scenario) OpenCaptures(s *simulation.Simulation, dir string) error {
	for i, c := range sc.Captures {
		keep, err := sc.selector(s, c)
		if err != nil {
			return fmt.Errorf("capture %d: %w", i, err)
		}

		w, err := openCapture(c, dir)
		if err != nil {
			return fmt.Errorf("capture %d: %w", i, err)
		}

		s.Trace().AddWriter(tracing.Filter(w, keep))
	}

	return nil
}

func (sc *Scenario) selector(
	s *simulation.Simulation,
	c Capture,
) (func(tracing.Record) bool, error) {
	node := sim.NodeID(c.Node)
	if s.Topology().Node(node) == nil {
		return nil, fmt.Errorf("%w: %d", sim.ErrUnknownNode, c.Node)
	}

	if c.Link == "" {
		return func(r tracing.Record) bool { return r.Node == node }, nil
	}

	linkID, ok := sc.LinkID(c.Link)
	if !ok {
		return nil, fmt.Errorf("%w: %q", sim.ErrUnknownLink, c.Link)
	}

	iface, ok := s.Topology().InterfaceOn(node, linkID)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not attached to %s",
			sim.ErrConfiguration, node, c.Link)
	}

	return func(r tracing.Record) bool {
		return r.Node == node && r.Interface == iface
	}, nil
}

func openCapture(c Capture, dir string) (tracing.Writer, error) {
	name := c.File
	if name == "" {
		name = fmt.Sprintf("n%d.%s", c.Node, extension(c.Format))
	}

	switch c.Format {
	case "pcap", "ascii":
	default:
		return nil, fmt.Errorf("%w: unknown capture format %q",
			sim.ErrConfiguration, c.Format)
	}

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}

	if c.Format == "ascii" {
		return tracing.NewTextWriter(f), nil
	}

	w, err := tracing.NewPCAPWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return w, nil
}

func extension(format string) string {
	if format == "ascii" {
		return "tr"
	}

	return format
}
