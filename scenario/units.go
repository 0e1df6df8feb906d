package scenario

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/netsim/sim"
	"github.com/sarchlab/netsim/timing"
)

// Duration is a point or span of simulated time. In YAML it is written like
// "5us", "1.5s" or a bare number of seconds.
type Duration timing.VTimeInSec

// ParseDuration parses a duration string.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: duration %q is not finite", sim.ErrConfiguration, s)
		}

		if v < 0 {
			return 0, fmt.Errorf("%w: negative duration %q", sim.ErrConfiguration, s)
		}

		return Duration(v), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", sim.ErrConfiguration, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("%w: negative duration %q", sim.ErrConfiguration, s)
	}

	return Duration(d.Seconds()), nil
}

// Seconds returns the duration as simulated time.
func (d Duration) Seconds() timing.VTimeInSec {
	return timing.VTimeInSec(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*d = parsed

	return nil
}

// DataRate is a bandwidth written like "80Mbps" in YAML.
type DataRate sim.DataRate

func (r *DataRate) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := sim.ParseDataRate(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*r = DataRate(parsed)

	return nil
}
