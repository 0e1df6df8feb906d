package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DataRate is a bandwidth in bits per second.
type DataRate uint64

// Common data rates.
const (
	Bps  DataRate = 1
	Kbps DataRate = 1000 * Bps
	Mbps DataRate = 1000 * Kbps
	Gbps DataRate = 1000 * Mbps
)

var dataRateUnits = []struct {
	suffix string
	factor float64
}{
	// Longer suffixes first so "KB/s" is not taken for "B/s".
	{"Gbps", 1e9},
	{"Mbps", 1e6},
	{"kbps", 1e3},
	{"Kbps", 1e3},
	{"bps", 1},
	{"GB/s", 8e9},
	{"MB/s", 8e6},
	{"KB/s", 8e3},
	{"kB/s", 8e3},
	{"B/s", 8},
}

// ParseDataRate parses strings such as "80Mbps", "500kbps" or "1.5MB/s".
func ParseDataRate(s string) (DataRate, error) {
	s = strings.TrimSpace(s)

	for _, unit := range dataRateUnits {
		if !strings.HasSuffix(s, unit.suffix) {
			continue
		}

		num := strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
		v, err := strconv.ParseFloat(num, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: bad data rate %q", ErrConfiguration, s)
		}

		bps := v * unit.factor
		if bps >= math.MaxUint64 {
			return 0, fmt.Errorf("%w: data rate %q out of range", ErrConfiguration, s)
		}

		return DataRate(bps), nil
	}

	return 0, fmt.Errorf("%w: data rate %q has no unit", ErrConfiguration, s)
}

// TransferTime returns how long sizeBytes take to serialize at rate r.
func (r DataRate) TransferTime(sizeBytes int) float64 {
	return float64(sizeBytes) * 8 / float64(r)
}

func (r DataRate) String() string {
	switch {
	case r >= Gbps && r%Gbps == 0:
		return fmt.Sprintf("%dGbps", r/Gbps)
	case r >= Mbps && r%Mbps == 0:
		return fmt.Sprintf("%dMbps", r/Mbps)
	case r >= Kbps && r%Kbps == 0:
		return fmt.Sprintf("%dkbps", r/Kbps)
	default:
		return fmt.Sprintf("%dbps", uint64(r))
	}
}
