package traffic

import (
	"errors"
	"fmt"
	"math"

	"github.com/iti/rngstream"
)

// Distribution names a family of random variables.
type Distribution int

// Supported distributions.
const (
	DistConstant Distribution = iota
	DistUniform
	DistExponential
)

func (d Distribution) String() string {
	switch d {
	case DistConstant:
		return "constant"
	case DistUniform:
		return "uniform"
	case DistExponential:
		return "exponential"
	default:
		return fmt.Sprintf("Distribution(%d)", int(d))
	}
}

// RandomVariable describes a random duration in seconds. The zero value is
// the constant 0.
type RandomVariable struct {
	Dist Distribution

	// Value is the constant, or the mean of an exponential.
	Value float64

	// Min and Max bound a uniform.
	Min, Max float64
}

// Constant always yields v.
func Constant(v float64) RandomVariable {
	return RandomVariable{Dist: DistConstant, Value: v}
}

// Uniform yields values in [lo, hi).
func Uniform(lo, hi float64) RandomVariable {
	return RandomVariable{Dist: DistUniform, Min: lo, Max: hi}
}

// Exponential yields values with the given mean.
func Exponential(mean float64) RandomVariable {
	return RandomVariable{Dist: DistExponential, Value: mean}
}

// Draw samples the variable from the stream.
func (v RandomVariable) Draw(s *rngstream.RngStream) float64 {
	switch v.Dist {
	case DistUniform:
		return v.Min + (v.Max-v.Min)*s.RandU01()
	case DistExponential:
		return -v.Value * math.Log(1-s.RandU01())
	default:
		return v.Value
	}
}

// validate checks the parameters. A positive variable must be able to yield
// values above zero.
func (v RandomVariable) validate(positive bool) error {
	switch v.Dist {
	case DistConstant:
		if !(v.Value >= 0) || math.IsInf(v.Value, 1) || (positive && v.Value == 0) {
			return fmt.Errorf("constant %g out of range", v.Value)
		}
	case DistUniform:
		if !(v.Min >= 0) || !(v.Max >= v.Min) || math.IsInf(v.Max, 1) || (positive && v.Max == 0) {
			return fmt.Errorf("uniform [%g, %g) out of range", v.Min, v.Max)
		}
	case DistExponential:
		if !(v.Value > 0) || math.IsInf(v.Value, 1) {
			return errors.New("exponential needs a positive mean")
		}
	default:
		return fmt.Errorf("unknown distribution %d", int(v.Dist))
	}

	return nil
}

func (v RandomVariable) String() string {
	switch v.Dist {
	case DistUniform:
		return fmt.Sprintf("uniform[%g,%g)", v.Min, v.Max)
	case DistExponential:
		return fmt.Sprintf("exponential(%g)", v.Value)
	default:
		return fmt.Sprintf("constant(%g)", v.Value)
	}
}
