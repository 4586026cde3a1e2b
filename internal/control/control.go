// Package control holds the control Hamiltonians and the piecewise
// constant coefficient sequences that control optimization improves.
package control

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/utils"
)

// Bound is the closed interval a coefficient is kept in.
type Bound struct {
	Min float64
	Max float64
}

// Unbounded places no limit on a channel.
var Unbounded = Bound{Min: math.Inf(-1), Max: math.Inf(1)}

// Contains reports whether x lies in the interval.
func (b Bound) Contains(x float64) bool { return x >= b.Min && x <= b.Max }

// Clamp returns x limited to the interval.
func (b Bound) Clamp(x float64) float64 { return utils.ClampFloat64(x, b.Min, b.Max) }

// Spec is the raw control input.
type Spec struct {
	Generators []quantum.Matrix
	// Coefficients holds one sequence per generator. Empty means zeros of
	// length len(timeGrid).
	Coefficients [][]float64
	// Bounds is empty (unbounded), a single [min, max] applied to every
	// channel, or one [min, max] per generator.
	Bounds [][]float64
}

// Config is a validated control configuration. Optimization overwrites
// its coefficients in place.
type Config struct {
	generators   []*mat.CDense
	coefficients [][]float64
	bounds       []Bound
}

// New validates spec against sys.
func New(sys *quantum.System, spec Spec) (*Config, error) {
	if sys == nil {
		return nil, quantum.Invalid("control system", "a Markovian system is required")
	}
	if len(spec.Generators) == 0 {
		return nil, quantum.Invalid("control generators", "at least one generator is required")
	}
	gens := make([]*mat.CDense, len(spec.Generators))
	for i, g := range spec.Generators {
		m, err := quantum.NewMatrix(g)
		if err != nil {
			return nil, quantum.Invalid(fmt.Sprintf("control generators[%d]", i), "%v", err)
		}
		if r, c := m.Dims(); r != sys.Dim() || c != sys.Dim() {
			return nil, quantum.Invalid(fmt.Sprintf("control generators[%d]", i), "expected %dx%d, got %dx%d", sys.Dim(), sys.Dim(), r, c)
		}
		gens[i] = m
	}

	coefs := spec.Coefficients
	if len(coefs) == 0 {
		coefs = make([][]float64, len(gens))
		for i := range coefs {
			coefs[i] = make([]float64, len(sys.TimeGrid()))
		}
	}
	if err := checkCoefficients(coefs, len(gens)); err != nil {
		return nil, err
	}

	bounds, err := resolveBounds(spec.Bounds, len(gens))
	if err != nil {
		return nil, err
	}
	return &Config{generators: gens, coefficients: copyCoefficients(coefs), bounds: bounds}, nil
}

// Channels is the number of control generators.
func (c *Config) Channels() int { return len(c.generators) }

// Generators returns copies of the control Hamiltonians.
func (c *Config) Generators() []*mat.CDense {
	out := make([]*mat.CDense, len(c.generators))
	for i, g := range c.generators {
		out[i] = quantum.Clone(g)
	}
	return out
}

// Coefficients returns a copy of the current coefficient sequences.
func (c *Config) Coefficients() [][]float64 { return copyCoefficients(c.coefficients) }

// Length is the number of time slots per coefficient sequence.
func (c *Config) Length() int { return len(c.coefficients[0]) }

// MatchesGrid reports whether every sequence has one value per interval
// of timeGrid, which analytic gradients require.
func (c *Config) MatchesGrid(timeGrid []float64) bool {
	for _, seq := range c.coefficients {
		if len(seq) != len(timeGrid)-1 {
			return false
		}
	}
	return true
}

// Bounds returns the per-channel bounds.
func (c *Config) Bounds() []Bound { return append([]Bound(nil), c.bounds...) }

// Uniform reports whether every channel shares one bound.
func (c *Config) Uniform() bool {
	for _, b := range c.bounds[1:] {
		if b != c.bounds[0] {
			return false
		}
	}
	return true
}

// SetCoefficients replaces the coefficients with optimization output.
// Values are clamped into their channel's bound.
func (c *Config) SetCoefficients(coefs [][]float64) error {
	if err := checkCoefficients(coefs, len(c.generators)); err != nil {
		return err
	}
	next := copyCoefficients(coefs)
	for i, seq := range next {
		for k, v := range seq {
			seq[k] = c.bounds[i].Clamp(v)
		}
	}
	c.coefficients = next
	return nil
}

func checkCoefficients(coefs [][]float64, channels int) error {
	if len(coefs) != channels {
		return quantum.Invalid("control coefficients", "got %d sequences for %d generators", len(coefs), channels)
	}
	for i, seq := range coefs {
		if len(seq) == 0 {
			return quantum.Invalid(fmt.Sprintf("control coefficients[%d]", i), "sequence is empty")
		}
		if len(seq) != len(coefs[0]) {
			return quantum.Invalid(fmt.Sprintf("control coefficients[%d]", i), "length %d differs from %d", len(seq), len(coefs[0]))
		}
		for k, v := range seq {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return quantum.Invalid(fmt.Sprintf("control coefficients[%d][%d]", i, k), "value %v is not finite", v)
			}
		}
	}
	return nil
}

func resolveBounds(raw [][]float64, channels int) ([]Bound, error) {
	out := make([]Bound, channels)
	switch len(raw) {
	case 0:
		for i := range out {
			out[i] = Unbounded
		}
		return out, nil
	case 1, channels:
	default:
		return nil, quantum.Invalid("control bounds", "expected 1 or %d intervals, got %d", channels, len(raw))
	}

	parsed := make([]Bound, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, quantum.Invalid(fmt.Sprintf("control bounds[%d]", i), "expected [min, max], got %d values", len(pair))
		}
		if !(pair[0] <= pair[1]) {
			return nil, quantum.Invalid(fmt.Sprintf("control bounds[%d]", i), "min %v exceeds max %v", pair[0], pair[1])
		}
		parsed[i] = Bound{Min: pair[0], Max: pair[1]}
	}
	for i := range out {
		if len(parsed) == 1 {
			out[i] = parsed[0]
		} else {
			out[i] = parsed[i]
		}
	}
	return out, nil
}

func copyCoefficients(coefs [][]float64) [][]float64 {
	out := make([][]float64, len(coefs))
	for i, seq := range coefs {
		out[i] = append([]float64(nil), seq...)
	}
	return out
}
