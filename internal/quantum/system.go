package quantum

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Matrix is the raw row-major form in which matrices enter the module.
type Matrix = [][]complex128

// Regime selects how the system evolves.
type Regime int

const (
	// Markovian evolution under a (possibly piecewise) Hamiltonian and
	// Lindblad decay channels over a time grid.
	Markovian Regime = iota
	// Kraus evolution through a fixed set of Kraus operators.
	Kraus
)

func (r Regime) String() string {
	switch r {
	case Markovian:
		return "dynamics"
	case Kraus:
		return "kraus"
	default:
		return fmt.Sprintf("Regime(%d)", int(r))
	}
}

// ParseRegime maps the dynamics-type tag to a Regime.
func ParseRegime(tag string) (Regime, error) {
	switch tag {
	case "dynamics", "":
		return Markovian, nil
	case "kraus":
		return Kraus, nil
	default:
		return 0, &UnknownTagError{Axis: "dynamics", Value: tag, Valid: []string{"dynamics", "kraus"}}
	}
}

// Dynamics is the part of a physical description that every optimization
// needs regardless of regime.
type Dynamics interface {
	Regime() Regime
	Dim() int
	ParameterCount() int
	InitialState() *mat.CDense
	Weight() *mat.Dense
	SetWeight(w [][]float64) error
}

// Decay is a raw Lindblad channel.
type Decay struct {
	Operator Matrix
	Rate     float64
}

// DecayChannel is a validated Lindblad channel.
type DecayChannel struct {
	Operator *mat.CDense
	Rate     float64
}

// SystemSpec is the raw description of a controlled open quantum system.
//
// FreeHamiltonian holds one matrix for time-independent evolution, or one
// matrix per time point for piecewise evolution. InitialState is a
// density matrix, or a pure state given as a single row or column.
type SystemSpec struct {
	FreeHamiltonian []Matrix
	Derivatives     []Matrix
	Decay           []Decay
	InitialState    Matrix
	TimeGrid        []float64
	Weight          [][]float64
}

// System is the validated, immutable Markovian model. Only the weight may
// change after construction.
type System struct {
	dim             int
	freeHamiltonian []*mat.CDense
	derivatives     []*mat.CDense
	decay           []DecayChannel
	state           *mat.CDense
	pure            []complex128
	timeGrid        []float64
	weight          *mat.Dense
}

// NewSystem validates spec and normalizes it into a System. Missing
// derivatives default to one zero matrix, missing decay to one zero
// operator with zero rate, and a missing weight to the identity.
func NewSystem(spec SystemSpec) (*System, error) {
	state, pure, err := parseInitialState(spec.InitialState)
	if err != nil {
		return nil, err
	}
	dim, _ := state.Dims()

	if err := validateTimeGrid(spec.TimeGrid); err != nil {
		return nil, err
	}

	if len(spec.FreeHamiltonian) == 0 {
		return nil, Invalid("free Hamiltonian", "at least one matrix is required")
	}
	if n := len(spec.FreeHamiltonian); n > 1 && n != len(spec.TimeGrid) {
		return nil, Invalid("free Hamiltonian", "piecewise evolution needs one matrix per time point, got %d for %d points", n, len(spec.TimeGrid))
	}
	h0, err := squareMatrices("free Hamiltonian", spec.FreeHamiltonian, dim)
	if err != nil {
		return nil, err
	}

	derivatives := spec.Derivatives
	if len(derivatives) == 0 {
		derivatives = []Matrix{Rows(Zeros(dim))}
	}
	dH, err := squareMatrices("derivatives", derivatives, dim)
	if err != nil {
		return nil, err
	}

	decay := spec.Decay
	if len(decay) == 0 {
		decay = []Decay{{Operator: Rows(Zeros(dim)), Rate: 0}}
	}
	channels := make([]DecayChannel, len(decay))
	for i, d := range decay {
		op, err := squareMatrix(fmt.Sprintf("decay[%d] operator", i), d.Operator, dim)
		if err != nil {
			return nil, err
		}
		if d.Rate < 0 {
			return nil, Invalid(fmt.Sprintf("decay[%d] rate", i), "must be non-negative, got %g", d.Rate)
		}
		channels[i] = DecayChannel{Operator: op, Rate: d.Rate}
	}

	weight, err := ResolveWeight(spec.Weight, len(dH))
	if err != nil {
		return nil, err
	}

	return &System{
		dim:             dim,
		freeHamiltonian: h0,
		derivatives:     dH,
		decay:           channels,
		state:           state,
		pure:            pure,
		timeGrid:        append([]float64(nil), spec.TimeGrid...),
		weight:          weight,
	}, nil
}

func (s *System) Regime() Regime { return Markovian }

func (s *System) Dim() int { return s.dim }

// ParameterCount is the number of estimated parameters.
func (s *System) ParameterCount() int { return len(s.derivatives) }

// TimeDependent reports whether the free Hamiltonian is piecewise.
func (s *System) TimeDependent() bool { return len(s.freeHamiltonian) > 1 }

func (s *System) FreeHamiltonian() []*mat.CDense { return cloneAll(s.freeHamiltonian) }

func (s *System) Derivatives() []*mat.CDense { return cloneAll(s.derivatives) }

func (s *System) Decay() []DecayChannel {
	out := make([]DecayChannel, len(s.decay))
	for i, d := range s.decay {
		out[i] = DecayChannel{Operator: Clone(d.Operator), Rate: d.Rate}
	}
	return out
}

// Noiseless reports whether the first decay channel has zero rate, which
// is how the unsupplied default is represented.
func (s *System) Noiseless() bool { return s.decay[0].Rate == 0 }

func (s *System) InitialState() *mat.CDense { return Clone(s.state) }

// PureState returns the normalized state vector when the initial state
// was supplied as one.
func (s *System) PureState() ([]complex128, bool) {
	if s.pure == nil {
		return nil, false
	}
	return append([]complex128(nil), s.pure...), true
}

func (s *System) TimeGrid() []float64 { return append([]float64(nil), s.timeGrid...) }

func (s *System) Weight() *mat.Dense { return mat.DenseCopyOf(s.weight) }

// SetWeight replaces the weight matrix. An empty w selects the identity
// sized to the parameter count.
func (s *System) SetWeight(w [][]float64) error {
	weight, err := ResolveWeight(w, s.ParameterCount())
	if err != nil {
		return err
	}
	s.weight = weight
	return nil
}

// ResolveWeight builds an n×n weight matrix from w, or the identity when
// w is empty.
func ResolveWeight(w [][]float64, n int) (*mat.Dense, error) {
	out := mat.NewDense(n, n, nil)
	if len(w) == 0 {
		for i := 0; i < n; i++ {
			out.Set(i, i, 1)
		}
		return out, nil
	}
	if len(w) != n {
		return nil, Invalid("weight", "expected %d×%d matrix for %d parameters, got %d rows", n, n, n, len(w))
	}
	for i, row := range w {
		if len(row) != n {
			return nil, Invalid("weight", "row %d has %d columns, expected %d", i, len(row), n)
		}
		for j, v := range row {
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// Ket returns v as a single-column matrix suitable for SystemSpec.InitialState.
func Ket(v []complex128) Matrix {
	out := make(Matrix, len(v))
	for i, x := range v {
		out[i] = []complex128{x}
	}
	return out
}

func parseInitialState(m Matrix) (*mat.CDense, []complex128, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, nil, Invalid("initial state", "state is empty")
	}
	var vec []complex128
	switch {
	case len(m) == 1 && len(m[0]) > 1:
		vec = append(vec, m[0]...)
	case len(m) > 1 && len(m[0]) == 1:
		for i, row := range m {
			if len(row) != 1 {
				return nil, nil, Invalid("initial state", "row %d has %d columns, expected 1", i, len(row))
			}
			vec = append(vec, row[0])
		}
	}
	if vec != nil {
		psi, err := Normalize(vec)
		if err != nil {
			return nil, nil, Invalid("initial state", "%v", err)
		}
		return Outer(psi), psi, nil
	}
	rho, err := squareMatrix("initial state", m, len(m))
	if err != nil {
		return nil, nil, err
	}
	return rho, nil, nil
}

func validateTimeGrid(ts []float64) error {
	if len(ts) < 2 {
		return Invalid("time grid", "at least two time points are required, got %d", len(ts))
	}
	for i := 1; i < len(ts); i++ {
		if !(ts[i] > ts[i-1]) {
			return Invalid("time grid", "not strictly increasing at index %d (%g after %g)", i, ts[i], ts[i-1])
		}
	}
	return nil
}

func squareMatrix(field string, m Matrix, dim int) (*mat.CDense, error) {
	out, err := NewMatrix(m)
	if err != nil {
		return nil, Invalid(field, "%v", err)
	}
	r, c := out.Dims()
	if r != dim || c != dim {
		return nil, Invalid(field, "expected %d×%d matrix, got %d×%d", dim, dim, r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := out.At(i, j); cmplx.IsNaN(v) || cmplx.IsInf(v) {
				return nil, Invalid(field, "element (%d,%d) is not finite", i, j)
			}
		}
	}
	return out, nil
}

func squareMatrices(field string, ms []Matrix, dim int) ([]*mat.CDense, error) {
	out := make([]*mat.CDense, len(ms))
	for i, m := range ms {
		c, err := squareMatrix(fmt.Sprintf("%s[%d]", field, i), m, dim)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func cloneAll(ms []*mat.CDense) []*mat.CDense {
	out := make([]*mat.CDense, len(ms))
	for i, m := range ms {
		out[i] = Clone(m)
	}
	return out
}
