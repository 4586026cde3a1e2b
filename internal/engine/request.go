package engine

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

// Hyperparameters are the method-specific settings. Only the fields of
// the requested method are meaningful; the rest stay zero and are
// omitted on the wire.
type Hyperparameters struct {
	MaxEpisode []int `json:"max_episode,omitempty" msgpack:"max_episode,omitempty" yaml:"max_episode,omitempty"`
	Seed       int64 `json:"seed,omitempty" msgpack:"seed,omitempty" yaml:"seed,omitempty"`

	// Adaptive gradient (AD, GRAPE, auto-GRAPE).
	Epsilon float64 `json:"epsilon,omitempty" msgpack:"epsilon,omitempty" yaml:"epsilon,omitempty"`
	Beta1   float64 `json:"beta1,omitempty" msgpack:"beta1,omitempty" yaml:"beta1,omitempty"`
	Beta2   float64 `json:"beta2,omitempty" msgpack:"beta2,omitempty" yaml:"beta2,omitempty"`
	Adam    *bool   `json:"adam,omitempty" msgpack:"adam,omitempty" yaml:"adam,omitempty"`

	// Particle swarm.
	ParticleNum int     `json:"particle_num,omitempty" msgpack:"particle_num,omitempty" yaml:"particle_num,omitempty"`
	C0          float64 `json:"c0,omitempty" msgpack:"c0,omitempty" yaml:"c0,omitempty"`
	C1          float64 `json:"c1,omitempty" msgpack:"c1,omitempty" yaml:"c1,omitempty"`
	C2          float64 `json:"c2,omitempty" msgpack:"c2,omitempty" yaml:"c2,omitempty"`

	// Differential evolution.
	PopSize int     `json:"popsize,omitempty" msgpack:"popsize,omitempty" yaml:"popsize,omitempty"`
	C       float64 `json:"c,omitempty" msgpack:"c,omitempty" yaml:"c,omitempty"`
	CR      float64 `json:"cr,omitempty" msgpack:"cr,omitempty" yaml:"cr,omitempty"`

	// Nelder–Mead.
	StateNum int     `json:"state_num,omitempty" msgpack:"state_num,omitempty" yaml:"state_num,omitempty"`
	AR       float64 `json:"a_r,omitempty" msgpack:"a_r,omitempty" yaml:"a_r,omitempty"`
	AE       float64 `json:"a_e,omitempty" msgpack:"a_e,omitempty" yaml:"a_e,omitempty"`
	AC       float64 `json:"a_c,omitempty" msgpack:"a_c,omitempty" yaml:"a_c,omitempty"`
	AS       float64 `json:"a_s,omitempty" msgpack:"a_s,omitempty" yaml:"a_s,omitempty"`

	// Policy gradient.
	LayerNum int `json:"layer_num,omitempty" msgpack:"layer_num,omitempty" yaml:"layer_num,omitempty"`
	LayerDim int `json:"layer_dim,omitempty" msgpack:"layer_dim,omitempty" yaml:"layer_dim,omitempty"`
}

// Request is everything an engine needs for one call. Matrices that do
// not apply to the variant are left empty.
type Request struct {
	SchemaVersion string  `json:"schema_version"`
	JobID         string  `json:"job_id,omitempty"`
	Variant       Variant `json:"variant"`
	Regime        string  `json:"regime"`

	FreeHamiltonian []Matrix  `json:"free_hamiltonian,omitempty"`
	Derivatives     []Matrix  `json:"derivatives,omitempty"`
	InitialState    Matrix    `json:"initial_state"`
	TimeGrid        []float64 `json:"time_grid,omitempty"`
	DecayOperators  []Matrix  `json:"decay_operators,omitempty"`
	DecayRates      []float64 `json:"decay_rates,omitempty"`

	Kraus            []Matrix   `json:"kraus,omitempty"`
	KrausDerivatives [][]Matrix `json:"kraus_derivatives,omitempty"`

	ControlGenerators   []Matrix    `json:"control_generators,omitempty"`
	ControlCoefficients [][]float64 `json:"control_coefficients,omitempty"`
	ControlBounds       []Interval  `json:"control_bounds,omitempty"`

	// Measurement is the fixed POVM of a CFIM objective.
	Measurement []Matrix `json:"measurement,omitempty"`
	// MeasurementBasis is the fixed basis of a rotation or linear
	// combination measurement search, with MeasurementCount outputs.
	MeasurementBasis []Matrix `json:"measurement_basis,omitempty"`
	MeasurementCount int      `json:"measurement_count,omitempty"`
	// MeasurementVectors seeds a projective measurement search.
	MeasurementVectors []Vector `json:"measurement_vectors,omitempty"`

	StateCandidates []Vector `json:"state_candidates,omitempty"`

	Weight          [][]float64     `json:"weight"`
	Moments         Moments         `json:"moments"`
	Tolerance       float64         `json:"tolerance"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	SaveAll         bool            `json:"save_all"`
	OutputDir       string          `json:"output_dir,omitempty"`
}

// Response is what an engine hands back. Fields the variant does not
// optimize are empty.
type Response struct {
	SchemaVersion      string      `json:"schema_version"`
	Coefficients       [][]float64 `json:"coefficients,omitempty"`
	States             []Vector    `json:"states,omitempty"`
	MeasurementVectors []Vector    `json:"measurement_vectors,omitempty"`
	Measurement        []Matrix    `json:"measurement,omitempty"`
	// Trajectory is the objective value after each episode.
	Trajectory []float64 `json:"trajectory,omitempty"`
	Moments    Moments   `json:"moments"`
	// Artifacts are result files the engine wrote.
	Artifacts []string `json:"artifacts,omitempty"`
}

// ParameterCount is the number of estimated parameters the request
// describes.
func (r *Request) ParameterCount() int {
	if r.Regime == quantum.Kraus.String() {
		return len(r.KrausDerivatives)
	}
	return len(r.Derivatives)
}

// Validate checks the schema version and the count relations the engine
// relies on.
func (r *Request) Validate() error {
	if r.SchemaVersion != SchemaVersion {
		return quantum.Invalid("schema version", "expected %q, got %q", SchemaVersion, r.SchemaVersion)
	}
	if r.Variant.Builder == "" || r.Variant.EntryPoint == "" {
		return quantum.Invalid("variant", "builder and entry point are required")
	}
	regime, err := quantum.ParseRegime(r.Regime)
	if err != nil {
		return err
	}
	dim, c := r.InitialState.Dims()
	if dim == 0 || dim != c {
		return quantum.Invalid("initial state", "must be a square matrix, got %dx%d", dim, c)
	}

	switch regime {
	case quantum.Markovian:
		if len(r.FreeHamiltonian) == 0 {
			return quantum.Invalid("free Hamiltonian", "at least one matrix is required")
		}
		if len(r.TimeGrid) < 2 {
			return quantum.Invalid("time grid", "at least 2 points are required, got %d", len(r.TimeGrid))
		}
		if len(r.Derivatives) == 0 {
			return quantum.Invalid("derivatives", "at least one derivative is required")
		}
		if len(r.DecayOperators) != len(r.DecayRates) {
			return quantum.Invalid("decay", "%d operators but %d rates", len(r.DecayOperators), len(r.DecayRates))
		}
		if err := checkDims("free Hamiltonian", r.FreeHamiltonian, dim); err != nil {
			return err
		}
		if err := checkDims("derivatives", r.Derivatives, dim); err != nil {
			return err
		}
		if err := checkDims("decay operators", r.DecayOperators, dim); err != nil {
			return err
		}
	case quantum.Kraus:
		if len(r.Kraus) == 0 {
			return quantum.Invalid("kraus", "at least one operator is required")
		}
		if len(r.KrausDerivatives) == 0 {
			return quantum.Invalid("kraus derivatives", "at least one parameter is required")
		}
		for i, dk := range r.KrausDerivatives {
			if len(dk) != len(r.Kraus) {
				return quantum.Invalid(fmt.Sprintf("kraus derivatives[%d]", i), "%d matrices for %d Kraus operators", len(dk), len(r.Kraus))
			}
		}
		if len(r.ControlGenerators) > 0 {
			return quantum.Invalid("control generators", "control requires Markovian dynamics")
		}
	}

	if len(r.ControlCoefficients) != len(r.ControlGenerators) {
		return quantum.Invalid("control coefficients", "got %d sequences for %d generators", len(r.ControlCoefficients), len(r.ControlGenerators))
	}
	if len(r.ControlBounds) != 0 && len(r.ControlBounds) != len(r.ControlGenerators) {
		return quantum.Invalid("control bounds", "got %d intervals for %d generators", len(r.ControlBounds), len(r.ControlGenerators))
	}
	if err := checkDims("control generators", r.ControlGenerators, dim); err != nil {
		return err
	}
	if err := checkDims("measurement", r.Measurement, dim); err != nil {
		return err
	}
	if err := checkDims("measurement basis", r.MeasurementBasis, dim); err != nil {
		return err
	}

	n := r.ParameterCount()
	if len(r.Weight) != n {
		return quantum.Invalid("weight", "expected %dx%d, got %d rows", n, n, len(r.Weight))
	}
	for i, row := range r.Weight {
		if len(row) != n {
			return quantum.Invalid("weight", "row %d has %d columns, expected %d", i, len(row), n)
		}
	}
	if r.Tolerance <= 0 || math.IsNaN(r.Tolerance) {
		return quantum.Invalid("tolerance", "must be positive, got %v", r.Tolerance)
	}
	return nil
}

func checkDims(field string, ms []Matrix, dim int) error {
	for i, m := range ms {
		if r, c := m.Dims(); r != dim || c != dim {
			return quantum.Invalid(fmt.Sprintf("%s[%d]", field, i), "expected %dx%d, got %dx%d", dim, dim, r, c)
		}
	}
	return nil
}
