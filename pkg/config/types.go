package config

import "github.com/GoSim-25-26J-441/estimation-core/internal/engine"

// Job represents one optimization job: the system to estimate on, the
// resource being optimized and how.
type Job struct {
	LogLevel  string `yaml:"log_level"`
	JobID     string `yaml:"job_id,omitempty"`
	Resource  string `yaml:"resource"` // control, state or measurement
	Method    string `yaml:"method"`   // AD, GRAPE, auto-GRAPE, PSO, DE, NM or DDPG
	Target    string `yaml:"target"`   // QFIM or CFIM
	AutoDiff  bool   `yaml:"auto_diff,omitempty"`
	SaveAll   bool   `yaml:"save_all"`
	OutputDir string `yaml:"output_dir"`

	Engine      Engine       `yaml:"engine"`
	System      System       `yaml:"system"`
	Control     *Control     `yaml:"control,omitempty"`
	Measurement *Measurement `yaml:"measurement,omitempty"`
	// States are candidate initial states for state optimization.
	States []ComplexVector `yaml:"states,omitempty"`
	// Weight overrides the system weight for this job.
	Weight [][]float64 `yaml:"weight,omitempty"`

	Hyperparameters engine.Hyperparameters `yaml:"hyperparameters,omitempty"`
}

// Engine locates the optimization engine.
type Engine struct {
	Addr string `yaml:"addr"`
	// TimeoutSeconds bounds a single engine call; 0 waits indefinitely.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// System represents the quantum system under estimation
type System struct {
	Dynamics string `yaml:"dynamics"` // dynamics or kraus

	FreeHamiltonian MatrixList     `yaml:"free_hamiltonian,omitempty"`
	Derivatives     MatrixSequence `yaml:"derivatives,omitempty"`
	Decay           []Decay        `yaml:"decay,omitempty"`
	TimeGrid        TimeGrid       `yaml:"time_grid,omitempty"`

	Kraus            MatrixSequence   `yaml:"kraus,omitempty"`
	KrausDerivatives []MatrixSequence `yaml:"kraus_derivatives,omitempty"`

	InitialState ComplexMatrix `yaml:"initial_state"`
	Weight       [][]float64   `yaml:"weight,omitempty"`
}

// Decay represents a Lindblad channel
type Decay struct {
	Operator ComplexMatrix `yaml:"operator"`
	Rate     float64       `yaml:"rate"`
}

// Control represents the control Hamiltonians and their coefficients
type Control struct {
	Generators   MatrixSequence `yaml:"generators"`
	Coefficients [][]float64    `yaml:"coefficients,omitempty"`
	Bounds       [][]float64    `yaml:"bounds,omitempty"`
}

// Measurement represents a measurement set
type Measurement struct {
	Type      string          `yaml:"type"` // projection, sicpovm, given, rotation or input
	Seed      int64           `yaml:"seed,omitempty"`
	Basis     []ComplexVector `yaml:"basis,omitempty"`
	Operators MatrixSequence  `yaml:"operators,omitempty"`
	// Base is the fixed basis of a rotation or input set.
	Base  *Measurement `yaml:"base,omitempty"`
	Count int          `yaml:"count,omitempty"`
	// FiducialDir replaces the bundled SIC fiducial dataset.
	FiducialDir string `yaml:"fiducial_dir,omitempty"`
}
