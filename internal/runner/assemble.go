package runner

import (
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/estimation-core/internal/control"
	"github.com/GoSim-25-26J-441/estimation-core/internal/measurement"
	"github.com/GoSim-25-26J-441/estimation-core/internal/optimization"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/config"
)

// Assembly is everything a job file describes, built and validated.
type Assembly struct {
	Resource    optimization.Resource
	Method      optimization.Method
	Target      optimization.Target
	System      quantum.Dynamics
	Control     *control.Config
	Measurement *measurement.Set
	States      *quantum.StateCandidates
	Weight      [][]float64
}

// Assemble builds the system, the optimizable configurations and the
// objective named by cfg.
func Assemble(cfg *config.Job) (*Assembly, error) {
	resource, err := optimization.ParseResource(cfg.Resource)
	if err != nil {
		return nil, err
	}
	method, err := optimization.ParseMethod(cfg.Method)
	if err != nil {
		return nil, err
	}
	target, err := optimization.ParseTarget(cfg.Target)
	if err != nil {
		return nil, err
	}
	a := &Assembly{Resource: resource, Method: method, Target: target, Weight: cfg.Weight}

	if a.System, err = buildSystem(&cfg.System); err != nil {
		return nil, fmt.Errorf("build system: %w", err)
	}
	dim := a.System.Dim()

	if cfg.Control != nil {
		sys, ok := a.System.(*quantum.System)
		if !ok {
			return nil, quantum.Invalid("control", "control requires %q dynamics", quantum.Markovian)
		}
		a.Control, err = control.New(sys, control.Spec{
			Generators:   cfg.Control.Generators.Matrices(),
			Coefficients: cfg.Control.Coefficients,
			Bounds:       cfg.Control.Bounds,
		})
		if err != nil {
			return nil, fmt.Errorf("build control: %w", err)
		}
	}
	if cfg.Measurement != nil {
		if a.Measurement, err = buildMeasurement(cfg.Measurement, dim); err != nil {
			return nil, fmt.Errorf("build measurement: %w", err)
		}
	}
	if resource == optimization.State {
		if a.States, err = quantum.NewStateCandidates(dim, config.Vectors(cfg.States)); err != nil {
			return nil, fmt.Errorf("build state candidates: %w", err)
		}
	}
	return a, nil
}

func buildSystem(s *config.System) (quantum.Dynamics, error) {
	regime, err := quantum.ParseRegime(s.Dynamics)
	if err != nil {
		return nil, err
	}
	if regime == quantum.Kraus {
		derivs := make([][]quantum.Matrix, len(s.KrausDerivatives))
		for i, dk := range s.KrausDerivatives {
			derivs[i] = dk.Matrices()
		}
		return quantum.NewKrausSystem(quantum.KrausSpec{
			Kraus:        s.Kraus.Matrices(),
			Derivatives:  derivs,
			InitialState: quantum.Matrix(s.InitialState),
			Weight:       s.Weight,
		})
	}

	decay := make([]quantum.Decay, len(s.Decay))
	for i, d := range s.Decay {
		decay[i] = quantum.Decay{Operator: quantum.Matrix(d.Operator), Rate: d.Rate}
	}
	return quantum.NewSystem(quantum.SystemSpec{
		FreeHamiltonian: s.FreeHamiltonian.Matrices(),
		Derivatives:     s.Derivatives.Matrices(),
		Decay:           decay,
		InitialState:    quantum.Matrix(s.InitialState),
		TimeGrid:        s.TimeGrid,
		Weight:          s.Weight,
	})
}

func buildMeasurement(m *config.Measurement, dim int) (*measurement.Set, error) {
	opts := measurement.Options{
		Seed:      m.Seed,
		Basis:     config.Vectors(m.Basis),
		Operators: m.Operators.Matrices(),
		Count:     m.Count,
	}
	if opts.Seed == 0 {
		opts.Seed = measurement.DefaultSeed
	}
	if m.FiducialDir != "" {
		opts.Fiducials = os.DirFS(m.FiducialDir)
	}
	if m.Base != nil {
		base, err := buildMeasurement(m.Base, dim)
		if err != nil {
			return nil, fmt.Errorf("base: %w", err)
		}
		opts.Base = base
	}
	return measurement.FromTag(m.Type, dim, opts)
}
