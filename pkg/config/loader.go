package config

import (
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/estimation-core/internal/measurement"
	"github.com/GoSim-25-26J-441/estimation-core/internal/optimization"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

const (
	DefaultEngineAddr = "localhost:50051"
	DefaultOutputDir  = "."
)

// LoadJob loads and parses a job file
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file %s: %w", path, err)
	}
	job, err := ParseJobYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}
	return job, nil
}

func applyDefaults(job *Job) {
	if job.LogLevel == "" {
		job.LogLevel = "info"
	}
	if job.Target == "" {
		job.Target = optimization.QFIM.String()
		if job.Resource == optimization.Measurement.String() {
			job.Target = optimization.CFIM.String()
		}
	}
	if job.System.Dynamics == "" {
		job.System.Dynamics = quantum.Markovian.String()
	}
	if job.OutputDir == "" {
		job.OutputDir = DefaultOutputDir
	}
	if job.Engine.Addr == "" {
		job.Engine.Addr = DefaultEngineAddr
	}
}

// validateJob performs validation on the job. Tag errors keep their
// quantum.ErrValidation identity.
func validateJob(job *Job) error {
	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[job.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", job.LogLevel)
	}

	resource, err := optimization.ParseResource(job.Resource)
	if err != nil {
		return fmt.Errorf("resource: %w", err)
	}
	method, err := optimization.ParseMethod(job.Method)
	if err != nil {
		return fmt.Errorf("method: %w", err)
	}
	if err := optimization.CheckSupported(resource, method); err != nil {
		return err
	}
	target, err := optimization.ParseTarget(job.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if resource == optimization.Measurement && target != optimization.CFIM {
		return quantum.Invalid("target", "measurement optimization always maximizes the CFIM, got %s", target)
	}

	if err := validateSystem(&job.System); err != nil {
		return fmt.Errorf("system validation failed: %w", err)
	}
	regime, _ := quantum.ParseRegime(job.System.Dynamics)

	switch resource {
	case optimization.Control:
		if regime != quantum.Markovian {
			return quantum.Invalid("control", "control requires %q dynamics", quantum.Markovian)
		}
		if job.Control == nil || len(job.Control.Generators) == 0 {
			return quantum.Invalid("control", "at least one control generator is required")
		}
	case optimization.Measurement:
		if job.Measurement == nil {
			return quantum.Invalid("measurement", "a measurement is required")
		}
	}
	if target == optimization.CFIM && job.Measurement == nil {
		return quantum.Invalid("measurement", "the CFIM target needs a measurement")
	}
	if job.Measurement != nil {
		if err := validateMeasurement(job.Measurement); err != nil {
			return fmt.Errorf("measurement validation failed: %w", err)
		}
	}

	if job.Engine.TimeoutSeconds < 0 {
		return fmt.Errorf("engine timeout_seconds cannot be negative, got %d", job.Engine.TimeoutSeconds)
	}
	return nil
}

// validateSystem checks the fields each regime needs. Shapes and physics
// are checked when the system is built.
func validateSystem(s *System) error {
	regime, err := quantum.ParseRegime(s.Dynamics)
	if err != nil {
		return err
	}
	if len(s.InitialState) == 0 {
		return quantum.Invalid("initial_state", "an initial state is required")
	}
	switch regime {
	case quantum.Markovian:
		if len(s.FreeHamiltonian) == 0 {
			return quantum.Invalid("free_hamiltonian", "at least one matrix is required")
		}
		if len(s.TimeGrid) < 2 {
			return quantum.Invalid("time_grid", "at least 2 points are required, got %d", len(s.TimeGrid))
		}
		if len(s.Kraus) > 0 {
			return quantum.Invalid("kraus", "kraus operators need %q dynamics", quantum.Kraus)
		}
	case quantum.Kraus:
		if len(s.Kraus) == 0 {
			return quantum.Invalid("kraus", "at least one Kraus operator is required")
		}
		if len(s.FreeHamiltonian) > 0 || len(s.Decay) > 0 {
			return quantum.Invalid("free_hamiltonian", "Hamiltonian dynamics need %q dynamics", quantum.Markovian)
		}
	}
	for i, d := range s.Decay {
		if d.Rate < 0 {
			return quantum.Invalid(fmt.Sprintf("decay[%d]", i), "rate cannot be negative, got %v", d.Rate)
		}
	}
	return nil
}

func validateMeasurement(m *Measurement) error {
	kind, err := measurement.ParseKind(m.Type)
	if err != nil {
		return err
	}
	if m.Count < 0 {
		return quantum.Invalid("measurement count", "cannot be negative, got %d", m.Count)
	}
	if m.Base != nil {
		if kind != measurement.Rotation && kind != measurement.Input {
			return quantum.Invalid("measurement base", "only rotation and input sets take a base, not %s", kind)
		}
		return validateMeasurement(m.Base)
	}
	if kind == measurement.Given && len(m.Operators) == 0 {
		return quantum.Invalid("measurement operators", "a given measurement needs operators")
	}
	return nil
}
