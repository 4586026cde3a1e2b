package config

import (
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

const qubitState = `
resource: state
method: DE
system:
  free_hamiltonian: [[1, 0], [0, -1]]
  derivatives:
    - [[1, 0], [0, -1]]
  initial_state: [[1, 0]]
  time_grid: [0, 0.5, 1]
states:
  - [1, 0]
  - ["0.6", "0.8j"]
`

func TestParseJobYAMLString(t *testing.T) {
	job, err := ParseJobYAMLString(qubitState)
	if err != nil {
		t.Fatalf("ParseJobYAMLString failed: %v", err)
	}
	if job.LogLevel != "info" || job.Target != "QFIM" || job.System.Dynamics != "dynamics" {
		t.Errorf("Expected defaults, got log_level=%s target=%s dynamics=%s", job.LogLevel, job.Target, job.System.Dynamics)
	}
	if len(job.States) != 2 || job.States[1][1] != 0.8i {
		t.Errorf("Expected second state [0.6, 0.8j], got %v", job.States)
	}
	if len(job.System.TimeGrid) != 3 {
		t.Errorf("Expected 3 time points, got %d", len(job.System.TimeGrid))
	}
	if job.OutputDir != DefaultOutputDir {
		t.Errorf("Expected default output dir, got %s", job.OutputDir)
	}
}

func TestParseJobYAMLStringInvalid(t *testing.T) {
	tests := []struct {
		name     string
		yamlText string
		// validation is true when the error must match quantum.ErrValidation
		validation bool
	}{
		{
			name:       "Derivatives given as a bare matrix",
			yamlText:   "resource: state\nmethod: DE\nsystem:\n  free_hamiltonian: [[1, 0], [0, -1]]\n  derivatives: [[1, 0], [0, -1]]\n  initial_state: [[1, 0]]\n  time_grid: [0, 1]\n",
			validation: true,
		},
		{
			name:       "Unknown method",
			yamlText:   "resource: state\nmethod: SGD\nsystem:\n  free_hamiltonian: [[1]]\n  initial_state: [[1]]\n  time_grid: [0, 1]\n",
			validation: true,
		},
		{
			name:       "Unsupported method for resource",
			yamlText:   "resource: measurement\nmethod: NM\nsystem:\n  free_hamiltonian: [[1]]\n  initial_state: [[1]]\n  time_grid: [0, 1]\nmeasurement: {type: projection}\n",
			validation: true,
		},
		{
			name:       "Control under kraus dynamics",
			yamlText:   "resource: control\nmethod: PSO\nsystem:\n  dynamics: kraus\n  kraus: [[[1]]]\n  initial_state: [[1]]\ncontrol:\n  generators: [[[1]]]\n",
			validation: true,
		},
		{
			name:       "CFIM without measurement",
			yamlText:   "resource: state\nmethod: DE\ntarget: CFIM\nsystem:\n  free_hamiltonian: [[1]]\n  initial_state: [[1]]\n  time_grid: [0, 1]\n",
			validation: true,
		},
		{
			name:       "Bad complex literal",
			yamlText:   "resource: state\nmethod: DE\nsystem:\n  free_hamiltonian: [[\"1+xj\"]]\n  initial_state: [[1]]\n  time_grid: [0, 1]\n",
			validation: true,
		},
		{
			name:       "Short linspace",
			yamlText:   "resource: state\nmethod: DE\nsystem:\n  free_hamiltonian: [[1]]\n  initial_state: [[1]]\n  time_grid: {start: 0, stop: 1, points: 1}\n",
			validation: true,
		},
		{
			name:       "Unknown dynamics",
			yamlText:   "resource: state\nmethod: DE\nsystem:\n  dynamics: unitary\n  free_hamiltonian: [[1]]\n  initial_state: [[1]]\n  time_grid: [0, 1]\n",
			validation: true,
		},
		{
			name:       "Unknown measurement type",
			yamlText:   "resource: measurement\nmethod: DE\nsystem:\n  free_hamiltonian: [[1]]\n  initial_state: [[1]]\n  time_grid: [0, 1]\nmeasurement: {type: weak}\n",
			validation: true,
		},
		{
			name:     "Invalid log level",
			yamlText: "log_level: trace\nresource: state\nmethod: DE\nsystem:\n  free_hamiltonian: [[1]]\n  initial_state: [[1]]\n  time_grid: [0, 1]\n",
		},
		{
			name:     "Malformed YAML",
			yamlText: "resource: [state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJobYAMLString(tt.yamlText)
			if err == nil {
				t.Fatal("Expected error but got nil")
			}
			if tt.validation && !errors.Is(err, quantum.ErrValidation) {
				t.Errorf("Expected a validation error, got %v", err)
			}
		})
	}
}
