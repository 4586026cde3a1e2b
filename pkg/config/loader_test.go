package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

func TestLoadJob(t *testing.T) {
	job, err := LoadJob("../../config/qubit_control.yaml")
	if err != nil {
		t.Fatalf("Failed to load job: %v", err)
	}

	if job.Resource != "control" || job.Method != "GRAPE" {
		t.Errorf("Expected control/GRAPE, got %s/%s", job.Resource, job.Method)
	}
	if len(job.System.FreeHamiltonian) != 1 {
		t.Errorf("Expected a single free Hamiltonian, got %d", len(job.System.FreeHamiltonian))
	}
	if len(job.System.TimeGrid) != 2000 {
		t.Errorf("Expected 2000 time points, got %d", len(job.System.TimeGrid))
	}
	if job.System.TimeGrid[1999] != 10 {
		t.Errorf("Expected grid to end at 10, got %v", job.System.TimeGrid[1999])
	}
	if job.Control == nil || len(job.Control.Generators) != 3 {
		t.Fatal("Expected 3 control generators")
	}
	if got := job.Control.Generators[1][0][1]; got != -1i {
		t.Errorf("Expected -1j, got %v", got)
	}
	if job.Engine.TimeoutSeconds != 600 {
		t.Errorf("Expected engine timeout 600, got %d", job.Engine.TimeoutSeconds)
	}
}

func TestLoadKrausJob(t *testing.T) {
	job, err := LoadJob("../../config/kraus_measurement.yaml")
	if err != nil {
		t.Fatalf("Failed to load job: %v", err)
	}
	if job.Target != "CFIM" {
		t.Errorf("Expected measurement jobs to default to CFIM, got %s", job.Target)
	}
	if len(job.System.KrausDerivatives) != 1 || len(job.System.KrausDerivatives[0]) != 2 {
		t.Errorf("Expected one parameter with 2 derivatives, got %v", job.System.KrausDerivatives)
	}
	if job.Measurement.Base == nil || job.Measurement.Base.Type != "sicpovm" {
		t.Errorf("Expected a sicpovm base, got %+v", job.Measurement.Base)
	}
	if job.Engine.Addr != DefaultEngineAddr {
		t.Errorf("Expected default engine addr, got %s", job.Engine.Addr)
	}
}

func TestLoadJobMissingFile(t *testing.T) {
	_, err := LoadJob("nonexistent.yaml")
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoadEnv(t *testing.T) {
	job, err := LoadJob("../../config/qubit_control.yaml")
	if err != nil {
		t.Fatalf("Failed to load job: %v", err)
	}

	dir := t.TempDir()
	envFile := filepath.Join(dir, "job.env")
	content := "QEST_METHOD=PSO\nQEST_SAVE_ALL=true\nQEST_OUTPUT_DIR=/tmp/qest\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv(EnvEngineAddr, "engine:6000")
	t.Setenv(EnvMethod, "DE")
	// godotenv never overrides variables already set; unset the ones the
	// file provides after the test.
	for _, k := range []string{EnvSaveAll, EnvOutputDir} {
		k := k
		t.Cleanup(func() { os.Unsetenv(k) })
	}

	if err := LoadEnv(job, envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if job.Method != "DE" {
		t.Errorf("Expected process env to win with DE, got %s", job.Method)
	}
	if !job.SaveAll {
		t.Error("Expected save_all from env file")
	}
	if job.OutputDir != "/tmp/qest" {
		t.Errorf("Expected output dir /tmp/qest, got %s", job.OutputDir)
	}
	if job.Engine.Addr != "engine:6000" {
		t.Errorf("Expected engine addr engine:6000, got %s", job.Engine.Addr)
	}
}

func TestLoadEnvRevalidates(t *testing.T) {
	job, err := LoadJob("../../config/qubit_control.yaml")
	if err != nil {
		t.Fatalf("Failed to load job: %v", err)
	}
	t.Setenv(EnvMethod, "NM")
	err = LoadEnv(job, filepath.Join(t.TempDir(), "none.env"))
	if !errors.Is(err, quantum.ErrValidation) {
		t.Fatalf("Expected a validation error for NM control, got %v", err)
	}

	t.Setenv(EnvMethod, "PSO")
	t.Setenv(EnvSaveAll, "sometimes")
	if err := LoadEnv(job, filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Fatal("Expected error for a malformed QEST_SAVE_ALL")
	}
}
