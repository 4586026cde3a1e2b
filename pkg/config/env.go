package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the job file.
const (
	EnvMethod      = "QEST_METHOD"
	EnvMeasurement = "QEST_MEASUREMENT"
	EnvDynamics    = "QEST_DYNAMICS"
	EnvSaveAll     = "QEST_SAVE_ALL"
	EnvLogLevel    = "QEST_LOG_LEVEL"
	EnvEngineAddr  = "QEST_ENGINE_ADDR"
	EnvOutputDir   = "QEST_OUTPUT_DIR"
)

// LoadEnv loads the given dotenv files (".env" when none are named),
// skipping missing ones, then overlays the QEST_* variables onto job and
// validates the result. Variables already set in the process environment
// win over dotenv values.
func LoadEnv(job *Job, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	if v, ok := os.LookupEnv(EnvMethod); ok {
		job.Method = v
	}
	if v, ok := os.LookupEnv(EnvMeasurement); ok {
		if job.Measurement == nil {
			job.Measurement = &Measurement{}
		}
		job.Measurement.Type = v
	}
	if v, ok := os.LookupEnv(EnvDynamics); ok {
		job.System.Dynamics = v
	}
	if v, ok := os.LookupEnv(EnvSaveAll); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvSaveAll, v, err)
		}
		job.SaveAll = b
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		job.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvEngineAddr); ok {
		job.Engine.Addr = v
	}
	if v, ok := os.LookupEnv(EnvOutputDir); ok {
		job.OutputDir = v
	}

	if err := validateJob(job); err != nil {
		return fmt.Errorf("invalid job after environment overlay: %w", err)
	}
	return nil
}
