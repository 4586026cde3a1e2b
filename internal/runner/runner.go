// Package runner turns a job file into a dispatched optimization: it
// assembles the system and configurations, resumes the job's checkpoint,
// calls the dispatcher and writes the improved values.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/GoSim-25-26J-441/estimation-core/internal/measurement"
	"github.com/GoSim-25-26J-441/estimation-core/internal/optimization"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
	"github.com/GoSim-25-26J-441/estimation-core/internal/results"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/config"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/logger"
)

// Runner executes job files one at a time.
type Runner struct {
	dispatcher *optimization.Dispatcher
	store      *CheckpointStore
	log        *slog.Logger
}

// New creates a Runner. A nil store keeps no checkpoints between runs.
func New(d *optimization.Dispatcher, store *CheckpointStore, log *slog.Logger) *Runner {
	if store == nil {
		store, _ = NewCheckpointStore("")
	}
	return &Runner{dispatcher: d, store: store, log: logger.OrDefault(log)}
}

// Result describes a finished run.
type Result struct {
	JobID    string
	Resumed  bool
	Assembly *Assembly
	Outcome  *optimization.Outcome
	// OutputPath is the file holding the improved values.
	OutputPath string
}

// Run assembles cfg, dispatches it and records the job's checkpoint. A job
// whose ID has a checkpoint resumes with its saved moments and
// hyperparameters.
func (r *Runner) Run(ctx context.Context, cfg *config.Job) (*Result, error) {
	a, err := Assemble(cfg)
	if err != nil {
		return nil, err
	}
	job, resumed, err := r.job(cfg, a)
	if err != nil {
		return nil, err
	}
	if cfg.Engine.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Engine.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	r.log.Info("running job",
		"job_id", job.ID,
		"resource", job.Resource.String(),
		"method", job.Method.String(),
		"target", a.Target.String(),
		"regime", a.System.Regime().String(),
		"resumed", resumed)

	var outcome *optimization.Outcome
	switch a.Resource {
	case optimization.Control:
		sys, ok := a.System.(*quantum.System)
		if !ok || a.Control == nil {
			return nil, quantum.Invalid("control", "control needs %q dynamics and control generators", quantum.Markovian)
		}
		outcome, err = r.dispatcher.OptimizeControl(ctx, job, optimization.ControlCall{
			System:      sys,
			Control:     a.Control,
			Target:      a.Target,
			Measurement: a.Measurement,
			Weight:      a.Weight,
		})
	case optimization.State:
		outcome, err = r.dispatcher.OptimizeState(ctx, job, optimization.StateCall{
			System:      a.System,
			States:      a.States,
			Target:      a.Target,
			Measurement: a.Measurement,
			Weight:      a.Weight,
		})
	case optimization.Measurement:
		outcome, err = r.dispatcher.OptimizeMeasurement(ctx, job, optimization.MeasurementCall{
			System:      a.System,
			Measurement: a.Measurement,
			Weight:      a.Weight,
		})
	}
	if outcome == nil {
		return nil, err
	}
	res := &Result{JobID: job.ID, Resumed: resumed, Assembly: a, Outcome: outcome}

	if saveErr := r.store.Save(job); saveErr != nil {
		r.log.Error("failed to save checkpoint", "job_id", job.ID, "error", saveErr)
	}
	if err != nil {
		return res, err
	}

	if res.OutputPath, err = writeResult(job, a); err != nil {
		return res, err
	}
	r.log.Info("job finished",
		"job_id", job.ID,
		"entry_point", outcome.Variant.EntryPoint,
		"advisories", len(outcome.Advisories),
		"best", outcome.Convergence.Best,
		"output", res.OutputPath)
	return res, nil
}

func (r *Runner) job(cfg *config.Job, a *Assembly) (*optimization.Job, bool, error) {
	if cfg.JobID != "" {
		job, ok, err := r.store.Load(cfg.JobID)
		if err != nil {
			return nil, false, err
		}
		if ok {
			if job.Resource != a.Resource || job.Method != a.Method {
				return nil, false, quantum.Invalid("job id", "checkpoint %s is a %s %s job, not %s %s",
					cfg.JobID, job.Method, job.Resource, a.Method, a.Resource)
			}
			return job, true, nil
		}
	}
	job, err := optimization.NewJob(a.Resource, a.Method,
		optimization.WithJobID(cfg.JobID),
		optimization.WithHyperparameters(cfg.Hyperparameters),
		optimization.WithAutoDiff(cfg.AutoDiff),
		optimization.WithSaveAll(cfg.SaveAll),
		optimization.WithOutputDir(cfg.OutputDir))
	return job, false, err
}

// writeResult stores the improved values of the optimized resource as
// rows of complex literals.
func writeResult(job *optimization.Job, a *Assembly) (string, error) {
	if err := checkJobID(job.ID); err != nil {
		return "", err
	}
	var rows [][]complex128
	switch a.Resource {
	case optimization.Control:
		for _, seq := range a.Control.Coefficients() {
			row := make([]complex128, len(seq))
			for i, v := range seq {
				row[i] = complex(v, 0)
			}
			rows = append(rows, row)
		}
	case optimization.State:
		if best := a.States.Best(); best != nil {
			rows = append(rows, best)
		}
	case optimization.Measurement:
		if a.Measurement.Kind() == measurement.Projection {
			rows = a.Measurement.Vectors()
			break
		}
		for _, op := range a.Measurement.Operators() {
			var row []complex128
			for _, r := range quantum.Rows(op) {
				row = append(row, r...)
			}
			rows = append(rows, row)
		}
	}

	dir := job.OutputDir
	if dir == "" {
		dir = config.DefaultOutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", job.ID, job.Resource))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create result file: %w", err)
	}
	if err := results.DefaultCodec.Encode(f, rows); err != nil {
		f.Close()
		return "", fmt.Errorf("write result file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close result file %s: %w", path, err)
	}
	return path, nil
}
