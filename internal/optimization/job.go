package optimization

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/GoSim-25-26J-441/estimation-core/internal/engine"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/utils"
)

// Job is one optimization of one resource with one method. Its moment
// accumulators persist across calls so repeated optimizations warm-start;
// they reset only when a new Job is constructed.
type Job struct {
	ID              string
	Resource        Resource
	Method          Method
	Hyperparameters engine.Hyperparameters
	// SaveAll asks the engine to write results after every episode
	// instead of only after the last one.
	SaveAll bool
	// OutputDir is where the engine writes result artifacts.
	OutputDir string

	autoDiff bool
	moments  engine.Moments
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithJobID overrides the generated job ID.
func WithJobID(id string) JobOption {
	return func(j *Job) { j.ID = id }
}

// WithHyperparameters sets hyperparameters. Zero fields take defaults.
func WithHyperparameters(h engine.Hyperparameters) JobOption {
	return func(j *Job) { j.Hyperparameters = h }
}

// WithAutoDiff makes GRAPE use automatic differentiation.
func WithAutoDiff(auto bool) JobOption {
	return func(j *Job) { j.autoDiff = auto }
}

// WithSaveAll sets the save-every-episode flag.
func WithSaveAll(all bool) JobOption {
	return func(j *Job) { j.SaveAll = all }
}

// WithOutputDir sets the artifact directory.
func WithOutputDir(dir string) JobOption {
	return func(j *Job) { j.OutputDir = dir }
}

// NewJob checks that m can optimize r and fills hyperparameter defaults.
func NewJob(r Resource, m Method, opts ...JobOption) (*Job, error) {
	if err := CheckSupported(r, m); err != nil {
		return nil, err
	}
	j := &Job{Resource: r, Method: m}
	for _, opt := range opts {
		opt(j)
	}
	if j.ID == "" {
		j.ID = utils.GenerateJobID()
	}
	if m == AutoGRAPE || (m == AD && r == Control) {
		j.autoDiff = true
	}
	j.Hyperparameters = withDefaults(m, j.Hyperparameters)
	if err := validateHyperparameters(m, j.Hyperparameters); err != nil {
		return nil, err
	}
	return j, nil
}

// AutoDiff reports whether gradient control optimization always uses
// automatic differentiation.
func (j *Job) AutoDiff() bool { return j.autoDiff }

// Moments returns the current adaptive-optimizer accumulators.
func (j *Job) Moments() engine.Moments { return j.moments }

type checkpoint struct {
	ID              string                 `msgpack:"id"`
	Resource        Resource               `msgpack:"resource"`
	Method          Method                 `msgpack:"method"`
	AutoDiff        bool                   `msgpack:"auto_diff"`
	Hyperparameters engine.Hyperparameters `msgpack:"hyperparameters"`
	Moments         engine.Moments         `msgpack:"moments"`
	SaveAll         bool                   `msgpack:"save_all"`
	OutputDir       string                 `msgpack:"output_dir"`
}

// Checkpoint serializes the job, including its moments, so a later
// process can resume warm-starting with RestoreJob.
func (j *Job) Checkpoint() ([]byte, error) {
	data, err := msgpack.Marshal(checkpoint{
		ID:              j.ID,
		Resource:        j.Resource,
		Method:          j.Method,
		AutoDiff:        j.autoDiff,
		Hyperparameters: j.Hyperparameters,
		Moments:         j.moments,
		SaveAll:         j.SaveAll,
		OutputDir:       j.OutputDir,
	})
	if err != nil {
		return nil, fmt.Errorf("checkpoint job %s: %w", j.ID, err)
	}
	return data, nil
}

// RestoreJob rebuilds a job from Checkpoint output.
func RestoreJob(data []byte) (*Job, error) {
	var cp checkpoint
	if err := msgpack.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("restore job: %w", err)
	}
	j, err := NewJob(cp.Resource, cp.Method,
		WithJobID(cp.ID),
		WithHyperparameters(cp.Hyperparameters),
		WithAutoDiff(cp.AutoDiff),
		WithSaveAll(cp.SaveAll),
		WithOutputDir(cp.OutputDir))
	if err != nil {
		return nil, fmt.Errorf("restore job %s: %w", cp.ID, err)
	}
	j.moments = cp.Moments
	return j, nil
}
