package optimization

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/estimation-core/internal/control"
	"github.com/GoSim-25-26J-441/estimation-core/internal/engine"
	"github.com/GoSim-25-26J-441/estimation-core/internal/measurement"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
	"github.com/GoSim-25-26J-441/estimation-core/internal/results"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/logger"
)

// Dispatcher resolves the engine variant for a job, invokes the engine
// and writes the results back into the caller's configurations.
type Dispatcher struct {
	engine     engine.Engine
	log        *slog.Logger
	normalizer *results.Normalizer
	tolerance  float64
	strategy   ConvergenceStrategy
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = logger.OrDefault(l) }
}

// WithTolerance sets the numeric tolerance handed to the engine.
func WithTolerance(tol float64) Option {
	return func(d *Dispatcher) { d.tolerance = tol }
}

// WithConvergenceStrategy sets how returned trajectories are summarized.
func WithConvergenceStrategy(s ConvergenceStrategy) Option {
	return func(d *Dispatcher) { d.strategy = s }
}

// NewDispatcher creates a Dispatcher around eng.
func NewDispatcher(eng engine.Engine, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		engine:    eng,
		log:       logger.Default,
		tolerance: quantum.DefaultTolerance,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.normalizer = results.NewNormalizer(d.log)
	if d.strategy == nil {
		d.strategy = NewCombinedStrategy(nil)
	}
	return d
}

// Outcome is the result of one dispatched call.
type Outcome struct {
	Variant engine.Variant
	// Advisories are non-fatal notices, such as a GRAPE fallback. Each is
	// also logged at warn level.
	Advisories  []string
	Response    *engine.Response
	Convergence Summary
}

// ControlCall is a control optimization request.
type ControlCall struct {
	System  *quantum.System
	Control *control.Config
	Target  Target
	// Measurement is required for the CFIM target.
	Measurement *measurement.Set
	// Weight overrides the system's weight; empty selects the identity.
	Weight [][]float64
}

// StateCall is a state optimization request.
type StateCall struct {
	System quantum.Dynamics
	// States holds the candidate initial states; may be empty.
	States      *quantum.StateCandidates
	Target      Target
	Measurement *measurement.Set
	Weight      [][]float64
}

// MeasurementCall is a measurement optimization request. The objective is
// always the CFIM of the measurement.
type MeasurementCall struct {
	System      quantum.Dynamics
	Measurement *measurement.Set
	Weight      [][]float64
}

// OptimizeControl improves call.Control's coefficients in place.
func (d *Dispatcher) OptimizeControl(ctx context.Context, job *Job, call ControlCall) (*Outcome, error) {
	if err := checkJob(job, Control); err != nil {
		return nil, err
	}
	if call.System == nil || call.Control == nil {
		return nil, quantum.Invalid("control call", "system and control configuration are required")
	}
	grid := call.System.TimeGrid()
	variant, advisories, err := ResolveControl(ControlPlan{
		Method:      job.Method,
		Target:      call.Target,
		AutoDiff:    job.AutoDiff(),
		MatchesGrid: call.Control.MatchesGrid(grid),
		Length:      call.Control.Length(),
		GridPoints:  len(grid),
	})
	if err != nil {
		return nil, err
	}

	req, err := d.baseRequest(job, variant, call.System, call.Weight)
	if err != nil {
		return nil, err
	}
	if err := attachTargetMeasurement(req, call.Target, call.Measurement); err != nil {
		return nil, err
	}
	req.ControlGenerators = engine.MatricesOf(call.Control.Generators())
	req.ControlCoefficients = call.Control.Coefficients()
	for _, b := range call.Control.Bounds() {
		req.ControlBounds = append(req.ControlBounds, engine.Interval{b.Min, b.Max})
	}

	resp, err := d.invoke(ctx, job, req, advisories)
	if err != nil {
		return nil, err
	}
	if len(resp.Coefficients) > 0 {
		if err := call.Control.SetCoefficients(resp.Coefficients); err != nil {
			return nil, fmt.Errorf("apply %s result: %w", variant, err)
		}
	}
	return d.finish(job, variant, advisories, resp)
}

// OptimizeState improves call.States in place.
func (d *Dispatcher) OptimizeState(ctx context.Context, job *Job, call StateCall) (*Outcome, error) {
	if err := checkJob(job, State); err != nil {
		return nil, err
	}
	if call.System == nil {
		return nil, quantum.Invalid("state call", "system is required")
	}
	noiseless := true
	if sys, ok := call.System.(*quantum.System); ok {
		noiseless = sys.Noiseless()
	}
	variant, err := ResolveState(StatePlan{
		Method:     job.Method,
		Target:     call.Target,
		Regime:     call.System.Regime(),
		Parameters: call.System.ParameterCount(),
		Noiseless:  noiseless,
	})
	if err != nil {
		return nil, err
	}

	req, err := d.baseRequest(job, variant, call.System, call.Weight)
	if err != nil {
		return nil, err
	}
	if err := attachTargetMeasurement(req, call.Target, call.Measurement); err != nil {
		return nil, err
	}
	if call.States != nil {
		if call.States.Dim() != call.System.Dim() {
			return nil, quantum.Invalid("state candidates", "dimension %d does not match system dimension %d", call.States.Dim(), call.System.Dim())
		}
		req.StateCandidates = engine.VectorsOf(call.States.Vectors())
	}

	resp, err := d.invoke(ctx, job, req, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.States) > 0 && call.States != nil {
		if err := call.States.Replace(resp.States[0].Complex128s()); err != nil {
			return nil, fmt.Errorf("apply %s result: %w", variant, err)
		}
	}
	return d.finish(job, variant, nil, resp)
}

// OptimizeMeasurement improves call.Measurement in place.
func (d *Dispatcher) OptimizeMeasurement(ctx context.Context, job *Job, call MeasurementCall) (*Outcome, error) {
	if err := checkJob(job, Measurement); err != nil {
		return nil, err
	}
	if call.System == nil || call.Measurement == nil {
		return nil, quantum.Invalid("measurement call", "system and measurement are required")
	}
	set := call.Measurement
	if set.Dim() != call.System.Dim() {
		return nil, quantum.Invalid("measurement", "dimension %d does not match system dimension %d", set.Dim(), call.System.Dim())
	}
	variant, err := ResolveMeasurement(job.Method, set.Kind(), call.System.Regime())
	if err != nil {
		return nil, err
	}

	req, err := d.baseRequest(job, variant, call.System, call.Weight)
	if err != nil {
		return nil, err
	}
	switch set.Kind() {
	case measurement.Projection:
		req.MeasurementVectors = engine.VectorsOf(set.Vectors())
	case measurement.Rotation, measurement.Input:
		req.MeasurementBasis = engine.MatricesOf(set.Basis())
		req.MeasurementCount = set.Count()
	}

	resp, err := d.invoke(ctx, job, req, nil)
	if err != nil {
		return nil, err
	}
	if err := applyMeasurement(set, resp); err != nil {
		return nil, fmt.Errorf("apply %s result: %w", variant, err)
	}
	return d.finish(job, variant, nil, resp)
}

func checkJob(job *Job, r Resource) error {
	if job == nil {
		return quantum.Invalid("job", "a job is required")
	}
	if job.Resource != r {
		return quantum.Invalid("job", "job %s optimizes %s, not %s", job.ID, job.Resource, r)
	}
	return nil
}

func attachTargetMeasurement(req *engine.Request, target Target, set *measurement.Set) error {
	switch target {
	case QFIM:
		return nil
	case CFIM:
		if set == nil {
			return quantum.Invalid("measurement", "the CFIM target needs a measurement")
		}
		req.Measurement = engine.MatricesOf(set.Operators())
		return nil
	default:
		return quantum.Invalid("target", "unknown target %v", target)
	}
}

func applyMeasurement(set *measurement.Set, resp *engine.Response) error {
	switch set.Kind() {
	case measurement.Projection:
		if len(resp.MeasurementVectors) == 0 {
			return nil
		}
		return set.UpdateVectors(engine.Vectors(resp.MeasurementVectors))
	case measurement.Rotation, measurement.Input:
		if len(resp.Measurement) == 0 {
			return nil
		}
		ops, err := engine.Matrices(resp.Measurement)
		if err != nil {
			return quantum.Invalid("optimized measurement", "%v", err)
		}
		return set.Update(ops)
	}
	return nil
}

// baseRequest fills the system description shared by every variant and
// applies the weight override.
func (d *Dispatcher) baseRequest(job *Job, variant engine.Variant, sys quantum.Dynamics, weight [][]float64) (*engine.Request, error) {
	if err := sys.SetWeight(weight); err != nil {
		return nil, err
	}
	req := &engine.Request{
		SchemaVersion:   engine.SchemaVersion,
		JobID:           job.ID,
		Variant:         variant,
		Regime:          sys.Regime().String(),
		InitialState:    engine.MatrixOf(sys.InitialState()),
		Weight:          denseRows(sys.Weight()),
		Tolerance:       d.tolerance,
		Hyperparameters: job.Hyperparameters,
		SaveAll:         job.SaveAll,
		OutputDir:       job.OutputDir,
	}
	if job.Method.Gradient() {
		req.Moments = job.moments
	}

	switch s := sys.(type) {
	case *quantum.System:
		req.FreeHamiltonian = engine.MatricesOf(s.FreeHamiltonian())
		req.Derivatives = engine.MatricesOf(s.Derivatives())
		req.TimeGrid = s.TimeGrid()
		for _, ch := range s.Decay() {
			req.DecayOperators = append(req.DecayOperators, engine.MatrixOf(ch.Operator))
			req.DecayRates = append(req.DecayRates, ch.Rate)
		}
	case *quantum.KrausSystem:
		req.Kraus = engine.MatricesOf(s.Kraus())
		for _, dk := range s.Derivatives() {
			req.KrausDerivatives = append(req.KrausDerivatives, engine.MatricesOf(dk))
		}
	default:
		return nil, quantum.Invalid("system", "unsupported dynamics %T", sys)
	}
	return req, nil
}

// invoke validates req, logs the resolved variant and runs the engine.
// Gradient jobs take the returned moments.
func (d *Dispatcher) invoke(ctx context.Context, job *Job, req *engine.Request, advisories []string) (*engine.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("build %s request: %w", req.Variant, err)
	}
	for _, adv := range advisories {
		d.log.Warn(adv, "job_id", job.ID, "variant", req.Variant.String())
	}
	target, _, _ := strings.Cut(req.Variant.EntryPoint, "_")
	d.log.Info("dispatching optimization",
		"job_id", job.ID,
		"resource", job.Resource.String(),
		"method", job.Method.String(),
		"target", target,
		"builder", req.Variant.Builder,
		"entry_point", req.Variant.EntryPoint,
		"regime", req.Regime,
		"parameters", req.ParameterCount(),
		"save_all", req.SaveAll)

	start := time.Now()
	resp, err := d.engine.Optimize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("engine %s: %w", req.Variant, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("engine %s returned no response", req.Variant)
	}
	if job.Method.Gradient() {
		job.moments = resp.Moments
	}
	d.log.Info("optimization finished",
		"job_id", job.ID,
		"entry_point", req.Variant.EntryPoint,
		"episodes", len(resp.Trajectory),
		"duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

// finish normalizes the engine's artifacts and summarizes the trajectory.
// A normalization failure is reported after the result has been applied.
func (d *Dispatcher) finish(job *Job, variant engine.Variant, advisories []string, resp *engine.Response) (*Outcome, error) {
	out := &Outcome{
		Variant:     variant,
		Advisories:  advisories,
		Response:    resp,
		Convergence: Summarize(resp.Trajectory, d.strategy),
	}
	if out.Convergence.Episodes > 0 {
		d.log.Debug("trajectory summary",
			"job_id", job.ID,
			"best", out.Convergence.Best,
			"final", out.Convergence.Final,
			"converged", out.Convergence.Converged,
			"reason", out.Convergence.Reason)
	}
	if err := d.normalizer.NormalizeAll(resp.Artifacts); err != nil {
		return out, fmt.Errorf("normalize %s artifacts: %w", variant, err)
	}
	return out, nil
}

func denseRows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}
