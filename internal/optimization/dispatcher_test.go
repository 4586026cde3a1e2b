package optimization

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/estimation-core/internal/control"
	"github.com/GoSim-25-26J-441/estimation-core/internal/engine"
	"github.com/GoSim-25-26J-441/estimation-core/internal/engine/enginetest"
	"github.com/GoSim-25-26J-441/estimation-core/internal/measurement"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/logger"
	"github.com/GoSim-25-26J-441/estimation-core/pkg/utils"
)

var (
	sx = quantum.Matrix{{0, 1}, {1, 0}}
	sy = quantum.Matrix{{0, -1i}, {1i, 0}}
	sz = quantum.Matrix{{1, 0}, {0, -1}}
)

func qubit(t *testing.T, decay float64) *quantum.System {
	t.Helper()
	sys, err := quantum.NewSystem(quantum.SystemSpec{
		FreeHamiltonian: []quantum.Matrix{sz},
		Derivatives:     []quantum.Matrix{sz},
		Decay:           []quantum.Decay{{Operator: sz, Rate: decay}},
		InitialState:    quantum.Matrix{{0.5, 0.5}, {0.5, 0.5}},
		TimeGrid:        utils.Linspace(0, 1, 11),
	})
	require.NoError(t, err)
	return sys
}

func qubitControl(t *testing.T, sys *quantum.System, length int, bounds [][]float64) *control.Config {
	t.Helper()
	var coefs [][]float64
	if length > 0 {
		coefs = [][]float64{make([]float64, length), make([]float64, length)}
	}
	cfg, err := control.New(sys, control.Spec{
		Generators:   []quantum.Matrix{sx, sy},
		Coefficients: coefs,
		Bounds:       bounds,
	})
	require.NoError(t, err)
	return cfg
}

func newJob(t *testing.T, r Resource, m Method, opts ...JobOption) *Job {
	t.Helper()
	job, err := NewJob(r, m, opts...)
	require.NoError(t, err)
	return job
}

func TestOptimizeControlGRAPEFallback(t *testing.T) {
	var buf bytes.Buffer
	rec := &enginetest.Recorder{}
	d := NewDispatcher(rec, WithLogger(logger.NewText("debug", &buf)))
	sys := qubit(t, 0)

	out, err := d.OptimizeControl(context.Background(), newJob(t, Control, GRAPE), ControlCall{
		System:  sys,
		Control: qubitControl(t, sys, 9, nil),
		Target:  QFIM,
	})
	require.NoError(t, err)
	require.Len(t, out.Advisories, 1)
	assert.Equal(t, "QFIM_autoGRAPE_Copt", out.Variant.EntryPoint)
	assert.Equal(t, "GRAPE_Copt", rec.Last().Variant.Builder)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "falling back to auto-GRAPE")
	assert.Contains(t, buf.String(), "target=QFIM")

	out, err = d.OptimizeControl(context.Background(), newJob(t, Control, GRAPE), ControlCall{
		System:  sys,
		Control: qubitControl(t, sys, 10, nil),
		Target:  QFIM,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Advisories)
	assert.Equal(t, "QFIM_GRAPE_Copt", out.Variant.EntryPoint)

	out, err = d.OptimizeControl(context.Background(), newJob(t, Control, GRAPE), ControlCall{
		System:  sys,
		Control: qubitControl(t, sys, 0, nil),
		Target:  QFIM,
	})
	require.NoError(t, err)
	assert.Len(t, out.Advisories, 1, "default coefficients have one entry per grid point")
}

func TestOptimizeControlAppliesClampedCoefficients(t *testing.T) {
	rec := &enginetest.Recorder{Respond: func(req *engine.Request) (*engine.Response, error) {
		coefs := make([][]float64, len(req.ControlCoefficients))
		for i, seq := range req.ControlCoefficients {
			coefs[i] = make([]float64, len(seq))
			for j := range coefs[i] {
				coefs[i][j] = 0.5
			}
		}
		return &engine.Response{SchemaVersion: engine.SchemaVersion, Coefficients: coefs, Trajectory: []float64{0.1, 0.4}}, nil
	}}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))
	sys := qubit(t, 0.1)
	cfg := qubitControl(t, sys, 10, [][]float64{{-0.2, 0.2}})

	out, err := d.OptimizeControl(context.Background(), newJob(t, Control, PSO), ControlCall{System: sys, Control: cfg, Target: QFIM})
	require.NoError(t, err)
	assert.Equal(t, "QFIM_PSO_Copt", out.Variant.EntryPoint)
	for _, seq := range cfg.Coefficients() {
		for _, v := range seq {
			assert.Equal(t, 0.2, v)
		}
	}
	assert.Equal(t, 2, out.Convergence.Episodes)
	assert.Equal(t, 0.4, out.Convergence.Best)

	req := rec.Last()
	assert.Len(t, req.ControlBounds, 2)
	assert.Equal(t, engine.Interval{-0.2, 0.2}, req.ControlBounds[1])
	assert.Equal(t, []float64{0.1}, req.DecayRates)
	assert.Equal(t, []int{1000, 100}, req.Hyperparameters.MaxEpisode)
	assert.Equal(t, engine.Moments{}, req.Moments)
}

func TestMomentsCarryAcrossGradientCalls(t *testing.T) {
	rec := &enginetest.Recorder{}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))
	sys := qubit(t, 0)
	cfg := qubitControl(t, sys, 10, nil)
	job := newJob(t, Control, AD)

	for i := 0; i < 2; i++ {
		_, err := d.OptimizeControl(context.Background(), job, ControlCall{System: sys, Control: cfg, Target: QFIM})
		require.NoError(t, err)
	}
	reqs := rec.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, engine.Moments{}, reqs[0].Moments)
	assert.Equal(t, engine.Moments{M: 1, V: 1}, reqs[1].Moments)
	assert.Equal(t, engine.Moments{M: 2, V: 2}, job.Moments())
	assert.Equal(t, "QFIM_autoGRAPE_Copt", reqs[0].Variant.EntryPoint)

	pso := newJob(t, Control, PSO)
	_, err := d.OptimizeControl(context.Background(), pso, ControlCall{System: sys, Control: cfg, Target: QFIM})
	require.NoError(t, err)
	assert.Equal(t, engine.Moments{}, pso.Moments())
}

func TestCFIMNeedsMeasurement(t *testing.T) {
	rec := &enginetest.Recorder{}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))
	sys := qubit(t, 0)

	_, err := d.OptimizeControl(context.Background(), newJob(t, Control, DE), ControlCall{
		System:  sys,
		Control: qubitControl(t, sys, 10, nil),
		Target:  CFIM,
	})
	assert.ErrorIs(t, err, quantum.ErrValidation)
	assert.Zero(t, rec.Calls())

	m, err := measurement.NewRandomProjection(2, measurement.DefaultSeed)
	require.NoError(t, err)
	out, err := d.OptimizeControl(context.Background(), newJob(t, Control, DE), ControlCall{
		System:      sys,
		Control:     qubitControl(t, sys, 10, nil),
		Target:      CFIM,
		Measurement: m,
	})
	require.NoError(t, err)
	assert.Equal(t, "CFIM_DE_Copt", out.Variant.EntryPoint)
	assert.Len(t, rec.Last().Measurement, 2)
}

func TestDispatcherRejects(t *testing.T) {
	rec := &enginetest.Recorder{}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))
	sys := qubit(t, 0)
	cfg := qubitControl(t, sys, 10, nil)

	_, err := d.OptimizeControl(context.Background(), newJob(t, State, DE), ControlCall{System: sys, Control: cfg})
	assert.ErrorIs(t, err, quantum.ErrValidation)
	_, err = d.OptimizeControl(context.Background(), nil, ControlCall{System: sys, Control: cfg})
	assert.ErrorIs(t, err, quantum.ErrValidation)
	_, err = d.OptimizeControl(context.Background(), newJob(t, Control, DE), ControlCall{System: sys})
	assert.ErrorIs(t, err, quantum.ErrValidation)
	_, err = d.OptimizeControl(context.Background(), newJob(t, Control, DE), ControlCall{System: sys, Control: cfg, Weight: [][]float64{{1, 0}}})
	assert.ErrorIs(t, err, quantum.ErrValidation)
	assert.Zero(t, rec.Calls())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.OptimizeControl(ctx, newJob(t, Control, DE), ControlCall{System: sys, Control: cfg})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWeightOverrideAndReset(t *testing.T) {
	rec := &enginetest.Recorder{}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))
	sys := qubit(t, 0)
	cfg := qubitControl(t, sys, 10, nil)

	_, err := d.OptimizeControl(context.Background(), newJob(t, Control, DE), ControlCall{System: sys, Control: cfg, Weight: [][]float64{{3}}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3}}, rec.Last().Weight)

	_, err = d.OptimizeControl(context.Background(), newJob(t, Control, DE), ControlCall{System: sys, Control: cfg})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}}, rec.Last().Weight)
}

func TestOptimizeState(t *testing.T) {
	rec := &enginetest.Recorder{Respond: func(req *engine.Request) (*engine.Response, error) {
		return &engine.Response{
			SchemaVersion: engine.SchemaVersion,
			States:        []engine.Vector{engine.VectorOf([]complex128{0, 2})},
		}, nil
	}}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))
	states, err := quantum.NewStateCandidates(2, [][]complex128{{1, 0}, {0, 1}})
	require.NoError(t, err)

	out, err := d.OptimizeState(context.Background(), newJob(t, State, DDPG), StateCall{System: qubit(t, 0), States: states, Target: QFIM})
	require.NoError(t, err)
	assert.Equal(t, engine.Variant{Builder: "TimeIndepend_noiseless", EntryPoint: "QFI_DDPG_Sopt"}, out.Variant)
	assert.Len(t, rec.Last().StateCandidates, 2)
	assert.Equal(t, []complex128{0, 1}, states.Best())
	assert.Equal(t, 2, states.Len())

	out, err = d.OptimizeState(context.Background(), newJob(t, State, DDPG), StateCall{System: qubit(t, 0.5), Target: QFIM})
	require.NoError(t, err)
	assert.Equal(t, "TimeIndepend_noise", out.Variant.Builder)
	assert.Empty(t, rec.Last().StateCandidates)

	wrong, err := quantum.NewStateCandidates(3, nil)
	require.NoError(t, err)
	_, err = d.OptimizeState(context.Background(), newJob(t, State, DE), StateCall{System: qubit(t, 0), States: wrong})
	assert.ErrorIs(t, err, quantum.ErrValidation)
}

func krausQubit(t *testing.T) *quantum.KrausSystem {
	t.Helper()
	k, err := quantum.NewKrausSystem(quantum.KrausSpec{
		Kraus:        []quantum.Matrix{{{1, 0}, {0, 1}}},
		Derivatives:  [][]quantum.Matrix{{{{0, 0}, {0, 0}}}, {{{0, 0}, {0, 0}}}},
		InitialState: quantum.Matrix{{1, 0}},
	})
	require.NoError(t, err)
	return k
}

func TestOptimizeStateKraus(t *testing.T) {
	rec := &enginetest.Recorder{}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))

	out, err := d.OptimizeState(context.Background(), newJob(t, State, NM), StateCall{System: krausQubit(t), Target: QFIM})
	require.NoError(t, err)
	assert.Equal(t, engine.Variant{Builder: "StateOpt_Kraus", EntryPoint: "QFIM_NM_Sopt"}, out.Variant)

	req := rec.Last()
	assert.Equal(t, "kraus", req.Regime)
	assert.Len(t, req.Kraus, 1)
	assert.Len(t, req.KrausDerivatives, 2)
	assert.Empty(t, req.FreeHamiltonian)
	assert.Empty(t, req.TimeGrid)
	assert.Len(t, req.Weight, 2)
}

func TestOptimizeMeasurementProjection(t *testing.T) {
	rec := &enginetest.Recorder{Respond: func(req *engine.Request) (*engine.Response, error) {
		return &engine.Response{
			SchemaVersion:      engine.SchemaVersion,
			MeasurementVectors: engine.VectorsOf([][]complex128{{0, 1}, {1, 0}}),
		}, nil
	}}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))
	set, err := measurement.NewRandomProjection(2, measurement.DefaultSeed)
	require.NoError(t, err)

	out, err := d.OptimizeMeasurement(context.Background(), newJob(t, Measurement, PSO), MeasurementCall{System: qubit(t, 0), Measurement: set})
	require.NoError(t, err)
	assert.Equal(t, engine.Variant{Builder: "projection_Mopt", EntryPoint: "CFIM_PSO_Mopt"}, out.Variant)
	assert.Len(t, rec.Last().MeasurementVectors, 2)
	assert.Equal(t, [][]complex128{{0, 1}, {1, 0}}, set.Vectors())
}

func TestOptimizeMeasurementRotationAndInput(t *testing.T) {
	rec := &enginetest.Recorder{}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))

	rot, err := measurement.New(measurement.Rotation, 2, measurement.Options{})
	require.NoError(t, err)
	out, err := d.OptimizeMeasurement(context.Background(), newJob(t, Measurement, AD), MeasurementCall{System: krausQubit(t), Measurement: rot})
	require.NoError(t, err)
	assert.Equal(t, engine.Variant{Builder: "RotateBasis_Mopt_Kraus", EntryPoint: "CFIM_AD_Mopt"}, out.Variant)
	assert.Equal(t, 4, rec.Last().MeasurementCount)
	assert.True(t, rot.Optimized())

	rec.Respond = func(req *engine.Request) (*engine.Response, error) {
		return &engine.Response{
			SchemaVersion: engine.SchemaVersion,
			Measurement:   engine.MatricesOf([]*mat.CDense{quantum.Outer([]complex128{1, 0}), quantum.Outer([]complex128{0, 1})}),
		}, nil
	}
	in, err := measurement.New(measurement.Input, 2, measurement.Options{Count: 2})
	require.NoError(t, err)
	out, err = d.OptimizeMeasurement(context.Background(), newJob(t, Measurement, DE), MeasurementCall{System: qubit(t, 0), Measurement: in})
	require.NoError(t, err)
	assert.Equal(t, "LinearComb_Mopt", out.Variant.Builder)
	assert.Equal(t, 2, rec.Last().MeasurementCount)
	assert.Len(t, in.Operators(), 2)

	given, err := measurement.New(measurement.Given, 2, measurement.Options{Operators: []quantum.Matrix{{{1, 0}, {0, 0}}, {{0, 0}, {0, 1}}}})
	require.NoError(t, err)
	_, err = d.OptimizeMeasurement(context.Background(), newJob(t, Measurement, DE), MeasurementCall{System: qubit(t, 0), Measurement: given})
	assert.ErrorIs(t, err, quantum.ErrValidation)
}

func TestArtifactsAreNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.csv")
	require.NoError(t, os.WriteFile(path, []byte("1.0 + 2.0im\t3\n"), 0o644))
	rec := &enginetest.Recorder{Respond: func(req *engine.Request) (*engine.Response, error) {
		return &engine.Response{SchemaVersion: engine.SchemaVersion, Artifacts: []string{path}}, nil
	}}
	d := NewDispatcher(rec, WithLogger(logger.Discard()))
	sys := qubit(t, 0)

	_, err := d.OptimizeControl(context.Background(), newJob(t, Control, DE, WithSaveAll(true)), ControlCall{System: sys, Control: qubitControl(t, sys, 10, nil)})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0+2.0j\t3\n", string(data))
	assert.True(t, rec.Last().SaveAll)

	rec.Respond = func(req *engine.Request) (*engine.Response, error) {
		return &engine.Response{SchemaVersion: engine.SchemaVersion, Artifacts: []string{filepath.Join(t.TempDir(), "missing.csv")}}, nil
	}
	out, err := d.OptimizeControl(context.Background(), newJob(t, Control, DE), ControlCall{System: sys, Control: qubitControl(t, sys, 10, nil)})
	assert.Error(t, err)
	assert.NotNil(t, out)
}
