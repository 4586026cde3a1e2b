package optimization

import (
	"fmt"

	"github.com/GoSim-25-26J-441/estimation-core/internal/engine"
	"github.com/GoSim-25-26J-441/estimation-core/internal/measurement"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

// controlBuilders maps each control method to its problem builder.
var controlBuilders = map[Method]string{
	GRAPE:     "GRAPE_Copt",
	AutoGRAPE: "GRAPE_Copt",
	AD:        "GRAPE_Copt",
	PSO:       "PSO_Copt",
	DE:        "DE_Copt",
	DDPG:      "DDPG_Copt",
}

// stateBuilders maps each regime to the state problem builder.
var stateBuilders = map[quantum.Regime]string{
	quantum.Markovian: "StateOpt",
	quantum.Kraus:     "StateOpt_Kraus",
}

type measurementKey struct {
	kind   measurement.Kind
	regime quantum.Regime
}

// measurementBuilders maps each optimizable measurement kind and regime
// to its problem builder.
var measurementBuilders = map[measurementKey]string{
	{measurement.Projection, quantum.Markovian}: "projection_Mopt",
	{measurement.Projection, quantum.Kraus}:     "projection_Mopt_Kraus",
	{measurement.Input, quantum.Markovian}:      "LinearComb_Mopt",
	{measurement.Input, quantum.Kraus}:          "LinearComb_Mopt_Kraus",
	{measurement.Rotation, quantum.Markovian}:   "RotateBasis_Mopt",
	{measurement.Rotation, quantum.Kraus}:       "RotateBasis_Mopt_Kraus",
}

// ControlPlan describes the control problem a variant is resolved for.
type ControlPlan struct {
	Method   Method
	Target   Target
	AutoDiff bool
	// MatchesGrid reports whether every coefficient sequence has
	// len(timeGrid)-1 entries.
	MatchesGrid bool
	// Length and GridPoints only feed the fallback advisory.
	Length     int
	GridPoints int
}

// ResolveControl picks the control variant. Analytic GRAPE needs one
// coefficient per grid interval; otherwise it falls back to auto-GRAPE
// and returns an advisory saying so.
func ResolveControl(p ControlPlan) (engine.Variant, []string, error) {
	if err := CheckSupported(Control, p.Method); err != nil {
		return engine.Variant{}, nil, err
	}
	builder := controlBuilders[p.Method]
	if !p.Method.Gradient() {
		return engine.Variant{Builder: builder, EntryPoint: entry(p.Target.String(), p.Method, "Copt")}, nil, nil
	}

	method := AutoGRAPE
	var advisories []string
	switch {
	case p.AutoDiff || p.Method != GRAPE:
	case p.MatchesGrid:
		method = GRAPE
	default:
		advisories = append(advisories, fmt.Sprintf(
			"GRAPE does not support control sequences of length %d on a %d-point time grid (expected %d), falling back to auto-GRAPE",
			p.Length, p.GridPoints, p.GridPoints-1))
	}
	return engine.Variant{Builder: builder, EntryPoint: entry(p.Target.String(), method, "Copt")}, advisories, nil
}

// StatePlan describes the state problem a variant is resolved for.
type StatePlan struct {
	Method     Method
	Target     Target
	Regime     quantum.Regime
	Parameters int
	// Noiseless is true when the system has no decay, or its first decay
	// rate is zero.
	Noiseless bool
}

// ResolveState picks the state variant. Single-parameter problems use the
// scalar objective except under AD, which always takes the matrix form.
func ResolveState(p StatePlan) (engine.Variant, error) {
	if err := CheckSupported(State, p.Method); err != nil {
		return engine.Variant{}, err
	}
	builder, ok := stateBuilders[p.Regime]
	if !ok {
		return engine.Variant{}, quantum.Invalid("regime", "unsupported regime %v", p.Regime)
	}
	if p.Method == DDPG && p.Regime == quantum.Markovian {
		builder = "TimeIndepend_noise"
		if p.Noiseless {
			builder = "TimeIndepend_noiseless"
		}
	}

	objective := p.Target.String()
	if p.Method != AD && p.Parameters == 1 {
		objective = p.Target.Scalar()
	}
	return engine.Variant{Builder: builder, EntryPoint: entry(objective, p.Method, "Sopt")}, nil
}

// ResolveMeasurement picks the measurement variant, always for the CFIM
// objective.
func ResolveMeasurement(m Method, kind measurement.Kind, regime quantum.Regime) (engine.Variant, error) {
	if err := CheckSupported(Measurement, m); err != nil {
		return engine.Variant{}, err
	}
	builder, ok := measurementBuilders[measurementKey{kind, regime}]
	if !ok {
		return engine.Variant{}, &quantum.UnknownTagError{
			Axis:  "optimizable measurement type",
			Value: kind.String(),
			Valid: []string{measurement.Projection.String(), measurement.Input.String(), measurement.Rotation.String()},
		}
	}
	return engine.Variant{Builder: builder, EntryPoint: entry(CFIM.String(), m, "Mopt")}, nil
}

func entry(objective string, m Method, suffix string) string {
	return objective + "_" + engineNames[m] + "_" + suffix
}
