// Package optimization resolves which engine variant serves an
// optimization job and runs it, threading the job's adaptive-optimizer
// state between calls.
package optimization

import (
	"fmt"

	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

// Resource is what a job optimizes.
type Resource int

const (
	Control Resource = iota
	State
	Measurement
)

var resourceNames = [...]string{"control", "state", "measurement"}

// Resources lists every resource.
var Resources = []Resource{Control, State, Measurement}

func (r Resource) String() string {
	if r >= 0 && int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return fmt.Sprintf("Resource(%d)", int(r))
}

// ParseResource maps a tag to a Resource.
func ParseResource(tag string) (Resource, error) {
	for _, r := range Resources {
		if r.String() == tag {
			return r, nil
		}
	}
	return 0, &quantum.UnknownTagError{Axis: "resource", Value: tag, Valid: resourceNames[:]}
}

// Method is an optimization algorithm family.
type Method int

const (
	// AD is gradient ascent with automatic differentiation.
	AD Method = iota
	// GRAPE is gradient ascent pulse engineering with analytic gradients.
	GRAPE
	// AutoGRAPE is GRAPE with automatic differentiation.
	AutoGRAPE
	// PSO is particle swarm optimization.
	PSO
	// DE is differential evolution.
	DE
	// NM is the Nelder–Mead simplex search.
	NM
	// DDPG is deep deterministic policy gradient.
	DDPG
)

// Methods lists every method in tag order.
var Methods = []Method{AD, GRAPE, AutoGRAPE, PSO, DE, NM, DDPG}

var methodTags = map[Method]string{
	AD:        "AD",
	GRAPE:     "GRAPE",
	AutoGRAPE: "auto-GRAPE",
	PSO:       "PSO",
	DE:        "DE",
	NM:        "NM",
	DDPG:      "DDPG",
}

// engineNames is how the engine spells each method inside entry points.
var engineNames = map[Method]string{
	AD:        "AD",
	GRAPE:     "GRAPE",
	AutoGRAPE: "autoGRAPE",
	PSO:       "PSO",
	DE:        "DE",
	NM:        "NM",
	DDPG:      "DDPG",
}

func (m Method) String() string {
	if tag, ok := methodTags[m]; ok {
		return tag
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Gradient reports whether the method is an adaptive gradient method that
// carries moment accumulators.
func (m Method) Gradient() bool {
	return m == AD || m == GRAPE || m == AutoGRAPE
}

// ParseMethod maps a method tag to a Method.
func ParseMethod(tag string) (Method, error) {
	for _, m := range Methods {
		if methodTags[m] == tag {
			return m, nil
		}
	}
	return 0, &quantum.UnknownTagError{Axis: "method", Value: tag, Valid: methodStrings(Methods)}
}

// supportedMethods is the closed set of methods per resource.
var supportedMethods = map[Resource][]Method{
	Control:     {GRAPE, AutoGRAPE, AD, PSO, DE, DDPG},
	State:       {AD, PSO, DE, NM, DDPG},
	Measurement: {AD, PSO, DE},
}

// SupportedMethods returns the methods available for r.
func SupportedMethods(r Resource) []Method {
	return append([]Method(nil), supportedMethods[r]...)
}

// CheckSupported fails when r cannot be optimized with m.
func CheckSupported(r Resource, m Method) error {
	for _, s := range supportedMethods[r] {
		if s == m {
			return nil
		}
	}
	return &quantum.UnknownTagError{Axis: r.String() + " method", Value: m.String(), Valid: methodStrings(supportedMethods[r])}
}

func methodStrings(ms []Method) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.String()
	}
	return out
}

// Target is the Fisher-information objective.
type Target int

const (
	// QFIM is the quantum Fisher information matrix.
	QFIM Target = iota
	// CFIM is the classical Fisher information matrix of a fixed
	// measurement.
	CFIM
)

// Targets lists both objectives.
var Targets = []Target{QFIM, CFIM}

func (t Target) String() string {
	switch t {
	case QFIM:
		return "QFIM"
	case CFIM:
		return "CFIM"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Scalar is the single-parameter name of the objective.
func (t Target) Scalar() string {
	switch t {
	case QFIM:
		return "QFI"
	case CFIM:
		return "CFI"
	default:
		return t.String()
	}
}

// ParseTarget maps "QFIM" or "CFIM" to a Target.
func ParseTarget(tag string) (Target, error) {
	for _, t := range Targets {
		if t.String() == tag {
			return t, nil
		}
	}
	return 0, &quantum.UnknownTagError{Axis: "target", Value: tag, Valid: []string{"QFIM", "CFIM"}}
}
