package optimization

import (
	"fmt"

	"github.com/GoSim-25-26J-441/estimation-core/internal/engine"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

// DefaultSeed seeds the stochastic methods.
const DefaultSeed = 1234

// DefaultHyperparameters returns the defaults for m.
func DefaultHyperparameters(m Method) engine.Hyperparameters {
	adam := true
	switch m {
	case AD, GRAPE, AutoGRAPE:
		return engine.Hyperparameters{MaxEpisode: []int{300}, Epsilon: 0.01, Beta1: 0.90, Beta2: 0.99, Adam: &adam}
	case PSO:
		return engine.Hyperparameters{MaxEpisode: []int{1000, 100}, ParticleNum: 10, C0: 1.0, C1: 2.0, C2: 2.0, Seed: DefaultSeed}
	case DE:
		return engine.Hyperparameters{MaxEpisode: []int{1000}, PopSize: 10, C: 1.0, CR: 0.5, Seed: DefaultSeed}
	case NM:
		return engine.Hyperparameters{MaxEpisode: []int{1000}, StateNum: 10, AR: 1.0, AE: 2.0, AC: 0.5, AS: 0.5, Seed: DefaultSeed}
	case DDPG:
		return engine.Hyperparameters{MaxEpisode: []int{500}, LayerNum: 3, LayerDim: 200, Seed: DefaultSeed}
	default:
		return engine.Hyperparameters{}
	}
}

// withDefaults fills every zero field of h that m uses and clears the
// fields m ignores.
func withDefaults(m Method, h engine.Hyperparameters) engine.Hyperparameters {
	d := DefaultHyperparameters(m)
	out := engine.Hyperparameters{Seed: h.Seed}
	if len(h.MaxEpisode) > 0 {
		out.MaxEpisode = append([]int(nil), h.MaxEpisode...)
	} else {
		out.MaxEpisode = d.MaxEpisode
	}
	if d.Seed == 0 {
		out.Seed = 0
	} else if out.Seed == 0 {
		out.Seed = d.Seed
	}

	pick := func(v, def float64) float64 {
		switch {
		case def == 0:
			return 0
		case v != 0:
			return v
		default:
			return def
		}
	}
	pickInt := func(v, def int) int {
		switch {
		case def == 0:
			return 0
		case v != 0:
			return v
		default:
			return def
		}
	}

	out.Epsilon = pick(h.Epsilon, d.Epsilon)
	out.Beta1 = pick(h.Beta1, d.Beta1)
	out.Beta2 = pick(h.Beta2, d.Beta2)
	if d.Adam != nil {
		out.Adam = d.Adam
		if h.Adam != nil {
			adam := *h.Adam
			out.Adam = &adam
		}
	}
	out.ParticleNum = pickInt(h.ParticleNum, d.ParticleNum)
	out.C0 = pick(h.C0, d.C0)
	out.C1 = pick(h.C1, d.C1)
	out.C2 = pick(h.C2, d.C2)
	out.PopSize = pickInt(h.PopSize, d.PopSize)
	out.C = pick(h.C, d.C)
	out.CR = pick(h.CR, d.CR)
	out.StateNum = pickInt(h.StateNum, d.StateNum)
	out.AR = pick(h.AR, d.AR)
	out.AE = pick(h.AE, d.AE)
	out.AC = pick(h.AC, d.AC)
	out.AS = pick(h.AS, d.AS)
	out.LayerNum = pickInt(h.LayerNum, d.LayerNum)
	out.LayerDim = pickInt(h.LayerDim, d.LayerDim)
	return out
}

func validateHyperparameters(m Method, h engine.Hyperparameters) error {
	field := func(name string) string { return "hyperparameters." + name }

	episodes := 1
	if m == PSO {
		episodes = 2
	}
	if len(h.MaxEpisode) < 1 || len(h.MaxEpisode) > episodes {
		return quantum.Invalid(field("max_episode"), "%s takes 1 to %d values, got %d", m, episodes, len(h.MaxEpisode))
	}
	for i, n := range h.MaxEpisode {
		if n <= 0 {
			return quantum.Invalid(field(fmt.Sprintf("max_episode[%d]", i)), "must be positive, got %d", n)
		}
	}

	switch m {
	case AD, GRAPE, AutoGRAPE:
		if h.Epsilon <= 0 {
			return quantum.Invalid(field("epsilon"), "must be positive, got %v", h.Epsilon)
		}
		if h.Beta1 <= 0 || h.Beta1 >= 1 {
			return quantum.Invalid(field("beta1"), "must lie in (0, 1), got %v", h.Beta1)
		}
		if h.Beta2 <= 0 || h.Beta2 >= 1 {
			return quantum.Invalid(field("beta2"), "must lie in (0, 1), got %v", h.Beta2)
		}
	case PSO:
		if h.ParticleNum <= 0 {
			return quantum.Invalid(field("particle_num"), "must be positive, got %d", h.ParticleNum)
		}
	case DE:
		if h.PopSize <= 0 {
			return quantum.Invalid(field("popsize"), "must be positive, got %d", h.PopSize)
		}
		if h.CR < 0 || h.CR > 1 {
			return quantum.Invalid(field("cr"), "must lie in [0, 1], got %v", h.CR)
		}
	case NM:
		if h.StateNum <= 0 {
			return quantum.Invalid(field("state_num"), "must be positive, got %d", h.StateNum)
		}
	case DDPG:
		if h.LayerNum <= 0 || h.LayerDim <= 0 {
			return quantum.Invalid(field("layer_num"), "layer shape must be positive, got %dx%d", h.LayerNum, h.LayerDim)
		}
	}
	return nil
}
