package utils

import (
	"math"
	"math/rand"
)

// RandSource is a seeded random number generator. Every stochastic
// construction in the module draws from one of these so a fixed seed
// reproduces the same values.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed
func NewRandSource(seed int64) *RandSource {
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	return r.rng.Intn(n)
}

// UniformFloat64 returns a uniformly distributed random number in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

// UniformVector returns n values drawn uniformly from [min, max).
func (r *RandSource) UniformVector(n int, min, max float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r.UniformFloat64(min, max)
	}
	return out
}

// Phases returns n phases drawn uniformly from [0, 2π).
func (r *RandSource) Phases(n int) []float64 {
	return r.UniformVector(n, 0, 2*math.Pi)
}
