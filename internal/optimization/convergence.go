package optimization

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/estimation-core/pkg/utils"
)

// ConvergenceStrategy decides from an objective trajectory whether the
// search has converged. Larger objective values are better.
type ConvergenceStrategy interface {
	// CheckConvergence checks if the trajectory has converged
	CheckConvergence(trajectory []float64) (bool, string)
	// Name returns the name of the convergence strategy
	Name() string
}

// ConvergenceConfig holds configuration for convergence detection
type ConvergenceConfig struct {
	// NoImprovementEpisodes is the number of trailing episodes without a new best
	NoImprovementEpisodes int
	// ScoreTolerance is the absolute range below which scores count as equal
	ScoreTolerance float64
	// MinEpisodes is the minimum trajectory length before convergence can be detected
	MinEpisodes int
	// PlateauEpisodes is the window that must stay within ScoreTolerance
	PlateauEpisodes int
}

// DefaultConvergenceConfig returns a default convergence configuration
func DefaultConvergenceConfig() *ConvergenceConfig {
	return &ConvergenceConfig{
		NoImprovementEpisodes: 20,
		ScoreTolerance:        1e-6,
		MinEpisodes:           3,
		PlateauEpisodes:       10,
	}
}

// NoImprovementStrategy converges when no new best appeared for N episodes
type NoImprovementStrategy struct {
	config *ConvergenceConfig
}

// NewNoImprovementStrategy creates a new no-improvement convergence strategy
func NewNoImprovementStrategy(config *ConvergenceConfig) *NoImprovementStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &NoImprovementStrategy{config: config}
}

func (s *NoImprovementStrategy) Name() string {
	return "no_improvement"
}

func (s *NoImprovementStrategy) CheckConvergence(trajectory []float64) (bool, string) {
	if len(trajectory) < s.config.MinEpisodes {
		return false, ""
	}
	best, _ := utils.ArgMax(trajectory)
	since := len(trajectory) - 1 - best
	if since >= s.config.NoImprovementEpisodes {
		return true, fmt.Sprintf("no improvement for %d episodes (best at episode %d)", since, best)
	}
	return false, ""
}

// PlateauStrategy converges when the trailing window stays within tolerance
type PlateauStrategy struct {
	config *ConvergenceConfig
}

// NewPlateauStrategy creates a new plateau convergence strategy
func NewPlateauStrategy(config *ConvergenceConfig) *PlateauStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &PlateauStrategy{config: config}
}

func (s *PlateauStrategy) Name() string {
	return "plateau"
}

func (s *PlateauStrategy) CheckConvergence(trajectory []float64) (bool, string) {
	if len(trajectory) < s.config.MinEpisodes || len(trajectory) < s.config.PlateauEpisodes {
		return false, ""
	}
	recent := trajectory[len(trajectory)-s.config.PlateauEpisodes:]
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range recent {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo <= s.config.ScoreTolerance {
		return true, fmt.Sprintf("objective plateaued for %d episodes (range: %.3g)", s.config.PlateauEpisodes, hi-lo)
	}
	return false, ""
}

// CombinedStrategy converges if any of its strategies does
type CombinedStrategy struct {
	strategies []ConvergenceStrategy
}

// NewCombinedStrategy creates a new combined convergence strategy
func NewCombinedStrategy(config *ConvergenceConfig) *CombinedStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &CombinedStrategy{
		strategies: []ConvergenceStrategy{
			NewNoImprovementStrategy(config),
			NewPlateauStrategy(config),
		},
	}
}

func (s *CombinedStrategy) Name() string {
	return "combined"
}

func (s *CombinedStrategy) CheckConvergence(trajectory []float64) (bool, string) {
	for _, strategy := range s.strategies {
		if converged, reason := strategy.CheckConvergence(trajectory); converged {
			return true, fmt.Sprintf("%s: %s", strategy.Name(), reason)
		}
	}
	return false, ""
}

// AddStrategy adds a custom strategy to the combined strategy
func (s *CombinedStrategy) AddStrategy(strategy ConvergenceStrategy) {
	s.strategies = append(s.strategies, strategy)
}

// Summary describes a returned objective trajectory. It is informational;
// the engine alone decides when to stop.
type Summary struct {
	Episodes  int
	Best      float64
	BestAt    int
	Final     float64
	Mean      float64
	Converged bool
	Reason    string
}

// Summarize reports on trajectory using strategy, or the default combined
// strategy when nil.
func Summarize(trajectory []float64, strategy ConvergenceStrategy) Summary {
	if len(trajectory) == 0 {
		return Summary{BestAt: -1}
	}
	if strategy == nil {
		strategy = NewCombinedStrategy(nil)
	}
	bestAt, best := utils.ArgMax(trajectory)
	converged, reason := strategy.CheckConvergence(trajectory)
	return Summary{
		Episodes:  len(trajectory),
		Best:      best,
		BestAt:    bestAt,
		Final:     trajectory[len(trajectory)-1],
		Mean:      utils.Mean(trajectory),
		Converged: converged,
		Reason:    reason,
	}
}
