package agent

import "github.com/pthm-cable/forager/config"

// Shaper computes the per-tick scalar reward: a flat bonus for eating,
// otherwise a linear proximity gradient minus a flat existence penalty.
// The gradient is unclamped and goes negative beyond MaxDistance.
type Shaper struct {
	eat     float64
	maxDist float64
	scale   float64
	penalty float64
}

// NewShaper builds a shaper from reward configuration.
func NewShaper(cfg config.RewardConfig) Shaper {
	return Shaper{
		eat:     cfg.EatReward,
		maxDist: cfg.MaxDistance,
		scale:   cfg.ShapingScale,
		penalty: cfg.ExistencePenalty,
	}
}

// Shape returns the reward for a tick whose observation was obs.
func (s Shaper) Shape(obs Observation, ate bool) float64 {
	if ate {
		return s.eat
	}
	return (s.maxDist-obs.FoodDist)/s.maxDist*s.scale - s.penalty
}
