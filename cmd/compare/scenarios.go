package main

import (
	"github.com/pthm-cable/forager/config"
)

// Scenario is a named energy regime layered over the base configuration.
// Decay replaces the ambient drain, CostScale multiplies the three charged
// metabolic costs, and Threshold replaces the learning gate level.
type Scenario struct {
	Name      string
	Decay     float64
	CostScale float64
	Threshold float64
}

// DefaultScenarios spans regimes from comfortable to punishing. The extreme
// regime drains faster than feeding can plausibly replace.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "abundant", Decay: 0.05, CostScale: 0.5, Threshold: 30},
		{Name: "moderate", Decay: 0.10, CostScale: 1.0, Threshold: 50},
		{Name: "scarce", Decay: 0.15, CostScale: 2.0, Threshold: 70},
		{Name: "extreme", Decay: 0.20, CostScale: 3.0, Threshold: 80},
	}
}

// EmergencePair contrasts a rich regime with a poor one. A gap in learning
// ratio between the two shows the gate coupling cognition to survival.
func EmergencePair() []Scenario {
	return []Scenario{
		{Name: "rich", Decay: 0.05, CostScale: 0.5, Threshold: 25},
		{Name: "poor", Decay: 0.12, CostScale: 1.5, Threshold: 60},
	}
}

// Apply overlays the regime onto a freshly loaded config.
func (s Scenario) Apply(cfg *config.Config) {
	cfg.Energy.Decay = s.Decay
	cfg.Energy.SensingCost *= s.CostScale
	cfg.Energy.ActingCost *= s.CostScale
	cfg.Energy.LearningCost *= s.CostScale
	cfg.Energy.LearningThreshold = s.Threshold
	cfg.Derived.IdleDrain = cfg.Energy.Decay + cfg.Energy.SensingCost + cfg.Energy.ActingCost
}
