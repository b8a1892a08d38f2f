// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Energy    EnergyConfig    `yaml:"energy"`
	Policy    PolicyConfig    `yaml:"policy"`
	Reward    RewardConfig    `yaml:"reward"`
	Food      FoodConfig      `yaml:"food"`
	Neural    NeuralConfig    `yaml:"neural"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Episode   EpisodeConfig   `yaml:"episode"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// EnergyConfig holds the metabolic cost model.
type EnergyConfig struct {
	Initial           float64 `yaml:"initial"`
	Max               float64 `yaml:"max"`
	Decay             float64 `yaml:"decay"`              // Ambient drain per tick, charged even when idle
	SensingCost       float64 `yaml:"sensing_cost"`       // Charged per observation
	ActingCost        float64 `yaml:"acting_cost"`        // Charged per action
	LearningCost      float64 `yaml:"learning_cost"`      // Charged per gradient step
	LearningThreshold float64 `yaml:"learning_threshold"` // Learning permitted only strictly above this
}

// PolicyConfig holds action-selection parameters.
type PolicyConfig struct {
	EpsilonInitial float64 `yaml:"epsilon_initial"`
	EpsilonDecay   float64 `yaml:"epsilon_decay"` // Geometric factor applied every selection
	EpsilonMin     float64 `yaml:"epsilon_min"`
	AssistRadius   float64 `yaml:"assist_radius"` // Heuristic tier eligible below this food distance
	AssistChance   float64 `yaml:"assist_chance"` // Coin for the heuristic tier when eligible
	ForceMagnitude float64 `yaml:"force_magnitude"`
}

// RewardConfig holds reward shaping parameters.
type RewardConfig struct {
	EatReward        float64 `yaml:"eat_reward"`
	MaxDistance      float64 `yaml:"max_distance"`      // Distance at which shaped reward crosses zero
	ShapingScale     float64 `yaml:"shaping_scale"`     // Multiplier on the proximity term
	ExistencePenalty float64 `yaml:"existence_penalty"` // Flat per-tick penalty on non-eating ticks
}

// FoodConfig holds food field parameters.
type FoodConfig struct {
	Count         int     `yaml:"count"`
	HalfExtent    float64 `yaml:"half_extent"` // Items placed uniformly in [-h, h] per axis
	ConsumeRadius float64 `yaml:"consume_radius"`
	GainMin       float64 `yaml:"gain_min"`
	GainMax       float64 `yaml:"gain_max"`
}

// NeuralConfig holds policy network parameters.
type NeuralConfig struct {
	Hidden       []int   `yaml:"hidden"`
	LearningRate float64 `yaml:"learning_rate"`
	OutputBias   float64 `yaml:"output_bias"` // Initial output-layer bias, biases early action scores up
}

// PhysicsConfig holds planar world parameters.
type PhysicsConfig struct {
	DT            float64 `yaml:"dt"`
	LinearDamping float64 `yaml:"linear_damping"` // Per-step velocity retention loss
	MaxSpeed      float64 `yaml:"max_speed"`
	AgentMass     float64 `yaml:"agent_mass"`
	AgentRadius   float64 `yaml:"agent_radius"`
	FoodMass      float64 `yaml:"food_mass"`
	FoodRadius    float64 `yaml:"food_radius"`
}

// EpisodeConfig holds episode control parameters.
type EpisodeConfig struct {
	MaxSteps      int `yaml:"max_steps"`
	ProgressEvery int `yaml:"progress_every"` // Log a progress line every N ticks (0 disables)
}

// TelemetryConfig holds output and derived-metric parameters.
type TelemetryConfig struct {
	OutputDir        string `yaml:"output_dir"`        // Empty disables file output
	EfficiencyWindow int    `yaml:"efficiency_window"` // Rolling window for feeding efficiency
}

// DerivedConfig holds values computed from the loaded configuration.
type DerivedConfig struct {
	NumInputs  int     // Observation width: pose (4) + food offset (2) + distance + energy
	NumActions int     // Discrete thrust directions
	IdleDrain  float64 // Energy lost per tick with sensing and acting but no learning
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects configurations the simulation cannot run with.
func (c *Config) validate() error {
	switch {
	case c.Physics.DT <= 0:
		return fmt.Errorf("config: physics.dt must be positive, got %v", c.Physics.DT)
	case c.Energy.Initial <= 0 || c.Energy.Max <= 0:
		return fmt.Errorf("config: energy.initial and energy.max must be positive")
	case c.Energy.Initial > c.Energy.Max:
		return fmt.Errorf("config: energy.initial %v exceeds energy.max %v", c.Energy.Initial, c.Energy.Max)
	case c.Food.Count <= 0:
		return fmt.Errorf("config: food.count must be positive, got %d", c.Food.Count)
	case c.Food.GainMax < c.Food.GainMin:
		return fmt.Errorf("config: food.gain_max %v below food.gain_min %v", c.Food.GainMax, c.Food.GainMin)
	case c.Policy.EpsilonDecay <= 0 || c.Policy.EpsilonDecay > 1:
		return fmt.Errorf("config: policy.epsilon_decay must be in (0, 1], got %v", c.Policy.EpsilonDecay)
	case c.Episode.MaxSteps <= 0:
		return fmt.Errorf("config: episode.max_steps must be positive, got %d", c.Episode.MaxSteps)
	case len(c.Neural.Hidden) == 0:
		return fmt.Errorf("config: neural.hidden must name at least one layer")
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.NumInputs = 4 + 2 + 1 + 1
	c.Derived.NumActions = 4
	c.Derived.IdleDrain = c.Energy.Decay + c.Energy.SensingCost + c.Energy.ActingCost
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
