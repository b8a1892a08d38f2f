// Package telemetry derives and exports statistics from the per-tick
// record stream an episode emits.
package telemetry

import "log/slog"

// StepRecord is one tick's observable outcome. The first six fields are
// the episode's contract with downstream consumers; the rest annotate
// the decision that produced them.
type StepRecord struct {
	Step     int     `csv:"step" json:"step" db:"step"`
	Energy   float64 `csv:"energy" json:"energy" db:"energy"`
	Ate      bool    `csv:"ate" json:"ate" db:"ate"`
	CanLearn bool    `csv:"can_learn" json:"can_learn" db:"can_learn"`
	X        float64 `csv:"x" json:"x" db:"x"`
	Y        float64 `csv:"y" json:"y" db:"y"`
	Cost     float64 `csv:"cost" json:"cost" db:"cost"` // Sensing + acting + learning charged this tick, excluding ambient decay

	Action  int     `csv:"action" json:"action" db:"action"`
	Tier    string  `csv:"tier" json:"tier" db:"tier"`
	Reward  float64 `csv:"reward" json:"reward" db:"reward"`
	Epsilon float64 `csv:"epsilon" json:"epsilon" db:"epsilon"`
}

// LogValue implements slog.LogValuer for structured logging.
func (r StepRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", r.Step),
		slog.Float64("energy", r.Energy),
		slog.Bool("ate", r.Ate),
		slog.Bool("can_learn", r.CanLearn),
		slog.Float64("x", r.X),
		slog.Float64("y", r.Y),
		slog.Float64("cost", r.Cost),
		slog.Int("action", r.Action),
		slog.String("tier", r.Tier),
		slog.Float64("reward", r.Reward),
		slog.Float64("epsilon", r.Epsilon),
	)
}
