package telemetry

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
)

// effFloor is the smallest denominator used when dividing by spent
// energy, so windows with no charged cost stay finite.
const effFloor = 1e-3

// Summary aggregates one episode.
type Summary struct {
	Cause             string  `csv:"cause" json:"cause" db:"cause"`
	SurvivalTime      int     `csv:"survival_time" json:"survival_time" db:"survival_time"`
	FoodConsumed      int     `csv:"food_consumed" json:"food_consumed" db:"food_consumed"`
	LearningSteps     int     `csv:"learning_steps" json:"learning_steps" db:"learning_steps"`
	AverageEnergy     float64 `csv:"average_energy" json:"average_energy" db:"average_energy"`
	FinalEnergy       float64 `csv:"final_energy" json:"final_energy" db:"final_energy"`
	FinalEpsilon      float64 `csv:"final_epsilon" json:"final_epsilon" db:"final_epsilon"`
	LearningRatio     float64 `csv:"learning_ratio" json:"learning_ratio" db:"learning_ratio"`
	FeedingEfficiency float64 `csv:"feeding_efficiency" json:"feeding_efficiency" db:"feeding_efficiency"`
}

// Summarize derives summary statistics from a record stream. Cause,
// final energy and final epsilon are the episode's to fill in. Count
// denominators floor at one tick.
func Summarize(records []StepRecord) Summary {
	s := Summary{SurvivalTime: len(records)}
	var energySum float64
	for _, r := range records {
		energySum += r.Energy
		if r.Ate {
			s.FoodConsumed++
		}
		if r.CanLearn {
			s.LearningSteps++
		}
	}
	ticks := float64(max(s.SurvivalTime, 1))
	if s.SurvivalTime > 0 {
		s.AverageEnergy = energySum / ticks
	}
	s.LearningRatio = float64(s.LearningSteps) / ticks
	s.FeedingEfficiency = float64(s.FoodConsumed) / ticks
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("cause", s.Cause),
		slog.Int("survival_time", s.SurvivalTime),
		slog.Int("food_consumed", s.FoodConsumed),
		slog.Int("learning_steps", s.LearningSteps),
		slog.Float64("average_energy", s.AverageEnergy),
		slog.Float64("final_energy", s.FinalEnergy),
		slog.Float64("final_epsilon", s.FinalEpsilon),
		slog.Float64("learning_ratio", s.LearningRatio),
		slog.Float64("feeding_efficiency", s.FeedingEfficiency),
	)
}

// RollingEfficiency returns, per tick, food eaten over energy charged
// within the trailing window. The spent-energy denominator is floored.
func RollingEfficiency(records []StepRecord, window int) []float64 {
	if window <= 0 {
		window = 1
	}
	out := make([]float64, len(records))
	for i := range records {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		var food, spent float64
		for _, r := range records[lo : i+1] {
			if r.Ate {
				food++
			}
			spent += r.Cost
		}
		out[i] = food / math.Max(spent, effFloor)
	}
	return out
}

// EnergyLearningCorrelation is the Pearson correlation between per-tick
// energy and the learning-permitted flag across one or more record
// streams. Degenerate series correlate as zero.
func EnergyLearningCorrelation(streams ...[]StepRecord) float64 {
	var energy, learn []float64
	for _, records := range streams {
		for _, r := range records {
			energy = append(energy, r.Energy)
			if r.CanLearn {
				learn = append(learn, 1)
			} else {
				learn = append(learn, 0)
			}
		}
	}
	if len(energy) < 2 {
		return 0
	}
	c := stat.Correlation(energy, learn, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}

// AggregateStats summarizes a set of runs under one label.
type AggregateStats struct {
	Label                 string  `csv:"label" json:"label" db:"label"`
	Runs                  int     `csv:"runs" json:"runs" db:"runs"`
	MeanSurvival          float64 `csv:"mean_survival" json:"mean_survival" db:"mean_survival"`
	StdSurvival           float64 `csv:"std_survival" json:"std_survival" db:"std_survival"`
	MeanFood              float64 `csv:"mean_food" json:"mean_food" db:"mean_food"`
	StdFood               float64 `csv:"std_food" json:"std_food" db:"std_food"`
	MeanAverageEnergy     float64 `csv:"mean_average_energy" json:"mean_average_energy" db:"mean_average_energy"`
	MeanLearningRatio     float64 `csv:"mean_learning_ratio" json:"mean_learning_ratio" db:"mean_learning_ratio"`
	MeanFeedingEfficiency float64 `csv:"mean_feeding_efficiency" json:"mean_feeding_efficiency" db:"mean_feeding_efficiency"`
	DeathRate             float64 `csv:"death_rate" json:"death_rate" db:"death_rate"`
}

// Aggregate folds run summaries into aggregate statistics.
func Aggregate(label string, summaries []Summary) AggregateStats {
	agg := AggregateStats{Label: label, Runs: len(summaries)}
	if len(summaries) == 0 {
		return agg
	}
	survival := make([]float64, len(summaries))
	food := make([]float64, len(summaries))
	avgEnergy := make([]float64, len(summaries))
	learnRatio := make([]float64, len(summaries))
	feedEff := make([]float64, len(summaries))
	deaths := 0
	for i, s := range summaries {
		survival[i] = float64(s.SurvivalTime)
		food[i] = float64(s.FoodConsumed)
		avgEnergy[i] = s.AverageEnergy
		learnRatio[i] = s.LearningRatio
		feedEff[i] = s.FeedingEfficiency
		if s.Cause == "dead" {
			deaths++
		}
	}
	agg.MeanSurvival, agg.StdSurvival = meanStd(survival)
	agg.MeanFood, agg.StdFood = meanStd(food)
	agg.MeanAverageEnergy = stat.Mean(avgEnergy, nil)
	agg.MeanLearningRatio = stat.Mean(learnRatio, nil)
	agg.MeanFeedingEfficiency = stat.Mean(feedEff, nil)
	agg.DeathRate = float64(deaths) / float64(len(summaries))
	return agg
}

// LogValue implements slog.LogValuer for structured logging.
func (a AggregateStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("label", a.Label),
		slog.Int("runs", a.Runs),
		slog.Float64("mean_survival", a.MeanSurvival),
		slog.Float64("std_survival", a.StdSurvival),
		slog.Float64("mean_food", a.MeanFood),
		slog.Float64("std_food", a.StdFood),
		slog.Float64("mean_average_energy", a.MeanAverageEnergy),
		slog.Float64("mean_learning_ratio", a.MeanLearningRatio),
		slog.Float64("mean_feeding_efficiency", a.MeanFeedingEfficiency),
		slog.Float64("death_rate", a.DeathRate),
	)
}

func meanStd(xs []float64) (mean, std float64) {
	mean = stat.Mean(xs, nil)
	if len(xs) < 2 {
		return mean, 0
	}
	return mean, stat.StdDev(xs, nil)
}
