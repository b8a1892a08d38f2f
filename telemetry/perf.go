package telemetry

import (
	"log/slog"
	"time"
)

// PerfWindow tracks tick durations over a rolling window so a driver can
// report the pace it actually achieves. The episode itself is never
// instrumented; callers time their own Tick calls and feed the samples in.
type PerfWindow struct {
	samples     []time.Duration
	writeIndex  int
	sampleCount int
}

// NewPerfWindow creates a collector averaging over windowSize ticks.
func NewPerfWindow(windowSize int) *PerfWindow {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfWindow{samples: make([]time.Duration, windowSize)}
}

// Add records one tick's duration.
func (p *PerfWindow) Add(d time.Duration) {
	p.samples[p.writeIndex] = d
	p.writeIndex = (p.writeIndex + 1) % len(p.samples)
	if p.sampleCount < len(p.samples) {
		p.sampleCount++
	}
}

// PerfStats holds aggregated tick timing over the current window.
type PerfStats struct {
	Samples        int
	AvgTick        time.Duration
	MinTick        time.Duration
	MaxTick        time.Duration
	TicksPerSecond float64
}

// Stats computes aggregated statistics over the samples held.
func (p *PerfWindow) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{}
	}

	var total time.Duration
	var min, max time.Duration
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s
		if i == 0 || s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	avg := total / time.Duration(p.sampleCount)
	var ticksPerSec float64
	if avg > 0 {
		ticksPerSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		Samples:        p.sampleCount,
		AvgTick:        avg,
		MinTick:        min,
		MaxTick:        max,
		TicksPerSecond: ticksPerSec,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("samples", s.Samples),
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("min_tick_us", s.MinTick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	)
}
