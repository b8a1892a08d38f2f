package telemetry

import (
	"testing"
	"time"
)

func TestPerfWindowStats(t *testing.T) {
	p := NewPerfWindow(10)

	p.Add(1 * time.Millisecond)
	p.Add(2 * time.Millisecond)
	p.Add(3 * time.Millisecond)

	stats := p.Stats()

	if stats.Samples != 3 {
		t.Errorf("Samples = %d, want 3", stats.Samples)
	}
	if stats.AvgTick != 2*time.Millisecond {
		t.Errorf("AvgTick = %v, want 2ms", stats.AvgTick)
	}
	if stats.MinTick != 1*time.Millisecond {
		t.Errorf("MinTick = %v, want 1ms", stats.MinTick)
	}
	if stats.MaxTick != 3*time.Millisecond {
		t.Errorf("MaxTick = %v, want 3ms", stats.MaxTick)
	}
	if stats.TicksPerSecond != 500 {
		t.Errorf("TicksPerSecond = %v, want 500", stats.TicksPerSecond)
	}
}

func TestPerfWindowRolls(t *testing.T) {
	p := NewPerfWindow(4)

	// The first four samples age out of the window entirely.
	for i := 0; i < 4; i++ {
		p.Add(time.Second)
	}
	for i := 0; i < 4; i++ {
		p.Add(10 * time.Millisecond)
	}

	stats := p.Stats()
	if stats.Samples != 4 {
		t.Errorf("Samples = %d, want window size 4", stats.Samples)
	}
	if stats.AvgTick != 10*time.Millisecond {
		t.Errorf("AvgTick = %v, want 10ms", stats.AvgTick)
	}
	if stats.MaxTick != 10*time.Millisecond {
		t.Errorf("MaxTick = %v, old samples leaked into the window", stats.MaxTick)
	}
}

func TestPerfWindowEmpty(t *testing.T) {
	p := NewPerfWindow(10)

	stats := p.Stats()
	if stats.Samples != 0 || stats.AvgTick != 0 || stats.TicksPerSecond != 0 {
		t.Errorf("empty window yielded %+v", stats)
	}
}

func TestPerfWindowClampsSize(t *testing.T) {
	p := NewPerfWindow(0)

	// A non-positive window falls back to a sane default instead of
	// panicking on the first Add.
	p.Add(time.Millisecond)
	if p.Stats().Samples != 1 {
		t.Errorf("Samples = %d, want 1", p.Stats().Samples)
	}
}
