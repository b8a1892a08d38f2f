package agent

import (
	"math"
	"testing"

	"github.com/pthm-cable/forager/telemetry"
)

func TestEpisodeEnergyArithmeticWithoutFood(t *testing.T) {
	cfg := testConfig(t)
	// No consumption can ever trigger, and the gate can never open.
	cfg.Food.ConsumeRadius = 0
	cfg.Energy.LearningThreshold = cfg.Energy.Max + 1
	cfg.Episode.MaxSteps = 500
	cfg.Episode.ProgressEvery = 0

	ep, err := New(Options{Config: cfg, Seed: 42})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sum := ep.Run()

	if ep.Status() != StatusCompleted {
		t.Fatalf("status = %v, want completed", ep.Status())
	}
	if sum.Cause != "completed" {
		t.Errorf("cause = %q, want completed", sum.Cause)
	}
	if len(ep.Records()) != 500 {
		t.Fatalf("records = %d, want 500", len(ep.Records()))
	}
	if sum.SurvivalTime != 500 {
		t.Errorf("survival = %d, want 500", sum.SurvivalTime)
	}
	if sum.FoodConsumed != 0 || sum.LearningSteps != 0 {
		t.Errorf("food = %d, learning = %d, want both 0", sum.FoodConsumed, sum.LearningSteps)
	}

	// Every tick charges decay, sensing and acting, nothing else.
	want := 100.0 - 500*(0.1+0.02+0.03)
	if math.Abs(sum.FinalEnergy-want) > 1e-6 {
		t.Errorf("final energy = %v, want %v", sum.FinalEnergy, want)
	}

	// Epsilon follows the floored geometric schedule exactly.
	eps := cfg.Policy.EpsilonInitial
	for i := 0; i < 500; i++ {
		eps = math.Max(eps*cfg.Policy.EpsilonDecay, cfg.Policy.EpsilonMin)
	}
	if math.Abs(sum.FinalEpsilon-eps) > 1e-12 {
		t.Errorf("final epsilon = %v, want %v", sum.FinalEpsilon, eps)
	}
}

func TestEpisodeZeroCostConservesEnergy(t *testing.T) {
	cfg := testConfig(t)
	// With every drain switched off the store must stay exactly at its
	// starting value, bit for bit.
	cfg.Energy.Decay = 0
	cfg.Energy.SensingCost = 0
	cfg.Energy.ActingCost = 0
	cfg.Energy.LearningCost = 0
	cfg.Food.ConsumeRadius = 0
	cfg.Episode.MaxSteps = 1000
	cfg.Episode.ProgressEvery = 0

	ep, err := New(Options{Config: cfg, Seed: 42})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 500; i++ {
		if !ep.Tick() {
			t.Fatalf("tick %d terminated early: %v", i, ep.Status())
		}
	}

	if ep.Status() != StatusAlive {
		t.Fatalf("status = %v, want alive", ep.Status())
	}
	if ep.Energy() != 100.0 {
		t.Errorf("energy = %v, want exactly 100", ep.Energy())
	}
	records := ep.Records()
	if len(records) != 500 {
		t.Fatalf("records = %d, want 500", len(records))
	}
	// A full store sits above the threshold, so the gate stays open the
	// whole run even though updates cost nothing.
	for i, r := range records {
		if r.Energy != 100.0 {
			t.Fatalf("records[%d].Energy = %v, want exactly 100", i, r.Energy)
		}
		if !r.CanLearn {
			t.Fatalf("records[%d].CanLearn = false at full energy", i)
		}
	}
}

func TestEpisodeRecordStreamInvariants(t *testing.T) {
	cfg := testConfig(t)
	cfg.Food.ConsumeRadius = 0
	cfg.Energy.LearningThreshold = cfg.Energy.Max + 1
	cfg.Episode.MaxSteps = 200
	cfg.Episode.ProgressEvery = 0

	ep, err := New(Options{Config: cfg, Seed: 42})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ep.Run()

	records := ep.Records()
	wantCost := cfg.Energy.SensingCost + cfg.Energy.ActingCost
	for i, r := range records {
		if r.Step != i {
			t.Fatalf("records[%d].Step = %d", i, r.Step)
		}
		if i > 0 {
			if r.Energy >= records[i-1].Energy {
				t.Fatalf("energy not decreasing at %d: %v -> %v", i, records[i-1].Energy, r.Energy)
			}
			if r.Epsilon > records[i-1].Epsilon {
				t.Fatalf("epsilon increased at %d", i)
			}
		}
		if r.CanLearn {
			t.Fatalf("records[%d].CanLearn = true with the gate held shut", i)
		}
		if r.Cost != wantCost {
			t.Fatalf("records[%d].Cost = %v, want %v", i, r.Cost, wantCost)
		}
		if r.Tier != "assist" && r.Tier != "explore" && r.Tier != "exploit" {
			t.Fatalf("records[%d].Tier = %q", i, r.Tier)
		}
	}
}

func TestEpisodeDiesWhenEnergyRunsOut(t *testing.T) {
	cfg := testConfig(t)
	// Powers of two keep the drain arithmetic exact: the third tick's
	// decay lands exactly on a negative store.
	cfg.Energy.Initial = 1.0
	cfg.Energy.Decay = 0.25
	cfg.Energy.SensingCost = 0.125
	cfg.Energy.ActingCost = 0.125
	cfg.Food.ConsumeRadius = 0
	cfg.Episode.ProgressEvery = 0

	ep, err := New(Options{Config: cfg, Seed: 42})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sum := ep.Run()

	if ep.Status() != StatusDead {
		t.Fatalf("status = %v, want dead", ep.Status())
	}
	if sum.Cause != "dead" {
		t.Errorf("cause = %q, want dead", sum.Cause)
	}
	// Ticks one and two complete; the third dies at the death check and
	// leaves no record.
	if len(ep.Records()) != 2 {
		t.Errorf("records = %d, want 2", len(ep.Records()))
	}
	if sum.SurvivalTime != 2 {
		t.Errorf("survival = %d, want 2", sum.SurvivalTime)
	}
	if sum.FinalEnergy != -0.25 {
		t.Errorf("final energy = %v, want -0.25", sum.FinalEnergy)
	}

	// The episode stays terminal.
	if ep.Tick() {
		t.Error("Tick on a dead episode should return false")
	}
	if ep.StepCount() != 2 {
		t.Errorf("StepCount = %d, want 2", ep.StepCount())
	}
}

func TestEpisodeCompletesAtHorizon(t *testing.T) {
	cfg := testConfig(t)
	cfg.Episode.MaxSteps = 3
	cfg.Episode.ProgressEvery = 0

	ep, err := New(Options{Config: cfg, Seed: 42})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !ep.Tick() || !ep.Tick() {
		t.Fatal("early ticks should continue")
	}
	if ep.Tick() {
		t.Error("the horizon tick should return false")
	}
	if ep.Status() != StatusCompleted {
		t.Errorf("status = %v, want completed", ep.Status())
	}
	if len(ep.Records()) != 3 {
		t.Errorf("records = %d, want 3", len(ep.Records()))
	}
}

func TestEpisodeLearningChargedWhenGateOpen(t *testing.T) {
	cfg := testConfig(t)
	cfg.Food.ConsumeRadius = 0
	cfg.Episode.ProgressEvery = 0

	ep, err := New(Options{Config: cfg, Seed: 42})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ep.Tick()

	r := ep.Records()[0]
	if !r.CanLearn {
		t.Fatal("full store should open the gate")
	}
	wantCost := cfg.Energy.SensingCost + cfg.Energy.ActingCost + cfg.Energy.LearningCost
	if r.Cost != wantCost {
		t.Errorf("Cost = %v, want %v", r.Cost, wantCost)
	}
	want := 100.0 - (0.1 + 0.02 + 0.03 + 0.05)
	if math.Abs(ep.Energy()-want) > 1e-9 {
		t.Errorf("energy = %v, want %v", ep.Energy(), want)
	}
}

func TestEpisodeSeedReproducible(t *testing.T) {
	cfg := testConfig(t)
	cfg.Episode.MaxSteps = 150
	cfg.Episode.ProgressEvery = 0

	run := func(seed int64) []telemetry.StepRecord {
		c := *cfg
		ep, err := New(Options{Config: &c, Seed: seed})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		ep.Run()
		return ep.Records()
	}

	a := run(7)
	b := run(7)
	if len(a) != len(b) {
		t.Fatalf("same seed, different lengths: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at record %d: %+v vs %+v", i, a[i], b[i])
		}
	}

	c := run(8)
	same := len(a) == len(c)
	if same {
		for i := range a {
			if a[i] != c[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("different seeds produced identical streams")
	}
}

func TestEpisodeOnRecordCallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Episode.MaxSteps = 25
	cfg.Episode.ProgressEvery = 0

	var streamed []telemetry.StepRecord
	ep, err := New(Options{
		Config:   cfg,
		Seed:     42,
		OnRecord: func(r telemetry.StepRecord) { streamed = append(streamed, r) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ep.Run()

	records := ep.Records()
	if len(streamed) != len(records) {
		t.Fatalf("callback saw %d records, episode kept %d", len(streamed), len(records))
	}
	for i := range records {
		if streamed[i] != records[i] {
			t.Fatalf("callback record %d differs", i)
		}
	}
}

func TestNewRejectsUnusablePhysics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Physics.DT = 0

	if _, err := New(Options{Config: cfg, Seed: 42}); err == nil {
		t.Error("expected error for zero dt")
	}
}

func TestEpisodeFoodPositions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Episode.ProgressEvery = 0

	ep, err := New(Options{Config: cfg, Seed: 42})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	positions := ep.FoodPositions()
	if len(positions) != cfg.Food.Count {
		t.Fatalf("positions = %d, want %d", len(positions), cfg.Food.Count)
	}
	for i, p := range positions {
		if math.Abs(p.X) > cfg.Food.HalfExtent || math.Abs(p.Y) > cfg.Food.HalfExtent {
			t.Errorf("item %d outside bounds: %v", i, p)
		}
	}
}
