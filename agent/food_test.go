package agent

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/forager/physics"
)

func TestCheckConsumptionFirstInOrderWins(t *testing.T) {
	w := newTestWorld(t)
	first := spawnBody(t, w, physics.Vec2{X: 0.5})
	second := spawnBody(t, w, physics.Vec2{Y: 0.5})
	field := fixedField(w, []physics.Body{first, second})

	ledger := NewLedger(50, 150)
	if !field.CheckConsumption(physics.Vec2{}, ledger) {
		t.Fatal("expected a consumption")
	}

	// Only the first item relocates; the second is untouched.
	firstPos, _, _ := w.BodyState(first)
	if firstPos == (physics.Vec2{X: 0.5}) {
		t.Error("consumed item did not relocate")
	}
	secondPos, _, _ := w.BodyState(second)
	if secondPos != (physics.Vec2{Y: 0.5}) {
		t.Errorf("second item moved to %v", secondPos)
	}
}

func TestCheckConsumptionOneItemPerCall(t *testing.T) {
	w := newTestWorld(t)
	first := spawnBody(t, w, physics.Vec2{X: 0.5})
	second := spawnBody(t, w, physics.Vec2{Y: 0.5})
	field := fixedField(w, []physics.Body{first, second})

	ledger := NewLedger(10, 150)
	if !field.CheckConsumption(physics.Vec2{}, ledger) {
		t.Fatal("first call should consume")
	}
	afterFirst := ledger.Value()
	if afterFirst <= 10 {
		t.Fatal("first consumption should credit energy")
	}

	// The second item is still in range for the next call.
	if !field.CheckConsumption(physics.Vec2{}, ledger) {
		t.Fatal("second call should consume the remaining item")
	}
	if ledger.Value() <= afterFirst {
		t.Error("second consumption should credit energy")
	}
}

func TestCheckConsumptionRequiresStrictlyWithinRadius(t *testing.T) {
	w := newTestWorld(t)
	// Exactly on the radius boundary.
	item := spawnBody(t, w, physics.Vec2{X: 0.8})
	field := fixedField(w, []physics.Body{item})

	ledger := NewLedger(50, 150)
	if field.CheckConsumption(physics.Vec2{}, ledger) {
		t.Error("item exactly at the consume radius should not be eaten")
	}
	if ledger.Value() != 50 {
		t.Errorf("ledger changed without a consumption: %v", ledger.Value())
	}
}

func TestCheckConsumptionGainWithinRange(t *testing.T) {
	w := newTestWorld(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 20; i++ {
		item := spawnBody(t, w, physics.Vec2{X: 0.1})
		field := fixedField(w, []physics.Body{item})
		field.rng = rng

		ledger := NewLedger(10, 150)
		if !field.CheckConsumption(physics.Vec2{}, ledger) {
			t.Fatal("expected a consumption")
		}
		gain := ledger.Value() - 10
		if gain < 15 || gain > 25 {
			t.Fatalf("gain %v outside [15, 25]", gain)
		}
	}
}

func TestCheckConsumptionRelocatesWithinBounds(t *testing.T) {
	w := newTestWorld(t)
	item := spawnBody(t, w, physics.Vec2{X: 0.1})
	field := fixedField(w, []physics.Body{item})

	for i := 0; i < 50; i++ {
		// Chase the item so every iteration consumes it again.
		pos, _, _ := w.BodyState(item)
		near := physics.Vec2{X: pos.X + 0.01, Y: pos.Y}
		if !field.CheckConsumption(near, NewLedger(10, 150)) {
			t.Fatal("expected a consumption")
		}
		moved, _, _ := w.BodyState(item)
		if math.Abs(moved.X) > field.half || math.Abs(moved.Y) > field.half {
			t.Fatalf("relocated out of bounds: %v", moved)
		}
	}
}

func TestCheckConsumptionSkipsUnresolvableItems(t *testing.T) {
	w := newTestWorld(t)
	item := spawnBody(t, w, physics.Vec2{X: 0.1})
	field := fixedField(w, []physics.Body{item})

	w.RemoveBody(item)

	ledger := NewLedger(50, 150)
	if field.CheckConsumption(physics.Vec2{}, ledger) {
		t.Error("unresolvable item should not be consumable")
	}
	if ledger.Value() != 50 {
		t.Errorf("ledger changed: %v", ledger.Value())
	}
}

func TestNewFieldSpawnsConfiguredPopulation(t *testing.T) {
	w := newTestWorld(t)
	cfg := testConfig(t)
	rng := rand.New(rand.NewSource(42))

	field, err := NewField(w, rng, cfg)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	if field.Count() != cfg.Food.Count {
		t.Errorf("Count = %d, want %d", field.Count(), cfg.Food.Count)
	}
	for i, b := range field.Bodies() {
		pos, _, ok := w.BodyState(b)
		if !ok {
			t.Fatalf("item %d does not resolve", i)
		}
		if math.Abs(pos.X) > cfg.Food.HalfExtent || math.Abs(pos.Y) > cfg.Food.HalfExtent {
			t.Errorf("item %d spawned out of bounds: %v", i, pos)
		}
	}
}

func TestFieldPopulationConstantAcrossConsumption(t *testing.T) {
	w := newTestWorld(t)
	cfg := testConfig(t)
	field, err := NewField(w, rand.New(rand.NewSource(42)), cfg)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	// Eat whichever item is first in order by standing on it.
	target, _, _ := w.BodyState(field.Bodies()[0])
	if !field.CheckConsumption(target, NewLedger(10, 150)) {
		t.Fatal("expected a consumption")
	}

	if field.Count() != cfg.Food.Count {
		t.Errorf("population changed: %d, want %d", field.Count(), cfg.Food.Count)
	}
	for i, b := range field.Bodies() {
		if !w.Resolves(b) {
			t.Errorf("item %d no longer resolves after consumption", i)
		}
	}
}
