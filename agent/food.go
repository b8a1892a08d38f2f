package agent

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/forager/config"
	"github.com/pthm-cable/forager/physics"
)

// Field maintains a fixed population of food items. Consumed items
// relocate instead of despawning, so the population never shrinks.
type Field struct {
	world  World
	rng    *rand.Rand
	bodies []physics.Body

	half    float64
	radius  float64
	gainMin float64
	gainMax float64
}

// NewField spawns the food population at uniform positions within the
// configured bounds.
func NewField(world World, rng *rand.Rand, cfg *config.Config) (*Field, error) {
	f := &Field{
		world:   world,
		rng:     rng,
		half:    cfg.Food.HalfExtent,
		radius:  cfg.Food.ConsumeRadius,
		gainMin: cfg.Food.GainMin,
		gainMax: cfg.Food.GainMax,
	}
	f.bodies = make([]physics.Body, 0, cfg.Food.Count)
	for i := 0; i < cfg.Food.Count; i++ {
		body, err := world.CreateBody(physics.BodyDef{
			Pos:    f.randomPos(),
			Mass:   cfg.Physics.FoodMass,
			Radius: cfg.Physics.FoodRadius,
		})
		if err != nil {
			return nil, fmt.Errorf("spawning food item %d: %w", i, err)
		}
		f.bodies = append(f.bodies, body)
	}
	return f, nil
}

// Bodies returns the item handles in their fixed scan order.
func (f *Field) Bodies() []physics.Body { return f.bodies }

// Count returns the population size.
func (f *Field) Count() int { return len(f.bodies) }

// CheckConsumption consumes at most one item per call: the first, in
// scan order, strictly within the consume radius of pos. The ledger is
// credited a uniform gain and the item relocates uniformly in bounds.
// Items whose body no longer resolves are skipped.
func (f *Field) CheckConsumption(pos physics.Vec2, ledger *Ledger) bool {
	for _, item := range f.bodies {
		itemPos, _, ok := f.world.BodyState(item)
		if !ok {
			continue
		}
		if physics.Dist(pos, itemPos) < f.radius {
			gain := f.gainMin + f.rng.Float64()*(f.gainMax-f.gainMin)
			ledger.Credit(gain)
			f.world.Teleport(item, f.randomPos())
			return true
		}
	}
	return false
}

func (f *Field) randomPos() physics.Vec2 {
	return physics.Vec2{
		X: (f.rng.Float64()*2 - 1) * f.half,
		Y: (f.rng.Float64()*2 - 1) * f.half,
	}
}
