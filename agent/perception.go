package agent

import (
	"math"

	"github.com/pthm-cable/forager/physics"
)

// Observation is the immutable sensory frame for one tick.
type Observation struct {
	Pos        physics.Vec2
	Vel        physics.Vec2
	FoodOffset physics.Vec2 // Nearest food position minus agent position
	FoodDist   float64
	Energy     float64 // Normalized to capacity
}

// AsSlice returns the observation in network input order.
func (o Observation) AsSlice() []float64 {
	return []float64{
		o.Pos.X, o.Pos.Y,
		o.Vel.X, o.Vel.Y,
		o.FoodOffset.X, o.FoodOffset.Y,
		o.FoodDist,
		o.Energy,
	}
}

// Perception charges the sensing cost and assembles observations from
// the world and the food field.
type Perception struct {
	world  World
	ledger *Ledger
	cost   float64
}

// NewPerception creates a perception stage reading through world and
// charging ledger per observation.
func NewPerception(world World, ledger *Ledger, cost float64) *Perception {
	return &Perception{world: world, ledger: ledger, cost: cost}
}

// Sense charges the sensing cost and builds the tick's observation.
// The nearest food item is found by a linear scan over the field's
// fixed order: strict less-than keeps the earliest item on ties, and
// items whose body no longer resolves are skipped. With no resolvable
// items the distance is +Inf and the offset points at the origin.
func (p *Perception) Sense(body physics.Body, field *Field) Observation {
	p.ledger.Deduct(p.cost)

	pos, vel, _ := p.world.BodyState(body)

	var nearest physics.Vec2
	minDist := math.Inf(1)
	for _, item := range field.Bodies() {
		itemPos, _, ok := p.world.BodyState(item)
		if !ok {
			continue
		}
		if d := physics.Dist(pos, itemPos); d < minDist {
			minDist = d
			nearest = itemPos
		}
	}

	return Observation{
		Pos:        pos,
		Vel:        vel,
		FoodOffset: nearest.Sub(pos),
		FoodDist:   minDist,
		Energy:     p.ledger.Normalized(),
	}
}
