package agent

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/forager/config"
	"github.com/pthm-cable/forager/neural"
	"github.com/pthm-cable/forager/physics"
)

// Tier identifies which selection branch chose an action.
type Tier uint8

const (
	// TierAssist nudges the agent along the dominant axis toward nearby food.
	TierAssist Tier = iota
	// TierExplore picks an action uniformly at random.
	TierExplore
	// TierExploit follows the network's best score.
	TierExploit
)

func (t Tier) String() string {
	switch t {
	case TierAssist:
		return "assist"
	case TierExplore:
		return "explore"
	case TierExploit:
		return "exploit"
	}
	return "unknown"
}

// Decision records one action selection. Exactly one tier fires per
// tick.
type Decision struct {
	Action int
	Tier   Tier
}

// Controller selects and executes one of four planar thrust actions:
// 0:+x, 1:-x, 2:+y, 3:-y at a fixed force magnitude.
type Controller struct {
	world  World
	ledger *Ledger
	net    Approximator
	rng    *rand.Rand

	epsilon float64
	decay   float64
	minEps  float64

	assistRadius float64
	assistChance float64
	force        float64
	actingCost   float64
}

// NewController creates a controller acting through world against
// ledger, scoring observations with net.
func NewController(world World, ledger *Ledger, net Approximator, rng *rand.Rand, cfg *config.Config) *Controller {
	return &Controller{
		world:        world,
		ledger:       ledger,
		net:          net,
		rng:          rng,
		epsilon:      cfg.Policy.EpsilonInitial,
		decay:        cfg.Policy.EpsilonDecay,
		minEps:       cfg.Policy.EpsilonMin,
		assistRadius: cfg.Policy.AssistRadius,
		assistChance: cfg.Policy.AssistChance,
		force:        cfg.Policy.ForceMagnitude,
		actingCost:   cfg.Energy.ActingCost,
	}
}

// Epsilon returns the current exploration rate.
func (c *Controller) Epsilon() float64 { return c.epsilon }

// Act scores the observation, selects an action, decays epsilon,
// charges the acting cost, applies the thrust and advances the world
// one step. The returned scores are the raw network outputs the
// decision was made against, untouched by the tier choice.
func (c *Controller) Act(body physics.Body, obs Observation) ([]float64, Decision) {
	scores := c.net.Forward(obs.AsSlice())
	decision := c.choose(obs, scores)
	c.epsilon = math.Max(c.epsilon*c.decay, c.minEps)
	c.ledger.Deduct(c.actingCost)
	c.world.ApplyForce(body, c.thrust(decision.Action))
	c.world.Step()
	return scores, decision
}

// choose evaluates the tiers in precedence order; only the winning
// branch runs.
func (c *Controller) choose(obs Observation, scores []float64) Decision {
	if obs.FoodDist < c.assistRadius && c.rng.Float64() < c.assistChance {
		return Decision{Action: assistAction(obs.FoodOffset), Tier: TierAssist}
	}
	if c.rng.Float64() < c.epsilon {
		return Decision{Action: c.rng.Intn(len(scores)), Tier: TierExplore}
	}
	return Decision{Action: neural.Argmax(scores), Tier: TierExploit}
}

// assistAction thrusts along the axis with the larger food displacement,
// signed toward the food. Equal magnitudes fall to the y axis.
func assistAction(offset physics.Vec2) int {
	if math.Abs(offset.X) > math.Abs(offset.Y) {
		if offset.X > 0 {
			return 0
		}
		return 1
	}
	if offset.Y > 0 {
		return 2
	}
	return 3
}

func (c *Controller) thrust(action int) physics.Vec2 {
	switch action {
	case 0:
		return physics.Vec2{X: c.force}
	case 1:
		return physics.Vec2{X: -c.force}
	case 2:
		return physics.Vec2{Y: c.force}
	default:
		return physics.Vec2{Y: -c.force}
	}
}
