// Package agent implements an energy-constrained embodied learner: a
// single body on a plane that must eat to survive, pays energy for
// sensing, acting and learning, and is only permitted gradient updates
// while its energy holds above a threshold.
package agent

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pthm-cable/forager/config"
	"github.com/pthm-cable/forager/neural"
	"github.com/pthm-cable/forager/physics"
	"github.com/pthm-cable/forager/telemetry"
)

// World is the physics surface the episode depends on. *physics.World
// satisfies it.
type World interface {
	CreateBody(def physics.BodyDef) (physics.Body, error)
	BodyState(b physics.Body) (pos, vel physics.Vec2, ok bool)
	ApplyForce(b physics.Body, f physics.Vec2)
	Teleport(b physics.Body, to physics.Vec2)
	Step()
}

// Status is the lifecycle state of an episode.
type Status uint8

const (
	// StatusAlive means the episode can still tick.
	StatusAlive Status = iota
	// StatusDead means energy was depleted at a tick's death check.
	StatusDead
	// StatusCompleted means the configured horizon elapsed.
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusDead:
		return "dead"
	case StatusCompleted:
		return "completed"
	}
	return "unknown"
}

// Options configures a new episode.
type Options struct {
	Config   *config.Config             // nil uses config.Cfg()
	Seed     int64                      // 0 derives a seed from the clock
	World    World                      // nil builds a physics world from Config
	Brain    Approximator               // nil builds a fresh network from Config
	OnRecord func(telemetry.StepRecord) // Called after each tick's record is appended
}

// Episode owns one agent's life and advances it in a fixed per-tick
// order: ambient decay, death check, sense, act, consume, reward,
// gated learning, record.
type Episode struct {
	cfg  *config.Config
	rng  *rand.Rand
	seed int64

	world World
	body  physics.Body
	brain Approximator

	ledger     *Ledger
	field      *Field
	perception *Perception
	policy     *Controller
	shaper     Shaper
	gate       *Gate

	status   Status
	step     int
	records  []telemetry.StepRecord
	onRecord func(telemetry.StepRecord)
}

// NewBrain builds a fresh policy network with the configured layout.
func NewBrain(cfg *config.Config, rng *rand.Rand) (*neural.Network, error) {
	sizes := make([]int, 0, len(cfg.Neural.Hidden)+2)
	sizes = append(sizes, cfg.Derived.NumInputs)
	sizes = append(sizes, cfg.Neural.Hidden...)
	sizes = append(sizes, cfg.Derived.NumActions)
	return neural.New(neural.Spec{
		Sizes:        sizes,
		LearningRate: cfg.Neural.LearningRate,
		OutputBias:   cfg.Neural.OutputBias,
	}, rng)
}

// New builds a ready-to-run episode. Construction fails rather than
// returning a partially wired episode: an unusable physics world or an
// unspawnable agent or food population is an error.
func New(opts Options) (*Episode, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	world := opts.World
	if world == nil {
		w, err := physics.NewWorld(cfg.Physics.DT, cfg.Physics.LinearDamping, cfg.Physics.MaxSpeed)
		if err != nil {
			return nil, fmt.Errorf("creating physics world: %w", err)
		}
		world = w
	}

	body, err := world.CreateBody(physics.BodyDef{
		Mass:   cfg.Physics.AgentMass,
		Radius: cfg.Physics.AgentRadius,
	})
	if err != nil {
		return nil, fmt.Errorf("placing agent body: %w", err)
	}

	ledger := NewLedger(cfg.Energy.Initial, cfg.Energy.Max)

	field, err := NewField(world, rng, cfg)
	if err != nil {
		return nil, fmt.Errorf("spawning food field: %w", err)
	}

	brain := opts.Brain
	if brain == nil {
		net, err := NewBrain(cfg, rng)
		if err != nil {
			return nil, fmt.Errorf("building policy network: %w", err)
		}
		brain = net
	}

	return &Episode{
		cfg:        cfg,
		rng:        rng,
		seed:       seed,
		world:      world,
		body:       body,
		brain:      brain,
		ledger:     ledger,
		field:      field,
		perception: NewPerception(world, ledger, cfg.Energy.SensingCost),
		policy:     NewController(world, ledger, brain, rng, cfg),
		shaper:     NewShaper(cfg.Reward),
		gate:       NewGate(ledger, brain, cfg.Energy.LearningThreshold, cfg.Energy.LearningCost),
		status:     StatusAlive,
		onRecord:   opts.OnRecord,
	}, nil
}

// Tick advances one simulation tick. It returns false once the episode
// has reached a terminal status; a tick that dies at the death check
// appends no record and charges no downstream cost.
func (e *Episode) Tick() bool {
	if e.status != StatusAlive {
		return false
	}

	e.ledger.Deduct(e.cfg.Energy.Decay)
	if e.ledger.Depleted() {
		e.status = StatusDead
		slog.Info("agent died", "step", e.step, "energy", e.ledger.Value())
		return false
	}

	obs := e.perception.Sense(e.body, e.field)
	scores, decision := e.policy.Act(e.body, obs)

	pos, _, _ := e.world.BodyState(e.body)
	ate := e.field.CheckConsumption(pos, e.ledger)
	reward := e.shaper.Shape(obs, ate)

	// One gate evaluation serves both the update and the record.
	canLearn := e.gate.CanLearn()
	if canLearn {
		e.gate.Update(scores, decision.Action, reward)
	}

	cost := e.cfg.Energy.SensingCost + e.cfg.Energy.ActingCost
	if canLearn {
		cost += e.cfg.Energy.LearningCost
	}
	rec := telemetry.StepRecord{
		Step:     e.step,
		Energy:   e.ledger.Value(),
		Ate:      ate,
		CanLearn: canLearn,
		X:        pos.X,
		Y:        pos.Y,
		Cost:     cost,
		Action:   decision.Action,
		Tier:     decision.Tier.String(),
		Reward:   reward,
		Epsilon:  e.policy.Epsilon(),
	}
	e.records = append(e.records, rec)
	if e.onRecord != nil {
		e.onRecord(rec)
	}
	e.step++

	if every := e.cfg.Episode.ProgressEvery; every > 0 && e.step%every == 0 {
		e.logProgress(every)
	}

	if e.step >= e.cfg.Episode.MaxSteps {
		e.status = StatusCompleted
		return false
	}
	return true
}

// Run advances ticks until the episode terminates, then returns its
// summary.
func (e *Episode) Run() telemetry.Summary {
	for e.Tick() {
	}
	return e.Summary()
}

// Summary derives statistics from the records so far.
func (e *Episode) Summary() telemetry.Summary {
	s := telemetry.Summarize(e.records)
	s.Cause = e.status.String()
	s.FinalEnergy = e.ledger.Value()
	s.FinalEpsilon = e.policy.Epsilon()
	return s
}

func (e *Episode) logProgress(window int) {
	lo := len(e.records) - window
	if lo < 0 {
		lo = 0
	}
	var energySum float64
	food := 0
	for _, r := range e.records[lo:] {
		energySum += r.Energy
		if r.Ate {
			food++
		}
	}
	slog.Info("progress",
		"step", e.step,
		"energy", e.ledger.Value(),
		"avg_energy", energySum/float64(len(e.records)-lo),
		"food", food,
		"epsilon", e.policy.Epsilon(),
	)
}

// Records returns the emitted record stream. The slice is shared with
// the episode; treat it as read-only.
func (e *Episode) Records() []telemetry.StepRecord { return e.records }

// Status returns the lifecycle state.
func (e *Episode) Status() Status { return e.status }

// StepCount returns the number of fully executed ticks.
func (e *Episode) StepCount() int { return e.step }

// Energy returns the current energy.
func (e *Episode) Energy() float64 { return e.ledger.Value() }

// Epsilon returns the current exploration rate.
func (e *Episode) Epsilon() float64 { return e.policy.Epsilon() }

// Seed returns the seed this episode runs with.
func (e *Episode) Seed() int64 { return e.seed }

// Brain returns the policy approximator.
func (e *Episode) Brain() Approximator { return e.brain }

// FoodPositions reports the live position of every resolvable food item.
// Not safe to call while a Tick is in flight.
func (e *Episode) FoodPositions() []physics.Vec2 {
	out := make([]physics.Vec2, 0, e.field.Count())
	for _, b := range e.field.Bodies() {
		if pos, _, ok := e.world.BodyState(b); ok {
			out = append(out, pos)
		}
	}
	return out
}
