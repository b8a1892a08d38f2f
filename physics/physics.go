// Package physics implements the planar world the agent and its food
// inhabit. Bodies are point masses identified by opaque handles; forces
// accumulate between steps and are integrated with per-step linear
// damping and a speed cap. There is no collision response: interaction
// between bodies is the caller's concern.
package physics

import (
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"
)

// Vec2 is a planar vector.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Vec2) float64 { return a.Sub(b).Len() }

// Body is a handle to a simulated body. The zero value refers to no body.
// A handle outlives its body: once the body is removed, state queries
// report the handle as unresolvable instead of panicking.
type Body struct {
	entity ecs.Entity
}

type position struct {
	X, Y float64
}

type velocity struct {
	X, Y float64
}

type shape struct {
	Mass, Radius float64
}

// forceAccum collects forces applied since the last step.
type forceAccum struct {
	X, Y float64
}

// BodyDef describes a body to create.
type BodyDef struct {
	Pos    Vec2
	Mass   float64
	Radius float64
}

// World integrates point bodies under applied forces.
type World struct {
	world    *ecs.World
	mapper   *ecs.Map4[position, velocity, shape, forceAccum]
	filter   *ecs.Filter4[position, velocity, shape, forceAccum]
	posMap   *ecs.Map1[position]
	velMap   *ecs.Map1[velocity]
	forceMap *ecs.Map1[forceAccum]

	dt       float64
	damping  float64
	maxSpeed float64
	steps    uint64
}

// NewWorld creates an empty world stepping by dt seconds. damping is the
// per-step fraction of velocity lost; maxSpeed caps body speed (0 means
// uncapped).
func NewWorld(dt, damping, maxSpeed float64) (*World, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("physics: dt must be positive, got %v", dt)
	}
	if damping < 0 || damping >= 1 {
		return nil, fmt.Errorf("physics: damping must be in [0, 1), got %v", damping)
	}
	world := ecs.NewWorld()
	return &World{
		world:    world,
		mapper:   ecs.NewMap4[position, velocity, shape, forceAccum](world),
		filter:   ecs.NewFilter4[position, velocity, shape, forceAccum](world),
		posMap:   ecs.NewMap1[position](world),
		velMap:   ecs.NewMap1[velocity](world),
		forceMap: ecs.NewMap1[forceAccum](world),
		dt:       dt,
		damping:  damping,
		maxSpeed: maxSpeed,
	}, nil
}

// CreateBody adds a body to the world and returns its handle.
func (w *World) CreateBody(def BodyDef) (Body, error) {
	if def.Mass <= 0 {
		return Body{}, fmt.Errorf("physics: body mass must be positive, got %v", def.Mass)
	}
	pos := position{X: def.Pos.X, Y: def.Pos.Y}
	vel := velocity{}
	shp := shape{Mass: def.Mass, Radius: def.Radius}
	acc := forceAccum{}
	entity := w.mapper.NewEntity(&pos, &vel, &shp, &acc)
	return Body{entity: entity}, nil
}

// RemoveBody frees a body. Its handle becomes unresolvable.
func (w *World) RemoveBody(b Body) {
	if !w.world.Alive(b.entity) {
		return
	}
	w.mapper.Remove(b.entity)
}

// Resolves reports whether the handle still refers to a live body.
func (w *World) Resolves(b Body) bool {
	return w.world.Alive(b.entity)
}

// BodyState returns the position and velocity of a body. ok is false if
// the handle no longer resolves, in which case both vectors are zero.
func (w *World) BodyState(b Body) (pos, vel Vec2, ok bool) {
	if !w.world.Alive(b.entity) {
		return Vec2{}, Vec2{}, false
	}
	p := w.posMap.Get(b.entity)
	v := w.velMap.Get(b.entity)
	return Vec2{p.X, p.Y}, Vec2{v.X, v.Y}, true
}

// ApplyForce accumulates a force on a body, to act during the next Step.
// Forces on unresolvable handles are dropped.
func (w *World) ApplyForce(b Body, f Vec2) {
	if !w.world.Alive(b.entity) {
		return
	}
	acc := w.forceMap.Get(b.entity)
	acc.X += f.X
	acc.Y += f.Y
}

// Teleport moves a body without touching its velocity. Teleports of
// unresolvable handles are dropped.
func (w *World) Teleport(b Body, to Vec2) {
	if !w.world.Alive(b.entity) {
		return
	}
	p := w.posMap.Get(b.entity)
	p.X = to.X
	p.Y = to.Y
}

// Step advances the world by dt: accumulated forces become acceleration,
// speed is capped, positions integrate, then damping bleeds velocity.
// Accumulated forces are cleared.
func (w *World) Step() {
	retain := 1 - w.damping
	query := w.filter.Query()
	for query.Next() {
		pos, vel, shp, acc := query.Get()

		vel.X += acc.X / shp.Mass * w.dt
		vel.Y += acc.Y / shp.Mass * w.dt

		if w.maxSpeed > 0 {
			speed := math.Hypot(vel.X, vel.Y)
			if speed > w.maxSpeed {
				scale := w.maxSpeed / speed
				vel.X *= scale
				vel.Y *= scale
			}
		}

		pos.X += vel.X * w.dt
		pos.Y += vel.Y * w.dt

		vel.X *= retain
		vel.Y *= retain

		acc.X = 0
		acc.Y = 0
	}
	w.steps++
}

// Steps returns the number of times Step has run.
func (w *World) Steps() uint64 {
	return w.steps
}
