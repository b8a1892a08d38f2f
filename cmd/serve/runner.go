package main

import (
	"log"
	"log/slog"
	"time"

	"github.com/pthm-cable/forager/agent"
	"github.com/pthm-cable/forager/config"
	"github.com/pthm-cable/forager/telemetry"
)

// runner drives back-to-back episodes at a fixed pace, publishing every
// tick onto out. A fresh clock-seeded episode starts whenever the current
// one ends or a restart command arrives.
type runner struct {
	cfg      *config.Config
	interval time.Duration
	out      chan wireMessage
	restart  chan struct{}
}

func (r *runner) run() {
	for {
		r.runEpisode()
	}
}

func (r *runner) runEpisode() {
	// Drop any restart left over from the previous episode.
	select {
	case <-r.restart:
	default:
	}

	var last *telemetry.StepRecord
	ep, err := agent.New(agent.Options{
		Config: r.cfg,
		OnRecord: func(rec telemetry.StepRecord) {
			last = &rec
		},
	})
	if err != nil {
		log.Printf("starting episode: %v", err)
		time.Sleep(time.Second)
		return
	}

	r.publish(wireMessage{
		Type:   "episode",
		Seed:   ep.Seed(),
		Status: ep.Status().String(),
		Food:   foodPoints(ep),
	})

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// One second of samples at the target rate.
	perf := telemetry.NewPerfWindow(int(time.Second / r.interval))

	for alive := true; alive; {
		select {
		case <-r.restart:
			alive = false
		case <-ticker.C:
			last = nil
			tickStart := time.Now()
			alive = ep.Tick()
			perf.Add(time.Since(tickStart))
			if last != nil {
				msg := wireMessage{Type: "step", Step: last}
				if last.Ate {
					// A consumption relocated an item; refresh the layout.
					msg.Food = foodPoints(ep)
				}
				r.publish(msg)
			}
		}
	}

	sum := ep.Summary()
	slog.Info("episode finished",
		"seed", ep.Seed(),
		"status", ep.Status().String(),
		"perf", perf.Stats(),
		"summary", sum,
	)
	r.publish(wireMessage{
		Type:    "summary",
		Seed:    ep.Seed(),
		Status:  ep.Status().String(),
		Summary: &sum,
	})

	// Hold the final frame so a viewer can read the outcome.
	time.Sleep(2 * time.Second)
}

// publish never blocks the simulation; frames drop when the broadcaster
// is saturated.
func (r *runner) publish(msg wireMessage) {
	select {
	case r.out <- msg:
	default:
	}
}

func foodPoints(ep *agent.Episode) []point {
	positions := ep.FoodPositions()
	pts := make([]point, len(positions))
	for i, p := range positions {
		pts[i] = point{X: p.X, Y: p.Y}
	}
	return pts
}
