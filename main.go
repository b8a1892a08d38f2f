package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/pthm-cable/forager/agent"
	"github.com/pthm-cable/forager/config"
	"github.com/pthm-cable/forager/neural"
	"github.com/pthm-cable/forager/persistence"
	"github.com/pthm-cable/forager/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxSteps := flag.Int("max-steps", 0, "Episode length in ticks (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (empty = use config)")
	dbPath := flag.String("db", "", "SQLite database to store the run (empty = disabled)")
	label := flag.String("label", "default", "Run label for storage")
	weightsPath := flag.String("weights", "", "Initial policy weights JSON (empty = random init)")
	saveWeights := flag.Bool("save-weights", false, "Write final policy weights to the output directory")
	history := flag.Int("history", 0, "List the N most recent stored runs from -db and exit")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *maxSteps > 0 {
		cfg.Episode.MaxSteps = *maxSteps
	}

	if *history > 0 {
		if err := listHistory(*dbPath, *history); err != nil {
			slog.Error("failed to list stored runs", "error", err)
			os.Exit(1)
		}
		return
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Use the configured output directory if not overridden by CLI.
	dir := *outputDir
	if dir == "" {
		dir = cfg.Telemetry.OutputDir
	}
	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		slog.Error("failed to init output", "error", err)
		os.Exit(1)
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		slog.Warn("could not write config snapshot", "error", err)
	}

	var brain agent.Approximator
	if *weightsPath != "" {
		net, err := loadWeights(cfg, *weightsPath, rngSeed)
		if err != nil {
			slog.Error("failed to load weights", "error", err)
			os.Exit(1)
		}
		brain = net
	}

	ep, err := agent.New(agent.Options{Config: cfg, Seed: rngSeed, Brain: brain})
	if err != nil {
		slog.Error("failed to build episode", "error", err)
		os.Exit(1)
	}

	slog.Info("starting episode",
		"seed", rngSeed,
		"max_steps", cfg.Episode.MaxSteps,
		"food", cfg.Food.Count,
		"learning_threshold", cfg.Energy.LearningThreshold,
		"idle_drain", cfg.Derived.IdleDrain,
	)

	start := time.Now()
	perf := telemetry.NewPerfWindow(cfg.Episode.MaxSteps)
	for {
		tickStart := time.Now()
		ok := ep.Tick()
		perf.Add(time.Since(tickStart))
		if !ok {
			break
		}
	}
	summary := ep.Summary()

	slog.Info("episode finished",
		"status", ep.Status().String(),
		"elapsed", time.Since(start),
		"perf", perf.Stats(),
		"summary", summary,
	)

	if err := om.WriteRecords(ep.Records()); err != nil {
		slog.Error("failed to write records", "error", err)
	}
	if err := om.WriteSummary(summary); err != nil {
		slog.Error("failed to write summary", "error", err)
	}
	if err := om.WriteJSON("efficiency.json", telemetry.RollingEfficiency(ep.Records(), cfg.Telemetry.EfficiencyWindow)); err != nil {
		slog.Error("failed to write efficiency series", "error", err)
	}

	if *saveWeights {
		if om == nil {
			slog.Warn("save-weights requires an output directory")
		} else if net, ok := ep.Brain().(*neural.Network); ok {
			if err := om.WriteJSON("weights.json", net.MarshalWeights()); err != nil {
				slog.Error("failed to write weights", "error", err)
			}
		}
	}

	if *dbPath != "" {
		db, err := persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		id, err := db.SaveRun(*label, rngSeed, summary, ep.Records())
		if err != nil {
			slog.Error("failed to store run", "error", err)
			os.Exit(1)
		}
		slog.Info("run stored", "id", id, "db", *dbPath)
	}
}

// loadWeights builds a network with the configured layout and restores
// saved parameters into it. The layout must match the saved shape.
func loadWeights(cfg *config.Config, path string, seed int64) (*neural.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights: %w", err)
	}
	var w neural.Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing weights: %w", err)
	}

	net, err := agent.NewBrain(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	if err := net.UnmarshalWeights(w); err != nil {
		return nil, err
	}
	return net, nil
}

// listHistory logs the most recent stored runs, newest first.
func listHistory(dbPath string, limit int) error {
	if dbPath == "" {
		return fmt.Errorf("history listing requires -db")
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.RecentRuns(limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		slog.Info("stored run",
			"id", r.ID,
			"label", r.Label,
			"seed", r.Seed,
			"created_at", time.Unix(r.CreatedAt, 0).Format(time.RFC3339),
			"summary", r.Summary,
		)
	}
	slog.Info("history listed", "runs", len(runs), "db", dbPath)
	return nil
}
