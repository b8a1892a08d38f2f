// Command compare runs the foraging episode across contrasting energy
// regimes and reports aggregate survival and learning statistics per regime.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/pthm-cable/forager/agent"
	"github.com/pthm-cable/forager/config"
	"github.com/pthm-cable/forager/persistence"
	"github.com/pthm-cable/forager/telemetry"
)

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

type seedResult struct {
	summary telemetry.Summary
	records []telemetry.StepRecord
	seed    int64
	err     error
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config overriding the embedded defaults")
	runs := flag.Int("runs", 8, "Episodes per scenario")
	maxSteps := flag.Int("max-steps", 0, "Episode length override (0 keeps the configured value)")
	outputDir := flag.String("output", "output/compare", "Directory for aggregate CSV output")
	dbPath := flag.String("db", "", "Optional SQLite file archiving every run")
	emergence := flag.Bool("emergence", false, "Run the rich/poor contrast pair instead of the full sweep")
	verbose := flag.Bool("v", false, "Enable per-episode info logging")
	flag.Parse()

	// The comparison table is the product; keep episode logs quiet unless asked.
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	scenarios := DefaultScenarios()
	if *emergence {
		scenarios = EmergencePair()
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		log.Fatalf("creating output dir: %v", err)
	}
	defer om.Close()

	var store *persistence.DB
	if *dbPath != "" {
		store, err = persistence.Open(*dbPath)
		if err != nil {
			log.Fatalf("opening run store: %v", err)
		}
		defer store.Close()
	}

	fmt.Printf("Comparing %d scenarios, %d runs each\n", len(scenarios), *runs)
	startTime := time.Now()

	aggregates := make([]telemetry.AggregateStats, 0, len(scenarios))
	correlations := make([]float64, 0, len(scenarios))
	for _, sc := range scenarios {
		agg, corr, err := runScenario(sc, *configPath, *runs, *maxSteps, store)
		if err != nil {
			log.Fatalf("scenario %s: %v", sc.Name, err)
		}
		if err := om.WriteAggregate(agg); err != nil {
			log.Printf("writing aggregate row: %v", err)
		}
		aggregates = append(aggregates, agg)
		correlations = append(correlations, corr)
		fmt.Printf("  %-10s survival=%.0f food=%.1f deaths=%.0f%% | elapsed: %s\n",
			sc.Name, agg.MeanSurvival, agg.MeanFood, agg.DeathRate*100,
			formatDuration(time.Since(startTime)))
	}

	printTable(scenarios, aggregates, correlations)
	fmt.Printf("\nAggregates saved to: %s\n", om.Dir())
}

// runScenario executes the scenario's episodes in parallel and folds their
// summaries into one aggregate row plus an energy/learning correlation.
func runScenario(sc Scenario, configPath string, runs, maxSteps int, store *persistence.DB) (telemetry.AggregateStats, float64, error) {
	results := make([]seedResult, runs)
	var wg sync.WaitGroup

	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(idx int, seed int64) {
			defer wg.Done()
			results[idx] = runEpisode(sc, configPath, maxSteps, seed)
		}(i, int64(i*1000+42))
	}
	wg.Wait()

	summaries := make([]telemetry.Summary, 0, runs)
	streams := make([][]telemetry.StepRecord, 0, runs)
	for _, r := range results {
		if r.err != nil {
			return telemetry.AggregateStats{}, 0, r.err
		}
		summaries = append(summaries, r.summary)
		streams = append(streams, r.records)
	}

	if store != nil {
		for _, r := range results {
			if _, err := store.SaveRun(sc.Name, r.seed, r.summary, r.records); err != nil {
				return telemetry.AggregateStats{}, 0, fmt.Errorf("storing run: %w", err)
			}
		}
	}

	return telemetry.Aggregate(sc.Name, summaries), telemetry.EnergyLearningCorrelation(streams...), nil
}

// runEpisode runs one seeded episode under the scenario's regime. Each run
// loads its own config so parallel episodes never share mutable state.
func runEpisode(sc Scenario, configPath string, maxSteps int, seed int64) seedResult {
	cfg, err := config.Load(configPath)
	if err != nil {
		return seedResult{err: fmt.Errorf("loading config: %w", err)}
	}
	sc.Apply(cfg)
	if maxSteps > 0 {
		cfg.Episode.MaxSteps = maxSteps
	}
	cfg.Episode.ProgressEvery = 0

	ep, err := agent.New(agent.Options{Config: cfg, Seed: seed})
	if err != nil {
		return seedResult{err: fmt.Errorf("seed %d: %w", seed, err)}
	}
	summary := ep.Run()
	return seedResult{summary: summary, records: ep.Records(), seed: seed}
}

func printTable(scenarios []Scenario, aggs []telemetry.AggregateStats, corrs []float64) {
	fmt.Println("\nScenario comparison:")
	fmt.Printf("  %-10s %9s %8s %7s %8s %8s %8s %7s %6s\n",
		"scenario", "survival", "std", "food", "energy", "learn%", "eff", "corr", "dead%")
	for i, sc := range scenarios {
		a := aggs[i]
		fmt.Printf("  %-10s %9.1f %8.1f %7.2f %8.2f %7.1f%% %8.4f %7.3f %5.0f%%\n",
			sc.Name, a.MeanSurvival, a.StdSurvival, a.MeanFood, a.MeanAverageEnergy,
			a.MeanLearningRatio*100, a.MeanFeedingEfficiency, corrs[i], a.DeathRate*100)
	}
}
