// Package persistence provides SQLite-based run storage so episodes
// can be analyzed after the fact.
package persistence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/forager/telemetry"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		seed INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		cause TEXT NOT NULL,
		survival_time INTEGER NOT NULL,
		food_consumed INTEGER NOT NULL,
		learning_steps INTEGER NOT NULL,
		average_energy REAL NOT NULL,
		final_energy REAL NOT NULL,
		final_epsilon REAL NOT NULL,
		learning_ratio REAL NOT NULL,
		feeding_efficiency REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		energy REAL NOT NULL,
		ate INTEGER NOT NULL,
		can_learn INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		cost REAL NOT NULL,
		action INTEGER NOT NULL,
		tier TEXT NOT NULL,
		reward REAL NOT NULL,
		epsilon REAL NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StoredRun is a stored episode's identity and summary.
type StoredRun struct {
	ID        string `db:"id"`
	Label     string `db:"label"`
	Seed      int64  `db:"seed"`
	CreatedAt int64  `db:"created_at"`
	telemetry.Summary
}

// SaveRun stores a run's summary and full record stream and returns the
// generated run ID.
func (db *DB) SaveRun(label string, seed int64, summary telemetry.Summary, records []telemetry.StepRecord) (string, error) {
	id := uuid.NewString()

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, label, seed, created_at, cause, survival_time, food_consumed, learning_steps,
		 average_energy, final_energy, final_epsilon, learning_ratio, feeding_efficiency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, label, seed, time.Now().Unix(), summary.Cause,
		summary.SurvivalTime, summary.FoodConsumed, summary.LearningSteps,
		summary.AverageEnergy, summary.FinalEnergy, summary.FinalEpsilon,
		summary.LearningRatio, summary.FeedingEfficiency,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO steps
		(run_id, step, energy, ate, can_learn, x, y, cost, action, tier, reward, epsilon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, r := range records {
		ate := 0
		if r.Ate {
			ate = 1
		}
		canLearn := 0
		if r.CanLearn {
			canLearn = 1
		}
		_, err := stmt.Exec(id, r.Step, r.Energy, ate, canLearn,
			r.X, r.Y, r.Cost, r.Action, r.Tier, r.Reward, r.Epsilon)
		if err != nil {
			return "", fmt.Errorf("insert step %d: %w", r.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// RecentRuns returns the most recent runs, newest first.
func (db *DB) RecentRuns(limit int) ([]StoredRun, error) {
	var runs []StoredRun
	err := db.conn.Select(&runs, `SELECT id, label, seed, created_at, cause,
		survival_time, food_consumed, learning_steps, average_energy,
		final_energy, final_epsilon, learning_ratio, feeding_efficiency
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	return runs, err
}

// Records returns the record stream of a stored run in step order.
func (db *DB) Records(runID string) ([]telemetry.StepRecord, error) {
	var records []telemetry.StepRecord
	err := db.conn.Select(&records, `SELECT step, energy, ate, can_learn,
		x, y, cost, action, tier, reward, epsilon
		FROM steps WHERE run_id = ? ORDER BY step`, runID)
	return records, err
}
