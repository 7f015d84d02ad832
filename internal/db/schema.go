package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LexicalDims es la dimension de los vectores lexicos guardados por generacion.
const LexicalDims = 256

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		total_trials INT NOT NULL,
		failures INT NOT NULL,
		unclassifiable INT NOT NULL,
		unparsed_answers INT NOT NULL,
		generation_trials INT NOT NULL,
		questionnaire_trials INT NOT NULL,
		warnings JSONB NOT NULL DEFAULT '[]',
		thresholds JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS generation_trials (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INT NOT NULL,
		model TEXT NOT NULL,
		trait TEXT NOT NULL,
		prompt_score INT NOT NULL,
		prompted_level TEXT NOT NULL,
		question_index INT NOT NULL,
		repeat INT NOT NULL,
		question TEXT NOT NULL,
		text TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		lexical_vector vector(%d),
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`, LexicalDims),
	`CREATE INDEX IF NOT EXISTS generation_trials_run_idx ON generation_trials (run_id, model, trait)`,
	`CREATE TABLE IF NOT EXISTS questionnaire_answers (
		trial_id TEXT NOT NULL,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		model TEXT NOT NULL,
		target_trait TEXT NOT NULL,
		target_level TEXT NOT NULL,
		profile TEXT NOT NULL,
		trial_status TEXT NOT NULL,
		item_number INT NOT NULL,
		raw TEXT NOT NULL,
		value INT,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (trial_id, item_number)
	)`,
	`CREATE TABLE IF NOT EXISTS labeled_results (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		mode TEXT NOT NULL,
		trial_id TEXT NOT NULL,
		model TEXT NOT NULL,
		trait TEXT NOT NULL,
		prompted_level TEXT NOT NULL,
		detected_level TEXT NOT NULL DEFAULT '',
		score DOUBLE PRECISION,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		judge_clues TEXT NOT NULL DEFAULT '',
		judge_reasoning TEXT NOT NULL DEFAULT '',
		judge_decision_type TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (trial_id, trait)
	)`,
	`CREATE TABLE IF NOT EXISTS confusion_cells (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		model TEXT NOT NULL,
		trait TEXT NOT NULL,
		prompted_level TEXT NOT NULL,
		detected_level TEXT NOT NULL,
		count INT NOT NULL,
		unclassified INT NOT NULL,
		failed INT NOT NULL,
		PRIMARY KEY (run_id, model, trait, prompted_level, detected_level)
	)`,
	`CREATE TABLE IF NOT EXISTS score_samples (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		model TEXT NOT NULL,
		trait TEXT NOT NULL,
		prompted_level TEXT NOT NULL,
		sample INT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, model, trait, prompted_level, sample)
	)`,
	`CREATE TABLE IF NOT EXISTS similarity_cells (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		model TEXT NOT NULL,
		trait TEXT NOT NULL,
		metric TEXT NOT NULL,
		level_a TEXT NOT NULL,
		level_b TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		pairs INT NOT NULL,
		texts_a INT NOT NULL,
		texts_b INT NOT NULL,
		PRIMARY KEY (run_id, model, trait, level_a, level_b)
	)`,
}

// EnsureSchema crea la extension vector y las tablas si no existen.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
