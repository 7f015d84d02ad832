package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"persona-probe/internal/domain"
)

// Neighbor es una generacion cercana en el espacio lexico.
type Neighbor struct {
	TrialID       string       `json:"trial_id"`
	Model         string       `json:"model"`
	Trait         domain.Trait `json:"trait"`
	PromptScore   int          `json:"prompt_score"`
	PromptedLevel domain.Level `json:"prompted_level"`
	Text          string       `json:"text"`
	Distance      float64      `json:"distance"`
}

// GenerationRepository consulta las generaciones persistidas.
type GenerationRepository interface {
	ListByRun(ctx context.Context, runID string, trait domain.Trait) ([]domain.GenerationTrial, error)
	Nearest(ctx context.Context, trialID string, k int) ([]Neighbor, error)
}

type PgGenerationRepository struct {
	pool *pgxpool.Pool
}

func NewPgGenerationRepository(pool *pgxpool.Pool) *PgGenerationRepository {
	return &PgGenerationRepository{pool: pool}
}

func (r *PgGenerationRepository) ListByRun(ctx context.Context, runID string, trait domain.Trait) ([]domain.GenerationTrial, error) {
	const query = `
		SELECT id, run_id, seq, model, trait, prompt_score, prompted_level, question_index, repeat,
			question, text, status, error, started_at, finished_at
		FROM generation_trials
		WHERE run_id = $1 AND ($2 = '' OR trait = $2)
		ORDER BY seq
	`
	rows, err := r.pool.Query(ctx, query, runID, string(trait))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGenerations(rows)
}

func scanGenerations(rows pgxRows) ([]domain.GenerationTrial, error) {
	var out []domain.GenerationTrial
	for rows.Next() {
		var g domain.GenerationTrial
		var trait, level, status string
		if err := rows.Scan(
			&g.ID,
			&g.RunID,
			&g.Seq,
			&g.Model,
			&trait,
			&g.PromptScore,
			&level,
			&g.QuestionIndex,
			&g.Repeat,
			&g.Question,
			&g.Text,
			&status,
			&g.Error,
			&g.StartedAt,
			&g.FinishedAt,
		); err != nil {
			return nil, err
		}
		lvl, err := parseLevelColumn(level)
		if err != nil {
			return nil, err
		}
		g.Trait, g.Level, g.Status = domain.Trait(trait), lvl, domain.TrialStatus(status)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Nearest devuelve las k generaciones de la misma corrida mas cercanas por
// distancia coseno (<=>) entre vectores lexicos.
func (r *PgGenerationRepository) Nearest(ctx context.Context, trialID string, k int) ([]Neighbor, error) {
	if k <= 0 || k > 100 {
		k = 5
	}
	var (
		runID string
		vec   *pgvector.Vector
	)
	err := r.pool.QueryRow(ctx, `SELECT run_id, lexical_vector FROM generation_trials WHERE id = $1`, trialID).Scan(&runID, &vec)
	if isNoRows(err) {
		return nil, fmt.Errorf("trial %s: %w", trialID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return []Neighbor{}, nil
	}

	const query = `
		SELECT id, model, trait, prompt_score, prompted_level, text, lexical_vector <=> $2 AS distance
		FROM generation_trials
		WHERE run_id = $1 AND id <> $3 AND lexical_vector IS NOT NULL
		ORDER BY distance
		LIMIT $4
	`
	rows, err := r.pool.Query(ctx, query, runID, *vec, trialID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNeighbors(rows)
}

func scanNeighbors(rows pgxRows) ([]Neighbor, error) {
	out := []Neighbor{}
	for rows.Next() {
		var n Neighbor
		var trait, level string
		if err := rows.Scan(&n.TrialID, &n.Model, &trait, &n.PromptScore, &level, &n.Text, &n.Distance); err != nil {
			return nil, err
		}
		lvl, err := parseLevelColumn(level)
		if err != nil {
			return nil, err
		}
		n.Trait, n.PromptedLevel = domain.Trait(trait), lvl
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
