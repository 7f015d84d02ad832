package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"persona-probe/internal/domain"
)

// RunRepository expone los resumenes de corridas persistidas.
type RunRepository interface {
	List(ctx context.Context, limit int) ([]domain.RunSummary, error)
	Get(ctx context.Context, id string) (domain.RunSummary, error)
}

type PgRunRepository struct {
	pool *pgxpool.Pool
}

func NewPgRunRepository(pool *pgxpool.Pool) *PgRunRepository {
	return &PgRunRepository{pool: pool}
}

const runColumns = `id, status, started_at, finished_at, total_trials, failures, unclassifiable,
	unparsed_answers, generation_trials, questionnaire_trials, warnings`

func (r *PgRunRepository) List(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (r *PgRunRepository) Get(ctx context.Context, id string) (domain.RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return domain.RunSummary{}, err
	}
	defer rows.Close()
	runs, err := scanRuns(rows)
	if err != nil {
		return domain.RunSummary{}, err
	}
	if len(runs) == 0 {
		return domain.RunSummary{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return runs[0], nil
}

func scanRuns(rows pgxRows) ([]domain.RunSummary, error) {
	var runs []domain.RunSummary
	for rows.Next() {
		var s domain.RunSummary
		var status string
		var warnings []byte
		if err := rows.Scan(
			&s.RunID,
			&status,
			&s.StartedAt,
			&s.FinishedAt,
			&s.TotalTrials,
			&s.Failures,
			&s.Unclassifiable,
			&s.UnparsedAnswers,
			&s.GenerationTrials,
			&s.QuestionnaireTrials,
			&warnings,
		); err != nil {
			return nil, err
		}
		s.Status = domain.RunStatus(status)
		if len(warnings) > 0 {
			if err := json.Unmarshal(warnings, &s.Warnings); err != nil {
				return nil, fmt.Errorf("run %s warnings: %w", s.RunID, err)
			}
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// isNoRows normaliza pgx.ErrNoRows a ErrNotFound.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
