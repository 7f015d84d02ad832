package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"persona-probe/internal/domain"
)

// ArtifactRepository reconstruye los artefactos de analisis de una corrida.
type ArtifactRepository interface {
	Confusion(ctx context.Context, runID string) ([]domain.ConfusionMatrix, error)
	Distributions(ctx context.Context, runID string) ([]domain.ScoreDistribution, error)
	Similarity(ctx context.Context, runID string) ([]domain.SimilarityMatrix, error)
}

type PgArtifactRepository struct {
	pool *pgxpool.Pool
}

func NewPgArtifactRepository(pool *pgxpool.Pool) *PgArtifactRepository {
	return &PgArtifactRepository{pool: pool}
}

func (r *PgArtifactRepository) Confusion(ctx context.Context, runID string) ([]domain.ConfusionMatrix, error) {
	const query = `
		SELECT model, trait, prompted_level, detected_level, count, unclassified, failed
		FROM confusion_cells
		WHERE run_id = $1
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfusion(rows)
}

func scanConfusion(rows pgxRows) ([]domain.ConfusionMatrix, error) {
	var order []domain.GroupKey
	byKey := make(map[domain.GroupKey]*domain.ConfusionMatrix)
	for rows.Next() {
		var model, trait, prompted, detected string
		var count, unclassified, failed int
		if err := rows.Scan(&model, &trait, &prompted, &detected, &count, &unclassified, &failed); err != nil {
			return nil, err
		}
		p, err := domain.ParseLevel(prompted)
		if err != nil {
			return nil, err
		}
		d, err := domain.ParseLevel(detected)
		if err != nil {
			return nil, err
		}
		key := domain.GroupKey{Model: model, Trait: domain.Trait(trait)}
		m, ok := byKey[key]
		if !ok {
			m = &domain.ConfusionMatrix{GroupKey: key, Unclassified: unclassified, Failed: failed}
			byKey[key] = m
			order = append(order, key)
		}
		m.Counts[p.Index()][d.Index()] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortKeys(order)
	out := make([]domain.ConfusionMatrix, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}

func (r *PgArtifactRepository) Distributions(ctx context.Context, runID string) ([]domain.ScoreDistribution, error) {
	const query = `
		SELECT model, trait, prompted_level, score
		FROM score_samples
		WHERE run_id = $1
		ORDER BY model, trait, prompted_level, sample
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDistributions(rows)
}

func scanDistributions(rows pgxRows) ([]domain.ScoreDistribution, error) {
	var order []domain.DistributionKey
	byKey := make(map[domain.DistributionKey]*domain.ScoreDistribution)
	for rows.Next() {
		var model, trait, prompted string
		var score float64
		if err := rows.Scan(&model, &trait, &prompted, &score); err != nil {
			return nil, err
		}
		lvl, err := domain.ParseLevel(prompted)
		if err != nil {
			return nil, err
		}
		key := domain.DistributionKey{Model: model, Trait: domain.Trait(trait), PromptedLevel: lvl}
		d, ok := byKey[key]
		if !ok {
			d = &domain.ScoreDistribution{DistributionKey: key}
			byKey[key] = d
			order = append(order, key)
		}
		d.Scores = append(d.Scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortDistributionKeys(order)
	out := make([]domain.ScoreDistribution, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}

func (r *PgArtifactRepository) Similarity(ctx context.Context, runID string) ([]domain.SimilarityMatrix, error) {
	const query = `
		SELECT model, trait, metric, level_a, level_b, value, pairs, texts_a, texts_b
		FROM similarity_cells
		WHERE run_id = $1
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSimilarity(rows)
}

func scanSimilarity(rows pgxRows) ([]domain.SimilarityMatrix, error) {
	var order []domain.GroupKey
	byKey := make(map[domain.GroupKey]*domain.SimilarityMatrix)
	for rows.Next() {
		var model, trait, metric, la, lb string
		var cell domain.SimilarityCell
		var textsA, textsB int
		if err := rows.Scan(&model, &trait, &metric, &la, &lb, &cell.Value, &cell.Pairs, &textsA, &textsB); err != nil {
			return nil, err
		}
		a, err := domain.ParseLevel(la)
		if err != nil {
			return nil, err
		}
		b, err := domain.ParseLevel(lb)
		if err != nil {
			return nil, err
		}
		key := domain.GroupKey{Model: model, Trait: domain.Trait(trait)}
		m, ok := byKey[key]
		if !ok {
			m = &domain.SimilarityMatrix{GroupKey: key, Metric: metric}
			byKey[key] = m
			order = append(order, key)
		}
		m.Cells[a.Index()][b.Index()] = cell
		m.Texts[a.Index()] = textsA
		m.Texts[b.Index()] = textsB
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortKeys(order)
	out := make([]domain.SimilarityMatrix, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}
