package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"persona-probe/internal/domain"
	"persona-probe/internal/service"
)

// PostgresSink guarda un reporte completo en una transaccion. Reescribir la
// misma corrida reemplaza sus filas.
type PostgresSink struct {
	pool      *pgxpool.Pool
	tokenizer service.Tokenizer
	dims      int
	logger    *zap.Logger
}

func NewPostgresSink(pool *pgxpool.Pool, tokenizer service.Tokenizer, dims int, logger *zap.Logger) *PostgresSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresSink{pool: pool, tokenizer: tokenizer, dims: dims, logger: logger}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Persist(ctx context.Context, report *service.Report) error {
	if report == nil || report.Summary.RunID == "" {
		return fmt.Errorf("postgres sink: report without run id")
	}
	batch, err := s.buildBatch(report)
	if err != nil {
		return fmt.Errorf("postgres sink: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres sink: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("postgres sink: statement %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres sink: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres sink: commit: %w", err)
	}
	s.logger.Info("report stored",
		zap.String("run_id", report.Summary.RunID),
		zap.Int("statements", batch.Len()),
	)
	return nil
}

func (s *PostgresSink) buildBatch(report *service.Report) (*pgx.Batch, error) {
	sum := report.Summary
	runID := sum.RunID
	warnings, err := json.Marshal(nonNil(sum.Warnings))
	if err != nil {
		return nil, err
	}
	thresholds, err := json.Marshal(report.Thresholds)
	if err != nil {
		return nil, err
	}

	b := &pgx.Batch{}
	b.Queue(`DELETE FROM runs WHERE id = $1`, runID)
	b.Queue(`
		INSERT INTO runs (id, status, started_at, finished_at, total_trials, failures, unclassifiable,
			unparsed_answers, generation_trials, questionnaire_trials, warnings, thresholds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		runID, string(sum.Status), sum.StartedAt, sum.FinishedAt, sum.TotalTrials, sum.Failures, sum.Unclassifiable,
		sum.UnparsedAnswers, sum.GenerationTrials, sum.QuestionnaireTrials, warnings, thresholds,
	)

	for _, g := range report.Generations {
		b.Queue(`
			INSERT INTO generation_trials (id, run_id, seq, model, trait, prompt_score, prompted_level, question_index,
				repeat, question, text, status, error, lexical_vector, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			g.ID, runID, g.Seq, g.Model, string(g.Trait), g.PromptScore, levelColumn(g.Level), g.QuestionIndex,
			g.Repeat, g.Question, g.Text, string(g.Status), g.Error, s.lexicalVector(g), g.StartedAt, g.FinishedAt,
		)
	}

	for _, q := range report.Questionnaires {
		for _, a := range q.Answers {
			var value interface{}
			if a.Status == domain.StatusOK {
				value = a.Value
			}
			b.Queue(`
				INSERT INTO questionnaire_answers (trial_id, run_id, model, target_trait, target_level, profile,
					trial_status, item_number, raw, value, status, error)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				q.ID, runID, q.Model, string(q.Trait), levelColumn(q.Level), q.Profile.String(),
				string(q.Status), a.ItemNumber, a.Raw, value, string(a.Status), a.Error,
			)
		}
	}

	for _, l := range report.Labeled {
		var score interface{}
		if l.Score != nil {
			score = *l.Score
		}
		b.Queue(`
			INSERT INTO labeled_results (run_id, mode, trial_id, model, trait, prompted_level, detected_level, score,
				status, error, judge_clues, judge_reasoning, judge_decision_type)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			runID, string(l.Mode), l.TrialID, l.Model, string(l.Trait), levelColumn(l.PromptedLevel), levelColumn(l.DetectedLevel), score,
			string(l.Status), l.Error, l.JudgeClues, l.JudgeReasoning, l.JudgeDecisionType,
		)
	}

	for _, m := range report.Artifacts.Confusion {
		for _, p := range domain.AllLevels() {
			for _, d := range domain.AllLevels() {
				b.Queue(`
					INSERT INTO confusion_cells (run_id, model, trait, prompted_level, detected_level, count, unclassified, failed)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
					runID, m.Model, string(m.Trait), p.String(), d.String(), m.Cell(p, d), m.Unclassified, m.Failed,
				)
			}
		}
	}

	for _, d := range report.Artifacts.Distributions {
		for i, v := range d.Scores {
			b.Queue(`
				INSERT INTO score_samples (run_id, model, trait, prompted_level, sample, score)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				runID, d.Model, string(d.Trait), d.PromptedLevel.String(), i, v,
			)
		}
	}

	for _, m := range report.Artifacts.Similarity {
		for _, a := range domain.AllLevels() {
			for _, c := range domain.AllLevels() {
				cell := m.Cell(a, c)
				b.Queue(`
					INSERT INTO similarity_cells (run_id, model, trait, metric, level_a, level_b, value, pairs, texts_a, texts_b)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
					runID, m.Model, string(m.Trait), m.Metric, a.String(), c.String(), cell.Value, cell.Pairs,
					m.Texts[a.Index()], m.Texts[c.Index()],
				)
			}
		}
	}
	return b, nil
}

// lexicalVector devuelve nil (NULL) para generaciones fallidas o sin tokens.
func (s *PostgresSink) lexicalVector(g domain.GenerationTrial) interface{} {
	if g.Failed() || s.dims <= 0 {
		return nil
	}
	vec := service.LexicalVector(s.tokenizer, g.Text, s.dims)
	for _, x := range vec {
		if x != 0 {
			return pgvector.NewVector(vec)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
