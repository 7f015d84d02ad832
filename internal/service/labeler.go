package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"persona-probe/internal/domain"
)

// Labeler convierte la tabla cruda en LabeledResults: los cuestionarios se
// puntuan de forma determinista y las generaciones pasan por el juez.
type Labeler struct {
	judge   *JudgeService
	scorer  *QuestionnaireScorer
	workers int
	logger  *zap.Logger
}

func NewLabeler(judge *JudgeService, scorer *QuestionnaireScorer, workers int, logger *zap.Logger) *Labeler {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Labeler{judge: judge, scorer: scorer, workers: workers, logger: logger}
}

// LabelStats cuenta lo que no llego a clasificarse.
type LabelStats struct {
	Unclassifiable  int
	JudgeFailures   int
	UnparsedAnswers int
}

// Label etiqueta toda la tabla. Las generaciones conservan el orden de la tabla;
// cada una escribe en su propio indice.
func (l *Labeler) Label(ctx context.Context, table *ResultsTable) ([]domain.LabeledResult, LabelStats, error) {
	gens := table.Generations()
	genResults := make([]domain.LabeledResult, len(gens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, trial := range gens {
		g.Go(func() error {
			res, err := l.labelGeneration(gctx, trial)
			if err != nil {
				return err
			}
			genResults[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, LabelStats{}, err
	}

	var stats LabelStats
	out := make([]domain.LabeledResult, 0, len(genResults))
	for _, r := range genResults {
		switch {
		case r.Status == domain.StatusUnclassifiable:
			stats.Unclassifiable++
		case r.Status == domain.StatusFailed && r.Text != "":
			stats.JudgeFailures++
		}
		out = append(out, r)
	}

	for _, q := range table.Questionnaires() {
		stats.UnparsedAnswers += q.CountAnswers(domain.StatusUnparsed)
		for _, r := range l.LabelQuestionnaire(q) {
			if r.Status == domain.StatusUnclassifiable {
				stats.Unclassifiable++
			}
			out = append(out, r)
		}
	}
	return out, stats, nil
}

func (l *Labeler) labelGeneration(ctx context.Context, trial domain.GenerationTrial) (domain.LabeledResult, error) {
	res := domain.LabeledResult{
		Mode:          domain.ModeGeneration,
		TrialID:       trial.ID,
		Model:         trial.Model,
		Trait:         trial.Trait,
		PromptedLevel: trial.Level,
		PromptScore:   trial.PromptScore,
		Text:          trial.Text,
	}
	if trial.Failed() {
		res.Status = domain.StatusFailed
		res.Error = trial.Error
		return res, nil
	}

	j, err := l.judge.Classify(ctx, trial.Text, trial.Trait, trial.Question)
	res.JudgeClues = j.Clues
	res.JudgeReasoning = j.Reasoning
	res.JudgeDecisionType = j.DecisionType
	res.JudgeRaw = j.Raw
	if j.Score != nil {
		v := float64(*j.Score)
		res.Score = &v
	}

	switch {
	case err == nil:
		res.Status = domain.StatusOK
		res.DetectedLevel = j.Level
	case ctx.Err() != nil:
		return res, ctx.Err()
	case errors.Is(err, domain.ErrUnclassifiable):
		res.Status = domain.StatusUnclassifiable
		res.Error = err.Error()
	default:
		res.Status = domain.StatusFailed
		res.Error = err.Error()
		l.logger.Warn("judge failed",
			zap.String("trial_id", trial.ID),
			zap.String("model", trial.Model),
			zap.Error(err),
		)
	}
	return res, nil
}

// LabelQuestionnaire clasifica el rasgo objetivo del perfil; el nivel pedido
// es el del perfil para ese rasgo. Los rasgos neutros no se etiquetan.
func (l *Labeler) LabelQuestionnaire(trial domain.QuestionnaireTrial) []domain.LabeledResult {
	trait := trial.Trait
	if !trait.Valid() {
		trait, _ = targetOf(trial.Profile)
	}
	res := domain.LabeledResult{
		Mode:          domain.ModeQuestionnaire,
		TrialID:       trial.ID,
		Model:         trial.Model,
		Trait:         trait,
		PromptedLevel: trial.Profile[trait],
	}
	if trial.Failed() {
		res.Status = domain.StatusFailed
		res.Error = trial.Error
		return []domain.LabeledResult{res}
	}
	lvl, mean, err := l.scorer.Classify(trial, trait)
	if err != nil {
		res.Status = domain.StatusUnclassifiable
		res.Error = err.Error()
		return []domain.LabeledResult{res}
	}
	res.Score = &mean
	res.DetectedLevel = lvl
	res.Status = domain.StatusOK
	return []domain.LabeledResult{res}
}
