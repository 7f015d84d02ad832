package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"persona-probe/internal/domain"
)

// Report es todo lo que produce una corrida: tablas crudas, etiquetas,
// artefactos y el resumen. Es lo que reciben los sinks.
type Report struct {
	Summary        domain.RunSummary           `json:"summary"`
	Plan           Plan                        `json:"-"`
	Generations    []domain.GenerationTrial    `json:"generations"`
	Questionnaires []domain.QuestionnaireTrial `json:"questionnaires"`
	Labeled        []domain.LabeledResult      `json:"labeled"`
	Artifacts      Artifacts                   `json:"artifacts"`
	Thresholds     Thresholds                  `json:"thresholds"`
	SinkErrors     map[string]string           `json:"sink_errors,omitempty"`
}

// ArtifactSink persiste un reporte (CSV, Postgres, ...).
type ArtifactSink interface {
	Name() string
	Persist(ctx context.Context, report *Report) error
}

// RunNotifier avisa que termino una corrida.
type RunNotifier interface {
	NotifyRunFinished(ctx context.Context, summary domain.RunSummary) error
}

// Pipeline encadena ejecutar -> etiquetar -> analizar -> persistir.
type Pipeline struct {
	experiments *ExperimentService
	labeler     *Labeler
	analysis    *AnalysisService
	thresholds  Thresholds
	sinks       []ArtifactSink
	notifier    RunNotifier
	logger      *zap.Logger
	persistTTL  time.Duration
}

func NewPipeline(experiments *ExperimentService, labeler *Labeler, analysis *AnalysisService, thresholds Thresholds, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		experiments: experiments,
		labeler:     labeler,
		analysis:    analysis,
		thresholds:  thresholds,
		logger:      logger,
		persistTTL:  2 * time.Minute,
	}
}

func (p *Pipeline) AddSink(s ArtifactSink) {
	if s != nil {
		p.sinks = append(p.sinks, s)
	}
}

func (p *Pipeline) SetNotifier(n RunNotifier) { p.notifier = n }

// Execute corre el plan completo. Si la corrida se aborta igual se etiqueta,
// analiza y persiste lo parcial, y se devuelve ErrRunAborted junto al reporte.
func (p *Pipeline) Execute(ctx context.Context, plan Plan) (*Report, error) {
	table, outcome, runErr := p.experiments.Run(ctx, plan)
	if runErr != nil && outcome.Status == domain.RunRunning {
		return nil, fmt.Errorf("invalid plan: %w", runErr)
	}
	plan.RunID = outcome.RunID

	report := &Report{
		Plan:           plan,
		Generations:    table.Generations(),
		Questionnaires: table.Questionnaires(),
		Thresholds:     p.thresholds,
	}

	labeled, stats, err := p.labeler.Label(ctx, table)
	if err != nil {
		p.logger.Warn("labeling interrupted, generations left unlabeled", zap.String("run_id", outcome.RunID), zap.Error(err))
		outcome.Warnings = append(outcome.Warnings, "labeling interrupted: "+err.Error())
		labeled, stats = p.labelQuestionnairesOnly(report.Questionnaires)
	}
	report.Labeled = labeled
	report.Artifacts = p.analysis.Analyze(labeled)
	report.Summary = buildSummary(outcome, report, stats)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.persistTTL)
	defer cancel()
	for _, sink := range p.sinks {
		if err := sink.Persist(persistCtx, report); err != nil {
			p.logger.Error("sink failed", zap.String("sink", sink.Name()), zap.String("run_id", outcome.RunID), zap.Error(err))
			if report.SinkErrors == nil {
				report.SinkErrors = make(map[string]string)
			}
			report.SinkErrors[sink.Name()] = err.Error()
			continue
		}
		p.logger.Info("artifacts persisted", zap.String("sink", sink.Name()), zap.String("run_id", outcome.RunID))
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyRunFinished(persistCtx, report.Summary); err != nil {
			p.logger.Warn("run notification failed", zap.String("run_id", outcome.RunID), zap.Error(err))
		}
	}

	if runErr != nil && !errors.Is(runErr, domain.ErrRunAborted) {
		return report, fmt.Errorf("run interrupted: %w", runErr)
	}
	return report, runErr
}

func (p *Pipeline) labelQuestionnairesOnly(qs []domain.QuestionnaireTrial) ([]domain.LabeledResult, LabelStats) {
	var stats LabelStats
	var out []domain.LabeledResult
	for _, q := range qs {
		stats.UnparsedAnswers += q.CountAnswers(domain.StatusUnparsed)
		for _, r := range p.labeler.LabelQuestionnaire(q) {
			if r.Status == domain.StatusUnclassifiable {
				stats.Unclassifiable++
			}
			out = append(out, r)
		}
	}
	return out, stats
}

func buildSummary(outcome RunOutcome, report *Report, stats LabelStats) domain.RunSummary {
	s := domain.RunSummary{
		RunID:               outcome.RunID,
		StartedAt:           outcome.StartedAt,
		FinishedAt:          outcome.FinishedAt,
		Status:              outcome.Status,
		GenerationTrials:    len(report.Generations),
		QuestionnaireTrials: len(report.Questionnaires),
		Unclassifiable:      stats.Unclassifiable,
		UnparsedAnswers:     stats.UnparsedAnswers,
		Warnings:            append([]string(nil), outcome.Warnings...),
	}
	s.TotalTrials = s.GenerationTrials + s.QuestionnaireTrials
	for _, g := range report.Generations {
		if g.Failed() {
			s.Failures++
		}
	}
	for _, q := range report.Questionnaires {
		if q.Failed() {
			s.Failures++
		}
	}
	if stats.JudgeFailures > 0 {
		s.Warnings = append(s.Warnings, fmt.Sprintf("%d judge calls failed", stats.JudgeFailures))
	}
	if outcome.Dropped > 0 {
		s.Warnings = append(s.Warnings, fmt.Sprintf("%d in-flight trials dropped", outcome.Dropped))
	}
	return s
}
