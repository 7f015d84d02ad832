package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"persona-probe/internal/domain"
	"persona-probe/internal/llm"
	"persona-probe/internal/taxonomy"
)

// GatewayResolver devuelve el gateway de un modelo por nombre. *llm.Registry lo implementa.
type GatewayResolver interface {
	Get(name string) (llm.Gateway, error)
}

// ExperimentConfig son los parametros de ejecucion de una corrida.
type ExperimentConfig struct {
	Workers           int
	MaxFailureRatio   float64
	MinTrialsForAbort int
	AbortOnThreshold  bool
	Generation        llm.GenerateConfig
	Questionnaire     llm.GenerateConfig
}

func DefaultExperimentConfig() ExperimentConfig {
	return ExperimentConfig{
		Workers:           4,
		MaxFailureRatio:   0.5,
		MinTrialsForAbort: 10,
		AbortOnThreshold:  true,
		Generation:        llm.GenerateConfig{MaxTokens: 512, Temperature: 0.7},
		Questionnaire:     llm.GenerateConfig{MaxTokens: 512, Temperature: 0.7},
	}
}

// Plan es la grilla a ejecutar. Sin PromptScores no hay modo generativo; sin
// QuestionnaireLevels no hay modo cuestionario.
type Plan struct {
	RunID               string
	Models              []string
	Traits              []domain.Trait
	PromptScores        []int
	Questions           []string
	Repeats             int
	QuestionnaireLevels []domain.Level
}

// RunOutcome resume como termino la ejecucion de la grilla.
type RunOutcome struct {
	RunID      string
	Status     domain.RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Completed  int
	Failed     int
	Dropped    int
	Warnings   []string
}

// ExperimentService ejecuta trials contra los gateways de los modelos.
type ExperimentService struct {
	tax      *taxonomy.Taxonomy
	prompts  *PromptBuilder
	likert   *LikertParser
	gateways GatewayResolver
	cfg      ExperimentConfig
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewExperimentService(tax *taxonomy.Taxonomy, gateways GatewayResolver, cfg ExperimentConfig, logger *zap.Logger) *ExperimentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &ExperimentService{
		tax:      tax,
		prompts:  NewPromptBuilder(tax),
		likert:   NewLikertParser(tax.LikertOptions()),
		gateways: gateways,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
}

// RunGeneration genera un texto con el rasgo en el nivel dado (puntaje canonico 1, 3 o 5).
func (s *ExperimentService) RunGeneration(ctx context.Context, model string, trait domain.Trait, level domain.Level, question string) (domain.GenerationTrial, error) {
	if !level.Valid() {
		return domain.GenerationTrial{}, fmt.Errorf("%w: %d", domain.ErrUnknownLevel, level)
	}
	return s.runGeneration(ctx, "", model, trait, level.PromptScore(), -1, question, 0)
}

// RunGenerationScore genera un texto con el rasgo puntuado de 1 a 5.
func (s *ExperimentService) RunGenerationScore(ctx context.Context, model string, trait domain.Trait, score int, question string) (domain.GenerationTrial, error) {
	return s.runGeneration(ctx, "", model, trait, score, -1, question, 0)
}

// runGeneration devuelve error solo por entradas invalidas o por cancelacion; una
// falla del gateway queda registrada en el trial con estado failed.
func (s *ExperimentService) runGeneration(ctx context.Context, runID, model string, trait domain.Trait, score, qIdx int, question string, repeat int) (domain.GenerationTrial, error) {
	level, err := domain.LevelForPromptScore(score)
	if err != nil {
		return domain.GenerationTrial{}, err
	}
	gw, err := s.gateways.Get(model)
	if err != nil {
		return domain.GenerationTrial{}, err
	}
	prompt, err := s.prompts.Generation(trait, score, question)
	if err != nil {
		return domain.GenerationTrial{}, err
	}

	trial := domain.GenerationTrial{
		ID:            s.newID(),
		RunID:         runID,
		Model:         model,
		Trait:         trait,
		PromptScore:   score,
		Level:         level,
		QuestionIndex: qIdx,
		Question:      question,
		Repeat:        repeat,
		StartedAt:     s.now(),
	}

	text, err := gw.Generate(ctx, prompt, s.cfg.Generation)
	trial.FinishedAt = s.now()
	if ctx.Err() != nil {
		return trial, ctx.Err()
	}
	if err != nil {
		trial.Status = domain.StatusFailed
		trial.Error = err.Error()
		s.logger.Warn("generation failed",
			zap.String("model", model),
			zap.String("trait", string(trait)),
			zap.Int("score", score),
			zap.Error(err),
		)
		return trial, nil
	}
	trial.Status = domain.StatusOK
	trial.Text = text
	return trial, nil
}

// RunQuestionnaire responde los 44 items bajo el perfil, una llamada por item.
func (s *ExperimentService) RunQuestionnaire(ctx context.Context, model string, profile domain.TraitProfile) (domain.QuestionnaireTrial, error) {
	trait, level := targetOf(profile)
	return s.runQuestionnaire(ctx, "", model, trait, level, profile)
}

func (s *ExperimentService) runQuestionnaire(ctx context.Context, runID, model string, trait domain.Trait, level domain.Level, profile domain.TraitProfile) (domain.QuestionnaireTrial, error) {
	if err := profile.Validate(); err != nil {
		return domain.QuestionnaireTrial{}, err
	}
	gw, err := s.gateways.Get(model)
	if err != nil {
		return domain.QuestionnaireTrial{}, err
	}
	system, err := s.prompts.QuestionnaireSystem(profile)
	if err != nil {
		return domain.QuestionnaireTrial{}, err
	}

	trial := domain.QuestionnaireTrial{
		ID:        s.newID(),
		RunID:     runID,
		Model:     model,
		Trait:     trait,
		Level:     level,
		Profile:   copyProfile(profile),
		StartedAt: s.now(),
	}

	items := s.tax.Items()
	trial.Answers = make([]domain.ItemAnswer, 0, len(items))
	failed := 0
	var lastErr error
	for _, item := range items {
		raw, err := gw.Generate(ctx, s.prompts.QuestionnaireItem(system, item), s.cfg.Questionnaire)
		if ctx.Err() != nil {
			trial.FinishedAt = s.now()
			return trial, ctx.Err()
		}
		ans := domain.ItemAnswer{ItemNumber: item.Number, Raw: raw}
		switch {
		case err != nil:
			ans.Status = domain.StatusFailed
			ans.Error = err.Error()
			failed++
			lastErr = err
		default:
			v, perr := s.likert.Parse(raw)
			if perr != nil {
				ans.Status = domain.StatusUnparsed
				ans.Error = perr.Error()
			} else {
				ans.Status = domain.StatusOK
				ans.Value = v
			}
		}
		trial.Answers = append(trial.Answers, ans)
	}
	trial.FinishedAt = s.now()

	trial.Status = domain.StatusOK
	if len(items) > 0 && failed == len(items) {
		trial.Status = domain.StatusFailed
		trial.Error = lastErr.Error()
		s.logger.Warn("questionnaire failed",
			zap.String("model", model),
			zap.String("profile", profile.String()),
			zap.Error(lastErr),
		)
	} else if failed > 0 {
		trial.Error = fmt.Sprintf("%d of %d item calls failed", failed, len(items))
	}
	return trial, nil
}

func copyProfile(p domain.TraitProfile) domain.TraitProfile {
	out := make(domain.TraitProfile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// targetOf elige el primer rasgo que no esta en Medium como objetivo del perfil.
func targetOf(profile domain.TraitProfile) (domain.Trait, domain.Level) {
	for _, t := range domain.AllTraits() {
		if lvl, ok := profile[t]; ok && lvl != domain.LevelMedium {
			return t, lvl
		}
	}
	return domain.TraitOpenness, profile[domain.TraitOpenness]
}

type unitKind int

const (
	unitGeneration unitKind = iota
	unitQuestionnaire
)

type trialUnit struct {
	kind     unitKind
	model    string
	trait    domain.Trait
	score    int
	level    domain.Level
	qIdx     int
	question string
	repeat   int
}

// Units enumera la grilla en orden determinista: modelo, rasgo, puntaje o nivel, pregunta, repeticion.
func (s *ExperimentService) units(plan Plan) ([]trialUnit, error) {
	traits := plan.Traits
	if len(traits) == 0 {
		traits = domain.AllTraits()
	}
	questions := plan.Questions
	if len(questions) == 0 {
		questions = s.tax.Questions()
	}
	repeats := plan.Repeats
	if repeats <= 0 {
		repeats = 1
	}

	var out []trialUnit
	for _, model := range plan.Models {
		if _, err := s.gateways.Get(model); err != nil {
			return nil, err
		}
		for _, trait := range traits {
			if !trait.Valid() {
				return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTrait, trait)
			}
			for _, score := range plan.PromptScores {
				if _, err := domain.LevelForPromptScore(score); err != nil {
					return nil, err
				}
				for qi, q := range questions {
					for r := 0; r < repeats; r++ {
						out = append(out, trialUnit{kind: unitGeneration, model: model, trait: trait, score: score, qIdx: qi, question: q, repeat: r})
					}
				}
			}
			for _, lvl := range plan.QuestionnaireLevels {
				if !lvl.Valid() {
					return nil, fmt.Errorf("%w: %d", domain.ErrUnknownLevel, lvl)
				}
				out = append(out, trialUnit{kind: unitQuestionnaire, model: model, trait: trait, level: lvl})
			}
		}
	}
	return out, nil
}

// failureTracker decide si la corrida se degrada o se aborta.
type failureTracker struct {
	mu        sync.Mutex
	completed int
	failed    int
	cfg       ExperimentConfig
	tripped   bool
}

// record devuelve true la primera vez que se supera el umbral.
func (f *failureTracker) record(failed bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed++
	if failed {
		f.failed++
	}
	if f.tripped || f.completed < f.cfg.MinTrialsForAbort || f.cfg.MaxFailureRatio <= 0 {
		return false
	}
	if float64(f.failed)/float64(f.completed) > f.cfg.MaxFailureRatio {
		f.tripped = true
		return true
	}
	return false
}

// Run ejecuta la grilla completa con un pool acotado. Las fallas por trial no
// cortan la corrida; si se supera el umbral de fallas se aborta (ErrRunAborted)
// o se marca como degradada segun la configuracion. La tabla parcial siempre es utilizable.
func (s *ExperimentService) Run(ctx context.Context, plan Plan) (*ResultsTable, RunOutcome, error) {
	table := NewResultsTable()
	outcome := RunOutcome{RunID: plan.RunID, StartedAt: s.now(), Status: domain.RunRunning}
	if outcome.RunID == "" {
		outcome.RunID = s.newID()
	}

	units, err := s.units(plan)
	if err != nil {
		return table, outcome, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := &failureTracker{cfg: s.cfg}
	var (
		mu       sync.Mutex
		aborted  bool
		degraded bool
		dropped  int
	)

	s.logger.Info("run started",
		zap.String("run_id", outcome.RunID),
		zap.Int("units", len(units)),
		zap.Int("workers", s.cfg.Workers),
	)

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Workers)

schedule:
	for _, u := range units {
		select {
		case <-runCtx.Done():
			break schedule
		default:
		}
		g.Go(func() error {
			failed, err := s.execute(runCtx, outcome.RunID, u, table)
			if err != nil {
				mu.Lock()
				dropped++
				mu.Unlock()
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					s.logger.Error("trial rejected", zap.String("model", u.model), zap.Error(err))
				}
				return nil
			}
			if tracker.record(failed) {
				mu.Lock()
				defer mu.Unlock()
				if s.cfg.AbortOnThreshold {
					aborted = true
					s.logger.Error("failure threshold exceeded, aborting run",
						zap.String("run_id", outcome.RunID),
						zap.Float64("max_failure_ratio", s.cfg.MaxFailureRatio),
					)
					cancel()
				} else {
					degraded = true
					s.logger.Warn("failure threshold exceeded, run degraded",
						zap.String("run_id", outcome.RunID),
						zap.Float64("max_failure_ratio", s.cfg.MaxFailureRatio),
					)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	outcome.FinishedAt = s.now()
	outcome.Completed = tracker.completed
	outcome.Failed = tracker.failed
	outcome.Dropped = dropped

	switch {
	case aborted:
		outcome.Status = domain.RunAborted
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("failure ratio exceeded %.2f after %d trials; run aborted", s.cfg.MaxFailureRatio, tracker.completed))
		return table, outcome, domain.ErrRunAborted
	case ctx.Err() != nil:
		outcome.Status = domain.RunAborted
		return table, outcome, ctx.Err()
	case degraded:
		outcome.Status = domain.RunDegraded
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("failure ratio exceeded %.2f", s.cfg.MaxFailureRatio))
	default:
		outcome.Status = domain.RunCompleted
	}

	s.logger.Info("run finished",
		zap.String("run_id", outcome.RunID),
		zap.String("status", string(outcome.Status)),
		zap.Int("completed", outcome.Completed),
		zap.Int("failed", outcome.Failed),
	)
	return table, outcome, nil
}

func (s *ExperimentService) execute(ctx context.Context, runID string, u trialUnit, table *ResultsTable) (bool, error) {
	switch u.kind {
	case unitGeneration:
		trial, err := s.runGeneration(ctx, runID, u.model, u.trait, u.score, u.qIdx, u.question, u.repeat)
		if err != nil {
			return false, err
		}
		table.AppendGeneration(trial)
		return trial.Failed(), nil
	case unitQuestionnaire:
		profile := domain.NeutralProfile().WithLevel(u.trait, u.level)
		trial, err := s.runQuestionnaire(ctx, runID, u.model, u.trait, u.level, profile)
		if err != nil {
			return false, err
		}
		table.AppendQuestionnaire(trial)
		return trial.Failed(), nil
	}
	return false, fmt.Errorf("unknown unit kind %d", u.kind)
}
