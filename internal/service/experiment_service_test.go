package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"persona-probe/internal/domain"
	"persona-probe/internal/llm"
	"persona-probe/internal/taxonomy"
)

func newExperiments(t *testing.T, gateways map[string]llm.Gateway, cfg ExperimentConfig) *ExperimentService {
	t.Helper()
	reg := llm.NewRegistry()
	for name, g := range gateways {
		reg.Register(name, g)
	}
	return NewExperimentService(taxonomy.Default(), reg, cfg, zap.NewNop())
}

func TestRunGenerationRecordsTrial(t *testing.T) {
	g := llm.NewScriptedClient().Enqueue(llm.ScriptedReply{Text: "I would travel the world."})
	svc := newExperiments(t, map[string]llm.Gateway{"m": g}, DefaultExperimentConfig())

	trial, err := svc.RunGeneration(context.Background(), "m", domain.TraitOpenness, domain.LevelHigh, "What does the world need more of?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trial.Status != domain.StatusOK || trial.Text != "I would travel the world." || trial.PromptScore != 5 || trial.Level != domain.LevelHigh {
		t.Fatalf("unexpected trial %+v", trial)
	}
	if trial.ID == "" || trial.StartedAt.IsZero() || trial.FinishedAt.Before(trial.StartedAt) {
		t.Fatalf("trial identity and timestamps must be set: %+v", trial)
	}
	call := g.Calls()[0]
	if !strings.Contains(call.System, `"Openness" is rated as 5`) || !strings.Contains(call.User, "What does the world need more of?") {
		t.Fatalf("unexpected prompt %+v", call)
	}
}

func TestRunGenerationGatewayFailureIsRecorded(t *testing.T) {
	gerr := &llm.GatewayError{Model: "m", Kind: llm.KindRateLimit, StatusCode: 429, Err: errors.New("slow down")}
	svc := newExperiments(t, map[string]llm.Gateway{"m": &llm.MockClient{Err: gerr}}, DefaultExperimentConfig())

	trial, err := svc.RunGenerationScore(context.Background(), "m", domain.TraitAgreeableness, 2, "q")
	if err != nil {
		t.Fatalf("gateway failure must not be returned as error, got %v", err)
	}
	if trial.Status != domain.StatusFailed || trial.Error == "" || trial.Level != domain.LevelLow {
		t.Fatalf("expected failed trial, got %+v", trial)
	}
}

func TestRunGenerationRejectsInvalidInput(t *testing.T) {
	svc := newExperiments(t, map[string]llm.Gateway{"m": &llm.MockClient{Response: "x"}}, DefaultExperimentConfig())
	ctx := context.Background()
	if _, err := svc.RunGeneration(ctx, "m", domain.TraitOpenness, domain.LevelUnknown, "q"); !errors.Is(err, domain.ErrUnknownLevel) {
		t.Fatalf("expected ErrUnknownLevel, got %v", err)
	}
	if _, err := svc.RunGenerationScore(ctx, "m", domain.TraitOpenness, 6, "q"); err == nil {
		t.Fatalf("expected error for score 6")
	}
	if _, err := svc.RunGeneration(ctx, "missing", domain.TraitOpenness, domain.LevelLow, "q"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

func TestRunQuestionnaire(t *testing.T) {
	g := llm.NewScriptedClient().
		When("Is talkative", "I agree strongly with the statement").
		When("Is reserved", "no idea")
	g.Default = llm.ScriptedReply{Text: "agree a little with the statement"}
	svc := newExperiments(t, map[string]llm.Gateway{"m": g}, DefaultExperimentConfig())

	profile := domain.NeutralProfile().WithLevel(domain.TraitExtraversion, domain.LevelHigh)
	trial, err := svc.RunQuestionnaire(context.Background(), "m", profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trial.Answers) != 44 || g.CallCount() != 44 {
		t.Fatalf("expected 44 answers and calls, got %d / %d", len(trial.Answers), g.CallCount())
	}
	if trial.Trait != domain.TraitExtraversion || trial.Level != domain.LevelHigh || trial.Status != domain.StatusOK {
		t.Fatalf("unexpected trial header %+v", trial)
	}
	if trial.Answers[0].Value != 5 || trial.Answers[5].Status != domain.StatusUnparsed || trial.Answers[5].Value != 0 {
		t.Fatalf("unexpected answers: %+v / %+v", trial.Answers[0], trial.Answers[5])
	}
	if trial.CountAnswers(domain.StatusUnparsed) != 1 {
		t.Fatalf("expected exactly one unparsed answer")
	}
	sys := g.Calls()[0].System
	if !strings.Contains(sys, "high score in Extraversion") || !strings.Contains(sys, "medium score in Neuroticism") {
		t.Fatalf("system prompt must describe the whole profile: %s", sys)
	}

	if _, err := svc.RunQuestionnaire(context.Background(), "m", domain.TraitProfile{domain.TraitOpenness: domain.LevelLow}); !errors.Is(err, domain.ErrIncompleteProfile) {
		t.Fatalf("expected ErrIncompleteProfile, got %v", err)
	}
}

func TestRunQuestionnaireAllItemsFailed(t *testing.T) {
	svc := newExperiments(t, map[string]llm.Gateway{"m": &llm.MockClient{Err: errors.New("down")}}, DefaultExperimentConfig())
	trial, err := svc.RunQuestionnaire(context.Background(), "m", domain.NeutralProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trial.Status != domain.StatusFailed || trial.CountAnswers(domain.StatusFailed) != 44 {
		t.Fatalf("expected failed trial, got %s with %d failed answers", trial.Status, trial.CountAnswers(domain.StatusFailed))
	}
}

func halfFailingGateway() *llm.ScriptedClient {
	g := llm.NewScriptedClient().WhenReply("fail here", llm.ScriptedReply{Err: &llm.GatewayError{Model: "m", Kind: llm.KindMalformed, Err: errors.New("garbage")}})
	g.Default = llm.ScriptedReply{Text: "a fine answer"}
	return g
}

func halfFailingPlan() Plan {
	return Plan{
		Models:       []string{"m"},
		Traits:       []domain.Trait{domain.TraitExtraversion},
		PromptScores: []int{1, 2, 3, 4, 5},
		Questions:    []string{"answer here", "fail here"},
	}
}

func TestRunToleratesFailuresAtThreshold(t *testing.T) {
	cfg := DefaultExperimentConfig()
	cfg.Workers = 3
	cfg.MaxFailureRatio = 0.5
	cfg.MinTrialsForAbort = 10
	svc := newExperiments(t, map[string]llm.Gateway{"m": halfFailingGateway()}, cfg)

	table, outcome, err := svc.Run(context.Background(), halfFailingPlan())
	if err != nil {
		t.Fatalf("5 of 10 failures at ratio 0.5 must not abort: %v", err)
	}
	if outcome.Status != domain.RunCompleted || outcome.Completed != 10 || outcome.Failed != 5 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	gens := table.Generations()
	ok := 0
	for _, g := range gens {
		if !g.Failed() {
			ok++
		}
	}
	if len(gens) != 10 || ok != 5 || table.Failures() != 5 {
		t.Fatalf("expected 10 trials with 5 valid, got %d / %d", len(gens), ok)
	}
}

func TestRunDegradesWhenConfigured(t *testing.T) {
	cfg := DefaultExperimentConfig()
	cfg.Workers = 2
	cfg.MaxFailureRatio = 0.4
	cfg.MinTrialsForAbort = 4
	cfg.AbortOnThreshold = false
	svc := newExperiments(t, map[string]llm.Gateway{"m": halfFailingGateway()}, cfg)

	table, outcome, err := svc.Run(context.Background(), halfFailingPlan())
	if err != nil {
		t.Fatalf("degraded run must not return an error: %v", err)
	}
	if outcome.Status != domain.RunDegraded || len(outcome.Warnings) == 0 || table.Len() != 10 {
		t.Fatalf("expected degraded run with all trials, got %+v (%d trials)", outcome, table.Len())
	}
}

func TestRunAbortsOnThreshold(t *testing.T) {
	cfg := DefaultExperimentConfig()
	cfg.Workers = 1
	cfg.MaxFailureRatio = 0.4
	cfg.MinTrialsForAbort = 2
	svc := newExperiments(t, map[string]llm.Gateway{"m": halfFailingGateway()}, cfg)

	table, outcome, err := svc.Run(context.Background(), halfFailingPlan())
	if !errors.Is(err, domain.ErrRunAborted) {
		t.Fatalf("expected ErrRunAborted, got %v", err)
	}
	if outcome.Status != domain.RunAborted {
		t.Fatalf("expected aborted status, got %s", outcome.Status)
	}
	if table.Len() != 2 {
		t.Fatalf("partial table must keep the 2 completed trials, got %d", table.Len())
	}
	for _, g := range table.Generations() {
		if g.ID == "" || g.Status == "" {
			t.Fatalf("partial table holds an incomplete record: %+v", g)
		}
	}
}

func TestRunGridIsDeterministic(t *testing.T) {
	cfg := DefaultExperimentConfig()
	cfg.Workers = 8
	g := llm.NewScriptedClient()
	g.Default = llm.ScriptedReply{Text: "agree a little with the statement"}
	svc := newExperiments(t, map[string]llm.Gateway{"b": g, "a": g}, cfg)

	plan := Plan{
		Models:              []string{"b", "a"},
		Traits:              []domain.Trait{domain.TraitNeuroticism, domain.TraitOpenness},
		PromptScores:        []int{5, 1},
		Questions:           []string{"q1", "q2"},
		Repeats:             2,
		QuestionnaireLevels: []domain.Level{domain.LevelHigh, domain.LevelLow},
	}
	table, outcome, err := svc.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2 modelos x 2 rasgos x (2 puntajes x 2 preguntas x 2 repeticiones + 2 niveles)
	if outcome.Completed != 40 || table.Len() != 40 {
		t.Fatalf("expected 40 trials, got %d", table.Len())
	}

	gens := table.Generations()
	first, last := gens[0], gens[len(gens)-1]
	if first.Model != "a" || first.Trait != domain.TraitOpenness || first.PromptScore != 1 || first.QuestionIndex != 0 || first.Repeat != 0 {
		t.Fatalf("unexpected first trial %+v", first)
	}
	if last.Model != "b" || last.Trait != domain.TraitNeuroticism || last.PromptScore != 5 || last.QuestionIndex != 1 || last.Repeat != 1 {
		t.Fatalf("unexpected last trial %+v", last)
	}
	qs := table.Questionnaires()
	if len(qs) != 8 || qs[0].Level != domain.LevelLow || qs[0].Profile[domain.TraitOpenness] != domain.LevelLow || qs[0].Profile[domain.TraitNeuroticism] != domain.LevelMedium {
		t.Fatalf("unexpected questionnaire ordering or profile: %+v", qs[0])
	}
	for _, q := range qs {
		if q.RunID != outcome.RunID {
			t.Fatalf("trial must carry the run id")
		}
	}
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	svc := newExperiments(t, map[string]llm.Gateway{"m": &llm.MockClient{}}, DefaultExperimentConfig())
	cases := []Plan{
		{Models: []string{"missing"}, PromptScores: []int{1}},
		{Models: []string{"m"}, PromptScores: []int{0}},
		{Models: []string{"m"}, Traits: []domain.Trait{"Humor"}, PromptScores: []int{1}},
		{Models: []string{"m"}, QuestionnaireLevels: []domain.Level{domain.LevelUnknown}},
	}
	for i, plan := range cases {
		table, outcome, err := svc.Run(context.Background(), plan)
		if err == nil || table.Len() != 0 || outcome.Status != domain.RunRunning {
			t.Fatalf("case %d: expected rejection before any trial, got %v", i, err)
		}
	}
}
