package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"persona-probe/internal/domain"
	"persona-probe/internal/llm"
)

const sampleExperiment = `
run_id: pilot-1
models:
  - name: gpt-4o
    backend: openai
    model_id: gpt-4o-2024-08-06
    fallback: llama
  - name: llama
    backend: groq
    model_id: llama-3.1-70b-versatile
judge:
  name: judge
  backend: gemini
  model_id: gemini-2.0-flash
traits: [O, extraversion]
prompt_scores: [1, 3, 5]
questionnaire_levels: [low, High]
questions:
  - What would you do with a free afternoon?
repeats: 2
generation:
  temperature: 0.9
  max_tokens: 300
judge_sampling:
  temperature: 0
`

func TestLoadExperiment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	if err := os.WriteFile(path, []byte(sampleExperiment), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	exp, err := LoadExperiment(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plan := exp.Plan()
	if plan.RunID != "pilot-1" || len(plan.Models) != 2 || plan.Repeats != 2 || len(plan.Questions) != 1 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if len(plan.Traits) != 2 || plan.Traits[0] != domain.TraitOpenness || plan.Traits[1] != domain.TraitExtraversion {
		t.Fatalf("unexpected traits %v", plan.Traits)
	}
	if len(plan.QuestionnaireLevels) != 2 || plan.QuestionnaireLevels[1] != domain.LevelHigh {
		t.Fatalf("unexpected levels %v", plan.QuestionnaireLevels)
	}

	specs := exp.ModelSpecs()
	if len(specs) != 3 || specs[2].Name != "judge" || specs[2].Backend != llm.BackendGemini || specs[0].Fallback != "llama" {
		t.Fatalf("unexpected specs %+v", specs)
	}

	gen := exp.Generation.Apply(llm.GenerateConfig{Temperature: 0.7, MaxTokens: 512})
	if gen.Temperature != 0.9 || gen.MaxTokens != 300 {
		t.Fatalf("unexpected generation config %+v", gen)
	}
	judge := exp.JudgeSampling.Apply(llm.GenerateConfig{Temperature: 0.7, MaxTokens: 512})
	if judge.Temperature != 0 || judge.MaxTokens != 512 {
		t.Fatalf("explicit zero temperature must be kept: %+v", judge)
	}
}

func TestJudgeMayBeAnEvaluatedModel(t *testing.T) {
	exp, err := ParseExperiment([]byte(`
models:
  - {name: m, backend: mock}
judge: {name: m, backend: mock}
prompt_scores: [5]
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if specs := exp.ModelSpecs(); len(specs) != 1 {
		t.Fatalf("judge must not be registered twice: %+v", specs)
	}
}

func TestParseExperimentRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no models":       "judge: {name: j, backend: mock}\nprompt_scores: [1]",
		"no judge":        "models: [{name: m, backend: mock}]\nprompt_scores: [1]",
		"nothing to run":  "models: [{name: m, backend: mock}]\njudge: {name: j, backend: mock}",
		"bad backend":     "models: [{name: m, backend: anthropic}]\njudge: {name: j, backend: mock}\nprompt_scores: [1]",
		"bad score":       "models: [{name: m, backend: mock}]\njudge: {name: j, backend: mock}\nprompt_scores: [6]",
		"bad level":       "models: [{name: m, backend: mock}]\njudge: {name: j, backend: mock}\nquestionnaire_levels: [extreme]",
		"bad trait":       "models: [{name: m, backend: mock}]\njudge: {name: j, backend: mock}\nprompt_scores: [1]\ntraits: [Humor]",
		"duplicate model": "models: [{name: m, backend: mock}, {name: m, backend: groq}]\njudge: {name: j, backend: mock}\nprompt_scores: [1]",
		"bad fallback":    "models: [{name: m, backend: mock, fallback: x}]\njudge: {name: j, backend: mock}\nprompt_scores: [1]",
		"empty question":  "models: [{name: m, backend: mock}]\njudge: {name: j, backend: mock}\nprompt_scores: [1]\nquestions: ['  ']",
		"broken yaml":     "models: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseExperiment([]byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadExperimentMissingFile(t *testing.T) {
	_, err := LoadExperiment(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "nope.yaml") {
		t.Fatalf("expected read error naming the file, got %v", err)
	}
}
