package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"persona-probe/internal/domain"
	"persona-probe/internal/llm"
	"persona-probe/internal/service"
)

// Experiment es la matriz de una corrida tal como viene del YAML.
type Experiment struct {
	RunID               string       `yaml:"run_id"`
	Models              []ModelEntry `yaml:"models"`
	Judge               ModelEntry   `yaml:"judge"`
	Traits              []string     `yaml:"traits"`
	PromptScores        []int        `yaml:"prompt_scores"`
	QuestionnaireLevels []string     `yaml:"questionnaire_levels"`
	Questions           []string     `yaml:"questions"`
	Repeats             int          `yaml:"repeats"`
	Generation          Sampling     `yaml:"generation"`
	Questionnaire       Sampling     `yaml:"questionnaire"`
	JudgeSampling       Sampling     `yaml:"judge_sampling"`
}

// ModelEntry es un modelo del YAML.
type ModelEntry struct {
	Name     string `yaml:"name"`
	Backend  string `yaml:"backend"`
	ModelID  string `yaml:"model_id"`
	BaseURL  string `yaml:"base_url"`
	Fallback string `yaml:"fallback"`
}

// Sampling son los parametros de generacion de un tipo de llamada.
type Sampling struct {
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Stop        []string `yaml:"stop"`
}

var validBackends = map[llm.Backend]bool{
	llm.BackendOpenAI: true,
	llm.BackendGroq:   true,
	llm.BackendLocal:  true,
	llm.BackendGemini: true,
	llm.BackendMock:   true,
}

// LoadExperiment lee y valida el archivo de experimento.
func LoadExperiment(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	exp, err := ParseExperiment(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exp, nil
}

func ParseExperiment(data []byte) (*Experiment, error) {
	var exp Experiment
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("unmarshal experiment: %w", err)
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (e *Experiment) Validate() error {
	if len(e.Models) == 0 {
		return errors.New("experiment needs at least one model")
	}
	if e.Judge.Name == "" {
		return errors.New("experiment needs a judge model")
	}
	if len(e.PromptScores) == 0 && len(e.QuestionnaireLevels) == 0 {
		return errors.New("experiment runs nothing: set prompt_scores and/or questionnaire_levels")
	}

	names := make(map[string]bool, len(e.Models)+1)
	for _, m := range e.Models {
		if err := m.validate(); err != nil {
			return err
		}
		if names[m.Name] {
			return fmt.Errorf("duplicated model %s", m.Name)
		}
		names[m.Name] = true
	}
	// el juez puede ser uno de los modelos evaluados
	if !names[e.Judge.Name] {
		if err := e.Judge.validate(); err != nil {
			return fmt.Errorf("judge: %w", err)
		}
		names[e.Judge.Name] = true
	}
	for _, m := range e.Models {
		if m.Fallback != "" && !names[m.Fallback] {
			return fmt.Errorf("model %s: unknown fallback %q", m.Name, m.Fallback)
		}
	}

	for _, s := range e.PromptScores {
		if _, err := domain.LevelForPromptScore(s); err != nil {
			return err
		}
	}
	if _, err := e.levels(); err != nil {
		return err
	}
	if _, err := e.traits(); err != nil {
		return err
	}
	for i, q := range e.Questions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("question %d is empty", i)
		}
	}
	if e.Repeats < 0 {
		return fmt.Errorf("repeats must be >= 0, got %d", e.Repeats)
	}
	return nil
}

func (e *Experiment) levels() ([]domain.Level, error) {
	out := make([]domain.Level, 0, len(e.QuestionnaireLevels))
	for _, s := range e.QuestionnaireLevels {
		lvl, err := domain.ParseLevel(s)
		if err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	return out, nil
}

func (e *Experiment) traits() ([]domain.Trait, error) {
	out := make([]domain.Trait, 0, len(e.Traits))
	for _, s := range e.Traits {
		t, err := domain.ParseTrait(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ModelSpecs devuelve los modelos y el juez para construir el registry. El juez
// no se repite si tambien es un modelo evaluado.
func (e *Experiment) ModelSpecs() []llm.ModelSpec {
	specs := make([]llm.ModelSpec, 0, len(e.Models)+1)
	seen := make(map[string]bool)
	for _, m := range append(append([]ModelEntry(nil), e.Models...), e.Judge) {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		specs = append(specs, m.spec())
	}
	return specs
}

func (m ModelEntry) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("model without name")
	}
	if !validBackends[llm.Backend(strings.ToLower(m.Backend))] {
		return fmt.Errorf("model %s: unknown backend %q", m.Name, m.Backend)
	}
	return nil
}

func (m ModelEntry) spec() llm.ModelSpec {
	return llm.ModelSpec{
		Name:     m.Name,
		Backend:  llm.Backend(strings.ToLower(m.Backend)),
		ModelID:  m.ModelID,
		BaseURL:  m.BaseURL,
		Fallback: m.Fallback,
	}
}

// Plan arma la grilla a ejecutar. Validate ya garantizo que traits y niveles parsean.
func (e *Experiment) Plan() service.Plan {
	traits, _ := e.traits()
	levels, _ := e.levels()
	models := make([]string, 0, len(e.Models))
	for _, m := range e.Models {
		models = append(models, m.Name)
	}
	return service.Plan{
		RunID:               e.RunID,
		Models:              models,
		Traits:              traits,
		PromptScores:        append([]int(nil), e.PromptScores...),
		Questions:           append([]string(nil), e.Questions...),
		Repeats:             e.Repeats,
		QuestionnaireLevels: levels,
	}
}

// Apply completa un GenerateConfig con lo definido en el YAML.
func (s Sampling) Apply(base llm.GenerateConfig) llm.GenerateConfig {
	if s.Temperature != nil {
		base.Temperature = *s.Temperature
	}
	if s.MaxTokens > 0 {
		base.MaxTokens = s.MaxTokens
	}
	if len(s.Stop) > 0 {
		base.StopSequences = append([]string(nil), s.Stop...)
	}
	return base
}
