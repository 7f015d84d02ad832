package service

import (
	"fmt"

	"persona-probe/internal/domain"
	"persona-probe/internal/taxonomy"
)

// Thresholds corta el promedio 1-5 en tres niveles: <= LowMax es bajo,
// <= MediumMax es medio, el resto alto.
type Thresholds struct {
	LowMax    float64 `json:"low_max" yaml:"low_max"`
	MediumMax float64 `json:"medium_max" yaml:"medium_max"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{LowMax: 2.33, MediumMax: 3.67}
}

func (t Thresholds) Validate() error {
	if t.LowMax < domain.LikertMin || t.MediumMax > domain.LikertMax || t.LowMax >= t.MediumMax {
		return fmt.Errorf("invalid thresholds: low_max=%.2f medium_max=%.2f", t.LowMax, t.MediumMax)
	}
	return nil
}

func (t Thresholds) Classify(mean float64) domain.Level {
	switch {
	case mean <= t.LowMax:
		return domain.LevelLow
	case mean <= t.MediumMax:
		return domain.LevelMedium
	}
	return domain.LevelHigh
}

// QuestionnaireScorer puntua un cuestionario de forma determinista.
type QuestionnaireScorer struct {
	tax        *taxonomy.Taxonomy
	thresholds Thresholds
}

func NewQuestionnaireScorer(tax *taxonomy.Taxonomy, thresholds Thresholds) *QuestionnaireScorer {
	return &QuestionnaireScorer{tax: tax, thresholds: thresholds}
}

// ScoreTrait promedia los valores corregidos por polaridad de los items validos del rasgo.
func (s *QuestionnaireScorer) ScoreTrait(trial domain.QuestionnaireTrial, trait domain.Trait) (float64, int, error) {
	sum, n := 0, 0
	for _, a := range trial.Answers {
		if a.Status != domain.StatusOK || a.Value < domain.LikertMin || a.Value > domain.LikertMax {
			continue
		}
		item, ok := s.tax.Item(a.ItemNumber)
		if !ok || item.Trait != trait {
			continue
		}
		sum += item.Adjust(a.Value)
		n++
	}
	if n == 0 {
		return 0, 0, fmt.Errorf("%s: %w", trait, domain.ErrNoValidItems)
	}
	return float64(sum) / float64(n), n, nil
}

// Classify puntua el rasgo y lo lleva a un nivel.
func (s *QuestionnaireScorer) Classify(trial domain.QuestionnaireTrial, trait domain.Trait) (domain.Level, float64, error) {
	mean, _, err := s.ScoreTrait(trial, trait)
	if err != nil {
		return domain.LevelUnknown, 0, err
	}
	return s.thresholds.Classify(mean), mean, nil
}

func (s *QuestionnaireScorer) Thresholds() Thresholds { return s.thresholds }
