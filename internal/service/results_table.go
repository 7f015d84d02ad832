package service

import (
	"sort"
	"sync"

	"persona-probe/internal/domain"
)

// ResultsTable es la tabla de trials crudos de una corrida. Solo admite altas
// y es segura para uso concurrente.
type ResultsTable struct {
	mu             sync.Mutex
	seq            int
	generations    []domain.GenerationTrial
	questionnaires []domain.QuestionnaireTrial
}

func NewResultsTable() *ResultsTable {
	return &ResultsTable{}
}

// AppendGeneration asigna el numero de secuencia y guarda el trial.
func (t *ResultsTable) AppendGeneration(trial domain.GenerationTrial) domain.GenerationTrial {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	trial.Seq = t.seq
	t.generations = append(t.generations, trial)
	return trial
}

func (t *ResultsTable) AppendQuestionnaire(trial domain.QuestionnaireTrial) domain.QuestionnaireTrial {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	trial.Seq = t.seq
	trial.Answers = append([]domain.ItemAnswer(nil), trial.Answers...)
	t.questionnaires = append(t.questionnaires, trial)
	return trial
}

// Generations devuelve una copia ordenada por identidad (modelo, rasgo, puntaje, pregunta, repeticion).
func (t *ResultsTable) Generations() []domain.GenerationTrial {
	t.mu.Lock()
	out := append([]domain.GenerationTrial(nil), t.generations...)
	t.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return generationLess(out[i], out[j]) })
	return out
}

// Questionnaires devuelve una copia ordenada por identidad (modelo, rasgo, nivel).
func (t *ResultsTable) Questionnaires() []domain.QuestionnaireTrial {
	t.mu.Lock()
	out := make([]domain.QuestionnaireTrial, len(t.questionnaires))
	for i, q := range t.questionnaires {
		q.Answers = append([]domain.ItemAnswer(nil), q.Answers...)
		out[i] = q
	}
	t.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return questionnaireLess(out[i], out[j]) })
	return out
}

func (t *ResultsTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.generations) + len(t.questionnaires)
}

// Failures cuenta los trials con estado failed.
func (t *ResultsTable) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, g := range t.generations {
		if g.Failed() {
			n++
		}
	}
	for _, q := range t.questionnaires {
		if q.Failed() {
			n++
		}
	}
	return n
}

func generationLess(a, b domain.GenerationTrial) bool {
	ka := domain.GroupKey{Model: a.Model, Trait: a.Trait}
	kb := domain.GroupKey{Model: b.Model, Trait: b.Trait}
	if ka != kb {
		return ka.Less(kb)
	}
	if a.PromptScore != b.PromptScore {
		return a.PromptScore < b.PromptScore
	}
	if a.QuestionIndex != b.QuestionIndex {
		return a.QuestionIndex < b.QuestionIndex
	}
	return a.Repeat < b.Repeat
}

func questionnaireLess(a, b domain.QuestionnaireTrial) bool {
	ka := domain.GroupKey{Model: a.Model, Trait: a.Trait}
	kb := domain.GroupKey{Model: b.Model, Trait: b.Trait}
	if ka != kb {
		return ka.Less(kb)
	}
	return a.Level < b.Level
}
