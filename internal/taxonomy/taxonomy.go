// Package taxonomy contiene las definiciones estaticas del Big Five: anclas por
// nivel, los 44 items del BFI-44, la escala Likert y las preguntas abiertas.
// Se carga una vez al inicio y no se modifica durante la corrida.
package taxonomy

import (
	"fmt"
	"sort"

	"persona-probe/internal/domain"
)

// TraitDefinition agrupa los textos que describen un rasgo.
type TraitDefinition struct {
	Trait      domain.Trait
	Definition string
	// Generation son las anclas que se usan al pedir un texto con un puntaje dado.
	Generation Anchors
	// Classification son las anclas que recibe el juez.
	Classification Anchors
}

// Anchors describe a una persona con puntaje bajo, medio y alto.
type Anchors struct {
	Low    string
	Medium string
	High   string
}

func (a Anchors) For(level domain.Level) string {
	switch level {
	case domain.LevelLow:
		return a.Low
	case domain.LevelMedium:
		return a.Medium
	case domain.LevelHigh:
		return a.High
	}
	return ""
}

// Taxonomy es el conjunto inmutable de constantes del instrumento.
type Taxonomy struct {
	traits    map[domain.Trait]TraitDefinition
	items     []domain.QuestionnaireItem
	likert    []domain.LikertOption
	questions []string
}

// Default construye la taxonomia estandar (BFI-44, 6 preguntas abiertas).
func Default() *Taxonomy {
	t := &Taxonomy{
		traits:    make(map[domain.Trait]TraitDefinition, len(traitDefinitions)),
		items:     append([]domain.QuestionnaireItem(nil), bfi44Items...),
		likert:    append([]domain.LikertOption(nil), likertOptions...),
		questions: append([]string(nil), openQuestions...),
	}
	for _, d := range traitDefinitions {
		t.traits[d.Trait] = d
	}
	return t
}

// WithQuestions devuelve una copia con otras preguntas abiertas.
func (t *Taxonomy) WithQuestions(questions []string) *Taxonomy {
	cp := *t
	cp.questions = append([]string(nil), questions...)
	return &cp
}

func (t *Taxonomy) Trait(trait domain.Trait) (TraitDefinition, bool) {
	d, ok := t.traits[trait]
	return d, ok
}

// Items devuelve todos los items ordenados por numero.
func (t *Taxonomy) Items() []domain.QuestionnaireItem {
	return append([]domain.QuestionnaireItem(nil), t.items...)
}

// ItemsFor devuelve los items que miden el rasgo dado.
func (t *Taxonomy) ItemsFor(trait domain.Trait) []domain.QuestionnaireItem {
	var out []domain.QuestionnaireItem
	for _, it := range t.items {
		if it.Trait == trait {
			out = append(out, it)
		}
	}
	return out
}

// Item busca un item por su numero.
func (t *Taxonomy) Item(number int) (domain.QuestionnaireItem, bool) {
	for _, it := range t.items {
		if it.Number == number {
			return it, true
		}
	}
	return domain.QuestionnaireItem{}, false
}

func (t *Taxonomy) LikertOptions() []domain.LikertOption {
	return append([]domain.LikertOption(nil), t.likert...)
}

func (t *Taxonomy) Questions() []string {
	return append([]string(nil), t.questions...)
}

// Validate verifica que el instrumento este completo: 44 items unicos, anclas para
// cada rasgo y una escala 1-5 sin huecos.
func (t *Taxonomy) Validate() error {
	for _, trait := range domain.AllTraits() {
		d, ok := t.traits[trait]
		if !ok {
			return fmt.Errorf("taxonomy: missing definition for %s", trait)
		}
		for _, lvl := range domain.AllLevels() {
			if d.Generation.For(lvl) == "" || d.Classification.For(lvl) == "" {
				return fmt.Errorf("taxonomy: missing %s anchor for %s", lvl, trait)
			}
		}
		if len(t.ItemsFor(trait)) == 0 {
			return fmt.Errorf("taxonomy: no items for %s", trait)
		}
	}

	if len(t.items) != 44 {
		return fmt.Errorf("taxonomy: expected 44 items, got %d", len(t.items))
	}
	seen := make(map[int]bool, len(t.items))
	for _, it := range t.items {
		if it.Number < 1 || it.Number > 44 || seen[it.Number] {
			return fmt.Errorf("taxonomy: invalid or duplicated item number %d", it.Number)
		}
		if it.Polarity != domain.PolarityDirect && it.Polarity != domain.PolarityReverse {
			return fmt.Errorf("taxonomy: item %d has polarity %q", it.Number, it.Polarity)
		}
		seen[it.Number] = true
	}

	values := make([]int, 0, len(t.likert))
	for _, o := range t.likert {
		values = append(values, o.Value)
	}
	sort.Ints(values)
	if len(values) != domain.LikertMax-domain.LikertMin+1 {
		return fmt.Errorf("taxonomy: expected %d likert options, got %d", domain.LikertMax-domain.LikertMin+1, len(values))
	}
	for i, v := range values {
		if v != domain.LikertMin+i {
			return fmt.Errorf("taxonomy: likert values must cover %d..%d", domain.LikertMin, domain.LikertMax)
		}
	}

	if len(t.questions) == 0 {
		return fmt.Errorf("taxonomy: no open questions")
	}
	return nil
}
