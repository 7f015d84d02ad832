package taxonomy

import (
	"testing"

	"persona-probe/internal/domain"
)

func TestDefaultTaxonomyIsValid(t *testing.T) {
	tx := Default()
	if err := tx.Validate(); err != nil {
		t.Fatalf("default taxonomy invalid: %v", err)
	}
	if len(tx.Questions()) != 6 {
		t.Fatalf("expected 6 open questions, got %d", len(tx.Questions()))
	}
}

func TestBFI44ScoringKey(t *testing.T) {
	tx := Default()
	want := map[domain.Trait]struct{ items, reverse int }{
		domain.TraitOpenness:          {10, 2},
		domain.TraitConscientiousness: {9, 4},
		domain.TraitExtraversion:      {8, 3},
		domain.TraitAgreeableness:     {9, 4},
		domain.TraitNeuroticism:       {8, 3},
	}
	for trait, w := range want {
		items := tx.ItemsFor(trait)
		reverse := 0
		for _, it := range items {
			if it.Polarity == domain.PolarityReverse {
				reverse++
			}
		}
		if len(items) != w.items || reverse != w.reverse {
			t.Fatalf("%s: got %d items / %d reverse, want %d / %d", trait, len(items), reverse, w.items, w.reverse)
		}
	}

	it, ok := tx.Item(24)
	if !ok || it.Trait != domain.TraitNeuroticism || it.Polarity != domain.PolarityReverse {
		t.Fatalf("item 24 must be reverse-scored neuroticism, got %+v", it)
	}
}

func TestTaxonomyCopiesAreIsolated(t *testing.T) {
	tx := Default()
	items := tx.Items()
	items[0].Statement = "mutated"
	if got, _ := tx.Item(1); got.Statement == "mutated" {
		t.Fatalf("Items must return a copy")
	}

	custom := tx.WithQuestions([]string{"Only one?"})
	if len(custom.Questions()) != 1 || len(tx.Questions()) != 6 {
		t.Fatalf("WithQuestions must not mutate the original")
	}
}

func TestValidateDetectsBrokenInstrument(t *testing.T) {
	tx := Default()
	tx.items = tx.items[:43]
	if err := tx.Validate(); err == nil {
		t.Fatalf("expected error with 43 items")
	}

	tx = Default()
	tx.likert = tx.likert[1:]
	if err := tx.Validate(); err == nil {
		t.Fatalf("expected error with incomplete likert scale")
	}
}
