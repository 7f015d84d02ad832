package domain

import (
	"math"
	"testing"
)

func TestConfusionMatrixCounts(t *testing.T) {
	m := ConfusionMatrix{GroupKey: GroupKey{Model: "m1", Trait: TraitExtraversion}}
	m.Add(LevelHigh, LevelLow)
	m.Add(LevelHigh, LevelHigh)
	m.Add(LevelLow, LevelLow)
	m.Unclassified = 2
	m.Failed = 1

	if m.Cell(LevelHigh, LevelLow) != 1 {
		t.Fatalf("expected (high,low)=1, got %d", m.Cell(LevelHigh, LevelLow))
	}
	if m.Classified() != 3 || m.Total() != 6 {
		t.Fatalf("classified=%d total=%d", m.Classified(), m.Total())
	}
	if math.Abs(m.Accuracy()-2.0/3.0) > 1e-9 {
		t.Fatalf("unexpected accuracy %f", m.Accuracy())
	}

	norm := m.RowNormalized()
	if norm[LevelHigh.Index()][LevelLow.Index()] != 0.5 {
		t.Fatalf("expected 0.5, got %f", norm[LevelHigh.Index()][LevelLow.Index()])
	}
	if norm[LevelMedium.Index()][LevelMedium.Index()] != 0 {
		t.Fatalf("empty rows must stay zero")
	}
	if m.Cell(LevelHigh, LevelLow) != 1 {
		t.Fatalf("normalization must not mutate raw counts")
	}
}

func TestScoreDistributionSummaryAndHistogram(t *testing.T) {
	d := ScoreDistribution{Scores: []float64{1, 2, 2.5, 5, 4.5}}
	s := d.Summary()
	if s.N != 5 || s.Min != 1 || s.Max != 5 || s.Median != 2.5 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if math.Abs(s.Mean-3.0) > 1e-9 {
		t.Fatalf("unexpected mean %f", s.Mean)
	}

	bins := d.Histogram(1)
	if len(bins) != 4 {
		t.Fatalf("expected 4 bins over [1,5], got %d", len(bins))
	}
	counts := []int{bins[0].Count, bins[1].Count, bins[2].Count, bins[3].Count}
	want := []int{1, 2, 0, 2}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("bin %d: got %d want %d (%+v)", i, counts[i], want[i], bins)
		}
	}

	fine := d.Histogram(0.5)
	total := 0
	for _, b := range fine {
		total += b.Count
	}
	if len(fine) != 8 || total != 5 {
		t.Fatalf("expected 8 bins holding 5 scores, got %d bins / %d", len(fine), total)
	}
}

func TestHistogramRejectsTinyBins(t *testing.T) {
	d := ScoreDistribution{Scores: []float64{3}}
	for _, w := range []float64{0, -1, 1e-6, 0.009, 4.5, math.NaN(), math.Inf(1)} {
		if bins := d.Histogram(w); bins != nil {
			t.Fatalf("Histogram(%v) must be nil, got %d bins", w, len(bins))
		}
	}
	if bins := d.Histogram(MinHistogramBinWidth); len(bins) == 0 || len(bins) > 401 {
		t.Fatalf("minimum width must stay bounded, got %d bins", len(bins))
	}
	if bins := d.Histogram(MaxHistogramBinWidth); len(bins) != 1 || bins[0].Count != 1 {
		t.Fatalf("maximum width must yield one bin, got %+v", bins)
	}
}

func TestGroupKeyOrdering(t *testing.T) {
	a := GroupKey{Model: "a", Trait: TraitNeuroticism}
	b := GroupKey{Model: "b", Trait: TraitOpenness}
	c := GroupKey{Model: "a", Trait: TraitOpenness}
	if !a.Less(b) || !c.Less(a) || a.Less(c) {
		t.Fatalf("unexpected ordering")
	}
}
