package repository

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	pgvector "github.com/pgvector/pgvector-go"

	"persona-probe/internal/domain"
	"persona-probe/internal/service"
)

type fakeRows struct {
	data [][]interface{}
	pos  int
	err  error
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.data)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, v := range row {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     {}

func TestScanRuns(t *testing.T) {
	now := time.Now().UTC()
	rows := &fakeRows{data: [][]interface{}{
		{"run-1", "degraded", now, now.Add(time.Minute), 10, 6, 1, 2, 8, 2, []byte(`["failure ratio exceeded 0.50"]`)},
	}}
	runs, err := scanRuns(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != domain.RunDegraded || runs[0].Failures != 6 || len(runs[0].Warnings) != 1 {
		t.Fatalf("unexpected runs %+v", runs)
	}

	if _, err := scanRuns(&fakeRows{err: errors.New("conn reset")}); err == nil {
		t.Fatalf("rows error must be returned")
	}
}

func TestScanConfusionRebuildsMatrices(t *testing.T) {
	rows := &fakeRows{data: [][]interface{}{
		{"m", "Neuroticism", "high", "low", 2, 1, 0},
		{"m", "Openness", "low", "low", 3, 0, 1},
		{"m", "Neuroticism", "high", "high", 5, 1, 0},
	}}
	mats, err := scanConfusion(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mats) != 2 || mats[0].Trait != domain.TraitOpenness {
		t.Fatalf("matrices must be sorted in OCEAN order: %+v", mats)
	}
	n := mats[1]
	if n.Cell(domain.LevelHigh, domain.LevelLow) != 2 || n.Cell(domain.LevelHigh, domain.LevelHigh) != 5 || n.Unclassified != 1 {
		t.Fatalf("unexpected neuroticism matrix %+v", n)
	}

	if _, err := scanConfusion(&fakeRows{data: [][]interface{}{{"m", "Openness", "extreme", "low", 1, 0, 0}}}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestScanDistributionsKeepsSampleOrder(t *testing.T) {
	rows := &fakeRows{data: [][]interface{}{
		{"m", "Openness", "high", 4.5},
		{"m", "Openness", "high", 3.0},
		{"m", "Openness", "low", 1.5},
	}}
	dists, err := scanDistributions(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dists) != 2 || dists[0].PromptedLevel != domain.LevelLow || !reflect.DeepEqual(dists[1].Scores, []float64{4.5, 3.0}) {
		t.Fatalf("unexpected distributions %+v", dists)
	}
}

func TestScanSimilarity(t *testing.T) {
	rows := &fakeRows{data: [][]interface{}{
		{"m", "Openness", "cosine", "low", "high", 0.25, 4, 2, 2},
		{"m", "Openness", "cosine", "high", "low", 0.25, 4, 2, 2},
		{"m", "Openness", "cosine", "low", "low", 0.8, 2, 2, 2},
	}}
	mats, err := scanSimilarity(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := mats[0]
	if m.Metric != "cosine" || m.Cell(domain.LevelLow, domain.LevelHigh) != m.Cell(domain.LevelHigh, domain.LevelLow) || m.Texts[0] != 2 {
		t.Fatalf("unexpected matrix %+v", m)
	}
}

func TestScanNeighbors(t *testing.T) {
	rows := &fakeRows{data: [][]interface{}{{"g2", "m", "Openness", 5, "high", "text", 0.12}}}
	got, err := scanNeighbors(rows)
	if err != nil || len(got) != 1 || got[0].PromptedLevel != domain.LevelHigh || got[0].Distance != 0.12 {
		t.Fatalf("unexpected neighbors %+v %v", got, err)
	}
	empty, _ := scanNeighbors(&fakeRows{})
	if empty == nil {
		t.Fatalf("empty result must be a non-nil slice")
	}
}

func TestPostgresSinkBatch(t *testing.T) {
	mean := 3.5
	labeled := []domain.LabeledResult{
		{Mode: domain.ModeGeneration, TrialID: "g1", Model: "m", Trait: domain.TraitOpenness, PromptedLevel: domain.LevelHigh, DetectedLevel: domain.LevelHigh, Text: "new ideas", Status: domain.StatusOK},
		{Mode: domain.ModeQuestionnaire, TrialID: "q1", Model: "m", Trait: domain.TraitOpenness, PromptedLevel: domain.LevelLow, DetectedLevel: domain.LevelMedium, Score: &mean, Status: domain.StatusOK},
	}
	report := &service.Report{
		Summary: domain.RunSummary{RunID: "run-1", Status: domain.RunCompleted},
		Generations: []domain.GenerationTrial{
			{ID: "g1", Model: "m", Trait: domain.TraitOpenness, PromptScore: 5, Level: domain.LevelHigh, Text: "new ideas", Status: domain.StatusOK},
			{ID: "g2", Model: "m", Trait: domain.TraitOpenness, PromptScore: 1, Level: domain.LevelLow, Status: domain.StatusFailed, Error: "timeout"},
		},
		Questionnaires: []domain.QuestionnaireTrial{{
			ID: "q1", Model: "m", Trait: domain.TraitOpenness, Level: domain.LevelLow, Status: domain.StatusOK,
			Profile: domain.NeutralProfile().WithLevel(domain.TraitOpenness, domain.LevelLow),
			Answers: []domain.ItemAnswer{{ItemNumber: 5, Value: 2, Status: domain.StatusOK}, {ItemNumber: 10, Status: domain.StatusUnparsed}},
		}},
		Labeled:   labeled,
		Artifacts: service.NewAnalysisService(service.CosineMetric{}).Analyze(labeled),
	}

	sink := NewPostgresSink(nil, service.Tokenizer{}, 16, nil)
	b, err := sink.buildBatch(report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// delete + run + 2 generaciones + 2 respuestas + 2 etiquetas + 9 celdas de confusion
	// + 1 muestra + 9 celdas de similitud
	if b.Len() != 1+1+2+2+2+9+1+9 {
		t.Fatalf("unexpected statement count %d", b.Len())
	}
	if !strings.HasPrefix(strings.TrimSpace(b.QueuedQueries[0].SQL), "DELETE FROM runs") {
		t.Fatalf("first statement must clear the run")
	}

	okVec, ok := b.QueuedQueries[2].Arguments[13].(pgvector.Vector)
	if !ok || len(okVec.Slice()) != 16 {
		t.Fatalf("ok generation must carry a lexical vector, got %T", b.QueuedQueries[2].Arguments[13])
	}
	if b.QueuedQueries[3].Arguments[13] != nil {
		t.Fatalf("failed generation must store a NULL vector")
	}
	if b.QueuedQueries[5].Arguments[9] != nil {
		t.Fatalf("unparsed answer must store a NULL value")
	}
}
