package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"persona-probe/internal/domain"
	"persona-probe/internal/service"
	"persona-probe/internal/taxonomy"
)

func sampleReport() *service.Report {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mean := 4.25
	judged := 2.0
	labeled := []domain.LabeledResult{
		{Mode: domain.ModeGeneration, TrialID: "g1", Model: "m", Trait: domain.TraitExtraversion, PromptedLevel: domain.LevelHigh, PromptScore: 5, DetectedLevel: domain.LevelHigh, Score: &judged, Text: "Let's party, everyone, \"now\"", Status: domain.StatusOK, JudgeReasoning: "crowds"},
		{Mode: domain.ModeGeneration, TrialID: "g2", Model: "m", Trait: domain.TraitExtraversion, PromptedLevel: domain.LevelLow, PromptScore: 1, Text: "home", Status: domain.StatusUnclassifiable},
		{Mode: domain.ModeQuestionnaire, TrialID: "q1", Model: "m", Trait: domain.TraitNeuroticism, PromptedLevel: domain.LevelHigh, DetectedLevel: domain.LevelHigh, Score: &mean, Status: domain.StatusOK},
	}
	return &service.Report{
		Summary: domain.RunSummary{RunID: "run-42", Status: domain.RunCompleted, TotalTrials: 3, GenerationTrials: 2, QuestionnaireTrials: 1, StartedAt: started},
		Generations: []domain.GenerationTrial{
			{ID: "g1", RunID: "run-42", Seq: 1, Model: "m", Trait: domain.TraitExtraversion, PromptScore: 5, Level: domain.LevelHigh, Question: "q", Text: "Let's party, everyone, \"now\"", Status: domain.StatusOK, StartedAt: started, FinishedAt: started.Add(time.Second)},
			{ID: "g2", RunID: "run-42", Seq: 2, Model: "m", Trait: domain.TraitExtraversion, PromptScore: 1, Level: domain.LevelLow, Question: "q", Text: "home", Status: domain.StatusOK},
		},
		Questionnaires: []domain.QuestionnaireTrial{{
			ID: "q1", RunID: "run-42", Model: "m", Trait: domain.TraitNeuroticism, Level: domain.LevelHigh,
			Profile: domain.NeutralProfile().WithLevel(domain.TraitNeuroticism, domain.LevelHigh), Status: domain.StatusOK,
			Answers: []domain.ItemAnswer{
				{ItemNumber: 9, Raw: "agree strongly with the statement", Value: 5, Status: domain.StatusOK},
				{ItemNumber: 4, Raw: "???", Status: domain.StatusUnparsed, Error: "no match"},
			},
		}},
		Labeled:    labeled,
		Artifacts:  service.NewAnalysisService(service.JaccardMetric{}).Analyze(labeled),
		Thresholds: service.DefaultThresholds(),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestCSVSinkWritesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir, taxonomy.Default(), zap.NewNop())
	if err := sink.Persist(context.Background(), sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runDir := filepath.Join(dir, "run-42")

	gens := readCSV(t, filepath.Join(runDir, GenerationFile))
	if len(gens) != 3 || gens[0][0] != "run_id" || gens[1][10] != "Let's party, everyone, \"now\"" || gens[1][13] != "2026-03-01T10:00:00Z" {
		t.Fatalf("unexpected generation rows %v", gens)
	}

	qs := readCSV(t, filepath.Join(runDir, QuestionnaireFile))
	if len(qs) != 3 {
		t.Fatalf("expected one row per answer, got %d", len(qs)-1)
	}
	// item 9 es Neuroticism invertido: 5 -> 1
	if qs[1][7] != "9" || qs[1][8] != "Neuroticism" || qs[1][9] != string(domain.PolarityReverse) || qs[1][11] != "5" || qs[1][12] != "1" {
		t.Fatalf("unexpected answer row %v", qs[1])
	}
	if qs[2][11] != "" || qs[2][13] != "unparsed" {
		t.Fatalf("unparsed answer must have no value: %v", qs[2])
	}

	labeled := readCSV(t, filepath.Join(runDir, LabeledFile))
	if len(labeled) != 4 || labeled[2][6] != "" || labeled[2][8] != "unclassifiable" || labeled[3][7] != "4.25" {
		t.Fatalf("unexpected labeled rows %v", labeled)
	}

	confusion := readCSV(t, filepath.Join(runDir, ConfusionFile))
	if len(confusion) != 1+2*9 {
		t.Fatalf("expected 9 cells per matrix, got %d rows", len(confusion)-1)
	}

	dists := readCSV(t, filepath.Join(runDir, DistributionFile))
	if len(dists) != 2 || dists[1][4] != "4.25" {
		t.Fatalf("unexpected distribution rows %v", dists)
	}

	sims := readCSV(t, filepath.Join(runDir, SimilarityFile))
	if len(sims) != 1+9 || sims[1][2] != "jaccard" {
		t.Fatalf("unexpected similarity rows %v", sims)
	}

	data, err := os.ReadFile(filepath.Join(runDir, SummaryFile))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var summary map[string]any
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("summary is not json: %v", err)
	}
	if summary["run_id"] != "run-42" || summary["status"] != "completed" || summary["similarity_metric"] != "jaccard" {
		t.Fatalf("unexpected summary %v", summary)
	}
}

func TestCSVSinkRejectsReportWithoutRunID(t *testing.T) {
	sink := NewCSVSink(t.TempDir(), taxonomy.Default(), nil)
	if err := sink.Persist(context.Background(), &service.Report{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{0: "0", 1: "1", 0.5: "0.5", 3.66666: "3.6667", 10: "10"}
	for in, want := range cases {
		if got := formatFloat(in); got != want {
			t.Fatalf("formatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}
