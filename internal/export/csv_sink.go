package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"persona-probe/internal/domain"
	"persona-probe/internal/service"
	"persona-probe/internal/taxonomy"
)

const (
	GenerationFile    = "generation_results.csv"
	QuestionnaireFile = "questionnaire_results.csv"
	LabeledFile       = "labeled_results.csv"
	ConfusionFile     = "confusion_matrices.csv"
	DistributionFile  = "score_distributions.csv"
	SimilarityFile    = "similarity_matrices.csv"
	SummaryFile       = "run_summary.json"
)

// CSVSink escribe los artefactos de una corrida en <dir>/<run_id>/.
type CSVSink struct {
	dir    string
	tax    *taxonomy.Taxonomy
	logger *zap.Logger
}

func NewCSVSink(dir string, tax *taxonomy.Taxonomy, logger *zap.Logger) *CSVSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSink{dir: dir, tax: tax, logger: logger}
}

func (s *CSVSink) Name() string { return "csv" }

// RunDir devuelve el directorio de una corrida.
func (s *CSVSink) RunDir(runID string) string {
	return filepath.Join(s.dir, runID)
}

func (s *CSVSink) Persist(ctx context.Context, report *service.Report) error {
	if report == nil || report.Summary.RunID == "" {
		return fmt.Errorf("csv sink: report without run id")
	}
	dir := s.RunDir(report.Summary.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}

	writers := []struct {
		file   string
		header []string
		rows   func(*service.Report) [][]string
	}{
		{GenerationFile, generationHeader, generationRows},
		{QuestionnaireFile, questionnaireHeader, s.questionnaireRows},
		{LabeledFile, labeledHeader, labeledRows},
		{ConfusionFile, confusionHeader, confusionRows},
		{DistributionFile, distributionHeader, distributionRows},
		{SimilarityFile, similarityHeader, similarityRows},
	}
	for _, w := range writers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeCSV(filepath.Join(dir, w.file), w.header, w.rows(report)); err != nil {
			return fmt.Errorf("csv sink: %s: %w", w.file, err)
		}
	}
	if err := writeSummary(filepath.Join(dir, SummaryFile), report); err != nil {
		return fmt.Errorf("csv sink: %s: %w", SummaryFile, err)
	}

	s.logger.Info("csv artifacts written", zap.String("run_id", report.Summary.RunID), zap.String("dir", dir))
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type summaryFile struct {
	domain.RunSummary
	Thresholds         service.Thresholds    `json:"thresholds"`
	SimilarityMetric   string                `json:"similarity_metric,omitempty"`
	ScoreDistributions []distributionSummary `json:"score_distributions,omitempty"`
	SinkErrors         map[string]string     `json:"sink_errors,omitempty"`
}

type distributionSummary struct {
	domain.DistributionKey
	domain.ScoreSummary
}

func writeSummary(path string, report *service.Report) error {
	out := summaryFile{
		RunSummary: report.Summary,
		Thresholds: report.Thresholds,
		SinkErrors: report.SinkErrors,
	}
	if len(report.Artifacts.Similarity) > 0 {
		out.SimilarityMetric = report.Artifacts.Similarity[0].Metric
	}
	for _, d := range report.Artifacts.Distributions {
		out.ScoreDistributions = append(out.ScoreDistributions, distributionSummary{DistributionKey: d.DistributionKey, ScoreSummary: d.Summary()})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

var generationHeader = []string{
	"run_id", "seq", "trial_id", "model", "trait", "prompt_score", "prompted_level",
	"question_index", "repeat", "question", "text", "status", "error", "started_at", "finished_at",
}

func generationRows(r *service.Report) [][]string {
	rows := make([][]string, 0, len(r.Generations))
	for _, g := range r.Generations {
		rows = append(rows, []string{
			g.RunID, strconv.Itoa(g.Seq), g.ID, g.Model, string(g.Trait), strconv.Itoa(g.PromptScore), g.Level.String(),
			strconv.Itoa(g.QuestionIndex), strconv.Itoa(g.Repeat), g.Question, g.Text, string(g.Status), g.Error,
			formatTime(g.StartedAt), formatTime(g.FinishedAt),
		})
	}
	return rows
}

var questionnaireHeader = []string{
	"run_id", "trial_id", "model", "target_trait", "target_level", "profile", "trial_status",
	"item_number", "item_trait", "polarity", "raw", "value", "adjusted_value", "answer_status", "error",
}

// questionnaireRows escribe una fila por item respondido.
func (s *CSVSink) questionnaireRows(r *service.Report) [][]string {
	var rows [][]string
	for _, q := range r.Questionnaires {
		for _, a := range q.Answers {
			itemTrait, polarity, adjusted := "", "", ""
			if item, ok := s.tax.Item(a.ItemNumber); ok {
				itemTrait, polarity = string(item.Trait), string(item.Polarity)
				if a.Status == domain.StatusOK {
					adjusted = strconv.Itoa(item.Adjust(a.Value))
				}
			}
			value := ""
			if a.Status == domain.StatusOK {
				value = strconv.Itoa(a.Value)
			}
			rows = append(rows, []string{
				q.RunID, q.ID, q.Model, string(q.Trait), q.Level.String(), q.Profile.String(), string(q.Status),
				strconv.Itoa(a.ItemNumber), itemTrait, polarity, a.Raw, value, adjusted, string(a.Status), a.Error,
			})
		}
	}
	return rows
}

var labeledHeader = []string{
	"mode", "trial_id", "model", "trait", "prompted_level", "prompt_score", "detected_level", "score", "status",
	"error", "judge_clues", "judge_reasoning", "judge_decision_type",
}

func labeledRows(r *service.Report) [][]string {
	rows := make([][]string, 0, len(r.Labeled))
	for _, l := range r.Labeled {
		score := ""
		if l.Score != nil {
			score = formatFloat(*l.Score)
		}
		promptScore := ""
		if l.PromptScore > 0 {
			promptScore = strconv.Itoa(l.PromptScore)
		}
		rows = append(rows, []string{
			string(l.Mode), l.TrialID, l.Model, string(l.Trait), levelCell(l.PromptedLevel), promptScore,
			levelCell(l.DetectedLevel), score, string(l.Status), l.Error,
			l.JudgeClues, l.JudgeReasoning, l.JudgeDecisionType,
		})
	}
	return rows
}

var confusionHeader = []string{
	"model", "trait", "prompted_level", "detected_level", "count", "row_share", "accuracy", "unclassified", "failed",
}

func confusionRows(r *service.Report) [][]string {
	var rows [][]string
	for _, m := range r.Artifacts.Confusion {
		norm := m.RowNormalized()
		for _, p := range domain.AllLevels() {
			for _, d := range domain.AllLevels() {
				rows = append(rows, []string{
					m.Model, string(m.Trait), p.String(), d.String(),
					strconv.Itoa(m.Cell(p, d)), formatFloat(norm[p.Index()][d.Index()]),
					formatFloat(m.Accuracy()), strconv.Itoa(m.Unclassified), strconv.Itoa(m.Failed),
				})
			}
		}
	}
	return rows
}

var distributionHeader = []string{"model", "trait", "prompted_level", "sample", "score"}

func distributionRows(r *service.Report) [][]string {
	var rows [][]string
	for _, d := range r.Artifacts.Distributions {
		for i, v := range d.Scores {
			rows = append(rows, []string{d.Model, string(d.Trait), d.PromptedLevel.String(), strconv.Itoa(i), formatFloat(v)})
		}
	}
	return rows
}

var similarityHeader = []string{"model", "trait", "metric", "level_a", "level_b", "value", "pairs", "texts_a", "texts_b"}

func similarityRows(r *service.Report) [][]string {
	var rows [][]string
	for _, m := range r.Artifacts.Similarity {
		for _, a := range domain.AllLevels() {
			for _, b := range domain.AllLevels() {
				c := m.Cell(a, b)
				rows = append(rows, []string{
					m.Model, string(m.Trait), m.Metric, a.String(), b.String(),
					formatFloat(c.Value), strconv.Itoa(c.Pairs),
					strconv.Itoa(m.Texts[a.Index()]), strconv.Itoa(m.Texts[b.Index()]),
				})
			}
		}
	}
	return rows
}

func levelCell(l domain.Level) string {
	if !l.Valid() {
		return ""
	}
	return l.String()
}

func formatFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 4, 64), "0"), ".")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
