package service

import (
	"sort"

	"persona-probe/internal/domain"
)

// AnalysisService construye los artefactos derivados. Todas sus operaciones son
// funciones puras de la tabla etiquetada: mismas entradas, mismas salidas.
type AnalysisService struct {
	metric SimilarityMetric
}

func NewAnalysisService(metric SimilarityMetric) *AnalysisService {
	if metric == nil {
		metric = CosineMetric{}
	}
	return &AnalysisService{metric: metric}
}

func (s *AnalysisService) Metric() SimilarityMetric { return s.metric }

// Artifacts agrupa todo lo que produce el analisis de una corrida.
type Artifacts struct {
	Confusion     []domain.ConfusionMatrix   `json:"confusion"`
	Distributions []domain.ScoreDistribution `json:"distributions"`
	Similarity    []domain.SimilarityMatrix  `json:"similarity"`
}

func (s *AnalysisService) Analyze(results []domain.LabeledResult) Artifacts {
	return Artifacts{
		Confusion:     ConfusionMatrices(results),
		Distributions: ScoreDistributions(results),
		Similarity:    SimilarityMatrices(results, s.metric),
	}
}

// ConfusionMatrices agrupa los resultados del modo generativo por (modelo, rasgo).
// Los resultados ok suman en [pedido][detectado]; los no clasificables y los
// fallidos se cuentan aparte. El cuestionario se resume en ScoreDistributions.
func ConfusionMatrices(results []domain.LabeledResult) []domain.ConfusionMatrix {
	byKey := make(map[domain.GroupKey]*domain.ConfusionMatrix)
	for _, r := range results {
		if r.Mode != domain.ModeGeneration {
			continue
		}
		key := domain.GroupKey{Model: r.Model, Trait: r.Trait}
		m, ok := byKey[key]
		if !ok {
			m = &domain.ConfusionMatrix{GroupKey: key}
			byKey[key] = m
		}
		switch {
		case r.Status == domain.StatusFailed:
			m.Failed++
		case r.Classified():
			m.Add(r.PromptedLevel, r.DetectedLevel)
		default:
			m.Unclassified++
		}
	}

	out := make([]domain.ConfusionMatrix, 0, len(byKey))
	for _, m := range byKey {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupKey.Less(out[j].GroupKey) })
	return out
}

// ScoreDistributions agrupa los puntajes del cuestionario por (modelo, rasgo, nivel pedido),
// conservando todos los valores en el orden de la tabla.
func ScoreDistributions(results []domain.LabeledResult) []domain.ScoreDistribution {
	byKey := make(map[domain.DistributionKey]*domain.ScoreDistribution)
	for _, r := range results {
		if r.Mode != domain.ModeQuestionnaire || r.Status != domain.StatusOK || r.Score == nil || !r.PromptedLevel.Valid() {
			continue
		}
		key := domain.DistributionKey{Model: r.Model, Trait: r.Trait, PromptedLevel: r.PromptedLevel}
		d, ok := byKey[key]
		if !ok {
			d = &domain.ScoreDistribution{DistributionKey: key}
			byKey[key] = d
		}
		d.Scores = append(d.Scores, *r.Score)
	}

	out := make([]domain.ScoreDistribution, 0, len(byKey))
	for _, d := range byKey {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistributionKey.Less(out[j].DistributionKey) })
	return out
}

// SimilarityMatrices compara los textos generados entre niveles para cada
// (modelo, rasgo). Cada celda promedia todos los pares (i de a, j de b, i != j);
// una celda diagonal con un solo texto vale 1.
func SimilarityMatrices(results []domain.LabeledResult, metric SimilarityMetric) []domain.SimilarityMatrix {
	type bucket [3][]string
	byKey := make(map[domain.GroupKey]*bucket)
	for _, r := range results {
		if r.Mode != domain.ModeGeneration || r.Status == domain.StatusFailed || r.Text == "" || !r.PromptedLevel.Valid() {
			continue
		}
		key := domain.GroupKey{Model: r.Model, Trait: r.Trait}
		b, ok := byKey[key]
		if !ok {
			b = &bucket{}
			byKey[key] = b
		}
		idx := r.PromptedLevel.Index()
		b[idx] = append(b[idx], r.Text)
	}

	out := make([]domain.SimilarityMatrix, 0, len(byKey))
	for key, b := range byKey {
		m := domain.SimilarityMatrix{GroupKey: key, Metric: metric.Name()}
		for i := 0; i < 3; i++ {
			m.Texts[i] = len(b[i])
		}
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				cell := similarityCell(b[i], b[j], i == j, metric)
				m.Cells[i][j] = cell
				m.Cells[j][i] = cell
			}
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupKey.Less(out[j].GroupKey) })
	return out
}

func similarityCell(a, b []string, same bool, metric SimilarityMetric) domain.SimilarityCell {
	if same {
		switch len(a) {
		case 0:
			return domain.SimilarityCell{}
		case 1:
			return domain.SimilarityCell{Value: 1, Pairs: 1}
		}
		sum, pairs := 0.0, 0
		for i := 0; i < len(a); i++ {
			for j := i + 1; j < len(a); j++ {
				sum += metric.Similarity(a[i], a[j])
				pairs++
			}
		}
		// pares ordenados: (i,j) y (j,i) tienen la misma similitud
		return domain.SimilarityCell{Value: sum / float64(pairs), Pairs: pairs * 2}
	}

	if len(a) == 0 || len(b) == 0 {
		return domain.SimilarityCell{}
	}
	sum, pairs := 0.0, 0
	for _, x := range a {
		for _, y := range b {
			sum += metric.Similarity(x, y)
			pairs++
		}
	}
	return domain.SimilarityCell{Value: sum / float64(pairs), Pairs: pairs}
}
