package domain

import (
	"math"
	"sort"
)

// GroupKey identifica un par (modelo, rasgo).
type GroupKey struct {
	Model string `json:"model"`
	Trait Trait  `json:"trait"`
}

// Less ordena por modelo y despues por el orden OCEAN del rasgo.
func (k GroupKey) Less(o GroupKey) bool {
	if k.Model != o.Model {
		return k.Model < o.Model
	}
	return traitOrder(k.Trait) < traitOrder(o.Trait)
}

func traitOrder(t Trait) int {
	for i, v := range AllTraits() {
		if v == t {
			return i
		}
	}
	return len(AllTraits())
}

// ConfusionMatrix cuenta nivel pedido (filas) contra nivel detectado (columnas).
// Guarda conteos crudos; la normalizacion es cosa de la presentacion.
type ConfusionMatrix struct {
	GroupKey
	Counts       [3][3]int `json:"counts"`
	Unclassified int       `json:"unclassified"`
	Failed       int       `json:"failed"`
}

func (m *ConfusionMatrix) Add(prompted, detected Level) {
	m.Counts[prompted.Index()][detected.Index()]++
}

func (m ConfusionMatrix) Cell(prompted, detected Level) int {
	return m.Counts[prompted.Index()][detected.Index()]
}

// Classified es la suma de todas las celdas.
func (m ConfusionMatrix) Classified() int {
	n := 0
	for i := range m.Counts {
		for j := range m.Counts[i] {
			n += m.Counts[i][j]
		}
	}
	return n
}

func (m ConfusionMatrix) Total() int {
	return m.Classified() + m.Unclassified + m.Failed
}

// Accuracy es la fraccion de trials clasificados sobre la diagonal.
func (m ConfusionMatrix) Accuracy() float64 {
	c := m.Classified()
	if c == 0 {
		return 0
	}
	hits := 0
	for i := range m.Counts {
		hits += m.Counts[i][i]
	}
	return float64(hits) / float64(c)
}

// RowNormalized devuelve la forma estocastica por filas sin tocar los conteos.
func (m ConfusionMatrix) RowNormalized() [3][3]float64 {
	var out [3][3]float64
	for i := range m.Counts {
		row := 0
		for j := range m.Counts[i] {
			row += m.Counts[i][j]
		}
		if row == 0 {
			continue
		}
		for j := range m.Counts[i] {
			out[i][j] = float64(m.Counts[i][j]) / float64(row)
		}
	}
	return out
}

// DistributionKey identifica (modelo, rasgo, nivel pedido).
type DistributionKey struct {
	Model         string `json:"model"`
	Trait         Trait  `json:"trait"`
	PromptedLevel Level  `json:"prompted_level"`
}

func (k DistributionKey) Less(o DistributionKey) bool {
	a, b := GroupKey{k.Model, k.Trait}, GroupKey{o.Model, o.Trait}
	if a != b {
		return a.Less(b)
	}
	return k.PromptedLevel < o.PromptedLevel
}

// ScoreDistribution conserva todos los puntajes crudos para poder regenerar histogramas.
type ScoreDistribution struct {
	DistributionKey
	Scores []float64 `json:"scores"`
}

// ScoreSummary son estadisticas descriptivas de una distribucion.
type ScoreSummary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

func (d ScoreDistribution) Summary() ScoreSummary {
	n := len(d.Scores)
	if n == 0 {
		return ScoreSummary{}
	}
	sorted := append([]float64(nil), d.Scores...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)
	variance := 0.0
	for _, v := range sorted {
		variance += (v - mean) * (v - mean)
	}
	stddev := 0.0
	if n > 1 {
		stddev = math.Sqrt(variance / float64(n-1))
	}
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return ScoreSummary{N: n, Mean: mean, StdDev: stddev, Min: sorted[0], Max: sorted[n-1], Median: median}
}

// HistogramBin es un intervalo [Lower, Upper) con su conteo; el ultimo bin incluye Upper.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Limites del ancho de bin: como maximo 400 bins sobre la escala [1, 5].
const (
	MinHistogramBinWidth = 0.01
	MaxHistogramBinWidth = float64(LikertMax - LikertMin)
)

// ValidBinWidth rechaza anchos fuera de rango y NaN.
func ValidBinWidth(w float64) bool {
	return w >= MinHistogramBinWidth && w <= MaxHistogramBinWidth
}

// Histogram agrupa los puntajes en bins de ancho binWidth sobre [1, 5].
// Un ancho invalido devuelve nil.
func (d ScoreDistribution) Histogram(binWidth float64) []HistogramBin {
	if !ValidBinWidth(binWidth) {
		return nil
	}
	lo, hi := float64(LikertMin), float64(LikertMax)
	nBins := int(math.Ceil((hi - lo) / binWidth))
	if nBins < 1 {
		nBins = 1
	}
	bins := make([]HistogramBin, nBins)
	for i := range bins {
		bins[i].Lower = lo + float64(i)*binWidth
		bins[i].Upper = math.Min(lo+float64(i+1)*binWidth, hi)
	}
	for _, v := range d.Scores {
		if v < lo || v > hi {
			continue
		}
		idx := int((v - lo) / binWidth)
		if idx >= nBins {
			idx = nBins - 1
		}
		bins[idx].Count++
	}
	return bins
}

// SimilarityCell es el promedio de similitud entre textos de dos niveles.
// Pairs cuenta pares ordenados (i de a, j de b, i != j) en todas las celdas:
// |a|*|b| fuera de la diagonal y n*(n-1) en ella. Un nivel con un solo texto
// reporta su auto-similitud con Pairs=1.
type SimilarityCell struct {
	Value float64 `json:"value"`
	Pairs int     `json:"pairs"`
}

// SimilarityMatrix es simetrica y con valores en [0,1].
type SimilarityMatrix struct {
	GroupKey
	Metric string               `json:"metric"`
	Cells  [3][3]SimilarityCell `json:"cells"`
	Texts  [3]int               `json:"texts"`
}

func (m SimilarityMatrix) Cell(a, b Level) SimilarityCell {
	return m.Cells[a.Index()][b.Index()]
}
