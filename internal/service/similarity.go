package service

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// SimilarityMetric compara dos textos. Debe ser simetrica y quedar en [0,1].
type SimilarityMetric interface {
	Name() string
	Similarity(a, b string) float64
}

// Tokenizer normaliza texto: minusculas, sin puntuacion, tokens de letras y digitos.
type Tokenizer struct {
	RemoveStopWords bool
}

func (t Tokenizer) Tokens(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w == "" {
			continue
		}
		if t.RemoveStopWords && englishStopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// JaccardMetric es interseccion sobre union de los conjuntos de tokens.
type JaccardMetric struct{ Tokenizer Tokenizer }

func (JaccardMetric) Name() string { return "jaccard" }

func (m JaccardMetric) Similarity(a, b string) float64 {
	sa := tokenSet(m.Tokenizer.Tokens(a))
	sb := tokenSet(m.Tokenizer.Tokens(b))
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for tok := range sa {
		if sb[tok] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// CosineMetric es el coseno entre vectores de frecuencia de terminos.
type CosineMetric struct{ Tokenizer Tokenizer }

func (CosineMetric) Name() string { return "cosine" }

func (m CosineMetric) Similarity(a, b string) float64 {
	ta := termFreq(m.Tokenizer.Tokens(a))
	tb := termFreq(m.Tokenizer.Tokens(b))
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	// con frecuencias enteras el producto y las normas son exactos, asi que
	// sim(a,b) == sim(b,a) y sim(a,a) == 1 sin error de redondeo
	dot := 0
	for tok, f := range ta {
		dot += f * tb[tok]
	}
	v := float64(dot) / math.Sqrt(float64(sqNorm(ta))*float64(sqNorm(tb)))
	return clamp01(v)
}

// NewSimilarityMetric resuelve el nombre configurado.
func NewSimilarityMetric(name string, removeStopWords bool) (SimilarityMetric, error) {
	tok := Tokenizer{RemoveStopWords: removeStopWords}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cosine":
		return CosineMetric{Tokenizer: tok}, nil
	case "jaccard":
		return JaccardMetric{Tokenizer: tok}, nil
	}
	return nil, fmt.Errorf("unknown similarity metric %q", name)
}

// LexicalVector proyecta el texto a un vector de frecuencias de dims
// dimensiones con feature hashing, normalizado L2. Un texto sin tokens da el vector cero.
func LexicalVector(tok Tokenizer, text string, dims int) []float32 {
	vec := make([]float32, dims)
	if dims <= 0 {
		return vec
	}
	for _, t := range tok.Tokens(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(t))
		vec[h.Sum32()%uint32(dims)]++
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	n := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func termFreq(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

func sqNorm(v map[string]int) int {
	s := 0
	for _, f := range v {
		s += f * f
	}
	return s
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

var englishStopWords = func() map[string]bool {
	words := strings.Fields(`a about above after again against all am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from
further had has have having he her here hers herself him himself his how i if in into is it its
itself just me more most my myself no nor not now of off on once only or other our ours ourselves
out over own same she should so some such than that the their theirs them themselves then there
these they this those through to too under until up very was we were what when where which while
who whom why will with would you your yours yourself yourselves i'm it's don't i'd i've i'll`)
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
