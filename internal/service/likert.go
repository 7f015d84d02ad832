package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"persona-probe/internal/domain"
)

// LikertParser mapea el texto libre del modelo a un valor 1-5.
type LikertParser struct {
	options []domain.LikertOption
}

var bareDigit = regexp.MustCompile(`^\W*([1-5])\W*$`)

// NewLikertParser ordena las frases de mayor a menor longitud para que
// "disagree strongly" nunca matchee como "agree strongly".
func NewLikertParser(options []domain.LikertOption) *LikertParser {
	sorted := append([]domain.LikertOption(nil), options...)
	for i := range sorted {
		sorted[i].Phrase = strings.ToLower(strings.TrimSpace(sorted[i].Phrase))
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Phrase) > len(sorted[j].Phrase)
	})
	return &LikertParser{options: sorted}
}

// Parse devuelve el valor Likert o ErrUnparsedAnswer. Nunca usa un valor por defecto.
func (p *LikertParser) Parse(raw string) (int, error) {
	text := strings.ToLower(strings.TrimSpace(stripReplyFences(raw)))
	if text == "" {
		return 0, fmt.Errorf("%w: empty answer", domain.ErrUnparsedAnswer)
	}
	text = strings.Join(strings.Fields(text), " ")

	for _, o := range p.options {
		if o.Phrase != "" && strings.Contains(text, o.Phrase) {
			return o.Value, nil
		}
	}
	// Formas cortas ("agree strongly") conservando el orden por longitud.
	for _, o := range p.options {
		short := strings.TrimSpace(strings.TrimSuffix(o.Phrase, "with the statement"))
		if short != "" && short != o.Phrase && strings.Contains(text, short) {
			return o.Value, nil
		}
	}

	if m := bareDigit.FindStringSubmatch(text); len(m) == 2 {
		v, _ := strconv.Atoi(m[1])
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrUnparsedAnswer, truncateText(raw, 80))
}
