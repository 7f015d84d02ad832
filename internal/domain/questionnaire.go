package domain

// Polarity indica si un item del BFI-44 se puntua directo o invertido.
type Polarity string

const (
	PolarityDirect  Polarity = "direct"
	PolarityReverse Polarity = "inverted"
)

const (
	LikertMin = 1
	LikertMax = 5
)

// QuestionnaireItem es un enunciado del BFI-44 con el rasgo que mide.
type QuestionnaireItem struct {
	Number    int      `json:"number" yaml:"number"`
	Statement string   `json:"statement" yaml:"statement"`
	Trait     Trait    `json:"trait" yaml:"trait"`
	Polarity  Polarity `json:"polarity" yaml:"polarity"`
}

// Adjust aplica la polaridad: los items invertidos usan 6 - raw.
func (i QuestionnaireItem) Adjust(raw int) int {
	if i.Polarity == PolarityReverse {
		return (LikertMin + LikertMax) - raw
	}
	return raw
}

// LikertOption es una frase de respuesta permitida con su valor 1-5.
type LikertOption struct {
	Phrase string `json:"phrase" yaml:"phrase"`
	Value  int    `json:"value" yaml:"value"`
}
