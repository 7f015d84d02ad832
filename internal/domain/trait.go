package domain

import (
	"fmt"
	"strings"
)

// Trait es uno de los cinco rasgos del modelo Big Five.
type Trait string

const (
	TraitOpenness          Trait = "Openness"
	TraitConscientiousness Trait = "Conscientiousness"
	TraitExtraversion      Trait = "Extraversion"
	TraitAgreeableness     Trait = "Agreeableness"
	TraitNeuroticism       Trait = "Neuroticism"
)

// AllTraits devuelve los rasgos en orden OCEAN. El orden es parte del contrato:
// la grilla de experimentos se recorre siempre igual.
func AllTraits() []Trait {
	return []Trait{
		TraitOpenness,
		TraitConscientiousness,
		TraitExtraversion,
		TraitAgreeableness,
		TraitNeuroticism,
	}
}

// Key devuelve la inicial del rasgo (O, C, E, A, N).
func (t Trait) Key() string {
	if t == "" {
		return ""
	}
	return string(t[0])
}

func (t Trait) Valid() bool {
	for _, v := range AllTraits() {
		if v == t {
			return true
		}
	}
	return false
}

// ParseTrait acepta el nombre completo o la inicial, sin importar mayusculas.
func ParseTrait(s string) (Trait, error) {
	s = strings.TrimSpace(s)
	for _, t := range AllTraits() {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, t.Key()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTrait, s)
}

// Level discretiza un rasgo en tres niveles ordenados.
type Level int

const (
	LevelUnknown Level = iota
	LevelLow
	LevelMedium
	LevelHigh
)

// AllLevels devuelve Low, Medium, High en orden ascendente.
func AllLevels() []Level {
	return []Level{LevelLow, LevelMedium, LevelHigh}
}

func (l Level) Valid() bool {
	return l >= LevelLow && l <= LevelHigh
}

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Index devuelve la posicion 0..2 para indexar matrices. Panics con niveles invalidos.
func (l Level) Index() int {
	if !l.Valid() {
		panic(fmt.Sprintf("domain: invalid level %d", int(l)))
	}
	return int(l) - 1
}

// PromptScore es el puntaje canonico 1-5 que representa al nivel en un prompt.
func (l Level) PromptScore() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 3
	case LevelHigh:
		return 5
	default:
		return 0
	}
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return []byte(""), nil
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*l = LevelUnknown
		return nil
	}
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel reconoce exactamente las etiquetas low/medium/high (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return LevelLow, nil
	case "medium":
		return LevelMedium, nil
	case "high":
		return LevelHigh, nil
	}
	return LevelUnknown, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// LevelForPromptScore agrupa el puntaje 1-5 del prompt: 1-2 low, 3 medium, 4-5 high.
func LevelForPromptScore(score int) (Level, error) {
	switch score {
	case 1, 2:
		return LevelLow, nil
	case 3:
		return LevelMedium, nil
	case 4, 5:
		return LevelHigh, nil
	}
	return LevelUnknown, fmt.Errorf("%w: prompt score %d outside 1..5", ErrUnknownLevel, score)
}

// LevelForJudgeScore agrupa el puntaje -2..2 del juez: negativos low, 0 medium, positivos high.
func LevelForJudgeScore(score int) (Level, error) {
	switch score {
	case -2, -1:
		return LevelLow, nil
	case 0:
		return LevelMedium, nil
	case 1, 2:
		return LevelHigh, nil
	}
	return LevelUnknown, fmt.Errorf("%w: judge score %d outside -2..2", ErrUnknownLevel, score)
}

// TraitProfile asigna un nivel a cada rasgo. Debe estar completo antes de usarse.
type TraitProfile map[Trait]Level

// NeutralProfile devuelve un perfil con todos los rasgos en Medium.
func NeutralProfile() TraitProfile {
	p := make(TraitProfile, len(AllTraits()))
	for _, t := range AllTraits() {
		p[t] = LevelMedium
	}
	return p
}

// WithLevel devuelve una copia del perfil con el rasgo fijado en level.
func (p TraitProfile) WithLevel(trait Trait, level Level) TraitProfile {
	out := make(TraitProfile, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[trait] = level
	return out
}

func (p TraitProfile) Validate() error {
	if len(p) != len(AllTraits()) {
		return fmt.Errorf("%w: %d of %d traits set", ErrIncompleteProfile, len(p), len(AllTraits()))
	}
	for _, t := range AllTraits() {
		lvl, ok := p[t]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrIncompleteProfile, t)
		}
		if !lvl.Valid() {
			return fmt.Errorf("%w: %s has no level", ErrIncompleteProfile, t)
		}
	}
	return nil
}

// String serializa el perfil de forma estable, ej. "O=high C=medium ...".
func (p TraitProfile) String() string {
	parts := make([]string, 0, len(p))
	for _, t := range AllTraits() {
		parts = append(parts, fmt.Sprintf("%s=%s", t.Key(), p[t]))
	}
	return strings.Join(parts, " ")
}
