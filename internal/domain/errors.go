package domain

import "errors"

var (
	ErrUnknownTrait      = errors.New("unknown trait")
	ErrUnknownLevel      = errors.New("unknown level")
	ErrIncompleteProfile = errors.New("incomplete trait profile")
	ErrNoValidItems      = errors.New("no valid questionnaire items")
	ErrUnparsedAnswer    = errors.New("answer does not match any likert option")

	// ErrUnclassifiable marca una respuesta del juez que no se pudo mapear a un nivel.
	// Nunca se reemplaza por un nivel por defecto.
	ErrUnclassifiable = errors.New("unclassifiable judgment")

	// ErrRunAborted indica que se supero el umbral de fallas; los resultados parciales siguen siendo validos.
	ErrRunAborted = errors.New("run aborted: failure threshold exceeded")
)
