package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Gateway es la unica capacidad que el pipeline necesita de un modelo:
// mandar un prompt y recibir texto. Cada backend tiene su adaptador.
type Gateway interface {
	Generate(ctx context.Context, prompt Prompt, cfg GenerateConfig) (string, error)
}

// Prompt separa instrucciones de sistema y mensaje de usuario. Los backends
// sin rol de sistema concatenan ambos.
type Prompt struct {
	System string
	User   string
}

// Flatten une system y user en un solo texto.
func (p Prompt) Flatten() string {
	sys := strings.TrimSpace(p.System)
	usr := strings.TrimSpace(p.User)
	switch {
	case sys == "":
		return usr
	case usr == "":
		return sys
	}
	return sys + "\n\n" + usr
}

// GenerateConfig son los parametros de muestreo de una llamada.
type GenerateConfig struct {
	MaxTokens     int
	Temperature   float64
	StopSequences []string
}

// ErrorKind clasifica una falla del gateway. El pipeline las trata igual; el
// tipo sirve para decidir reintentos y para los logs.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindRateLimit ErrorKind = "rate_limit"
	KindMalformed ErrorKind = "malformed"
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
)

// GatewayError envuelve cualquier falla de un backend de modelo.
type GatewayError struct {
	Model      string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: %s (status=%d): %v", e.Model, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s: %v", e.Model, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Retryable indica si vale la pena reintentar: rate limits, timeouts y 5xx.
func (e *GatewayError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindTimeout:
		return true
	case KindStatus:
		return e.StatusCode >= 500
	case KindTransport:
		return true
	}
	return false
}

// AsGatewayError normaliza cualquier error en un *GatewayError para el modelo dado.
func AsGatewayError(model string, err error) *GatewayError {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	kind := KindTransport
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &GatewayError{Model: model, Kind: kind, Err: err}
}

// IsGatewayError reporta si err proviene de un gateway.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
