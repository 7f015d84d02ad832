package email

import (
	"context"
	"errors"
)

// Sender envia un correo de texto plano.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _, _, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

// IsDisabled indica si el sender no envia nada.
func IsDisabled(s Sender) bool {
	_, ok := s.(*disabledSender)
	return ok
}
