package llm

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// ResilientGateway agrega reintentos con backoff, timeout por llamada y un
// fallback opcional sobre un Gateway primario.
type ResilientGateway struct {
	primary    Gateway
	fallback   Gateway
	model      string
	maxRetries int
	baseDelay  time.Duration
	timeout    time.Duration
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

type ResilientOption func(*ResilientGateway)

func WithFallback(g Gateway) ResilientOption {
	return func(r *ResilientGateway) { r.fallback = g }
}

func WithRetries(maxRetries int, baseDelay time.Duration) ResilientOption {
	return func(r *ResilientGateway) {
		if maxRetries >= 0 {
			r.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			r.baseDelay = baseDelay
		}
	}
}

func WithCallTimeout(d time.Duration) ResilientOption {
	return func(r *ResilientGateway) { r.timeout = d }
}

func WithLogger(l *zap.Logger) ResilientOption {
	return func(r *ResilientGateway) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResilientGateway(model string, primary Gateway, opts ...ResilientOption) *ResilientGateway {
	r := &ResilientGateway{
		primary:    primary,
		model:      model,
		maxRetries: 2,
		baseDelay:  500 * time.Millisecond,
		timeout:    60 * time.Second,
		logger:     zap.NewNop(),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ResilientGateway) Generate(ctx context.Context, prompt Prompt, cfg GenerateConfig) (string, error) {
	out, err := r.executeWithRetry(ctx, r.primary, prompt, cfg)
	if err == nil {
		return out, nil
	}
	if r.fallback == nil || ctx.Err() != nil {
		return "", err
	}

	r.logger.Warn("primary gateway exhausted, using fallback",
		zap.String("model", r.model),
		zap.Error(err),
	)
	callCtx, cancel := r.scoped(ctx)
	defer cancel()
	out, ferr := r.fallback.Generate(callCtx, prompt, cfg)
	if ferr != nil {
		return "", AsGatewayError(r.model, fmt.Errorf("primary and fallback failed: %w", ferr))
	}
	return out, nil
}

func (r *ResilientGateway) executeWithRetry(ctx context.Context, g Gateway, prompt Prompt, cfg GenerateConfig) (string, error) {
	var lastErr *GatewayError
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		callCtx, cancel := r.scoped(ctx)
		out, err := g.Generate(callCtx, prompt, cfg)
		cancel()
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = AsGatewayError(r.model, err)

		if !lastErr.Retryable() || attempt == r.maxRetries {
			break
		}

		wait := r.backoff(attempt)
		r.logger.Debug("retrying gateway call",
			zap.String("model", r.model),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.String("kind", string(lastErr.Kind)),
		)
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (r *ResilientGateway) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// backoff crece exponencialmente con hasta 20% de jitter.
func (r *ResilientGateway) backoff(attempt int) time.Duration {
	base := float64(r.baseDelay) * float64(int(1)<<attempt)
	jitter := rand.Float64() * 0.2 * base
	return time.Duration(base + jitter)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
