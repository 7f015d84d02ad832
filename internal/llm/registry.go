package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Backend identifica el adaptador que atiende un modelo.
type Backend string

const (
	BackendOpenAI Backend = "openai"
	BackendGroq   Backend = "groq"
	BackendLocal  Backend = "local"
	BackendGemini Backend = "gemini"
	BackendMock   Backend = "mock"
)

// ModelSpec describe un modelo del experimento.
type ModelSpec struct {
	Name     string
	Backend  Backend
	ModelID  string
	BaseURL  string
	Fallback string
}

// Credentials agrupa claves y endpoints por backend.
type Credentials struct {
	OpenAIKey     string
	OpenAIBaseURL string
	GroqKey       string
	GroqBaseURL   string
	LocalBaseURL  string
	GeminiKey     string
	MockResponse  string
}

// BuildOptions controla como se envuelve cada gateway.
type BuildOptions struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Limiter    Limiter
}

// Registry mapea nombre de modelo a Gateway.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func (r *Registry) Register(name string, g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[name] = g
}

func (r *Registry) Get(name string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("model %q not registered", name)
	}
	return g, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.gateways))
	for n := range r.gateways {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BuildRegistry crea los adaptadores de todos los modelos, con rate limit y
// reintentos. Los fallbacks se resuelven por nombre despues de crear los base.
func BuildRegistry(ctx context.Context, specs []ModelSpec, creds Credentials, opts BuildOptions, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := make(map[string]Gateway, len(specs))
	for _, s := range specs {
		g, err := newAdapter(ctx, s, creds, opts, logger)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", s.Name, err)
		}
		base[s.Name] = NewRateLimitedGateway(g, opts.Limiter, string(s.Backend)+":"+s.ModelID)
	}

	reg := NewRegistry()
	for _, s := range specs {
		ropts := []ResilientOption{
			WithRetries(opts.MaxRetries, opts.RetryDelay),
			WithCallTimeout(opts.Timeout),
			WithLogger(logger),
		}
		if s.Fallback != "" {
			fb, ok := base[s.Fallback]
			if !ok {
				return nil, fmt.Errorf("model %s: unknown fallback %q", s.Name, s.Fallback)
			}
			ropts = append(ropts, WithFallback(fb))
		}
		reg.Register(s.Name, NewResilientGateway(s.Name, base[s.Name], ropts...))
	}
	return reg, nil
}

func newAdapter(ctx context.Context, s ModelSpec, creds Credentials, opts BuildOptions, logger *zap.Logger) (Gateway, error) {
	modelID := s.ModelID
	if modelID == "" {
		modelID = s.Name
	}
	switch Backend(strings.ToLower(string(s.Backend))) {
	case BackendOpenAI:
		return NewHTTPClient(firstNonEmpty(s.BaseURL, creds.OpenAIBaseURL), creds.OpenAIKey, modelID, opts.Timeout, logger), nil
	case BackendGroq:
		return NewHTTPClient(firstNonEmpty(s.BaseURL, creds.GroqBaseURL, "https://api.groq.com/openai/v1"), creds.GroqKey, modelID, opts.Timeout, logger), nil
	case BackendLocal:
		url := firstNonEmpty(s.BaseURL, creds.LocalBaseURL)
		if url == "" {
			return nil, fmt.Errorf("local backend requires a base url")
		}
		return NewHTTPClient(url, "", modelID, opts.Timeout, logger), nil
	case BackendGemini:
		if creds.GeminiKey == "" {
			return nil, fmt.Errorf("gemini backend requires GEMINI_API_KEY")
		}
		return NewGeminiClient(ctx, creds.GeminiKey, modelID)
	case BackendMock:
		return &MockClient{Response: creds.MockResponse}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", s.Backend)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
