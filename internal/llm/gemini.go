package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient implementa Gateway usando el SDK de Google GenAI.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient crea un cliente contra la Gemini API con una API key.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// NewVertexGeminiClient crea un cliente contra Vertex AI (proyecto + region).
func NewVertexGeminiClient(ctx context.Context, projectID, location, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai vertex client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func NewGeminiClientFromClient(c *genai.Client, model string) *GeminiClient {
	return &GeminiClient{client: c, model: model}
}

func (g *GeminiClient) Model() string { return g.model }

func (g *GeminiClient) Generate(ctx context.Context, prompt Prompt, cfg GenerateConfig) (string, error) {
	gcfg := &genai.GenerateContentConfig{
		Temperature:   genai.Ptr(float32(cfg.Temperature)),
		StopSequences: cfg.StopSequences,
	}
	if cfg.MaxTokens > 0 {
		gcfg.MaxOutputTokens = int32(cfg.MaxTokens)
	}
	if s := strings.TrimSpace(prompt.System); s != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), gcfg)
	if err != nil {
		return "", g.wrap(err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", &GatewayError{Model: g.model, Kind: KindMalformed, Err: errors.New("gemini empty response")}
	}
	return text, nil
}

func (g *GeminiClient) wrap(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	default:
		return AsGatewayError(g.model, err)
	}
	kind := KindStatus
	if code == 429 {
		kind = KindRateLimit
	}
	return &GatewayError{Model: g.model, Kind: kind, StatusCode: code, Err: err}
}
