package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPClient implementa Gateway contra una API de chat completions compatible con
// OpenAI. Sirve para OpenAI, Groq y servidores locales (vLLM, Ollama, llama.cpp).
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye un cliente HTTP apuntando a la API de chat completions.
func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) Model() string { return c.model }

func (c *HTTPClient) Generate(ctx context.Context, prompt Prompt, cfg GenerateConfig) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if s := strings.TrimSpace(prompt.System); s != "" {
		messages = append(messages, chatMessage{Role: "system", Content: s})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt.User})

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Stop:        cfg.StopSequences,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &GatewayError{Model: c.model, Kind: KindMalformed, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &GatewayError{Model: c.model, Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", AsGatewayError(c.model, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", AsGatewayError(c.model, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("llm error status",
			zap.String("model", c.model),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(respBody), 512)),
		)
		kind := KindStatus
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = KindRateLimit
		}
		return "", &GatewayError{Model: c.model, Kind: kind, StatusCode: resp.StatusCode, Err: fmt.Errorf("llm http error")}
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", &GatewayError{Model: c.model, Kind: KindMalformed, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if cr.Error != nil {
		return "", &GatewayError{Model: c.model, Kind: KindMalformed, Err: fmt.Errorf("llm api error: %s", cr.Error.Message)}
	}

	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", &GatewayError{Model: c.model, Kind: KindMalformed, Err: errors.New("llm empty response")}
	}

	return cr.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
