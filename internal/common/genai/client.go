// Package genai talks to an OpenAI-compatible chat completion endpoint.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"report-workers/internal/common/config"
	commonhttp "report-workers/internal/common/http"
	"report-workers/internal/common/logger"
)

var (
	ErrLLMTimeout         = errors.New("LLM_TIMEOUT")
	ErrLLMSynthesisFailed = errors.New("LLM_SYNTHESIS_FAILED")
	// ErrLLMUnavailable is returned when no API key is configured.
	ErrLLMUnavailable = errors.New("LLM_UNAVAILABLE")
)

// Request is one chat completion. Empty Model or zero Temperature use the client defaults.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// LLM is the capability the report pipeline depends on.
type LLM interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type Client struct {
	http        *commonhttp.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	logger      logger.Logger
}

func NewClient(cfg config.LLMConfig, log logger.Logger) *Client {
	return &Client{
		http:        commonhttp.NewClient(0, cfg.MaxRetries),
		endpoint:    completionsEndpoint(cfg.BaseURL),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      log.WithFields(map[string]interface{}{"component": "genai"}),
	}
}

// WithBackoff shortens the retry backoff; used in tests.
func (c *Client) WithBackoff(d time.Duration) *Client {
	c.http.WithBaseDelay(d)
	return c
}

func completionsEndpoint(baseURL string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if endpoint == "" {
		return "https://api.openai.com/v1/chat/completions"
	}
	if strings.HasSuffix(endpoint, "/chat/completions") {
		return endpoint
	}
	if strings.HasSuffix(endpoint, "/v1") {
		return endpoint + "/chat/completions"
	}
	return endpoint + "/v1/chat/completions"
}

// Complete sends the prompt and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrLLMUnavailable
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrLLMSynthesisFailed, err)
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
		return r, nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %v", ErrLLMTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrLLMSynthesisFailed, err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrLLMSynthesisFailed, err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrLLMSynthesisFailed)
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"model":      model,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return parsed.Choices[0].Message.Content, nil
}
