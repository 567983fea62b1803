// Package ai wraps the Gemini API behind retry, circuit-breaker, and
// concurrency controls so the rest of Umbra can treat model calls as a
// plain function that sometimes fails.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Request describes a single generation call.
type Request struct {
	// System is the system instruction; optional.
	System string
	// Prompt is the user-turn content.
	Prompt string
	// Temperature in [0,2]. Zero value means deterministic, which is what
	// most Umbra prompts want.
	Temperature float32
	// MaxTokens caps the response length. 0 uses the model default.
	MaxTokens int32
	// Operation names the call for logging ("analyst", "surgeon", ...).
	Operation string
}

// Generator is the interface consumed by the pipeline, tracker, docs and
// chat layers. Tests substitute a fake.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Client is a Gemini-backed Generator with resilience controls.
type Client struct {
	genai          *genai.Client
	model          string
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
	limiter        *rate.Limiter
}

// Config holds client configuration.
type Config struct {
	// APIKey for the Gemini API. Required.
	APIKey string
	// Model name, e.g. "gemini-flash-latest".
	Model string
	// Retry configuration; zero value uses defaults.
	Retry RetryConfig
	// CallsPerMinute rate-limits outgoing requests. 0 disables limiting.
	CallsPerMinute int
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY not set")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	var cb *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		cb = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	var sem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	var limiter *rate.Limiter
	if cfg.CallsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.CallsPerMinute)), cfg.CallsPerMinute)
	}

	return &Client{
		genai:          gc,
		model:          cfg.Model,
		retry:          retry,
		circuitBreaker: cb,
		concurrencySem: sem,
		limiter:        limiter,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate performs a model call with retry, breaker, semaphore and rate
// limiting applied. Returns the concatenated text of the response.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()

	genCfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = req.MaxTokens
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	var resp *genai.GenerateContentResponse
	err := c.retryWithBackoff(ctx, req.Operation, func(attemptCtx context.Context) error {
		if c.limiter != nil {
			if waitErr := c.limiter.Wait(attemptCtx); waitErr != nil {
				return waitErr
			}
		}
		r, apiErr := c.genai.Models.GenerateContent(attemptCtx, c.model, genai.Text(req.Prompt), genCfg)
		if apiErr != nil {
			return apiErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini %s call failed: %w", req.Operation, err)
	}

	text := resp.Text()
	if usage := resp.UsageMetadata; usage != nil {
		slog.Debug("gemini call",
			"operation", req.Operation,
			"model", c.model,
			"input_tokens", usage.PromptTokenCount,
			"output_tokens", usage.CandidatesTokenCount,
			"duration", time.Since(start))
	}
	return text, nil
}
