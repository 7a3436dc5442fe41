package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/casainvest/renoplan/internal/domain"
	"github.com/casainvest/renoplan/internal/domain/blueprint"
	"github.com/casainvest/renoplan/internal/domain/location"
	"github.com/casainvest/renoplan/internal/metrics"
)

// Engine is a renovation analysis provider using the OpenAI-compatible
// chat completion API (e.g. Nebius).
type Engine struct {
	client       *openai.Client
	model        string
	temperature  float32
	maxRetries   int
	retryBackoff time.Duration
	provider     string
	logger       *zap.Logger
}

// Config holds the analysis engine settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	MaxRetries   int           // additional attempts after the first
	RetryBackoff time.Duration // base delay, doubled per retry
	Provider     string
	Logger       *zap.Logger
}

// NewEngine creates an OpenAI-compatible analysis engine.
func NewEngine(cfg *Config) *Engine {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	defaults := domain.DefaultAnalysisConfig()
	model := cfg.Model
	if model == "" {
		model = defaults.Model
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaults.Temperature
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaults.RetryBackoff
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        model,
		temperature:  temperature,
		maxRetries:   maxRetries,
		retryBackoff: backoff,
		provider:     provider,
		logger:       logger,
	}
}

// Analyze produces one investment blueprint for one candidate property,
// with transport-level metrics and token usage recorded into the request's
// usage collector.
func (e *Engine) Analyze(ctx context.Context, brief string, loc location.Location) (blueprint.Blueprint, error) {
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(brief, &loc)},
		},
		Temperature: e.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()

	resp, err := e.completeWithRetry(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EngineRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		return blueprint.Blueprint{}, err
	}

	if len(resp.Choices) == 0 {
		metrics.EngineRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		return blueprint.Blueprint{}, fmt.Errorf("empty completion response: %w", domain.ErrEngineError)
	}

	metrics.EngineRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EngineRequestDuration.WithLabelValues(e.provider, e.model).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	if totalTokens > 0 {
		metrics.EngineTokensTotal.WithLabelValues(e.provider, e.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EngineTokensTotal.WithLabelValues(e.provider, e.model, "completion").Add(float64(resp.Usage.CompletionTokens))
		metrics.EngineTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(totalTokens))
	}
	domain.UsageFromContext(ctx).AddTokens(totalTokens)

	bp, err := blueprint.New(loc.Name(), []byte(resp.Choices[0].Message.Content))
	if err != nil {
		return blueprint.Blueprint{}, fmt.Errorf("completion is not a JSON plan: %w", domain.ErrEngineError)
	}
	return bp, nil
}

// completeWithRetry issues the chat completion, retrying transient failures
// with exponential backoff. Rate limits, server-side errors and transport
// errors retry; other API errors fail on the spot.
func (e *Engine) completeWithRetry(
	ctx context.Context, req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := e.retryBackoff * time.Duration(1<<(attempt-1))
			e.logger.Warn("retrying completion request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			metrics.EngineRetriesTotal.WithLabelValues(e.provider, e.model).Inc()
			select {
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := e.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
		if !isRetryable(err) {
			break
		}
	}

	return openai.ChatCompletionResponse{}, parseAPIError(lastErr)
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Engine) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// isRetryable reports whether a completion error is worth another attempt.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests ||
			reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	// Transport-level failures carry no status code.
	return true
}

// parseAPIError extracts a human-readable error from the API response.
// Errors are wrapped with domain.ErrEngineError, rate limits with
// domain.ErrEngineRateLimited, for correct upstream mapping.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, wrapForStatus(reqErr.HTTPStatusCode))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrapForStatus(apiErr.HTTPStatusCode))
	}

	return fmt.Errorf("completion request failed: %v: %w", err, domain.ErrEngineError)
}

func wrapForStatus(status int) error {
	if status == http.StatusTooManyRequests {
		return domain.ErrEngineRateLimited
	}
	return domain.ErrEngineError
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
