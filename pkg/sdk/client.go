package renoplan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	consultPath = "/planuri-renovare-strategice"
	healthPath  = "/health"

	privateKeyHeader   = "X-Private-Key"
	consultRunHeader   = "X-Consult-Run"
	engineTokensHeader = "X-Engine-Tokens"
)

// defaultTimeout bounds a whole consultation round-trip; engine fan-out
// makes these requests slow.
const defaultTimeout = 2 * time.Minute

// Client is the renoplan API client.
type Client struct {
	baseURL    string
	privateKey string
	httpClient *http.Client
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("renoplan: base URL required")
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		privateKey: cfg.privateKey,
		httpClient: hc,
	}, nil
}

// Wire DTOs mirroring the server's request and response bodies.
type consultBody struct {
	Brief    string   `json:"cerinta_user"`
	Lat      *float64 `json:"latitudine,omitempty"`
	Lon      *float64 `json:"longitudine,omitempty"`
	RadiusKm *float64 `json:"raza_km,omitempty"`
}

type consultEnvelope struct {
	Results []json.RawMessage `json:"rezultate"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type healthEnvelope struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// Consult runs one consultation: the service selects catalog candidates,
// dispatches one engine analysis per candidate and returns the blueprints
// ranked by investment score. Failed analyses come back as failure
// blueprints inside Results, not as an error.
func (c *Client) Consult(ctx context.Context, req ConsultRequest) (*ConsultResponse, error) {
	body, err := json.Marshal(consultBody{
		Brief:    req.Brief,
		Lat:      req.Lat,
		Lon:      req.Lon,
		RadiusKm: req.RadiusKm,
	})
	if err != nil {
		return nil, fmt.Errorf("renoplan: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+consultPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("renoplan: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.privateKey != "" {
		httpReq.Header.Set(privateKeyHeader, c.privateKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("renoplan: consult request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var env consultEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("renoplan: decode response: %w", err)
	}

	out := &ConsultResponse{
		Results: env.Results,
		RunID:   resp.Header.Get(consultRunHeader),
	}
	if v := resp.Header.Get(engineTokensHeader); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			out.EngineTokens = n
		}
	}
	return out, nil
}

// Health fetches the service health report. A degraded report is returned
// without error; the error is non-nil only when no report could be fetched.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("renoplan: build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("renoplan: health request: %w", err)
	}
	defer resp.Body.Close()

	// 503 still carries the degraded report body.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, apiError(resp)
	}

	var env healthEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return HealthStatus{}, fmt.Errorf("renoplan: decode response: %w", err)
	}
	return HealthStatus{Status: env.Status, Version: env.Version, Checks: env.Checks}, nil
}

// apiError maps a non-OK response to a sentinel error, keeping the server
// message when the body carries the error envelope.
func apiError(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			msg = env.Message
		}
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		sentinel = ErrForbidden
	case resp.StatusCode == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case resp.StatusCode >= 500:
		sentinel = ErrServer
	default:
		sentinel = ErrInvalid
	}
	return fmt.Errorf("%w: %s (status %d)", sentinel, msg, resp.StatusCode)
}
