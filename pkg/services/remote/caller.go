package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxResponseBytes = 16 << 20
	requestIDHeader  = "X-Request-ID"
)

type Endpoint string

const (
	EndpointDiagnose    Endpoint = "diagnose"
	EndpointGenerateFix Endpoint = "generate-fix"
	EndpointApplyFix    Endpoint = "apply-fix"
	EndpointBenchmark   Endpoint = "benchmark"
)

func (e Endpoint) Valid() bool {
	switch e {
	case EndpointDiagnose, EndpointGenerateFix, EndpointApplyFix, EndpointBenchmark:
		return true
	}
	return false
}

func (e Endpoint) Method() string {
	if e == EndpointDiagnose {
		return http.MethodGet
	}
	return http.MethodPost
}

// Caller performs a single logical call to the analysis backend.
type Caller interface {
	Call(ctx context.Context, endpoint Endpoint, payload any) (json.RawMessage, error)
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// MaxRetries bounds extra attempts after an unavailable outcome. Zero disables retries.
	MaxRetries   int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
}

type HTTPCaller struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	client     *http.Client
}

func NewCaller(opts Options) (*HTTPCaller, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend base url %q: scheme must be http or https", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("backend timeout must be positive, got %s", opts.Timeout)
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative, got %d", opts.MaxRetries)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPCaller{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		client:     client,
	}, nil
}

func (c *HTTPCaller) Call(ctx context.Context, endpoint Endpoint, payload any) (json.RawMessage, error) {
	if !endpoint.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, endpoint)
	}

	var body []byte
	if endpoint != EndpointDiagnose {
		if payload == nil {
			return nil, fmt.Errorf("%s: %w", endpoint, ErrPayloadRequired)
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", endpoint, err)
		}
		body = encoded
	}

	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := zerolog.Ctx(ctx).With().
		Str("endpoint", string(endpoint)).
		Str("request_id", requestID).
		Logger()

	start := time.Now()
	var (
		result json.RawMessage
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = c.do(ctx, endpoint, body, requestID)
		if err == nil || !errors.Is(err, ErrUnavailable) || attempt >= c.maxRetries {
			break
		}

		wait := c.backoff << attempt
		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("backend unavailable, retrying")
		remoteRetries.WithLabelValues(string(endpoint)).Inc()

		if !sleep(ctx, wait) {
			break
		}
	}
	recordCall(endpoint, err, time.Since(start).Seconds())

	if err != nil {
		logger.Debug().Err(err).Msg("backend call failed")
		return nil, err
	}
	logger.Debug().Dur("elapsed", time.Since(start)).Msg("backend call completed")
	return result, nil
}

func (c *HTTPCaller) do(ctx context.Context, endpoint Endpoint, body []byte, requestID string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, endpoint.Method(), c.baseURL+"/"+string(endpoint), reader)
	if err != nil {
		return nil, unavailable(endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, unavailable(endpoint, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, unavailable(endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rejected(endpoint, resp.StatusCode, respBytes)
	}
	if !json.Valid(respBytes) {
		return nil, malformed(endpoint, fmt.Errorf("invalid JSON body (%d bytes)", len(respBytes)))
	}
	return json.RawMessage(respBytes), nil
}

// Decode unmarshals a backend payload into v, classifying shape mismatches as malformed.
func Decode(endpoint Endpoint, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return malformed(endpoint, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
