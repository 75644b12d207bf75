package rowsink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akeren/waitlist-landing/pkg/circuitbreaker"
	"github.com/akeren/waitlist-landing/pkg/constants"
	apperrors "github.com/akeren/waitlist-landing/pkg/errors"
	"github.com/akeren/waitlist-landing/pkg/retry"
)

type WebhookConfig struct {
	URL        string
	Method     string
	HTTPClient *http.Client
	Retry      *retry.Config
	Breaker    *circuitbreaker.Config
}

// WebhookSink appends rows through a scripting endpoint that takes the
// signup as email, source and timestamp parameters.
type WebhookSink struct {
	endpoint *url.URL
	method   string
	client   *http.Client
	retry    retry.RetryPolicy
	breaker  circuitbreaker.CircuitBreaker
}

func NewWebhookSink(cfg WebhookConfig) (*WebhookSink, error) {
	const op = "rowsink.NewWebhookSink"

	endpoint, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil || (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		return nil, fmt.Errorf("%s: invalid url %q", op, cfg.URL)
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	switch method {
	case "":
		method = http.MethodGet
	case http.MethodGet, http.MethodPost:
	default:
		return nil, fmt.Errorf("%s: unsupported method %q", op, cfg.Method)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	breakerCfg := cfg.Breaker
	if breakerCfg == nil {
		breakerCfg = circuitbreaker.DefaultConfig()
	}
	breakerCfg.Name = "webhook"

	return &WebhookSink{
		endpoint: endpoint,
		method:   method,
		client:   client,
		retry:    retry.NewExponentialBackoff(cfg.Retry),
		breaker:  circuitbreaker.NewCircuitBreaker(breakerCfg),
	}, nil
}

func (s *WebhookSink) Name() string {
	return "webhook"
}

func (s *WebhookSink) Append(ctx context.Context, row Row) error {
	const op = "rowsink.WebhookSink.Append"

	err := s.breaker.Call(func() error {
		return s.retry.Execute(ctx, func(ctx context.Context) error {
			return s.send(ctx, row)
		})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *WebhookSink) send(ctx context.Context, row Row) error {
	values := url.Values{
		"email":     {row.Email},
		"source":    {row.Source},
		"timestamp": {row.Timestamp.UTC().Format(constants.RFC3339DateTimeFormat)},
		"status":    {row.Status},
	}

	var (
		req *http.Request
		err error
	)
	if s.method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.String(), strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		target := *s.endpoint
		query := target.Query()
		for key, vals := range values {
			query[key] = vals
		}
		target.RawQuery = query.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	}
	if err != nil {
		return err
	}
	if row.CorrelationID != "" {
		req.Header.Set("X-Correlation-ID", row.CorrelationID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return retry.Retryable(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	statusErr := apperrors.NewUpstreamError(fmt.Sprintf("webhook responded with status %d", resp.StatusCode), nil)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.Retryable(statusErr)
	}
	return statusErr
}

// Check reports an open breaker together with when it will probe the endpoint again.
func (s *WebhookSink) Check(context.Context) error {
	m := s.breaker.GetMetrics()
	if m.State == circuitbreaker.Open {
		return fmt.Errorf("%w: %d consecutive failures, next attempt at %s",
			circuitbreaker.ErrCircuitOpen, m.FailureCount, m.NextAttempt.UTC().Format(time.RFC3339))
	}
	return nil
}

func (s *WebhookSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
