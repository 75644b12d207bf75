// Package cascade submits a waitlist signup through an ordered set of
// transports and reports whether delivery was confirmed, assumed or failed.
package cascade

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
	"sync"
	"time"

	"github.com/akeren/waitlist-landing/pkg/useragent"
	"github.com/akeren/waitlist-landing/pkg/validation"
	"golang.org/x/sync/errgroup"
)

type Outcome string

const (
	// OutcomeConfirmed means a 2xx response was observed.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeAssumed means a request went out and no negative signal arrived in time.
	OutcomeAssumed Outcome = "assumed"
	OutcomeFailed  Outcome = "failed"
)

var (
	ErrInvalidEmail = errors.New("cascade: invalid email")
	errConfirmed    = errors.New("cascade: confirmed")
)

type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type Config struct {
	BaseURL     string
	CapturePath string
	PixelPath   string
	UserAgent   string
	HTTPClient  *http.Client
	// Optimistic turns an error on the final step into assumed after its grace period.
	Optimistic bool
	// BackgroundTimeout bounds fire-and-forget requests that outlive their step.
	BackgroundTimeout time.Duration
	Logger            Logger
}

func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:           baseURL,
		CapturePath:       "/v1/waitlist",
		PixelPath:         "/v1/waitlist/pixel",
		UserAgent:         "waitlist-cli/1.0",
		HTTPClient:        &http.Client{Timeout: 15 * time.Second},
		Optimistic:        true,
		BackgroundTimeout: 15 * time.Second,
	}
}

type Client struct {
	config     *Config
	captureURL string
	pixelURL   string
	env        useragent.Environment
	inflight   sync.WaitGroup
	now        func() time.Time
}

func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("cascade: config is nil")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("cascade: invalid base url %q", cfg.BaseURL)
	}

	defaults := DefaultConfig(cfg.BaseURL)
	if cfg.CapturePath == "" {
		cfg.CapturePath = defaults.CapturePath
	}
	if cfg.PixelPath == "" {
		cfg.PixelPath = defaults.PixelPath
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaults.HTTPClient
	}
	if cfg.BackgroundTimeout <= 0 {
		cfg.BackgroundTimeout = defaults.BackgroundTimeout
	}

	return &Client{
		config:     cfg,
		captureURL: base.JoinPath(cfg.CapturePath).String(),
		pixelURL:   base.JoinPath(cfg.PixelPath).String(),
		env:        useragent.Detect(cfg.UserAgent),
		now:        time.Now,
	}, nil
}

// Environment is the classification of the configured User-Agent.
func (c *Client) Environment() useragent.Environment {
	return c.env
}

type Attempt struct {
	Transport  Transport     `json:"transport"`
	Source     string        `json:"source"`
	Outcome    Outcome       `json:"outcome"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	rejected   bool
}

type Result struct {
	Email    string    `json:"email"`
	Plan     string    `json:"plan"`
	Outcome  Outcome   `json:"outcome"`
	Attempts []Attempt `json:"attempts"`
}

// Decisive returns the attempt that produced the result's outcome, if any.
func (r *Result) Decisive() *Attempt {
	for i := range r.Attempts {
		if r.Attempts[i].Outcome == r.Outcome {
			return &r.Attempts[i]
		}
	}
	return nil
}

type submission struct {
	email     string
	timestamp string
}

// Submit runs the plan matching the client's environment.
func (c *Client) Submit(ctx context.Context, email string) (*Result, error) {
	return c.SubmitWithPlan(ctx, PlanFor(c.env), email)
}

func (c *Client) SubmitWithPlan(ctx context.Context, plan Plan, email string) (*Result, error) {
	email = strings.TrimSpace(email)
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("cascade: plan %q has no steps", plan.Name)
	}

	sub := submission{
		email:     email,
		timestamp: c.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	var result *Result
	if plan.Race {
		result = c.race(ctx, plan, sub)
	} else {
		result = c.sequence(ctx, plan, sub)
	}
	result.Email = email
	result.Plan = plan.Name

	c.debug("Submission cascade finished", "plan", plan.Name, "outcome", result.Outcome, "attempts", len(result.Attempts))
	return result, nil
}

// Wait blocks until fire-and-forget requests still in flight have finished.
func (c *Client) Wait() {
	c.inflight.Wait()
}

func (c *Client) sequence(ctx context.Context, plan Plan, sub submission) *Result {
	result := &Result{Outcome: OutcomeFailed}

	for i, step := range plan.Steps {
		attempt := c.runStep(ctx, step, sub, i == len(plan.Steps)-1)
		result.Attempts = append(result.Attempts, attempt)

		switch {
		case attempt.Outcome != OutcomeFailed:
			result.Outcome = attempt.Outcome
			return result
		case attempt.rejected, ctx.Err() != nil:
			return result
		}

		c.warn("Transport failed, advancing", "transport", step.Transport, "error", attempt.Error)
	}

	return result
}

func (c *Client) race(ctx context.Context, plan Plan, sub submission) *Result {
	var (
		mu       sync.Mutex
		attempts = make([]Attempt, len(plan.Steps))
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, step := range plan.Steps {
		i, step := i, step
		g.Go(func() error {
			attempt := c.runStep(gctx, step, sub, true)

			mu.Lock()
			attempts[i] = attempt
			mu.Unlock()

			if attempt.Outcome == OutcomeConfirmed {
				return errConfirmed
			}
			return nil
		})
	}

	result := &Result{Outcome: OutcomeFailed, Attempts: attempts}
	if errors.Is(g.Wait(), errConfirmed) {
		result.Outcome = OutcomeConfirmed
		return result
	}

	for _, attempt := range attempts {
		if attempt.Outcome == OutcomeAssumed {
			result.Outcome = OutcomeAssumed
			break
		}
	}
	return result
}

type response struct {
	status int
	err    error
}

func (c *Client) runStep(ctx context.Context, step Step, sub submission, last bool) (attempt Attempt) {
	started := c.now()
	attempt = Attempt{Transport: step.Transport, Source: step.Source, Outcome: OutcomeFailed}
	defer func() { attempt.Elapsed = c.now().Sub(started) }()

	reqCtx, cancel := context.WithTimeout(ctx, step.Deadline)
	if step.FireAndForget {
		cancel()
		reqCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), c.config.BackgroundTimeout)
	}

	done := make(chan response, 1)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer cancel()
		status, err := c.send(reqCtx, step, sub)
		done <- response{status: status, err: err}
	}()

	timer := time.NewTimer(step.Deadline)
	defer timer.Stop()

	var err error
	select {
	case <-ctx.Done():
		attempt.Error = ctx.Err().Error()
		return attempt
	case <-timer.C:
		if step.FireAndForget {
			attempt.Outcome = OutcomeAssumed
			return attempt
		}
		err = context.DeadlineExceeded
	case res := <-done:
		attempt.StatusCode = res.status
		switch {
		case res.err != nil:
			err = res.err
		case res.status >= 200 && res.status < 300:
			attempt.Outcome = OutcomeConfirmed
			return attempt
		case res.status >= 400 && res.status < 500:
			attempt.rejected = true
			attempt.Error = fmt.Sprintf("rejected with status %d", res.status)
			return attempt
		default:
			err = fmt.Errorf("unexpected status %d", res.status)
		}
	}

	attempt.Error = err.Error()
	if !last || !c.config.Optimistic || !step.FireAndForget {
		return attempt
	}

	grace := time.NewTimer(step.ErrorGrace)
	defer grace.Stop()
	select {
	case <-ctx.Done():
	case <-grace.C:
		attempt.Outcome = OutcomeAssumed
	}
	return attempt
}

func (c *Client) send(ctx context.Context, step Step, sub submission) (int, error) {
	req, err := c.buildRequest(ctx, step, sub)
	if err != nil {
		return 0, err
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", step.Transport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

func (c *Client) buildRequest(ctx context.Context, step Step, sub submission) (*http.Request, error) {
	values := url.Values{
		"email":     {sub.email},
		"source":    {step.Source},
		"timestamp": {sub.timestamp},
	}

	var (
		req *http.Request
		err error
	)

	switch step.Transport {
	case TransportImage:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.pixelURL+"?"+values.Encode(), nil)
		if err == nil {
			req.Header.Set("Accept", "image/png,image/*;q=0.8")
		}
	case TransportBeacon, TransportForm:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.captureURL, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if step.Transport == TransportForm {
				req.Header.Set("Accept", "text/html")
			}
		}
	case TransportFetch:
		body, marshalErr := json.Marshal(map[string]string{
			"email":     sub.email,
			"source":    step.Source,
			"timestamp": sub.timestamp,
		})
		if marshalErr != nil {
			return nil, marshalErr
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.captureURL, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
		}
	default:
		return nil, fmt.Errorf("cascade: unknown transport %q", step.Transport)
	}
	if err != nil {
		return nil, err
	}

	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	return req, nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}

func (c *Client) warn(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Warn(msg, args...)
	}
}
