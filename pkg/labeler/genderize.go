// pkg/labeler/genderize.go
package labeler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

const maxBackoff = 10 * time.Second

// GenderizeOptions configures a GenderizeClient
type GenderizeOptions struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration // per request
	Delay      time.Duration // pause after each answered request, base of the backoff
	MaxRetries int
}

// GenderizeClient queries a genderize.io compatible endpoint
type GenderizeClient struct {
	baseURL    string
	apiKey     string
	delay      time.Duration
	maxRetries int
	httpClient *http.Client
	logger     *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

type genderizeResponse struct {
	Name        string   `json:"name"`
	Gender      *string  `json:"gender"`
	Probability *float64 `json:"probability"`
	Count       int      `json:"count"`
	Error       string   `json:"error"`
}

// NewGenderizeClient creates a client for the given endpoint
func NewGenderizeClient(opts GenderizeOptions, logger *zap.Logger) (*GenderizeClient, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("genderize base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid genderize base URL: %w", err)
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GenderizeClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		delay:      opts.Delay,
		maxRetries: opts.MaxRetries,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger.Named("genderize"),
		sleep:      sleepContext,
	}, nil
}

// Infer looks up one name. Transport errors, 429 and 5xx answers are retried
// with exponential backoff; 401 and 403 fail immediately.
func (c *GenderizeClient) Infer(ctx context.Context, name string) (Inference, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		inf, retry, err := c.do(ctx, name)
		if err == nil {
			if c.delay > 0 {
				if err := c.sleep(ctx, c.delay); err != nil {
					return inf, err
				}
			}
			return inf, nil
		}

		lastErr = err
		c.logger.Warn("Gender lookup failed",
			zap.String("name", name),
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", c.maxRetries),
			zap.Error(err))

		if !retry || ctx.Err() != nil {
			return Inference{}, &runerrors.LookupUnavailableError{Name: name, Attempts: attempt, Err: err}
		}
		if attempt < c.maxRetries {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return Inference{}, &runerrors.LookupUnavailableError{Name: name, Attempts: attempt, Err: err}
			}
		}
	}

	return Inference{}, &runerrors.LookupUnavailableError{Name: name, Attempts: c.maxRetries, Err: lastErr}
}

// do performs one request and reports whether a failure is worth retrying
func (c *GenderizeClient) do(ctx context.Context, name string) (Inference, bool, error) {
	query := url.Values{}
	query.Set("name", name)
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return Inference{}, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Inference{}, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Inference{}, true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Inference{}, false, fmt.Errorf("authentication failed: HTTP %d", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Inference{}, true, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	default:
		return Inference{}, false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed genderizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Inference{}, false, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != "" {
		return Inference{}, false, fmt.Errorf("lookup error: %s", parsed.Error)
	}

	return parsed.inference(), false, nil
}

func (r genderizeResponse) inference() Inference {
	if r.Gender == nil || r.Probability == nil {
		return Inference{Count: r.Count}
	}

	p := *r.Probability
	switch strings.ToLower(*r.Gender) {
	case "female":
		return Inference{ProbabilityFemale: p, Count: r.Count, Found: true}
	case "male":
		return Inference{ProbabilityFemale: 1 - p, Count: r.Count, Found: true}
	default:
		return Inference{Count: r.Count}
	}
}

// backoff returns delay*2^(attempt-1), capped at ten seconds
func (c *GenderizeClient) backoff(attempt int) time.Duration {
	wait := c.delay << (attempt - 1)
	if wait > maxBackoff || wait < 0 {
		return maxBackoff
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
