// Package mint implements an HTTP client for the subset of the mint API
// that wallet recovery needs: keyset discovery, signature restoration and
// proof state checks.
package mint

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/util"
	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultMaxAttempts    = 4
	defaultBackoffBase    = 500 * time.Millisecond
	defaultBackoffMax     = 8 * time.Second
	defaultRejectCooldown = 5 * time.Second

	// Restore responses carry full signature batches; anything beyond this
	// is not a mint talking to us.
	maxResponseBytes = 16 << 20
)

// Client talks to a single mint. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	clock   time2.Clock

	maxAttempts    int
	backoffBase    time.Duration
	backoffMax     time.Duration
	rejectCooldown time.Duration
	onRetry        func()
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	// Timeout bounds a single HTTP exchange, not the whole retry loop.
	Timeout time.Duration
	// MaxAttempts counts the first try plus retries.
	MaxAttempts int
	// BackoffBase doubles per retry up to BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// RejectCooldown is the flat pause after a rate-limit response.
	RejectCooldown time.Duration
	// Clock substitutes a mock clock in tests.
	Clock time2.Clock
	// HTTPClient overrides the default client, e.g. for custom transports.
	HTTPClient *http.Client
	// OnRetry runs once per retry attempt, e.g. to bump a counter.
	OnRetry func()
}

// New builds a client for the mint at baseURL. The URL is normalized once
// here so derived request URLs never double up separators.
func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("mint URL is empty")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse mint URL %q", baseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.Errorf("unsupported mint URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.Errorf("mint URL %q has no host", baseURL)
	}

	c := &Client{
		baseURL:        baseURL,
		http:           opts.HTTPClient,
		clock:          opts.Clock,
		maxAttempts:    opts.MaxAttempts,
		backoffBase:    opts.BackoffBase,
		backoffMax:     opts.BackoffMax,
		rejectCooldown: opts.RejectCooldown,
		onRetry:        opts.OnRetry,
	}

	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.clock == nil {
		c.clock = time2.DefaultClock
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.backoffBase <= 0 {
		c.backoffBase = defaultBackoffBase
	}
	if c.backoffMax <= 0 {
		c.backoffMax = defaultBackoffMax
	}
	if c.rejectCooldown <= 0 {
		c.rejectCooldown = defaultRejectCooldown
	}

	return c, nil
}

// BaseURL returns the normalized mint URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// doJSON runs one exchange with bounded retries. Transport failures and
// transient rejections are retried with backoff; protocol violations and
// hard refusals surface immediately.
func (c *Client) doJSON(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal mint request")
		}
	}

	endpoint := c.baseURL + path

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.backoffFor(attempt-1, lastErr)); err != nil {
				return errors.Wrap(err, "aborted while waiting to retry mint request")
			}
		}

		err := c.doOnce(ctx, method, endpoint, reqBody, out)
		if err == nil {
			return nil
		}

		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			return err
		}

		if c.onRetry != nil {
			c.onRetry()
		}
		util.LogFromContext(ctx).Warn().
			Err(err).
			Str("url", endpoint).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Msg("Mint request failed, retrying")
	}

	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method string, endpoint string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create mint request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{URL: endpoint, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		rejected := &RejectedError{URL: endpoint, StatusCode: resp.StatusCode}
		var mintErr cashu.Error
		if err := json.Unmarshal(respBody, &mintErr); err == nil && (mintErr.Code != 0 || mintErr.Detail != "") {
			rejected.Cause = &mintErr
		}
		return rejected
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProtocolError{URL: endpoint, Reason: errors.Wrap(err, "undecodable response body").Error()}
	}

	return nil
}

// backoffFor picks the pause before the next attempt. Rate limits get the
// flat cooldown the mint asked for in spirit; everything else doubles from
// the base with jitter.
func (c *Client) backoffFor(retry int, lastErr error) time.Duration {
	var rejected *RejectedError
	if errors.As(lastErr, &rejected) && rejected.StatusCode == http.StatusTooManyRequests {
		return c.rejectCooldown
	}

	shift := retry - 1
	if shift > 20 {
		shift = 20
	}
	backoff := c.backoffBase << shift
	if backoff > c.backoffMax {
		backoff = c.backoffMax
	}
	if backoff <= 0 {
		return 0
	}

	half := backoff / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}
