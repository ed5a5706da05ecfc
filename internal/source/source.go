// Package source contains the per-platform collectors feeding the ingestion
// pipeline. Every adapter shares the same contract: iterate the keyword list,
// page through results, drop items without engagement signal, normalize the
// rest, and degrade any total failure to zero records instead of aborting
// the run.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourorg/popularity-vision/internal/types"
)

// Adapter is the shared contract across the three source variants.
type Adapter interface {
	Platform() string
	// Collect returns the adapter's buffered output for one run. The error
	// is non-nil only for source-level total failures (bad configuration,
	// cancelled context); the orchestrator degrades those to zero records.
	Collect(ctx context.Context, terms []string) ([]types.WorkflowRecord, error)
}

// ErrRateLimited marks a search-page fetch the source throttled; the page is
// retried with escalating backoff.
var ErrRateLimited = errors.New("rate limited")

// StatusError is a non-2xx HTTP response that is not a throttle. Page fetches
// do not retry these; the current keyword/region pair is abandoned.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Per-page retry bounds: up to 3 attempts, waiting attempt*backoffUnit
// between them. Cancellation is observed only between attempts.
const (
	maxPageAttempts = 3
	backoffUnit     = 5 * time.Second
)

// Client wraps HTTP access with pacing and the page-level retry loop shared
// by all adapters.
type Client struct {
	http  *http.Client
	pace  *rate.Limiter
	log   *zap.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

type ClientOptions struct {
	Timeout   time.Duration
	ItemDelay time.Duration // minimum spacing between successive calls
	Logger    *zap.Logger
	// Sleep is injectable so tests can count backoff waits without waiting.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(opts ClientOptions) *Client {
	to := opts.Timeout
	if to == 0 {
		to = 20 * time.Second
	}
	limit := rate.Inf
	if opts.ItemDelay > 0 {
		limit = rate.Every(opts.ItemDelay)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = waitFor
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		http:  &http.Client{Timeout: to, Transport: tr},
		pace:  rate.NewLimiter(limit, 1),
		log:   log,
		sleep: sleep,
	}
}

// GetJSON performs a single paced request and decodes the JSON body.
// A 429 response is reported as ErrRateLimited; other non-2xx statuses as
// *StatusError.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	if err := c.pace.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "popularity-vision/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: %w", url, ErrRateLimited)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &StatusError{Code: resp.StatusCode, URL: url}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FetchPage runs the page-level retry state machine: attempt, and on a
// rate-limit answer back off attempt*5s and re-attempt, at most 3 attempts.
// Any other failure is final for this page.
func (c *Client) FetchPage(ctx context.Context, url string, out any) error {
	for attempt := 1; ; attempt++ {
		err := c.GetJSON(ctx, url, out)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRateLimited) || attempt == maxPageAttempts {
			return err
		}
		wait := time.Duration(attempt) * backoffUnit
		c.log.Warn("rate limited, backing off",
			zap.String("url", url), zap.Int("attempt", attempt), zap.Duration("wait", wait))
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Pause applies the between-pages pacing delay.
func (c *Client) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return c.sleep(ctx, d)
}

func waitFor(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
