package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"

	"github.com/naheedroomy/valorantsl-new/internal/config"
	"github.com/naheedroomy/valorantsl-new/internal/constants"
)

// ErrNotFound means upstream has no competitive data for the player. It is
// never retried and callers treat it as "skip", not as an infrastructure
// failure.
var ErrNotFound = errors.New("player not found upstream")

var errRateLimited = errors.New("rate limited by upstream")

// TransientError marks a fetch that failed after exhausting the retry
// budget: timeouts, 5xx responses, or 429s that never cleared.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient upstream failure: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// Client talks to the henrikdev Valorant API. One instance is shared across
// a whole update run; it is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	region     string
	platform   string
	maxRetries int
	retryDelay time.Duration

	client *fasthttp.Client
	logger zerolog.Logger

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Bucket    string `json:"bucket"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.RiotAPIBaseURL,
		apiKey:     cfg.RiotAPIKey,
		region:     cfg.RiotRegion,
		platform:   cfg.RiotPlatform,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger.With().Str("component", "riot").Logger(),
		rateLimit: RateLimitInfo{
			Limit:     90,
			Remaining: 90,
			Reset:     60,
			UpdatedAt: time.Now(),
		},
	}
}

func (c *Client) RateLimit() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

// FetchRankSnapshot fetches and normalizes the player's current MMR data.
// Returns ErrNotFound for players with no competitive data and a
// TransientError once the retry budget is spent.
func (c *Client) FetchRankSnapshot(ctx context.Context, puuid string) (*Snapshot, error) {
	url := fmt.Sprintf("%s/valorant/v3/by-puuid/mmr/%s/%s/%s", c.baseURL, c.region, c.platform, puuid)

	var resp mmrResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return normalizeMMR(&resp), nil
}

// FetchLastMatchDate returns the start time of the player's most recent
// competitive match as an ISO-8601 string, or "" when no match is known.
func (c *Client) FetchLastMatchDate(ctx context.Context, puuid string) (string, error) {
	url := fmt.Sprintf("%s/valorant/v4/by-puuid/matches/%s/%s/%s?mode=competitive&size=1",
		c.baseURL, c.region, c.platform, puuid)

	var resp matchesResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", nil
	}

	meta := resp.Data[0].Metadata
	if meta.StartedAt != "" {
		return meta.StartedAt, nil
	}
	if meta.GameStart > 0 {
		return time.UnixMilli(meta.GameStart).UTC().Format(time.RFC3339), nil
	}
	return "", nil
}

// getJSON performs a GET with the retry policy: 404 is terminal, 429 backs
// off by the server-supplied Retry-After (or the escalating default),
// everything else retries with linearly escalating delay.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	backoff := &linearBackoff{base: c.retryDelay}

	err := retry.Do(ctx, retry.WithMaxRetries(uint64(c.maxRetries-1), backoff), func(ctx context.Context) error {
		status, body, retryAfter, err := c.do(ctx, url)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("request failed")
			return retry.RetryableError(err)
		}

		switch status {
		case fasthttp.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return retry.RetryableError(fmt.Errorf("decoding response body: %w", err))
			}
			return nil
		case fasthttp.StatusNotFound:
			return ErrNotFound
		case fasthttp.StatusTooManyRequests:
			backoff.hint = retryAfter
			c.logger.Warn().Dur("retry_after", retryAfter).Str("url", url).Msg("rate limited, backing off")
			return retry.RetryableError(errRateLimited)
		default:
			c.logger.Warn().Int("status", status).Str("url", url).Msg("unexpected upstream status")
			return retry.RetryableError(fmt.Errorf("unexpected status %d", status))
		}
	})

	if err != nil && !errors.Is(err, ErrNotFound) {
		return &TransientError{Err: err}
	}
	return err
}

func (c *Client) do(ctx context.Context, url string) (int, []byte, time.Duration, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("User-Agent", "ValorantSL-Updater/1.0")

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.ExternalAPITimeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, 0, err
	}

	c.updateRateLimit(resp)

	var retryAfter time.Duration
	if v := string(resp.Header.Peek("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return resp.StatusCode(), body, retryAfter, nil
}

func (c *Client) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if bucket := string(resp.Header.Peek("X-Ratelimit-Bucket")); bucket != "" {
		c.rateLimit.Bucket = bucket
	}
	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

// linearBackoff sleeps attempt × base between retries, unless the last 429
// carried a Retry-After hint, which wins once.
type linearBackoff struct {
	base    time.Duration
	attempt int
	hint    time.Duration
}

func (b *linearBackoff) Next() (time.Duration, bool) {
	b.attempt++
	if b.hint > 0 {
		d := b.hint
		b.hint = 0
		return d, false
	}
	return time.Duration(b.attempt) * b.base, false
}
