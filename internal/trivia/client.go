// Package trivia fetches quiz questions from the Open Trivia DB API.
package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/triviabot/core/logger"
)

const (
	// DefaultBaseURL is the public Open Trivia DB endpoint.
	DefaultBaseURL = "https://opentdb.com/api.php"
	// DefaultAmount is the number of questions requested per fetch.
	DefaultAmount = 10

	maxBodyBytes = 1 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Amount  int
	// Timeout bounds one fetch; zero leaves only the HTTP client's own limits.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client issues single, retry-less fetches against the trivia API.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

// NewClient builds a Client, filling defaults for zero options.
func NewClient(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	amount := opts.Amount
	if amount <= 0 {
		amount = DefaultAmount
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("trivia: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("trivia: base url %q must be absolute", base)
	}
	q := u.Query()
	q.Set("amount", strconv.Itoa(amount))
	u.RawQuery = q.Encode()

	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{endpoint: u.String(), timeout: opts.Timeout, http: hc}, nil
}

// Endpoint returns the full request URL including the amount parameter.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch performs one GET and decodes the response. A non-zero response_code
// is reported as *ResponseCodeError regardless of the HTTP status.
func (c *Client) Fetch(ctx context.Context) (*QuestionSet, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("trivia: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error(ctx, "trivia", "fetch.transport",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("trivia: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("trivia: read body: %w", err)
	}

	var set QuestionSet
	if err := json.Unmarshal(body, &set); err != nil {
		logger.Error(ctx, "trivia", "fetch.decode",
			slog.String("status", "fail"),
			slog.Int("http_code", resp.StatusCode),
			slog.String("err", err.Error()),
		)
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("trivia: unexpected status %s", resp.Status)
		}
		return nil, fmt.Errorf("trivia: decode response: %w", err)
	}

	attrs := []slog.Attr{
		slog.Int("http_code", resp.StatusCode),
		slog.Int("response_code", set.ResponseCode),
		slog.Int("fetched", len(set.Results)),
		slog.Duration("duration", time.Since(start)),
	}
	if set.ResponseCode != 0 {
		logger.Warn(ctx, "trivia", "fetch.rejected", append(attrs, slog.String("status", "fail"))...)
		return nil, &ResponseCodeError{ResponseCode: set.ResponseCode}
	}
	logger.Debug(ctx, "trivia", "fetch.done", append(attrs, slog.String("status", "ok"))...)
	return &set, nil
}

// FetchMore fetches in its own goroutine and fills pool with unseen questions.
// The returned channel yields exactly one value and is then closed: the fetch
// error, ErrNoFreshQuestions when the pool stays empty, or nil.
func (c *Client) FetchMore(ctx context.Context, pool Pool) <-chan error {
	done := make(chan error, 1)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithFetchID(ctx, uuid.NewString())

	go func() {
		defer close(done)
		set, err := c.Fetch(ctx)
		if err != nil {
			done <- err
			return
		}
		added, size := pool.Absorb(set.Results)
		logger.Info(ctx, "trivia", "pool.filled",
			slog.String("status", "ok"),
			slog.Int("fetched", len(set.Results)),
			slog.Int("added", added),
			slog.Int("pool", size),
		)
		if size == 0 {
			done <- ErrNoFreshQuestions
			return
		}
		done <- nil
	}()
	return done
}
