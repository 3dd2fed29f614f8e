package client

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

	"github.com/avast/retry-go/v4"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/dmitrijs2005/puffpass/internal/logging"
)

const (
	restPrefix = "/rest/v1/"
	authPrefix = "/auth/v1/"

	returnRepresentation = "return=representation"
)

// Options configure a RESTClient.
type Options struct {
	BaseURL string
	APIKey  string

	// Timeout bounds a single HTTP exchange. Zero means no timeout.
	Timeout time.Duration

	// RetryAttempts is the total number of tries for idempotent reads that
	// fail at the transport level. Values below 2 disable retries.
	RetryAttempts uint
	RetryDelay    time.Duration

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     logging.Logger
	Now        func() time.Time
}

// RESTClient implements RemoteTable and Auth over HTTP.
type RESTClient struct {
	base     *url.URL
	apiKey   string
	http     *http.Client
	attempts uint
	delay    time.Duration
	log      logging.Logger
	now      func() time.Time

	mu     sync.RWMutex
	tokens TokenSource
}

var (
	_ RemoteTable = (*RESTClient)(nil)
	_ Auth        = (*RESTClient)(nil)
)

func NewRESTClient(opts Options) (*RESTClient, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", opts.BaseURL)
	}

	c := &RESTClient{
		base:     base,
		apiKey:   opts.APIKey,
		http:     opts.HTTPClient,
		attempts: opts.RetryAttempts,
		delay:    opts.RetryDelay,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: opts.Timeout}
	}
	if c.log == nil {
		c.log = logging.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.delay <= 0 {
		c.delay = 200 * time.Millisecond
	}
	return c, nil
}

// SetTokenSource installs the source of bearer tokens for table requests.
// Without one, requests are sent with the api key only.
func (c *RESTClient) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *RESTClient) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	prefer string

	// auth marks identity endpoints: no token refresh, and 400 responses
	// are validation errors.
	auth bool

	// bearer, when set, is sent instead of the token source's token.
	bearer string
}

// send performs r and decodes a 2xx JSON body into out (if non-nil).
func (c *RESTClient) send(ctx context.Context, r request, out any) error {
	var payload []byte
	if r.body != nil {
		var err error
		if payload, err = json.Marshal(r.body); err != nil {
			return common.E(r.op, common.KindUnknown, err)
		}
	}

	attempt := func() error { return c.roundTrip(ctx, r, payload, out) }

	if r.method != http.MethodGet || c.attempts < 2 {
		return attempt()
	}

	err := retry.Do(attempt,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn(ctx, "retrying request", "op", r.op, "attempt", n+1, "error", err)
		}),
	)
	return common.Classify(r.op, err)
}

func retryable(err error) bool {
	switch common.KindOf(err) {
	case common.KindTransportTimeout, common.KindTransportUnreachable, common.KindTransportOther:
		return true
	default:
		return false
	}
}

func (c *RESTClient) roundTrip(ctx context.Context, r request, payload []byte, out any) error {
	token, err := c.bearerFor(ctx, r)
	if err != nil {
		return common.Classify(r.op, err)
	}

	resp, err := c.exchange(ctx, r, payload, token)
	if err != nil {
		return common.Classify(r.op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.canRefresh(r, token) {
		_ = drain(resp)
		c.log.Info(ctx, "access token rejected, refreshing", "op", r.op)

		if token, err = c.tokenSource().RefreshAccessToken(ctx); err != nil {
			return common.Classify(r.op, err)
		}
		if resp, err = c.exchange(ctx, r, payload, token); err != nil {
			return common.Classify(r.op, err)
		}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(r.op, resp, r.auth)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.E(r.op, common.KindDecodeFailure, err)
	}
	return nil
}

func (c *RESTClient) canRefresh(r request, token string) bool {
	return !r.auth && r.bearer == "" && token != "" && c.tokenSource() != nil
}

func (c *RESTClient) bearerFor(ctx context.Context, r request) (string, error) {
	if r.bearer != "" {
		return r.bearer, nil
	}
	ts := c.tokenSource()
	if r.auth || ts == nil {
		return "", nil
	}
	return ts.AccessToken(ctx)
}

func (c *RESTClient) exchange(ctx context.Context, r request, payload []byte, token string) (*http.Response, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + r.path
	u.RawQuery = r.query.Encode()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set(common.APIKeyHeaderName, c.apiKey)
	bearer := token
	if bearer == "" {
		bearer = c.apiKey
	}
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+bearer)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set(common.PreferHeaderName, r.prefer)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		c.log.Debug(ctx, "request failed", "op", r.op, "method", r.method, "path", r.path, "error", err)
		return nil, err
	}
	c.log.Debug(ctx, "request done", "op", r.op, "method", r.method, "path", r.path,
		"status", resp.StatusCode, "elapsed", c.now().Sub(start))
	return resp, nil
}

func drain(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.Body.Close()
}
