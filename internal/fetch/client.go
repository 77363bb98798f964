package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"fontana/internal/config"
)

// CodeTransport is the synthetic response code for a request that never
// produced an HTTP status (dial failure, timeout, open breaker).
const CodeTransport = 800

const maxBodyBytes = 8 << 20

// Response is the outcome of a single request.
type Response struct {
	Code    int
	Body    []byte
	Latency time.Duration
	URL     string
	Err     error
}

// OK reports whether the response carries usable data.
func (r Response) OK() bool {
	return r.Code < 400 && len(r.Body) > 0
}

// Failed reports whether the request failed at the transport layer or the
// remote returned an error status.
func (r Response) Failed() bool {
	return r.Code >= 400
}

// Observer receives one callback per completed request.
type Observer interface {
	ObserveRequest(service string, code int, latency time.Duration)
}

// Getter is the request surface the catalog and metadata clients depend on.
type Getter interface {
	Get(ctx context.Context, rawURL string, header http.Header) Response
	Do(req *http.Request) Response
}

// Client performs rate-limited requests guarded by a circuit breaker.
type Client struct {
	service    string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[Response]
	observer   Observer
}

var _ Getter = (*Client)(nil)

// Option configures a Client.
type Option func(*clientSettings)

type clientSettings struct {
	httpClient       *http.Client
	userAgent        string
	rps              float64
	burst            int
	breakerThreshold uint32
	breakerCooldown  time.Duration
	observer         Observer
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *clientSettings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(s *clientSettings) {
		if ua = strings.TrimSpace(ua); ua != "" {
			s.userAgent = ua
		}
	}
}

// WithRateLimit sets the steady request rate and burst. A non-positive rate
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *clientSettings) {
		s.rps = rps
		s.burst = burst
	}
}

// WithBreaker sets the consecutive failure threshold and the open-state
// cooldown. A zero threshold disables the breaker.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(s *clientSettings) {
		if threshold < 0 {
			threshold = 0
		}
		s.breakerThreshold = uint32(threshold)
		s.breakerCooldown = cooldown
	}
}

// WithObserver registers a per-request observer, typically metrics.
func WithObserver(obs Observer) Option {
	return func(s *clientSettings) {
		s.observer = obs
	}
}

// New builds a client for the named service.
func New(service string, opts ...Option) *Client {
	settings := clientSettings{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		userAgent:  "Fontana/dev",
	}
	for _, opt := range opts {
		opt(&settings)
	}

	c := &Client{
		service:    service,
		httpClient: settings.httpClient,
		userAgent:  settings.userAgent,
		observer:   settings.observer,
	}
	if settings.rps > 0 {
		burst := settings.burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(settings.rps), burst)
	}
	if settings.breakerThreshold > 0 {
		threshold := settings.breakerThreshold
		c.breaker = gobreaker.NewCircuitBreaker[Response](gobreaker.Settings{
			Name:        service,
			MaxRequests: 1,
			Timeout:     settings.breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
	}
	return c
}

// NewFromConfig builds a client using the shared [http] settings.
func NewFromConfig(service string, cfg *config.Config, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		WithUserAgent(cfg.HTTP.UserAgent),
		WithRateLimit(cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst),
		WithBreaker(cfg.HTTP.BreakerThreshold, time.Duration(cfg.HTTP.BreakerCooldownSeconds)*time.Second),
	}
	return New(service, append(base, opts...)...)
}

// Service returns the name the client was built for.
func (c *Client) Service() string {
	return c.service
}

// BreakerState reports the breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Get issues a GET request. It never returns an error; failures are encoded
// in Response.Code.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) Response {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{Code: CodeTransport, URL: rawURL, Err: fmt.Errorf("build request: %w", err)}
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return c.Do(req)
}

// Do executes a prepared request through the limiter and breaker.
func (c *Client) Do(req *http.Request) Response {
	rawURL := req.URL.String()
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return c.finish(Response{Code: CodeTransport, URL: rawURL, Err: fmt.Errorf("rate limit wait: %w", err)})
		}
	}
	if c.breaker == nil {
		return c.finish(c.execute(req))
	}

	resp, err := c.breaker.Execute(func() (Response, error) {
		resp := c.execute(req)
		if resp.Code == CodeTransport || resp.Code >= 500 {
			return resp, errRemoteFailure
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return c.finish(Response{Code: CodeTransport, URL: rawURL, Err: fmt.Errorf("%s circuit open: %w", c.service, err)})
	}
	return c.finish(resp)
}

var errRemoteFailure = errors.New("remote failure")

func (c *Client) execute(req *http.Request) Response {
	rawURL := req.URL.String()
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{Code: CodeTransport, URL: rawURL, Latency: time.Since(start), Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	latency := time.Since(start)
	if err != nil {
		return Response{Code: CodeTransport, URL: rawURL, Latency: latency, Err: fmt.Errorf("read body: %w", err)}
	}
	return Response{Code: resp.StatusCode, Body: body, Latency: latency, URL: rawURL}
}

func (c *Client) finish(resp Response) Response {
	if c.observer != nil {
		c.observer.ObserveRequest(c.service, resp.Code, resp.Latency)
	}
	return resp
}
