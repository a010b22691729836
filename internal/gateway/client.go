// Package gateway provides the ChainFund API client: one request core with
// uniform auth injection and error normalization, and typed sub-clients for
// every backend resource.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/chainfund/chainfund-go/internal/apierror"
	"github.com/chainfund/chainfund-go/internal/storage"
)

const (
	apiPrefix          = "/api/v1"
	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 8 << 20
)

// TokenSource yields the bearer token to attach to requests, or "" when the
// caller is unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StoreTokens adapts a durable storage.Store into a TokenSource.
func StoreTokens(s storage.Store) TokenSource {
	return storeTokens{s}
}

type storeTokens struct{ store storage.Store }

func (t storeTokens) Token(ctx context.Context) (string, error) {
	return storage.Token(ctx, t.store)
}

// Config configures the API client.
type Config struct {
	// BaseURL is the backend origin, e.g. http://localhost:8000. The /api/v1
	// prefix is appended here.
	BaseURL string

	// HTTPClient overrides the default client. The default carries a
	// conservative timeout; the contract is still one attempt per call.
	HTTPClient *http.Client

	// Timeout bounds each request when HTTPClient is nil. Zero means the
	// 30s default; ignored when HTTPClient is set.
	Timeout time.Duration

	// Tokens supplies the bearer token; nil means never authenticated.
	Tokens TokenSource

	// RateLimit caps outbound requests per second; zero disables the
	// limiter. Burst defaults to 1 when a limit is set.
	RateLimit float64
	Burst     int

	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger

	// MaxBodyBytes caps response bodies. Defaults to 8 MiB.
	MaxBodyBytes int64
}

// Client is the ChainFund API client.
type Client struct {
	apiURL       string
	httpClient   *http.Client
	tokens       TokenSource
	limiter      *rate.Limiter
	log          zerolog.Logger
	maxBodyBytes int64

	auth       *AuthClient
	campaigns  *CampaignsClient
	funding    *FundingClient
	milestones *MilestonesClient
	votes      *VotesClient
	skills     *SkillsClient
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("gateway: BaseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("gateway: BaseURL must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("gateway: BaseURL scheme must be http or https")
	}
	if parsed.User != nil {
		return nil, fmt.Errorf("gateway: BaseURL must not include user info")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodySize
	}

	c := &Client{
		apiURL:       baseURL + apiPrefix,
		httpClient:   httpClient,
		tokens:       cfg.Tokens,
		limiter:      limiter,
		log:          log,
		maxBodyBytes: maxBodyBytes,
	}
	c.auth = &AuthClient{client: c}
	c.campaigns = &CampaignsClient{client: c}
	c.funding = &FundingClient{client: c}
	c.milestones = &MilestonesClient{client: c}
	c.votes = &VotesClient{client: c}
	c.skills = &SkillsClient{client: c}
	return c, nil
}

// Auth returns the users/auth client.
func (c *Client) Auth() *AuthClient { return c.auth }

// Campaigns returns the campaigns client.
func (c *Client) Campaigns() *CampaignsClient { return c.campaigns }

// Funding returns the funding client.
func (c *Client) Funding() *FundingClient { return c.funding }

// Milestones returns the milestone lifecycle client.
func (c *Client) Milestones() *MilestonesClient { return c.milestones }

// Votes returns the milestone voting client.
func (c *Client) Votes() *VotesClient { return c.votes }

// Skills returns the skill score client.
func (c *Client) Skills() *SkillsClient { return c.skills }

// request performs one HTTP round-trip and normalizes every failure into a
// *apierror.Error. route is the templated path used for metrics; path is the
// concrete request path under /api/v1. A non-2xx response becomes an error
// carrying the HTTP status and the body's message/code fields; a transport
// failure becomes an error with StatusCode 0. One attempt per call, no
// retries.
func (c *Client) request(ctx context.Context, method, route, path string, query url.Values, body any, headers map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apierror.Transport(err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gateway: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	endpoint := c.apiURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("gateway: create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.injectToken(ctx, req)

	requestsInFlight.Inc()
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestsInFlight.Dec()
	if err != nil {
		requestsTotal.WithLabelValues(method, route, "0").Inc()
		return nil, apierror.Transport(err)
	}
	defer resp.Body.Close()

	requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(method, route, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, apierror.Transport(err)
	}

	// Only 2xx is success. Redirects the http.Client did not follow (e.g.
	// 304) must not be decoded as a success body.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(raw, resp.StatusCode, resp.Status)
	}
	return raw, nil
}

// injectToken attaches the bearer token when the durable store holds one.
// A storage read failure is treated as "no token" and logged.
func (c *Client) injectToken(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("read bearer token")
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// decodeInto validates the success body against the declared shape and
// unmarshals it. Validation failures surface as *apierror.SchemaError, never
// as data silently typed as valid.
func (c *Client) decodeInto(route string, raw []byte, out any, required ...string) error {
	if out == nil {
		return nil
	}
	if !gjson.ValidBytes(raw) {
		return &apierror.SchemaError{Endpoint: route, Detail: "body is not valid JSON"}
	}
	for _, field := range required {
		if !gjson.GetBytes(raw, field).Exists() {
			return &apierror.SchemaError{Endpoint: route, Detail: "missing field " + field}
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &apierror.SchemaError{Endpoint: route, Detail: err.Error()}
	}
	return nil
}

// parseError builds the typed error for a non-2xx response. A body that is
// not valid JSON contributes nothing; the generated "HTTP <status>" message
// is the fallback.
func parseError(raw []byte, statusCode int, status string) *apierror.Error {
	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	// Parse failures deliberately yield the zero struct.
	_ = json.Unmarshal(raw, &body)

	msg := body.Message
	if msg == "" {
		statusText := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(statusCode)))
		if statusText == "" {
			statusText = http.StatusText(statusCode)
		}
		msg = fmt.Sprintf("HTTP %d: %s", statusCode, statusText)
	}

	return &apierror.Error{
		StatusCode: statusCode,
		Message:    msg,
		Code:       body.Code,
	}
}
