package providerhttp

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/propboard/internal/platform/logging"
	"github.com/riskibarqy/propboard/internal/platform/resilience"
	"github.com/riskibarqy/propboard/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultMaxBodyBytes = 6 << 20
	defaultUserAgent    = "propboard/1.0"
	tokenQueryParam     = "api_token"
)

var tokenParamRegex = regexp.MustCompile(`api_token=[^&\s"']+`)

type Config struct {
	ProviderID string
	BaseURL    string
	Token      string
	// TokenHeader sends the token as a header instead of the api_token
	// query parameter.
	TokenHeader  string
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	HTTPClient   *http.Client
	Logger       *logging.Logger
}

// Client performs one GET per call and maps every failure to a
// *usecase.ProviderError. It never retries.
type Client struct {
	providerID  string
	baseURL     string
	token       string
	tokenHeader string
	timeout     time.Duration
	maxBody     int64
	userAgent   string
	httpClient  *http.Client
	logger      *logging.Logger
	validate    *validator.Validate
	flight      resilience.SingleFlight
	now         func() time.Time
}

func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = usecase.DefaultProviderTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		providerID:  strings.TrimSpace(cfg.ProviderID),
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:       strings.TrimSpace(cfg.Token),
		tokenHeader: strings.TrimSpace(cfg.TokenHeader),
		timeout:     timeout,
		maxBody:     maxBody,
		userAgent:   userAgent,
		httpClient:  httpClient,
		logger:      logger.With(logging.FieldProvider, strings.TrimSpace(cfg.ProviderID)),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
	}
}

func (c *Client) ProviderID() string {
	return c.providerID
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// GetJSON fetches path, decodes it into target and validates the result
// against its struct tags. The returned RawPayload carries the redacted URL
// and the undecoded body.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) (usecase.RawPayload, error) {
	values := url.Values{}
	for key, items := range query {
		for _, item := range items {
			values.Add(key, item)
		}
	}
	if c.token != "" && c.tokenHeader == "" {
		values.Set(tokenQueryParam, c.token)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	// The shared request belongs to no single caller: it runs detached from
	// cancellation, bounded by the client timeout, and each caller stops
	// waiting when its own context ends.
	shared := c.flight.DoChan(fullURL, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.executeRequest(fetchCtx, fullURL)
	})

	var res resilience.Result
	select {
	case res = <-shared:
	case <-ctx.Done():
		return usecase.RawPayload{}, c.fail(transportKind(ctx, ctx.Err()), 0, crerr.Wrap(ctx.Err(), "wait for provider response"))
	}
	if res.Err != nil {
		return usecase.RawPayload{}, res.Err
	}

	raw, ok := res.Val.([]byte)
	if !ok {
		return usecase.RawPayload{}, c.fail(usecase.ProviderErrorBadResponse, 0, crerr.Newf("unexpected response payload type %T", res.Val))
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return usecase.RawPayload{}, c.fail(usecase.ProviderErrorBadResponse, 0, crerr.Wrap(err, "decode provider payload"))
	}
	if err := c.validate.Struct(target); err != nil {
		return usecase.RawPayload{}, c.fail(usecase.ProviderErrorBadResponse, 0, crerr.Wrap(err, "validate provider payload"))
	}

	return usecase.RawPayload{
		URL:       redactURL(fullURL),
		Body:      raw,
		FetchedAt: c.now().UTC(),
	}, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, c.fail(usecase.ProviderErrorNetwork, 0, crerr.Wrap(err, "build request"))
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", c.userAgent)
	if c.token != "" && c.tokenHeader != "" {
		req.Header.Set(c.tokenHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(transportKind(ctx, err), 0, crerr.Newf("send request %s: %s", redactURL(fullURL), c.sanitize(err.Error())))
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, c.maxBody)); err != nil {
		return nil, c.fail(transportKind(ctx, err), resp.StatusCode, crerr.Wrap(err, "read response body"))
	}
	body := append([]byte(nil), buf.B...)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		providerErr := c.fail(usecase.ProviderErrorRateLimited, resp.StatusCode, crerr.Newf("rate limited body=%s", abbreviateBody(body)))
		providerErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return nil, providerErr
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, c.fail(usecase.ProviderErrorBadResponse, resp.StatusCode, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(body)))
	}

	return body, nil
}

func (c *Client) fail(kind usecase.ProviderErrorKind, status int, err error) *usecase.ProviderError {
	c.logger.Debug("provider request failed", "error_kind", string(kind), "status", status, "error", err)
	return &usecase.ProviderError{
		Kind:       kind,
		ProviderID: c.providerID,
		StatusCode: status,
		Err:        err,
	}
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if c.token != "" {
		value = strings.ReplaceAll(value, c.token, "REDACTED")
	}
	return tokenParamRegex.ReplaceAllString(value, tokenQueryParam+"=REDACTED")
}

// transportKind separates deadlines from other transport failures. A
// cancelled context counts as a timeout since only the aggregation ceiling
// cancels fetches.
func transportKind(ctx context.Context, err error) usecase.ProviderErrorKind {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) || ctx.Err() != nil {
		return usecase.ProviderErrorTimeout
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return usecase.ProviderErrorTimeout
	}
	return usecase.ProviderErrorNetwork
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := at.Sub(now); wait > 0 {
			return wait
		}
	}
	return 0
}

func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has(tokenQueryParam) {
		query.Set(tokenQueryParam, "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

// SportPath joins path segments, escaping each one.
func SportPath(segments ...string) string {
	var b strings.Builder
	for _, segment := range segments {
		segment = strings.Trim(strings.TrimSpace(segment), "/")
		if segment == "" {
			continue
		}
		b.WriteString("/")
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}

// Unsupported is the error adapters return for a sport they have no
// endpoint for.
func (c *Client) Unsupported(sport string) *usecase.ProviderError {
	return c.fail(usecase.ProviderErrorBadResponse, 0, fmt.Errorf("sport %q is not supported by %s", sport, c.providerID))
}
