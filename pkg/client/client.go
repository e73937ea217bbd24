// Package client provides the HTTP client for the Compras.gov.br ARP
// (atas de registro de preços) API.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the ARP item query endpoint.
const DefaultBaseURL = "https://dadosabertos.compras.gov.br/modulo-arp/2_consultarARPItem"

// Prometheus metrics for ARP client operations.
var (
	arpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arp_requests_total",
		Help: "Total ARP API requests by item kind and status",
	}, []string{"kind", "status"})

	arpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arp_request_duration_seconds",
		Help:    "ARP API request duration in seconds by item kind",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
	}, []string{"kind"})

	arpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arp_errors_total",
		Help: "Total ARP API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a body that is not a valid ARP page.
	ErrorClassDecode ErrorClass = "decode"
)

// Client queries the ARP API one page at a time.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the ARP item endpoint
	BaseURL string

	// User-Agent header sent on every request
	UserAgent string

	// Timeout per request
	Timeout time.Duration

	// RateLimit paces requests (requests per second). 0 disables pacing.
	RateLimit float64
	Burst     int

	// InsecureTLS skips certificate verification. The government endpoint
	// has served incomplete chains; only enable when that happens.
	InsecureTLS bool
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   15 * time.Second,
		RateLimit: 0,
		Burst:     1,
	}
}

// New creates a new ARP client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %g)", cfg.RateLimit)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter: limiter,
		config:  cfg,
		logger:  log.With().Str("component", "arp-client").Logger(),
	}, nil
}

// Params builds the query string for one page of q.
func Params(q ata.Query, page int) url.Values {
	v := url.Values{}
	v.Set("pagina", strconv.Itoa(page))
	v.Set("tamanhoPagina", strconv.Itoa(q.PageSize))
	v.Set("dataVigenciaInicialMin", q.Start.Format(ata.DateLayout))
	v.Set("dataVigenciaInicialMax", q.End.Format(ata.DateLayout))
	v.Set(q.Kind.CodeParam(), q.Code)
	return v
}

// FetchPage performs one GET for the given page and decodes the result.
// Any non-2xx status is returned as an *APIError.
func (c *Client) FetchPage(ctx context.Context, q ata.Query, page int) (*ata.Page, error) {
	kind := string(q.Kind)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{ErrorClass: ErrorClassNetwork, Message: "rate limiter wait", Err: err}
		}
	}

	endpoint := c.config.BaseURL + "?" + Params(q, page).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("item_kind", kind).
		Str("item_code", q.Code).
		Int("page", page).
		Msg("Executing ARP request")

	startTime := time.Now()
	defer func() {
		arpRequestDuration.WithLabelValues(kind).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := c.classifyError(nil, err)
		arpErrorsTotal.WithLabelValues(string(errClass)).Inc()
		arpRequestsTotal.WithLabelValues(kind, "network_error").Inc()
		return nil, &APIError{ErrorClass: errClass, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	arpRequestsTotal.WithLabelValues(kind, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := c.classifyError(resp, nil)
		arpErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Int("page", page).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("ARP request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	result, err := ata.DecodePage(resp.Body)
	if err != nil {
		arpErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "invalid page body",
			Err:        err,
		}
	}
	result.Number = page

	return result, nil
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
