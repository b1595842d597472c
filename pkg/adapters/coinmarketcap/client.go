package coinmarketcap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aescanero/cmcproxy/pkg/domain"
	"github.com/aescanero/cmcproxy/pkg/ports"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the Pro API v1 root
	DefaultBaseURL = "https://pro-api.coinmarketcap.com/v1"

	// ListingsLatestEndpoint returns a paginated list of active assets
	ListingsLatestEndpoint = "/cryptocurrency/listings/latest"

	apiKeyHeader    = "X-CMC_PRO_API_KEY"
	convertParam    = "convert"
	convertCurrency = "USD"

	// maxBodySize caps how much of an upstream response is read
	maxBodySize = 16 << 20
)

// Config holds upstream client configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client

	Metrics ports.MetricsCollector
	Health  ports.HealthReporter
	Logger  *zap.Logger
}

// Client calls the market-data API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    ports.MetricsCollector
	health     ports.HealthReporter
	logger     *zap.Logger
}

// NewClient creates a new upstream client
func NewClient(cfg *Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme: %q", parsed.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		health:     cfg.Health,
		logger:     logger,
	}, nil
}

// Get issues an authenticated GET and returns the JSON body.
// convert=USD is always sent, replacing any caller value.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	start := time.Now()
	status, body, err := c.do(ctx, endpoint, params)
	c.record(endpoint, status, start, err)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// FetchListings retrieves and parses a latest listings page
func (c *Client) FetchListings(ctx context.Context, query ports.ListingsQuery) (*domain.Listings, error) {
	params := map[string]string{
		"start": strconv.Itoa(query.Start),
		"limit": strconv.Itoa(query.Limit),
	}
	if query.Sort != "" {
		params["sort"] = query.Sort
	}
	if query.SortDir != "" {
		params["sort_dir"] = string(query.SortDir)
	}

	start := time.Now()
	status, body, err := c.do(ctx, ListingsLatestEndpoint, params)
	if err != nil {
		c.record(ListingsLatestEndpoint, status, start, err)
		return nil, err
	}

	listings, parseErr := domain.ParseListings(body)
	if parseErr != nil {
		err := domain.NewMalformedResponseError(ListingsLatestEndpoint, status, parseErr)
		c.logger.Error("malformed listings response",
			zap.String("endpoint", ListingsLatestEndpoint),
			zap.Error(parseErr))
		c.record(ListingsLatestEndpoint, status, start, err)
		return nil, err
	}

	c.record(ListingsLatestEndpoint, status, start, nil)
	return listings, nil
}

// do performs the request and classifies failures as UpstreamError
func (c *Client) do(ctx context.Context, endpoint string, params map[string]string) (int, []byte, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set(convertParam, convertCurrency)

	fullURL := c.baseURL + endpoint + "?" + query.Encode()

	c.logger.Debug("fetching from upstream",
		zap.String("endpoint", endpoint),
		zap.String("query", query.Encode()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, nil, &domain.UpstreamError{
			Endpoint: endpoint,
			Message:  fmt.Sprintf("failed to create request: %v", err),
			Err:      err,
		}
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("upstream request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return 0, nil, &domain.UpstreamError{
			Endpoint: endpoint,
			Message:  fmt.Sprintf("request failed: %v", err),
			Err:      err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("upstream response",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, &domain.UpstreamError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("failed to read response: %v", err),
			Err:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("upstream returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return resp.StatusCode, nil, domain.NewUpstreamStatusError(
			endpoint,
			resp.StatusCode,
			gjson.GetBytes(body, "status.error_message").String(),
		)
	}

	if !gjson.ValidBytes(body) {
		return resp.StatusCode, nil, domain.NewMalformedResponseError(
			endpoint,
			resp.StatusCode,
			errors.New("body is not valid JSON"),
		)
	}

	return resp.StatusCode, body, nil
}

// record feeds metrics and the health reporter
func (c *Client) record(endpoint string, status int, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.ObserveUpstreamRequest(endpoint, status, time.Since(start), err)
	}
	if c.health != nil {
		c.health.ReportUpstream(err)
	}
}
