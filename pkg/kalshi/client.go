// Package kalshi provides a REST API client for the Kalshi trading platform,
// covering the market-data surface (events, markets, candlesticks) plus
// authenticated order entry.
package kalshi

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	// ProdBaseURL is the production API base URL.
	ProdBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

	// DemoBaseURL is the demo/sandbox API base URL.
	DemoBaseURL = "https://demo-api.kalshi.co/trade-api/v2"
)

// Retry policy for idempotent reads.
const (
	defaultMaxAttempts = 4
	retryBaseDelay     = 500 * time.Millisecond
)

// ErrMarketDataUnavailable is returned when a market-data read keeps failing
// after all retry attempts.
var ErrMarketDataUnavailable = errors.New("kalshi: market data unavailable")

// Client is a REST API client for Kalshi. Market-data endpoints work without
// credentials; portfolio endpoints require an API key and RSA private key.
type Client struct {
	baseURL     string
	apiKey      string
	privateKey  *rsa.PrivateKey
	httpClient  *http.Client
	maxAttempts int
	retryBase   time.Duration
	log         zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithDemo configures the client to use the demo environment.
func WithDemo() Option {
	return func(c *Client) {
		c.baseURL = DemoBaseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithMaxAttempts overrides the retry budget for GET requests.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryBaseDelay overrides the first backoff delay.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryBase = d
		}
	}
}

// New creates a new REST API client. Pass an empty apiKey and nil privateKey
// for unauthenticated market-data access.
func New(apiKey string, privateKey *rsa.PrivateKey, opts ...Option) *Client {
	c := &Client{
		baseURL:     ProdBaseURL,
		apiKey:      apiKey,
		privateKey:  privateKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxAttempts: defaultMaxAttempts,
		retryBase:   retryBaseDelay,
		log:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) authenticated() bool {
	return c.apiKey != "" && c.privateKey != nil
}

// request makes a single API request, signing it when credentials are set.
func (c *Client) request(method, path string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.authenticated() {
		// The signature covers the full path: /trade-api/v2/...
		fullPath := "/trade-api/v2" + req.URL.Path
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		signature, err := GenerateSignature(c.privateKey, timestamp, method, fullPath)
		if err != nil {
			return nil, fmt.Errorf("generate signature: %w", err)
		}

		req.Header.Set("KALSHI-ACCESS-KEY", c.apiKey)
		req.Header.Set("KALSHI-ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("KALSHI-ACCESS-SIGNATURE", signature)
	}

	c.log.Debug().Str("method", method).Str("url", url).Msg("api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().Int("status", resp.StatusCode).Int("bytes", len(respBody)).Msg("api response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Code:       errResp.Error.Code,
				Message:    errResp.Error.Message,
			}
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	return respBody, nil
}

// Get makes a GET request with bounded exponential backoff. Client errors
// (4xx) fail immediately; transport errors and 5xx responses retry. When all
// attempts fail the error wraps ErrMarketDataUnavailable.
func (c *Client) Get(path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryBase << (attempt - 1)
			c.log.Warn().Str("path", path).Dur("backoff", delay).Err(lastErr).Msg("retrying request")
			time.Sleep(delay)
		}

		data, err := c.request("GET", path, nil)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrMarketDataUnavailable, path, lastErr)
}

// Post makes a POST request.
func (c *Client) Post(path string, body any) ([]byte, error) {
	return c.request("POST", path, body)
}

// Delete makes a DELETE request.
func (c *Client) Delete(path string) ([]byte, error) {
	return c.request("DELETE", path, nil)
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError represents an API error.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("kalshi api error %d: [%s] %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("kalshi api error %d: %s", e.StatusCode, e.Message)
}
