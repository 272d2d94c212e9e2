package offacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/errors"
	"github.com/nutriscan/arnutri-go/internal/logging"
)

// Package-level logger specific to the offacts service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "offacts.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "offacts", serviceLevelVar)
	if err != nil {
		// Fallback: log error to standard log and disable service logging
		log.Printf("FATAL: Failed to initialize offacts file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "offacts")
		closeLogger = func() error { return nil }
	}
}

// Client provides methods for interacting with the Open Food Facts API.
type Client struct {
	config      Config
	httpClient  *http.Client
	rateLimiter *time.Ticker
	mu          sync.Mutex
	lastRequest time.Time
	debug       bool

	metrics struct {
		apiCalls      int64
		apiErrors     int64
		totalDuration time.Duration
		mu            sync.RWMutex
	}
}

// NewClient creates a new Open Food Facts API client.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.RateLimitMS == 0 {
		config.RateLimitMS = DefaultConfig().RateLimitMS
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultConfig().UserAgent
	}

	settings := conf.GetSettings()
	debug := settings != nil && settings.Debug

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: time.NewTicker(time.Duration(config.RateLimitMS) * time.Millisecond),
		debug:       debug,
	}

	logger.Info("Open Food Facts client initialized",
		"base_url", config.BaseURL,
		"rate_limit_ms", config.RateLimitMS,
		"debug", debug)

	return client, nil
}

// Close cleans up client resources.
func (c *Client) Close() {
	c.rateLimiter.Stop()
	logger.Info("Closing Open Food Facts client")

	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing offacts logger: %v", err)
		}
	}
}

// GetByCode fetches a product by barcode. An unknown barcode returns an
// error with CategoryProductNotFound; the API reports it with status 0
// rather than an HTTP error.
func (c *Client) GetByCode(ctx context.Context, code string) (*Product, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	requestURL := fmt.Sprintf("%s/api/v0/product/%s.json", c.config.BaseURL, url.PathEscape(code))

	var resp productResponse
	if err := c.doRequestWithRetry(reqCtx, requestURL, &resp); err != nil {
		return nil, err
	}

	if resp.Status != 1 || resp.Product == nil {
		return nil, errors.Newf("product not found for barcode: %s", code).
			Category(errors.CategoryProductNotFound).
			Context("barcode", code).
			Component("offacts").
			Build()
	}

	if resp.Product.Code == "" {
		resp.Product.Code = code
	}

	logger.Debug("product fetched by barcode",
		"barcode", code,
		"product_name", resp.Product.ProductName)

	return resp.Product, nil
}

// SearchByText searches products by free text and returns the first match.
// Provider default ranking is accepted as-is.
func (c *Client) SearchByText(ctx context.Context, term string) (*Product, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	query := url.Values{}
	query.Set("search_terms", term)
	query.Set("search_simple", "1")
	query.Set("action", "process")
	query.Set("json", "1")
	requestURL := fmt.Sprintf("%s/cgi/search.pl?%s", c.config.BaseURL, query.Encode())

	var resp searchResponse
	if err := c.doRequestWithRetry(reqCtx, requestURL, &resp); err != nil {
		return nil, err
	}

	if len(resp.Products) == 0 {
		return nil, errors.Newf("no products found for: %s", term).
			Category(errors.CategoryProductNotFound).
			Context("search_term", term).
			Component("offacts").
			Build()
	}

	product := resp.Products[0]

	logger.Debug("product found by search",
		"search_term", term,
		"product_name", product.ProductName,
		"result_count", len(resp.Products))

	return &product, nil
}

// doRequest performs a GET request with rate limiting.
func (c *Client) doRequest(ctx context.Context, requestURL string, result any) error {
	c.mu.Lock()
	<-c.rateLimiter.C
	c.lastRequest = time.Now()
	c.mu.Unlock()

	start := time.Now()

	c.metrics.mu.Lock()
	c.metrics.apiCalls++
	c.metrics.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		c.countError()
		return errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Component("offacts").
			Build()
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	if c.debug {
		logger.Debug("Open Food Facts API request", "url", requestURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countError()
		logger.Error("Open Food Facts API request failed",
			"error", err,
			"url", requestURL)
		return errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Component("offacts").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countError()
		logger.Error("Failed to read response body",
			"error", err,
			"url", requestURL,
			"status_code", resp.StatusCode)
		return errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Context("status_code", resp.StatusCode).
			Component("offacts").
			Build()
	}

	if resp.StatusCode >= 400 {
		c.countError()
		preview := string(bodyBytes)
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		logger.Warn("Open Food Facts API error response",
			"status_code", resp.StatusCode,
			"url", requestURL,
			"response_preview", preview)
		return errors.Newf("Open Food Facts API error (status %d)", resp.StatusCode).
			Category(categoryForStatus(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Context("url", requestURL).
			Component("offacts").
			Build()
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		c.countError()
		logger.Error("Open Food Facts API returned non-JSON response",
			"status_code", resp.StatusCode,
			"content_type", contentType,
			"url", requestURL)
		return errors.Newf("Open Food Facts API returned non-JSON response (Content-Type: %s)", contentType).
			Category(errors.CategoryResponseParse).
			Context("content_type", contentType).
			Context("url", requestURL).
			Component("offacts").
			Build()
	}

	if result != nil {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			c.countError()
			logger.Error("Failed to parse Open Food Facts API response",
				"error", err,
				"url", requestURL,
				"response_size", len(bodyBytes))
			return errors.Newf("failed to parse response: %w", err).
				Category(errors.CategoryResponseParse).
				Context("url", requestURL).
				Context("response_size", len(bodyBytes)).
				Component("offacts").
				Build()
		}
	}

	duration := time.Since(start)

	if c.debug {
		logger.Debug("Open Food Facts API response",
			"status_code", resp.StatusCode,
			"url", requestURL,
			"duration_ms", duration.Milliseconds(),
			"response_size", len(bodyBytes))
	}

	c.metrics.mu.Lock()
	c.metrics.totalDuration += duration
	c.metrics.mu.Unlock()

	return nil
}

// doRequestWithRetry wraps doRequest with retry logic for transient failures.
func (c *Client) doRequestWithRetry(ctx context.Context, requestURL string, result any) error {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.doRequest(ctx, requestURL, result)
		if err == nil {
			return nil
		}

		var enhancedErr *errors.EnhancedError
		if errors.As(err, &enhancedErr) {
			// Not-found and parse failures are definitive, not transient
			if enhancedErr.Category == errors.CategoryProductNotFound ||
				enhancedErr.Category == errors.CategoryResponseParse ||
				enhancedErr.Category == errors.CategoryValidation {
				return err
			}

			if statusCode, ok := enhancedErr.Context["status_code"].(int); ok {
				if statusCode >= 400 && statusCode < 500 && statusCode != 429 {
					return err
				}
			}
		}

		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}

		delay := time.Duration(attempt+1) * 500 * time.Millisecond
		if attempt < maxRetries-1 {
			logger.Warn("Open Food Facts API request failed, retrying",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"delay_ms", delay.Milliseconds(),
				"url", requestURL,
				"error", err.Error())

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

func (c *Client) countError() {
	c.metrics.mu.Lock()
	c.metrics.apiErrors++
	c.metrics.mu.Unlock()
}

// Metrics represents client performance counters.
type Metrics struct {
	APICalls      int64         `json:"api_calls"`
	APIErrors     int64         `json:"api_errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// GetMetrics returns current client metrics.
func (c *Client) GetMetrics() Metrics {
	c.metrics.mu.RLock()
	defer c.metrics.mu.RUnlock()

	metrics := Metrics{
		APICalls:      c.metrics.apiCalls,
		APIErrors:     c.metrics.apiErrors,
		TotalDuration: c.metrics.totalDuration,
	}

	if metrics.APICalls > 0 {
		metrics.AvgDuration = time.Duration(int64(metrics.TotalDuration) / metrics.APICalls)
	}

	return metrics
}

// IsProductNotFound reports whether err is a definitive missing-product
// result rather than a transient lookup failure.
func IsProductNotFound(err error) bool {
	return errors.IsCategory(err, errors.CategoryProductNotFound)
}

// categoryForStatus maps HTTP status codes to error categories.
func categoryForStatus(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case 404:
		return errors.CategoryProductNotFound
	case 429:
		return errors.CategoryLimit
	case 500, 502, 503, 504:
		return errors.CategoryNetwork
	default:
		return errors.CategoryNetwork
	}
}
