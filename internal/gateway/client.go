// Package gateway provides the typed client for the Remote Gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
	"github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/logging"
	"github.com/ledger-sync/internal/session"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries a per-request correlation id
const RequestIDHeader = "X-Request-ID"

// errorMessagePaths are tried in order to pull a human message out of an error body
var errorMessagePaths = []string{
	"$.detail",
	"$.detail[0].msg",
	"$.message",
	"$.error.message",
}

// Client issues authenticated JSON requests to the Remote Gateway.
// It performs no retries; retry policy belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Context
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    *session.Context
	// RateLimitRPS <= 0 disables client-side throttling
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *logging.Logger
}

// NewClient creates a gateway client
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gateway client configuration is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		session:    cfg.Session,
		limiter:    limiter,
		logger:     logger.WithField("component", "gateway"),
	}, nil
}

// Session returns the session context the client authenticates with
func (c *Client) Session() *session.Context {
	return c.session
}

// Call sends method path with an optional JSON body and decodes a JSON response into out.
// A 204 (or empty body) leaves out untouched. Non-2xx responses become a
// *errors.CategorizedError carrying the status.
func (c *Client) Call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	op := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewNetworkError(op, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewDecodeError("encode "+op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.NewNetworkError(op, err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.logger.WithFields(map[string]interface{}{
		"method":    method,
		"path":      path,
		"requestId": requestID,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Warn("Gateway request failed")
		return errors.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Warn("Failed to read gateway response")
		return errors.NewNetworkError(op, err)
	}

	logger = logger.WithFields(map[string]interface{}{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := extractErrorMessage(raw)
		if message == "" {
			message = strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode)
		}
		logger.WithField("message", message).Warn("Gateway returned an error status")
		return errors.NewGatewayError(resp.StatusCode, message)
	}

	logger.Debug("Gateway request completed")

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 || out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewDecodeError(op, err)
	}
	return nil
}

// extractErrorMessage pulls a structured message out of an error body, or returns ""
func extractErrorMessage(raw []byte) string {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}

	for _, path := range errorMessagePaths {
		val, err := jsonpath.Get(path, doc)
		if err != nil {
			continue
		}
		// jsonpath may wrap a single match in a list
		if list, ok := val.([]interface{}); ok {
			if len(list) == 0 {
				continue
			}
			val = list[0]
		}
		if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
