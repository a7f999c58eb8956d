package avinode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brokerops/charterlink/internal/config"
	"github.com/brokerops/charterlink/internal/ratelimit"
	"github.com/brokerops/charterlink/pkg/logger"
)

// ServiceName keys this dependency in the circuit-breaker registry and
// the rate limiter.
const ServiceName = "avinode"

const maxErrorBody = 64 << 10

// Client performs signed HTTP calls against the marketplace API and
// classifies failures into the gateway error taxonomy.
type Client struct {
	httpClient *http.Client
	cfg        config.AvinodeConfig
	limiter    *ratelimit.ServiceLimiter
	sanitizer  *Sanitizer
	logger     *logger.Logger

	// now is swapped in tests to pin the request timestamp header.
	now func() time.Time
}

func NewClient(cfg config.AvinodeConfig, limiter *ratelimit.ServiceLimiter, log *logger.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		limiter:    limiter,
		sanitizer:  NewSanitizer(cfg.BearerToken, cfg.APIToken),
		logger:     log.WithService(ServiceName),
		now:        time.Now,
	}
}

// do performs one marketplace call. The response body is decoded into out
// when out is non-nil; pass *json.RawMessage to defer shape detection.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, ServiceName); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: %w: %v", method, path, ErrInvalidRequest, err)
		}
		reqBody = bytes.NewReader(data)
	}

	fullURL := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrInvalidRequest, err)
	}
	c.setHeaders(req)

	c.logger.Debug("marketplace request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("marketplace request failed",
			"method", method,
			"path", path,
			"error", c.sanitizer.Clean(err.Error()),
		)
		return fmt.Errorf("%s %s: %w", method, path, ErrUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.classifyStatus(method, path, resp)
	}

	c.logger.Debug("marketplace response",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
	)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// setHeaders attaches the required marketplace headers. The timestamp is
// computed fresh per request, never cached.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	req.Header.Set("X-Avinode-ApiToken", c.cfg.APIToken)
	req.Header.Set("X-Avinode-ApiVersion", c.cfg.APIVersion)
	req.Header.Set("X-Avinode-Product", c.cfg.Product)
	req.Header.Set("X-Avinode-SentTimestamp", c.now().UTC().Format(time.RFC3339))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func (c *Client) classifyStatus(method, path string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := c.sanitizer.Clean(strings.TrimSpace(string(snippet)))

	var err error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		err = ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		err = ErrAuthFailure
	case resp.StatusCode == http.StatusTooManyRequests:
		err = ErrRateLimited
	default:
		err = &APIError{Status: resp.StatusCode, Message: message}
	}

	c.logger.Warn("marketplace call rejected",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"error", err.Error(),
	)
	return fmt.Errorf("%s %s: %w", method, path, err)
}
