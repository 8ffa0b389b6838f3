package oms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/shared"
	"github.com/resell/backoffice/internal/infrastructure/config"
)

// Platform error codes returned in the response envelope
const (
	codeOK           = "OK"
	codeTokenExpired = "TOKEN_EXPIRED"
	codeAuthFailed   = "AUTH_FAILED"
)

// CredentialsProvider supplies the platform API credentials. The settings
// store is the usual source so operators can rotate keys without a restart.
type CredentialsProvider interface {
	Credentials(ctx context.Context) (apiKey, apiSecret string, err error)
}

// SettingsCredentials reads platform credentials from the settings store
type SettingsCredentials struct {
	Settings channel.SettingsRepository
}

// Credentials implements CredentialsProvider
func (s *SettingsCredentials) Credentials(ctx context.Context) (string, string, error) {
	key, err := s.Settings.Get(ctx, channel.SettingPlatformAPIKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", "", fmt.Errorf("%w: api key not configured", channel.ErrAuth)
		}
		return "", "", err
	}
	secret, err := s.Settings.Get(ctx, channel.SettingPlatformAPISecret)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", "", fmt.Errorf("%w: api secret not configured", channel.ErrAuth)
		}
		return "", "", err
	}
	return key, secret, nil
}

// Client is the HTTP client for the order-management platform. It logs in
// lazily, caches the session token across calls, and re-authenticates at most
// once per request when the platform rejects the cached token.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialsProvider
	limiter     *rate.Limiter
	logger      *zap.Logger

	retryAttempts  int
	retryBaseDelay time.Duration

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a platform client from configuration
func NewClient(cfg config.PlatformConfig, credentials CredentialsProvider, logger *zap.Logger) *Client {
	return &Client{
		baseURL:        cfg.BaseURL,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		credentials:    credentials,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		logger:         logger.Named("oms"),
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// FetchOrders fetches one page of orders placed inside the request window
func (c *Client) FetchOrders(ctx context.Context, req *channel.FetchRequest) (*channel.FetchPage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("start", req.Start.Format(time.RFC3339))
	params.Set("end", req.End.Format(time.RFC3339))
	params.Set("page", strconv.Itoa(req.Page))
	params.Set("page_size", strconv.Itoa(req.PageSize))

	body, err := c.doAuthenticated(ctx, http.MethodGet, "/api/v2/orders", params, nil)
	if err != nil {
		return nil, err
	}

	var resp orderSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrSchema, err)
	}
	if resp.Code != codeOK {
		return nil, fmt.Errorf("%w: platform returned %s: %s", channel.ErrSchema, resp.Code, resp.Message)
	}

	page := &channel.FetchPage{
		Orders:  make([]channel.ChannelOrder, 0, len(resp.Orders)),
		Total:   resp.Total,
		HasMore: resp.HasMore,
	}
	for i := range resp.Orders {
		co, err := resp.Orders[i].normalize()
		if err != nil {
			return nil, fmt.Errorf("%w: order %q: %v", channel.ErrSchema, resp.Orders[i].OrderID, err)
		}
		page.Orders = append(page.Orders, *co)
	}
	return page, nil
}

// UploadTracking registers a shipment tracking number for an order
func (c *Client) UploadTracking(ctx context.Context, externalOrderID string, channelCode channel.Code, carrier, trackingNumber string) error {
	payload, err := json.Marshal(map[string]string{
		"order_id":        externalOrderID,
		"channel":         channelCode.String(),
		"carrier":         carrier,
		"tracking_number": trackingNumber,
	})
	if err != nil {
		return err
	}

	body, err := c.doAuthenticated(ctx, http.MethodPost, "/api/v2/orders/tracking", nil, payload)
	if err != nil {
		return err
	}

	var resp envelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", channel.ErrSchema, err)
	}
	if resp.Code != codeOK {
		return fmt.Errorf("%w: platform returned %s: %s", channel.ErrTrackingUpload, resp.Code, resp.Message)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// ensureToken returns a session token, logging in when no valid cached token
// exists
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	return c.loginLocked(ctx)
}

// invalidateAndRelogin drops the cached token and performs one fresh login
func (c *Client) invalidateAndRelogin(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	return c.loginLocked(ctx)
}

// loginLocked performs the auth call. Caller must hold c.mu.
func (c *Client) loginLocked(ctx context.Context) (string, error) {
	apiKey, apiSecret, err := c.credentials.Credentials(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	})
	if err != nil {
		return "", err
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/api/v2/auth/login", nil, payload, "")
	if err != nil {
		return "", err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", channel.ErrSchema, err)
	}
	if resp.Code != codeOK || resp.Token == "" {
		return "", fmt.Errorf("%w: %s", channel.ErrAuth, resp.Message)
	}

	c.token = resp.Token
	// Refresh slightly before the platform-side expiry
	expiresIn := time.Duration(resp.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = 30 * time.Minute
	}
	c.tokenExpiry = time.Now().Add(expiresIn - 30*time.Second)

	c.logger.Debug("platform session established", zap.Time("expiry", c.tokenExpiry))
	return c.token, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// doAuthenticated performs a request with the cached session token,
// re-authenticating at most once when the platform rejects the token
func (c *Client) doAuthenticated(ctx context.Context, method, path string, params url.Values, payload []byte) ([]byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(ctx, method, path, params, payload, token)
	if !errors.Is(err, channel.ErrTokenExpired) {
		return body, err
	}

	c.logger.Info("platform session rejected, re-authenticating")
	token, err = c.invalidateAndRelogin(ctx)
	if err != nil {
		return nil, err
	}
	body, err = c.doRequest(ctx, method, path, params, payload, token)
	if errors.Is(err, channel.ErrTokenExpired) {
		return nil, fmt.Errorf("%w: token rejected after re-login", channel.ErrAuth)
	}
	return body, err
}

// doRequest performs one HTTP exchange, retrying transient failures with a
// linear backoff
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, payload []byte, token string) ([]byte, error) {
	var lastErr error
	attempts := c.retryAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", channel.ErrTransientFetch, ctx.Err())
			case <-time.After(c.retryBaseDelay * time.Duration(attempt)):
			}
		}

		body, err := c.exchange(ctx, method, path, params, payload, token)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, channel.ErrTransientFetch) && !errors.Is(err, channel.ErrRateLimited) {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("platform request failed, will retry",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

// exchange performs a single HTTP request and classifies the outcome
func (c *Client) exchange(ctx context.Context, method, path string, params url.Values, payload []byte, token string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrTransientFetch, err)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrTransientFetch, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, channel.ErrTokenExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, channel.ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: platform returned %d", channel.ErrTransientFetch, resp.StatusCode)
	case resp.StatusCode >= 400:
		// The platform also signals an expired token in the envelope
		var env envelope
		if json.Unmarshal(body, &env) == nil {
			if env.Code == codeTokenExpired {
				return nil, channel.ErrTokenExpired
			}
			if env.Code == codeAuthFailed {
				return nil, fmt.Errorf("%w: %s", channel.ErrAuth, env.Message)
			}
		}
		return nil, fmt.Errorf("%w: platform returned %d", channel.ErrSchema, resp.StatusCode)
	}

	return body, nil
}

// errMissingField reports a record missing a required field
func errMissingField(field string) error {
	return fmt.Errorf("missing field %s", field)
}

// errBadField reports a record field that could not be parsed
func errBadField(field, value string) error {
	return fmt.Errorf("unparseable field %s: %q", field, value)
}

var _ channel.OrderPlatform = (*Client)(nil)
