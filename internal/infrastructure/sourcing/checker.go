package sourcing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/resell/backoffice/internal/domain/channel"
)

// HTTPChecker queries the monitoring collaborator's observation endpoint.
// The collaborator owns scraping and caching; this adapter only asks for the
// latest reading of a product URL.
type HTTPChecker struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewHTTPChecker creates an HTTPChecker
func NewHTTPChecker(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPChecker {
	return &HTTPChecker{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		logger:     logger.Named("sourcing"),
	}
}

// observationResponse is the collaborator's wire shape
type observationResponse struct {
	Status        string `json:"status"`
	Price         string `json:"price"`
	OriginalPrice string `json:"original_price"`
}

// Check implements channel.StatusChecker
func (c *HTTPChecker) Check(ctx context.Context, productURL, source string) (*channel.Observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("url", productURL)
	params.Set("source", source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/observe?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: observer returned %d", channel.ErrTransientFetch, resp.StatusCode)
	}

	var body observationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrSchema, err)
	}

	status := channel.ProductStatus(body.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", channel.ErrSchema, body.Status)
	}

	obs := &channel.Observation{Status: status}
	if body.Price != "" {
		price, err := decimal.NewFromString(body.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: unparseable price %q", channel.ErrSchema, body.Price)
		}
		obs.Price = price
	}
	if body.OriginalPrice != "" {
		original, err := decimal.NewFromString(body.OriginalPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: unparseable original price %q", channel.ErrSchema, body.OriginalPrice)
		}
		obs.OriginalPrice = original
	}
	return obs, nil
}

var _ channel.StatusChecker = (*HTTPChecker)(nil)
