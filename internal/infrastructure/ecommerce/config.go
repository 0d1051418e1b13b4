package ecommerce

import (
	"errors"
	"strings"
	"time"
)

// Production API endpoints. Shopify and WooCommerce are per-store and are
// derived from the credentials' shop domain instead.
const (
	AmazonProductionAPIURL   = "https://sellingpartnerapi-na.amazon.com"
	FlipkartProductionAPIURL = "https://api.flipkart.net/sellers"
	ShopifyAPIVersion        = "2024-01"

	defaultTimeout = 30 * time.Second
)

// ErrConfigMissingBaseURL is returned when no endpoint can be derived
var ErrConfigMissingBaseURL = errors.New("ecommerce: base URL is required")

// ClientConfig holds the outbound settings of one adapter
type ClientConfig struct {
	// BaseURL overrides the endpoint. For per-store marketplaces it replaces
	// the https://{shop} prefix, which lets tests point adapters at httptest.
	BaseURL string
	// Timeout bounds each HTTP call
	Timeout time.Duration
	// DefaultCurrency applies when a payload reports no valid currency
	DefaultCurrency string
}

// NewClientConfig creates a configuration with defaults
func NewClientConfig(baseURL string, timeout time.Duration) ClientConfig {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return ClientConfig{BaseURL: strings.TrimRight(baseURL, "/"), Timeout: timeout}
}

// storeURL returns the API root of a per-store marketplace.
func (c ClientConfig) storeURL(shopDomain string) (string, error) {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/"), nil
	}
	shop := strings.ToLower(strings.TrimSpace(shopDomain))
	if shop == "" {
		return "", ErrConfigMissingBaseURL
	}
	if !strings.HasPrefix(shop, "http://") && !strings.HasPrefix(shop, "https://") {
		shop = "https://" + shop
	}
	return strings.TrimRight(shop, "/"), nil
}

// apiURL returns the configured endpoint or the production default.
func (c ClientConfig) apiURL(production string) string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return production
}
