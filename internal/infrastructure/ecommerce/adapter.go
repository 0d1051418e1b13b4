// Package ecommerce implements integration.Adapter for each supported
// marketplace. Webhook payloads are read with gjson path
// fallbacks; pulls and pushes go through a shared JSON HTTP client.
package ecommerce

import (
	"context"
	"strings"

	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/infrastructure/config"
)

// baseAdapter carries what every marketplace adapter shares
type baseAdapter struct {
	source   integration.Source
	currency string
	config   ClientConfig
	client   *apiClient
	paths    orderPaths
}

func newBaseAdapter(source integration.Source, currency string, cfg ClientConfig, paths orderPaths) baseAdapter {
	if cfg.DefaultCurrency != "" {
		currency = cfg.DefaultCurrency
	}
	return baseAdapter{
		source:   source,
		currency: currency,
		config:   cfg,
		client:   newAPIClient(strings.ToLower(source.String()), cfg),
		paths:    paths,
	}
}

// Source returns the marketplace this adapter handles
func (a *baseAdapter) Source() integration.Source {
	return a.source
}

// DefaultCurrency returns the currency assumed when a payload has none
func (a *baseAdapter) DefaultCurrency() string {
	return a.currency
}

// ToOrder extracts an order from a webhook body
func (a *baseAdapter) ToOrder(raw []byte) (*integration.PlatformOrder, error) {
	return parseOrder(raw, a.paths)
}

// NewRegistry builds the adapter registry for every supported source
func NewRegistry(cfg config.AdaptersConfig) *integration.Registry {
	clientConfig := func(source integration.Source) ClientConfig {
		return NewClientConfig(cfg.BaseURLs[strings.ToLower(source.String())], cfg.Timeout)
	}
	return integration.NewRegistry(
		NewShopifyAdapter(clientConfig(integration.SourceShopify)),
		NewWooAdapter(clientConfig(integration.SourceWoo)),
		NewAmazonAdapter(clientConfig(integration.SourceAmazon)),
		NewFlipkartAdapter(clientConfig(integration.SourceFlipkart)),
		NewShippingAdapter(),
	)
}

// ShippingAdapter represents the shipping aggregator. It receives tracking
// webhooks but produces no orders and holds no stock.
type ShippingAdapter struct{}

// NewShippingAdapter creates a new ShippingAdapter
func NewShippingAdapter() *ShippingAdapter {
	return &ShippingAdapter{}
}

// Source returns SHIPPING
func (ShippingAdapter) Source() integration.Source { return integration.SourceShipping }

// DefaultCurrency returns USD
func (ShippingAdapter) DefaultCurrency() string { return "USD" }

// ToOrder always returns no order
func (ShippingAdapter) ToOrder([]byte) (*integration.PlatformOrder, error) { return nil, nil }

// PullOrders is not supported
func (ShippingAdapter) PullOrders(context.Context, *integration.Credentials) ([]integration.PlatformOrder, error) {
	return nil, integration.ErrOperationNotSupported
}

// PullInventory is not supported
func (ShippingAdapter) PullInventory(context.Context, *integration.Credentials) ([]integration.StockLevel, error) {
	return nil, integration.ErrOperationNotSupported
}

// UpdateInventory is not supported
func (ShippingAdapter) UpdateInventory(context.Context, *integration.Credentials, []integration.StockLevel) error {
	return integration.ErrOperationNotSupported
}

var _ integration.Adapter = (*ShippingAdapter)(nil)
