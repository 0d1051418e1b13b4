package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
)

var amazonOrderPaths = orderPaths{
	ExternalID: []string{"id", "orderId", "AmazonOrderId"},
	Status:     []string{"status", "OrderStatus"},
	Total:      []string{"total", "orderTotal.Amount", "orderTotal", "OrderTotal.Amount"},
	Currency:   []string{"currency", "orderTotal.CurrencyCode", "OrderTotal.CurrencyCode"},
	Items:      []string{"items", "orderItems", "OrderItems"},
	SKU:        []string{"sku", "sellerSku", "SellerSKU", "asin", "ASIN"},
	Name:       []string{"title", "name", "Title"},
	Quantity:   []string{"quantity", "QuantityOrdered"},
	Price:      []string{"price", "itemPrice.Amount", "itemPrice", "ItemPrice.Amount"},
}

// AmazonAdapter talks to the Selling Partner API. The credentials'
// ShopDomain carries the seller id.
type AmazonAdapter struct {
	baseAdapter
}

// NewAmazonAdapter creates a new Amazon adapter
func NewAmazonAdapter(cfg ClientConfig) *AmazonAdapter {
	return &AmazonAdapter{baseAdapter: newBaseAdapter(integration.SourceAmazon, "USD", cfg, amazonOrderPaths)}
}

// PullOrders fetches recent orders. Order lines are not part of the
// listing response and stay empty.
func (a *AmazonAdapter) PullOrders(ctx context.Context, creds *integration.Credentials) ([]integration.PlatformOrder, error) {
	if creds == nil {
		return nil, shared.ErrValidation.WithMessage("amazon: credentials are required")
	}
	body, err := a.client.do(ctx, http.MethodGet, a.config.apiURL(AmazonProductionAPIURL)+"/orders/v0/orders", a.headers(creds), nil)
	if err != nil {
		return nil, err
	}
	return parseOrderList(body, "payload.Orders", a.paths)
}

// PullInventory reads the FBA inventory summaries
func (a *AmazonAdapter) PullInventory(ctx context.Context, creds *integration.Credentials) ([]integration.StockLevel, error) {
	if creds == nil {
		return nil, shared.ErrValidation.WithMessage("amazon: credentials are required")
	}
	body, err := a.client.do(ctx, http.MethodGet, a.config.apiURL(AmazonProductionAPIURL)+"/fba/inventory/v1/summaries?details=false", a.headers(creds), nil)
	if err != nil {
		return nil, err
	}
	return parseStockLevels(body, "payload.inventorySummaries", []string{"sellerSku"}, []string{"totalQuantity"})
}

// UpdateInventory patches the fulfillment availability of each listing
func (a *AmazonAdapter) UpdateInventory(ctx context.Context, creds *integration.Credentials, levels []integration.StockLevel) error {
	if creds == nil || creds.ShopDomain == "" {
		return shared.ErrValidation.WithMessage("amazon: seller id is required")
	}
	base := a.config.apiURL(AmazonProductionAPIURL)
	for _, level := range levels {
		endpoint := fmt.Sprintf("%s/listings/2021-08-01/items/%s/%s", base, url.PathEscape(creds.ShopDomain), url.PathEscape(level.SKU))
		patch := map[string]any{
			"productType": "PRODUCT",
			"patches": []map[string]any{{
				"op":   "replace",
				"path": "/attributes/fulfillment_availability",
				"value": []map[string]any{{
					"fulfillment_channel_code": "DEFAULT",
					"quantity":                 level.Quantity,
				}},
			}},
		}
		if _, err := a.client.do(ctx, http.MethodPatch, endpoint, a.headers(creds), patch); err != nil {
			return fmt.Errorf("amazon: update %s: %w", level.SKU, err)
		}
	}
	return nil
}

func (a *AmazonAdapter) headers(creds *integration.Credentials) map[string]string {
	return map[string]string{"x-amz-access-token": creds.AccessToken}
}

var _ integration.Adapter = (*AmazonAdapter)(nil)
