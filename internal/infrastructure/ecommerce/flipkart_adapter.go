package ecommerce

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/tidwall/gjson"
)

var flipkartOrderPaths = orderPaths{
	ExternalID: []string{"id", "orderId", "orderItemId"},
	Status:     []string{"status"},
	Total:      []string{"total", "priceComponents.totalPrice"},
	Currency:   []string{"currency"},
	Items:      []string{"items", "orderItems"},
	SKU:        []string{"sku", "productId", "fsn"},
	Name:       []string{"title", "name"},
	Quantity:   []string{"quantity"},
	Price:      []string{"price", "priceComponents.sellingPrice"},
}

// FlipkartAdapter talks to the Flipkart Seller API. The credentials'
// ShopDomain carries the seller location id used for stock updates.
type FlipkartAdapter struct {
	baseAdapter
}

// NewFlipkartAdapter creates a new Flipkart adapter
func NewFlipkartAdapter(cfg ClientConfig) *FlipkartAdapter {
	return &FlipkartAdapter{baseAdapter: newBaseAdapter(integration.SourceFlipkart, "INR", cfg, flipkartOrderPaths)}
}

// PullOrders fetches approved shipments awaiting dispatch
func (a *FlipkartAdapter) PullOrders(ctx context.Context, creds *integration.Credentials) ([]integration.PlatformOrder, error) {
	if creds == nil {
		return nil, shared.ErrValidation.WithMessage("flipkart: credentials are required")
	}
	filter := map[string]any{
		"filter": map[string]any{
			"type":   "preDispatch",
			"states": []string{"APPROVED"},
		},
	}
	body, err := a.client.do(ctx, http.MethodPost, a.config.apiURL(FlipkartProductionAPIURL)+"/v3/shipments/filter", a.headers(creds), filter)
	if err != nil {
		return nil, err
	}
	return parseOrderList(body, "shipments", a.paths)
}

// PullInventory is not offered by the seller API as a listing call
func (a *FlipkartAdapter) PullInventory(context.Context, *integration.Credentials) ([]integration.StockLevel, error) {
	return nil, integration.ErrOperationNotSupported
}

// UpdateInventory pushes all stock counts in one call. The response reports
// a status per SKU; any non-success entry fails the update.
func (a *FlipkartAdapter) UpdateInventory(ctx context.Context, creds *integration.Credentials, levels []integration.StockLevel) error {
	if creds == nil || creds.ShopDomain == "" {
		return shared.ErrValidation.WithMessage("flipkart: location id is required")
	}
	if len(levels) == 0 {
		return nil
	}
	payload := make(map[string]any, len(levels))
	for _, level := range levels {
		payload[level.SKU] = map[string]any{
			"locations": []map[string]any{{"id": creds.ShopDomain, "inventory": level.Quantity}},
		}
	}
	body, err := a.client.do(ctx, http.MethodPost, a.config.apiURL(FlipkartProductionAPIURL)+"/listings/v3/update/inventory", a.headers(creds), payload)
	if err != nil {
		return err
	}

	var failed []string
	gjson.ParseBytes(body).ForEach(func(sku, result gjson.Result) bool {
		if status := result.Get("status").String(); status != "" && !strings.EqualFold(status, "SUCCESS") {
			failed = append(failed, sku.String())
		}
		return true
	})
	if len(failed) > 0 {
		sort.Strings(failed)
		return ErrRequestRejected.WithMessage("flipkart: inventory update failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func (a *FlipkartAdapter) headers(creds *integration.Credentials) map[string]string {
	return map[string]string{"Authorization": "Bearer " + creds.AccessToken}
}

var _ integration.Adapter = (*FlipkartAdapter)(nil)
