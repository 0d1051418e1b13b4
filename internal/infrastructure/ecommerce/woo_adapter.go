package ecommerce

import (
	"context"
	"net/http"

	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/tidwall/gjson"
)

var wooOrderPaths = orderPaths{
	ExternalID: []string{"id", "number"},
	Status:     []string{"status"},
	Total:      []string{"total"},
	Currency:   []string{"currency"},
	Items:      []string{"line_items", "items"},
	SKU:        []string{"sku", "product_id"},
	Name:       []string{"name"},
	Quantity:   []string{"quantity"},
	Price:      []string{"price", "total"},
}

// WooAdapter talks to the WooCommerce REST API (wc/v3) of one store
type WooAdapter struct {
	baseAdapter
}

// NewWooAdapter creates a new WooCommerce adapter
func NewWooAdapter(cfg ClientConfig) *WooAdapter {
	return &WooAdapter{baseAdapter: newBaseAdapter(integration.SourceWoo, "USD", cfg, wooOrderPaths)}
}

// PullOrders fetches the store's recent orders
func (a *WooAdapter) PullOrders(ctx context.Context, creds *integration.Credentials) ([]integration.PlatformOrder, error) {
	base, err := a.apiURL(creds)
	if err != nil {
		return nil, err
	}
	body, err := a.client.do(ctx, http.MethodGet, base+"/orders?per_page=100", a.headers(creds), nil)
	if err != nil {
		return nil, err
	}
	return parseOrderList(body, "@this", a.paths)
}

// PullInventory reads stock_quantity of every managed product
func (a *WooAdapter) PullInventory(ctx context.Context, creds *integration.Credentials) ([]integration.StockLevel, error) {
	base, err := a.apiURL(creds)
	if err != nil {
		return nil, err
	}
	body, err := a.client.do(ctx, http.MethodGet, base+"/products?per_page=100", a.headers(creds), nil)
	if err != nil {
		return nil, err
	}
	return parseStockLevels(body, "@this", []string{"sku"}, []string{"stock_quantity"})
}

// UpdateInventory pushes stock counts with one batch call. SKUs unknown to
// the store are skipped.
func (a *WooAdapter) UpdateInventory(ctx context.Context, creds *integration.Credentials, levels []integration.StockLevel) error {
	base, err := a.apiURL(creds)
	if err != nil {
		return err
	}
	body, err := a.client.do(ctx, http.MethodGet, base+"/products?per_page=100", a.headers(creds), nil)
	if err != nil {
		return err
	}
	ids := map[string]int64{}
	gjson.ParseBytes(body).ForEach(func(_, p gjson.Result) bool {
		if sku := firstString(p, "sku"); sku != "" {
			ids[sku] = p.Get("id").Int()
		}
		return true
	})

	var updates []map[string]any
	for _, level := range levels {
		if id, ok := ids[level.SKU]; ok {
			updates = append(updates, map[string]any{
				"id":             id,
				"manage_stock":   true,
				"stock_quantity": level.Quantity,
			})
		}
	}
	if len(updates) == 0 {
		return nil
	}
	_, err = a.client.do(ctx, http.MethodPost, base+"/products/batch", a.headers(creds), map[string]any{"update": updates})
	return err
}

func (a *WooAdapter) apiURL(creds *integration.Credentials) (string, error) {
	if creds == nil {
		return "", shared.ErrValidation.WithMessage("woo: credentials are required")
	}
	root, err := a.config.storeURL(creds.ShopDomain)
	if err != nil {
		return "", err
	}
	return root + "/wp-json/wc/v3", nil
}

func (a *WooAdapter) headers(creds *integration.Credentials) map[string]string {
	return map[string]string{"Authorization": "Bearer " + creds.AccessToken}
}

var _ integration.Adapter = (*WooAdapter)(nil)
