package ecommerce

import (
	"context"
	"fmt"
	"net/http"

	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/tidwall/gjson"
)

var shopifyOrderPaths = orderPaths{
	ExternalID: []string{"id", "order_number"},
	Status:     []string{"financial_status", "status"},
	Total:      []string{"total_price"},
	Currency:   []string{"currency"},
	Items:      []string{"line_items", "items"},
	SKU:        []string{"sku", "variant_id"},
	Name:       []string{"name", "title"},
	Quantity:   []string{"quantity"},
	Price:      []string{"price"},
}

// ShopifyAdapter talks to the Shopify Admin REST API of one store
type ShopifyAdapter struct {
	baseAdapter
}

// NewShopifyAdapter creates a new Shopify adapter
func NewShopifyAdapter(cfg ClientConfig) *ShopifyAdapter {
	return &ShopifyAdapter{baseAdapter: newBaseAdapter(integration.SourceShopify, "USD", cfg, shopifyOrderPaths)}
}

// PullOrders fetches the store's recent orders
func (a *ShopifyAdapter) PullOrders(ctx context.Context, creds *integration.Credentials) ([]integration.PlatformOrder, error) {
	base, err := a.adminURL(creds)
	if err != nil {
		return nil, err
	}
	body, err := a.client.do(ctx, http.MethodGet, base+"/orders.json?status=any&limit=250", a.headers(creds), nil)
	if err != nil {
		return nil, err
	}
	return parseOrderList(body, "orders", a.paths)
}

// PullInventory sums the available quantity of every inventory item across
// locations.
func (a *ShopifyAdapter) PullInventory(ctx context.Context, creds *integration.Credentials) ([]integration.StockLevel, error) {
	items, err := a.inventoryItems(ctx, creds)
	if err != nil {
		return nil, err
	}
	levels := make([]integration.StockLevel, 0, len(items))
	for _, it := range items {
		levels = append(levels, integration.StockLevel{SKU: it.sku, Quantity: it.available})
	}
	return levels, nil
}

// UpdateInventory sets the available quantity of each SKU at its first
// location. SKUs unknown to the store are skipped.
func (a *ShopifyAdapter) UpdateInventory(ctx context.Context, creds *integration.Credentials, levels []integration.StockLevel) error {
	base, err := a.adminURL(creds)
	if err != nil {
		return err
	}
	items, err := a.inventoryItems(ctx, creds)
	if err != nil {
		return err
	}
	bySKU := make(map[string]shopifyItem, len(items))
	for _, it := range items {
		bySKU[it.sku] = it
	}

	for _, level := range levels {
		it, ok := bySKU[level.SKU]
		if !ok || it.locationID == 0 {
			continue
		}
		payload := map[string]any{
			"location_id":       it.locationID,
			"inventory_item_id": it.id,
			"available":         level.Quantity,
		}
		if _, err := a.client.do(ctx, http.MethodPost, base+"/inventory_levels/set.json", a.headers(creds), payload); err != nil {
			return fmt.Errorf("shopify: set %s: %w", level.SKU, err)
		}
	}
	return nil
}

type shopifyItem struct {
	id         int64
	sku        string
	locationID int64
	available  int
}

func (a *ShopifyAdapter) inventoryItems(ctx context.Context, creds *integration.Credentials) ([]shopifyItem, error) {
	base, err := a.adminURL(creds)
	if err != nil {
		return nil, err
	}
	headers := a.headers(creds)

	itemsBody, err := a.client.do(ctx, http.MethodGet, base+"/inventory_items.json?limit=250", headers, nil)
	if err != nil {
		return nil, err
	}
	levelsBody, err := a.client.do(ctx, http.MethodGet, base+"/inventory_levels.json?limit=250", headers, nil)
	if err != nil {
		return nil, err
	}

	type level struct {
		location  int64
		available int
	}
	byItem := map[int64][]level{}
	for _, l := range gjson.GetBytes(levelsBody, "inventory_levels").Array() {
		id := l.Get("inventory_item_id").Int()
		byItem[id] = append(byItem[id], level{location: l.Get("location_id").Int(), available: int(l.Get("available").Int())})
	}

	var out []shopifyItem
	for _, raw := range gjson.GetBytes(itemsBody, "inventory_items").Array() {
		sku := firstString(raw, "sku")
		if sku == "" {
			continue
		}
		it := shopifyItem{id: raw.Get("id").Int(), sku: sku}
		for i, l := range byItem[it.id] {
			if i == 0 {
				it.locationID = l.location
			}
			if l.available > 0 {
				it.available += l.available
			}
		}
		out = append(out, it)
	}
	return out, nil
}

func (a *ShopifyAdapter) adminURL(creds *integration.Credentials) (string, error) {
	if creds == nil {
		return "", shared.ErrValidation.WithMessage("shopify: credentials are required")
	}
	root, err := a.config.storeURL(creds.ShopDomain)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/admin/api/%s", root, ShopifyAPIVersion), nil
}

func (a *ShopifyAdapter) headers(creds *integration.Credentials) map[string]string {
	return map[string]string{"X-Shopify-Access-Token": creds.AccessToken}
}

var _ integration.Adapter = (*ShopifyAdapter)(nil)
