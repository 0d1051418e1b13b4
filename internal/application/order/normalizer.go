// Package order turns marketplace payloads into canonical orders and creates
// them atomically with the inventory debit they imply.
package order

import (
	"errors"
	"strings"

	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/text/currency"
)

// FallbackCurrency is used for orders whose source has no adapter, such as
// manually posted orders.
const FallbackCurrency = "USD"

// Normalizer maps adapter output onto the canonical order shape
type Normalizer struct {
	registry *integration.Registry
}

// NewNormalizer creates a normalizer backed by the given adapter registry
func NewNormalizer(registry *integration.Registry) *Normalizer {
	return &Normalizer{registry: registry}
}

// Normalize parses a raw marketplace payload. It returns (nil, nil) when the
// source produces no orders.
func (n *Normalizer) Normalize(source string, raw []byte) (*order.CanonicalOrder, error) {
	src := integration.ParseSource(source)
	adapter, err := n.registry.Get(src)
	if err != nil {
		if errors.Is(err, integration.ErrAdapterNotFound) {
			return nil, shared.ErrUnknownSource.WithMessage("no adapter registered for source %q", source)
		}
		return nil, err
	}

	if !isJSONObject(raw) {
		return nil, shared.ErrMalformedPayload
	}

	po, err := adapter.ToOrder(raw)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, nil
	}
	if po.RawData == nil {
		po.RawData = raw
	}
	return Canonicalize(src.String(), adapter.DefaultCurrency(), po), nil
}

// FromPlatformOrder canonicalizes an order an adapter already extracted,
// for example one returned by PullOrders.
func (n *Normalizer) FromPlatformOrder(source integration.Source, po *integration.PlatformOrder) (*order.CanonicalOrder, error) {
	adapter, err := n.registry.Get(source)
	if err != nil {
		return nil, shared.ErrUnknownSource.WithMessage("no adapter registered for source %q", source)
	}
	if po == nil {
		return nil, shared.ErrMalformedPayload
	}
	return Canonicalize(source.String(), adapter.DefaultCurrency(), po), nil
}

// Canonicalize applies the defaulting rules shared by every source: quantity
// at least 1, price 0, SKU UNKNOWN, name falls back to SKU, status NEW, an
// ISO-4217 currency and a total computed from the lines when absent.
func Canonicalize(source, defaultCurrency string, po *integration.PlatformOrder) *order.CanonicalOrder {
	o := &order.CanonicalOrder{
		Source:     source,
		ExternalID: strings.TrimSpace(po.ExternalID),
		Status:     strings.TrimSpace(po.Status),
		Currency:   normalizeCurrency(po.Currency, defaultCurrency),
		RawPayload: po.RawData,
		Items:      make([]order.Item, 0, len(po.Items)),
	}
	if o.Status == "" {
		o.Status = order.DefaultStatus
	}

	computed := decimal.Zero
	for _, it := range po.Items {
		item := coerceItem(it)
		computed = computed.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		o.Items = append(o.Items, item)
	}

	if po.TotalAmount != nil {
		o.TotalAmount = *po.TotalAmount
	} else {
		o.TotalAmount = computed
	}
	return o
}

func coerceItem(it integration.PlatformOrderItem) order.Item {
	sku := strings.TrimSpace(it.SKU)
	if sku == "" {
		sku = order.UnknownSKU
	}
	name := strings.TrimSpace(it.Name)
	if name == "" {
		name = sku
	}
	qty := 1
	if it.Quantity != nil && *it.Quantity > 0 {
		qty = *it.Quantity
	}
	price := decimal.Zero
	if it.UnitPrice != nil {
		price = *it.UnitPrice
	}
	return order.Item{SKU: sku, Name: name, Quantity: qty, UnitPrice: &price}
}

func normalizeCurrency(code, fallback string) string {
	if unit, err := currency.ParseISO(strings.TrimSpace(code)); err == nil {
		return unit.String()
	}
	if unit, err := currency.ParseISO(fallback); err == nil {
		return unit.String()
	}
	return FallbackCurrency
}

func isJSONObject(raw []byte) bool {
	return gjson.ValidBytes(raw) && gjson.ParseBytes(raw).IsObject()
}
