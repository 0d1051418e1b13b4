package ecommerce

import (
	"strconv"
	"strings"

	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// orderPaths lists, per field, the gjson paths tried in order. Marketplaces
// rename fields between API versions and webhook topics, so each field has
// fallbacks.
type orderPaths struct {
	ExternalID []string
	Status     []string
	Total      []string
	Currency   []string
	Items      []string

	SKU      []string
	Name     []string
	Quantity []string
	Price    []string
}

// parseOrder extracts a PlatformOrder from a webhook body. Missing fields are
// left empty for the normalizer to default; only a body that is not a JSON
// object is malformed.
func parseOrder(raw []byte, paths orderPaths) (*integration.PlatformOrder, error) {
	if !gjson.ValidBytes(raw) {
		return nil, shared.ErrMalformedPayload
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, shared.ErrMalformedPayload
	}
	po := orderFromResult(root, paths)
	po.RawData = raw
	return po, nil
}

func orderFromResult(root gjson.Result, paths orderPaths) *integration.PlatformOrder {
	po := &integration.PlatformOrder{
		ExternalID:  firstString(root, paths.ExternalID...),
		Status:      firstString(root, paths.Status...),
		TotalAmount: firstDecimal(root, paths.Total...),
		Currency:    firstString(root, paths.Currency...),
		RawData:     []byte(root.Raw),
	}
	for _, item := range firstArray(root, paths.Items...) {
		po.Items = append(po.Items, integration.PlatformOrderItem{
			SKU:       firstString(item, paths.SKU...),
			Name:      firstString(item, paths.Name...),
			Quantity:  firstInt(item, paths.Quantity...),
			UnitPrice: firstDecimal(item, paths.Price...),
		})
	}
	return po
}

// parseOrderList extracts every order found at listPath of a pull response.
func parseOrderList(body []byte, listPath string, paths orderPaths) ([]integration.PlatformOrder, error) {
	if !gjson.ValidBytes(body) {
		return nil, shared.ErrMalformedPayload.WithMessage("marketplace returned invalid JSON")
	}
	list := gjson.GetBytes(body, listPath)
	if !list.IsArray() {
		return nil, nil
	}
	var out []integration.PlatformOrder
	list.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			out = append(out, *orderFromResult(value, paths))
		}
		return true
	})
	return out, nil
}

func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

func firstString(root gjson.Result, paths ...string) string {
	for _, p := range paths {
		r := root.Get(p)
		if !present(r) || r.IsObject() || r.IsArray() {
			continue
		}
		if s := strings.TrimSpace(r.String()); s != "" {
			return s
		}
	}
	return ""
}

func firstDecimal(root gjson.Result, paths ...string) *decimal.Decimal {
	for _, p := range paths {
		r := root.Get(p)
		if !present(r) {
			continue
		}
		var raw string
		switch r.Type {
		case gjson.Number:
			raw = r.Raw
		case gjson.String:
			raw = strings.TrimSpace(r.Str)
		default:
			continue
		}
		if d, err := decimal.NewFromString(raw); err == nil {
			return &d
		}
	}
	return nil
}

func firstInt(root gjson.Result, paths ...string) *int {
	for _, p := range paths {
		r := root.Get(p)
		if !present(r) {
			continue
		}
		switch r.Type {
		case gjson.Number:
			n := int(r.Int())
			return &n
		case gjson.String:
			if n, err := strconv.Atoi(strings.TrimSpace(r.Str)); err == nil {
				return &n
			}
		}
	}
	return nil
}

func firstArray(root gjson.Result, paths ...string) []gjson.Result {
	for _, p := range paths {
		if r := root.Get(p); r.IsArray() {
			return r.Array()
		}
	}
	return nil
}

// parseStockLevels reads [{sku, quantity}] style lists from a pull response.
func parseStockLevels(body []byte, listPath string, skuPaths, qtyPaths []string) ([]integration.StockLevel, error) {
	if !gjson.ValidBytes(body) {
		return nil, shared.ErrMalformedPayload.WithMessage("marketplace returned invalid JSON")
	}
	var out []integration.StockLevel
	for _, item := range gjson.GetBytes(body, listPath).Array() {
		sku := firstString(item, skuPaths...)
		qty := firstInt(item, qtyPaths...)
		if sku == "" || qty == nil {
			continue
		}
		q := *qty
		if q < 0 {
			q = 0
		}
		out = append(out, integration.StockLevel{SKU: sku, Quantity: q})
	}
	return out, nil
}
