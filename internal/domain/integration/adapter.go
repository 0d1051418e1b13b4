package integration

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ---------------------------------------------------------------------------
// Adapter Errors
// ---------------------------------------------------------------------------

var (
	ErrAdapterNotFound       = errors.New("integration: adapter not registered")
	ErrOperationNotSupported = errors.New("integration: operation not supported by adapter")
	ErrCredentialsNotFound   = errors.New("integration: credentials not found")
	ErrInvalidSource         = errors.New("integration: invalid source")
)

// ---------------------------------------------------------------------------
// Source identifies a marketplace or logistics provider
// ---------------------------------------------------------------------------

// Source identifies the external system an event or job belongs to
type Source string

const (
	// SourceAmazon represents Amazon Seller Central
	SourceAmazon Source = "AMAZON"
	// SourceShopify represents Shopify stores
	SourceShopify Source = "SHOPIFY"
	// SourceWoo represents WooCommerce stores
	SourceWoo Source = "WOO"
	// SourceFlipkart represents Flipkart Seller Hub
	SourceFlipkart Source = "FLIPKART"
	// SourceShipping represents a shipping rates/labels aggregator, which produces no orders
	SourceShipping Source = "SHIPPING"
)

// ParseSource normalizes a path or payload value into a Source.
func ParseSource(s string) Source {
	// Casers carry state and are not safe to share between goroutines.
	return Source(cases.Upper(language.Und).String(strings.TrimSpace(s)))
}

// IsValid returns true if the source is one of the known providers
func (s Source) IsValid() bool {
	switch s {
	case SourceAmazon, SourceShopify, SourceWoo, SourceFlipkart, SourceShipping:
		return true
	default:
		return false
	}
}

// String returns the string representation of Source
func (s Source) String() string {
	return string(s)
}

// MarketplaceSources lists the order-producing marketplaces, in the order
// inventory broadcasts fan out to them.
func MarketplaceSources() []Source {
	return []Source{SourceAmazon, SourceShopify, SourceWoo, SourceFlipkart}
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// PlatformOrder is an order as an adapter extracted it from a marketplace
// payload. Optional values are pointers so the normalizer can tell "missing"
// apart from "zero" when it applies defaults.
type PlatformOrder struct {
	// ExternalID is the marketplace order id, empty when the payload has none
	ExternalID string
	// Status is the marketplace status string, empty when absent
	Status string
	// TotalAmount is the order total, nil when absent
	TotalAmount *decimal.Decimal
	// Currency is the ISO-4217 code reported by the marketplace
	Currency string
	// Items contains the order line items
	Items []PlatformOrderItem
	// RawData is the payload the order was extracted from
	RawData []byte
}

// PlatformOrderItem is a line item as reported by the marketplace
type PlatformOrderItem struct {
	SKU       string
	Name      string
	Quantity  *int
	UnitPrice *decimal.Decimal
}

// StockLevel is an absolute stock count for one SKU
type StockLevel struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Credentials are the decrypted secrets for one tenant's marketplace connection.
// They come from the external credential store and are never persisted by the core.
type Credentials struct {
	ShopDomain    string
	AccessToken   string
	WebhookSecret string
}

// RequiresSignature reports whether inbound webhooks must carry a valid HMAC.
func (c *Credentials) RequiresSignature() bool {
	return c != nil && c.WebhookSecret != ""
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// Adapter is the uniform contract each marketplace integration implements.
//
// ToOrder translates a webhook payload into a PlatformOrder. It returns
// (nil, nil) for providers with no order semantics. It only fails with
// shared.ErrMalformedPayload when the body cannot be interpreted at all.
//
// The remaining methods talk to the marketplace and must honour ctx deadlines.
// Network failures and timeouts surface as shared.ErrAdapterUnavailable.
type Adapter interface {
	Source() Source
	DefaultCurrency() string
	ToOrder(raw []byte) (*PlatformOrder, error)
	PullOrders(ctx context.Context, creds *Credentials) ([]PlatformOrder, error)
	PullInventory(ctx context.Context, creds *Credentials) ([]StockLevel, error)
	UpdateInventory(ctx context.Context, creds *Credentials, levels []StockLevel) error
}

// CredentialProvider is the boundary to the external credential store.
type CredentialProvider interface {
	// Credentials returns ErrCredentialsNotFound when the tenant has not
	// connected the source.
	Credentials(ctx context.Context, tenantID uuid.UUID, source Source) (*Credentials, error)
}
