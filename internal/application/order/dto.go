package order

import (
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ManualOrderInput is a canonical order posted directly to the API
type ManualOrderInput struct {
	Source      string
	ExternalID  string
	Status      string
	TotalAmount *decimal.Decimal
	Currency    string
	Items       []ManualOrderItem
	RawPayload  []byte
}

// ManualOrderItem is one line of a ManualOrderInput
type ManualOrderItem struct {
	SKU       string
	Name      string
	Quantity  *int
	UnitPrice *decimal.Decimal
}

func (in ManualOrderInput) toPlatformOrder() *integration.PlatformOrder {
	po := &integration.PlatformOrder{
		ExternalID:  in.ExternalID,
		Status:      in.Status,
		TotalAmount: in.TotalAmount,
		Currency:    in.Currency,
		RawData:     in.RawPayload,
		Items:       make([]integration.PlatformOrderItem, 0, len(in.Items)),
	}
	for _, it := range in.Items {
		po.Items = append(po.Items, integration.PlatformOrderItem{
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	if len(po.RawData) == 0 {
		po.RawData = []byte("{}")
	}
	return po
}
