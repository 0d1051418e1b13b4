// Package transaction defines the unit-of-work boundary shared by the
// services that must change orders and the inventory ledger atomically.
package transaction

import (
	"context"

	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/order"
)

// Repositories exposes repositories bound to one open transaction.
type Repositories interface {
	Inventory() inventory.Repository
	Orders() order.Repository
}

// Scope runs fn inside a transaction. A non-nil error from fn, or a panic,
// rolls back every write made through repos.
type Scope interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
