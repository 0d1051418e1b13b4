package persistence

import (
	"context"

	"github.com/omnisync/backend/internal/application/transaction"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/order"
	"gorm.io/gorm"
)

// GormTransactionScope implements transaction.Scope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. gorm rolls back when fn
// returns an error or panics, and commits otherwise.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos transaction.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Inventory returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Inventory() inventory.Repository {
	return NewGormInventoryRepository(r.tx)
}

// Orders returns the order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

var (
	_ transaction.Scope        = (*GormTransactionScope)(nil)
	_ transaction.Repositories = (*gormTransactionalRepositories)(nil)
)
