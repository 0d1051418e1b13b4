package persistence

import (
	"errors"

	"github.com/omnisync/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps gorm's translated driver errors onto the domain taxonomy.
// Errors it does not recognise are returned unchanged.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return shared.ErrValidation.WithMessage("constraint violated: %v", err)
	default:
		return err
	}
}

// clampLimit bounds a caller supplied page size.
func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
