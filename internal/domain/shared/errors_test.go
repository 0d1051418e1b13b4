package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := ErrInsufficientInventory.WithMessage("insufficient inventory for %s", "SKU-1")

	assert.Equal(t, "insufficient inventory for SKU-1", err.Error())
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	assert.ErrorIs(t, fmt.Errorf("order: %w", err), ErrInsufficientInventory)
	assert.NotErrorIs(t, err, ErrResourceBusy)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"resource busy", ErrResourceBusy, true},
		{"adapter unavailable wrapped", fmt.Errorf("pull: %w", ErrAdapterUnavailable), true},
		{"insufficient inventory", ErrInsufficientInventory, false},
		{"invalid signature", ErrInvalidSignature, false},
		{"malformed payload", ErrMalformedPayload, false},
		{"plain error", errors.New("connection reset"), true},
		{"deadline", context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
