package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State tracks how far an inbound webhook got through intake.
type State string

const (
	StateReceived      State = "RECEIVED"
	StateVerified      State = "VERIFIED"
	StateNormalized    State = "NORMALIZED"
	StateLedgerUpdated State = "LEDGER_UPDATED"
	StateAcked         State = "ACKED"
	StateRejected      State = "REJECTED"
)

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsVerified reports whether the event got past signature verification.
func (s State) IsVerified() bool {
	return s != StateReceived && s != StateRejected
}

// IsTerminal returns true once no further intake step will run.
func (s State) IsTerminal() bool {
	return s == StateAcked || s == StateRejected
}

// Event is the durable record of one inbound webhook call. It is written
// before any processing so a delivery is never silently lost, and is
// annotated with the outcome of every later step.
type Event struct {
	ID         uuid.UUID
	TenantID   *uuid.UUID
	Source     string
	EventType  string
	ExternalID string
	RawPayload []byte
	// Signature is the provider signature header as delivered, kept so an
	// event that was never verified can be checked again on replay.
	Signature  string
	State      State
	Error      string
	OrderID    *uuid.UUID
	ReceivedAt time.Time
	UpdatedAt  time.Time
}

// NewEvent creates a RECEIVED event for a raw delivery.
func NewEvent(source, eventType string, tenantID *uuid.UUID, raw []byte) *Event {
	now := time.Now().UTC()
	return &Event{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Source:     source,
		EventType:  eventType,
		RawPayload: raw,
		State:      StateReceived,
		ReceivedAt: now,
		UpdatedAt:  now,
	}
}

// Advance moves the event to the next state and clears nothing else.
func (e *Event) Advance(state State) {
	e.State = state
	e.UpdatedAt = time.Now().UTC()
}

// Fail annotates the event with the error of the step that failed. The state
// stays at the last step that succeeded.
func (e *Event) Fail(err error) {
	if err == nil {
		return
	}
	e.Error = err.Error()
	e.UpdatedAt = time.Now().UTC()
}

// Reject marks a signature failure.
func (e *Event) Reject(err error) {
	e.Fail(err)
	e.State = StateRejected
}

// Repository persists webhook events. Rows are independent and need no locking.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	Update(ctx context.Context, event *Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// ListRecent returns the tenant's newest events
	ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]Event, error)
}
