// Package webhook implements inbound marketplace webhook intake: durable
// recording, HMAC verification, normalization and order creation.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/domain/webhook"
	"go.uber.org/zap"
)

// Headers read by the intake
const (
	HeaderSignature  = "X-Provider-Hmac-Sha256"
	HeaderEventType  = "X-Event-Type"
	HeaderTenantID   = "X-Tenant-ID"
	HeaderShopDomain = "X-Shop-Domain"
)

// MaxBodyBytes caps the webhook body read by the HTTP layer
const MaxBodyBytes = 1 << 20

// DuplicateAnnotation marks an event whose order was already stored
const DuplicateAnnotation = "duplicate"

// DefaultListLimit is the number of events List returns by default
const DefaultListLimit = 50

// Normalizer converts a raw payload into a canonical order
type Normalizer interface {
	Normalize(source string, raw []byte) (*order.CanonicalOrder, error)
}

// OrderCreator creates canonical orders with their inventory debit
type OrderCreator interface {
	Create(ctx context.Context, tenantID uuid.UUID, o *order.CanonicalOrder) (*order.CanonicalOrder, bool, error)
}

// MetricsRecorder counts intake outcomes
type MetricsRecorder interface {
	RecordWebhookEvent(source, state string)
}

// ReceiveResult is returned to the marketplace for every delivery
type ReceiveResult struct {
	EventID  uuid.UUID
	Accepted bool
	State    webhook.State
	Error    string
	OrderID  *uuid.UUID
}

// IntakeService processes inbound webhooks
type IntakeService struct {
	events        webhook.Repository
	integrations  integration.IntegrationRepository
	credentials   integration.CredentialProvider
	normalizer    Normalizer
	orders        OrderCreator
	defaultTenant uuid.UUID
	metrics       MetricsRecorder
	logger        *zap.Logger
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(
	events webhook.Repository,
	integrations integration.IntegrationRepository,
	credentials integration.CredentialProvider,
	normalizer Normalizer,
	orders OrderCreator,
) *IntakeService {
	return &IntakeService{
		events:       events,
		integrations: integrations,
		credentials:  credentials,
		normalizer:   normalizer,
		orders:       orders,
		logger:       zap.NewNop(),
	}
}

// SetDefaultTenant sets the tenant used when a delivery carries none
func (s *IntakeService) SetDefaultTenant(id uuid.UUID) {
	s.defaultTenant = id
}

// SetMetrics sets the metrics recorder
func (s *IntakeService) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// SetLogger sets the logger
func (s *IntakeService) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Receive records a delivery and runs it through verification,
// normalization and order creation. Only a failure to record the delivery
// is returned as an error; every later failure is annotated on the event.
func (s *IntakeService) Receive(ctx context.Context, source string, headers http.Header, body []byte) (*ReceiveResult, error) {
	src := integration.ParseSource(source)
	tenantID := s.resolveTenant(ctx, src, headers)

	event := webhook.NewEvent(src.String(), eventType(headers), tenantID, body)
	event.Signature = headers.Get(HeaderSignature)
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}

	if s.verify(ctx, event, event.Signature) {
		s.process(ctx, event)
	}
	s.save(ctx, event)
	return resultOf(event), nil
}

// Replay reprocesses a recorded event. An event that already passed
// verification resumes at normalization; one that stopped before it (no
// tenant, credential lookup failure) is verified against the stored
// signature header first. Replays are idempotent because order creation
// deduplicates on the external id.
func (s *IntakeService) Replay(ctx context.Context, tenantID, eventID uuid.UUID) (*ReceiveResult, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.TenantID != nil && *event.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	if event.State == webhook.StateRejected {
		return nil, shared.ErrInvalidState.WithMessage("rejected webhook %s cannot be replayed", eventID)
	}

	event.TenantID = &tenantID
	event.Error = ""
	if event.State.IsVerified() {
		event.Advance(webhook.StateVerified)
		s.process(ctx, event)
	} else if s.verify(ctx, event, event.Signature) {
		s.process(ctx, event)
	}
	s.save(ctx, event)
	return resultOf(event), nil
}

// List returns the tenant's most recent events
func (s *IntakeService) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]webhook.Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.events.ListRecent(ctx, tenantID, limit)
}

// verify checks the delivery signature and moves the event to VERIFIED.
func (s *IntakeService) verify(ctx context.Context, event *webhook.Event, signature string) bool {
	if event.TenantID == nil {
		event.Fail(shared.ErrValidation.WithMessage("tenant could not be resolved"))
		return false
	}

	creds, err := s.credentials.Credentials(ctx, *event.TenantID, integration.Source(event.Source))
	switch {
	case errors.Is(err, integration.ErrCredentialsNotFound):
		creds = nil
	case err != nil:
		event.Fail(shared.ErrAdapterUnavailable.WithMessage("credential lookup failed: %v", err))
		return false
	}

	if creds.RequiresSignature() && !VerifySignature(creds.WebhookSecret, event.RawPayload, signature) {
		event.Reject(shared.ErrInvalidSignature)
		s.logger.Warn("webhook signature rejected",
			zap.String("event_id", event.ID.String()),
			zap.String("source", event.Source),
		)
		return false
	}
	event.Advance(webhook.StateVerified)
	return true
}

// process runs normalization and order creation on a VERIFIED event.
func (s *IntakeService) process(ctx context.Context, event *webhook.Event) {
	canonical, err := s.normalizer.Normalize(event.Source, event.RawPayload)
	if err != nil {
		event.Fail(err)
		return
	}
	event.Advance(webhook.StateNormalized)
	if canonical == nil {
		event.Advance(webhook.StateAcked)
		return
	}
	event.ExternalID = canonical.ExternalID

	created, isNew, err := s.orders.Create(ctx, *event.TenantID, canonical)
	if err != nil {
		event.Fail(err)
		return
	}
	orderID := created.ID
	event.OrderID = &orderID
	if !isNew {
		event.Error = DuplicateAnnotation
	}
	event.Advance(webhook.StateLedgerUpdated)
	event.Advance(webhook.StateAcked)
}

func (s *IntakeService) save(ctx context.Context, event *webhook.Event) {
	if err := s.events.Update(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("failed to update webhook event",
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(event.Source, event.State.String())
	}
	s.logger.Info("webhook processed",
		zap.String("event_id", event.ID.String()),
		zap.String("source", event.Source),
		zap.String("state", event.State.String()),
		zap.String("error", event.Error),
	)
}

func (s *IntakeService) resolveTenant(ctx context.Context, source integration.Source, headers http.Header) *uuid.UUID {
	if raw := strings.TrimSpace(headers.Get(HeaderTenantID)); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return &id
		}
	}
	if domain := strings.TrimSpace(headers.Get(HeaderShopDomain)); domain != "" && s.integrations != nil {
		if in, err := s.integrations.FindByShopDomain(ctx, source, strings.ToLower(domain)); err == nil {
			id := in.TenantID
			return &id
		}
	}
	if s.defaultTenant != uuid.Nil {
		id := s.defaultTenant
		return &id
	}
	return nil
}

func eventType(headers http.Header) string {
	if t := headers.Get(HeaderEventType); t != "" {
		return t
	}
	return headers.Get("X-Shopify-Topic")
}

func resultOf(event *webhook.Event) *ReceiveResult {
	return &ReceiveResult{
		EventID:  event.ID,
		Accepted: event.State == webhook.StateAcked,
		State:    event.State,
		Error:    event.Error,
		OrderID:  event.OrderID,
	}
}
