package ecommerce

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/infrastructure/config"
)

type credentialKey struct {
	tenantID uuid.UUID
	source   integration.Source
}

// ConfigCredentialProvider serves credentials injected through configuration
// by the external secret store. Nothing is written back.
type ConfigCredentialProvider struct {
	entries map[credentialKey]integration.Credentials
}

// NewConfigCredentialProvider indexes the configured credentials
func NewConfigCredentialProvider(entries []config.CredentialConfig) (*ConfigCredentialProvider, error) {
	p := &ConfigCredentialProvider{entries: make(map[credentialKey]integration.Credentials, len(entries))}
	for i, e := range entries {
		tenantID, err := uuid.Parse(e.TenantID)
		if err != nil {
			return nil, fmt.Errorf("credentials[%d]: invalid tenant id: %w", i, err)
		}
		source := integration.ParseSource(e.Source)
		if !source.IsValid() {
			return nil, fmt.Errorf("credentials[%d]: %w: %s", i, integration.ErrInvalidSource, e.Source)
		}
		p.entries[credentialKey{tenantID: tenantID, source: source}] = integration.Credentials{
			ShopDomain:    e.ShopDomain,
			AccessToken:   e.AccessToken,
			WebhookSecret: e.WebhookSecret,
		}
	}
	return p, nil
}

// Credentials returns a copy of the tenant's credentials for source
func (p *ConfigCredentialProvider) Credentials(_ context.Context, tenantID uuid.UUID, source integration.Source) (*integration.Credentials, error) {
	creds, ok := p.entries[credentialKey{tenantID: tenantID, source: source}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrCredentialsNotFound, source)
	}
	return &creds, nil
}

var _ integration.CredentialProvider = (*ConfigCredentialProvider)(nil)
