// Package integration contains the Integration bounded context.
// This context connects the core to external marketplaces.
//
// Key concepts:
//   - Adapter: Port interface each marketplace implements (Amazon, Shopify, WooCommerce, Flipkart, shipping aggregators)
//   - Registry: Explicit source -> adapter lookup, built at startup and injected
//   - PlatformOrder: Value object representing an order as the marketplace reported it
//   - Integration: Entity describing a tenant's connection to one marketplace and its sync schedule
//   - CredentialProvider: Boundary to the external credential store
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
