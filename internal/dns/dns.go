// Package dns provisions per-tenant subdomain records. Provisioning is
// best-effort: tenant lifecycle operations succeed even when the DNS provider
// is down, and a circuit breaker keeps a flapping provider from slowing tenant
// creation.
package dns

import "context"

// Provider manages the CNAME record for a tenant subdomain.
type Provider interface {
	// EnsureRecord creates the subdomain record if it does not already exist.
	EnsureRecord(ctx context.Context, subdomain string) error
	// RemoveRecord deletes the subdomain record. Removing an absent record is
	// not an error.
	RemoveRecord(ctx context.Context, subdomain string) error
}

// Noop is the provider used when no DNS backend is configured; records are
// assumed to be managed out of band (wildcard DNS or /etc/hosts in dev).
type Noop struct{}

func (Noop) EnsureRecord(context.Context, string) error { return nil }
func (Noop) RemoveRecord(context.Context, string) error { return nil }
