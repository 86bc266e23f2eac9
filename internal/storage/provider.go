package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"photoportal/internal/sentinel"
	"photoportal/internal/storage/credentials"
	"photoportal/internal/storage/tracer"
	"photoportal/internal/tenant/models"
	dErrors "photoportal/pkg/domain-errors"
)

// BuildFunc constructs an ObjectStore from credentials. Production uses
// NewS3Store; the demo environment injects a shared in-memory store.
type BuildFunc func(creds Credentials) (ObjectStore, error)

// Provider resolves the object store for a tenant. Resolution order: the
// tenant's inline credentials, the tenant's row in the credential store, the
// shared default row, and finally the statically configured fallback. Built
// clients are cached per credential set.
type Provider struct {
	creds    credentials.Store
	fallback Credentials
	build    BuildFunc
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]ObjectStore

	group singleflight.Group
}

// NewProvider creates a Provider. A nil build falls back to NewS3Store.
func NewProvider(creds credentials.Store, fallback Credentials, build BuildFunc, logger *slog.Logger) *Provider {
	if build == nil {
		build = func(c Credentials) (ObjectStore, error) {
			return NewS3Store(c, tracer.NewOTel())
		}
	}
	return &Provider{
		creds:    creds,
		fallback: fallback,
		build:    build,
		logger:   logger,
		cache:    make(map[string]ObjectStore),
	}
}

// ForTenant resolves the tenant's object store.
func (p *Provider) ForTenant(ctx context.Context, t *models.Tenant) (ObjectStore, error) {
	if t.HasOwnCredentials() {
		return p.storeFor(Credentials{
			KeyID:    t.StorageKeyID,
			Key:      t.StorageKey,
			Bucket:   t.StorageBucket,
			Endpoint: p.fallback.Endpoint,
		})
	}

	cred, err := p.creds.FindByTenant(ctx, t.ID)
	if err == nil {
		return p.storeFor(p.toCredentials(cred))
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to resolve storage credentials")
	}

	return p.Default(ctx)
}

// Default resolves the shared object store used by tenants without
// credentials of their own.
func (p *Provider) Default(ctx context.Context) (ObjectStore, error) {
	cred, err := p.creds.FindDefault(ctx)
	if err == nil {
		return p.storeFor(p.toCredentials(cred))
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to resolve storage credentials")
	}

	return p.storeFor(p.fallback)
}

// AggregateSize computes total bytes and object count under the prefix,
// deduplicating concurrent identical scans.
func (p *Provider) AggregateSize(ctx context.Context, store ObjectStore, prefix string) (int64, int, error) {
	type result struct {
		total int64
		count int
	}
	v, err, _ := p.group.Do("aggregate:"+prefix, func() (any, error) {
		total, count, err := store.AggregateSize(ctx, prefix)
		if err != nil {
			return nil, err
		}
		return result{total: total, count: count}, nil
	})
	if err != nil {
		return 0, 0, err
	}
	res := v.(result)
	return res.total, res.count, nil
}

func (p *Provider) toCredentials(cred *credentials.Credential) Credentials {
	c := Credentials{
		KeyID:    cred.KeyID,
		Key:      cred.Key,
		Bucket:   cred.BucketName,
		Endpoint: cred.Endpoint,
	}
	if c.Bucket == "" {
		c.Bucket = p.fallback.Bucket
	}
	if c.Endpoint == "" {
		c.Endpoint = p.fallback.Endpoint
	}
	return c
}

func (p *Provider) storeFor(creds Credentials) (ObjectStore, error) {
	key := fmt.Sprintf("%s|%s|%s", creds.KeyID, creds.Bucket, creds.Endpoint)

	p.mu.Lock()
	defer p.mu.Unlock()
	if store, ok := p.cache[key]; ok {
		return store, nil
	}

	store, err := p.build(creds)
	if err != nil {
		return nil, err
	}
	p.cache[key] = store
	return store, nil
}
