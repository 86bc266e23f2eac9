package resolver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"photoportal/internal/sentinel"
	"photoportal/internal/tenant/models"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/requestcontext"
)

type fakeDirectory struct {
	bySubdomain map[string]*models.Tenant
	byID        map[id.TenantID]*models.Tenant
	err         error
}

func (f *fakeDirectory) FindBySubdomain(_ context.Context, subdomain string) (*models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.bySubdomain[subdomain]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t, nil
}

func (f *fakeDirectory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.byID[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t, nil
}

type ResolverSuite struct {
	suite.Suite

	now      time.Time
	ctx      context.Context
	dir      *fakeDirectory
	resolver *Resolver
	acme     *models.Tenant
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithNow(context.Background(), s.now)

	acme, err := models.NewTenant(id.TenantID(uuid.New()), "acme", "Acme Corp", "ops@acme.test", 500, nil, s.now)
	s.Require().NoError(err)
	s.acme = acme

	s.dir = &fakeDirectory{
		bySubdomain: map[string]*models.Tenant{"acme": acme},
		byID:        map[id.TenantID]*models.Tenant{acme.ID: acme},
	}
	s.resolver = New(s.dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *ResolverSuite) TestCandidateSubdomain() {
	cases := []struct {
		name string
		host string
		want string
		ok   bool
	}{
		{"three labels", "acme.photos.example", "acme", true},
		{"three labels with port", "acme.photos.example:8080", "acme", true},
		{"four labels", "a.b.photos.example", "a", true},
		{"bare two-label domain", "example.com", "example", true},
		{"www two-label", "www.example", "", false},
		{"admin two-label", "admin.example", "", false},
		{"single label", "localhost", "", false},
		{"single label with port", "localhost:8080", "", false},
		{"trailing dot", "acme.photos.example.", "acme", true},
		{"uppercase host", "ACME.Photos.Example", "acme", true},
		{"empty host", "", "", false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			got, ok := CandidateSubdomain(tc.host)
			s.Equal(tc.ok, ok)
			s.Equal(tc.want, got)
		})
	}
}

func (s *ResolverSuite) TestResolveHostKnownSubdomain() {
	res, err := s.resolver.ResolveHost(s.ctx, "acme.photos.example", "/api/photos")
	s.Require().NoError(err)
	s.False(res.IsAdmin)
	s.Require().NotNil(res.Tenant)
	s.Equal("acme", res.Tenant.Subdomain)
}

func (s *ResolverSuite) TestResolveHostUnknownSubdomainIsNotFound() {
	_, err := s.resolver.ResolveHost(s.ctx, "ghost.photos.example", "/api/photos")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ResolverSuite) TestResolveHostInactiveTenantIsNotFound() {
	s.Require().NoError(s.acme.Deactivate(s.now))

	_, err := s.resolver.ResolveHost(s.ctx, "acme.photos.example", "/api/photos")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ResolverSuite) TestResolveHostExpiredTenantIsForbidden() {
	expired := s.now.Add(-time.Hour)
	s.acme.ExpiresAt = &expired

	_, err := s.resolver.ResolveHost(s.ctx, "acme.photos.example", "/api/photos")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ResolverSuite) TestResolveHostAdminSubdomain() {
	res, err := s.resolver.ResolveHost(s.ctx, "admin.photos.example", "/api/photos")
	s.Require().NoError(err)
	s.True(res.IsAdmin)
	s.Nil(res.Tenant)
}

func (s *ResolverSuite) TestResolveHostAdminPathSkipsLookup() {
	// Must not fail even when the subdomain is unknown.
	res, err := s.resolver.ResolveHost(s.ctx, "ghost.photos.example", "/api/admin/tenants")
	s.Require().NoError(err)
	s.True(res.IsAdmin)
}

func (s *ResolverSuite) TestResolveHostVersionPathSkipsLookup() {
	res, err := s.resolver.ResolveHost(s.ctx, "ghost.photos.example", "/api/version")
	s.Require().NoError(err)
	s.True(res.IsAdmin)
}

func (s *ResolverSuite) TestResolveHostNoSubdomainPassesThrough() {
	res, err := s.resolver.ResolveHost(s.ctx, "www.example", "/api/photos")
	s.Require().NoError(err)
	s.False(res.IsAdmin)
	s.Nil(res.Tenant)
}

func (s *ResolverSuite) TestResolveHostDirectoryFailureIsUnavailable() {
	s.dir.err = sentinel.ErrUnavailable

	_, err := s.resolver.ResolveHost(s.ctx, "acme.photos.example", "/api/photos")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ResolverSuite) TestResolveForPrincipal() {
	tenant, err := s.resolver.ResolveForPrincipal(s.ctx, s.acme.ID)
	s.Require().NoError(err)
	s.Equal(s.acme.Subdomain, tenant.Subdomain)
}

func (s *ResolverSuite) TestResolveForPrincipalNoAssociationIsForbidden() {
	_, err := s.resolver.ResolveForPrincipal(s.ctx, id.TenantID{})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ResolverSuite) TestResolveForPrincipalInactiveIsForbidden() {
	s.Require().NoError(s.acme.Deactivate(s.now))

	_, err := s.resolver.ResolveForPrincipal(s.ctx, s.acme.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ResolverSuite) TestContextRoundTrip() {
	ctx := WithResolved(context.Background(), &Resolved{Tenant: s.acme})
	tenant, ok := TenantFromContext(ctx)
	s.True(ok)
	s.Equal(s.acme.ID, tenant.ID)

	_, ok = TenantFromContext(context.Background())
	s.False(ok)
}
