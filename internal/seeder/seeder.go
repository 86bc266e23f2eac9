// Package seeder provisions demo data for local development: a platform
// admin account and a demo tenant with its own tenant admin. Seeding is
// idempotent; fixtures that already exist are left alone.
package seeder

import (
	"context"
	"log/slog"

	authservice "photoportal/internal/auth/service"
	tenantservice "photoportal/internal/tenant/service"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
)

const (
	adminEmail    = "admin@photoportal.local"
	adminPassword = "admin-change-me"

	demoSubdomain     = "demo"
	demoAdminEmail    = "demo@photoportal.local"
	demoAdminPassword = "demo-change-me"
)

// Seeder provisions the demo fixtures.
type Seeder struct {
	accounts *authservice.AuthService
	tenants  *tenantservice.TenantService
	logger   *slog.Logger
}

// New creates a Seeder.
func New(accounts *authservice.AuthService, tenants *tenantservice.TenantService, logger *slog.Logger) *Seeder {
	return &Seeder{accounts: accounts, tenants: tenants, logger: logger}
}

// Seed creates the platform admin and the demo tenant. Safe to run on every
// start.
func (s *Seeder) Seed(ctx context.Context) error {
	if err := s.seedAdmin(ctx); err != nil {
		return err
	}
	return s.seedDemoTenant(ctx)
}

func (s *Seeder) seedAdmin(ctx context.Context) error {
	_, err := s.accounts.CreateUser(ctx, authservice.CreateUserInput{
		TenantID: id.TenantID{},
		Email:    adminEmail,
		Password: adminPassword,
		IsAdmin:  true,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil
		}
		return err
	}
	s.logger.InfoContext(ctx, "seeded platform admin", "email", adminEmail)
	return nil
}

func (s *Seeder) seedDemoTenant(ctx context.Context) error {
	tenant, err := s.tenants.Create(ctx, tenantservice.CreateInput{
		Subdomain:     demoSubdomain,
		Name:          "Demo Studio",
		Email:         demoAdminEmail,
		AdminEmail:    demoAdminEmail,
		AdminPassword: demoAdminPassword,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil
		}
		return err
	}
	s.logger.InfoContext(ctx, "seeded demo tenant",
		"tenant_id", tenant.ID,
		"subdomain", tenant.Subdomain,
	)
	return nil
}
