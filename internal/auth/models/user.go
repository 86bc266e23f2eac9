// Package models holds the user account aggregate.
package models

import (
	"strings"
	"time"

	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
)

// User is an authenticated account. Platform admins carry no tenant
// association; tenant users belong to exactly one tenant.
type User struct {
	ID             id.UserID   `json:"id"`
	TenantID       id.TenantID `json:"tenant_id,omitempty"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"-"`
	IsAdmin        bool        `json:"is_admin"`
	IsTenantAdmin  bool        `json:"is_tenant_admin"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewUser validates inputs and builds a user. The password must already be
// hashed; plaintext never reaches this layer.
func NewUser(userID id.UserID, tenantID id.TenantID, email, hashedPassword string, isAdmin, isTenantAdmin bool, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if hashedPassword == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password hash cannot be empty")
	}
	if isAdmin && !tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "platform admins cannot belong to a tenant")
	}
	if !isAdmin && tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant users require a tenant")
	}

	return &User{
		ID:             userID,
		TenantID:       tenantID,
		Email:          email,
		HashedPassword: hashedPassword,
		IsAdmin:        isAdmin,
		IsTenantAdmin:  isTenantAdmin,
		CreatedAt:      now,
	}, nil
}
