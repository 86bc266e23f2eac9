// Package service orchestrates authentication: login, identity lookup, user
// provisioning, and password management.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"photoportal/internal/auth/models"
	"photoportal/internal/auth/store"
	"photoportal/internal/auth/token"
	"photoportal/internal/sentinel"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/requestcontext"
	"photoportal/pkg/secrets"
)

// AuthService authenticates users and manages their credentials.
type AuthService struct {
	users  store.Store
	issuer *token.Issuer
	logger *slog.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(users store.Store, issuer *token.Issuer, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, issuer: issuer, logger: logger}
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token string
	User  *models.User
}

// Login verifies credentials and issues a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if err := secrets.Verify(password, user.HashedPassword); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.logger.WarnContext(ctx, "failed login attempt",
				"email", email,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, err
	}

	signed, err := s.issuer.Issue(user.ID, user.TenantID, user.IsAdmin, user.IsTenantAdmin, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: signed, User: user}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user ID is required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	return user, nil
}

// CreateUserInput describes a user to provision.
type CreateUserInput struct {
	TenantID      id.TenantID
	Email         string
	Password      string
	IsAdmin       bool
	IsTenantAdmin bool
}

// CreateUser provisions a user account with a hashed password.
func (s *AuthService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if len(in.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	hashed, err := secrets.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := models.NewUser(id.UserID(uuid.New()), in.TenantID, in.Email, hashed, in.IsAdmin, in.IsTenantAdmin, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateIfEmailAvailable(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return user, nil
}

// ChangePassword verifies the current password and replaces it.
func (s *AuthService) ChangePassword(ctx context.Context, userID id.UserID, current, next string) error {
	if len(next) < 8 {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := secrets.Verify(current, user.HashedPassword); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
		}
		return err
	}

	hashed, err := secrets.Hash(next)
	if err != nil {
		return err
	}
	user.HashedPassword = hashed

	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}
	return nil
}

// ListUsers returns users for the admin surface.
func (s *AuthService) ListUsers(ctx context.Context, offset, limit int) ([]*models.User, error) {
	users, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}
