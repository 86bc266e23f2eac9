// Package token issues and verifies the signed bearer tokens used by the API.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
)

const issuer = "photoportal"

// Claims is the token payload: the user as subject plus the authorization
// facts handlers need without a store round trip.
type Claims struct {
	TenantID      string `json:"tenant_id,omitempty"`
	IsAdmin       bool   `json:"is_admin"`
	IsTenantAdmin bool   `json:"is_tenant_admin"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with a shared key.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
}

// NewIssuer creates a token issuer. TTL defaults to 24h when zero.
func NewIssuer(signingKey string, ttl time.Duration) (*Issuer, error) {
	if signingKey == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "token signing key is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{signingKey: []byte(signingKey), ttl: ttl}, nil
}

// Issue creates a signed token for the user.
func (i *Issuer) Issue(userID id.UserID, tenantID id.TenantID, isAdmin, isTenantAdmin bool, now time.Time) (string, error) {
	claims := Claims{
		IsAdmin:       isAdmin,
		IsTenantAdmin: isTenantAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	if !tenantID.IsNil() {
		claims.TenantID = tenantID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// Verify parses and validates a signed token, returning its claims.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	return &claims, nil
}

// UserID returns the subject as a typed user ID.
func (c *Claims) UserID() (id.UserID, error) {
	return id.ParseUserID(c.Subject)
}

// Tenant returns the tenant association as a typed ID, nil UUID when absent.
func (c *Claims) Tenant() (id.TenantID, error) {
	if c.TenantID == "" {
		return id.TenantID{}, nil
	}
	return id.ParseTenantID(c.TenantID)
}
