package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("test-signing-key", time.Hour)
	require.NoError(t, err)

	userID := id.UserID(uuid.New())
	tenantID := id.TenantID(uuid.New())
	now := time.Now().UTC()

	raw, err := issuer.Issue(userID, tenantID, false, true, now)
	require.NoError(t, err)

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)

	gotUser, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)

	gotTenant, err := claims.Tenant()
	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)

	assert.False(t, claims.IsAdmin)
	assert.True(t, claims.IsTenantAdmin)
}

func TestAdminTokenCarriesNoTenant(t *testing.T) {
	issuer, err := NewIssuer("test-signing-key", time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue(id.UserID(uuid.New()), id.TenantID{}, true, false, time.Now().UTC())
	require.NoError(t, err)

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)

	tenantID, err := claims.Tenant()
	require.NoError(t, err)
	assert.True(t, tenantID.IsNil())
	assert.True(t, claims.IsAdmin)
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer, err := NewIssuer("test-signing-key", time.Minute)
	require.NoError(t, err)

	raw, err := issuer.Issue(id.UserID(uuid.New()), id.TenantID{}, true, false, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	_, err = issuer.Verify(raw)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	issuer, err := NewIssuer("key-one", time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("key-two", time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue(id.UserID(uuid.New()), id.TenantID{}, true, false, time.Now().UTC())
	require.NoError(t, err)

	_, err = other.Verify(raw)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, err := NewIssuer("test-signing-key", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Verify("not.a.token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestNewIssuerRequiresKey(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
