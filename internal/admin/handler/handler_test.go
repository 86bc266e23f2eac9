package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoportal/internal/admin/handler"
	adminservice "photoportal/internal/admin/service"
	"photoportal/internal/apilog"
	"photoportal/internal/storage/credentials"
	id "photoportal/pkg/domain"
)

type fakeReaper struct {
	cutoff time.Time
	reaped int
	err    error
}

func (f *fakeReaper) ReapAbandoned(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return f.reaped, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAdmin struct {
	entries []*apilog.Entry
}

func (f *fakeAdmin) Stats(context.Context) (*adminservice.SystemStats, error) {
	return &adminservice.SystemStats{}, nil
}

func (f *fakeAdmin) CreateCredential(context.Context, adminservice.CredentialInput) (*credentials.Credential, error) {
	return nil, nil
}

func (f *fakeAdmin) ListCredentials(context.Context) ([]*credentials.Credential, error) {
	return nil, nil
}

func (f *fakeAdmin) UpdateCredential(context.Context, id.CredentialID, adminservice.CredentialInput) (*credentials.Credential, error) {
	return nil, nil
}

func (f *fakeAdmin) DeleteCredential(context.Context, id.CredentialID) error {
	return nil
}

func (f *fakeAdmin) TestCredential(context.Context, id.CredentialID) (*adminservice.ConnectionReport, error) {
	return nil, nil
}

func (f *fakeAdmin) APILogs(context.Context, apilog.ListFilter) ([]*apilog.Entry, error) {
	return f.entries, nil
}

func TestAPILogsSerializeIDsAsStrings(t *testing.T) {
	userID, err := id.ParseUserID("11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)
	tenantID, err := id.ParseTenantID("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
	require.NoError(t, err)
	admin := &fakeAdmin{entries: []*apilog.Entry{{
		ID:         uuid.NewString(),
		Method:     "GET",
		Path:       "/photos",
		StatusCode: http.StatusOK,
		UserID:     &userID,
		TenantID:   &tenantID,
		CreatedAt:  time.Now().UTC(),
	}}}
	h := handler.New(nil, admin, nil, nil, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api-logs", nil)
	rec := httptest.NewRecorder()
	h.HandleAPILogs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"11111111-2222-3333-4444-555555555555"`)
	assert.Contains(t, rec.Body.String(), `"tenant_id":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"`)
}

func TestReapUploadsDefaultsToOneHour(t *testing.T) {
	reaper := &fakeReaper{reaped: 3}
	h := handler.New(nil, nil, nil, reaper, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/maintenance/reap-uploads", nil)
	rec := httptest.NewRecorder()
	h.HandleReapUploads(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body["reaped"])
	assert.WithinDuration(t, time.Now().UTC().Add(-time.Hour), reaper.cutoff, 5*time.Second)
}

func TestReapUploadsHonorsWindowParam(t *testing.T) {
	reaper := &fakeReaper{}
	h := handler.New(nil, nil, nil, reaper, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/maintenance/reap-uploads?older_than_minutes=15", nil)
	rec := httptest.NewRecorder()
	h.HandleReapUploads(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.WithinDuration(t, time.Now().UTC().Add(-15*time.Minute), reaper.cutoff, 5*time.Second)
}

func TestReapUploadsRejectsBadWindow(t *testing.T) {
	reaper := &fakeReaper{}
	h := handler.New(nil, nil, nil, reaper, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/maintenance/reap-uploads?older_than_minutes=zero", nil)
	rec := httptest.NewRecorder()
	h.HandleReapUploads(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, reaper.cutoff.IsZero())
}
