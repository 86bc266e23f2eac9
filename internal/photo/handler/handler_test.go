package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmw "photoportal/internal/auth/middleware"
	"photoportal/internal/photo/handler"
	"photoportal/internal/photo/models"
	"photoportal/internal/photo/service"
	tenantmodels "photoportal/internal/tenant/models"
	"photoportal/internal/tenant/resolver"
	id "photoportal/pkg/domain"
	dErrors "photoportal/pkg/domain-errors"
)

type fakeService struct {
	grant      *service.UploadGrant
	uploadErr  error
	confirmed  *models.Photo
	confirmErr error
	deleted    []id.PhotoID
}

func (f *fakeService) RequestUpload(_ context.Context, _ *tenantmodels.Tenant, _ service.UploadRequest) (*service.UploadGrant, error) {
	return f.grant, f.uploadErr
}

func (f *fakeService) ConfirmUpload(_ context.Context, _ *tenantmodels.Tenant, _ id.PhotoID) (*models.Photo, error) {
	return f.confirmed, f.confirmErr
}

func (f *fakeService) List(context.Context, *tenantmodels.Tenant, int, int) ([]*service.Download, error) {
	return nil, nil
}

func (f *fakeService) Get(context.Context, *tenantmodels.Tenant, id.PhotoID) (*service.Download, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "photo not found")
}

func (f *fakeService) Delete(_ context.Context, _ *tenantmodels.Tenant, photoID id.PhotoID) error {
	f.deleted = append(f.deleted, photoID)
	return nil
}

func (f *fakeService) UsageEntries(context.Context, *tenantmodels.Tenant, int, int) ([]*models.UsageLog, error) {
	return nil, nil
}

type fakeResolver struct {
	tenant *tenantmodels.Tenant
	err    error
}

func (f *fakeResolver) ResolveForPrincipal(context.Context, id.TenantID) (*tenantmodels.Tenant, error) {
	return f.tenant, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTenant(t *testing.T) *tenantmodels.Tenant {
	t.Helper()
	tenant, err := tenantmodels.NewTenant(id.TenantID(uuid.New()), "acme", "Acme Studios", "owner@acme.test", 500, nil, time.Now().UTC())
	require.NoError(t, err)
	return tenant
}

func newRouter(svc handler.Service, res handler.TenantResolver) chi.Router {
	r := chi.NewRouter()
	handler.New(svc, res, discardLogger()).Register(r)
	return r
}

func withTenant(r *http.Request, tenant *tenantmodels.Tenant) *http.Request {
	ctx := resolver.WithResolved(r.Context(), &resolver.Resolved{Tenant: tenant})
	return r.WithContext(ctx)
}

func withPrincipal(r *http.Request, p *authmw.Principal) *http.Request {
	return r.WithContext(authmw.WithPrincipal(r.Context(), p))
}

func pendingPhoto(t *testing.T, tenant *tenantmodels.Tenant) *models.Photo {
	t.Helper()
	photo, err := models.NewPhoto(id.PhotoID(uuid.New()), tenant.ID, "sunset.jpg", "image/jpeg", 1024, time.Now().UTC())
	require.NoError(t, err)
	return photo
}

func TestHandleRequestUpload(t *testing.T) {
	tenant := testTenant(t)
	photo := pendingPhoto(t, tenant)
	svc := &fakeService{grant: &service.UploadGrant{
		Photo:     photo,
		UploadURL: "https://storage.test/put",
		ExpiresIn: 15 * time.Minute,
	}}
	router := newRouter(svc, &fakeResolver{})

	body := `{"filename": "sunset.jpg", "content_type": "image/jpeg", "file_size_bytes": 1024}`
	req := httptest.NewRequest(http.MethodPost, "/photos/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTenant(req, tenant))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://storage.test/put")
	assert.Contains(t, rec.Body.String(), `"expires_in_seconds":900`)
}

func TestHandleRequestUploadQuotaExceeded(t *testing.T) {
	tenant := testTenant(t)
	svc := &fakeService{uploadErr: dErrors.New(dErrors.CodeQuotaExceeded, "storage quota exceeded")}
	router := newRouter(svc, &fakeResolver{})

	body := `{"filename": "big.jpg", "file_size_bytes": 999}`
	req := httptest.NewRequest(http.MethodPost, "/photos/upload", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTenant(req, tenant))

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), string(dErrors.CodeQuotaExceeded))
}

func TestHandleRequestUploadRejectsBadBody(t *testing.T) {
	tenant := testTenant(t)
	router := newRouter(&fakeService{}, &fakeResolver{})

	body := `{"filename": "", "file_size_bytes": 0}`
	req := httptest.NewRequest(http.MethodPost, "/photos/upload", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTenant(req, tenant))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConfirmUpload(t *testing.T) {
	tenant := testTenant(t)
	photo := pendingPhoto(t, tenant)
	photo.Confirm(2048, time.Now().UTC())
	svc := &fakeService{confirmed: photo}
	router := newRouter(svc, &fakeResolver{})

	req := httptest.NewRequest(http.MethodPost, "/photos/"+photo.ID.String()+"/confirm", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTenant(req, tenant))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"file_size_bytes":2048`)
	assert.Contains(t, rec.Body.String(), "confirmed_at")
}

func TestHandleDelete(t *testing.T) {
	tenant := testTenant(t)
	photo := pendingPhoto(t, tenant)
	svc := &fakeService{}
	router := newRouter(svc, &fakeResolver{})

	req := httptest.NewRequest(http.MethodDelete, "/photos/"+photo.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTenant(req, tenant))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, svc.deleted, 1)
	assert.Equal(t, photo.ID, svc.deleted[0])
}

func TestHandleGetInvalidID(t *testing.T) {
	tenant := testTenant(t)
	router := newRouter(&fakeService{}, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/photos/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTenant(req, tenant))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCurrentTenantRejectsForeignPrincipal(t *testing.T) {
	tenant := testTenant(t)
	router := newRouter(&fakeService{}, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/photos", nil)
	req = withTenant(req, tenant)
	req = withPrincipal(req, &authmw.Principal{
		UserID:   id.UserID(uuid.New()),
		TenantID: id.TenantID(uuid.New()),
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCurrentTenantFallsBackToPrincipal(t *testing.T) {
	tenant := testTenant(t)
	router := newRouter(&fakeService{}, &fakeResolver{tenant: tenant})

	req := httptest.NewRequest(http.MethodGet, "/photos", nil)
	req = withPrincipal(req, &authmw.Principal{
		UserID:   id.UserID(uuid.New()),
		TenantID: tenant.ID,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCurrentTenantRequiresAuthentication(t *testing.T) {
	router := newRouter(&fakeService{}, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/photos", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
