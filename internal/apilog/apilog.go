// Package apilog records one audit entry per API request: method, path,
// status, caller identity when known, client address, and parsed user agent.
// Entries are written after the response is sent and never block or fail the
// request.
package apilog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mssola/useragent"

	id "photoportal/pkg/domain"
)

// Entry is one recorded API request.
type Entry struct {
	ID         string       `json:"id"`
	Method     string       `json:"method"`
	Path       string       `json:"path"`
	StatusCode int          `json:"status_code"`
	UserID     *id.UserID   `json:"user_id,omitempty"`
	TenantID   *id.TenantID `json:"tenant_id,omitempty"`
	IPAddress  string       `json:"ip_address"`
	UserAgent  string       `json:"user_agent"`
	Browser    string       `json:"browser"`
	OS         string       `json:"os"`
	DurationMS int          `json:"duration_ms"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ListFilter narrows List results.
type ListFilter struct {
	TenantID *id.TenantID
	Offset   int
	Limit    int
}

// Store persists audit entries.
type Store interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter ListFilter) ([]*Entry, error)
}

// ParseUserAgent extracts browser and OS names from a User-Agent string.
func ParseUserAgent(raw string) (browser, os string) {
	if raw == "" {
		return "", ""
	}
	ua := useragent.New(raw)
	browser, _ = ua.Browser()
	os = ua.OSInfo().Name
	if os == "" {
		os = ua.OS()
	}
	return strings.TrimSpace(browser), strings.TrimSpace(os)
}

// annotation is the mutable carrier the middleware plants in the context so
// identity middleware running later in the chain can attribute the request.
type annotation struct {
	mu       sync.Mutex
	userID   *id.UserID
	tenantID *id.TenantID
}

type annotationKey struct{}

func withAnnotation(ctx context.Context) (context.Context, *annotation) {
	a := &annotation{}
	return context.WithValue(ctx, annotationKey{}, a), a
}

// AnnotateUser attributes the current request to a user. No-op outside the
// audit middleware.
func AnnotateUser(ctx context.Context, userID id.UserID) {
	if a, ok := ctx.Value(annotationKey{}).(*annotation); ok {
		a.mu.Lock()
		a.userID = &userID
		a.mu.Unlock()
	}
}

// AnnotateTenant attributes the current request to a tenant.
func AnnotateTenant(ctx context.Context, tenantID id.TenantID) {
	if a, ok := ctx.Value(annotationKey{}).(*annotation); ok {
		a.mu.Lock()
		a.tenantID = &tenantID
		a.mu.Unlock()
	}
}

func (a *annotation) snapshot() (*id.UserID, *id.TenantID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID, a.tenantID
}
