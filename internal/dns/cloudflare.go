package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	dErrors "photoportal/pkg/domain-errors"
	"photoportal/pkg/platform/circuit"
)

const defaultTimeout = 10 * time.Second

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cloudflare manages tenant subdomain CNAME records through the Cloudflare
// API. Each tenant subdomain gets a proxied CNAME pointing at the portal's
// base domain. Calls are wrapped in a circuit breaker; failures surface as
// backend_unavailable errors for callers to treat as best-effort.
type Cloudflare struct {
	baseURL    string
	apiToken   string
	zoneID     string
	baseDomain string
	client     HTTPDoer
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

// CloudflareConfig configures the Cloudflare provider.
type CloudflareConfig struct {
	// BaseURL overrides the API endpoint, for tests. Defaults to the public API.
	BaseURL    string
	APIToken   string
	ZoneID     string
	BaseDomain string
	HTTPClient HTTPDoer
}

// NewCloudflare creates a Cloudflare DNS provider.
func NewCloudflare(cfg CloudflareConfig, logger *slog.Logger) *Cloudflare {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cloudflare.com/client/v4"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Cloudflare{
		baseURL:    baseURL,
		apiToken:   cfg.APIToken,
		zoneID:     cfg.ZoneID,
		baseDomain: cfg.BaseDomain,
		client:     client,
		breaker:    circuit.New("cloudflare_dns"),
		logger:     logger,
	}
}

type recordPayload struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

type apiEnvelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnsureRecord creates the CNAME for subdomain.baseDomain. An "already exists"
// response from the API counts as success.
func (c *Cloudflare) EnsureRecord(ctx context.Context, subdomain string) error {
	payload := recordPayload{
		Type:    "CNAME",
		Name:    subdomain + "." + c.baseDomain,
		Content: c.baseDomain,
		TTL:     1,
		Proxied: true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to marshal dns record")
	}

	endpoint := fmt.Sprintf("%s/zones/%s/dns_records", c.baseURL, c.zoneID)
	env, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if !env.Success && !hasErrorCode(env, 81057) {
		return c.recordFailure(ctx, dErrors.New(dErrors.CodeUnavailable, apiErrorMessage(env)))
	}

	c.recordSuccess(ctx)
	return nil
}

// RemoveRecord deletes the CNAME for subdomain.baseDomain if present.
func (c *Cloudflare) RemoveRecord(ctx context.Context, subdomain string) error {
	name := subdomain + "." + c.baseDomain

	endpoint := fmt.Sprintf("%s/zones/%s/dns_records?type=CNAME&name=%s", c.baseURL, c.zoneID, url.QueryEscape(name))
	env, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if !env.Success {
		return c.recordFailure(ctx, dErrors.New(dErrors.CodeUnavailable, apiErrorMessage(env)))
	}

	var records []record
	if err := json.Unmarshal(env.Result, &records); err != nil {
		return c.recordFailure(ctx, dErrors.Wrap(err, dErrors.CodeUnavailable, "unexpected dns record listing"))
	}

	for _, rec := range records {
		endpoint := fmt.Sprintf("%s/zones/%s/dns_records/%s", c.baseURL, c.zoneID, rec.ID)
		env, err := c.do(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return err
		}
		if !env.Success {
			return c.recordFailure(ctx, dErrors.New(dErrors.CodeUnavailable, apiErrorMessage(env)))
		}
	}

	c.recordSuccess(ctx)
	return nil
}

func (c *Cloudflare) do(ctx context.Context, method, endpoint string, body io.Reader) (*apiEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create dns request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.recordFailure(ctx, dErrors.Wrap(err, dErrors.CodeUnavailable, "dns provider unreachable"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.recordFailure(ctx, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read dns response"))
	}

	var env apiEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, c.recordFailure(ctx, dErrors.Wrap(err, dErrors.CodeUnavailable, fmt.Sprintf("unexpected dns response: status %d", resp.StatusCode)))
	}
	return &env, nil
}

func (c *Cloudflare) recordFailure(ctx context.Context, err error) error {
	_, change := c.breaker.RecordFailure()
	if change.Opened {
		c.logger.ErrorContext(ctx, "circuit breaker opened",
			"circuit", c.breaker.Name(),
			"error", err,
		)
	}
	return err
}

func (c *Cloudflare) recordSuccess(ctx context.Context) {
	_, change := c.breaker.RecordSuccess()
	if change.Closed {
		c.logger.InfoContext(ctx, "circuit breaker closed",
			"circuit", c.breaker.Name(),
		)
	}
}

func hasErrorCode(env *apiEnvelope, code int) bool {
	for _, e := range env.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

func apiErrorMessage(env *apiEnvelope) string {
	if len(env.Errors) > 0 {
		return "dns provider rejected request: " + env.Errors[0].Message
	}
	return "dns provider rejected request"
}

var _ Provider = (*Cloudflare)(nil)
var _ Provider = Noop{}
