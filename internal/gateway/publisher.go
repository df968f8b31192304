// Package gateway registers and unregisters plugin routes with the
// platform's API gateway admin API over HTTP. Grounded on the teacher's
// integrations.go deliverWebhook: a plain *http.Client with a short
// timeout, JSON body, and explicit redirect policy, applied here to
// gateway admin-API calls instead of outbound webhooks. Every call is
// idempotent and never blocks the lifecycle engine's state transition on
// success — a publish failure degrades to a warning event, not a fatal error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flowforge/plugin-orchestrator/internal/logger"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

var log = logger.Component("gateway")

// requestTimeout bounds every gateway admin-API call so a slow or wedged
// gateway never stalls a lifecycle transition.
const requestTimeout = 10 * time.Second

// defaultRequestsPerMinute is the rate-limit policy's token-bucket refill
// rate when no endpoint in the manifest declares its own (§4.5).
const defaultRequestsPerMinute = 100

// RateLimitPolicy is the gateway's per-minute token-bucket policy attached
// to a route.
type RateLimitPolicy struct {
	RequestsPerMinute int `json:"requestsPerMinute"`
}

// CORSPolicy is the gateway's cross-origin policy attached to a route.
type CORSPolicy struct {
	AllowOrigins []string `json:"allowOrigins"`
	AllowMethods []string `json:"allowMethods"`
	AllowHeaders []string `json:"allowHeaders"`
}

// DefaultCORSPolicy permits any origin with the methods a plugin's
// endpoints can declare, matching the gateway's published default for
// plugins that don't need a tighter policy.
func DefaultCORSPolicy() CORSPolicy {
	return CORSPolicy{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}
}

// RouteSpec is what gets registered with the gateway for a running plugin
// instance. It is the source for three separate idempotent gateway
// primitives (§4.5): the upstream service record, the route itself, and a
// rate-limit+CORS policy attached to that route.
type RouteSpec struct {
	// Name is the gateway resource name, derived as <containerNamePrefix>
	// + manifestId (e.g. "plugin-crypto"), not the raw manifest id.
	Name         string
	UpstreamHost string
	UpstreamPort int
	BasePath     string
	Endpoints    []models.Endpoint
	RateLimit    RateLimitPolicy
	CORS         CORSPolicy
}

// EffectiveRateLimit returns the manifest-declared rate limit (the
// highest among its endpoints, since the gateway policy is attached to
// the route rather than per-endpoint) or defaultRequestsPerMinute when no
// endpoint declares one.
func EffectiveRateLimit(endpoints []models.Endpoint) RateLimitPolicy {
	limit := 0
	for _, ep := range endpoints {
		if ep.RateLimit > limit {
			limit = ep.RateLimit
		}
	}
	if limit == 0 {
		limit = defaultRequestsPerMinute
	}
	return RateLimitPolicy{RequestsPerMinute: limit}
}

// Publisher is an idempotent HTTP client for the gateway's admin API.
type Publisher struct {
	adminURL string
	client   *http.Client
}

// New creates a publisher targeting the gateway's admin API base URL.
func New(adminURL string) *Publisher {
	return &Publisher{
		adminURL: adminURL,
		client: &http.Client{
			Timeout: requestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// RegisterRoute upserts the plugin's upstream service record, route, and
// rate-limit+CORS policy at the gateway (§4.5), all keyed on spec.Name.
// Called on transition into running.
func (p *Publisher) RegisterRoute(ctx context.Context, spec RouteSpec) error {
	service := map[string]interface{}{
		"name": spec.Name,
		"host": spec.UpstreamHost,
		"port": spec.UpstreamPort,
	}
	if err := p.do(ctx, http.MethodPut, "/admin/services/"+spec.Name, service); err != nil {
		return err
	}

	route := map[string]interface{}{
		"name":      spec.Name,
		"service":   spec.Name,
		"paths":     []string{spec.BasePath},
		"stripPath": true,
		"protocols": []string{"http", "https"},
		"endpoints": spec.Endpoints,
	}
	if err := p.do(ctx, http.MethodPut, "/admin/routes/"+spec.Name, route); err != nil {
		return err
	}

	policy := map[string]interface{}{
		"rateLimit": spec.RateLimit,
		"cors":      spec.CORS,
	}
	return p.do(ctx, http.MethodPut, "/admin/routes/"+spec.Name+"/policies", policy)
}

// UnregisterRoute removes a plugin's upstream service, route, and attached
// policies. Called when a plugin is stopped or uninstalled.
func (p *Publisher) UnregisterRoute(ctx context.Context, name string) error {
	if err := p.do(ctx, http.MethodDelete, "/admin/routes/"+name, nil); err != nil {
		return err
	}
	return p.do(ctx, http.MethodDelete, "/admin/services/"+name, nil)
}

func (p *Publisher) do(ctx context.Context, method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.adminURL+path, reader)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "plugin-orchestrator-gateway-publisher/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("gateway admin API unreachable")
		return fmt.Errorf("gateway request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	responseBody, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("gateway request %s %s returned %d: %s", method, path, resp.StatusCode, string(responseBody))
}
