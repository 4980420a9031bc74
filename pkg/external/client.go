// Package external implements the HTTP clients through which the
// action executor reaches the property-management, access-control, and
// notification back ends. Those services are collaborators this module
// only calls, never hosts - the contracts here are thin JSON-over-HTTP
// adapters built on pkg/httpclient's retry/backoff wrapper.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sentinelstay/triage/pkg/httpclient"
	"github.com/sentinelstay/triage/pkg/incident"
)

// System is the uniform contract the executor drives an action through.
// Name must match the Action.System value the playbook catalog assigns.
type System interface {
	Name() string
	Execute(ctx context.Context, action incident.Action) (Response, error)
	// Rollback reverses a previously succeeded action given the
	// rollback_token its Response carried. Systems that never issue a
	// token (notifications) return an error - the executor only calls
	// Rollback for actions it recorded a token for.
	Rollback(ctx context.Context, action incident.Action, token string) error
}

// Response is what a destination system returns for one action.
type Response struct {
	Succeeded     bool
	RollbackToken string
	Detail        map[string]any
}

// EndpointConfig points a System at its back end.
type EndpointConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// restClient is the shared plumbing every System implementation uses:
// POST the action's parameters as JSON, classify non-2xx and transport
// failures into incident.TriageError kinds.
type restClient struct {
	cfg    EndpointConfig
	http   *httpclient.Client
	system string
}

func newRESTClient(system string, cfg EndpointConfig) *restClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &restClient{
		cfg:    cfg,
		system: system,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
			httpclient.WithMaxRetries(3),
			httpclient.WithBaseDelay(250*time.Millisecond),
			httpclient.WithMaxDelay(30*time.Second),
			httpclient.WithHeaderParser(httpclient.ParseStandardRateLimitHeaders),
		),
	}
}

func (c *restClient) post(ctx context.Context, path string, body any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, incident.Wrap(incident.KindInternal, fmt.Errorf("marshal request: %w", err), false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, incident.Wrap(incident.KindInternal, fmt.Errorf("build request: %w", err), false)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, c.classifyStatus(resp.StatusCode, string(raw))
		}
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, incident.Wrap(incident.KindExternalCall, fmt.Errorf("%s: read response: %w", c.system, err), true)
	}

	if resp.StatusCode >= 300 {
		return nil, c.classifyStatus(resp.StatusCode, string(raw))
	}

	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, incident.Wrap(incident.KindExternalCall, fmt.Errorf("%s: decode response: %w", c.system, err), false)
	}
	return out, nil
}

// rollback posts a reversal request for a previously issued
// rollback_token; the response body is discarded, only the error (if
// any) matters to the caller.
func (c *restClient) rollback(ctx context.Context, path string, body any) error {
	_, err := c.post(ctx, path, body)
	return err
}

func (c *restClient) classify(err error) error {
	if re, ok := err.(*httpclient.RetryableError); ok {
		return c.classifyStatus(re.StatusCode, re.Message)
	}
	return incident.Wrap(incident.KindExternalCall, fmt.Errorf("%s: %w", c.system, err), true)
}

// classifyStatus mirrors the executor's transient-vs-permanent split
// (spec: network/rate-limit/5xx retry, auth/validation/4xx excluding
// 429 do not).
func (c *restClient) classifyStatus(status int, detail string) error {
	err := fmt.Errorf("%s: http %d: %s", c.system, status, detail)
	switch {
	case status == http.StatusTooManyRequests:
		return incident.Wrap(incident.KindRateLimited, err, true)
	case status >= 500:
		return incident.Wrap(incident.KindExternalCall, err, true)
	default:
		return incident.Wrap(incident.KindExternalCall, err, false)
	}
}
