package external

import (
	"context"

	"github.com/sentinelstay/triage/pkg/incident"
)

// AccessControlClient executes badge/key revocation, account locks,
// and access-grant actions against the property's access-control
// system.
type AccessControlClient struct{ *restClient }

// NewAccessControlClient builds an AccessControlClient against cfg.
func NewAccessControlClient(cfg EndpointConfig) *AccessControlClient {
	return &AccessControlClient{newRESTClient("access_control", cfg)}
}

func (c *AccessControlClient) Name() string { return "access_control" }

func (c *AccessControlClient) Execute(ctx context.Context, action incident.Action) (Response, error) {
	body, err := c.post(ctx, "/v1/access-actions", map[string]any{
		"action_id":   action.ID,
		"type":        string(action.Type),
		"description": action.Description,
	})
	if err != nil {
		return Response{}, err
	}
	return responseFromBody(body), nil
}

// Rollback reverses an access-control action (e.g. re-grants a revoked
// keycard) given the token Execute returned.
func (c *AccessControlClient) Rollback(ctx context.Context, action incident.Action, token string) error {
	return c.rollback(ctx, "/v1/access-actions/rollback", map[string]any{
		"action_id":      action.ID,
		"rollback_token": token,
	})
}
