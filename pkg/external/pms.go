package external

import (
	"context"

	"github.com/sentinelstay/triage/pkg/incident"
)

// PMSClient executes property-management actions: room/folio holds,
// access-log annotations, guest-profile flags.
type PMSClient struct{ *restClient }

// NewPMSClient builds a PMSClient against cfg.
func NewPMSClient(cfg EndpointConfig) *PMSClient {
	return &PMSClient{newRESTClient("pms", cfg)}
}

func (c *PMSClient) Name() string { return "pms" }

func (c *PMSClient) Execute(ctx context.Context, action incident.Action) (Response, error) {
	body, err := c.post(ctx, "/v1/actions", map[string]any{
		"action_id":   action.ID,
		"type":        string(action.Type),
		"system":      action.System,
		"description": action.Description,
	})
	if err != nil {
		return Response{}, err
	}
	return responseFromBody(body), nil
}

// Rollback reverses a PMS action (e.g. clears a room-status hold) given
// the token Execute returned.
func (c *PMSClient) Rollback(ctx context.Context, action incident.Action, token string) error {
	return c.rollback(ctx, "/v1/actions/rollback", map[string]any{
		"action_id":      action.ID,
		"rollback_token": token,
	})
}
