package external

import (
	"context"
	"fmt"

	"github.com/sentinelstay/triage/pkg/incident"
)

// NotificationClient delivers notification actions (stakeholder email,
// executive page, regulatory filing) to the property's messaging
// back end.
type NotificationClient struct{ *restClient }

// NewNotificationClient builds a NotificationClient against cfg.
func NewNotificationClient(cfg EndpointConfig) *NotificationClient {
	return &NotificationClient{newRESTClient("notifications", cfg)}
}

func (c *NotificationClient) Name() string { return "notifications" }

// Execute never returns a rollback token - notification actions are
// not reversible, matching SPEC_FULL.md's Open Question 3 decision.
func (c *NotificationClient) Execute(ctx context.Context, action incident.Action) (Response, error) {
	body, err := c.post(ctx, "/v1/notifications", map[string]any{
		"action_id":   action.ID,
		"type":        string(action.Type),
		"description": action.Description,
	})
	if err != nil {
		return Response{}, err
	}
	resp := responseFromBody(body)
	resp.RollbackToken = ""
	return resp, nil
}

// Rollback always fails: notification actions never issue a rollback
// token, so the executor never has one to call this with.
func (c *NotificationClient) Rollback(ctx context.Context, action incident.Action, token string) error {
	return incident.Wrap(incident.KindValidation, fmt.Errorf("notifications: action %s is not reversible", action.ID), false)
}
