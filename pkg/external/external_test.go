package external_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinelstay/triage/pkg/external"
	"github.com/sentinelstay/triage/pkg/incident"
)

func TestAccessControlClient_ExecuteReturnsRollbackToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/access-actions", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"succeeded": true, "rollback_token": "tok-123"})
	}))
	defer srv.Close()

	client := external.NewAccessControlClient(external.EndpointConfig{BaseURL: srv.URL, Token: "test-token"})
	resp, err := client.Execute(context.Background(), incident.Action{ID: "act-1", Type: incident.ActionTypeAccessRevoke})
	require.NoError(t, err)
	require.True(t, resp.Succeeded)
	require.Equal(t, "tok-123", resp.RollbackToken)
}

func TestNotificationClient_ExecuteNeverReturnsRollbackToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"succeeded": true, "rollback_token": "should-be-dropped"})
	}))
	defer srv.Close()

	client := external.NewNotificationClient(external.EndpointConfig{BaseURL: srv.URL})
	resp, err := client.Execute(context.Background(), incident.Action{ID: "act-2", Type: incident.ActionTypeNotification})
	require.NoError(t, err)
	require.Empty(t, resp.RollbackToken)
}

func TestPMSClient_PermanentErrorNotRetryable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := external.NewPMSClient(external.EndpointConfig{BaseURL: srv.URL})
	_, err := client.Execute(context.Background(), incident.Action{ID: "act-3", Type: incident.ActionTypeAccessGrant})
	require.Error(t, err)
	kind, ok := incident.KindOf(err)
	require.True(t, ok)
	require.Equal(t, incident.KindExternalCall, kind)
	require.Equal(t, 1, calls)
}

func TestAccessControlClient_RollbackPostsToken(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/access-actions/rollback", r.URL.Path)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotToken, _ = body["rollback_token"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{"succeeded": true})
	}))
	defer srv.Close()

	client := external.NewAccessControlClient(external.EndpointConfig{BaseURL: srv.URL})
	err := client.Rollback(context.Background(), incident.Action{ID: "act-1"}, "tok-123")
	require.NoError(t, err)
	require.Equal(t, "tok-123", gotToken)
}

func TestNotificationClient_RollbackAlwaysErrors(t *testing.T) {
	client := external.NewNotificationClient(external.EndpointConfig{BaseURL: "http://example.invalid"})
	err := client.Rollback(context.Background(), incident.Action{ID: "act-2"}, "tok-456")
	require.Error(t, err)
}

func TestRegistry_LookupUnknownSystem(t *testing.T) {
	reg := external.NewRegistry(external.NewPMSClient(external.EndpointConfig{BaseURL: "http://example.invalid"}))
	_, err := reg.Lookup("access_control")
	require.Error(t, err)
}
