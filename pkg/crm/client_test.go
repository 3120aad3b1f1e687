package crm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) AccessToken(context.Context) (string, error) {
	return s.token, s.err
}

// rotatingTokens hands out tok-1 until invalidated, then tok-2
type rotatingTokens struct {
	current     string
	invalidated []string
}

func (r *rotatingTokens) AccessToken(context.Context) (string, error) {
	return r.current, nil
}

func (r *rotatingTokens) Invalidate(_ context.Context, rejected string) {
	r.invalidated = append(r.invalidated, rejected)
	r.current = "tok-2"
}

func newAPIClient(t *testing.T, handler http.HandlerFunc, tokens TokenProvider) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{APIURL: srv.URL + "/"}, tokens, nil)
}

func TestClient_UpdateLeadStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - sends status record", func(t *testing.T) {
		var gotBody map[string][]map[string]string
		client := newAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/crm/v2/Leads/9213140001", r.URL.Path)
			assert.Equal(t, "Zoho-oauthtoken tok-1", r.Header.Get("Authorization"))
			raw, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(raw, &gotBody))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","status":"success","message":"record updated"}]}`))
		}, staticToken{token: "tok-1"})

		require.NoError(t, client.UpdateLeadStatus(ctx, "9213140001", StatusCompleted))
		require.Len(t, gotBody["data"], 1)
		assert.Equal(t, "9213140001", gotBody["data"][0]["id"])
		assert.Equal(t, "Completed", gotBody["data"][0]["Lead_Sync_Status"])
	})

	t.Run("Error - non 2xx response", func(t *testing.T) {
		client := newAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"INVALID_TOKEN"}`))
		}, staticToken{token: "tok-1"})

		err := client.UpdateLeadStatus(ctx, "1", StatusCompleted)
		assert.True(t, domain.IsExternalService(err))
		assert.ErrorContains(t, err, "401")
	})

	t.Run("Success - rejected token is invalidated and the call retried", func(t *testing.T) {
		var seen []string
		tokens := &rotatingTokens{current: "tok-1"}
		client := newAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.Header.Get("Authorization"))
			if r.Header.Get("Authorization") == "Zoho-oauthtoken tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"code":"INVALID_TOKEN"}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","status":"success"}]}`))
		}, tokens)

		require.NoError(t, client.UpdateLeadStatus(ctx, "1", StatusCompleted))
		assert.Equal(t, []string{"tok-1"}, tokens.invalidated)
		assert.Equal(t, []string{"Zoho-oauthtoken tok-1", "Zoho-oauthtoken tok-2"}, seen)
	})

	t.Run("Error - second 401 is returned", func(t *testing.T) {
		calls := 0
		tokens := &rotatingTokens{current: "tok-1"}
		client := newAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusUnauthorized)
		}, tokens)

		err := client.UpdateLeadStatus(ctx, "1", StatusCompleted)
		assert.True(t, domain.IsExternalService(err))
		assert.ErrorContains(t, err, "401")
		assert.Equal(t, 2, calls)
	})

	t.Run("Error - record level failure", func(t *testing.T) {
		client := newAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"code":"INVALID_DATA","status":"error","message":"the id given seems to be invalid"}]}`))
		}, staticToken{token: "tok-1"})

		err := client.UpdateLeadStatus(ctx, "1", StatusCompleted)
		assert.True(t, domain.IsExternalService(err))
		assert.ErrorContains(t, err, "INVALID_DATA")
	})

	t.Run("Error - no token", func(t *testing.T) {
		called := false
		client := newAPIClient(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		}, staticToken{err: errors.New("not authorized")})

		err := client.UpdateLeadStatus(ctx, "1", StatusCompleted)
		assert.ErrorContains(t, err, "not authorized")
		assert.False(t, called)
	})
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus("Lead Created in ERPNext"))
	assert.True(t, IsTerminalStatus("Completed"))
	assert.True(t, IsTerminalStatus("Failed"))
	assert.False(t, IsTerminalStatus("-None-"))
	assert.False(t, IsTerminalStatus(""))
}
