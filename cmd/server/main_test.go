package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "recordshare/internal/jwt_token"
	"recordshare/internal/platform/config"
	id "recordshare/pkg/domain"
	"recordshare/pkg/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildServesRegistryOverHTTP(t *testing.T) {
	cfg := config.Default()
	a, err := build(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(a.close)

	srv := httptest.NewServer(a.router)
	t.Cleanup(srv.Close)

	tokens := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	token, err := tokens.GenerateIdentityToken(id.MustParseAddress("0xa11ce"), cfg.Auth.TokenTTL)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/identities", strings.NewReader(`{"role":"owner"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(srv.URL + "/identities/0xa11ce")
	require.NoError(t, err)
	defer resp.Body.Close()
	var identity map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&identity))
	assert.Equal(t, "owner", identity["role"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `recordshare_registrations_total{role="owner"} 1`)
}

func TestRouterMapsRegistryErrors(t *testing.T) {
	cfg := config.Default()
	a, err := build(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(a.close)

	tokens := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	tokenFor := func(addr string) string {
		token, err := tokens.GenerateIdentityToken(id.MustParseAddress(addr), cfg.Auth.TokenTTL)
		require.NoError(t, err)
		return token
	}
	owner, stranger := tokenFor("0xa11ce"), tokenFor("0xb0b")

	rr := testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodPost, "/identities", owner, map[string]string{"role": "owner"}))
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("missing token", func(t *testing.T) {
		rr := testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodGet, "/me/documents", "", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("unknown role", func(t *testing.T) {
		rr := testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodPost, "/identities", stranger, map[string]string{"role": "admin"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_role")
	})

	t.Run("grant to an unregistered consumer", func(t *testing.T) {
		rr := testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodPost, "/me/consumers", owner, map[string]string{"consumer": "0xb0b"}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "unknown_consumer")
	})

	t.Run("read without a grant", func(t *testing.T) {
		rr := testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodGet, "/owners/0xa11ce/documents", stranger, nil))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "access_denied")
	})

	t.Run("document listing is never null", func(t *testing.T) {
		rr := testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodGet, "/me/documents", owner, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, []any{}, (*body)["documents"])
	})
}

func TestHealthHandler(t *testing.T) {
	t.Run("ok without checks", func(t *testing.T) {
		rr := httptest.NewRecorder()
		healthHandler(nil)(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	})

	t.Run("degraded when a dependency fails", func(t *testing.T) {
		rr := httptest.NewRecorder()
		healthHandler(map[string]healthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("down") },
		})(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var body healthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "unavailable"}, body.Checks)
	})
}
