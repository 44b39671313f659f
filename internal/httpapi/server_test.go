package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridnet.org/internal/dispatch"
	"gridnet.org/internal/schema"
	"gridnet.org/internal/token"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testAPI(t *testing.T) (*API, *token.Codec) {
	t.Helper()

	svc := schema.NewService("Echo")
	svc.MustAdd(schema.Command{
		Name: "Ping",
		Arguments: schema.Arguments{Properties: []schema.Property{
			{Name: "Message", Spec: schema.Spec{Type: "string"}},
		}},
	})
	svc.MustAdd(schema.Command{
		Name:   "WhoAmI",
		Groups: []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser},
	})
	svc.MustAdd(schema.Command{
		Name: "Grant",
	})

	reg := dispatch.NewRegistry()
	reg.MustRegister(svc, map[string]dispatch.Handler{
		"Ping": func(_ context.Context, args []any, _ *dispatch.ApiContext) (any, error) {
			return args[0], nil
		},
		"WhoAmI": func(_ context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			return actx.User.UserID, nil
		},
		"Grant": func(_ context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			actx.ReturnAuthorization = "fresh-token"
			return "granted", nil
		},
	})

	codec, err := token.NewCodec("unit-test-network-key",
		token.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	d := dispatch.NewDispatcher(reg, codec, "testnet",
		dispatch.WithClock(func() time.Time { return testNow }))
	api := New(d, ReadyProbe{}, "test")
	api.rateBurst = 100
	api.ratePerSec = 100
	return api, codec
}

func mintToken(t *testing.T, codec *token.Codec) string {
	t.Helper()
	snap := token.Snapshot{
		User: token.UserSnapshot{
			UserID:    "usr-1",
			UserEmail: "one@example.test",
			Groups:    "user",
			CreatedAt: testNow.Add(-24 * time.Hour),
		},
		Session: token.SessionSnapshot{
			SessionID: "ses-1",
			UserID:    "usr-1",
			CreatedAt: testNow.Add(-time.Hour),
			ExpiresAt: testNow.Add(time.Hour),
			AbandonAt: testNow.Add(25 * time.Hour),
		},
	}
	raw, err := codec.Mint(snap, "token", 10*time.Minute, 24*time.Hour, "usr-1", "ses-1")
	require.NoError(t, err)
	return raw
}

func postCommand(t *testing.T, api *API, path, body, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) dispatch.Result {
	t.Helper()
	var res dispatch.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestCommandAnonymous(t *testing.T) {
	api, _ := testAPI(t)

	rec := postCommand(t, api, "/Echo/Ping", `{"Message":"hello"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec)
	assert.True(t, res.OK)
	assert.Equal(t, "testnet", res.Network)
	assert.Equal(t, "Echo", res.Service)
	assert.Equal(t, "Ping", res.Command)
	assert.Equal(t, "hello", res.Result)
}

func TestCommandEmptyBody(t *testing.T) {
	api, _ := testAPI(t)

	rec := postCommand(t, api, "/Echo/Ping", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResult(t, rec).OK)
}

func TestCommandMalformedBody(t *testing.T) {
	api, _ := testAPI(t)

	rec := postCommand(t, api, "/Echo/Ping", `["not","an","object"]`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommandUnknownServiceStaysHTTP200(t *testing.T) {
	api, _ := testAPI(t)

	rec := postCommand(t, api, "/Nope/Ping", "{}", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec)
	assert.False(t, res.OK)
	assert.Equal(t, "Service not found [Nope].", res.Error)
}

func TestCommandBearerToken(t *testing.T) {
	api, codec := testAPI(t)
	raw := mintToken(t, codec)

	for _, prefix := range []string{"Bearer ", "bearer ", ""} {
		rec := postCommand(t, api, "/Echo/WhoAmI", "{}", prefix+raw)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decodeResult(t, rec)
		assert.True(t, res.OK, "prefix %q: %s", prefix, res.Error)
		assert.Equal(t, "usr-1", res.Result)
	}
}

func TestCommandRequiresToken(t *testing.T) {
	api, _ := testAPI(t)

	rec := postCommand(t, api, "/Echo/WhoAmI", "{}", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec)
	assert.False(t, res.OK)
	assert.Equal(t, "Unauthenticated", res.Error)
}

func TestCommandReturnAuthorizationHeader(t *testing.T) {
	api, _ := testAPI(t)

	rec := postCommand(t, api, "/Echo/Grant", "{}", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "fresh-token", rec.Header().Get("Authorization"))
	assert.Equal(t, "fresh-token", decodeResult(t, rec).ReturnAuthorization)
}

func TestHealthz(t *testing.T) {
	api, _ := testAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerTokenTrimming(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "abc", bearerToken("  abc  "))
	assert.Equal(t, "", bearerToken(""))
}
