package inproc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridnet.org/internal/dispatch"
	"gridnet.org/internal/schema"
	"gridnet.org/internal/token"
)

func testEndpoint(t *testing.T) *Endpoint {
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

	reg := dispatch.NewRegistry()
	reg.MustRegister(svc, map[string]dispatch.Handler{
		"Ping": func(_ context.Context, args []any, _ *dispatch.ApiContext) (any, error) {
			return args[0], nil
		},
		"WhoAmI": func(_ context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			return actx.SourceAddress, nil
		},
	})

	codec, err := token.NewCodec("unit-test-network-key")
	require.NoError(t, err)
	return New(dispatch.NewDispatcher(reg, codec, "testnet"))
}

func TestInvoke(t *testing.T) {
	endpoint := testEndpoint(t)

	res, err := endpoint.Invoke(context.Background(), "Echo", "Ping",
		map[string]any{"Message": "hello"}, "")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "hello", res.Result)
	assert.Equal(t, "inproc", res.SourceAddress)
}

func TestInvokeFailureStaysInEnvelope(t *testing.T) {
	endpoint := testEndpoint(t)

	res, err := endpoint.Invoke(context.Background(), "Echo", "Missing", nil, "")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "Command [Missing] not found in service [Echo].", res.Error)
}

func TestInvokeRequiresToken(t *testing.T) {
	endpoint := testEndpoint(t)

	res, err := endpoint.Invoke(context.Background(), "Echo", "WhoAmI", nil, "")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "Unauthenticated", res.Error)
}

func TestInvokeWithToken(t *testing.T) {
	svcSchema := schema.NewService("Echo")
	svcSchema.MustAdd(schema.Command{
		Name:   "WhoAmI",
		Groups: []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser},
	})
	reg := dispatch.NewRegistry()
	reg.MustRegister(svcSchema, map[string]dispatch.Handler{
		"WhoAmI": func(_ context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			return actx.User.UserID, nil
		},
	})

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	codec, err := token.NewCodec("unit-test-network-key",
		token.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	raw, err := codec.Mint(token.Snapshot{
		User: token.UserSnapshot{UserID: "usr-1", UserEmail: "one@example.test", Groups: "user", CreatedAt: now},
		Session: token.SessionSnapshot{
			SessionID: "ses-1", UserID: "usr-1",
			CreatedAt: now, ExpiresAt: now.Add(time.Hour), AbandonAt: now.Add(25 * time.Hour),
		},
	}, "token", 10*time.Minute, 24*time.Hour, "usr-1", "ses-1")
	require.NoError(t, err)

	endpoint := New(dispatch.NewDispatcher(reg, codec, "testnet",
		dispatch.WithClock(func() time.Time { return now })))

	res, err := endpoint.Invoke(context.Background(), "Echo", "WhoAmI", nil, raw)
	require.NoError(t, err)
	assert.True(t, res.OK, res.Error)
	assert.Equal(t, "usr-1", res.Result)
}
