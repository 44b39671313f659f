package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridnet.org/internal/audit"
	"gridnet.org/internal/schema"
	"gridnet.org/internal/token"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func testRegistry(t *testing.T) *Registry {
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
		Name:   "Configure",
		Groups: []string{schema.GroupNetwork},
	})
	svc.MustAdd(schema.Command{
		Name:   "Promote",
		Groups: []string{schema.GroupNetwork, schema.GroupService, schema.GroupUser, schema.GroupAdmin},
	})
	svc.MustAdd(schema.Command{
		Name: "Merge",
		Arguments: schema.Arguments{Properties: []schema.Property{
			{Name: "Target", Spec: schema.Spec{Type: "string"}},
			{Name: "Options", Spec: schema.Spec{Type: "object"}},
		}},
	})
	svc.MustAdd(schema.Command{
		Name:   "Fail",
		Groups: nil,
	})

	reg := NewRegistry()
	reg.MustRegister(svc, map[string]Handler{
		"Ping": func(_ context.Context, args []any, _ *ApiContext) (any, error) {
			return args[0], nil
		},
		"WhoAmI": func(_ context.Context, _ []any, actx *ApiContext) (any, error) {
			return actx.User.UserID, nil
		},
		"Configure": func(_ context.Context, _ []any, _ *ApiContext) (any, error) {
			return "configured", nil
		},
		"Promote": func(_ context.Context, _ []any, _ *ApiContext) (any, error) {
			return "promoted", nil
		},
		"Merge": func(_ context.Context, args []any, _ *ApiContext) (any, error) {
			return args, nil
		},
		"Fail": func(_ context.Context, _ []any, _ *ApiContext) (any, error) {
			return nil, errors.New("storage unavailable")
		},
	})
	return reg
}

func testCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec("unit-test-network-key", token.WithClock(testClock))
	require.NoError(t, err)
	return codec
}

type tokenTweak func(*token.Snapshot)

func mintToken(t *testing.T, codec *token.Codec, groups string, tweaks ...tokenTweak) string {
	t.Helper()
	snap := token.Snapshot{
		User: token.UserSnapshot{
			UserID:    "usr-1",
			UserEmail: "one@example.test",
			Groups:    groups,
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
	for _, tweak := range tweaks {
		tweak(&snap)
	}
	raw, err := codec.Mint(snap, "token", 10*time.Minute, 24*time.Hour, snap.User.UserID, snap.Session.SessionID)
	require.NoError(t, err)
	return raw
}

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) *Dispatcher {
	t.Helper()
	opts = append([]DispatcherOption{WithClock(testClock)}, opts...)
	return NewDispatcher(testRegistry(t), testCodec(t), "testnet", opts...)
}

func TestProcessCommandAnonymous(t *testing.T) {
	d := newTestDispatcher(t)

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "Ping",
		Arguments:   map[string]any{"Message": "hello"},
	}, &ApiContext{SourceAddress: "10.0.0.9"})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "hello", res.Result)
	assert.Equal(t, "testnet", res.Network)
	assert.Equal(t, "Echo", res.Service)
	assert.Equal(t, "Ping", res.Command)
	assert.Equal(t, "10.0.0.9", res.SourceAddress)
	assert.False(t, res.Authenticated)
	assert.Empty(t, res.Error)
}

func TestProcessCommandNilArguments(t *testing.T) {
	d := newTestDispatcher(t)

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "Ping",
	}, &ApiContext{})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Nil(t, res.Result)
}

func TestProcessCommandMissingInputs(t *testing.T) {
	d := newTestDispatcher(t)

	_, err := d.ProcessCommand(context.Background(), nil, &ApiContext{})
	assert.ErrorIs(t, err, ErrMissingCommand)

	_, err = d.ProcessCommand(context.Background(), &Command{ServiceName: "Echo", CommandName: "Ping"}, nil)
	assert.ErrorIs(t, err, ErrMissingContext)
}

func TestProcessCommandUnknownTargets(t *testing.T) {
	d := newTestDispatcher(t)

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Nope",
		CommandName: "Ping",
	}, &ApiContext{})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "Service not found [Nope].", res.Error)

	res, err = d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "Vanish",
	}, &ApiContext{})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "Command [Vanish] not found in service [Echo].", res.Error)
}

func TestProcessCommandRequiresToken(t *testing.T) {
	d := newTestDispatcher(t)

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "WhoAmI",
	}, &ApiContext{})
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, "Unauthenticated", res.Error)
	assert.False(t, res.Authenticated)
}

func TestProcessCommandMalformedToken(t *testing.T) {
	d := newTestDispatcher(t)

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "WhoAmI",
	}, &ApiContext{Authorization: "not-a-token"})
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, "Malformed network token, unable to decode.", res.Error)
	assert.Equal(t, StatusInvalid, res.TokenStatus)
}

func TestProcessCommandWrongKeyToken(t *testing.T) {
	d := newTestDispatcher(t)
	other, err := token.NewCodec("some-other-key", token.WithClock(testClock))
	require.NoError(t, err)
	raw := mintToken(t, other, "user")

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "WhoAmI",
	}, &ApiContext{Authorization: raw})
	require.NoError(t, err)

	assert.Equal(t, "Malformed network token, unable to decode.", res.Error)
}

func TestProcessCommandAuthenticated(t *testing.T) {
	d := newTestDispatcher(t)
	actx := &ApiContext{Authorization: mintToken(t, testCodec(t), "user")}

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "WhoAmI",
	}, actx)
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.True(t, res.Authenticated)
	assert.Equal(t, "usr-1", res.Result)
	assert.Equal(t, StatusOK, res.TokenStatus)
	assert.Equal(t, StatusOK, res.UserStatus)
	assert.Equal(t, StatusOK, res.SessionStatus)
	require.NotNil(t, actx.User)
	require.NotNil(t, actx.Session)
	assert.Equal(t, "ses-1", actx.Session.SessionID)
}

func TestProcessCommandExpiredSession(t *testing.T) {
	d := newTestDispatcher(t)
	raw := mintToken(t, testCodec(t), "user", func(s *token.Snapshot) {
		s.Session.ExpiresAt = testNow.Add(-time.Minute)
	})

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "WhoAmI",
	}, &ApiContext{Authorization: raw})
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, "Unauthenticated", res.Error)
	assert.Equal(t, StatusExpired, res.SessionStatus)
}

func TestProcessCommandExpiredBeatsLocked(t *testing.T) {
	d := newTestDispatcher(t)
	locked := testNow.Add(-2 * time.Minute)
	raw := mintToken(t, testCodec(t), "user", func(s *token.Snapshot) {
		s.Session.ExpiresAt = testNow.Add(-time.Minute)
		s.Session.LockedAt = &locked
	})

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "WhoAmI",
	}, &ApiContext{Authorization: raw})
	require.NoError(t, err)

	assert.Equal(t, StatusExpired, res.SessionStatus)
}

func TestProcessCommandLockedStatuses(t *testing.T) {
	d := newTestDispatcher(t)
	locked := testNow.Add(-time.Minute)

	t.Run("user", func(t *testing.T) {
		raw := mintToken(t, testCodec(t), "user", func(s *token.Snapshot) {
			s.User.LockedAt = &locked
		})
		res, err := d.ProcessCommand(context.Background(), &Command{
			ServiceName: "Echo",
			CommandName: "WhoAmI",
		}, &ApiContext{Authorization: raw})
		require.NoError(t, err)
		assert.Equal(t, "Unauthenticated", res.Error)
		assert.Equal(t, StatusLocked, res.UserStatus)
	})

	t.Run("session", func(t *testing.T) {
		raw := mintToken(t, testCodec(t), "user", func(s *token.Snapshot) {
			s.Session.LockedAt = &locked
		})
		res, err := d.ProcessCommand(context.Background(), &Command{
			ServiceName: "Echo",
			CommandName: "WhoAmI",
		}, &ApiContext{Authorization: raw})
		require.NoError(t, err)
		assert.Equal(t, "Unauthenticated", res.Error)
		assert.Equal(t, StatusLocked, res.SessionStatus)
	})

	t.Run("closed session", func(t *testing.T) {
		raw := mintToken(t, testCodec(t), "user", func(s *token.Snapshot) {
			s.Session.ClosedAt = &locked
		})
		res, err := d.ProcessCommand(context.Background(), &Command{
			ServiceName: "Echo",
			CommandName: "WhoAmI",
		}, &ApiContext{Authorization: raw})
		require.NoError(t, err)
		assert.Equal(t, "Unauthenticated", res.Error)
		assert.Equal(t, StatusClosed, res.SessionStatus)
	})
}

func TestProcessCommandTierAuthorization(t *testing.T) {
	d := newTestDispatcher(t)

	t.Run("user tier cannot run network command", func(t *testing.T) {
		raw := mintToken(t, testCodec(t), "user")
		res, err := d.ProcessCommand(context.Background(), &Command{
			ServiceName: "Echo",
			CommandName: "Configure",
		}, &ApiContext{Authorization: raw})
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.True(t, res.Authenticated)
		assert.Equal(t, "Unauthorized, insufficient user access (requires at least [network]).", res.Error)
	})

	t.Run("network tier implies user tier", func(t *testing.T) {
		raw := mintToken(t, testCodec(t), "network")
		res, err := d.ProcessCommand(context.Background(), &Command{
			ServiceName: "Echo",
			CommandName: "WhoAmI",
		}, &ApiContext{Authorization: raw})
		require.NoError(t, err)
		assert.True(t, res.OK)
	})
}

func TestProcessCommandRoleAuthorization(t *testing.T) {
	d := newTestDispatcher(t)

	raw := mintToken(t, testCodec(t), "user")
	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "Promote",
	}, &ApiContext{Authorization: raw})
	require.NoError(t, err)
	assert.Equal(t, "Unauthorized, missing user role (requires [admin]).", res.Error)

	raw = mintToken(t, testCodec(t), "user|admin")
	res, err = d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "Promote",
	}, &ApiContext{Authorization: raw})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "promoted", res.Result)
}

func TestProcessCommandObjectArguments(t *testing.T) {
	d := newTestDispatcher(t)

	t.Run("string value is parsed", func(t *testing.T) {
		res, err := d.ProcessCommand(context.Background(), &Command{
			ServiceName: "Echo",
			CommandName: "Merge",
			Arguments: map[string]any{
				"Target":  "main",
				"Options": `{"force":true}`,
			},
		}, &ApiContext{})
		require.NoError(t, err)
		require.True(t, res.OK)
		args := res.Result.([]any)
		assert.Equal(t, "main", args[0])
		assert.Equal(t, map[string]any{"force": true}, args[1])
	})

	t.Run("unparseable string fails preprocessing", func(t *testing.T) {
		res, err := d.ProcessCommand(context.Background(), &Command{
			ServiceName: "Echo",
			CommandName: "Merge",
			Arguments:   map[string]any{"Options": "{broken"},
		}, &ApiContext{})
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Contains(t, res.Error, "Preprocessing error: ")
	})
}

func TestProcessCommandHandlerFailure(t *testing.T) {
	events := make(chan Event, 1)
	notifier := NewNotifier(4, func(ev Event) { events <- ev })
	defer notifier.Close()
	d := newTestDispatcher(t, WithNotifier(notifier))

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "Fail",
	}, &ApiContext{})
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, "storage unavailable", res.Error)

	select {
	case ev := <-events:
		assert.Equal(t, "Network.Error", ev.EventType)
		assert.Equal(t, "Echo", ev.Service)
		assert.Equal(t, "Fail", ev.Command)
		assert.Equal(t, "storage unavailable", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("no failure event published")
	}
}

func TestProcessCommandReturnAuthorization(t *testing.T) {
	svc := schema.NewService("Gate")
	svc.MustAdd(schema.Command{Name: "Open"})
	reg := NewRegistry()
	reg.MustRegister(svc, map[string]Handler{
		"Open": func(_ context.Context, _ []any, actx *ApiContext) (any, error) {
			actx.ReturnAuthorization = "fresh-token"
			return true, nil
		},
	})
	d := NewDispatcher(reg, testCodec(t), "testnet", WithClock(testClock))

	res, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Gate",
		CommandName: "Open",
	}, &ApiContext{})
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", res.ReturnAuthorization)
}

func TestAuthorizeTierMessages(t *testing.T) {
	serviceCmd := &schema.Command{Name: "x", Groups: []string{schema.GroupNetwork, schema.GroupService}}
	assert.Equal(t,
		"Unauthorized, insufficient user access (requires at least [service]).",
		authorize(serviceCmd, "user"))
	assert.Empty(t, authorize(serviceCmd, "service"))
	assert.Empty(t, authorize(serviceCmd, "network"))

	userCmd := &schema.Command{Name: "x", Groups: []string{schema.GroupUser}}
	assert.Equal(t,
		"Unauthorized, insufficient user access (requires at least [user]).",
		authorize(userCmd, ""))
}

func TestSessionStatusPriority(t *testing.T) {
	closed := testNow.Add(-time.Minute)
	s := &token.SessionSnapshot{
		ExpiresAt: testNow.Add(-time.Minute),
		AbandonAt: testNow.Add(-time.Minute),
		ClosedAt:  &closed,
		LockedAt:  &closed,
	}
	assert.Equal(t, StatusClosed, sessionStatus(s, testNow))
	s.ClosedAt = nil
	assert.Equal(t, StatusExpired, sessionStatus(s, testNow))
	s.ExpiresAt = testNow.Add(time.Hour)
	assert.Equal(t, StatusAbandoned, sessionStatus(s, testNow))
	s.AbandonAt = testNow.Add(time.Hour)
	assert.Equal(t, StatusLocked, sessionStatus(s, testNow))
	s.LockedAt = nil
	assert.Equal(t, StatusOK, sessionStatus(s, testNow))
}

func TestAuditTrailRecordsEveryCall(t *testing.T) {
	trail := audit.NewTrail(8)
	d := newTestDispatcher(t, WithAuditTrail(trail))

	_, err := d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "Ping",
		Arguments:   map[string]any{"Message": "hello"},
	}, &ApiContext{SourceAddress: "10.0.0.9"})
	require.NoError(t, err)

	_, err = d.ProcessCommand(context.Background(), &Command{
		ServiceName: "Echo",
		CommandName: "WhoAmI",
	}, &ApiContext{})
	require.NoError(t, err)

	entries := trail.Recent(10)
	require.Len(t, entries, 2)
	assert.Equal(t, "WhoAmI", entries[0].Command)
	assert.False(t, entries[0].OK)
	assert.Equal(t, "Unauthenticated", entries[0].Message)
	assert.Equal(t, "Ping", entries[1].Command)
	assert.True(t, entries[1].OK)
	assert.Equal(t, "10.0.0.9", entries[1].SourceAddress)
}
