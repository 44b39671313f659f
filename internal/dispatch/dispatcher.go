// Package dispatch implements the transport-agnostic command pipeline:
// authenticate the bearer token, authorize against the command schema's
// required groups, coerce arguments into schema order, invoke the service
// handler, and wrap the outcome in the uniform result envelope.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gridnet.org/internal/audit"
	"gridnet.org/internal/obs"
	"gridnet.org/internal/schema"
	"gridnet.org/internal/token"
)

var (
	// ErrMissingCommand and ErrMissingContext are the only fatal
	// (non-envelope) outcomes of ProcessCommand; a transport that hits one
	// has a bug.
	ErrMissingCommand = errors.New("dispatch: missing required parameter [Command]")
	ErrMissingContext = errors.New("dispatch: missing required parameter [ApiContext]")
)

const msgUnauthenticated = "Unauthenticated"

// Dispatcher is the single entry point every transport adapter calls. It
// holds no mutable state of its own and is safe for unbounded concurrent
// use.
type Dispatcher struct {
	registry *Registry
	codec    *token.Codec
	network  string
	logger   zerolog.Logger
	notifier *Notifier
	trail    *audit.Trail
	now      func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNotifier routes invocation failures to the given notifier.
func WithNotifier(n *Notifier) DispatcherOption {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithAuditTrail records every completed invocation on the given trail.
func WithAuditTrail(trail *audit.Trail) DispatcherOption {
	return func(d *Dispatcher) { d.trail = trail }
}

// WithClock overrides the time source, for tests.
func WithClock(fn func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.now = fn
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher constructs a Dispatcher over the given registry and codec.
func NewDispatcher(registry *Registry, codec *token.Codec, networkName string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		codec:    codec,
		network:  networkName,
		logger:   obs.Component("command"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProcessCommand runs the full pipeline for a single invocation. Every
// outcome other than a nil Command/ApiContext is reported through the
// envelope, never as a Go error.
func (d *Dispatcher) ProcessCommand(ctx context.Context, cmd *Command, actx *ApiContext) (*Result, error) {
	if cmd == nil {
		return nil, ErrMissingCommand
	}
	if actx == nil {
		return nil, ErrMissingContext
	}

	start := d.now()
	res := &Result{
		Network:       d.network,
		Timestamp:     start.UTC().Format(time.RFC3339Nano),
		SourceAddress: actx.SourceAddress,
		Service:       cmd.ServiceName,
		Command:       cmd.CommandName,
	}

	// The two envelope constructors are the only way out of this function
	// past this point, so duration, the audit entry, and the completion log
	// are always recorded.
	record := func(ok bool, message string) {
		entry := audit.Entry{
			Service:       cmd.ServiceName,
			Command:       cmd.CommandName,
			SourceAddress: actx.SourceAddress,
			OK:            ok,
			Message:       message,
			ProcessingMS:  res.ProcessingMS,
		}
		if actx.User != nil {
			entry.UserID = actx.User.UserID
		}
		if actx.Session != nil {
			entry.SessionID = actx.Session.SessionID
		}
		d.trail.Record(entry)
	}
	finish := func(value any) *Result {
		res.OK = true
		res.Result = value
		res.ProcessingMS = d.now().Sub(start).Milliseconds()
		if actx.ReturnAuthorization != "" {
			res.ReturnAuthorization = actx.ReturnAuthorization
		}
		record(true, "")
		obs.ObserveCommand(cmd.ServiceName, cmd.CommandName, true, d.now().Sub(start))
		d.logger.Info().
			Str("service", cmd.ServiceName).
			Str("command", cmd.CommandName).
			Int64("processing_ms", res.ProcessingMS).
			Msg(fmt.Sprintf("Completed [%s.%s] in %d ms. Status: [OK]", cmd.ServiceName, cmd.CommandName, res.ProcessingMS))
		return res
	}
	fail := func(message string) *Result {
		res.OK = false
		res.Error = message
		res.ProcessingMS = d.now().Sub(start).Milliseconds()
		record(false, message)
		obs.ObserveCommand(cmd.ServiceName, cmd.CommandName, false, d.now().Sub(start))
		d.logger.Info().
			Str("service", cmd.ServiceName).
			Str("command", cmd.CommandName).
			Int64("processing_ms", res.ProcessingMS).
			Msg(fmt.Sprintf("Completed [%s.%s] in %d ms. Status: [%s]", cmd.ServiceName, cmd.CommandName, res.ProcessingMS, message))
		return res
	}

	// Resolve the target before anything else: the command schema drives
	// both authorization and argument coercion.
	entry, ok := d.registry.Service(cmd.ServiceName)
	if !ok {
		return fail(fmt.Sprintf("Service not found [%s].", cmd.ServiceName)), nil
	}
	cmdSchema := cmd.Schema
	if cmdSchema == nil {
		if cmdSchema, ok = entry.Schema.Command(cmd.CommandName); !ok {
			return fail(fmt.Sprintf("Command [%s] not found in service [%s].", cmd.CommandName, cmd.ServiceName)), nil
		}
	}
	handler := entry.Handlers[cmd.CommandName]
	if handler == nil {
		return fail(fmt.Sprintf("Command [%s] not found in service [%s].", cmd.CommandName, cmd.ServiceName)), nil
	}

	// Authentication.
	var claims *token.Claims
	if actx.Authorization != "" {
		var err error
		claims, err = d.codec.Decode(actx.Authorization)
		if err != nil {
			res.TokenStatus = StatusInvalid
			return fail("Malformed network token, unable to decode."), nil
		}
		if claims.Payload.User.UserID == "" || claims.Payload.Session.SessionID == "" {
			res.TokenStatus = StatusInvalid
			return fail("Invalid network token, payload is incomplete."), nil
		}
		user := claims.Payload.User
		session := claims.Payload.Session
		actx.User = &user
		actx.Session = &session
		actx.Claims = claims
	}

	if !cmdSchema.Anonymous() {
		if actx.User == nil {
			return fail(msgUnauthenticated), nil
		}
		now := d.now()
		res.UserStatus = userStatus(actx.User)
		res.SessionStatus = sessionStatus(actx.Session, now)
		res.TokenStatus = tokenStatus(claims, now)
		if res.TokenStatus != StatusOK || res.UserStatus != StatusOK || res.SessionStatus != StatusOK {
			return fail(msgUnauthenticated), nil
		}
		res.Authenticated = true

		if msg := authorize(cmdSchema, actx.User.Groups); msg != "" {
			return fail(msg), nil
		}
	}

	// Build the positional argument list in schema-declared order.
	args := make([]any, 0, len(cmdSchema.Arguments.Properties))
	for _, prop := range cmdSchema.Arguments.Properties {
		value, present := cmd.Arguments[prop.Name]
		if !present {
			value = nil
		}
		if prop.Spec.Type == "object" && value != nil {
			if raw, isString := value.(string); isString {
				var parsed any
				if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
					return fail(fmt.Sprintf("Preprocessing error: %s", err.Error())), nil
				}
				value = parsed
			}
		}
		args = append(args, value)
	}

	value, err := handler(ctx, args, actx)
	if err != nil {
		d.notifier.Publish(Event{
			EventType: "Network.Error",
			Service:   cmd.ServiceName,
			Command:   cmd.CommandName,
			Message:   err.Error(),
		})
		d.logger.Error().
			Str("service", cmd.ServiceName).
			Str("command", cmd.CommandName).
			Err(err).
			Msg(err.Error())
		return fail(err.Error()), nil
	}

	d.logger.Debug().
		Str("service", cmd.ServiceName).
		Str("command", cmd.CommandName).
		Interface("arguments", redactArguments(cmdSchema.Arguments.Properties, args)).
		Msg("invocation arguments")
	return finish(value), nil
}

func userStatus(user *token.UserSnapshot) Status {
	if user.LockedAt != nil {
		return StatusLocked
	}
	return StatusOK
}

// sessionStatus reports the first failing check in priority order. Expiry
// precedes the lock check: a session can be simultaneously expired and
// locked, and expired wins for reporting.
func sessionStatus(session *token.SessionSnapshot, now time.Time) Status {
	switch {
	case session == nil:
		return StatusInvalid
	case session.ClosedAt != nil:
		return StatusClosed
	case !now.Before(session.ExpiresAt):
		return StatusExpired
	case !now.Before(session.AbandonAt):
		return StatusAbandoned
	case session.LockedAt != nil:
		return StatusLocked
	default:
		return StatusOK
	}
}

func tokenStatus(claims *token.Claims, now time.Time) Status {
	if claims == nil || claims.ExpiresAt == nil {
		return StatusInvalid
	}
	seconds := now.Unix()
	switch {
	case seconds >= claims.ExpiresAt.Unix():
		return StatusExpired
	case seconds >= claims.AbandonAt:
		return StatusAbandoned
	default:
		return StatusOK
	}
}

// authorize checks the two orthogonal group axes: tier (user < service <
// network, each tier implying the lower ones) and role (independent flags,
// all required ones must be present). Returns the failure message, or ""
// when authorized. Unlike authentication failures these messages are
// specific: the caller is already known.
func authorize(cmd *schema.Command, callerGroups string) string {
	groups := strings.Split(callerGroups, "|")
	has := func(g string) bool {
		for _, v := range groups {
			if v == g {
				return true
			}
		}
		return false
	}

	if cmd.HasGroup(schema.GroupNetwork) || cmd.HasGroup(schema.GroupService) || cmd.HasGroup(schema.GroupUser) {
		switch {
		case cmd.HasGroup(schema.GroupUser):
			if !has(schema.GroupNetwork) && !has(schema.GroupService) && !has(schema.GroupUser) {
				return "Unauthorized, insufficient user access (requires at least [user])."
			}
		case cmd.HasGroup(schema.GroupService):
			if !has(schema.GroupNetwork) && !has(schema.GroupService) {
				return "Unauthorized, insufficient user access (requires at least [service])."
			}
		case cmd.HasGroup(schema.GroupNetwork):
			if !has(schema.GroupNetwork) {
				return "Unauthorized, insufficient user access (requires at least [network])."
			}
		}
	}

	for _, role := range []string{schema.GroupSuper, schema.GroupAdmin, schema.GroupHero} {
		if cmd.HasGroup(role) && !has(role) {
			return fmt.Sprintf("Unauthorized, missing user role (requires [%s]).", role)
		}
	}
	return ""
}

// redactArguments prepares the argument bag for logging. Values named
// exactly password/Password/secret/Secret never reach the log.
func redactArguments(props []schema.Property, args []any) map[string]any {
	out := make(map[string]any, len(props))
	for i, prop := range props {
		switch prop.Name {
		case "password", "Password", "secret", "Secret":
			out[prop.Name] = "**********"
		default:
			if i < len(args) {
				out[prop.Name] = args[i]
			}
		}
	}
	return out
}
