package dispatch

import (
	"gridnet.org/internal/schema"
	"gridnet.org/internal/token"
)

// Command is the transport-neutral description of one invocation. Transports
// build it from the wire request; Schema may be left nil, in which case the
// dispatcher resolves it from the registry.
type Command struct {
	ServiceName string
	CommandName string
	Schema      *schema.Command
	Arguments   map[string]any
}

// ApiContext carries per-invocation caller state. The dispatcher populates
// User/Session/Claims from the bearer token; an invoked command that mints a
// fresh token sets ReturnAuthorization for the transport to surface on the
// outbound channel.
type ApiContext struct {
	SourceAddress string
	// Authorization is the raw bearer token, already stripped of any
	// transport prefix.
	Authorization       string
	ReturnAuthorization string

	// Populated by the dispatcher from the decoded token. These are
	// snapshots: point-in-time copies that may be stale relative to the
	// store.
	User    *token.UserSnapshot
	Session *token.SessionSnapshot
	Claims  *token.Claims
}

// Status is one of the per-call validity states computed by the dispatcher.
// The zero value means the check was never reached.
type Status string

const (
	StatusOK        Status = "ok"
	StatusInvalid   Status = "invalid"
	StatusExpired   Status = "expired"
	StatusAbandoned Status = "abandoned"
	StatusLocked    Status = "locked"
	StatusClosed    Status = "closed"
)

// Result is the uniform envelope every transport serializes back to the
// caller. Success and failure share the shape; OK carries the outcome.
type Result struct {
	Network       string `json:"network"`
	Timestamp     string `json:"timestamp"`
	ProcessingMS  int64  `json:"processing_ms"`
	SourceAddress string `json:"source_address"`
	Service       string `json:"service"`
	Command       string `json:"command"`
	Authenticated bool   `json:"authenticated"`
	TokenStatus   Status `json:"token_status"`
	UserStatus    Status `json:"user_status"`
	SessionStatus Status `json:"session_status"`
	OK            bool   `json:"ok"`
	Result        any    `json:"result,omitempty"`
	Error         string `json:"error,omitempty"`
	// ReturnAuthorization carries a freshly minted network token back to
	// the caller on transports without an out-of-band channel for it.
	ReturnAuthorization string `json:"return_authorization,omitempty"`
}
