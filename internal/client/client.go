// Package client is the caller-side counterpart of the dispatcher. It signs
// in with a credential, attaches the session token to every call, and
// transparently re-authenticates when the network reports the caller as
// unauthenticated.
package client

import (
	"context"
	"fmt"
	"sync"

	"gridnet.org/internal/dispatch"
)

// Transport delivers one invocation to the network and returns the result
// envelope. inproc.Endpoint satisfies this directly; wrap other transports
// with TransportFunc.
type Transport interface {
	Invoke(ctx context.Context, service, command string, arguments map[string]any, authorization string) (*dispatch.Result, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, service, command string, arguments map[string]any, authorization string) (*dispatch.Result, error)

func (f TransportFunc) Invoke(ctx context.Context, service, command string, arguments map[string]any, authorization string) (*dispatch.Result, error) {
	return f(ctx, service, command, arguments, authorization)
}

// Credentials produce the NewSession arguments for one authentication
// strategy.
type Credentials interface {
	arguments() map[string]any
}

// ApiKeyCredentials authenticate with a stored api key and passkey.
type ApiKeyCredentials struct {
	ApiKey  string
	PassKey string
}

func (c ApiKeyCredentials) arguments() map[string]any {
	return map[string]any{"Strategy": "apikey", "Identifier": c.ApiKey, "Secret": c.PassKey}
}

// EmailCredentials authenticate through the network's external
// authenticator.
type EmailCredentials struct {
	EmailAddress string
	Secret       string
}

func (c EmailCredentials) arguments() map[string]any {
	return map[string]any{"Strategy": "email", "Identifier": c.EmailAddress, "Secret": c.Secret}
}

// ApiError is a command that completed but failed. The envelope carries the
// full response for callers that need the per-call statuses.
type ApiError struct {
	Service  string
	Command  string
	Message  string
	Envelope *dispatch.Result
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("[%s.%s] %s", e.Service, e.Command, e.Message)
}

// TransportError is a command that never completed: the transport itself
// failed before a result envelope came back.
type TransportError struct {
	Service string
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("[%s.%s] transport: %s", e.Service, e.Command, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

const maxAttempts = 3

// Client invokes commands on behalf of one identity. It is safe for
// concurrent use; the session token is shared across calls.
type Client struct {
	transport Transport
	creds     Credentials

	mu           sync.Mutex
	sessionToken string
}

func New(transport Transport, creds Credentials) *Client {
	return &Client{transport: transport, creds: creds}
}

// Call invokes one command, signing in first if needed. A response of
// "Unauthenticated" triggers re-authentication and a retry; the renew
// strategy is tried first so an expired token does not force a full signin.
func (c *Client) Call(ctx context.Context, service, command string, arguments map[string]any) (any, error) {
	var envelope *dispatch.Result
	for attempt := 0; attempt < maxAttempts; attempt++ {
		res, err := c.transport.Invoke(ctx, service, command, arguments, c.token())
		if err != nil {
			return nil, &TransportError{Service: service, Command: command, Err: err}
		}
		if res.ReturnAuthorization != "" {
			c.setToken(res.ReturnAuthorization)
		}
		if res.OK {
			return res.Result, nil
		}
		envelope = res
		if res.Error != "Unauthenticated" {
			break
		}
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}
	return nil, &ApiError{Service: service, Command: command, Message: envelope.Error, Envelope: envelope}
}

// Authenticate establishes a session token. With a token already in hand it
// renews; when renewal fails or no token exists it signs in with the
// configured credentials.
func (c *Client) Authenticate(ctx context.Context) error {
	if current := c.token(); current != "" {
		res, err := c.transport.Invoke(ctx, "Member", "NewSession",
			map[string]any{"Strategy": "renew", "Secret": current}, current)
		if err != nil {
			return &TransportError{Service: "Member", Command: "NewSession", Err: err}
		}
		if res.OK {
			return c.adoptGrant(res)
		}
	}
	return c.signin(ctx)
}

func (c *Client) signin(ctx context.Context) error {
	if c.creds == nil {
		return &ApiError{Service: "Member", Command: "NewSession", Message: "No credentials configured."}
	}
	res, err := c.transport.Invoke(ctx, "Member", "NewSession", c.creds.arguments(), "")
	if err != nil {
		return &TransportError{Service: "Member", Command: "NewSession", Err: err}
	}
	if !res.OK {
		return &ApiError{Service: "Member", Command: "NewSession", Message: res.Error, Envelope: res}
	}
	return c.adoptGrant(res)
}

func (c *Client) adoptGrant(res *dispatch.Result) error {
	if res.ReturnAuthorization != "" {
		c.setToken(res.ReturnAuthorization)
		return nil
	}
	if grant, ok := res.Result.(map[string]any); ok {
		if raw, ok := grant["session_token"].(string); ok && raw != "" {
			c.setToken(raw)
			return nil
		}
	}
	return &ApiError{Service: "Member", Command: "NewSession",
		Message: "The session grant is missing its token.", Envelope: res}
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

func (c *Client) setToken(raw string) {
	c.mu.Lock()
	c.sessionToken = raw
	c.mu.Unlock()
}
