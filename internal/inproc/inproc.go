// Package inproc runs the command pipeline without any wire transport.
// Services hosted in the same process call each other through the same
// dispatch path remote callers use, so authorization and the result
// envelope behave identically.
package inproc

import (
	"context"

	"gridnet.org/internal/dispatch"
)

// Endpoint invokes commands against a local dispatcher.
type Endpoint struct {
	dispatcher    *dispatch.Dispatcher
	sourceAddress string
}

func New(dispatcher *dispatch.Dispatcher) *Endpoint {
	return &Endpoint{dispatcher: dispatcher, sourceAddress: "inproc"}
}

// Invoke runs one command and returns the result envelope. The envelope is
// always non-nil when err is nil, failures included.
func (e *Endpoint) Invoke(ctx context.Context, service, command string, arguments map[string]any, authorization string) (*dispatch.Result, error) {
	cmd := &dispatch.Command{
		ServiceName: service,
		CommandName: command,
		Arguments:   arguments,
	}
	actx := &dispatch.ApiContext{
		SourceAddress: e.sourceAddress,
		Authorization: authorization,
	}
	return e.dispatcher.ProcessCommand(ctx, cmd, actx)
}
