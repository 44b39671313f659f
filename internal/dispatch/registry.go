package dispatch

import (
	"context"
	"fmt"

	"gridnet.org/internal/schema"
)

// Handler is one invocable command. Arguments arrive positionally in the
// schema's declared order, with absent values as nil; the ApiContext is the
// final, implicit parameter.
type Handler func(ctx context.Context, args []any, actx *ApiContext) (any, error)

// Entry pairs a service schema with its dispatch table.
type Entry struct {
	Schema   *schema.Service
	Handlers map[string]Handler
}

// Registry maps service names to their schemas and handlers. It is built
// once at startup and read-only afterwards, so concurrent dispatch needs no
// locking.
type Registry struct {
	services map[string]*Entry
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*Entry)}
}

// MustRegister adds a service, panicking on any mismatch between the schema
// and the handler table. Registration happens at startup from literals;
// a mismatch is a programming error, not a runtime condition.
func (r *Registry) MustRegister(svc *schema.Service, handlers map[string]Handler) {
	if svc == nil {
		panic("dispatch: service schema is required")
	}
	if _, exists := r.services[svc.Name]; exists {
		panic(fmt.Sprintf("dispatch: service [%s] is already registered", svc.Name))
	}
	for _, cmd := range svc.Commands() {
		if handlers[cmd.Name] == nil {
			panic(fmt.Sprintf("dispatch: service [%s] has no handler for command [%s]", svc.Name, cmd.Name))
		}
	}
	for name := range handlers {
		if _, ok := svc.Command(name); !ok {
			panic(fmt.Sprintf("dispatch: service [%s] handler [%s] has no schema", svc.Name, name))
		}
	}
	r.services[svc.Name] = &Entry{Schema: svc, Handlers: handlers}
	r.order = append(r.order, svc.Name)
}

// Service looks up a registered service by name.
func (r *Registry) Service(name string) (*Entry, bool) {
	e, ok := r.services[name]
	return e, ok
}

// ServiceNames returns the registered service names in registration order.
// Transports use this to mount one endpoint per command.
func (r *Registry) ServiceNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
