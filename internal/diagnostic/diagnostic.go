// Package diagnostic exposes a small anonymous service for probing a
// running server: one command that reports process vitals and one that
// fails on purpose, for exercising the error path end to end.
package diagnostic

import (
	"context"
	"errors"
	"runtime"
	"time"

	"gridnet.org/internal/dispatch"
	"gridnet.org/internal/schema"
)

// ServerInfo is the vitals report returned by the ServerInfo command.
type ServerInfo struct {
	NetworkName   string `json:"network_name"`
	NetworkTime   string `json:"network_time"`
	ServerName    string `json:"server_name"`
	ServerVersion string `json:"server_version"`
	ServerStart   string `json:"server_start"`
	ServerMemory  uint64 `json:"server_memory"`
	TotalMemory   uint64 `json:"total_memory"`
	Goroutines    int    `json:"goroutines"`
}

// Service reports on the process hosting it.
type Service struct {
	networkName string
	serverName  string
	version     string
	startedAt   time.Time
	now         func() time.Time
}

// NewService constructs the diagnostic service. startedAt should be the
// process start, captured once in main.
func NewService(networkName, serverName, version string, startedAt time.Time) *Service {
	return &Service{
		networkName: networkName,
		serverName:  serverName,
		version:     version,
		startedAt:   startedAt,
		now:         time.Now,
	}
}

// ServerInfo reports process vitals. Anonymous on purpose: it is the
// standard liveness probe for clients that have no token yet.
func (s *Service) ServerInfo(_ context.Context, _ *dispatch.ApiContext) (*ServerInfo, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	now := s.now()
	return &ServerInfo{
		NetworkName:   s.networkName,
		NetworkTime:   now.UTC().Format(time.RFC3339),
		ServerName:    s.serverName,
		ServerVersion: s.version,
		ServerStart:   s.startedAt.UTC().Format(time.RFC3339),
		ServerMemory:  mem.HeapAlloc,
		TotalMemory:   mem.HeapSys,
		Goroutines:    runtime.NumGoroutine(),
	}, nil
}

// ServerError always fails, so callers can verify the failure envelope and
// notification path of a deployment.
func (s *Service) ServerError(_ context.Context, _ *dispatch.ApiContext) (any, error) {
	return nil, errors.New("Here is your error. I hope you find it useful.")
}

// Schema declares the Diagnostic service commands.
func Schema() *schema.Service {
	svc := schema.NewService("Diagnostic")

	svc.Objects["DiagnosticServerInfo"] = schema.Object{
		Description: "The server info object.",
		Properties: []schema.Property{
			{Name: "network_name", Spec: schema.Spec{Type: "string", Description: "The name of the network."}},
			{Name: "network_time", Spec: schema.Spec{Type: "string", Description: "The current time on the network."}},
			{Name: "server_name", Spec: schema.Spec{Type: "string", Description: "The name of the server."}},
			{Name: "server_version", Spec: schema.Spec{Type: "string", Description: "The version of the server."}},
			{Name: "server_start", Spec: schema.Spec{Type: "string", Description: "The time the server started."}},
			{Name: "server_memory", Spec: schema.Spec{Type: "number", Description: "The current memory usage of the server."}},
			{Name: "total_memory", Spec: schema.Spec{Type: "number", Description: "The total memory available to the server."}},
			{Name: "goroutines", Spec: schema.Spec{Type: "number", Description: "The number of live goroutines."}},
		},
	}

	svc.MustAdd(schema.Command{
		Name:        "ServerInfo",
		Description: "Gets server info.",
		Groups:      []string{},
		Returns:     schema.Spec{Type: "object", Object: "DiagnosticServerInfo"},
	})
	svc.MustAdd(schema.Command{
		Name:        "ServerError",
		Description: "Throws a server error.",
		Groups:      []string{},
		Returns:     schema.Spec{Type: "object"},
	})
	return svc
}

// Handlers builds the dispatch table for the service.
func (s *Service) Handlers() map[string]dispatch.Handler {
	return map[string]dispatch.Handler{
		"ServerInfo": func(ctx context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			return s.ServerInfo(ctx, actx)
		},
		"ServerError": func(ctx context.Context, _ []any, actx *dispatch.ApiContext) (any, error) {
			return s.ServerError(ctx, actx)
		},
	}
}
