// Package httpapi mounts the command pipeline on HTTP. Every command is one
// POST endpoint; the response is always the uniform result envelope with
// HTTP status 200, so callers distinguish outcomes by the envelope's ok
// field, never by HTTP status.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"gridnet.org/internal/dispatch"
	"gridnet.org/internal/obs"
)

// ReadyProbe reports readiness, pinging the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over a dispatcher.
type API struct {
	mux        *http.ServeMux
	dispatcher *dispatch.Dispatcher
	readyProbe ReadyProbe
	version    string
	rateBurst  int
	ratePerSec int
}

func New(dispatcher *dispatch.Dispatcher, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		dispatcher: dispatcher,
		readyProbe: rp,
		version:    version,
		rateBurst:  50,
		ratePerSec: 25,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())
	a.mux.HandleFunc("POST /{service}/{command}", a.Command)
	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for an http.Server. The rate
// limiter sits inside the logging wrapper so rejected requests still show up
// in the request log.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = Logging(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// Command invokes one service command. The request body is a JSON object of
// named arguments; an empty body means no arguments.
func (a *API) Command(w http.ResponseWriter, r *http.Request) {
	var arguments map[string]any
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":    false,
			"error": "Unable to read the request body.",
		})
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &arguments); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": "The request body must be a JSON object.",
			})
			return
		}
	}

	cmd := &dispatch.Command{
		ServiceName: r.PathValue("service"),
		CommandName: r.PathValue("command"),
		Arguments:   arguments,
	}
	actx := &dispatch.ApiContext{
		SourceAddress: clientIP(r),
		Authorization: bearerToken(r.Header.Get("Authorization")),
	}

	res, err := a.dispatcher.ProcessCommand(r.Context(), cmd, actx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}
	if res.ReturnAuthorization != "" {
		w.Header().Set("Authorization", res.ReturnAuthorization)
	}
	writeJSON(w, http.StatusOK, res)
}

// bearerToken strips an optional "Bearer " prefix, case-insensitively.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
