package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridnet_commands_total",
			Help: "Total number of commands processed.",
		},
		[]string{"service", "command", "ok"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridnet_command_duration_seconds",
			Help:    "Command processing latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "command"},
	)

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gridnet_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridnet_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
)

// Init registers the metrics with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(commandsTotal, commandDuration, httpInFlight, httpRequestsTotal)
}

// ObserveCommand records one processed command.
func ObserveCommand(service, command string, ok bool, elapsed time.Duration) {
	commandsTotal.WithLabelValues(service, command, strconv.FormatBool(ok)).Inc()
	commandDuration.WithLabelValues(service, command).Observe(elapsed.Seconds())
}

// Handler exposes the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an http.Handler with request counting and the in-flight
// gauge.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.code)).Inc()
		httpInFlight.Dec()
	})
}
