package httpapi

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"surfsup-server/internal/config"
)

// NewHandler wraps h with request logging and an OpenTelemetry server span.
// Spans go to the global tracer provider, a no-op unless tracing is set up.
func NewHandler(serviceName string, h http.Handler) http.Handler {
	return otelhttp.NewHandler(requestLogger(h), serviceName)
}

func NewServer(cfg config.Config, serviceName string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(serviceName, h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
