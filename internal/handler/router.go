package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/idudko/mendel/internal/middleware"
)

// RouterConfig holds the optional parts of the HTTP API.
type RouterConfig struct {
	Key           string
	TrustedSubnet string
	Pinger        Pinger
	Gatherer      prometheus.Gatherer
}

// NewRouter mounts the HTTP API. Ingest requests pass the trusted subnet,
// gzip and hash checks; reads only the trusted subnet check. Ingest bodies
// are capped at MaxPayloadSize before and after decompression.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.TrustedSubnetMiddleware(cfg.TrustedSubnet))

	r.Group(func(r chi.Router) {
		r.Use(middleware.BodyLimitMiddleware(MaxPayloadSize))
		r.Use(middleware.GzipRequestMiddleware)
		r.Use(middleware.BodyLimitMiddleware(MaxPayloadSize))
		r.Use(middleware.HashValidationMiddleware(cfg.Key))
		r.Post("/ingest/*", h.IngestHandler)
	})

	r.Get("/values", h.ListValuesHandler)
	r.Get("/value/{id}", h.GetValueHandler)
	r.Get("/ping", NewPingHandler(cfg.Pinger).PingHandler)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
