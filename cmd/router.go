package main

import (
	"net/http"

	"github.com/angeloszaimis/edge-router/internal/handler"
	"github.com/angeloszaimis/edge-router/internal/metrics"
)

func setupRouter(decisionHandler *handler.DecisionHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/", decisionHandler)

	return mux
}

func setupAdminRouter(source handler.Source, metricsCollector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", metricsCollector.PrometheusHandler())
	mux.HandleFunc("GET /stats", metricsCollector.StatsHandler())
	mux.HandleFunc("GET /healthz", handler.Healthz(source))
	mux.HandleFunc("GET /routes", handler.Routes(source))

	return mux
}
