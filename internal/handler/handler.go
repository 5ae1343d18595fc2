package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/angeloszaimis/edge-router/internal/metrics"
	"github.com/angeloszaimis/edge-router/internal/router"
)

const (
	HeaderBackendAddress = "X-Backend-Address"
	HeaderUpstreamTLS    = "X-Upstream-TLS"
)

type DecisionHandler struct {
	logger *slog.Logger
	router *router.Router
	events chan<- metrics.MetricEvent
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *DecisionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	h.logger.Debug("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("proto", r.Proto),
		slog.String("host", r.Host))

	decision, err := h.router.Decide(hostHeader(r), r.URL.Host, scheme(r))
	if err != nil {
		h.fail(w, clientIP, err)
		return
	}

	metrics.Emit(h.events, metrics.MetricEvent{
		Type:     metrics.EventRouteSelected,
		Upstream: decision.Upstream,
		Backend:  decision.BackendAddress,
		Host:     decision.Host,
	})

	h.logger.Debug("Routed request",
		slog.String("client", clientIP),
		slog.String("host", decision.Host),
		slog.String("upstream", decision.Upstream),
		slog.String("backend", decision.BackendAddress))

	w.Header().Set(HeaderBackendAddress, decision.BackendAddress)
	w.Header().Set(HeaderUpstreamTLS, strconv.FormatBool(decision.UseTLS))
	writeJSON(w, http.StatusOK, decision)
}

func (h *DecisionHandler) fail(w http.ResponseWriter, clientIP string, err error) {
	status, reason := classify(err)

	var routingErr *router.RoutingError
	ev := metrics.MetricEvent{Type: metrics.EventRouteFailed, Reason: reason}
	if errors.As(err, &routingErr) {
		ev.Host = routingErr.Host
		ev.Upstream = routingErr.Upstream
	}
	metrics.Emit(h.events, ev)

	if status == http.StatusServiceUnavailable {
		h.logger.Warn("No healthy backends available",
			slog.String("client", clientIP),
			slog.String("upstream", ev.Upstream))
	} else {
		h.logger.Debug("Routing failed",
			slog.String("client", clientIP),
			slog.Any("err", err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// classify maps a routing error to an HTTP status and a metrics reason.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, router.ErrNoHostHeader):
		return http.StatusBadRequest, metrics.ReasonNoHost
	case errors.Is(err, router.ErrUnknownHost):
		return http.StatusNotFound, metrics.ReasonUnknownHost
	case errors.Is(err, router.ErrNoHealthyBackend):
		return http.StatusServiceUnavailable, metrics.ReasonNoHealthyBackend
	default:
		return http.StatusInternalServerError, metrics.ReasonInternal
	}
}

// hostHeader prefers the first X-Forwarded-Host value over Host.
func hostHeader(r *http.Request) string {
	if xfh := r.Header.Get("X-Forwarded-Host"); xfh != "" {
		return strings.TrimSpace(strings.Split(xfh, ",")[0])
	}
	return r.Host
}

func scheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func NewDecisionHandler(logger *slog.Logger, r *router.Router, events chan<- metrics.MetricEvent) *DecisionHandler {
	return &DecisionHandler{
		logger: logger,
		router: r,
		events: events,
	}
}
