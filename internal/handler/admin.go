package handler

import (
	"net/http"
	"time"

	"github.com/angeloszaimis/edge-router/config"
)

// Source supplies the active configuration snapshot.
type Source interface {
	Get() *config.Snapshot
}

type BackendStatus struct {
	Address  string `json:"address"`
	Healthy  bool   `json:"healthy"`
	Failures uint32 `json:"failures"`
}

type RouteStatus struct {
	Host     string          `json:"host"`
	Upstream string          `json:"upstream"`
	Policy   string          `json:"policy"`
	TLS      bool            `json:"tls"`
	Backends []BackendStatus `json:"backends"`
}

type RoutesResponse struct {
	LoadedAt time.Time     `json:"loaded_at"`
	Routes   []RouteStatus `json:"routes"`
}

// Healthz reports liveness. It answers 503 until a snapshot is active.
func Healthz(source Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if source.Get() == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Routes lists every hostname of the active snapshot with backend health.
func Routes(source Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := source.Get()
		if snap == nil || snap.Routes == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no active configuration"})
			return
		}

		resp := RoutesResponse{LoadedAt: snap.LoadedAt, Routes: []RouteStatus{}}
		for _, host := range snap.Routes.Hosts() {
			entry, _ := snap.Routes.Lookup(host)

			status := RouteStatus{
				Host:     host,
				Upstream: entry.Upstream(),
				Policy:   entry.Balancer.Policy(),
				TLS:      entry.TLS,
			}
			for _, b := range entry.Balancer.Backends() {
				status.Backends = append(status.Backends, BackendStatus{
					Address:  b.Address(),
					Healthy:  b.IsHealthy(),
					Failures: b.Failures(),
				})
			}
			resp.Routes = append(resp.Routes, status)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
