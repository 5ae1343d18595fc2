// Backend is a sample upstream for trying the edge router locally.
// It answers every path with its own listen address and exposes /health.
//
// Usage:
//
//	go run ./scripts/backend -port 3001
//	go run ./scripts/backend -port 3002 -down-after 30s
//
// With -down-after the listener closes after the given delay so the router's
// TCP health probe marks the backend down.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/edge-router/pkg/logger"
)

type whoami struct {
	Backend string `json:"backend"`
	Host    string `json:"host"`
	Path    string `json:"path"`
}

func main() {
	port := flag.Int("port", 3001, "port to listen on")
	downAfter := flag.Duration("down-after", 0, "stop listening after this delay (0 = never)")
	flag.Parse()

	log := logger.New("info", false, "dev")
	addr := fmt.Sprintf("127.0.0.1:%d", *port)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("host", r.Host),
			slog.String("from", r.RemoteAddr))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(whoami{Backend: addr, Host: r.Host, Path: r.URL.Path})
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *downAfter > 0 {
		go func() {
			select {
			case <-time.After(*downAfter):
				log.Warn("going down", slog.Duration("after", *downAfter))
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Info("starting backend", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
