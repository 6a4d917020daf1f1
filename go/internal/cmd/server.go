package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/rpsls/go/internal/config"
	"github.com/mcdev12/rpsls/go/internal/middleware"
	"github.com/mcdev12/rpsls/go/internal/ratelimit"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const version = "1.0.0"

func setupServer(cfg config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Register services
	services.Auth.RegisterRoutes(mux)
	services.Gateway.RegisterRoutes(mux)

	setupHealthCheck(mux)
	setupInfo(mux, services)

	mws := []func(http.Handler) http.Handler{middleware.Recover}
	if cfg.Server.ForceHTTPS {
		mws = append(mws, middleware.RedirectHTTPS)
	}
	mws = append(mws,
		middleware.SecurityHeaders,
		middleware.CORS(cfg.Server.AllowedOrigins),
		ratelimit.Middleware(ratelimit.Config{
			Limiter: services.Limiter,
			KeyFunc: services.KeyFunc,
			Clock:   services.Clock,
		}),
	)
	handler := middleware.Chain(mux, mws...)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

type infoResponse struct {
	Service     string           `json:"service"`
	Version     string           `json:"version"`
	Connections int              `json:"connections"`
	Rooms       int              `json:"rooms"`
	Events      map[string]int64 `json:"events"`
}

func setupInfo(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		stats := services.Gateway.Stats()
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(infoResponse{
			Service:     "rpsls",
			Version:     version,
			Connections: stats.Connections,
			Rooms:       stats.Rooms,
			Events:      services.Events.Stats(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to write info response")
		}
	})
}
