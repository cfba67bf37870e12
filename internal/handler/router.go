/*
Package handler provides the HTTP handlers and routing setup for the GeoDispatch Server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"geodispatch/internal/pkg/limiter"
	"geodispatch/internal/pkg/logx"
	"geodispatch/internal/pkg/resp"
)

const (
	RegisterRate  = 0.2
	RegisterBurst = 5
	SendRate      = 2.0
	SendBurst     = 10
	ConnectRate   = 0.5
	ConnectBurst  = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	registerLimiter := limiter.NewIPRateLimiter(rate.Limit(RegisterRate), RegisterBurst)
	sendLimiter := limiter.NewIPRateLimiter(rate.Limit(SendRate), SendBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		registered, connected := deps.Registry.Counts()

		data := map[string]any{
			"status":     "ok",
			"service":    "GeoDispatch Server",
			"registered": registered,
			"connected":  connected,
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		rateLimitedRegister := registerLimiter.Middleware(HandleRegister(deps))
		api.Post("/register", http.HandlerFunc(rateLimitedRegister.ServeHTTP))

		rateLimitedSend := sendLimiter.Middleware(HandleSend(deps))
		api.Post("/send", http.HandlerFunc(rateLimitedSend.ServeHTTP))

		api.Route("/profiles", func(profiles chi.Router) {
			profiles.Get("/nearby", HandleNearbyProfiles(deps))
			profiles.Get("/{username}", HandleGetProfile(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	return r
}
