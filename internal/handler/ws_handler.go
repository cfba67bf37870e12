/*
Package handler provides the HTTP handler function for websocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
upgrading the HTTP connection to websocket, and initiating the session lifecycle.
The upgrade alone associates no identity; the client binds one with a REGISTER event.
*/
package handler

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"geodispatch/internal/app/geo"
	"geodispatch/internal/app/session"
	"geodispatch/internal/pkg/errs"
	"geodispatch/internal/pkg/limiter"
	"geodispatch/internal/pkg/logx"
	"geodispatch/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process websocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	// Position refreshes from the live connection follow into the durable
	// store best-effort, off the hot path, like the registration insert.
	var refreshPosition session.PositionRefreshHook
	if deps.Profiles != nil {
		refreshPosition = func(username string, pos geo.Coordinate) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := deps.Profiles.UpdatePosition(ctx, username, pos); err != nil {
					logx.Error(err, "Failed to persist position refresh", "username", username)
				}
			}()
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := session.NewClient(conn, deps.Registry, deps.Dispatcher, refreshPosition)

		go client.WritePump()

		logx.Info("WebSocket connection established", "session_id", client.ID())

		client.ReadPump()
	}
}
