/*
Package handler provides the HTTP handlers and routing setup for the GeoDispatch Server.

This file contains the registration endpoint: it creates the logical identity
in the presence registry and persists the profile off the hot path.
*/
package handler

import (
	"context"
	"net/http"
	"time"

	"geodispatch/internal/app/geo"
	"geodispatch/internal/app/store"
	"geodispatch/internal/pkg/errs"
	"geodispatch/internal/pkg/logx"
	"geodispatch/internal/pkg/req"
	"geodispatch/internal/pkg/resp"
)

// MaxUsernameLength bounds usernames; they are client-chosen and land in logs and storage.
const MaxUsernameLength = 64

// RegisterInput is the request body for POST /api/register.
type RegisterInput struct {
	Username string         `json:"username"`
	Position geo.Coordinate `json:"position"`
}

// HandleRegister creates a new user identity with a position and no connection handle.
// Duplicate usernames are rejected and the existing entry is left untouched.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Username == "" || len(input.Username) > MaxUsernameLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := input.Position.Validate(); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := deps.Registry.Register(input.Username, input.Position); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		// Persistence is best-effort and off the hot path: the registry is
		// authoritative and a storage failure must not undo the registration.
		if deps.Profiles != nil {
			go func(username string, pos geo.Coordinate) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if _, err := deps.Profiles.Insert(ctx, username, pos); err != nil {
					if store.IsUniqueViolation(err) {
						// the profile survived an earlier process run;
						// the row is already there and stays authoritative
						logx.Warn("Profile already persisted.", "username", username)
					} else {
						logx.Error(err, "Failed to persist profile", "username", username)
					}
				}
			}(input.Username, input.Position)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"status":   "created",
			"username": input.Username,
		})
	}
}
