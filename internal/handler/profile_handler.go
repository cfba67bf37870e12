/*
Package handler provides the HTTP handlers and routing setup for the GeoDispatch Server.

This file contains the profile lookup endpoints served from the durable store.
They are read-only and sit entirely outside the matching hot path.
*/
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"geodispatch/internal/app/geo"
	"geodispatch/internal/app/store"
	"geodispatch/internal/pkg/errs"
	"geodispatch/internal/pkg/logx"
	"geodispatch/internal/pkg/resp"
)

// DefaultNearbyLimit caps how many profiles a nearby query returns by default.
const DefaultNearbyLimit = 10

// MaxNearbyLimit is the hard upper bound for the nearby query limit parameter.
const MaxNearbyLimit = 100

// HandleGetProfile fetches a stored profile by username.
func HandleGetProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Profiles == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		username := chi.URLParam(r, "username")
		if username == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		profile, err := deps.Profiles.GetByUsername(r.Context(), username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrProfileNotFound))
				return
			}
			logx.Error(err, "Failed to fetch profile", "username", username)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, profile)
	}
}

// HandleNearbyProfiles lists stored profiles ranked by distance from the given position.
func HandleNearbyProfiles(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Profiles == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		query := r.URL.Query()

		lat, latErr := strconv.ParseFloat(query.Get("latitude"), 64)
		lon, lonErr := strconv.ParseFloat(query.Get("longitude"), 64)
		if latErr != nil || lonErr != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		pos := geo.Coordinate{Latitude: lat, Longitude: lon}
		if customErr := pos.Validate(); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		limit := DefaultNearbyLimit
		if limitStr := query.Get("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil || parsed < 1 || parsed > MaxNearbyLimit {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			limit = parsed
		}

		profiles, err := deps.Profiles.Nearest(r.Context(), pos, limit)
		if err != nil {
			logx.Error(err, "Failed to query nearby profiles")
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"count":    len(profiles),
			"profiles": profiles,
		})
	}
}
