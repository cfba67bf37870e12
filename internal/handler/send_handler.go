/*
Package handler provides the HTTP handlers and routing setup for the GeoDispatch Server.

This file contains the send endpoint: it hands a message and a sender position
to the dispatcher, which routes it to the nearest connected user.
*/
package handler

import (
	"net/http"

	"geodispatch/internal/app/geo"
	"geodispatch/internal/app/session"
	"geodispatch/internal/pkg/errs"
	"geodispatch/internal/pkg/req"
	"geodispatch/internal/pkg/resp"
)

// SendInput is the request body for POST /api/send.
type SendInput struct {
	Message  string         `json:"message"`
	Position geo.Coordinate `json:"position"`
}

// HandleSend dispatches a message to the connected user nearest the sender position.
// An empty eligible set answers with NoRecipient; delivery is fire-and-forget.
func HandleSend(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SendInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Message == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if len(input.Message) > session.MaxContentBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageTooLong))
			return
		}

		if customErr := input.Position.Validate(); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		delivery, customErr := deps.Dispatcher.Dispatch(input.Position, input.Message)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"status":      "sent",
			"recipient":   delivery.Recipient,
			"distance_km": delivery.DistanceKm,
		})
	}
}
