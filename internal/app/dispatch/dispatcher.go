/*
Package dispatch selects the nearest connected user for a message and forwards
it over that user's connection handle.

Dispatch is fire-and-forget: "sent" means handed to the transport layer. There
is no retry, no acknowledgment, and no fallback recipient when a handle goes
stale between selection and send.
*/
package dispatch

import (
	"github.com/rs/zerolog"

	"geodispatch/internal/app/geo"
	"geodispatch/internal/app/presence"
	"geodispatch/internal/app/wire"
	"geodispatch/internal/pkg/errs"
	"geodispatch/internal/pkg/logx"
)

// Delivery describes a completed dispatch decision.
type Delivery struct {
	// Recipient is the username the message was routed to.
	Recipient string

	// DistanceKm is the great-circle distance between sender and recipient.
	DistanceKm float64
}

// Dispatcher routes messages to the nearest eligible user in the registry.
type Dispatcher struct {
	registry *presence.Registry
	logger   zerolog.Logger
}

// NewDispatcher constructs a Dispatcher backed by the given registry.
func NewDispatcher(registry *presence.Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logx.Logger().With().Str("component", "dispatch").Logger(),
	}
}

// Dispatch selects the connected user nearest to the sender position and sends
// the message over that user's handle. An empty eligible set fails with
// ErrNoRecipient; that is an ordinary outcome, not a server fault.
//
// The handle is copied out of the registry before the send, so the registry
// lock is never held during transport I/O. A transport error on a handle that
// went stale in that window is logged and swallowed; the dispatch still
// reports the chosen recipient.
func (d *Dispatcher) Dispatch(sender geo.Coordinate, message string) (Delivery, *errs.CustomError) {
	target, ok := d.registry.NearestEligible(sender)
	if !ok {
		d.logger.Info().Msg("Dispatch found no eligible recipient.")
		return Delivery{}, errs.NewError(errs.ErrNoRecipient)
	}

	out := wire.NewMessage(wire.TypeDelivered, wire.DeliveredPayload{
		Message: message,
		SenderPosition: wire.Position{
			Latitude:  sender.Latitude,
			Longitude: sender.Longitude,
		},
	})

	if err := target.Handle.Send(out); err != nil {
		// Best-effort send: the recipient may have disconnected between
		// the eligibility read and the write.
		d.logger.Warn().
			Err(err).
			Str("recipient", target.Username).
			Str("session_id", target.Handle.ID()).
			Msg("Transport send to stale handle failed. Message dropped.")
	} else {
		d.logger.Info().
			Str("recipient", target.Username).
			Float64("distance_km", target.DistanceKm).
			Msg("Message dispatched to nearest user.")
	}

	return Delivery{
		Recipient:  target.Username,
		DistanceKm: target.DistanceKm,
	}, nil
}
