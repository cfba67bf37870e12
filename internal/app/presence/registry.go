/*
Package presence holds the authoritative mapping of logical user identity to
last-known position and current connection handle.

The Registry is the single owner of User records. All operations are serialized
under one mutex and perform no I/O while holding it; dispatch copies the target
handle out before touching the transport.
*/
package presence

import (
	"sync"

	"github.com/rs/zerolog"

	"geodispatch/internal/app/geo"
	"geodispatch/internal/pkg/errs"
	"geodispatch/internal/pkg/logx"
)

// Handle is the opaque reference to a live transport session. Outbound messages
// are routed through it; the websocket session implements it.
type Handle interface {
	// ID uniquely identifies the underlying transport session.
	ID() string

	// Send queues a payload for delivery to the connected client.
	// It must not block; a full queue or closed session returns an error.
	Send(v any) error
}

// User represents one registered identity and its transient connection state.
type User struct {
	// Username is the unique identity key, immutable after registration.
	Username string

	// Position is the last-known coordinate, set at registration and
	// optionally refreshed by the live connection.
	Position geo.Coordinate

	// handle is the active transport session, nil while disconnected.
	handle Handle
}

// Target is a copy of the fields dispatch needs, valid outside the registry lock.
type Target struct {
	Username   string
	Position   geo.Coordinate
	DistanceKm float64
	Handle     Handle
}

// Registry owns the collection of Users, keyed by username.
// Entries are created on registration and persist for the process lifetime;
// disconnect only clears the handle.
type Registry struct {
	mu sync.RWMutex

	// users maps username to its record.
	users map[string]*User

	// order preserves registration order for the deterministic
	// first-registered-wins tie break in NearestEligible.
	order []string

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[string]*User),
		order:  make([]string, 0),
		logger: logx.Logger().With().Str("component", "presence").Logger(),
	}
}

// Register creates a new User entry with no connection handle.
// Registering an existing username fails with ErrDuplicateUser and leaves
// the existing entry untouched.
func (reg *Registry) Register(username string, pos geo.Coordinate) *errs.CustomError {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.users[username]; ok {
		reg.logger.Warn().Str("username", username).Msg("Duplicate registration rejected.")
		return errs.NewError(errs.ErrDuplicateUser)
	}

	reg.users[username] = &User{
		Username: username,
		Position: pos,
	}
	reg.order = append(reg.order, username)

	reg.logger.Info().
		Str("username", username).
		Float64("latitude", pos.Latitude).
		Float64("longitude", pos.Longitude).
		Msg("User registered.")

	return nil
}

// BindConnection associates a live handle with a registered username,
// overwriting any prior handle so reconnects just work.
// Binding to an unknown username fails with ErrUnknownUser.
func (reg *Registry) BindConnection(username string, h Handle) *errs.CustomError {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	u, ok := reg.users[username]
	if !ok {
		return errs.NewError(errs.ErrUnknownUser)
	}

	if u.handle != nil && u.handle.ID() != h.ID() {
		reg.logger.Info().
			Str("username", username).
			Str("old_session", u.handle.ID()).
			Str("new_session", h.ID()).
			Msg("Replacing existing connection handle.")
	}

	u.handle = h

	reg.logger.Info().
		Str("username", username).
		Str("session_id", h.ID()).
		Msg("Connection bound.")

	return nil
}

// UpdatePosition refreshes the last-known position of a registered username.
func (reg *Registry) UpdatePosition(username string, pos geo.Coordinate) *errs.CustomError {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	u, ok := reg.users[username]
	if !ok {
		return errs.NewError(errs.ErrUnknownUser)
	}

	u.Position = pos
	return nil
}

// UnbindConnection clears the handle of whichever user holds the given session.
// It is a no-op when no user holds it: disconnect events may race registration
// or arrive twice, and both are safe.
func (reg *Registry) UnbindConnection(h Handle) {
	if h == nil {
		return
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, u := range reg.users {
		if u.handle != nil && u.handle.ID() == h.ID() {
			u.handle = nil
			reg.logger.Info().
				Str("username", u.Username).
				Str("session_id", h.ID()).
				Msg("Connection unbound.")
			return
		}
	}
}

// NearestEligible returns a copy of the connected user closest to pos.
// Registered-but-disconnected users are invisible. Ties are broken by
// registration order (strict less-than over the insertion sequence).
// The second return value is false when no user is eligible.
func (reg *Registry) NearestEligible(pos geo.Coordinate) (Target, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var (
		best  Target
		found bool
	)

	for _, username := range reg.order {
		u := reg.users[username]
		if u.handle == nil {
			continue
		}

		d := geo.Distance(pos, u.Position)
		if !found || d < best.DistanceKm {
			best = Target{
				Username:   u.Username,
				Position:   u.Position,
				DistanceKm: d,
				Handle:     u.handle,
			}
			found = true
		}
	}

	return best, found
}

// Counts reports the number of registered users and how many of them currently
// hold a live connection.
func (reg *Registry) Counts() (registered int, connected int) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	registered = len(reg.users)
	for _, u := range reg.users {
		if u.handle != nil {
			connected++
		}
	}
	return registered, connected
}
