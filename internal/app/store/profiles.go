package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"geodispatch/internal/app/geo"
)

// Profile is the persisted record of a registered user.
type Profile struct {
	ID        string         `json:"id"`
	Username  string         `json:"username"`
	Position  geo.Coordinate `json:"position"`
	Available bool           `json:"available"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ErrNotFound is returned when no profile exists for the requested username.
var ErrNotFound = pgx.ErrNoRows

// Profiles provides access to the profiles table.
type Profiles struct {
	pool *pgxpool.Pool
}

// NewProfiles constructs a Profiles store backed by the given pool.
func NewProfiles(pool *pgxpool.Pool) *Profiles {
	return &Profiles{pool: pool}
}

// Insert persists a newly registered profile. A duplicate username surfaces
// as a unique constraint violation (see IsUniqueViolation).
func (p *Profiles) Insert(ctx context.Context, username string, pos geo.Coordinate) (Profile, error) {
	profile := Profile{
		ID:        uuid.NewString(),
		Username:  username,
		Position:  pos,
		Available: true,
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, username, latitude, longitude, available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		profile.ID, profile.Username, pos.Latitude, pos.Longitude, profile.Available,
	)

	if err := row.Scan(&profile.CreatedAt, &profile.UpdatedAt); err != nil {
		return Profile{}, err
	}

	return profile, nil
}

// GetByUsername fetches a single profile by its unique username.
func (p *Profiles) GetByUsername(ctx context.Context, username string) (Profile, error) {
	var profile Profile

	row := p.pool.QueryRow(ctx, `
		SELECT id, username, latitude, longitude, available, created_at, updated_at
		FROM profiles
		WHERE username = $1`,
		username,
	)

	err := row.Scan(
		&profile.ID,
		&profile.Username,
		&profile.Position.Latitude,
		&profile.Position.Longitude,
		&profile.Available,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}

	return profile, nil
}

// UpdatePosition refreshes the stored position of a profile.
func (p *Profiles) UpdatePosition(ctx context.Context, username string, pos geo.Coordinate) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE profiles
		SET latitude = $2, longitude = $3, updated_at = now()
		WHERE username = $1`,
		username, pos.Latitude, pos.Longitude,
	)
	return err
}

// Nearest returns up to limit profiles ordered by great-circle distance from
// pos, computed SQL-side with the same haversine formula the dispatcher uses.
// This is the lookup path the geospatial index serves; live matching never
// goes through it.
func (p *Profiles) Nearest(ctx context.Context, pos geo.Coordinate, limit int) ([]Profile, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, username, latitude, longitude, available, created_at, updated_at
		FROM profiles
		ORDER BY 2 * 6371 * asin(sqrt(
			pow(sin(radians(latitude - $1) / 2), 2) +
			cos(radians($1)) * cos(radians(latitude)) *
			pow(sin(radians(longitude - $2) / 2), 2)
		)) ASC, created_at ASC
		LIMIT $3`,
		pos.Latitude, pos.Longitude, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]Profile, 0, limit)
	for rows.Next() {
		var profile Profile
		err := rows.Scan(
			&profile.ID,
			&profile.Username,
			&profile.Position.Latitude,
			&profile.Position.Longitude,
			&profile.Available,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}
