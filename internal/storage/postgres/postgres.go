// Package postgres implements the worldmap platform capabilities on a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Store is a Postgres-backed implementation of every row capability.
type Store struct {
	db *pgxpool.Pool
}

// New wraps an existing pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pool and checks it answers.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// mapErr translates driver errors into domain sentinels, keeping the original message.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s (SQLSTATE %s, %s): %w", pgErr.Message, pgErr.Code, pgErr.ConstraintName, domain.ErrConflict)
	}
	return err
}

// CreateAccount hashes the password and inserts the account row.
func (s *Store) CreateAccount(ctx context.Context, email, password string) (domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.Identity{}, domain.Invalid("email", "email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	const q = `INSERT INTO accounts (id, email, password_hash) VALUES ($1, $2, $3)`
	id := domain.Identity{UserID: uuid.NewString(), Email: email}
	if _, err := s.db.Exec(ctx, q, id.UserID, email, string(hash)); err != nil {
		return domain.Identity{}, mapErr(err)
	}
	return id, nil
}

const profileColumns = `user_id, slug, full_name, home_city, avatar_path, created_at, updated_at`

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.UserID, &p.Slug, &p.FullName, &p.HomeCity, &p.AvatarPath, &p.CreatedAt, &p.UpdatedAt)
	return p, mapErr(err)
}

// UpsertProfile inserts or updates the profile keyed by user id.
func (s *Store) UpsertProfile(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	const q = `
		INSERT INTO profiles (user_id, slug, full_name, home_city, avatar_path)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			slug = EXCLUDED.slug,
			full_name = EXCLUDED.full_name,
			home_city = EXCLUDED.home_city,
			avatar_path = EXCLUDED.avatar_path,
			updated_at = NOW()
		RETURNING ` + profileColumns

	return scanProfile(s.db.QueryRow(ctx, q, p.UserID, p.Slug, p.FullName, p.HomeCity, p.AvatarPath))
}

// ProfileBySlug looks a profile up by slug, ignoring case.
func (s *Store) ProfileBySlug(ctx context.Context, slug string) (domain.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE lower(slug) = lower($1)`
	return scanProfile(s.db.QueryRow(ctx, q, slug))
}

// ProfileByUser loads the profile of a user.
func (s *Store) ProfileByUser(ctx context.Context, userID string) (domain.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	return scanProfile(s.db.QueryRow(ctx, q, userID))
}

const placeColumns = `id, place_key, city, region, country, lat, lng`

func scanPlace(row pgx.Row) (domain.Place, error) {
	var p domain.Place
	err := row.Scan(&p.ID, &p.Key, &p.City, &p.Region, &p.Country, &p.Lat, &p.Lng)
	return p, mapErr(err)
}

// EnsurePlace inserts the place or returns the row already stored under its key.
// The no-op update makes RETURNING yield the existing row on conflict.
func (s *Store) EnsurePlace(ctx context.Context, in domain.PlaceInput) (domain.Place, error) {
	q := `
		INSERT INTO places (id, place_key, city, region, country, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (place_key) DO UPDATE SET place_key = EXCLUDED.place_key
		RETURNING ` + placeColumns

	return scanPlace(s.db.QueryRow(ctx, q,
		uuid.NewString(),
		in.Key(),
		strings.TrimSpace(in.City),
		strings.TrimSpace(in.Region),
		strings.TrimSpace(in.Country),
		in.Lat,
		in.Lng,
	))
}

// PlaceByID loads a place.
func (s *Store) PlaceByID(ctx context.Context, id string) (domain.Place, error) {
	q := `SELECT ` + placeColumns + ` FROM places WHERE id = $1`
	return scanPlace(s.db.QueryRow(ctx, q, id))
}

// UpsertPin is idempotent on (user_id, place_id); a repeat only refreshes the label.
func (s *Store) UpsertPin(ctx context.Context, pin domain.PinRow) error {
	const q = `
		INSERT INTO pins (user_id, place_id, label) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, place_id) DO UPDATE SET label = EXCLUDED.label`

	_, err := s.db.Exec(ctx, q, pin.UserID, pin.PlaceID, pin.Label)
	return mapErr(err)
}

// PinsForUser joins pins with their places, oldest pin first.
func (s *Store) PinsForUser(ctx context.Context, userID string) ([]domain.Pin, error) {
	const q = `
		SELECT p.id, p.place_key, p.city, p.region, p.country, p.lat, p.lng, pn.label
		FROM pins pn
		JOIN places p ON p.id = pn.place_id
		WHERE pn.user_id = $1
		ORDER BY pn.created_at, p.id`

	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]domain.Pin, 0)
	for rows.Next() {
		var place domain.Place
		var label string
		if err := rows.Scan(&place.ID, &place.Key, &place.City, &place.Region, &place.Country, &place.Lat, &place.Lng, &label); err != nil {
			return nil, err
		}
		out = append(out, domain.PinFromPlace(place, label))
	}
	return out, rows.Err()
}

// DeletePin removes the pin; deleting a missing pin is not an error.
func (s *Store) DeletePin(ctx context.Context, userID, placeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM pins WHERE user_id = $1 AND place_id = $2`, userID, placeID)
	return mapErr(err)
}

const memoryColumns = `id, user_id, place_id, description, note, taken_at, visibility, created_at`

func scanMemory(row pgx.Row) (domain.Memory, error) {
	var m domain.Memory
	var vis string
	err := row.Scan(&m.ID, &m.UserID, &m.PlaceID, &m.Description, &m.Note, &m.TakenAt, &vis, &m.CreatedAt)
	m.Visibility = domain.Visibility(vis)
	return m, mapErr(err)
}

// InsertMemory stores a memory and returns the row.
func (s *Store) InsertMemory(ctx context.Context, in domain.NewMemory) (domain.Memory, error) {
	vis := in.Visibility
	if vis == "" {
		vis = domain.VisibilityPublic
	}
	q := `
		INSERT INTO memories (id, user_id, place_id, description, note, taken_at, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + memoryColumns

	return scanMemory(s.db.QueryRow(ctx, q,
		uuid.NewString(), in.UserID, in.PlaceID, in.Description, in.Note, in.TakenAt, string(vis)))
}

// MemoriesForPlace lists a user's memories at a place, newest first.
func (s *Store) MemoriesForPlace(ctx context.Context, userID, placeID string) ([]domain.Memory, error) {
	q := `SELECT ` + memoryColumns + ` FROM memories
		WHERE user_id = $1 AND place_id = $2
		ORDER BY COALESCE(taken_at, created_at) DESC, created_at DESC`

	rows, err := s.db.Query(ctx, q, userID, placeID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]domain.Memory, 0)
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MemoryByID loads one memory.
func (s *Store) MemoryByID(ctx context.Context, id string) (domain.Memory, error) {
	q := `SELECT ` + memoryColumns + ` FROM memories WHERE id = $1`
	return scanMemory(s.db.QueryRow(ctx, q, id))
}

// DeleteMemory removes the memory row.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountMemoriesAtPlace counts a user's memories at a place.
func (s *Store) CountMemoriesAtPlace(ctx context.Context, userID, placeID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM memories WHERE user_id = $1 AND place_id = $2`, userID, placeID).Scan(&n)
	return n, mapErr(err)
}

// InsertMediaRecord stores a media row.
func (s *Store) InsertMediaRecord(ctx context.Context, rec domain.MediaRecord) (domain.MediaRecord, error) {
	const q = `
		INSERT INTO media (id, memory_id, storage_path, sort_order, taken_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, memory_id, storage_path, sort_order, taken_at, created_at`

	var out domain.MediaRecord
	err := s.db.QueryRow(ctx, q, uuid.NewString(), rec.MemoryID, rec.StoragePath, rec.SortOrder, rec.TakenAt).
		Scan(&out.ID, &out.MemoryID, &out.StoragePath, &out.SortOrder, &out.TakenAt, &out.CreatedAt)
	return out, mapErr(err)
}

// MediaForMemory lists media rows by sort order.
func (s *Store) MediaForMemory(ctx context.Context, memoryID string) ([]domain.MediaRecord, error) {
	const q = `
		SELECT id, memory_id, storage_path, sort_order, taken_at, created_at
		FROM media WHERE memory_id = $1
		ORDER BY sort_order, created_at`

	rows, err := s.db.Query(ctx, q, memoryID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]domain.MediaRecord, 0)
	for rows.Next() {
		var r domain.MediaRecord
		if err := rows.Scan(&r.ID, &r.MemoryID, &r.StoragePath, &r.SortOrder, &r.TakenAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteMediaForMemory removes every media row of a memory.
func (s *Store) DeleteMediaForMemory(ctx context.Context, memoryID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM media WHERE memory_id = $1`, memoryID)
	return mapErr(err)
}
