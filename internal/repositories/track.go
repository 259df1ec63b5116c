package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/tidalctl/internal/models"
	"github.com/desertthunder/tidalctl/internal/shared"
)

// TrackRepository implements models.Repository[*models.PersistedTrack] for track caching.
//
// Handles automatic track caching with soft delete support and service-specific lookups.
// Tracks are cached on every fetch so the local library survives provider outages.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	track.SetID(shared.GenerateID())
	track.SetSequence(sequence)

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (id, sequence, service, service_id, title, artist, album, duration, isrc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		track.ID(),
		track.Sequence(),
		track.Service(),
		track.ServiceID(),
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
		track.ISRC(),
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := `
		SELECT id, sequence, service, service_id, title, artist, album, duration, isrc, created_at, updated_at, deleted_at
		FROM tracks
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByServiceID retrieves a track by service and service_id
func (r *TrackRepository) GetByServiceID(service, serviceID string) (*models.PersistedTrack, error) {
	query := `
		SELECT id, sequence, service, service_id, title, artist, album, duration, isrc, created_at, updated_at, deleted_at
		FROM tracks
		WHERE service = ? AND service_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, service, serviceID))
}

// Update modifies an existing track's metadata and refreshes its timestamp
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	track.Touch()

	query := `
		UPDATE tracks
		SET title = ?, artist = ?, album = ?, duration = ?, isrc = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
		track.ISRC(),
		track.UpdatedAt(),
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, track.ID())
	}

	return nil
}

// Delete soft-deletes a track by setting its deleted_at timestamp
func (r *TrackRepository) Delete(id string) error {
	query := `UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

// List retrieves tracks matching the given criteria (service, isrc supported)
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := `
		SELECT id, sequence, service, service_id, title, artist, album, duration, isrc, created_at, updated_at, deleted_at
		FROM tracks
		WHERE deleted_at IS NULL
	`
	args := []any{}

	if service, ok := criteria["service"]; ok {
		query += " AND service = ?"
		args = append(args, service)
	}
	if isrc, ok := criteria["isrc"]; ok {
		query += " AND isrc = ?"
		args = append(args, isrc)
	}

	query += " ORDER BY sequence"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	return tracks, rows.Err()
}

// Count returns the number of cached tracks, excluding soft-deleted rows.
func (r *TrackRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM tracks WHERE deleted_at IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}

// Prune soft-deletes tracks not updated within the retention window and
// returns how many rows were affected.
func (r *TrackRepository) Prune(olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	result, err := r.db.Exec(
		"UPDATE tracks SET deleted_at = ? WHERE updated_at < ? AND deleted_at IS NULL",
		time.Now().UTC(), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune tracks: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check prune result: %w", err)
	}
	return int(rows), nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning logic
type scanner interface {
	Scan(dest ...any) error
}

func (r *TrackRepository) scanOne(row *sql.Row) (*models.PersistedTrack, error) {
	track, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w", shared.ErrTrackNotFound)
	}
	return track, err
}

func (r *TrackRepository) scanRow(s scanner) (*models.PersistedTrack, error) {
	var (
		id, service, serviceID string
		sequence, duration     int
		title                  string
		artist, album, isrc    sql.NullString
		createdAt, updatedAt   time.Time
		deletedAt              sql.NullTime
	)

	err := s.Scan(&id, &sequence, &service, &serviceID, &title, &artist, &album, &duration, &isrc, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	track := models.Track{
		ID:       serviceID,
		Title:    title,
		Artist:   artist.String,
		Album:    album.String,
		Duration: duration,
		ISRC:     isrc.String,
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestorePersistedTrack(id, sequence, service, serviceID, track, createdAt, updatedAt, deleted), nil
}
