package models

import (
	"fmt"
	"time"
)

// PersistedTrack is a database-backed cache entry for a fetched track.
//
// Rows are keyed by (service, service id) so repeated fetches of the same
// track dedupe, and carry the ISRC for catalog matching.
type PersistedTrack struct {
	id        string
	sequence  int
	service   string
	serviceID string
	track     Track
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedTrack creates a PersistedTrack wrapping a domain Track.
func NewPersistedTrack(sequence int, service, serviceID string, track Track) *PersistedTrack {
	now := time.Now().UTC()
	return &PersistedTrack{
		sequence:  sequence,
		service:   service,
		serviceID: serviceID,
		track:     track,
		createdAt: now,
		updatedAt: now,
	}
}

// RestorePersistedTrack rebuilds a PersistedTrack from database columns.
func RestorePersistedTrack(id string, sequence int, service, serviceID string, track Track, createdAt, updatedAt time.Time, deletedAt *time.Time) *PersistedTrack {
	return &PersistedTrack{
		id:        id,
		sequence:  sequence,
		service:   service,
		serviceID: serviceID,
		track:     track,
		createdAt: createdAt,
		updatedAt: updatedAt,
		deletedAt: deletedAt,
	}
}

func (t *PersistedTrack) ID() string            { return t.id }
func (t *PersistedTrack) Sequence() int         { return t.sequence }
func (t *PersistedTrack) Service() string       { return t.service }
func (t *PersistedTrack) ServiceID() string     { return t.serviceID }
func (t *PersistedTrack) Track() Track          { return t.track }
func (t *PersistedTrack) Title() string         { return t.track.Title }
func (t *PersistedTrack) Artist() string        { return t.track.Artist }
func (t *PersistedTrack) Album() string         { return t.track.Album }
func (t *PersistedTrack) Duration() int         { return t.track.Duration }
func (t *PersistedTrack) ISRC() string          { return t.track.ISRC }
func (t *PersistedTrack) CreatedAt() time.Time  { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time  { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }

// SetID assigns the generated identifier before insertion.
func (t *PersistedTrack) SetID(id string) { t.id = id }

// SetSequence assigns the generated sequence number before insertion.
func (t *PersistedTrack) SetSequence(seq int) { t.sequence = seq }

// Touch updates the modification timestamp.
func (t *PersistedTrack) Touch() { t.updatedAt = time.Now().UTC() }

// Validate checks if the track's data is valid.
func (t *PersistedTrack) Validate() error {
	if t.id == "" {
		return fmt.Errorf("track id is required")
	}
	if t.service == "" {
		return fmt.Errorf("track service is required")
	}
	if t.serviceID == "" {
		return fmt.Errorf("track service id is required")
	}
	if t.track.Title == "" {
		return fmt.Errorf("track title is required")
	}
	return nil
}
