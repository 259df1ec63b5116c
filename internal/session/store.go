package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalctl/internal/shared"
	"golang.org/x/oauth2"
)

// Record is the persisted credential record for a single Tidal login.
//
// ExpiresAt is authoritative for liveness: a missing or unparsable value means
// the session is treated as expired.
type Record struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    float64 `json:"expires_at"`
	UserID       string  `json:"user_id,omitempty"`
}

// Expired reports whether the record's access token has passed its expiry.
//
// A nil record, a zero expiry, or an expiry at or before now all count as expired.
func (r *Record) Expired(now time.Time) bool {
	if r == nil || r.ExpiresAt <= 0 {
		return true
	}
	return r.ExpiresAt <= float64(now.Unix())
}

// Valid reports whether the record carries the fields required to be usable.
func (r *Record) Valid() bool {
	return r != nil && r.AccessToken != "" && r.RefreshToken != ""
}

// Token converts the record into an [oauth2.Token] for the provider client.
func (r *Record) Token() *oauth2.Token {
	if r == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Expiry:       time.Unix(int64(r.ExpiresAt), 0),
	}
}

// RecordFromToken builds a Record from a freshly issued [oauth2.Token].
//
// The refresh token falls back to prev when the provider omits it from a
// refresh response, which Tidal does.
func RecordFromToken(tok *oauth2.Token, prevRefresh, userID string) *Record {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = prevRefresh
	}
	return &Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    float64(tok.Expiry.Unix()),
		UserID:       userID,
	}
}

// Store persists a single credential [Record] as JSON at a fixed path.
//
// Store never returns errors: a session that cannot be read is reported as
// absent and a failed write leaves the previous file untouched. Failures are
// logged so a persistently broken store stays observable.
type Store struct {
	path   string
	logger *log.Logger
}

// NewStore creates a Store writing to path.
func NewStore(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{path: path, logger: logger}
}

// Path returns the session file location.
func (s *Store) Path() string { return s.path }

// Load reads the persisted record.
//
// Returns nil when the file is absent, unreadable, structurally invalid, or
// missing required token fields. All cases mean "no usable session."
func (s *Store) Load() *Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read session file", "path", s.path, "error", err)
		}
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("failed to parse session file", "path", s.path, "error", err)
		return nil
	}

	if !rec.Valid() {
		s.logger.Warn("session file missing required token fields", "path", s.path)
		return nil
	}

	return &rec
}

// Save serializes and writes the record.
//
// Writes go to a temporary file followed by a rename so a failure mid-write
// never truncates a previously valid session file. Failures are logged, not
// returned.
func (s *Store) Save(rec *Record) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		s.logger.Warn("failed to serialize session record", "error", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.logger.Warn("failed to create session directory", "path", filepath.Dir(s.path), "error", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		s.logger.Warn("failed to write session file", "path", tmp, "error", err)
		return
	}

	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Warn("failed to replace session file", "path", s.path, "error", err)
		os.Remove(tmp)
	}
}

// Delete removes the persisted record. A missing file is not an error and
// other failures are logged, so logout always succeeds from the caller's view.
func (s *Store) Delete() {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to delete session file", "path", s.path, "error", err)
	}
}
