// package services defines interface Provider for interacting with the Tidal HTTP API
package services

import (
	"context"

	"github.com/desertthunder/tidalctl/internal/models"
	"golang.org/x/oauth2"
)

// Provider defines the synchronous client surface for a streaming service.
//
// Implementations perform blocking HTTP calls; callers that must not block
// should go through the facade package, which bridges these methods onto a
// worker pool. Any implementation, real or test double, satisfies the facade
// through this interface.
type Provider interface {
	// Name returns the name of the service (e.g., "Tidal")
	Name() string

	// Restore hydrates the client from a persisted token. Best-effort: a
	// failure means later calls will surface authentication errors.
	Restore(tok *oauth2.Token, userID string) error

	// SetToken swaps the live token after a refresh. A nil token clears it.
	SetToken(tok *oauth2.Token)

	// Search queries the catalog across the requested entity kinds.
	Search(ctx context.Context, query string, kinds []string, limit int) (*models.SearchResults, error)

	// Track retrieves a single track by ID.
	Track(ctx context.Context, trackID string) (*models.Track, error)

	// Album retrieves a single album by ID.
	Album(ctx context.Context, albumID string) (*models.Album, error)

	// Artist retrieves a single artist by ID.
	Artist(ctx context.Context, artistID string) (*models.Artist, error)

	// Playlist retrieves playlist metadata by ID.
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// PlaylistTracks retrieves a playlist's tracks with pagination.
	PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) ([]models.Track, error)

	// UserPlaylists retrieves the authenticated user's playlists with pagination.
	UserPlaylists(ctx context.Context, limit, offset int) ([]models.Playlist, error)

	// CreatePlaylist creates a new playlist owned by the authenticated user.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// AddPlaylistTracks appends tracks to a playlist.
	AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// RemovePlaylistTracks removes tracks from a playlist by position.
	RemovePlaylistTracks(ctx context.Context, playlistID string, indices []int) error

	// FavoriteTracks retrieves the user's favorite tracks with pagination.
	FavoriteTracks(ctx context.Context, limit, offset int) ([]models.Track, error)

	// AddFavoriteTrack adds a track to the user's favorites.
	AddFavoriteTrack(ctx context.Context, trackID string) error

	// RemoveFavoriteTrack removes a track from the user's favorites.
	RemoveFavoriteTrack(ctx context.Context, trackID string) error

	// CurrentUser retrieves the authenticated user's profile.
	CurrentUser(ctx context.Context) (*models.User, error)
}
