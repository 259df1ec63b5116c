package facade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalctl/internal/models"
	"github.com/desertthunder/tidalctl/internal/services"
	"github.com/desertthunder/tidalctl/internal/session"
	"github.com/desertthunder/tidalctl/internal/shared"
	"golang.org/x/time/rate"
)

// TrackCacher persists fetched track metadata for the local library cache.
//
// Implemented by repositories.TrackCacheAdapter; a nil cacher disables
// persistence. Failures never affect the API result.
type TrackCacher interface {
	CacheTrack(service, serviceID string, track models.Track) error
}

// Options configures a [Facade].
type Options struct {
	Sessions   *session.Manager
	Cache      Cache // defaults to a MemoryCache with DefaultTTL
	Workers    int
	RatePerSec int // provider requests per second; 0 disables limiting
	Tracks     TrackCacher
	Logger     *log.Logger
}

// Facade presents an asynchronous, cached interface over the synchronous
// provider client.
//
// Every operation follows the same path: consult the cache, ensure the
// session is valid (failing fast with [shared.ErrNotAuthenticated] before any
// network traffic), execute the blocking call on the worker pool, translate
// provider failures into [shared.ErrAPIRequest], then populate the cache.
// Mutations skip the cache and invalidate the prefixes they touch.
type Facade struct {
	sessions *session.Manager
	cache    Cache
	bridge   *Bridge
	limiter  *rate.Limiter
	tracks   TrackCacher
	logger   *log.Logger
}

// New creates a Facade from Options. Sessions is required.
func New(opts Options) (*Facade, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("%w: facade requires a session manager", shared.ErrInvalidArgument)
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	cache := opts.Cache
	if cache == nil {
		cache = NewMemoryCache(DefaultTTL)
	}

	bridge, err := NewBridge(opts.Workers)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec)
	}

	return &Facade{
		sessions: opts.Sessions,
		cache:    cache,
		bridge:   bridge,
		limiter:  limiter,
		tracks:   opts.Tracks,
		logger:   logger,
	}, nil
}

// Close releases the worker pool and the cache backend.
func (f *Facade) Close() {
	f.bridge.Close()
	if err := f.cache.Close(); err != nil {
		f.logger.Warn("failed to close cache", "error", err)
	}
}

// cacheKey joins an operation name with its normalized arguments.
func cacheKey(op string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, op)
	for _, arg := range args {
		parts = append(parts, strings.TrimSpace(arg))
	}
	return strings.Join(parts, ":")
}

// precheck validates the session and applies rate limiting before any
// provider traffic.
func (f *Facade) precheck(ctx context.Context) (services.Provider, error) {
	if !f.sessions.EnsureValid(ctx) {
		return nil, fmt.Errorf("%w: run `tidalctl auth login` first", shared.ErrNotAuthenticated)
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return f.sessions.Handle(), nil
}

// wrapProviderErr translates a provider failure observed with a valid session.
// Context errors pass through so callers can distinguish their own timeouts.
func wrapProviderErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
}

// cached runs fn through the cache and the worker-pool bridge.
//
// Concurrent identical misses each compute; the contract is correctness of
// the returned data, not exactly one upstream call per key.
func cached[T any](ctx context.Context, f *Facade, key string, fn func(context.Context, services.Provider) (T, error)) (T, error) {
	var zero T

	if raw, ok := f.cache.Get(ctx, key); ok {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			return value, nil
		}
		// Corrupt entry; drop it and recompute
		f.cache.Delete(ctx, key)
	}

	provider, err := f.precheck(ctx)
	if err != nil {
		return zero, err
	}

	value, err := Run(ctx, f.bridge, func() (T, error) {
		return fn(ctx, provider)
	})
	if err != nil {
		return zero, wrapProviderErr(err)
	}

	if raw, err := json.Marshal(value); err == nil {
		f.cache.Set(ctx, key, raw)
	} else {
		f.logger.Warn("failed to encode cache entry", "key", key, "error", err)
	}

	return value, nil
}

// mutate runs a write operation and invalidates the affected cache prefixes.
func (f *Facade) mutate(ctx context.Context, prefixes []string, fn func(context.Context, services.Provider) error) error {
	provider, err := f.precheck(ctx)
	if err != nil {
		return err
	}

	if _, err := Run(ctx, f.bridge, func() (struct{}, error) {
		return struct{}{}, fn(ctx, provider)
	}); err != nil {
		return wrapProviderErr(err)
	}

	for _, prefix := range prefixes {
		f.cache.DeletePrefix(ctx, prefix)
	}
	return nil
}

// persistTracks writes fetched tracks to the local library cache, best-effort.
func (f *Facade) persistTracks(tracks ...models.Track) {
	if f.tracks == nil {
		return
	}
	for _, track := range tracks {
		if track.ID == "" {
			continue
		}
		if err := f.tracks.CacheTrack("tidal", track.ID, track); err != nil {
			f.logger.Warn("failed to cache track locally", "track", track.ID, "error", err)
		}
	}
}

// Search queries the catalog across the requested entity kinds.
func (f *Facade) Search(ctx context.Context, query string, kinds []string, limit int) (*models.SearchResults, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	normalizedKinds := make([]string, len(kinds))
	for i, kind := range kinds {
		normalizedKinds[i] = strings.ToUpper(strings.TrimSpace(kind))
	}

	key := cacheKey("search", normalized, strings.Join(normalizedKinds, ","), strconv.Itoa(limit))
	results, err := cached(ctx, f, key, func(ctx context.Context, p services.Provider) (*models.SearchResults, error) {
		return p.Search(ctx, query, normalizedKinds, limit)
	})
	if err != nil {
		return nil, err
	}

	f.persistTracks(results.Tracks...)
	return results, nil
}

// Track retrieves a single track by ID.
func (f *Facade) Track(ctx context.Context, trackID string) (*models.Track, error) {
	track, err := cached(ctx, f, cacheKey("track", trackID), func(ctx context.Context, p services.Provider) (*models.Track, error) {
		return p.Track(ctx, trackID)
	})
	if err != nil {
		return nil, err
	}

	f.persistTracks(*track)
	return track, nil
}

// Album retrieves a single album by ID.
func (f *Facade) Album(ctx context.Context, albumID string) (*models.Album, error) {
	return cached(ctx, f, cacheKey("album", albumID), func(ctx context.Context, p services.Provider) (*models.Album, error) {
		return p.Album(ctx, albumID)
	})
}

// Artist retrieves a single artist by ID.
func (f *Facade) Artist(ctx context.Context, artistID string) (*models.Artist, error) {
	return cached(ctx, f, cacheKey("artist", artistID), func(ctx context.Context, p services.Provider) (*models.Artist, error) {
		return p.Artist(ctx, artistID)
	})
}

// Playlist retrieves playlist metadata by ID.
func (f *Facade) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	return cached(ctx, f, cacheKey("playlist", playlistID), func(ctx context.Context, p services.Provider) (*models.Playlist, error) {
		return p.Playlist(ctx, playlistID)
	})
}

// PlaylistTracks retrieves a playlist's tracks with pagination.
func (f *Facade) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) ([]models.Track, error) {
	key := cacheKey("playlist", playlistID, "tracks", strconv.Itoa(limit), strconv.Itoa(offset))
	tracks, err := cached(ctx, f, key, func(ctx context.Context, p services.Provider) ([]models.Track, error) {
		return p.PlaylistTracks(ctx, playlistID, limit, offset)
	})
	if err != nil {
		return nil, err
	}

	f.persistTracks(tracks...)
	return tracks, nil
}

// UserPlaylists retrieves the authenticated user's playlists with pagination.
func (f *Facade) UserPlaylists(ctx context.Context, limit, offset int) ([]models.Playlist, error) {
	key := cacheKey("playlists", strconv.Itoa(limit), strconv.Itoa(offset))
	return cached(ctx, f, key, func(ctx context.Context, p services.Provider) ([]models.Playlist, error) {
		return p.UserPlaylists(ctx, limit, offset)
	})
}

// FavoriteTracks retrieves the user's favorite tracks with pagination.
func (f *Facade) FavoriteTracks(ctx context.Context, limit, offset int) ([]models.Track, error) {
	key := cacheKey("favorites", "tracks", strconv.Itoa(limit), strconv.Itoa(offset))
	tracks, err := cached(ctx, f, key, func(ctx context.Context, p services.Provider) ([]models.Track, error) {
		return p.FavoriteTracks(ctx, limit, offset)
	})
	if err != nil {
		return nil, err
	}

	f.persistTracks(tracks...)
	return tracks, nil
}

// CurrentUser retrieves the authenticated user's profile.
func (f *Facade) CurrentUser(ctx context.Context) (*models.User, error) {
	return cached(ctx, f, cacheKey("user", "me"), func(ctx context.Context, p services.Provider) (*models.User, error) {
		return p.CurrentUser(ctx)
	})
}

// Export retrieves a playlist with its complete track listing.
func (f *Facade) Export(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := f.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	var tracks []models.Track
	limit := 100
	offset := 0
	for {
		page, err := f.PlaylistTracks(ctx, playlistID, limit, offset)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, page...)
		if len(page) < limit || len(tracks) >= playlist.TrackCount {
			break
		}
		offset += limit
	}

	return &models.PlaylistExport{Playlist: *playlist, Tracks: tracks}, nil
}

// CreatePlaylist creates a new playlist owned by the authenticated user.
func (f *Facade) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	provider, err := f.precheck(ctx)
	if err != nil {
		return nil, err
	}

	playlist, err := Run(ctx, f.bridge, func() (*models.Playlist, error) {
		return provider.CreatePlaylist(ctx, name, description)
	})
	if err != nil {
		return nil, wrapProviderErr(err)
	}

	f.cache.DeletePrefix(ctx, "playlists:")
	return playlist, nil
}

// AddPlaylistTracks appends tracks to a playlist.
func (f *Facade) AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	prefixes := []string{cacheKey("playlist", playlistID), "playlists:"}
	return f.mutate(ctx, prefixes, func(ctx context.Context, p services.Provider) error {
		return p.AddPlaylistTracks(ctx, playlistID, trackIDs)
	})
}

// RemovePlaylistTracks removes tracks from a playlist by position.
func (f *Facade) RemovePlaylistTracks(ctx context.Context, playlistID string, indices []int) error {
	prefixes := []string{cacheKey("playlist", playlistID), "playlists:"}
	return f.mutate(ctx, prefixes, func(ctx context.Context, p services.Provider) error {
		return p.RemovePlaylistTracks(ctx, playlistID, indices)
	})
}

// AddFavoriteTrack adds a track to the user's favorites.
func (f *Facade) AddFavoriteTrack(ctx context.Context, trackID string) error {
	return f.mutate(ctx, []string{"favorites:"}, func(ctx context.Context, p services.Provider) error {
		return p.AddFavoriteTrack(ctx, trackID)
	})
}

// RemoveFavoriteTrack removes a track from the user's favorites.
func (f *Facade) RemoveFavoriteTrack(ctx context.Context, trackID string) error {
	return f.mutate(ctx, []string{"favorites:"}, func(ctx context.Context, p services.Provider) error {
		return p.RemoveFavoriteTrack(ctx, trackID)
	})
}
