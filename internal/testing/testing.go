// Package testing provides shared test doubles and helpers.
package testing

import (
	"context"
	"net/http"
	"os"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/tidalctl/internal/models"
)

// MockRoundTripper intercepts HTTP requests for testing
type MockRoundTripper struct {
	Response *http.Response
	Err      error
	Requests []*http.Request
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	return m.Response, m.Err
}

// MockProvider implements services.Provider with overridable function fields.
// Calls to methods without a configured function panic so tests notice
// unexpected provider traffic.
type MockProvider struct {
	NameFn                 func() string
	RestoreFn              func(tok *oauth2.Token, userID string) error
	SetTokenFn             func(tok *oauth2.Token)
	SearchFn               func(ctx context.Context, query string, kinds []string, limit int) (*models.SearchResults, error)
	TrackFn                func(ctx context.Context, id string) (*models.Track, error)
	AlbumFn                func(ctx context.Context, id string) (*models.Album, error)
	ArtistFn               func(ctx context.Context, id string) (*models.Artist, error)
	PlaylistFn             func(ctx context.Context, id string) (*models.Playlist, error)
	PlaylistTracksFn       func(ctx context.Context, id string, limit, offset int) ([]models.Track, error)
	UserPlaylistsFn        func(ctx context.Context, limit, offset int) ([]models.Playlist, error)
	CreatePlaylistFn       func(ctx context.Context, name, description string) (*models.Playlist, error)
	AddPlaylistTracksFn    func(ctx context.Context, playlistID string, trackIDs []string) error
	RemovePlaylistTracksFn func(ctx context.Context, playlistID string, indices []int) error
	FavoriteTracksFn       func(ctx context.Context, limit, offset int) ([]models.Track, error)
	AddFavoriteTrackFn     func(ctx context.Context, trackID string) error
	RemoveFavoriteTrackFn  func(ctx context.Context, trackID string) error
	CurrentUserFn          func(ctx context.Context) (*models.User, error)

	Calls []string
}

func (m *MockProvider) record(name string) { m.Calls = append(m.Calls, name) }

func (m *MockProvider) Name() string {
	if m.NameFn != nil {
		return m.NameFn()
	}
	return "mock"
}

func (m *MockProvider) Restore(tok *oauth2.Token, userID string) error {
	m.record("Restore")
	if m.RestoreFn != nil {
		return m.RestoreFn(tok, userID)
	}
	return nil
}

func (m *MockProvider) SetToken(tok *oauth2.Token) {
	m.record("SetToken")
	if m.SetTokenFn != nil {
		m.SetTokenFn(tok)
	}
}

func (m *MockProvider) Search(ctx context.Context, query string, kinds []string, limit int) (*models.SearchResults, error) {
	m.record("Search")
	if m.SearchFn == nil {
		panic("MockProvider.Search called without SearchFn")
	}
	return m.SearchFn(ctx, query, kinds, limit)
}

func (m *MockProvider) Track(ctx context.Context, id string) (*models.Track, error) {
	m.record("Track")
	if m.TrackFn == nil {
		panic("MockProvider.Track called without TrackFn")
	}
	return m.TrackFn(ctx, id)
}

func (m *MockProvider) Album(ctx context.Context, id string) (*models.Album, error) {
	m.record("Album")
	if m.AlbumFn == nil {
		panic("MockProvider.Album called without AlbumFn")
	}
	return m.AlbumFn(ctx, id)
}

func (m *MockProvider) Artist(ctx context.Context, id string) (*models.Artist, error) {
	m.record("Artist")
	if m.ArtistFn == nil {
		panic("MockProvider.Artist called without ArtistFn")
	}
	return m.ArtistFn(ctx, id)
}

func (m *MockProvider) Playlist(ctx context.Context, id string) (*models.Playlist, error) {
	m.record("Playlist")
	if m.PlaylistFn == nil {
		panic("MockProvider.Playlist called without PlaylistFn")
	}
	return m.PlaylistFn(ctx, id)
}

func (m *MockProvider) PlaylistTracks(ctx context.Context, id string, limit, offset int) ([]models.Track, error) {
	m.record("PlaylistTracks")
	if m.PlaylistTracksFn == nil {
		panic("MockProvider.PlaylistTracks called without PlaylistTracksFn")
	}
	return m.PlaylistTracksFn(ctx, id, limit, offset)
}

func (m *MockProvider) UserPlaylists(ctx context.Context, limit, offset int) ([]models.Playlist, error) {
	m.record("UserPlaylists")
	if m.UserPlaylistsFn == nil {
		panic("MockProvider.UserPlaylists called without UserPlaylistsFn")
	}
	return m.UserPlaylistsFn(ctx, limit, offset)
}

func (m *MockProvider) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	m.record("CreatePlaylist")
	if m.CreatePlaylistFn == nil {
		panic("MockProvider.CreatePlaylist called without CreatePlaylistFn")
	}
	return m.CreatePlaylistFn(ctx, name, description)
}

func (m *MockProvider) AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	m.record("AddPlaylistTracks")
	if m.AddPlaylistTracksFn == nil {
		panic("MockProvider.AddPlaylistTracks called without AddPlaylistTracksFn")
	}
	return m.AddPlaylistTracksFn(ctx, playlistID, trackIDs)
}

func (m *MockProvider) RemovePlaylistTracks(ctx context.Context, playlistID string, indices []int) error {
	m.record("RemovePlaylistTracks")
	if m.RemovePlaylistTracksFn == nil {
		panic("MockProvider.RemovePlaylistTracks called without RemovePlaylistTracksFn")
	}
	return m.RemovePlaylistTracksFn(ctx, playlistID, indices)
}

func (m *MockProvider) FavoriteTracks(ctx context.Context, limit, offset int) ([]models.Track, error) {
	m.record("FavoriteTracks")
	if m.FavoriteTracksFn == nil {
		panic("MockProvider.FavoriteTracks called without FavoriteTracksFn")
	}
	return m.FavoriteTracksFn(ctx, limit, offset)
}

func (m *MockProvider) AddFavoriteTrack(ctx context.Context, trackID string) error {
	m.record("AddFavoriteTrack")
	if m.AddFavoriteTrackFn == nil {
		panic("MockProvider.AddFavoriteTrack called without AddFavoriteTrackFn")
	}
	return m.AddFavoriteTrackFn(ctx, trackID)
}

func (m *MockProvider) RemoveFavoriteTrack(ctx context.Context, trackID string) error {
	m.record("RemoveFavoriteTrack")
	if m.RemoveFavoriteTrackFn == nil {
		panic("MockProvider.RemoveFavoriteTrack called without RemoveFavoriteTrackFn")
	}
	return m.RemoveFavoriteTrackFn(ctx, trackID)
}

func (m *MockProvider) CurrentUser(ctx context.Context) (*models.User, error) {
	m.record("CurrentUser")
	if m.CurrentUserFn == nil {
		panic("MockProvider.CurrentUser called without CurrentUserFn")
	}
	return m.CurrentUserFn(ctx)
}

// TempFile writes contents to a file in t's temp dir and returns its path.
func TempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := t.TempDir() + "/" + name
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// AssertFileExists fails the test if the given path does not exist.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file %s to exist: %v", path, err)
	}
}

// AssertFileMissing fails the test if the given path exists.
func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file %s to be absent", path)
	}
}
