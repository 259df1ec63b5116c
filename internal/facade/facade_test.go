package facade

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/tidalctl/internal/models"
	"github.com/desertthunder/tidalctl/internal/services"
	"github.com/desertthunder/tidalctl/internal/session"
	"github.com/desertthunder/tidalctl/internal/shared"
	mocks "github.com/desertthunder/tidalctl/internal/testing"
	"golang.org/x/oauth2"
)

var testNow = time.Unix(1_700_000_000, 0)

// newSessionManager builds a manager backed by a temp session file.
// When authed is true a live credential record is persisted first.
func newSessionManager(t *testing.T, provider services.Provider, authed bool) *session.Manager {
	t.Helper()

	manager, err := session.NewManager(session.Options{
		ClientID:    "test_client",
		SessionPath: filepath.Join(t.TempDir(), "session.json"),
		NewProvider: func(*oauth2.Config) services.Provider { return provider },
		Now:         func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}

	if authed {
		manager.Store().Save(&session.Record{
			AccessToken:  "at",
			RefreshToken: "rt",
			ExpiresAt:    float64(testNow.Unix() + 3600),
			UserID:       "42",
		})
	}

	return manager
}

func newFacade(t *testing.T, provider services.Provider, authed bool, tracks TrackCacher) *Facade {
	t.Helper()

	f, err := New(Options{
		Sessions: newSessionManager(t, provider, authed),
		Tracks:   tracks,
	})
	if err != nil {
		t.Fatalf("failed to create facade: %v", err)
	}
	t.Cleanup(f.Close)
	return f
}

// captureCacher records which tracks the facade tried to persist.
type captureCacher struct {
	ids []string
}

func (c *captureCacher) CacheTrack(service, serviceID string, track models.Track) error {
	c.ids = append(c.ids, serviceID)
	return nil
}

func TestFacade(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresSessionManager", func(t *testing.T) {
		if _, err := New(Options{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("FailsFastWhenNotAuthenticated", func(t *testing.T) {
		provider := &mocks.MockProvider{
			TrackFn: func(ctx context.Context, id string) (*models.Track, error) {
				t.Error("provider should not be reached without a session")
				return nil, nil
			},
		}
		f := newFacade(t, provider, false, nil)

		_, err := f.Track(ctx, "1")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if len(provider.Calls) != 0 {
			t.Errorf("expected no provider calls, got %v", provider.Calls)
		}
	})

	t.Run("CacheHitSkipsProvider", func(t *testing.T) {
		calls := 0
		provider := &mocks.MockProvider{
			TrackFn: func(ctx context.Context, id string) (*models.Track, error) {
				calls++
				return &models.Track{ID: id, Title: "Song", Artist: "Artist", Duration: 200}, nil
			},
		}
		f := newFacade(t, provider, true, nil)

		first, err := f.Track(ctx, "123")
		if err != nil {
			t.Fatalf("first fetch failed: %v", err)
		}
		second, err := f.Track(ctx, "123")
		if err != nil {
			t.Fatalf("second fetch failed: %v", err)
		}

		if calls != 1 {
			t.Errorf("expected one provider call, got %d", calls)
		}
		if first.Title != second.Title || second.Title != "Song" {
			t.Errorf("cached result should match: %+v vs %+v", first, second)
		}
	})

	t.Run("ProviderErrorsWrapped", func(t *testing.T) {
		cause := errors.New("upstream 500")
		provider := &mocks.MockProvider{
			AlbumFn: func(ctx context.Context, id string) (*models.Album, error) { return nil, cause },
		}
		f := newFacade(t, provider, true, nil)

		_, err := f.Album(ctx, "9")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("expected cause preserved, got %v", err)
		}
	})

	t.Run("FailedFetchIsNotCached", func(t *testing.T) {
		calls := 0
		provider := &mocks.MockProvider{
			AlbumFn: func(ctx context.Context, id string) (*models.Album, error) {
				calls++
				if calls == 1 {
					return nil, errors.New("transient")
				}
				return &models.Album{ID: id, Title: "Album"}, nil
			},
		}
		f := newFacade(t, provider, true, nil)

		if _, err := f.Album(ctx, "9"); err == nil {
			t.Fatal("expected the first fetch to fail")
		}
		album, err := f.Album(ctx, "9")
		if err != nil {
			t.Fatalf("retry should reach the provider: %v", err)
		}
		if album.Title != "Album" || calls != 2 {
			t.Errorf("expected a second provider call, got %d calls", calls)
		}
	})

	t.Run("CorruptCacheEntryRecomputed", func(t *testing.T) {
		provider := &mocks.MockProvider{
			TrackFn: func(ctx context.Context, id string) (*models.Track, error) {
				return &models.Track{ID: id, Title: "Fresh"}, nil
			},
		}
		f := newFacade(t, provider, true, nil)
		f.cache.Set(ctx, "track:5", []byte("{corrupt"))

		track, err := f.Track(ctx, "5")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if track.Title != "Fresh" {
			t.Errorf("expected recomputed value, got %+v", track)
		}
	})

	t.Run("SearchNormalizesKeyAndKinds", func(t *testing.T) {
		var gotKinds []string
		calls := 0
		provider := &mocks.MockProvider{
			SearchFn: func(ctx context.Context, query string, kinds []string, limit int) (*models.SearchResults, error) {
				calls++
				gotKinds = kinds
				return &models.SearchResults{Query: query}, nil
			},
		}
		f := newFacade(t, provider, true, nil)

		if _, err := f.Search(ctx, "Radiohead", []string{"tracks"}, 20); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(gotKinds) != 1 || gotKinds[0] != "TRACKS" {
			t.Errorf("expected kinds normalized to upper case, got %v", gotKinds)
		}

		// Same query with different case should hit the cache
		if _, err := f.Search(ctx, "radiohead", []string{"TRACKS"}, 20); err != nil {
			t.Fatalf("second search failed: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected one provider call, got %d", calls)
		}
	})

	t.Run("MutationInvalidatesListings", func(t *testing.T) {
		listCalls := 0
		provider := &mocks.MockProvider{
			UserPlaylistsFn: func(ctx context.Context, limit, offset int) ([]models.Playlist, error) {
				listCalls++
				return []models.Playlist{{ID: "p1", Name: "Mix"}}, nil
			},
			CreatePlaylistFn: func(ctx context.Context, name, description string) (*models.Playlist, error) {
				return &models.Playlist{ID: "p2", Name: name}, nil
			},
		}
		f := newFacade(t, provider, true, nil)

		if _, err := f.UserPlaylists(ctx, 50, 0); err != nil {
			t.Fatalf("listing failed: %v", err)
		}
		if _, err := f.UserPlaylists(ctx, 50, 0); err != nil {
			t.Fatalf("cached listing failed: %v", err)
		}
		if listCalls != 1 {
			t.Fatalf("expected one listing call before mutation, got %d", listCalls)
		}

		if _, err := f.CreatePlaylist(ctx, "New Mix", ""); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		if _, err := f.UserPlaylists(ctx, 50, 0); err != nil {
			t.Fatalf("listing after mutation failed: %v", err)
		}
		if listCalls != 2 {
			t.Errorf("mutation should invalidate the listing cache, got %d calls", listCalls)
		}
	})

	t.Run("PlaylistMutationInvalidatesPlaylistEntries", func(t *testing.T) {
		trackCalls := 0
		provider := &mocks.MockProvider{
			PlaylistTracksFn: func(ctx context.Context, id string, limit, offset int) ([]models.Track, error) {
				trackCalls++
				return []models.Track{{ID: "t1", Title: "One"}}, nil
			},
			AddPlaylistTracksFn: func(ctx context.Context, playlistID string, trackIDs []string) error {
				return nil
			},
		}
		f := newFacade(t, provider, true, nil)

		if _, err := f.PlaylistTracks(ctx, "p1", 100, 0); err != nil {
			t.Fatalf("tracks failed: %v", err)
		}
		if err := f.AddPlaylistTracks(ctx, "p1", []string{"t2"}); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if _, err := f.PlaylistTracks(ctx, "p1", 100, 0); err != nil {
			t.Fatalf("tracks after mutation failed: %v", err)
		}

		if trackCalls != 2 {
			t.Errorf("expected playlist tracks to be refetched after mutation, got %d calls", trackCalls)
		}
	})

	t.Run("FetchedTracksPersistLocally", func(t *testing.T) {
		provider := &mocks.MockProvider{
			TrackFn: func(ctx context.Context, id string) (*models.Track, error) {
				return &models.Track{ID: id, Title: "Song"}, nil
			},
		}
		cacher := &captureCacher{}
		f := newFacade(t, provider, true, cacher)

		if _, err := f.Track(ctx, "123"); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(cacher.ids) != 1 || cacher.ids[0] != "123" {
			t.Errorf("expected track 123 persisted, got %v", cacher.ids)
		}
	})

	t.Run("ExportPaginates", func(t *testing.T) {
		provider := &mocks.MockProvider{
			PlaylistFn: func(ctx context.Context, id string) (*models.Playlist, error) {
				return &models.Playlist{ID: id, Name: "Big Mix", TrackCount: 150}, nil
			},
			PlaylistTracksFn: func(ctx context.Context, id string, limit, offset int) ([]models.Track, error) {
				if offset == 0 {
					tracks := make([]models.Track, 100)
					for i := range tracks {
						tracks[i] = models.Track{ID: "t", Title: "Track"}
					}
					return tracks, nil
				}
				return make([]models.Track, 50), nil
			},
		}
		f := newFacade(t, provider, true, nil)

		export, err := f.Export(ctx, "p1")
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if len(export.Tracks) != 150 {
			t.Errorf("expected 150 tracks, got %d", len(export.Tracks))
		}
		if export.Playlist.Name != "Big Mix" {
			t.Errorf("unexpected playlist metadata: %+v", export.Playlist)
		}
	})

	t.Run("ContextCancellationPassesThrough", func(t *testing.T) {
		provider := &mocks.MockProvider{
			ArtistFn: func(ctx context.Context, id string) (*models.Artist, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		f := newFacade(t, provider, true, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.Artist(ctx, "a1")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if errors.Is(err, shared.ErrAPIRequest) {
			t.Error("caller cancellation should not be reported as an API failure")
		}
	})
}
