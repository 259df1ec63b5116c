package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/tidalctl/internal/shared"
	"golang.org/x/oauth2"
)

func newTestService(t *testing.T, handler http.Handler) *TidalService {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	service := NewTidalService(&oauth2.Config{ClientID: "test_client"}, srv.Client())
	service.baseURL = srv.URL

	tok := &oauth2.Token{AccessToken: "test_token", Expiry: time.Now().Add(time.Hour)}
	if err := service.Restore(tok, ""); err != nil {
		t.Fatalf("failed to restore token: %v", err)
	}

	return service
}

func sessionHandler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sessions" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"sessionId": "s1", "userId": 42, "countryCode": "US"}`)
			return
		}
		next(w, r)
	}
}

func TestTidalService(t *testing.T) {
	ctx := context.Background()

	t.Run("RestoreRequiresToken", func(t *testing.T) {
		service := NewTidalService(&oauth2.Config{}, nil)

		if err := service.Restore(nil, ""); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials for nil token, got %v", err)
		}
		if err := service.Restore(&oauth2.Token{}, ""); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials for empty token, got %v", err)
		}
	})

	t.Run("RequestsNeedAuthentication", func(t *testing.T) {
		service := NewTidalService(&oauth2.Config{}, nil)

		_, err := service.Track(ctx, "1")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Search", func(t *testing.T) {
		var gotTypes, gotAuth string
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			gotTypes = r.URL.Query().Get("types")
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{
				"tracks": {"items": [
					{"id": 1001, "title": "Song A", "duration": 240, "isrc": "US1234", "artist": {"id": 7, "name": "Artist A"}, "album": {"id": 3, "title": "Album A"}},
					{"id": 1002, "title": "Song B", "duration": 180, "artists": [{"id": 8, "name": "Artist B"}]}
				]},
				"albums": {"items": [{"id": 3, "title": "Album A", "numberOfTracks": 12, "artist": {"name": "Artist A"}}]},
				"artists": {"items": [{"id": 7, "name": "Artist A"}]},
				"playlists": {"items": [{"uuid": "pl-1", "title": "Mix", "numberOfTracks": 30, "publicPlaylist": true}]}
			}`)
		}))

		results, err := service.Search(ctx, "song", []string{"TRACKS", "ALBUMS"}, 10)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}

		if gotTypes != "TRACKS,ALBUMS" {
			t.Errorf("expected types TRACKS,ALBUMS, got %s", gotTypes)
		}
		if gotAuth != "Bearer test_token" {
			t.Errorf("expected bearer auth, got %s", gotAuth)
		}

		if len(results.Tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(results.Tracks))
		}
		if results.Tracks[0].ID != "1001" || results.Tracks[0].Artist != "Artist A" {
			t.Errorf("unexpected first track: %+v", results.Tracks[0])
		}
		if results.Tracks[1].Artist != "Artist B" {
			t.Errorf("artist should fall back to the artists list, got %s", results.Tracks[1].Artist)
		}
		if len(results.Albums) != 1 || results.Albums[0].TrackCount != 12 {
			t.Errorf("unexpected albums: %+v", results.Albums)
		}
		if len(results.Playlists) != 1 || results.Playlists[0].ID != "pl-1" || !results.Playlists[0].Public {
			t.Errorf("unexpected playlists: %+v", results.Playlists)
		}
	})

	t.Run("SearchRejectsEmptyQuery", func(t *testing.T) {
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected for an empty query")
		}))

		if _, err := service.Search(ctx, "", nil, 10); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Track", func(t *testing.T) {
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/tracks/1001" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": 1001, "title": "Song A", "duration": 240, "explicit": true, "artist": {"name": "Artist A"}, "album": {"title": "Album A"}}`)
		}))

		track, err := service.Track(ctx, "1001")
		if err != nil {
			t.Fatalf("track fetch failed: %v", err)
		}
		if track.Title != "Song A" || track.Album != "Album A" || !track.Explicit {
			t.Errorf("unexpected track: %+v", track)
		}
	})

	t.Run("TrackNotFound", func(t *testing.T) {
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := service.Track(ctx, "9999")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("UnauthorizedMapsToTokenExpired", func(t *testing.T) {
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := service.Track(ctx, "1001")
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("PlaylistNotFound", func(t *testing.T) {
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := service.Playlist(ctx, "missing")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("UserPlaylistsResolvesSession", func(t *testing.T) {
		var playlistPath, countryCode string
		service := newTestService(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
			playlistPath = r.URL.Path
			countryCode = r.URL.Query().Get("countryCode")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items": [{"uuid": "pl-1", "title": "Mix", "numberOfTracks": 5}]}`)
		}))

		playlists, err := service.UserPlaylists(ctx, 50, 0)
		if err != nil {
			t.Fatalf("listing failed: %v", err)
		}

		if playlistPath != "/users/42/playlists" {
			t.Errorf("expected user-scoped path, got %s", playlistPath)
		}
		if countryCode != "US" {
			t.Errorf("expected session country code to be forwarded, got %q", countryCode)
		}
		if len(playlists) != 1 || playlists[0].Name != "Mix" {
			t.Errorf("unexpected playlists: %+v", playlists)
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		service := newTestService(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/users/42/playlists" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.PostForm.Get("title") != "New Mix" {
				t.Errorf("expected title New Mix, got %s", r.PostForm.Get("title"))
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"uuid": "pl-new", "title": "New Mix", "numberOfTracks": 0}`)
		}))

		playlist, err := service.CreatePlaylist(ctx, "New Mix", "a description")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if playlist.ID != "pl-new" {
			t.Errorf("unexpected playlist: %+v", playlist)
		}
	})

	t.Run("AddPlaylistTracksUsesETag", func(t *testing.T) {
		var gotETag, gotTrackIDs string
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/playlists/pl-1":
				w.Header().Set("ETag", "etag-123")
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"uuid": "pl-1", "title": "Mix"}`)
			case r.Method == http.MethodPost && r.URL.Path == "/playlists/pl-1/items":
				gotETag = r.Header.Get("If-None-Match")
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				gotTrackIDs = r.PostForm.Get("trackIds")
				w.WriteHeader(http.StatusOK)
			default:
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
		}))

		if err := service.AddPlaylistTracks(ctx, "pl-1", []string{"1001", "1002"}); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if gotETag != "etag-123" {
			t.Errorf("expected If-None-Match etag-123, got %s", gotETag)
		}
		if gotTrackIDs != "1001,1002" {
			t.Errorf("expected trackIds 1001,1002, got %s", gotTrackIDs)
		}
	})

	t.Run("AddPlaylistTracksRequiresIDs", func(t *testing.T) {
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected without track IDs")
		}))

		if err := service.AddPlaylistTracks(ctx, "pl-1", nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("RemovePlaylistTracksByPosition", func(t *testing.T) {
		var deletePath string
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/playlists/pl-1":
				w.Header().Set("ETag", "etag-123")
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"uuid": "pl-1"}`)
			case r.Method == http.MethodDelete:
				deletePath = r.URL.Path
				w.WriteHeader(http.StatusOK)
			default:
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
		}))

		if err := service.RemovePlaylistTracks(ctx, "pl-1", []int{0, 2, 5}); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if deletePath != "/playlists/pl-1/items/0,2,5" {
			t.Errorf("expected positional delete path, got %s", deletePath)
		}
	})

	t.Run("FavoriteTracksUnwrapsItems", func(t *testing.T) {
		service := newTestService(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/users/42/favorites/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items": [{"created": "2024-01-01", "item": {"id": 1001, "title": "Fav Song", "artist": {"name": "Artist A"}}}]}`)
		}))

		tracks, err := service.FavoriteTracks(ctx, 50, 0)
		if err != nil {
			t.Fatalf("favorites failed: %v", err)
		}
		if len(tracks) != 1 || tracks[0].Title != "Fav Song" {
			t.Errorf("unexpected favorites: %+v", tracks)
		}
	})

	t.Run("CurrentUser", func(t *testing.T) {
		service := newTestService(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/users/42" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": 42, "username": "listener", "email": "l@example.com"}`)
		}))

		user, err := service.CurrentUser(ctx)
		if err != nil {
			t.Fatalf("current user failed: %v", err)
		}
		if user.ID != "42" || user.Username != "listener" {
			t.Errorf("unexpected user: %+v", user)
		}
		if user.CountryCode != "US" {
			t.Errorf("country code should fall back to the session value, got %s", user.CountryCode)
		}
	})

	t.Run("SetTokenNilClearsSession", func(t *testing.T) {
		service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		service.SetToken(nil)

		_, err := service.Track(ctx, "1")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated after clearing token, got %v", err)
		}
	})
}
