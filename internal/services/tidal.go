// Tidal API implementation of [Provider]
//
// Response types based on the v1 API served at api.tidal.com
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/tidalctl/internal/models"
	"github.com/desertthunder/tidalctl/internal/shared"
	"golang.org/x/oauth2"
)

const (
	tidalAuthURL  = "https://login.tidal.com/authorize"
	tidalTokenURL = "https://auth.tidal.com/v1/oauth2/token"
	tidalBaseURL  = "https://api.tidal.com/v1"
)

// Endpoint is the Tidal OAuth2 endpoint pair.
var Endpoint = oauth2.Endpoint{
	AuthURL:  tidalAuthURL,
	TokenURL: tidalTokenURL,
}

// DefaultScopes are the scopes requested during authorization.
var DefaultScopes = []string{"r_usr", "w_usr"}

type tidalArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type tidalAlbum struct {
	ID             int64       `json:"id"`
	Title          string      `json:"title"`
	ReleaseDate    string      `json:"releaseDate"`
	NumberOfTracks int         `json:"numberOfTracks"`
	URL            string      `json:"url"`
	Artist         tidalArtist `json:"artist"`
}

type tidalTrack struct {
	ID       int64         `json:"id"`
	Title    string        `json:"title"`
	Duration int           `json:"duration"`
	Explicit bool          `json:"explicit"`
	ISRC     string        `json:"isrc"`
	URL      string        `json:"url"`
	Artist   tidalArtist   `json:"artist"`
	Artists  []tidalArtist `json:"artists"`
	Album    tidalAlbum    `json:"album"`
}

type tidalPlaylist struct {
	UUID           string `json:"uuid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	NumberOfTracks int    `json:"numberOfTracks"`
	PublicPlaylist bool   `json:"publicPlaylist"`
	URL            string `json:"url"`
}

type tidalPage[T any] struct {
	Limit              int `json:"limit"`
	Offset             int `json:"offset"`
	TotalNumberOfItems int `json:"totalNumberOfItems"`
	Items              []T `json:"items"`
}

type tidalFavoriteTrack struct {
	Created string     `json:"created"`
	Item    tidalTrack `json:"item"`
}

type tidalSearch struct {
	Tracks    tidalPage[tidalTrack]    `json:"tracks"`
	Albums    tidalPage[tidalAlbum]    `json:"albums"`
	Artists   tidalPage[tidalArtist]   `json:"artists"`
	Playlists tidalPage[tidalPlaylist] `json:"playlists"`
}

type tidalSession struct {
	SessionID   string `json:"sessionId"`
	UserID      int64  `json:"userId"`
	CountryCode string `json:"countryCode"`
}

type tidalUser struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	CountryCode string `json:"countryCode"`
}

// apiError is a non-2xx response from the Tidal API.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("tidal API error: status %d", e.status)
}

func statusOf(err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status
	}
	return 0
}

// TidalService implements the [Provider] interface for Tidal API interactions.
//
// The service is a synchronous HTTP client: every method blocks until the
// request completes. Session-scoped fields (token, user id, country code) are
// guarded by a mutex because the facade invokes methods from pool workers
// while the session manager may swap the token after a refresh.
type TidalService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string

	mu          sync.Mutex
	token       *oauth2.Token
	userID      string
	countryCode string
}

// NewTidalService creates a new Tidal service with the given OAuth2 config.
func NewTidalService(config *oauth2.Config, client *http.Client) *TidalService {
	if client == nil {
		client = http.DefaultClient
	}
	return &TidalService{
		config:     config,
		httpClient: client,
		baseURL:    tidalBaseURL,
	}
}

func (s *TidalService) Name() string {
	return "Tidal"
}

// Restore hydrates the client from a persisted token.
//
// Best-effort: only validates that a usable access token is present. The
// first authenticated request surfaces any deeper problem.
func (s *TidalService) Restore(tok *oauth2.Token, userID string) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: persisted record has no access token", shared.ErrMissingCredentials)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	s.userID = userID
	return nil
}

// SetToken swaps the live token after a refresh. A nil token clears the session fields.
func (s *TidalService) SetToken(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	if tok == nil {
		s.userID = ""
		s.countryCode = ""
	}
}

// snapshot copies the session-scoped fields under lock.
func (s *TidalService) snapshot() (*oauth2.Token, string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.userID, s.countryCode
}

// send performs an authenticated HTTP request and returns the raw response.
// The caller owns the response body.
func (s *TidalService) send(ctx context.Context, method, endpoint string, params, form url.Values, header http.Header) (*http.Response, error) {
	tok, _, country := s.snapshot()
	if tok == nil {
		return nil, fmt.Errorf("%w: call Restore or SetToken first", shared.ErrNotAuthenticated)
	}

	if params == nil {
		params = url.Values{}
	}
	if country != "" && params.Get("countryCode") == "" {
		params.Set("countryCode", country)
	}

	apiURL := s.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// doRequest performs an authenticated request and decodes the JSON response into result.
func (s *TidalService) doRequest(ctx context.Context, method, endpoint string, params, form url.Values, result any) error {
	resp, err := s.send(ctx, method, endpoint, params, form, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: status 401", shared.ErrTokenExpired)
		}
		return &apiError{status: resp.StatusCode, body: string(raw)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// ensureSession populates the user id and country code from /sessions.
//
// Tidal scopes several endpoints by user id, which is only available from the
// session introspection endpoint after login or restore.
func (s *TidalService) ensureSession(ctx context.Context) (string, error) {
	_, userID, _ := s.snapshot()
	if userID != "" {
		return userID, nil
	}

	var sess tidalSession
	if err := s.doRequest(ctx, http.MethodGet, "/sessions", nil, nil, &sess); err != nil {
		return "", fmt.Errorf("failed to load session info: %w", err)
	}

	s.mu.Lock()
	s.userID = strconv.FormatInt(sess.UserID, 10)
	s.countryCode = sess.CountryCode
	userID = s.userID
	s.mu.Unlock()

	return userID, nil
}

// playlistETag fetches the current ETag for a playlist.
//
// Tidal rejects playlist mutations without a matching If-None-Match header.
func (s *TidalService) playlistETag(ctx context.Context, playlistID string) (string, error) {
	resp, err := s.send(ctx, http.MethodGet, "/playlists/"+url.PathEscape(playlistID), nil, nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &apiError{status: resp.StatusCode}
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", fmt.Errorf("playlist response missing ETag header")
	}
	return etag, nil
}

func trackFromTidal(t tidalTrack) models.Track {
	artist := t.Artist.Name
	if artist == "" && len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	return models.Track{
		ID:       strconv.FormatInt(t.ID, 10),
		Title:    t.Title,
		Artist:   artist,
		Album:    t.Album.Title,
		Duration: t.Duration,
		ISRC:     t.ISRC,
		Explicit: t.Explicit,
		URL:      t.URL,
	}
}

func albumFromTidal(a tidalAlbum) models.Album {
	return models.Album{
		ID:          strconv.FormatInt(a.ID, 10),
		Title:       a.Title,
		Artist:      a.Artist.Name,
		ReleaseDate: a.ReleaseDate,
		TrackCount:  a.NumberOfTracks,
		URL:         a.URL,
	}
}

func artistFromTidal(a tidalArtist) models.Artist {
	return models.Artist{
		ID:   strconv.FormatInt(a.ID, 10),
		Name: a.Name,
		URL:  a.URL,
	}
}

func playlistFromTidal(p tidalPlaylist) models.Playlist {
	return models.Playlist{
		ID:          p.UUID,
		Name:        p.Title,
		Description: p.Description,
		TrackCount:  p.NumberOfTracks,
		Public:      p.PublicPlaylist,
		URL:         p.URL,
	}
}

// Search queries the catalog across the requested entity kinds.
//
// kinds defaults to all of TRACKS, ALBUMS, ARTISTS, PLAYLISTS when empty.
func (s *TidalService) Search(ctx context.Context, query string, kinds []string, limit int) (*models.SearchResults, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidArgument)
	}
	if len(kinds) == 0 {
		kinds = []string{"TRACKS", "ALBUMS", "ARTISTS", "PLAYLISTS"}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("types", strings.Join(kinds, ","))
	params.Set("limit", strconv.Itoa(limit))

	var response tidalSearch
	if err := s.doRequest(ctx, http.MethodGet, "/search", params, nil, &response); err != nil {
		return nil, err
	}

	results := &models.SearchResults{Query: query}
	for _, t := range response.Tracks.Items {
		results.Tracks = append(results.Tracks, trackFromTidal(t))
	}
	for _, a := range response.Albums.Items {
		results.Albums = append(results.Albums, albumFromTidal(a))
	}
	for _, a := range response.Artists.Items {
		results.Artists = append(results.Artists, artistFromTidal(a))
	}
	for _, p := range response.Playlists.Items {
		results.Playlists = append(results.Playlists, playlistFromTidal(p))
	}

	return results, nil
}

// Track retrieves a single track by ID.
func (s *TidalService) Track(ctx context.Context, trackID string) (*models.Track, error) {
	var t tidalTrack
	if err := s.doRequest(ctx, http.MethodGet, "/tracks/"+url.PathEscape(trackID), nil, nil, &t); err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
		}
		return nil, err
	}
	track := trackFromTidal(t)
	return &track, nil
}

// Album retrieves a single album by ID.
func (s *TidalService) Album(ctx context.Context, albumID string) (*models.Album, error) {
	var a tidalAlbum
	if err := s.doRequest(ctx, http.MethodGet, "/albums/"+url.PathEscape(albumID), nil, nil, &a); err != nil {
		return nil, err
	}
	album := albumFromTidal(a)
	return &album, nil
}

// Artist retrieves a single artist by ID.
func (s *TidalService) Artist(ctx context.Context, artistID string) (*models.Artist, error) {
	var a tidalArtist
	if err := s.doRequest(ctx, http.MethodGet, "/artists/"+url.PathEscape(artistID), nil, nil, &a); err != nil {
		return nil, err
	}
	artist := artistFromTidal(a)
	return &artist, nil
}

// Playlist retrieves playlist metadata by ID.
func (s *TidalService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var p tidalPlaylist
	if err := s.doRequest(ctx, http.MethodGet, "/playlists/"+url.PathEscape(playlistID), nil, nil, &p); err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, err
	}
	playlist := playlistFromTidal(p)
	return &playlist, nil
}

// PlaylistTracks retrieves a playlist's tracks with pagination.
func (s *TidalService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) ([]models.Track, error) {
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var page tidalPage[tidalTrack]
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	if err := s.doRequest(ctx, http.MethodGet, endpoint, params, nil, &page); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for _, t := range page.Items {
		tracks = append(tracks, trackFromTidal(t))
	}
	return tracks, nil
}

// UserPlaylists retrieves the authenticated user's playlists with pagination.
func (s *TidalService) UserPlaylists(ctx context.Context, limit, offset int) ([]models.Playlist, error) {
	userID, err := s.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var page tidalPage[tidalPlaylist]
	endpoint := "/users/" + url.PathEscape(userID) + "/playlists"
	if err := s.doRequest(ctx, http.MethodGet, endpoint, params, nil, &page); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(page.Items))
	for _, p := range page.Items {
		playlists = append(playlists, playlistFromTidal(p))
	}
	return playlists, nil
}

// CreatePlaylist creates a new playlist owned by the authenticated user.
func (s *TidalService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidArgument)
	}

	userID, err := s.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("title", name)
	form.Set("description", description)

	var p tidalPlaylist
	endpoint := "/users/" + url.PathEscape(userID) + "/playlists"
	if err := s.doRequest(ctx, http.MethodPost, endpoint, nil, form, &p); err != nil {
		return nil, err
	}

	playlist := playlistFromTidal(p)
	return &playlist, nil
}

// AddPlaylistTracks appends tracks to a playlist.
//
// Fetches the playlist's ETag first; Tidal requires If-None-Match on mutations.
func (s *TidalService) AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}

	etag, err := s.playlistETag(ctx, playlistID)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("trackIds", strings.Join(trackIDs, ","))
	form.Set("onArtifactNotFound", "FAIL")
	form.Set("onDupes", "FAIL")

	header := http.Header{}
	header.Set("If-None-Match", etag)

	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/items"
	resp, err := s.send(ctx, http.MethodPost, endpoint, nil, form, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{status: resp.StatusCode}
	}
	return nil
}

// RemovePlaylistTracks removes tracks from a playlist by position.
func (s *TidalService) RemovePlaylistTracks(ctx context.Context, playlistID string, indices []int) error {
	if len(indices) == 0 {
		return fmt.Errorf("%w: no track positions provided", shared.ErrInvalidArgument)
	}

	etag, err := s.playlistETag(ctx, playlistID)
	if err != nil {
		return err
	}

	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}

	header := http.Header{}
	header.Set("If-None-Match", etag)

	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/items/" + strings.Join(parts, ",")
	resp, err := s.send(ctx, http.MethodDelete, endpoint, nil, nil, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{status: resp.StatusCode}
	}
	return nil
}

// FavoriteTracks retrieves the user's favorite tracks with pagination.
func (s *TidalService) FavoriteTracks(ctx context.Context, limit, offset int) ([]models.Track, error) {
	userID, err := s.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("order", "DATE")
	params.Set("orderDirection", "DESC")

	var page tidalPage[tidalFavoriteTrack]
	endpoint := "/users/" + url.PathEscape(userID) + "/favorites/tracks"
	if err := s.doRequest(ctx, http.MethodGet, endpoint, params, nil, &page); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for _, item := range page.Items {
		tracks = append(tracks, trackFromTidal(item.Item))
	}
	return tracks, nil
}

// AddFavoriteTrack adds a track to the user's favorites.
func (s *TidalService) AddFavoriteTrack(ctx context.Context, trackID string) error {
	userID, err := s.ensureSession(ctx)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("trackIds", trackID)

	endpoint := "/users/" + url.PathEscape(userID) + "/favorites/tracks"
	return s.doRequest(ctx, http.MethodPost, endpoint, nil, form, nil)
}

// RemoveFavoriteTrack removes a track from the user's favorites.
func (s *TidalService) RemoveFavoriteTrack(ctx context.Context, trackID string) error {
	userID, err := s.ensureSession(ctx)
	if err != nil {
		return err
	}

	endpoint := "/users/" + url.PathEscape(userID) + "/favorites/tracks/" + url.PathEscape(trackID)
	return s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

// CurrentUser retrieves the authenticated user's profile.
func (s *TidalService) CurrentUser(ctx context.Context) (*models.User, error) {
	userID, err := s.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	var u tidalUser
	if err := s.doRequest(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, nil, &u); err != nil {
		return nil, err
	}

	_, _, country := s.snapshot()
	if u.CountryCode == "" {
		u.CountryCode = country
	}

	return &models.User{
		ID:          strconv.FormatInt(u.ID, 10),
		Username:    u.Username,
		Email:       u.Email,
		CountryCode: u.CountryCode,
	}, nil
}
