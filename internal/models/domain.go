package models

// Track represents a Tidal track.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration int    `json:"duration"` // Duration in seconds
	ISRC     string `json:"isrc,omitempty"`
	Explicit bool   `json:"explicit,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Album represents a Tidal album.
type Album struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	ReleaseDate string `json:"release_date,omitempty"`
	TrackCount  int    `json:"track_count"`
	URL         string `json:"url,omitempty"`
}

// Artist represents a Tidal artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Playlist represents a Tidal playlist.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	URL         string `json:"url,omitempty"`
}

// PlaylistExport represents a playlist with its full track listing.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// SearchResults groups results across entity kinds for a single query.
type SearchResults struct {
	Query     string     `json:"query"`
	Tracks    []Track    `json:"tracks,omitempty"`
	Albums    []Album    `json:"albums,omitempty"`
	Artists   []Artist   `json:"artists,omitempty"`
	Playlists []Playlist `json:"playlists,omitempty"`
}

// User represents the authenticated Tidal account.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}
