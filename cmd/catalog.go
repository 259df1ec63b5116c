package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tidalctl/internal/models"
	"github.com/desertthunder/tidalctl/internal/shared"
	"github.com/desertthunder/tidalctl/internal/ui"
	"github.com/urfave/cli/v3"
)

// Search queries the Tidal catalog across the requested result types.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	kinds := cmd.StringSlice("type")
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if query == "" {
		return fmt.Errorf("%w: a search query is required", shared.ErrMissingArgument)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	r.logger.Infof("searching for %q", query)

	results, err := svc.Search(ctx, query, kinds, int(limit))
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(results, pretty)
	}

	r.writePlain("%s\n", ui.Title(fmt.Sprintf("Results for %q", results.Query)))

	if len(results.Tracks) > 0 {
		r.writePlain("Tracks:\n")
		for _, track := range results.Tracks {
			r.writePlain("  %s  %s - %s [%s]\n", track.ID, track.Artist, track.Title, shared.FormatDuration(track.Duration))
		}
	}
	if len(results.Albums) > 0 {
		r.writePlain("Albums:\n")
		for _, album := range results.Albums {
			r.writePlain("  %s  %s - %s\n", album.ID, album.Artist, album.Title)
		}
	}
	if len(results.Artists) > 0 {
		r.writePlain("Artists:\n")
		for _, artist := range results.Artists {
			r.writePlain("  %s  %s\n", artist.ID, artist.Name)
		}
	}
	if len(results.Playlists) > 0 {
		r.writePlain("Playlists:\n")
		for _, playlist := range results.Playlists {
			r.writePlain("  %s  %s (%d tracks)\n", playlist.ID, playlist.Name, playlist.TrackCount)
		}
	}

	return nil
}

// GetTrack fetches a single track by ID.
func (r *Runner) GetTrack(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: a track ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	track, err := svc.Track(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, cmd.Bool("pretty"))
	}

	r.writePlain("%s - %s\n", track.Artist, track.Title)
	if track.Album != "" {
		r.writePlain("Album: %s\n", track.Album)
	}
	r.writePlain("Duration: %s\n", shared.FormatDuration(track.Duration))
	if track.ISRC != "" {
		r.writePlain("ISRC: %s\n", track.ISRC)
	}
	return nil
}

// GetAlbum fetches a single album by ID.
func (r *Runner) GetAlbum(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: an album ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	album, err := svc.Album(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(album, cmd.Bool("pretty"))
	}

	r.writePlain("%s - %s\n", album.Artist, album.Title)
	if album.TrackCount > 0 {
		r.writePlain("Tracks: %d\n", album.TrackCount)
	}
	if album.ReleaseDate != "" {
		r.writePlain("Released: %s\n", album.ReleaseDate)
	}
	return nil
}

// GetArtist fetches a single artist by ID.
func (r *Runner) GetArtist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: an artist ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	artist, err := svc.Artist(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(artist, cmd.Bool("pretty"))
	}

	r.writePlain("%s (%s)\n", artist.Name, artist.ID)
	return nil
}

// GetPlaylist fetches playlist metadata by ID.
func (r *Runner) GetPlaylist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: a playlist ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	playlist, err := svc.Playlist(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}

	printPlaylist(r, playlist)
	return nil
}

func printPlaylist(r *Runner, playlist *models.Playlist) {
	r.writePlain("%s (%s)\n", playlist.Name, playlist.ID)
	if playlist.Description != "" {
		r.writePlain("Description: %s\n", playlist.Description)
	}
	r.writePlain("Tracks: %d\n", playlist.TrackCount)
	r.writePlain("Visibility: %s\n", shared.VisibilityString(playlist.Public))
}
