package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tidalctl/internal/formatter"
	"github.com/desertthunder/tidalctl/internal/shared"
	"github.com/desertthunder/tidalctl/internal/ui"
	"github.com/urfave/cli/v3"
)

// PlaylistList lists the authenticated user's playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	offset := int(cmd.Int("offset"))
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	r.logger.Infof("listing playlists with limit %v", limit)

	playlists, err := svc.UserPlaylists(ctx, limit, offset)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("%s\n", ui.Title(fmt.Sprintf("Playlists (%d)", len(playlists))))
	for _, playlist := range playlists {
		r.writePlain("%s  %s (%d tracks, %s)\n", playlist.ID, playlist.Name, playlist.TrackCount, shared.VisibilityString(playlist.Public))
	}

	return nil
}

// PlaylistTracks lists the tracks in a playlist.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: a playlist ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	tracks, err := svc.PlaylistTracks(ctx, id, int(cmd.Int("limit")), int(cmd.Int("offset")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	for i, track := range tracks {
		r.writePlain("%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, shared.FormatDuration(track.Duration))
	}

	return nil
}

// PlaylistCreate creates a new playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	description := cmd.String("description")

	if name == "" {
		return fmt.Errorf("%w: a playlist name is required", shared.ErrMissingArgument)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	r.logger.Infof("creating playlist %q", name)

	playlist, err := svc.CreatePlaylist(ctx, name, description)
	if err != nil {
		return err
	}

	r.writePlainln("%s", ui.OK(fmt.Sprintf("✓ Playlist created: %s", playlist.Name)))
	r.writePlain("ID: %s\n", playlist.ID)

	return nil
}

// PlaylistAdd adds tracks to an existing playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	trackIDs := cmd.StringSlice("track")

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	r.logger.Infof("adding %d tracks to playlist %s", len(trackIDs), playlistID)

	if err := svc.AddPlaylistTracks(ctx, playlistID, trackIDs); err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("✓ Added %d tracks", len(trackIDs))))
}

// PlaylistRemove removes tracks from a playlist by zero-based position.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	rawIndices := cmd.IntSlice("index")

	indices := make([]int, len(rawIndices))
	for i, idx := range rawIndices {
		indices[i] = int(idx)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	r.logger.Infof("removing %d tracks from playlist %s", len(indices), playlistID)

	if err := svc.RemovePlaylistTracks(ctx, playlistID, indices); err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("✓ Removed %d tracks", len(indices))))
}

// PlaylistExport exports a playlist with its full track listing.
//
// Supports JSON plus the formatter package's CSV, Markdown, and plain text
// renderings. Output goes to stdout unless --output names a file.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	format := cmd.String("format")
	outputPath := cmd.String("output")
	pretty := cmd.Bool("pretty")

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	r.logger.Infof("exporting playlist %s as %s", playlistID, format)

	export, err := svc.Export(ctx, playlistID)
	if err != nil {
		return err
	}

	var data []byte
	if format == "json" {
		data, err = shared.MarshalJSON(export, pretty)
	} else {
		data, err = formatter.Export(export, format)
	}
	if err != nil {
		return err
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write export file: %w", err)
		}
		r.writePlain("%s\n", ui.OK(fmt.Sprintf("✓ Exported %d tracks to %s", len(export.Tracks), outputPath)))
		return nil
	}

	return r.writePlain("%s\n", string(data))
}
