package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tidalctl/internal/shared"
	"github.com/desertthunder/tidalctl/internal/ui"
	"github.com/urfave/cli/v3"
)

// FavoritesList lists the user's favorite tracks.
func (r *Runner) FavoritesList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	tracks, err := svc.FavoriteTracks(ctx, int(cmd.Int("limit")), int(cmd.Int("offset")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlain("%s\n", ui.Title(fmt.Sprintf("Favorite tracks (%d)", len(tracks))))
	for _, track := range tracks {
		r.writePlain("%s  %s - %s [%s]\n", track.ID, track.Artist, track.Title, shared.FormatDuration(track.Duration))
	}

	return nil
}

// FavoritesAdd adds a track to the user's favorites.
func (r *Runner) FavoritesAdd(ctx context.Context, cmd *cli.Command) error {
	trackID := cmd.StringArg("id")
	if trackID == "" {
		return fmt.Errorf("%w: a track ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	if err := svc.AddFavoriteTrack(ctx, trackID); err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("✓ Added track %s to favorites", trackID)))
}

// FavoritesRemove removes a track from the user's favorites.
func (r *Runner) FavoritesRemove(ctx context.Context, cmd *cli.Command) error {
	trackID := cmd.StringArg("id")
	if trackID == "" {
		return fmt.Errorf("%w: a track ID is required", shared.ErrMissingArgument)
	}

	svc, err := r.ensureService()
	if err != nil {
		return err
	}

	if err := svc.RemoveFavoriteTrack(ctx, trackID); err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("✓ Removed track %s from favorites", trackID)))
}
