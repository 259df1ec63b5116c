package main

import (
	"context"
	"time"

	"github.com/desertthunder/tidalctl/internal/shared"
	"github.com/desertthunder/tidalctl/internal/ui"
	"github.com/urfave/cli/v3"
)

// CacheStats shows counts for the local track cache.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.trackRepository()
	if err != nil {
		return err
	}

	count, err := repo.Count()
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Title("Track cache"))
	r.writePlain("Cached tracks: %d\n", count)
	r.writePlain("Database: %s\n", r.config.Database.Path)

	return nil
}

// CacheTracks lists locally cached tracks ordered by insertion.
func (r *Runner) CacheTracks(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.trackRepository()
	if err != nil {
		return err
	}

	tracks, err := repo.List(map[string]any{"service": "tidal"})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		plain := make([]any, 0, len(tracks))
		for _, track := range tracks {
			plain = append(plain, track.Track())
		}
		return r.writeJSON(plain, true)
	}

	for _, track := range tracks {
		r.writePlain("%s  %s - %s [%s]\n", track.ServiceID(), track.Artist(), track.Title(), shared.FormatDuration(track.Duration()))
	}

	return nil
}

// CachePrune soft-deletes cached tracks older than the retention window.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	days := int(cmd.Int("days"))

	repo, err := r.trackRepository()
	if err != nil {
		return err
	}

	r.logger.Infof("pruning tracks older than %d days", days)

	pruned, err := repo.Prune(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.OK("✓ Prune complete"))
	r.writePlain("Removed %d stale tracks\n", pruned)

	return nil
}
