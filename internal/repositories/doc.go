// Package repositories implements SQLite-backed persistence for the local
// track library cache.
//
// [TrackRepository] provides CRUD with soft deletes over the tracks table,
// plus [TrackRepository.Count] and [TrackRepository.Prune] for the `tidalctl
// cache` commands. [TrackCacheAdapter] adapts the repository to the facade's
// TrackCacher interface so every successfully fetched track lands in the
// local cache without the facade knowing about SQL.
package repositories
