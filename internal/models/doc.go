// Package models defines domain entities and persistence interfaces for tidalctl.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing Tidal API data
//   - [Track], [Album], [Artist], [Playlist] : catalog entities
//   - [PlaylistExport] : playlist with complete track listing
//   - [SearchResults] : grouped results for a single query
//   - [User] : the authenticated account
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedTrack] : locally cached tracks keyed by (service, service id)
//
// Persistent entities implement the [Model] interface providing ID generation,
// timestamps, validation, and soft delete support. The [Repository] interface
// defines standard CRUD operations for database access.
package models
