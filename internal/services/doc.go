// Package services defines the [Provider] interface for streaming catalog
// backends and implements it for the Tidal API ([TidalService]).
//
// A Provider handles the authenticated HTTP surface of a service: catalog
// lookups, search, playlist and favorite mutations, and user identity. Token
// acquisition and refresh live elsewhere; providers receive tokens through
// [Provider.Restore] and [Provider.SetToken] and only fail with
// shared.ErrTokenExpired when the service rejects one.
package services
