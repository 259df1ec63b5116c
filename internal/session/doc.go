// Package session owns the credential lifecycle for a single Tidal login.
//
// # Store
//
// [Store] persists one JSON credential [Record] at a fixed path. It never
// returns errors: unreadable or structurally invalid files degrade to "no
// usable session" and failed writes leave the previous file intact
// (temp-file-and-rename). Failures are logged so a persistently broken store
// stays visible to operators.
//
// # Manager
//
// [Manager] layers the OAuth2 lifecycle on top of the store:
//
//   - [Manager.EnsureValid] loads the record and silently refreshes an expired
//     token, at most once, serialized across concurrent callers.
//   - [Manager.Login] runs the interactive authorization-code flow with PKCE
//     through a loopback callback server and persists the result.
//   - [Manager.Handle] lazily creates the single provider client handle and
//     hydrates it from the persisted record.
//   - [Manager.ClearSession] is logout: it removes the file and wipes memory,
//     and never fails.
//
// The split between EnsureValid and Login is deliberate: refresh can self-heal
// without a human, interactive authorization cannot, and nothing in this
// package crosses that line automatically.
package session
