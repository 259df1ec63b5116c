// Package server provides HTTP routing, middleware, and the OAuth2 callback
// handler for the interactive login flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback with PKCE.
//
// The handler validates the state parameter (CSRF protection), exchanges the
// authorization code for tokens with the code verifier attached, and sends the
// result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// When the user runs `tidalctl auth login`, the session manager starts a
// temporary HTTP server on the configured loopback address, handles the
// callback, and shuts the server down after receiving the OAuth token.
package server
