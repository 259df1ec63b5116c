package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalctl/internal/server"
	"github.com/desertthunder/tidalctl/internal/services"
	"github.com/desertthunder/tidalctl/internal/shared"
	"golang.org/x/oauth2"
)

const authorizeTimeout = 2 * time.Minute

// Options configures a [Manager].
//
// ClientID is required; it may also come from the TIDAL_CLIENT_ID environment
// variable. ClientSecret is optional since the PKCE flow does not need one.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	Endpoint     oauth2.Endpoint // defaults to the Tidal endpoints

	SessionPath  string // defaults under the user config directory
	CacheDir     string // defaults to the session file's directory
	CallbackAddr string // loopback address for the OAuth callback server

	Logger     *log.Logger
	HTTPClient *http.Client

	// NewProvider constructs the provider client handle. Defaults to
	// services.NewTidalService. Tests substitute a double here.
	NewProvider func(*oauth2.Config) services.Provider

	// Now is the clock used for expiry arithmetic. Defaults to time.Now.
	Now func() time.Time
}

// Manager owns the OAuth2 authorization-code-with-PKCE flow, token expiry
// checks, refresh, and logout for a single Tidal login.
//
// The manager holds an in-memory mirror of the persisted credential record and
// at most one live provider handle. The refresh path is serialized: N
// concurrent callers observing an expired token produce exactly one refresh
// call against the token endpoint.
type Manager struct {
	conf         *oauth2.Config
	store        *Store
	cacheDir     string
	callbackAddr string
	logger       *log.Logger
	httpClient   *http.Client
	now          func() time.Time
	newProvider  func(*oauth2.Config) services.Provider

	// authorize runs the interactive flow; swapped out in tests.
	authorize func(ctx context.Context) (*oauth2.Token, error)

	mu     sync.Mutex
	record *Record
	loaded bool
	handle services.Provider
}

// NewManager creates a Manager from Options.
//
// Returns [shared.ErrMissingConfig] when no client id is supplied explicitly
// or through the environment; nothing can proceed without one. Directory
// creation failures for the session and cache paths are logged but not fatal.
func NewManager(opts Options) (*Manager, error) {
	clientID := opts.ClientID
	if clientID == "" {
		clientID = os.Getenv("TIDAL_CLIENT_ID")
	}
	if clientID == "" {
		return nil, fmt.Errorf("%w: a Tidal client id is required (set credentials.tidal.client_id or TIDAL_CLIENT_ID)", shared.ErrMissingConfig)
	}

	clientSecret := opts.ClientSecret
	if clientSecret == "" {
		clientSecret = os.Getenv("TIDAL_CLIENT_SECRET")
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	redirectURI := opts.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	callbackAddr := opts.CallbackAddr
	if callbackAddr == "" {
		callbackAddr = "localhost:3000"
	}

	endpoint := opts.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = services.Endpoint
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = services.DefaultScopes
	}

	sessionPath := opts.SessionPath
	if sessionPath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			sessionPath = filepath.Join(".tidalctl", "session.json")
		} else {
			sessionPath = filepath.Join(base, "tidalctl", "session.json")
		}
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Dir(sessionPath)
	}
	for _, dir := range []string{filepath.Dir(sessionPath), cacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Warn("failed to create directory", "path", dir, "error", err)
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	newProvider := opts.NewProvider
	if newProvider == nil {
		newProvider = func(conf *oauth2.Config) services.Provider {
			return services.NewTidalService(conf, httpClient)
		}
	}

	m := &Manager{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		store:        NewStore(sessionPath, logger),
		cacheDir:     cacheDir,
		callbackAddr: callbackAddr,
		logger:       logger,
		httpClient:   httpClient,
		now:          now,
		newProvider:  newProvider,
	}
	m.authorize = m.interactiveAuthorize

	return m, nil
}

// Store exposes the underlying session store.
func (m *Manager) Store() *Store { return m.store }

// CacheDir returns the scratch directory created for provider artifacts.
func (m *Manager) CacheDir() string { return m.cacheDir }

// loadLocked reads the persisted record once. Callers must hold m.mu.
func (m *Manager) loadLocked() {
	if m.loaded {
		return
	}
	m.record = m.store.Load()
	m.loaded = true
}

// httpContext attaches the manager's HTTP client for oauth2 transport calls.
func (m *Manager) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// EnsureValid reports whether, after this call, the in-memory credential is
// present and unexpired.
//
// Idempotent: loads the persisted record if none is in memory, then attempts
// at most one refresh when the record is expired. It never starts the
// interactive flow; that line separates what can silently self-heal from what
// needs a human at a browser. A failed refresh leaves the stale record on disk
// and in memory so a later call (or explicit Login) can recover.
func (m *Manager) EnsureValid(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()

	if m.record != nil && !m.record.Expired(m.now()) {
		return true
	}

	if m.record == nil {
		return false
	}
	if m.record.RefreshToken == "" {
		m.logger.Warn("session expired with no refresh token; interactive login required")
		return false
	}

	rec, err := m.refreshLocked(ctx)
	if err != nil {
		m.logger.Warn("token refresh failed", "error", err)
		return false
	}

	m.record = rec
	m.store.Save(rec)
	if m.handle != nil {
		m.handle.SetToken(rec.Token())
	}

	m.logger.Info("session refreshed", "expires_at", int64(rec.ExpiresAt))
	return true
}

// refreshLocked exchanges the refresh token for a new access token.
// Callers must hold m.mu, which is what serializes concurrent refreshes.
func (m *Manager) refreshLocked(ctx context.Context) (*Record, error) {
	src := m.conf.TokenSource(m.httpContext(ctx), &oauth2.Token{RefreshToken: m.record.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return RecordFromToken(tok, m.record.RefreshToken, m.record.UserID), nil
}

// Login runs the interactive authorization-code exchange and persists the
// resulting record.
//
// Any failure from the underlying transport or callback flow is wrapped as
// [shared.ErrAuthFailed] with the cause attached; raw transport errors never
// leak. On failure the manager stays unauthenticated and previous state is
// untouched.
func (m *Manager) Login(ctx context.Context) error {
	tok, err := m.authorize(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	rec := RecordFromToken(tok, "", userIDFromToken(tok))

	m.mu.Lock()
	m.record = rec
	m.loaded = true
	if m.handle != nil {
		m.handle.SetToken(tok)
	}
	m.mu.Unlock()

	m.store.Save(rec)
	m.logger.Info("authorization successful", "user_id", rec.UserID)
	return nil
}

// userIDFromToken pulls the numeric user id Tidal embeds in its token response.
func userIDFromToken(tok *oauth2.Token) string {
	switch v := tok.Extra("user_id").(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	}
	if user, ok := tok.Extra("user").(map[string]any); ok {
		if id, ok := user["userId"].(float64); ok {
			return strconv.FormatInt(int64(id), 10)
		}
	}
	return ""
}

// interactiveAuthorize executes the PKCE authorization flow with a local HTTP
// server receiving the callback.
func (m *Manager) interactiveAuthorize(ctx context.Context) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	authURL := m.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	oauthHandler := server.NewOAuthHandler(m.conf, state, verifier)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:    m.callbackAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		m.logger.Infof("starting OAuth callback server at %v", m.callbackAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	if err := shared.OpenBrowser(authURL); err != nil {
		m.logger.Warnf("failed to open browser automatically %v", err)
		m.logger.Infof("open this URL in your browser: %s", authURL)
	}

	timeout := time.NewTimer(authorizeTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		httpServer.Close()
		return nil, ctx.Err()
	case <-timeout.C:
		httpServer.Close()
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, authorizeTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		m.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, result.Error()
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// Handle returns the live provider handle, creating it on first use.
//
// When a persisted record exists the handle is hydrated from it; hydration is
// best-effort, so a failure is logged and the handle is still returned.
// Callers then see authentication failures on their first request instead.
func (m *Manager) Handle() services.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()

	if m.handle == nil {
		m.handle = m.newProvider(m.conf)
		if m.record != nil {
			if err := m.handle.Restore(m.record.Token(), m.record.UserID); err != nil {
				m.logger.Warn("failed to restore provider session", "error", err)
			}
		}
	}

	return m.handle
}

// ClearSession deletes the persisted record and wipes in-memory credentials.
//
// Never fails from the caller's perspective: file removal errors are logged.
// Safe to call repeatedly.
func (m *Manager) ClearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Delete()
	m.record = nil
	m.loaded = true
	if m.handle != nil {
		m.handle.SetToken(nil)
	}

	m.logger.Info("session cleared")
}

// Expired reports whether the session is currently expired.
//
// True when no record exists, the expiry is missing, or the expiry is at or
// before the current time. Pure predicate beyond the initial lazy load; it
// never triggers a refresh.
func (m *Manager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()
	return m.record.Expired(m.now())
}

// Current returns a copy of the in-memory credential record, or nil.
func (m *Manager) Current() *Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()
	if m.record == nil {
		return nil
	}
	rec := *m.record
	return &rec
}
