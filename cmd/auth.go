package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/tidalctl/internal/shared"
	"github.com/desertthunder/tidalctl/internal/ui"
	"github.com/urfave/cli/v3"
)

// AuthLogin performs the OAuth2 authorization-code-with-PKCE flow for Tidal.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens. The resulting session is persisted so
// subsequent commands reuse it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if r.config.Credentials.Tidal.ClientID == "" {
		if _, err := os.Stat(configPath); err == nil {
			if config, err := shared.LoadConfig(configPath); err == nil {
				r.config = config
			} else {
				r.logger.Warnf("failed to load config %v", err)
			}
		}
	}

	sessions, err := r.ensureSessions()
	if err != nil {
		return err
	}

	r.logger.Info("starting Tidal authorization flow")

	if err := sessions.Login(ctx); err != nil {
		return err
	}

	r.writePlainln("%s", ui.OK("✓ Authorization successful"))
	if record := sessions.Current(); record != nil && record.UserID != "" {
		r.writePlain("Logged in as user %s\n", record.UserID)
	}
	r.writePlain("Session saved to %s\n", sessions.Store().Path())

	return nil
}

// AuthLogout clears the persisted session.
//
// Idempotent: running logout twice leaves the same logged-out state.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	sessions, err := r.ensureSessions()
	if err != nil {
		return err
	}

	sessions.ClearSession()
	return r.writePlain("%s\n", ui.OK("✓ Logged out"))
}

// AuthStatus shows the current authentication state without touching the network.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	sessions, err := r.ensureSessions()
	if err != nil {
		return err
	}

	record := sessions.Current()
	expired := sessions.Expired()

	if useJSON {
		status := map[string]any{
			"authenticated": record != nil && !expired,
			"expired":       expired,
		}
		if record != nil {
			status["user_id"] = record.UserID
			status["expires_at"] = record.ExpiresAt
		}
		return r.writeJSON(status, true)
	}

	if record == nil {
		r.writePlain("%s\n", ui.Warn("✗ Not authenticated"))
		return r.writePlain("%s\n", ui.Help(fmt.Sprintf("Run %s to log in", "`tidalctl auth login`")))
	}

	if expired {
		r.writePlain("%s\n", ui.Warn("✗ Session expired (will refresh on next use)"))
	} else {
		r.writePlain("%s\n", ui.OK("✓ Authenticated"))
	}

	if record.UserID != "" {
		r.writePlain("User: %s\n", record.UserID)
	}
	if record.ExpiresAt > 0 {
		expiry := time.Unix(int64(record.ExpiresAt), 0)
		r.writePlain("Token expires: %s\n", expiry.Format(time.RFC1123))
	}

	return nil
}
