package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalctl/internal/facade"
	"github.com/desertthunder/tidalctl/internal/repositories"
	"github.com/desertthunder/tidalctl/internal/session"
	"github.com/desertthunder/tidalctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	sessions   *session.Manager
	svc        *facade.Facade
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Sessions and Service are optional; when nil they are built lazily from the
// config the first time a command needs them. Tests inject doubles here.
type RunnerOpts struct {
	Config     *shared.Config
	Sessions   *session.Manager
	Service    *facade.Facade
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		sessions:   opts.Sessions,
		svc:        opts.Service,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, searchCommand, getCommand, playlistCommand, favoritesCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensureSessions builds the session manager from config on first use.
func (r *Runner) ensureSessions() (*session.Manager, error) {
	if r.sessions != nil {
		return r.sessions, nil
	}

	tidal := r.config.Credentials.Tidal
	callbackAddr := ""
	if r.config.Server.Host != "" && r.config.Server.Port > 0 {
		callbackAddr = fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	}

	manager, err := session.NewManager(session.Options{
		ClientID:     tidal.ClientID,
		ClientSecret: tidal.ClientSecret,
		RedirectURI:  tidal.RedirectURI,
		SessionPath:  r.config.SessionPath(),
		CacheDir:     r.config.CacheDir(),
		CallbackAddr: callbackAddr,
		Logger:       r.logger,
		HTTPClient:   r.httpClient,
	})
	if err != nil {
		return nil, err
	}

	r.sessions = manager
	return manager, nil
}

// ensureService builds the caching facade from config on first use.
//
// The track persistence layer is optional: when the database cannot be opened
// the facade still works, it just skips the local library writes.
func (r *Runner) ensureService() (*facade.Facade, error) {
	if r.svc != nil {
		return r.svc, nil
	}

	sessions, err := r.ensureSessions()
	if err != nil {
		return nil, err
	}

	ttl := facade.DefaultTTL
	if r.config.Cache.TTLSeconds > 0 {
		ttl = time.Duration(r.config.Cache.TTLSeconds) * time.Second
	}

	var cache facade.Cache
	if r.config.Cache.RedisAddr != "" {
		cache = facade.NewRedisCache(r.config.Cache.RedisAddr, ttl, r.logger)
	} else {
		cache = facade.NewMemoryCache(ttl)
	}

	var tracks facade.TrackCacher
	if repo, err := r.trackRepository(); err != nil {
		r.logger.Warn("track persistence disabled", "error", err)
	} else {
		tracks = repositories.NewTrackCacheAdapter(repo)
	}

	svc, err := facade.New(facade.Options{
		Sessions:   sessions,
		Cache:      cache,
		Workers:    r.config.Cache.Workers,
		RatePerSec: r.config.Cache.RateLimit,
		Tracks:     tracks,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.svc = svc
	return svc, nil
}

// trackRepository opens the SQLite database lazily and wraps it in a repository.
func (r *Runner) trackRepository() (*repositories.TrackRepository, error) {
	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return nil, err
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, err
		}
		r.db = db
	}
	return repositories.NewTrackRepository(r.db), nil
}

// Close releases the facade and the database handle.
func (r *Runner) Close() {
	if r.svc != nil {
		r.svc.Close()
	}
	if r.db != nil {
		r.db.Close()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
