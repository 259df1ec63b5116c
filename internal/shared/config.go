package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Session     SessionConfig     `toml:"session"`
	Cache       CacheConfig       `toml:"cache"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Tidal TidalConfig `toml:"tidal"`
}

// TidalConfig contains Tidal API credentials.
type TidalConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// SessionConfig contains credential persistence settings.
type SessionConfig struct {
	Path     string `toml:"path"`
	CacheDir string `toml:"cache_dir"`
}

// CacheConfig contains response cache and worker pool settings.
type CacheConfig struct {
	TTLSeconds int    `toml:"ttl_seconds"`
	Workers    int    `toml:"workers"`
	RateLimit  int    `toml:"rate_limit"`
	RedisAddr  string `toml:"redis_addr"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Environment overrides are applied after parsing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
//
// Environment overrides are applied after parsing.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.ApplyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig serializes the config back to TOML at the specified path.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variables onto the config.
//
// TIDAL_CLIENT_ID and TIDAL_CLIENT_SECRET take precedence over file values so
// credentials never need to live on disk. TIDALCTL_SESSION_PATH relocates the
// persisted credential record.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TIDAL_CLIENT_ID"); v != "" {
		c.Credentials.Tidal.ClientID = v
	}
	if v := os.Getenv("TIDAL_CLIENT_SECRET"); v != "" {
		c.Credentials.Tidal.ClientSecret = v
	}
	if v := os.Getenv("TIDALCTL_SESSION_PATH"); v != "" {
		c.Session.Path = v
	}
}

// SessionPath resolves the location of the persisted credential record.
//
// Falls back to <user config dir>/tidalctl/session.json, and to a relative
// path when no user config directory is available.
func (c *Config) SessionPath() string {
	if c.Session.Path != "" {
		return c.Session.Path
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".tidalctl", "session.json")
	}
	return filepath.Join(base, "tidalctl", "session.json")
}

// CacheDir resolves the scratch directory, defaulting to the session file's directory.
func (c *Config) CacheDir() string {
	if c.Session.CacheDir != "" {
		return c.Session.CacheDir
	}
	return filepath.Dir(c.SessionPath())
}
