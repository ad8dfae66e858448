package config

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/kiai-dev/kiai/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "kiai.json"

	// DefaultServerURL is the default game server endpoint.
	DefaultServerURL = "wss://play.kiai.gg/ws"

	// DefaultKeepAlive is the default interval between keep-alive pings.
	DefaultKeepAlive = "1s"

	// DefaultLoginTimeout bounds how long the CLI waits for a login answer.
	DefaultLoginTimeout = "10s"

	// DefaultMapIndex is the default SQLite map index file.
	DefaultMapIndex = "maps.db"

	// DefaultMapDir is the default directory holding map files.
	DefaultMapDir = "maps"

	// DefaultLogLevel is the default slog level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default slog handler.
	DefaultLogFormat = "text"
)

// Config represents the complete kiai.json configuration. Every field can be
// overridden from the environment with its KIAI_* variable.
type Config struct {
	// ServerURL is the websocket endpoint of the game server.
	ServerURL string `json:"server_url,omitempty" env:"KIAI_SERVER_URL"`

	// ProtocolVersion overrides the protocol version sent at login (0 = built-in).
	ProtocolVersion uint32 `json:"protocol_version,omitempty" env:"KIAI_PROTOCOL_VERSION"`

	// KeepAlive is the keep-alive ping interval (e.g., "1s").
	KeepAlive string `json:"keep_alive,omitempty" env:"KIAI_KEEP_ALIVE"`

	// LoginTimeout is how long to wait for LoginResponse (e.g., "10s").
	LoginTimeout string `json:"login_timeout,omitempty" env:"KIAI_LOGIN_TIMEOUT"`

	// Account contains login credentials.
	Account AccountConfig `json:"account,omitempty"`

	// Maps contains the local map library settings.
	Maps MapsConfig `json:"maps,omitempty"`

	// Debug contains the local debug server settings.
	Debug DebugConfig `json:"debug,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// AccountConfig contains login credentials. The password is never written
// to kiai.json.
type AccountConfig struct {
	Username string `json:"username,omitempty" env:"KIAI_USERNAME"`
	Password string `json:"-" env:"KIAI_PASSWORD"`
}

// MapsConfig contains the local map library settings.
type MapsConfig struct {
	// Index is the SQLite file indexing maps by hash.
	Index string `json:"index,omitempty" env:"KIAI_MAP_INDEX"`

	// Dir is where map files are stored and downloaded to.
	Dir string `json:"dir,omitempty" env:"KIAI_MAP_DIR"`

	// Mirror is the S3-compatible bucket maps are downloaded from.
	Mirror MirrorConfig `json:"mirror,omitempty"`
}

// MirrorConfig describes an S3-compatible map mirror. An empty Bucket
// disables downloads.
type MirrorConfig struct {
	Bucket   string `json:"bucket,omitempty" env:"KIAI_MIRROR_BUCKET"`
	Region   string `json:"region,omitempty" env:"KIAI_MIRROR_REGION"`
	Endpoint string `json:"endpoint,omitempty" env:"KIAI_MIRROR_ENDPOINT"`
	Prefix   string `json:"prefix,omitempty" env:"KIAI_MIRROR_PREFIX"`
}

// DebugConfig contains the local debug server settings.
type DebugConfig struct {
	// Listen is the address of the debug HTTP server (empty = disabled).
	Listen string `json:"listen,omitempty" env:"KIAI_DEBUG_LISTEN"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `json:"level,omitempty" env:"KIAI_LOG_LEVEL"`
	Format string `json:"format,omitempty" env:"KIAI_LOG_FORMAT"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		ServerURL:    DefaultServerURL,
		KeepAlive:    DefaultKeepAlive,
		LoginTimeout: DefaultLoginTimeout,
		Maps: MapsConfig{
			Index: DefaultMapIndex,
			Dir:   DefaultMapDir,
			Mirror: MirrorConfig{
				Region: "us-east-1",
				Prefix: "maps/",
			},
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for kiai.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No kiai.json found in " + filepath.Dir(path))
		}
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to parse kiai.json: " + err.Error()).
			WithSuggestion("Check that kiai.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// ApplyEnv overrides fields from KIAI_* variables. A nil environ reads the
// process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	opts := env.Options{Environment: environ}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return errors.New(errors.CodeConfigEnv).Wrap(err)
	}
	c.applyDefaults()
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.KeepAlive == "" {
		c.KeepAlive = DefaultKeepAlive
	}
	if c.LoginTimeout == "" {
		c.LoginTimeout = DefaultLoginTimeout
	}

	if c.Maps.Index == "" {
		c.Maps.Index = DefaultMapIndex
	}
	if c.Maps.Dir == "" {
		c.Maps.Dir = DefaultMapDir
	}
	if c.Maps.Mirror.Region == "" {
		c.Maps.Mirror.Region = "us-east-1"
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("server_url must be a ws:// or wss:// URL, got " + c.ServerURL)
	}
	if _, err := c.keepAlive(); err != nil {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("keep_alive must be a positive duration like \"1s\"")
	}
	if _, err := c.loginTimeout(); err != nil {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("login_timeout must be a positive duration like \"10s\"")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("log.format must be \"text\" or \"json\"")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// KeepAliveInterval returns the parsed keep-alive interval, falling back to
// the default when the value is unusable.
func (c *Config) KeepAliveInterval() time.Duration {
	d, err := c.keepAlive()
	if err != nil {
		return time.Second
	}
	return d
}

// LoginTimeoutDuration returns the parsed login timeout, falling back to the
// default when the value is unusable.
func (c *Config) LoginTimeoutDuration() time.Duration {
	d, err := c.loginTimeout()
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func (c *Config) keepAlive() (time.Duration, error) {
	return positiveDuration(c.KeepAlive)
}

func (c *Config) loginTimeout() (time.Duration, error) {
	return positiveDuration(c.LoginTimeout)
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.Newf(errors.CategoryConfig, "duration %q is not positive", s)
	}
	return d, nil
}

// MapIndexPath returns the absolute path to the map index.
func (c *Config) MapIndexPath() string {
	return c.resolve(c.Maps.Index)
}

// MapDirPath returns the absolute path to the map directory.
func (c *Config) MapDirPath() string {
	return c.resolve(c.Maps.Dir)
}

// HasMirror reports whether map downloads are configured.
func (c *Config) HasMirror() bool {
	return c.Maps.Mirror.Bucket != ""
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindRoot walks up directories to find the one containing kiai.json.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No kiai.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its parents, then applies environment overrides. When no kiai.json
// exists the defaults are used.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg := New()
	if root, err := FindRoot(wd); err == nil {
		if cfg, err = Load(root); err != nil {
			return nil, err
		}
	} else {
		cfg.configPath = filepath.Join(wd, ConfigFileName)
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	return cfg, nil
}
