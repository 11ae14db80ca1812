package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	rerrors "github.com/vango-dev/routeagent/internal/errors"
	"github.com/vango-dev/routeagent/pkg/protocol"
	"github.com/vango-dev/routeagent/pkg/routing"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "routeagent.json"

	// DefaultAddr is the default listen address for routectl serve.
	DefaultAddr = ":8080"

	// DefaultSnapshotDir is where the disk backend keeps histories.
	DefaultSnapshotDir = ".routeagent/snapshots"
)

// Backend names accepted in snapshot.backend.
const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// Duration is a time.Duration written as a string ("30s") in JSON and in
// environment variables.
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config represents the complete routeagent.json configuration.
type Config struct {
	// Server configures routectl serve.
	Server ServerConfig `json:"server"`

	// Log selects the slog handler.
	Log LogConfig `json:"log"`

	// Metrics configures the Prometheus collectors and endpoint.
	Metrics MetricsConfig `json:"metrics"`

	// Snapshot selects where routectl nav keeps its history.
	Snapshot SnapshotConfig `json:"snapshot"`

	// Routes is the route table: first matching rule wins.
	Routes []routing.Rule `json:"routes,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP and websocket settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" env:"ROUTEAGENT_ADDR"`

	// Title is the document title of the page shell.
	Title string `json:"title,omitempty" env:"ROUTEAGENT_TITLE"`

	// HandshakeTimeout bounds the wait for the client's hello frame.
	HandshakeTimeout Duration `json:"handshakeTimeout,omitempty" env:"ROUTEAGENT_HANDSHAKE_TIMEOUT"`

	// ReadTimeout is how long a session may stay silent, pongs included.
	ReadTimeout Duration `json:"readTimeout,omitempty" env:"ROUTEAGENT_READ_TIMEOUT"`

	// WriteTimeout bounds each frame write.
	WriteTimeout Duration `json:"writeTimeout,omitempty" env:"ROUTEAGENT_WRITE_TIMEOUT"`

	// PingInterval is the keepalive period. Must be below ReadTimeout.
	PingInterval Duration `json:"pingInterval,omitempty" env:"ROUTEAGENT_PING_INTERVAL"`

	// MaxMessageSize caps inbound frames in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty" env:"ROUTEAGENT_MAX_MESSAGE_SIZE"`

	// MaxSessions caps concurrent websocket sessions (0 = unlimited).
	MaxSessions int `json:"maxSessions,omitempty" env:"ROUTEAGENT_MAX_SESSIONS"`

	// AllowedOrigins lists origins accepted on upgrade. Empty means same
	// origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" env:"ROUTEAGENT_ALLOWED_ORIGINS" envSeparator:","`

	// InboxSize is the buffer of each session's route agent.
	InboxSize int `json:"inboxSize,omitempty" env:"ROUTEAGENT_INBOX_SIZE"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" env:"ROUTEAGENT_LOG_LEVEL"`

	// Format is text or json.
	Format string `json:"format,omitempty" env:"ROUTEAGENT_LOG_FORMAT"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled serves Path and registers collectors.
	Enabled bool `json:"enabled" env:"ROUTEAGENT_METRICS_ENABLED"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" env:"ROUTEAGENT_METRICS_NAMESPACE"`

	// Path is the scrape endpoint.
	Path string `json:"path,omitempty" env:"ROUTEAGENT_METRICS_PATH"`
}

// SnapshotConfig selects and configures a snapshot store.
type SnapshotConfig struct {
	// Backend is memory, disk, redis or s3.
	Backend string `json:"backend,omitempty" env:"ROUTEAGENT_SNAPSHOT_BACKEND"`

	// ID names the snapshot routectl nav reads and writes.
	ID string `json:"id,omitempty" env:"ROUTEAGENT_SNAPSHOT_ID"`

	// TTL is how long a saved history lives. Zero keeps it forever.
	TTL Duration `json:"ttl,omitempty" env:"ROUTEAGENT_SNAPSHOT_TTL"`

	// Dir is the disk backend directory.
	Dir string `json:"dir,omitempty" env:"ROUTEAGENT_SNAPSHOT_DIR"`

	Redis RedisConfig `json:"redis"`
	S3    S3Config    `json:"s3"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" env:"REDIS_ADDR"`
	Password string `json:"password,omitempty" env:"REDIS_PASS"`
	DB       int    `json:"db,omitempty" env:"REDIS_DB"`
	Prefix   string `json:"prefix,omitempty" env:"REDIS_PREFIX"`
}

// S3Config configures the s3 backend.
type S3Config struct {
	Bucket          string `json:"bucket,omitempty" env:"S3_BUCKET"`
	Prefix          string `json:"prefix,omitempty" env:"S3_PREFIX"`
	Region          string `json:"region,omitempty" env:"AWS_REGION"`
	Endpoint        string `json:"endpoint,omitempty" env:"S3_ENDPOINT"`
	AccessKeyID     string `json:"accessKeyId,omitempty" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `json:"-" env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `json:"usePathStyle,omitempty" env:"S3_USE_PATH_STYLE"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             DefaultAddr,
			Title:            "routeagent",
			HandshakeTimeout: Duration(5 * time.Second),
			ReadTimeout:      Duration(60 * time.Second),
			WriteTimeout:     Duration(10 * time.Second),
			PingInterval:     Duration(25 * time.Second),
			MaxMessageSize:   protocol.MaxMessageSize,
			InboxSize:        64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "routeagent",
			Path:      "/metrics",
		},
		Snapshot: SnapshotConfig{
			Backend: BackendDisk,
			ID:      "default",
			TTL:     Duration(24 * time.Hour),
			Dir:     DefaultSnapshotDir,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "routeagent:snapshot:",
			},
			S3: S3Config{
				Prefix: "routeagent/snapshots/",
				Region: "us-east-1",
			},
		},
	}
}

// Load reads routeagent.json from dir and applies environment overrides. A
// missing file yields the defaults.
func Load(dir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dir, ConfigFileName))
	if errors.Is(err, fs.ErrNotExist) {
		cfg = New()
		err = nil
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from the specified file path. Environment
// overrides are not applied.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, rerrors.New("E111").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'routectl init' to write the defaults").
				Wrap(err)
		}
		return nil, rerrors.New("E111").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, rerrors.New("E111").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// ApplyEnv overrides file values with any environment variables that are
// set. Unset variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	for _, section := range []any{&c.Server, &c.Log, &c.Metrics, &c.Snapshot, &c.Snapshot.Redis, &c.Snapshot.S3} {
		if err := env.Parse(section); err != nil {
			return rerrors.New("E110").
				WithDetail("Failed to parse environment overrides: " + err.Error())
		}
	}
	c.applyDefaults()
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return rerrors.Newf(rerrors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return rerrors.New("E111").Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return rerrors.New("E111").Wrap(err)
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
	def := New()

	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.HandshakeTimeout == 0 {
		c.Server.HandshakeTimeout = def.Server.HandshakeTimeout
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = def.Server.PingInterval
	}
	if c.Server.MaxMessageSize == 0 {
		c.Server.MaxMessageSize = def.Server.MaxMessageSize
	}
	if c.Server.InboxSize == 0 {
		c.Server.InboxSize = def.Server.InboxSize
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = def.Metrics.Path
	}

	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = def.Snapshot.Backend
	}
	if c.Snapshot.ID == "" {
		c.Snapshot.ID = def.Snapshot.ID
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = def.Snapshot.Dir
	}
	if c.Snapshot.Redis.Prefix == "" {
		c.Snapshot.Redis.Prefix = def.Snapshot.Redis.Prefix
	}
}

// Validate checks if the configuration is valid. Route expressions are
// compiled so a typo fails at startup.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return invalid("server.addr", "address is empty")
	}
	for _, d := range []struct {
		field string
		v     Duration
	}{
		{"server.handshakeTimeout", c.Server.HandshakeTimeout},
		{"server.readTimeout", c.Server.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout},
		{"server.pingInterval", c.Server.PingInterval},
	} {
		if d.v <= 0 {
			return invalid(d.field, "must be positive")
		}
	}
	if c.Server.PingInterval >= c.Server.ReadTimeout {
		return invalid("server.pingInterval", "must be shorter than server.readTimeout")
	}
	if c.Server.MaxMessageSize <= 0 {
		return invalid("server.maxMessageSize", "must be positive")
	}
	if c.Server.MaxSessions < 0 {
		return invalid("server.maxSessions", "must not be negative")
	}
	if c.Server.InboxSize <= 0 {
		return invalid("server.inboxSize", "must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", fmt.Sprintf("unknown level %q", c.Log.Level)).
			WithSuggestion("use debug, info, warn or error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format", fmt.Sprintf("unknown format %q", c.Log.Format)).
			WithSuggestion(`use "text" or "json"`)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path", "must start with /")
	}

	if err := c.validateSnapshot(); err != nil {
		return err
	}
	return c.validateRoutes()
}

func (c *Config) validateSnapshot() error {
	s := c.Snapshot
	if s.TTL < 0 {
		return invalid("snapshot.ttl", "must not be negative")
	}
	switch s.Backend {
	case BackendMemory:
	case BackendDisk:
		if s.Dir == "" {
			return invalid("snapshot.dir", "disk backend needs a directory")
		}
	case BackendRedis:
		if s.Redis.Addr == "" {
			return invalid("snapshot.redis.addr", "redis backend needs an address").
				WithSuggestion("set REDIS_ADDR")
		}
		if s.Redis.DB < 0 {
			return invalid("snapshot.redis.db", "must not be negative")
		}
	case BackendS3:
		if s.S3.Bucket == "" {
			return invalid("snapshot.s3.bucket", "s3 backend needs a bucket").
				WithSuggestion("set S3_BUCKET")
		}
	default:
		return invalid("snapshot.backend", fmt.Sprintf("unknown backend %q", s.Backend)).
			WithSuggestion(`use "memory", "disk", "redis" or "s3"`)
	}
	return nil
}

func (c *Config) validateRoutes() error {
	if len(c.Routes) == 0 {
		return nil
	}
	ev, err := routing.NewEvaluator(nil)
	if err != nil {
		return rerrors.New("E112").Wrap(err)
	}
	for i, rule := range c.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		if rule.View == "" {
			return invalid(field+".view", "view name is empty")
		}
		if rule.When == "" {
			continue
		}
		if err := ev.Validate(rule.When); err != nil {
			return rerrors.New("E112").WithField(field + ".when").Wrap(err)
		}
	}
	return nil
}

func invalid(field, detail string) *rerrors.Error {
	return rerrors.New("E110").WithField(field).WithDetail(detail)
}

// SnapshotDir returns the disk backend directory, resolved against the
// config file's directory when relative.
func (c *Config) SnapshotDir() string {
	if filepath.IsAbs(c.Snapshot.Dir) {
		return c.Snapshot.Dir
	}
	return filepath.Join(c.Dir(), c.Snapshot.Dir)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the first directory holding
// routeagent.json.
func FindProjectRoot(startDir string) (string, error) {
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
			return "", rerrors.New("E111").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'routectl init' to write the defaults").
				Wrap(fs.ErrNotExist)
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the nearest routeagent.json at or above the
// working directory, falling back to defaults plus environment.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if errors.Is(err, fs.ErrNotExist) {
		root = wd
	} else if err != nil {
		return nil, err
	}

	return Load(root)
}
