package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	rerrors "github.com/vango-dev/routeagent/internal/errors"
	"github.com/vango-dev/routeagent/pkg/protocol"
	"github.com/vango-dev/routeagent/pkg/routing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Server.MaxMessageSize != protocol.MaxMessageSize {
		t.Errorf("Server.MaxMessageSize = %d", cfg.Server.MaxMessageSize)
	}
	if cfg.Snapshot.Backend != BackendDisk {
		t.Errorf("Snapshot.Backend = %q, want %q", cfg.Snapshot.Backend, BackendDisk)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should default on")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load without file: %v", err)
	}
	if cfg.Server.Addr != DefaultAddr || cfg.Path() != "" {
		t.Errorf("missing file should give defaults, got %+v", cfg.Server)
	}

	writeConfig(t, tmpDir, `{
  "server": {"addr": "127.0.0.1:9000", "pingInterval": "10s"},
  "log": {"level": "DEBUG", "format": "json"},
  "metrics": {"namespace": "docs"},
  "snapshot": {"backend": "redis", "ttl": "1h", "redis": {"addr": "cache:6379", "db": 2}},
  "routes": [
    {"when": "path == '/'", "view": "home"},
    {"view": "missing"}
  ]
}
`)

	cfg, err = Load(tmpDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.PingInterval.D() != 10*time.Second {
		t.Errorf("Server.PingInterval = %v", cfg.Server.PingInterval.D())
	}
	if cfg.Server.ReadTimeout.D() != 60*time.Second {
		t.Errorf("unset ReadTimeout should keep default, got %v", cfg.Server.ReadTimeout.D())
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Namespace != "docs" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Snapshot.Backend != BackendRedis || cfg.Snapshot.TTL.D() != time.Hour {
		t.Errorf("Snapshot = %+v", cfg.Snapshot)
	}
	if cfg.Snapshot.Redis.Addr != "cache:6379" || cfg.Snapshot.Redis.DB != 2 {
		t.Errorf("Snapshot.Redis = %+v", cfg.Snapshot.Redis)
	}
	if cfg.Snapshot.Redis.Prefix != "routeagent:snapshot:" {
		t.Errorf("Snapshot.Redis.Prefix = %q", cfg.Snapshot.Redis.Prefix)
	}
	if len(cfg.Routes) != 2 || cfg.Routes[0].View != "home" || cfg.Routes[1].When != "" {
		t.Errorf("Routes = %+v", cfg.Routes)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), ConfigFileName))
	if err == nil {
		t.Fatal("expected error")
	}
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap fs.ErrNotExist: %v", err)
	}
	var e *rerrors.Error
	if !stderrors.As(err, &e) || e.Code != "E111" {
		t.Errorf("error = %v, want E111", err)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"server": `)

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E111") {
		t.Errorf("error = %v, want E111", err)
	}
}

func TestLoadFile_InvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"server": {"readTimeout": "soon"}}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

func TestApplyEnv(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"server": {"addr": ":9000", "title": "Docs"}, "snapshot": {"backend": "redis"}}`)

	t.Setenv("ROUTEAGENT_ADDR", ":7000")
	t.Setenv("ROUTEAGENT_LOG_LEVEL", "warn")
	t.Setenv("ROUTEAGENT_READ_TIMEOUT", "90s")
	t.Setenv("ROUTEAGENT_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("ROUTEAGENT_SNAPSHOT_BACKEND", "s3")
	t.Setenv("ROUTEAGENT_METRICS_ENABLED", "false")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("S3_BUCKET", "histories")
	t.Setenv("S3_USE_PATH_STYLE", "true")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":7000" {
		t.Errorf("env should override file addr, got %q", cfg.Server.Addr)
	}
	if cfg.Server.Title != "Docs" {
		t.Errorf("unset env should keep file title, got %q", cfg.Server.Title)
	}
	if cfg.Server.ReadTimeout.D() != 90*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.Server.ReadTimeout.D())
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("ROUTEAGENT_METRICS_ENABLED=false should disable metrics")
	}
	if cfg.Snapshot.Backend != BackendS3 || cfg.Snapshot.S3.Bucket != "histories" || !cfg.Snapshot.S3.UsePathStyle {
		t.Errorf("Snapshot = %+v", cfg.Snapshot)
	}
	if cfg.Snapshot.Redis.Addr != "redis:6380" {
		t.Errorf("Snapshot.Redis.Addr = %q", cfg.Snapshot.Redis.Addr)
	}
}

func TestApplyEnv_Malformed(t *testing.T) {
	t.Setenv("ROUTEAGENT_MAX_SESSIONS", "many")

	err := New().ApplyEnv()
	var e *rerrors.Error
	if !stderrors.As(err, &e) || e.Code != "E110" {
		t.Errorf("ApplyEnv = %v, want E110", err)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Server.Title = "Saved"
	cfg.Snapshot.S3.SecretAccessKey = "secret"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q", cfg.Path())
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "secret") {
		t.Error("secret access key must not be written to disk")
	}
	if !strings.Contains(string(data), `"pingInterval": "25s"`) {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Server.Title != "Saved" {
		t.Errorf("Title = %q", loaded.Server.Title)
	}

	loaded.Server.Title = "Again"
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := New().Save(); err == nil {
		t.Error("Save without a path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"zero write timeout", func(c *Config) { c.Server.WriteTimeout = 0 }, "server.writeTimeout"},
		{"ping not below read", func(c *Config) { c.Server.PingInterval = c.Server.ReadTimeout }, "server.pingInterval"},
		{"negative sessions", func(c *Config) { c.Server.MaxSessions = -1 }, "server.maxSessions"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
		{"unknown backend", func(c *Config) { c.Snapshot.Backend = "mongo" }, "snapshot.backend"},
		{"redis without addr", func(c *Config) {
			c.Snapshot.Backend = BackendRedis
			c.Snapshot.Redis.Addr = ""
		}, "snapshot.redis.addr"},
		{"s3 without bucket", func(c *Config) { c.Snapshot.Backend = BackendS3 }, "snapshot.s3.bucket"},
		{"rule without view", func(c *Config) { c.Routes = []routing.Rule{{When: "true"}} }, "routes[0].view"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			var e *rerrors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("Validate = %v, want *errors.Error", err)
			}
			if e.Code != "E110" || e.Field != tt.field {
				t.Errorf("got %s on %q, want E110 on %q", e.Code, e.Field, tt.field)
			}
		})
	}
}

func TestValidate_RouteExpressions(t *testing.T) {
	cfg := New()
	cfg.Routes = []routing.Rule{
		{When: "path == '/'", View: "home"},
		{When: "path ==", View: "broken"},
	}

	err := cfg.Validate()
	var e *rerrors.Error
	if !stderrors.As(err, &e) || e.Code != "E112" || e.Field != "routes[1].when" {
		t.Errorf("Validate = %v, want E112 on routes[1].when", err)
	}

	cfg.Routes[1].When = "size(segments)"
	if err := cfg.Validate(); err == nil {
		t.Error("non-bool expression should fail validation")
	}

	cfg.Routes = cfg.Routes[:1]
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSnapshotDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{}`)
	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.SnapshotDir(); got != filepath.Join(tmpDir, DefaultSnapshotDir) {
		t.Errorf("SnapshotDir() = %q", got)
	}

	cfg.Snapshot.Dir = "/var/lib/routeagent"
	if got := cfg.SnapshotDir(); got != "/var/lib/routeagent" {
		t.Errorf("SnapshotDir() = %q", got)
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(tmpDir) {
		t.Error("Exists should be false for empty directory")
	}
	writeConfig(t, tmpDir, "{}")
	if !Exists(tmpDir) {
		t.Error("Exists should be true after creating config")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nestedDir, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := FindProjectRoot(nestedDir); !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("FindProjectRoot without config = %v, want not-exist", err)
	}

	writeConfig(t, tmpDir, "{}")

	for _, start := range []string{nestedDir, filepath.Join(tmpDir, "a"), tmpDir} {
		root, err := FindProjectRoot(start)
		if err != nil {
			t.Fatalf("FindProjectRoot(%q): %v", start, err)
		}
		if root != tmpDir {
			t.Errorf("FindProjectRoot(%q) = %q, want %q", start, root, tmpDir)
		}
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatal(err)
	}
	if d.D() != 90*time.Second {
		t.Errorf("D() = %v", d.D())
	}
	out, _ := d.MarshalText()
	if string(out) != "1m30s" {
		t.Errorf("MarshalText = %s", out)
	}
	if err := d.UnmarshalText([]byte("ninety")); err == nil {
		t.Error("expected parse error")
	}
}
