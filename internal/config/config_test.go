package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kiai-dev/kiai/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %q, want %q", cfg.ServerURL, DefaultServerURL)
	}
	if cfg.KeepAliveInterval() != time.Second {
		t.Errorf("KeepAliveInterval() = %v, want 1s", cfg.KeepAliveInterval())
	}
	if cfg.Maps.Index != DefaultMapIndex {
		t.Errorf("Maps.Index = %q, want %q", cfg.Maps.Index, DefaultMapIndex)
	}
	if cfg.HasMirror() {
		t.Error("HasMirror() = true for defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if errors.CodeOf(err) != errors.CodeConfigNotFound {
		t.Errorf("Load() missing file error = %v, want %s", err, errors.CodeConfigNotFound)
	}

	configJSON := `{
  "server_url": "ws://127.0.0.1:7270/ws",
  "keep_alive": "2s",
  "account": {
    "username": "rin",
    "password": "ignored"
  },
  "maps": {
    "dir": "songs",
    "mirror": {
      "bucket": "kiai-maps"
    }
  },
  "log": {
    "format": "json"
  }
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerURL != "ws://127.0.0.1:7270/ws" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.KeepAliveInterval() != 2*time.Second {
		t.Errorf("KeepAliveInterval() = %v, want 2s", cfg.KeepAliveInterval())
	}
	if cfg.Account.Username != "rin" {
		t.Errorf("Account.Username = %q, want rin", cfg.Account.Username)
	}
	if cfg.Account.Password != "" {
		t.Error("password must not be read from kiai.json")
	}
	if cfg.Maps.Index != DefaultMapIndex {
		t.Errorf("Maps.Index = %q, want default", cfg.Maps.Index)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !cfg.HasMirror() || cfg.Maps.Mirror.Region != "us-east-1" {
		t.Errorf("Mirror = %+v", cfg.Maps.Mirror)
	}
	if got, want := cfg.MapDirPath(), filepath.Join(tmpDir, "songs"); got != want {
		t.Errorf("MapDirPath() = %q, want %q", got, want)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(tmpDir)
	if errors.CodeOf(err) != errors.CodeConfigInvalid {
		t.Errorf("Load() error = %v, want %s", err, errors.CodeConfigInvalid)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(map[string]string{
		"KIAI_SERVER_URL":    "wss://staging.kiai.gg/ws",
		"KIAI_USERNAME":      "ayu",
		"KIAI_PASSWORD":      "hunter2",
		"KIAI_MIRROR_BUCKET": "mirror",
		"KIAI_LOG_LEVEL":     "debug",
	})
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.ServerURL != "wss://staging.kiai.gg/ws" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Account.Username != "ayu" || cfg.Account.Password != "hunter2" {
		t.Errorf("Account = %+v", cfg.Account)
	}
	if cfg.Maps.Mirror.Bucket != "mirror" {
		t.Errorf("Mirror.Bucket = %q", cfg.Maps.Mirror.Bucket)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Maps.Dir != DefaultMapDir {
		t.Errorf("unset variables must keep defaults, Maps.Dir = %q", cfg.Maps.Dir)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(map[string]string{"KIAI_PROTOCOL_VERSION": "not-a-number"})
	if errors.CodeOf(err) != errors.CodeConfigEnv {
		t.Errorf("ApplyEnv() error = %v, want %s", err, errors.CodeConfigEnv)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"http scheme", func(c *Config) { c.ServerURL = "http://example.com" }, "server_url"},
		{"missing host", func(c *Config) { c.ServerURL = "ws://" }, "server_url"},
		{"bad keep alive", func(c *Config) { c.KeepAlive = "soon" }, "keep_alive"},
		{"zero keep alive", func(c *Config) { c.KeepAlive = "0s" }, "keep_alive"},
		{"negative login timeout", func(c *Config) { c.LoginTimeout = "-1s" }, "login_timeout"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			ke, ok := err.(*errors.KiaiError)
			if !ok {
				t.Fatalf("Validate() error type = %T", err)
			}
			if !strings.Contains(ke.Detail, tt.wantErr) {
				t.Errorf("Detail = %q, want mention of %q", ke.Detail, tt.wantErr)
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Account.Username = "rin"
	cfg.Account.Password = "secret"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("SaveTo() wrote the password")
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("SaveTo() should end with newline")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Account.Username != "rin" {
		t.Errorf("Account.Username = %q", loaded.Account.Username)
	}
	if loaded.Path() != path {
		t.Errorf("Path() = %q, want %q", loaded.Path(), path)
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := New().SaveTo(filepath.Join(root, ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	got, err := FindRoot(nested)
	if err != nil {
		t.Fatalf("FindRoot() error = %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindRoot() = %q, want %q", got, want)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists() mismatch")
	}
}
