package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http.addr = %q", cfg.HTTP.Addr)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("api.timeout = %v", cfg.API.Timeout)
	}
	if cfg.Session.Backend != "sqlite" || cfg.Session.TTL != 7*24*time.Hour {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Upload.MaxBytes != 5<<20 {
		t.Errorf("upload.maxbytes = %d", cfg.Upload.MaxBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "lostfound.yaml")
	yaml := `
environment: production
api:
  baseurl: https://api.example.com/api
  timeout: 5s
session:
  backend: redis
redis:
  addr: cache:6379
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOSTFOUND_REDIS_DB", "3")
	t.Setenv("LOSTFOUND_API_TIMEOUT", "2s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Production() {
		t.Error("expected production")
	}
	if cfg.API.BaseURL != "https://api.example.com/api" {
		t.Errorf("api.baseurl = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 2*time.Second {
		t.Errorf("env should override file: api.timeout = %v", cfg.API.Timeout)
	}
	if cfg.Session.Backend != "redis" || cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 3 {
		t.Errorf("unexpected redis settings: %+v %+v", cfg.Session, cfg.Redis)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LOSTFOUND_LOG_LEVEL=warn\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("LOSTFOUND_LOG_LEVEL") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		API:      APIConfig{BaseURL: ""},
		Session:  SessionConfig{Backend: "memcached"},
		Security: SecurityConfig{Secret: "short"},
		Database: DatabaseConfig{Path: "x.db"},
		Upload:   UploadConfig{MaxBytes: 1},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"api.baseurl", "session.backend", "session.ttl", "security.secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
