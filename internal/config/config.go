// Package config loads settings from defaults, an optional YAML file, an
// optional .env file and LOSTFOUND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. LOSTFOUND_API_BASEURL.
const EnvPrefix = "LOSTFOUND"

type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Path string
}

type SessionConfig struct {
	// Backend is sqlite or redis.
	Backend      string
	TTL          time.Duration
	SecureCookie bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	// Secret overrides the master secret stored in the database.
	Secret string
}

type UploadConfig struct {
	MaxBytes     int64
	MaxDimension int
}

type JobsConfig struct {
	PurgeSchedule string
}

type LogConfig struct {
	Path  string
	Level string
}

// Config is the full application configuration.
type Config struct {
	Environment string
	HTTP        HTTPConfig
	API         APIConfig
	Database    DatabaseConfig
	Session     SessionConfig
	Redis       RedisConfig
	Security    SecurityConfig
	Upload      UploadConfig
	Jobs        JobsConfig
	Log         LogConfig
}

// Load reads the configuration. If path is empty, config.yaml is looked up
// in the working directory and ./config, and a missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readtimeout", "30s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "120s")

	v.SetDefault("api.baseurl", "http://localhost:8000/api")
	v.SetDefault("api.timeout", "15s")

	v.SetDefault("database.path", "lostfound.sqlite3")

	v.SetDefault("session.backend", "sqlite")
	v.SetDefault("session.ttl", "168h") // 7 days
	v.SetDefault("session.securecookie", false)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.secret", "")

	v.SetDefault("upload.maxbytes", 5<<20)
	v.SetDefault("upload.maxdimension", 1600)

	v.SetDefault("jobs.purgeschedule", "0 */15 * * * *")

	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "")
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.baseurl is required"))
	}
	if c.Session.Backend != "sqlite" && c.Session.Backend != "redis" {
		errs = append(errs, fmt.Errorf("session.backend must be sqlite or redis, got %q", c.Session.Backend))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Security.Secret != "" && len(c.Security.Secret) < 16 {
		errs = append(errs, errors.New("security.secret must be at least 16 bytes"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.maxbytes must be positive"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	return errors.Join(errs...)
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return c.Environment == "production"
}
