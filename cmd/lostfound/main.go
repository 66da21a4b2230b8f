package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/erazemk/lostfound/internal/apiclient"
	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/config"
	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/jobs"
	"github.com/erazemk/lostfound/internal/logging"
	"github.com/erazemk/lostfound/internal/session"
	"github.com/erazemk/lostfound/internal/store"
	"github.com/erazemk/lostfound/internal/web"
)

type flags struct {
	config string
	dbPath string
	addr   string
	api    string
	log    string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("lostfound", flag.ContinueOnError)

	fs.StringVar(&f.config, "config", "", "")
	fs.StringVar(&f.config, "c", "", "")
	fs.StringVar(&f.dbPath, "db", "", "")
	fs.StringVar(&f.dbPath, "d", "", "")
	fs.StringVar(&f.addr, "addr", "", "")
	fs.StringVar(&f.addr, "a", "", "")
	fs.StringVar(&f.api, "api", "", "")
	fs.StringVar(&f.log, "log", "", "")
	fs.StringVar(&f.log, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: lostfound [flags]

Flags:
  -c, -config <path>      config file (default: ./config.yaml if present)
  -d, -db <path>          SQLite database path (default: lostfound.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
      -api <url>          Lost & Found API base URL (default: http://localhost:8000/api)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Every setting can also be given as a LOSTFOUND_* environment variable,
e.g. LOSTFOUND_API_BASEURL or LOSTFOUND_SESSION_BACKEND=redis.
`)
	}

	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return f, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return f, nil
}

// apply overrides config values with flags given on the command line.
func (f flags) apply(cfg *config.Config) {
	if f.dbPath != "" {
		cfg.Database.Path = f.dbPath
	}
	if f.addr != "" {
		cfg.HTTP.Addr = f.addr
	}
	if f.api != "" {
		cfg.API.BaseURL = f.api
	}
	if f.log != "" {
		cfg.Log.Path = f.log
	}
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := logging.Setup(logging.Options{
		Environment: cfg.Environment,
		Level:       cfg.Log.Level,
		Path:        cfg.Log.Path,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server error")
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := log.WithContext(context.Background())

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	log.Info().Str("path", cfg.Database.Path).Msg("database ready")

	secret := cfg.Security.Secret
	if secret == "" {
		if secret, err = store.GetMasterSecret(ctx, database); err != nil {
			return fmt.Errorf("loading master secret: %w", err)
		}
	}
	keys, err := auth.DeriveKeys([]byte(secret))
	if err != nil {
		return fmt.Errorf("deriving keys: %w", err)
	}
	sealer := auth.NewSealer(keys.Seal)

	checks := []web.Check{{Name: "database", Ping: database.PingContext}}

	var tokens session.TokenStore
	purgeDB := database
	switch cfg.Session.Backend {
	case "redis":
		client, err := store.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		rt := &store.RedisTokens{Client: client, Sealer: sealer, TTL: cfg.Session.TTL}
		tokens = rt
		checks = append(checks, web.Check{Name: "redis", Ping: rt.Ping})
		purgeDB = nil
		log.Info().Str("addr", cfg.Redis.Addr).Msg("session tokens in redis")
	default:
		tokens = &store.SQLiteTokens{DB: database, Sealer: sealer, TTL: cfg.Session.TTL}
	}

	client, err := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		return fmt.Errorf("configuring api client: %w", err)
	}

	handler, err := web.NewRouter(web.Options{
		Sessions:     &session.Manager{Tokens: tokens, Auth: &apiclient.AuthService{Client: client}},
		Items:        &apiclient.ItemService{Client: client},
		Keys:         keys,
		SessionTTL:   cfg.Session.TTL,
		SecureCookie: cfg.Session.SecureCookie || cfg.Production(),
		MaxUpload:    cfg.Upload.MaxBytes,
		MaxDimension: cfg.Upload.MaxDimension,
		Checks:       checks,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	scheduler := jobs.NewScheduler(purgeDB, log)
	if err := scheduler.Start(cfg.Jobs.PurgeSchedule); err != nil {
		return fmt.Errorf("starting jobs: %w", err)
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.HTTP.Addr).
		Str("api", cfg.API.BaseURL).
		Str("sessions", cfg.Session.Backend).
		Msg("server started")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info().Msg("server stopped, closing database")
	return nil
}
