// Command identity-demo wires an identity manager to the bundled adapters and
// walks through the sign-in, MFA and password recovery flows.
//
// With no flags everything runs in process: the memory backend, a miniredis
// profile cache and a Redis stream audit log. -sqlite and -pg-url add durable
// audit sinks; -gotrue-url swaps the backend for a real GoTrue server.
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

	identity "github.com/MrEthical07/goIdentity"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
)

type options struct {
	configPath string
	redisAddr  string
	sqlitePath string
	pgURL      string
	gotrueURL  string
	apiKey     string
	email      string
	password   string
	listen     string
	verbose    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "TOML config file; defaults apply when empty")
	flag.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flag.StringVar(&opts.sqlitePath, "sqlite", "", "also write audit events to this SQLite file")
	flag.StringVar(&opts.pgURL, "pg-url", "", "PostgreSQL URL for profiles and audit events")
	flag.StringVar(&opts.gotrueURL, "gotrue-url", "", "GoTrue auth API root; the in-process backend is used when empty")
	flag.StringVar(&opts.apiKey, "apikey", "", "GoTrue API key")
	flag.StringVar(&opts.email, "email", "demo@example.com", "account used by the walkthrough")
	flag.StringVar(&opts.password, "password", "demo-password-1", "password of the walkthrough account")
	flag.StringVar(&opts.listen, "listen", "", "serve /metrics, /healthz and /audit on this address after the walkthrough")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	figure.NewFigure("goIdentity", "cybermedium", true).Print()
	fmt.Println()

	if err := run(opts, log); err != nil {
		log.Error().Err(err).Msg("demo failed")
		os.Exit(1)
	}
}

func run(opts options, log zerolog.Logger) error {
	cfg := identity.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := identity.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.Metrics.Enabled = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := wire(ctx, opts, cfg, log)
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.manager.Start(ctx); err != nil {
		return fmt.Errorf("start manager: %w", err)
	}

	if err := walkthrough(ctx, env, opts, log); err != nil {
		return err
	}

	if opts.listen == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              opts.listen,
		Handler:           newRouter(env),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", opts.listen).Msg("serving metrics; interrupt to stop")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
