package main

import (
	"context"
	"fmt"
	"os"

	identity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/auditsink/logsink"
	"github.com/MrEthical07/goIdentity/auditsink/postgres"
	"github.com/MrEthical07/goIdentity/auditsink/redisstream"
	"github.com/MrEthical07/goIdentity/auditsink/sqlite"
	"github.com/MrEthical07/goIdentity/backend"
	"github.com/MrEthical07/goIdentity/backend/gotrue"
	"github.com/MrEthical07/goIdentity/backend/memory"
	"github.com/MrEthical07/goIdentity/profile"
	"github.com/MrEthical07/goIdentity/profile/pgdir"
	"github.com/MrEthical07/goIdentity/profile/rediscache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// env holds everything the walkthrough and the HTTP surface need.
type env struct {
	manager *identity.Manager
	memory  *memory.Backend // nil when talking to GoTrue
	userID  string
	stream  *redisstream.Sink
	closers []func()
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func wire(ctx context.Context, opts options, cfg identity.Config, log zerolog.Logger) (*env, error) {
	e := &env{}
	ok := false
	defer func() {
		if !ok {
			e.close()
		}
	}()

	rdb, err := openRedis(opts.redisAddr, log, e)
	if err != nil {
		return nil, err
	}

	client, err := openBackend(opts, e)
	if err != nil {
		return nil, err
	}

	var origin profile.Resolver = profile.NewDirectory(profile.Profile{
		ID:     e.userID,
		Name:   "Demo User",
		Email:  opts.email,
		Role:   profile.RoleManager,
		Active: true,
	})
	sinks := identity.MultiSink{logsink.New(log)}

	if opts.pgURL != "" {
		pool, err := pgdir.NewPool(ctx, opts.pgURL)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, pool.Close)
		origin = pgdir.New(pool)

		pg := postgres.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, pg)
		log.Info().Msg("profiles and audit events use postgres")
	}

	if opts.sqlitePath != "" {
		lite, err := sqlite.Open(ctx, opts.sqlitePath)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() { _ = lite.Close() })
		sinks = append(sinks, lite)
		log.Info().Str("path", opts.sqlitePath).Msg("audit events also go to sqlite")
	}

	e.stream = redisstream.New(rdb, "", 0)
	sinks = append(sinks, e.stream)

	m, err := identity.New().
		WithConfig(cfg).
		WithBackend(client).
		WithProfileResolver(rediscache.New(origin, rdb, "", 0)).
		WithAuditSink(sinks).
		WithLogger(log).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build manager: %w", err)
	}
	e.manager = m
	// Closing the manager drains audit events into the sinks, so it must run
	// before the stores close.
	e.closers = append(e.closers, m.Close)

	ok = true
	return e, nil
}

func openRedis(addr string, log zerolog.Logger, e *env) (redis.UniversalClient, error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		e.closers = append(e.closers, mr.Close)
		addr = mr.Addr()
		log.Info().Str("addr", addr).Msg("using miniredis")
	} else {
		log.Info().Str("addr", addr).Msg("using redis")
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	e.closers = append(e.closers, func() { _ = rdb.Close() })
	return rdb, nil
}

func openBackend(opts options, e *env) (backend.Client, error) {
	if opts.gotrueURL != "" {
		return gotrue.New(gotrue.Options{BaseURL: opts.gotrueURL, APIKey: opts.apiKey})
	}

	b, err := memory.New(memory.Options{Issuer: "goIdentity demo"})
	if err != nil {
		return nil, err
	}
	e.memory = b
	if e.userID, err = b.AddUser(opts.email, opts.password); err != nil {
		return nil, err
	}
	return b, nil
}
