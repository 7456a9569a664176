// Command identity-loadtest measures profile resolution through the Redis
// cache and full password login/logout cycles under concurrency.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	identity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/auditsink/redisstream"
	"github.com/MrEthical07/goIdentity/backend/memory"
	"github.com/MrEthical07/goIdentity/profile"
	"github.com/MrEthical07/goIdentity/profile/rediscache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const loadPassword = "load-test-password"

func main() {
	var (
		profiles    = flag.Int("profiles", 10000, "number of profiles to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		lookups     = flag.Int("lookups", 200000, "profile lookups in the resolve phase")
		logins      = flag.Int("logins", 2000, "login/logout cycles in the login phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gi:load", "profile cache key prefix")
	)
	flag.Parse()

	if *profiles <= 0 || *concurrency <= 0 || *lookups <= 0 || *logins <= 0 {
		fmt.Fprintln(os.Stderr, "profiles, concurrency, lookups, and logins must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	emails := make([]string, *profiles)
	seed := make([]profile.Profile, *profiles)
	for i := range seed {
		emails[i] = fmt.Sprintf("user-%d@load.test", i)
		seed[i] = profile.Profile{ID: fmt.Sprintf("u-%d", i), Email: emails[i], Role: profile.RoleUser, Active: true}
	}
	resolver := rediscache.New(profile.NewDirectory(seed...), client, *prefix, time.Hour)

	resolveStats := runResolvePhase(ctx, resolver, emails, *lookups, *concurrency)

	workers, err := newLoginWorkers(resolver, client, emails, *concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}
	loginStats := runLoginPhase(ctx, workers, *logins)

	var dropped, failed uint64
	for _, w := range workers {
		w.manager.Close()
		dropped += w.manager.AuditDropped()
		failed += w.manager.AuditFailed()
	}

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("login", loginStats)
	fmt.Printf("audit dropped: %d  sink failures: %d\n", dropped, failed)
}

func runResolvePhase(ctx context.Context, resolver profile.Resolver, emails []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := resolver.FindByEmail(ctx, emails[r.Intn(len(emails))])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// loginWorker owns one manager; a manager tracks a single client session.
type loginWorker struct {
	manager *identity.Manager
	email   string
}

func newLoginWorkers(resolver profile.Resolver, client redis.UniversalClient, emails []string, n int) ([]*loginWorker, error) {
	sink := redisstream.New(client, "gi:load:audit", 10_000)
	workers := make([]*loginWorker, 0, n)
	for i := 0; i < n; i++ {
		b, err := memory.New(memory.Options{SignInRate: rate.Inf})
		if err != nil {
			return nil, err
		}
		email := emails[i%len(emails)]
		if _, err := b.AddUser(email, loadPassword); err != nil {
			return nil, err
		}
		m, err := identity.New().
			WithBackend(b).
			WithProfileResolver(resolver).
			WithAuditSink(sink).
			WithMetricsEnabled(true).
			Build()
		if err != nil {
			return nil, err
		}
		if err := m.Start(context.Background()); err != nil {
			return nil, err
		}
		workers = append(workers, &loginWorker{manager: m, email: email})
	}
	return workers, nil
}

func runLoginPhase(ctx context.Context, workers []*loginWorker, ops int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for _, w := range workers {
		wg.Add(1)
		go func(w *loginWorker) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := w.manager.Login(ctx, w.email, loadPassword)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				_ = w.manager.Logout(ctx)

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
