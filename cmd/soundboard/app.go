package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"soundboard-gateway/config"
	"soundboard-gateway/control"
	"soundboard-gateway/middleware/ratelimit"
	"soundboard-gateway/middleware/ratelimit/domain"
	"soundboard-gateway/middleware/ratelimit/infra"
	"soundboard-gateway/playback"
	"soundboard-gateway/recency"
	"soundboard-gateway/resolver"
	"soundboard-gateway/server"

	"github.com/dustin/go-humanize"
	"github.com/redis/go-redis/v9"
)

// app reúne os componentes montados a partir da configuração.
type app struct {
	cfg config.Config

	quotas   *infra.WindowStore
	throttle *infra.Store
	recents  *recency.Store
	engine   *playback.Engine
	router   *server.Router
	handler  http.Handler

	toggle  *control.FileToggle
	closers []func() error
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, rdb.Close)
	}

	persister, err := a.openPersister(rdb)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.recents = recency.New(ctx, recency.Options{
		Capacity:  cfg.Recency.Capacity,
		Persister: persister,
	})

	var stats domain.StatsStore
	switch cfg.Stats.Backend {
	case config.BackendRedis:
		stats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL.Duration),
			infra.WithStatsBucket(cfg.Stats.Bucket),
			infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
		)
	default:
		stats = infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.Stats.TrackKeys))
	}

	a.quotas = infra.NewWindowStore(
		cfg.RateLimit.Policy(),
		infra.WithEnabled(cfg.RateLimit.Enabled),
		infra.WithSweepEvery(cfg.RateLimit.SweepEvery.Duration),
	)

	a.throttle = infra.NewStore(cfg.Media.FetchRPS, cfg.Media.FetchBurst)
	pages := resolver.NewPageResolver(
		&http.Client{Timeout: cfg.Media.FetchTimeout.Duration},
		resolver.WithThrottle(a.throttle),
		resolver.WithMaxPage(cfg.Media.MaxPageBytes),
	)

	backend := playback.NewExecBackend(&http.Client{Timeout: cfg.Player.DownloadTimeout.Duration}, cfg.Player.Command)
	backend.MaxDownload = cfg.Player.MaxDownloadBytes
	backend.TempDir = cfg.Player.TempDir
	a.engine = playback.NewEngine(backend)

	a.router = server.NewRouter(server.Options{
		Player:              a.engine,
		Recents:             a.recents,
		Quotas:              a.quotas,
		Locator:             resolver.Locator{BaseURL: cfg.Media.BaseURL},
		Pages:               pages,
		Stats:               stats,
		AddRateLimitHeaders: cfg.RateLimit.AddHeaders,
		AccessLog:           cfg.Server.AccessLog,
	})
	a.handler = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.Server.ConcurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.Server.ConcurrencyTimeout.Duration,
	})(a.router)

	a.subscribeLoggers()
	return a, nil
}

func (a *app) openPersister(rdb *redis.Client) (recency.Persister, error) {
	switch a.cfg.Recency.Backend {
	case config.BackendFile:
		return recency.NewFilePersister(a.cfg.Recency.Path), nil
	case config.BackendSQLite:
		p, err := recency.OpenSQLite(a.cfg.Recency.Path)
		if err != nil {
			return nil, fmt.Errorf("open recent db: %w", err)
		}
		a.closers = append(a.closers, p.Close)
		return p, nil
	case config.BackendRedis:
		return recency.NewRedisPersister(rdb, a.cfg.Recency.RedisKey), nil
	default:
		return nil, nil
	}
}

// subscribeLoggers registra observadores que logam as mudanças de cada componente.
func (a *app) subscribeLoggers() {
	a.quotas.Subscribe(func(c domain.QuotaChange) {
		if c.Key == "" {
			log.Printf("QUOTA: enabled=%v", c.Enabled)
			return
		}
		log.Printf("QUOTA: %s used %d/%d", c.Key, c.Used, c.Limit)
	})
	a.recents.Subscribe(func(it recency.Item) {
		log.Printf("RECENT: %s (%s)", it.Filename, it.Color)
	})
	a.engine.Subscribe(func(t playback.Transition) {
		if t.Err == nil {
			log.Printf("PLAYBACK: %s %s -> %s", t.Session, t.From, t.To)
		}
	})
}

// Start liga os janitors e o interruptor da cota. Param com o ctx.
func (a *app) Start(ctx context.Context) error {
	a.quotas.StartJanitor(ctx)
	a.throttle.StartJanitor(ctx)

	if path := a.cfg.RateLimit.ToggleFile; path != "" {
		t, err := control.WatchToggle(ctx, path, a.cfg.RateLimit.Enabled, a.quotas.SetEnabled)
		if err != nil {
			return fmt.Errorf("watch toggle: %w", err)
		}
		a.toggle = t
	}
	return nil
}

func (a *app) Handler() http.Handler { return a.handler }

func (a *app) Close() {
	if a.toggle != nil {
		_ = a.toggle.Close()
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			log.Printf("PLAYBACK: close: %v", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func (a *app) logSummary() {
	c := a.cfg
	log.Printf("rate: enabled=%v max=%d window=%s sweepEvery=%s toggleFile=%q",
		a.quotas.Enabled(), c.RateLimit.MaxRequests, c.RateLimit.Window.Duration, c.RateLimit.SweepEvery.Duration, c.RateLimit.ToggleFile)
	log.Printf("recent: backend=%s capacity=%s loaded=%d", c.Recency.Backend, humanize.Comma(int64(c.Recency.Capacity)), a.recents.Snapshot().Count)
	log.Printf("media: base=%s fetchRPS=%.3f burst=%d maxPage=%s", c.Media.BaseURL, a.throttle.RPS(), a.throttle.Burst(), humanize.Bytes(uint64(c.Media.MaxPageBytes)))
	log.Printf("player: %v maxDownload=%s", c.Player.Command, humanize.Bytes(uint64(c.Player.MaxDownloadBytes)))
	log.Printf("stats: backend=%s trackKeys=%v", c.Stats.Backend, c.Stats.TrackKeys)
	log.Printf("concurrency: max=%d acquireTimeout=%s", c.Server.ConcurrencyMax, c.Server.ConcurrencyTimeout.Duration)
}
