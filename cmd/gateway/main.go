package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"suspension-gateway/middleware/ratelimit"
	"suspension-gateway/middleware/ratelimit/application"
	"suspension-gateway/middleware/ratelimit/domain"
	"suspension-gateway/middleware/ratelimit/infra"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Prefix:          "gateway",
	})

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("error loading .env", "err", err)
	}

	cfg, err := readConfig(logger)
	if err != nil {
		logger.Fatal("config error", "err", err)
	}
	if cfg.debug {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("gateway stopped", "err", err)
	}
}

// gateway guarda os componentes com estado do processo. Tudo é criado uma
// vez aqui e injetado nos middlewares; nada é global.
type gateway struct {
	suspensions *infra.SuspensionStore
	expiry      *infra.ExpiryScheduler
	limiter     *infra.Store
	pool        *infra.ChanPool
	whitelist   *infra.Whitelist
	services    int
	handler     http.Handler
	closers     []func()
}

func (g *gateway) health() healthReport {
	rep := healthReport{
		Status:        "ok",
		Suspended:     g.suspensions.Len(),
		PendingExpiry: g.expiry.Pending(),
		Services:      g.services,
	}
	if g.pool != nil {
		rep.InFlight = g.pool.InUse()
	}
	return rep
}

func (g *gateway) Close() {
	g.expiry.Stop()
	for i := len(g.closers) - 1; i >= 0; i-- {
		g.closers[i]()
	}
}

// newGateway monta a cadeia completa:
// Recover -> CORS -> Guard -> cota (+ suspensão) -> concorrência -> rotas.
func newGateway(cfg config, logger *log.Logger) (*gateway, error) {
	var upstream *url.URL
	if cfg.upstreamURL != "" {
		u, err := url.Parse(cfg.upstreamURL)
		if err != nil {
			return nil, fmt.Errorf("invalid UPSTREAM_URL: %w", err)
		}
		upstream = u
	}

	gw := &gateway{
		whitelist: infra.NewWhitelist(cfg.whitelist...),
		expiry:    infra.NewExpiryScheduler(domain.SystemClock()),
		limiter:   infra.NewQuotaStore(cfg.quota),
		services:  len(cfg.services),
	}
	gw.suspensions = infra.NewSuspensionStore(infra.WithWhitelist(gw.whitelist))
	if cfg.concurrencyMax > 0 {
		gw.pool = infra.NewChanPool(cfg.concurrencyMax)
	}

	suspensions := application.SuspensionService{
		Store:  gw.suspensions,
		Expiry: gw.expiry,
		Period: cfg.suspensionPeriod,
	}

	var sinks infra.MultiStats
	if cfg.rateStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.rateStatsRedisAddr,
			Password: cfg.rateStatsRedisPassword,
			DB:       cfg.rateStatsRedisDB,
		})
		gw.closers = append(gw.closers, func() { _ = rdb.Close() })

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			gw.Close()
			return nil, fmt.Errorf("redis stats ping: %w", err)
		}

		sinks = append(sinks, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		))
	}

	var metrics http.Handler
	if cfg.metricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom, err := infra.NewPrometheusStats(reg)
		if err != nil {
			gw.Close()
			return nil, err
		}
		sinks = append(sinks, prom)
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	var stats domain.StatsStore
	if len(sinks) > 0 {
		stats = sinks
	}

	mux := newRouter(routerDeps{
		services:    cfg.services,
		upstream:    upstream,
		state:       gw,
		metrics:     metrics,
		metricsPath: cfg.metricsPath,
		logger:      logger,
	})

	keyFn := ratelimit.DefaultKeyFunc(cfg.rateKeyHeader, cfg.trustXFF)

	h := http.Handler(mux)
	if gw.pool != nil {
		h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Pool:           gw.pool,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.concurrencyTimeout,
			Logger:         logger,
		})(h)
	}
	if cfg.rateEnabled {
		h = ratelimit.Middleware(ratelimit.Options{
			Store:               gw.limiter,
			Stats:               stats,
			KeyFn:               keyFn,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
			OnReject:            ratelimit.ExceededHandler(suspensions, logger),
			Logger:              logger,
		})(h)
	}
	h = ratelimit.Guard(ratelimit.GuardOptions{
		Suspensions:      suspensions,
		KeyFn:            keyFn,
		MaxConnectionAge: cfg.maxConnectionAge,
		Stats:            stats,
		Logger:           logger,
	})(h)
	h = ratelimit.CORS(cfg.origins)(h)
	gw.handler = ratelimit.Recover(logger)(h)

	return gw, nil
}

func run(cfg config, logger *log.Logger) error {
	gw, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}
	defer gw.Close()

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           gw.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return infra.RunJanitor(gctx, gw.limiter.CleanupEvery(), gw.limiter.Cleanup, func() {
			if n := gw.suspensions.Sweep(); n > 0 {
				logger.Debug("swept expired suspensions", "count", n)
			}
		})
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("gateway listening", "addr", cfg.listenAddr, "upstream", cfg.upstreamURL, "services", len(cfg.services))
	logger.Info("rate", "enabled", cfg.rateEnabled, "quota", cfg.quota.String(), "suspension", cfg.suspensionPeriod, "whitelist", gw.whitelist.Keys(), "trustXFF", cfg.trustXFF)
	logger.Info("rate-stats", "enabled", cfg.rateStatsEnabled, "redisAddr", cfg.rateStatsRedisAddr, "bucket", cfg.rateStatsBucket, "ttl", cfg.rateStatsTTL, "metrics", cfg.metricsEnabled)
	logger.Info("concurrency", "max", cfg.concurrencyMax, "acquireTimeout", cfg.concurrencyTimeout, "maxConnectionAge", cfg.maxConnectionAge)

	return g.Wait()
}
