package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"suspension-gateway/middleware/ratelimit"
	"suspension-gateway/middleware/ratelimit/application"
	"suspension-gateway/middleware/ratelimit/infra"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Exemplo: Guard + cota + suspensão direto no seu webserver (sem proxy)
	logger := log.NewWithOptions(os.Stdout, log.Options{ReportTimestamp: true, Prefix: "example"})

	quota, err := infra.ParseQuota("5/minute")
	if err != nil {
		logger.Fatal("quota", "err", err)
	}
	store := infra.NewQuotaStore(quota)
	expiry := infra.NewExpiryScheduler(nil)
	defer expiry.Stop()

	suspensions := application.SuspensionService{
		Store:  infra.NewSuspensionStore(infra.WithWhitelist(infra.NewWhitelist("127.0.0.1", "::1"))),
		Expiry: expiry,
		Period: 30 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() { _ = infra.RunJanitor(ctx, store.CleanupEvery(), store.Cleanup) }()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	// /visits usa uma conexão dedicada do Redis ligada ao request. O bind é
	// ilustrativo: aqui o handler fecha a conexão antes de responder, e o
	// fechamento do Guard (request acima de MaxConnectionAge) só tem efeito
	// quando o handler deixa a sessão aberta, como numa stream.
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()

		mux.HandleFunc("GET /visits", func(w http.ResponseWriter, r *http.Request) {
			conn := rdb.Conn()
			sess := newOnceSession(conn)
			ratelimit.BindSession(r.Context(), sess)
			defer sess.Close()

			n, err := conn.Incr(r.Context(), "example:visits").Result()
			if err != nil {
				logger.Error("redis incr", "err", err)
				ratelimit.WriteDetail(w, http.StatusBadGateway, ratelimit.MsgBadGateway)
				return
			}
			ratelimit.WriteDetail(w, http.StatusOK, "visits: "+strconv.FormatInt(n, 10))
		})
	}

	h := http.Handler(mux)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50, Logger: logger})(h)
	h = ratelimit.Middleware(ratelimit.Options{
		Store:               store,
		KeyHeader:           "X-Api-Key", // ou vazio para usar IP
		TrustXForwardedFor:  true,
		AddRateLimitHeaders: true,
		OnReject:            ratelimit.ExceededHandler(suspensions, logger),
		Logger:              logger,
	})(h)
	h = ratelimit.Guard(ratelimit.GuardOptions{
		Suspensions:        suspensions,
		KeyHeader:          "X-Api-Key",
		TrustXForwardedFor: true,
		MaxConnectionAge:   10 * time.Second,
		Logger:             logger,
	})(h)
	h = ratelimit.Recover(logger)(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", "addr", addr, "quota", quota.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", "err", err)
	}
}
