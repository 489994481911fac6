package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"suspension-gateway/middleware/ratelimit/application"
	"suspension-gateway/middleware/ratelimit/domain"
	"suspension-gateway/middleware/ratelimit/infra"

	"github.com/charmbracelet/log"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// Pool permite compartilhar o semáforo (ex: para expor InUse no /healthz).
	// Se nil, um ChanPool de tamanho Max é criado.
	Pool   domain.SlotPool
	Logger *log.Logger
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 && opts.Pool == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Pool == nil {
		opts.Pool = infra.NewChanPool(opts.Max)
	}

	logger := loggerOrDiscard(opts.Logger)
	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if errors.Is(err, application.ErrNoSlot) {
				logger.Warn("no upstream slot", "path", r.URL.Path)
				WriteDetail(w, opts.RejectStatus, http.StatusText(opts.RejectStatus))
				return
			}
			if err != nil {
				// cliente desconectou enquanto esperava
				logger.Debug("client gone while waiting for slot", "err", err)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
