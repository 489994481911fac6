package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"suspension-gateway/middleware/ratelimit/application"
	"suspension-gateway/middleware/ratelimit/domain"

	"github.com/charmbracelet/log"
)

type KeyFunc func(r *http.Request) string

// RejectFunc é chamada quando a cota do cliente estoura.
// Ela é responsável por escrever a resposta.
type RejectFunc func(w http.ResponseWriter, r *http.Request, key string, dec domain.Decision)

type Options struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	// OnReject substitui a resposta padrão (texto + RejectStatus).
	// No gateway é o ExceededHandler, que suspende o cliente.
	OnReject RejectFunc
	Logger   *log.Logger
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware aplica a cota por cliente (token bucket).
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = application.DefaultRetryAfter
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	logger := loggerOrDiscard(opts.Logger)

	svc := application.Service{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(domain.Key(key))
			outcome := domain.OutcomeAllowed
			if !dec.Allowed {
				outcome = domain.OutcomeDenied
			}
			recordStats(r, opts.Stats, logger, key, outcome)

			if !dec.Allowed {
				if opts.OnReject != nil {
					opts.OnReject(w, r, key, dec)
					return
				}
				w.Header().Set("Retry-After", formatInt(int(dec.RetryAfter.Seconds())))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// recordStats é best-effort: erro vira log, nunca muda a resposta.
func recordStats(r *http.Request, stats domain.StatsStore, logger *log.Logger, key string, outcome domain.Outcome) {
	if stats == nil {
		return
	}
	err := stats.Record(r.Context(), domain.StatsEvent{
		Key:     domain.Key(key),
		Outcome: outcome,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      time.Now(),
	})
	if err != nil {
		logger.Warn("stats record failed", "err", err, "outcome", outcome)
	}
}
