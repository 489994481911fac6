package ratelimit

import (
	"net/http"

	"suspension-gateway/middleware/ratelimit/application"
	"suspension-gateway/middleware/ratelimit/domain"

	"github.com/charmbracelet/log"
)

// ExceededHandler transforma um estouro de cota em suspensão do cliente.
//
// Cliente já suspenso (e fora da whitelist) recebe "IP is suspended" sem
// mudança de estado; os demais são suspensos e recebem "Rate limit exceeded".
// As duas respostas são 429.
func ExceededHandler(svc application.SuspensionService, logger *log.Logger) RejectFunc {
	logger = loggerOrDiscard(logger)

	return func(w http.ResponseWriter, r *http.Request, key string, _ domain.Decision) {
		res := svc.Exceeded(domain.Key(key))
		if res.Verdict == domain.VerdictSuspended {
			logger.Info("suspended client over quota", "client", key)
			writeTooMany(w, MsgSuspended, res.RetryAfter)
			return
		}

		logger.Warn("rate limit exceeded, client suspended", "client", key, "period", res.RetryAfter, "path", r.URL.Path)
		writeTooMany(w, MsgExceeded, res.RetryAfter)
	}
}
