package ratelimit

import (
	"net/http"
	"runtime/debug"

	"github.com/charmbracelet/log"
)

// Recover captura panics dos handlers de baixo e responde 500 com uma
// mensagem genérica. O valor real vai só para o log.
func Recover(logger *log.Logger) func(next http.Handler) http.Handler {
	logger = loggerOrDiscard(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.Error("unhandled panic", "err", v, "method", r.Method, "path", r.URL.Path, "stack", string(debug.Stack()))
				WriteDetail(w, http.StatusInternalServerError, MsgInternal)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
