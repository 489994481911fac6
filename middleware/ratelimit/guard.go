package ratelimit

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"suspension-gateway/middleware/ratelimit/application"
	"suspension-gateway/middleware/ratelimit/domain"

	"github.com/charmbracelet/log"
)

// DefaultMaxConnectionAge é o tempo a partir do qual a sessão ligada ao
// request é fechada à força depois da resposta.
const DefaultMaxConnectionAge = 600 * time.Second

type GuardOptions struct {
	Suspensions        application.SuspensionService
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
	// MaxConnectionAge < 0 desliga o fechamento forçado de sessão.
	MaxConnectionAge time.Duration
	Stats            domain.StatsStore
	Logger           *log.Logger
	// Now só existe para os testes medirem a duração com relógio manual.
	Now func() time.Time
}

// Guard é o middleware de decisão que roda antes do roteamento:
//
//  1. path sensível -> 405
//  2. cliente suspenso -> 429 e a contagem da suspensão recomeça
//  3. senão cancela a tarefa de expiração do próprio cliente e encaminha
//
// A duração do encaminhamento é medida; se passar de MaxConnectionAge a
// sessão associada via BindSession é fechada. Isso não aborta o request,
// só libera o recurso depois da resposta.
func Guard(opts GuardOptions) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.MaxConnectionAge == 0 {
		opts.MaxConnectionAge = DefaultMaxConnectionAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := loggerOrDiscard(opts.Logger)
	svc := opts.Suspensions

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			uri := policyTarget(r.URL)
			logger.Debug("request", "client", key, "method", r.Method, "uri", r.URL.RequestURI())

			res := svc.Check(domain.Key(key), uri)
			switch res.Verdict {
			case domain.VerdictForbidden:
				logger.Warn("sensitive path blocked", "client", key, "uri", uri, "marker", res.Rule.Marker)
				recordStats(r, opts.Stats, logger, key, domain.OutcomeForbidden)
				writeForbiddenPath(w)
				return
			case domain.VerdictSuspended:
				logger.Info("suspended client rejected", "client", key, "retry_after", res.RetryAfter)
				recordStats(r, opts.Stats, logger, key, domain.OutcomeSuspended)
				writeTooMany(w, MsgSuspended, res.RetryAfter)
				return
			}

			ctx, slot := withSessionSlot(r.Context())
			start := opts.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			elapsed := opts.Now().Sub(start)

			if opts.MaxConnectionAge > 0 && elapsed > opts.MaxConnectionAge {
				if sess := slot.get(); sess != nil {
					logger.Warn("request exceeded max connection age, closing session", "client", key, "elapsed", elapsed)
					if err := sess.Close(); err != nil {
						logger.Warn("session close failed", "client", key, "err", err)
					}
				}
			}
		})
	}
}

// policyTarget é o path decodificado mais a query decodificada. Os paths
// sensíveis são comparados nessa forma, então /%2Eenv ou config%73 também
// são bloqueados.
func policyTarget(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + unescapeLenient(u.RawQuery)
}

// unescapeLenient decodifica os %XX válidos e mantém o resto como está.
// url.QueryUnescape desiste da string inteira no primeiro escape inválido,
// o que deixaria "?a=%zz&b=%2Eenv" passar.
func unescapeLenient(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
