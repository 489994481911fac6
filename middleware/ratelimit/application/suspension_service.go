package application

import (
	"time"

	"suspension-gateway/middleware/ratelimit/domain"
)

// DefaultSuspensionPeriod é quanto tempo um cliente fica suspenso depois de
// estourar a cota.
const DefaultSuspensionPeriod = 200 * time.Second

// Result é a decisão da política para um request.
// RetryAfter só é preenchido quando o cliente está suspenso.
type Result struct {
	Verdict    domain.Verdict
	RetryAfter time.Duration
	Rule       PathRule
}

// SuspensionService junta o store de suspensões, as tarefas de expiração e a
// lista de paths sensíveis. Não sabe nada sobre HTTP.
//
// Paths nil usa DefaultSensitivePaths; um slice vazio desliga a checagem.
type SuspensionService struct {
	Store  domain.SuspensionStore
	Expiry domain.ExpiryScheduler
	Period time.Duration
	Paths  []PathRule
}

func (s SuspensionService) period() time.Duration {
	if s.Period <= 0 {
		return DefaultSuspensionPeriod
	}
	return s.Period
}

func (s SuspensionService) paths() []PathRule {
	if s.Paths == nil {
		return DefaultSensitivePaths
	}
	return s.Paths
}

// Check é a decisão feita para todo request antes do roteamento.
//
// Cliente suspenso tem a contagem reiniciada (nova expiração a partir de
// agora). Cliente livre tem cancelada apenas a sua própria tarefa pendente.
func (s SuspensionService) Check(key domain.Key, uri string) Result {
	if rule, ok := MatchSensitive(s.paths(), uri); ok {
		return Result{Verdict: domain.VerdictForbidden, Rule: rule}
	}
	if s.Store == nil {
		return Result{Verdict: domain.VerdictAllow}
	}

	if entry, ok := s.Store.Rearm(key, s.period()); ok {
		s.scheduleExpiry(entry)
		return Result{Verdict: domain.VerdictSuspended, RetryAfter: s.period()}
	}

	if s.Expiry != nil {
		s.Expiry.Cancel(key)
	}
	return Result{Verdict: domain.VerdictAllow}
}

// Exceeded é chamado quando o limiter de cota rejeita o request.
// Cliente já suspenso não muda de estado; os demais começam a suspensão agora.
func (s SuspensionService) Exceeded(key domain.Key) Result {
	if s.Store == nil {
		return Result{Verdict: domain.VerdictExceeded}
	}
	if s.Store.IsSuspended(key) {
		return Result{Verdict: domain.VerdictSuspended, RetryAfter: s.period()}
	}

	s.suspend(key)
	return Result{Verdict: domain.VerdictExceeded, RetryAfter: s.period()}
}

func (s SuspensionService) suspend(key domain.Key) {
	s.scheduleExpiry(s.Store.Suspend(key, s.period()))
}

func (s SuspensionService) scheduleExpiry(entry domain.SuspensionEntry) {
	if s.Expiry == nil {
		return
	}
	store := s.Store
	s.Expiry.Schedule(entry.Key, s.period(), func() { store.Expire(entry) })
}
