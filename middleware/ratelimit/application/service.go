package application

import (
	"time"

	"suspension-gateway/middleware/ratelimit/domain"
)

// DefaultRetryAfter é usado quando a cota estoura e nada melhor foi configurado.
const DefaultRetryAfter = 1 * time.Second

// Service concentra a regra de aplicação da cota por cliente.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Quem transforma um "deny" em suspensão é o SuspensionService.
type Service struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = DefaultRetryAfter
	}

	lim := s.Store.Get(key)
	if lim == nil || lim.Allow() {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: s.RetryAfter}
}
