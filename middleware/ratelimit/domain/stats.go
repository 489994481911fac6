package domain

import (
	"context"
	"time"
)

// Outcome é o destino final de um request do ponto de vista da política.
type Outcome string

const (
	OutcomeAllowed   Outcome = "allowed"
	OutcomeDenied    Outcome = "denied"
	OutcomeSuspended Outcome = "suspended"
	OutcomeForbidden Outcome = "forbidden"
)

// StatsEvent representa um evento de decisão do rate limit / suspensão.
//
// Ele é "agnóstico de HTTP": Method/Path são strings genéricas
// e podem ser usadas para web, gRPC, etc.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Path sem controle pode
// explodir o número de séries/chaves em uma base como Redis/Prometheus).
type StatsEvent struct {
	Key     Key
	Outcome Outcome

	Method string
	Path   string

	At time.Time
}

// Allowed informa se o request seguiu para o próximo handler.
func (e StatsEvent) Allowed() bool { return e.Outcome == OutcomeAllowed }

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// O middleware deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
