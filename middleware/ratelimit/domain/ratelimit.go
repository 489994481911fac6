package domain

import "time"

// Key identifica o cliente: por padrão o IP, ou o valor de um header
// configurado. É a mesma chave para cota, suspensão e whitelist.
type Key string

// Limiter decide se o cliente ainda tem cota agora.
// A infra usa token bucket (golang.org/x/time/rate).
type Limiter interface {
	Allow() bool
}

// LimiterStore devolve o limiter de cada cliente, criando sob demanda.
type LimiterStore interface {
	Get(Key) Limiter
}

// Decision é o resultado da checagem de cota. Um deny não responde nada
// sozinho: quem decide a resposta é o RejectFunc (no gateway, a suspensão).
type Decision struct {
	Allowed bool
	// RetryAfter é a recomendação de espera quando Allowed=false; 0 se não houver.
	RetryAfter time.Duration
}
