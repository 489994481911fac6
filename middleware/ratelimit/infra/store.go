package infra

import (
	"context"
	"sync"
	"time"

	"suspension-gateway/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// Store é uma implementação de infra baseada em token-bucket (x/time/rate)
// com cache por chave e limpeza periódica de chaves inativas.
type Store struct {
	mu           sync.Mutex
	entries      map[string]*storeEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	clock        domain.Clock
}

type storeEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type StoreOption func(*Store)

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

// WithStoreClock troca o relógio usado para consumir tokens e medir inatividade.
func WithStoreClock(c domain.Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

func NewStore(rps float64, burst int, opts ...StoreOption) *Store {
	return newStore(rate.Limit(rps), burst, opts...)
}

// NewQuotaStore cria o store a partir de uma cota "N/unidade".
// O idle TTL padrão nunca fica menor que a janela da cota, senão um cliente
// voltaria com o balde cheio antes da janela acabar.
func NewQuotaStore(q Quota, opts ...StoreOption) *Store {
	s := newStore(q.Limit(), q.Burst(), opts...)
	if s.idleTTL < q.Per {
		s.idleTTL = q.Per
	}
	return s
}

func newStore(limit rate.Limit, burst int, opts ...StoreOption) *Store {
	s := &Store{
		entries:      make(map[string]*storeEntry),
		rps:          limit,
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		clock:        domain.SystemClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) RPS() float64                { return float64(s.rps) }
func (s *Store) Burst() int                  { return s.burst }
func (s *Store) CleanupEvery() time.Duration { return s.cleanupEvery }

// Get implementa domain.LimiterStore.
func (s *Store) Get(key domain.Key) domain.Limiter {
	return clockedLimiter{lim: s.GetString(string(key)), clock: s.clock}
}

func (s *Store) GetString(key string) *rate.Limiter {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &storeEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) Cleanup() {
	cutoff := s.clock.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// clockedLimiter consome tokens no instante do relógio do Store.
type clockedLimiter struct {
	lim   *rate.Limiter
	clock domain.Clock
}

func (c clockedLimiter) Allow() bool { return c.lim.AllowN(c.clock.Now(), 1) }

// RunJanitor executa as funções de limpeza a cada `every` até o ctx encerrar.
// Feito para rodar dentro de um errgroup; sempre retorna nil.
func RunJanitor(ctx context.Context, every time.Duration, sweeps ...func()) error {
	if every <= 0 || len(sweeps) == 0 {
		<-ctx.Done()
		return nil
	}

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			for _, sweep := range sweeps {
				sweep()
			}
		}
	}
}
