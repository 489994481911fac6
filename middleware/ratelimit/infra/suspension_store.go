package infra

import (
	"sync"
	"time"

	"suspension-gateway/middleware/ratelimit/domain"
)

// SuspensionStore é a tabela em memória cliente -> fim da suspensão.
//
// O estado vive só no processo: não é persistido e some no restart.
// Um deploy com várias instâncias precisaria de um store compartilhado.
type SuspensionStore struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	whitelist domain.Whitelist
	clock     domain.Clock
}

var _ domain.SuspensionStore = (*SuspensionStore)(nil)

type SuspensionOption func(*SuspensionStore)

func WithWhitelist(w domain.Whitelist) SuspensionOption {
	return func(s *SuspensionStore) { s.whitelist = w }
}

func WithSuspensionClock(c domain.Clock) SuspensionOption {
	return func(s *SuspensionStore) { s.clock = c }
}

func NewSuspensionStore(opts ...SuspensionOption) *SuspensionStore {
	s := &SuspensionStore{
		entries: make(map[string]time.Time),
		clock:   domain.SystemClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsSuspended é true se existe entrada para a chave e ela não está na whitelist.
func (s *SuspensionStore) IsSuspended(key domain.Key) bool {
	if s.whitelisted(key) {
		return false
	}
	return s.Has(key)
}

// Has informa só a presença da entrada, ignorando a whitelist.
func (s *SuspensionStore) Has(key domain.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[string(key)]
	return ok
}

// Suspend cria ou sobrescreve a entrada com now+period.
// period <= 0 não cria nada: nunca existe entrada já vencida.
func (s *SuspensionStore) Suspend(key domain.Key, period time.Duration) domain.SuspensionEntry {
	if period <= 0 {
		return domain.SuspensionEntry{Key: key}
	}
	expiresAt := s.clock.Now().Add(period)

	s.mu.Lock()
	s.entries[string(key)] = expiresAt
	s.mu.Unlock()

	return domain.SuspensionEntry{Key: key, ExpiresAt: expiresAt}
}

// Rearm recomeça a contagem (now+period) só se a entrada existe e a chave
// não está na whitelist. Checagem e escrita acontecem sob o mesmo lock.
func (s *SuspensionStore) Rearm(key domain.Key, period time.Duration) (domain.SuspensionEntry, bool) {
	if period <= 0 || s.whitelisted(key) {
		return domain.SuspensionEntry{}, false
	}
	expiresAt := s.clock.Now().Add(period)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[string(key)]; !ok {
		return domain.SuspensionEntry{}, false
	}
	s.entries[string(key)] = expiresAt
	return domain.SuspensionEntry{Key: key, ExpiresAt: expiresAt}, true
}

// Expire é o Release das tarefas de expiração: se a entrada foi renovada
// depois que a tarefa foi agendada, ela fica.
func (s *SuspensionStore) Expire(entry domain.SuspensionEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.entries[string(entry.Key)]
	if !ok || !at.Equal(entry.ExpiresAt) {
		return false
	}
	delete(s.entries, string(entry.Key))
	return true
}

// Release remove a entrada; se não existir, não faz nada.
func (s *SuspensionStore) Release(key domain.Key) {
	s.mu.Lock()
	delete(s.entries, string(key))
	s.mu.Unlock()
}

func (s *SuspensionStore) Entry(key domain.Key) (domain.SuspensionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.entries[string(key)]
	if !ok {
		return domain.SuspensionEntry{}, false
	}
	return domain.SuspensionEntry{Key: key, ExpiresAt: at}, true
}

func (s *SuspensionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep remove entradas vencidas que ficaram sem tarefa de expiração
// (ex: cliente da whitelist cuja tarefa foi cancelada no pass-through).
// Retorna quantas foram removidas.
func (s *SuspensionStore) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, at := range s.entries {
		if !now.Before(at) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

func (s *SuspensionStore) whitelisted(key domain.Key) bool {
	return s.whitelist != nil && s.whitelist.Contains(key)
}
