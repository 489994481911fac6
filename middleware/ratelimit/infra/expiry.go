package infra

import (
	"sync"
	"time"

	"suspension-gateway/middleware/ratelimit/domain"
)

// ExpiryScheduler mantém no máximo uma tarefa de expiração por chave.
//
// Reagendar para a mesma chave cancela a tarefa anterior; cancelar uma
// chave nunca afeta as tarefas de outros clientes.
type ExpiryScheduler struct {
	mu    sync.Mutex
	clock domain.Clock
	tasks map[string]*expiryTask
}

type expiryTask struct {
	timer domain.Timer
}

var _ domain.ExpiryScheduler = (*ExpiryScheduler)(nil)

func NewExpiryScheduler(clock domain.Clock) *ExpiryScheduler {
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &ExpiryScheduler{
		clock: clock,
		tasks: make(map[string]*expiryTask),
	}
}

func (s *ExpiryScheduler) Schedule(key domain.Key, after time.Duration, fire func()) {
	k := string(key)
	t := &expiryTask{}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[k]; ok {
		old.timer.Stop()
	}
	t.timer = s.clock.AfterFunc(after, func() {
		s.mu.Lock()
		current := s.tasks[k] == t
		if current {
			delete(s.tasks, k)
		}
		s.mu.Unlock()

		// uma tarefa substituída que já estava disparando não executa
		if current {
			fire()
		}
	})
	s.tasks[k] = t
}

// Cancel retorna true se havia tarefa pendente e ela foi parada a tempo.
func (s *ExpiryScheduler) Cancel(key domain.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[string(key)]
	if !ok {
		return false
	}
	delete(s.tasks, string(key))
	return t.timer.Stop()
}

func (s *ExpiryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancela todas as tarefas pendentes (shutdown).
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, k)
	}
}
