package ratelimit

import (
	"context"
	"sync"

	"suspension-gateway/middleware/ratelimit/domain"
)

type sessionSlotKey struct{}

// sessionSlot é o "request.state" mutável: o Guard coloca um slot vazio no
// contexto e o handler de baixo pode preenchê-lo com BindSession.
type sessionSlot struct {
	mu   sync.Mutex
	sess domain.Session
}

func withSessionSlot(ctx context.Context) (context.Context, *sessionSlot) {
	slot := &sessionSlot{}
	return context.WithValue(ctx, sessionSlotKey{}, slot), slot
}

func (s *sessionSlot) get() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// BindSession associa uma sessão ao request atual para que o Guard possa
// fechá-la se o request passar do tempo máximo.
// Retorna false se o request não passou pelo Guard.
func BindSession(ctx context.Context, sess domain.Session) bool {
	slot, ok := ctx.Value(sessionSlotKey{}).(*sessionSlot)
	if !ok {
		return false
	}
	slot.mu.Lock()
	slot.sess = sess
	slot.mu.Unlock()
	return true
}
