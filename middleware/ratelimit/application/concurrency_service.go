package application

import (
	"context"
	"errors"
	"time"

	"suspension-gateway/middleware/ratelimit/domain"
)

// ErrNoSlot indica que todas as vagas para os upstreams estavam ocupadas
// durante o AcquireTimeout.
var ErrNoSlot = errors.New("no upstream slot available")

// ConcurrencyService limita quantos requests são encaminhados ao mesmo tempo,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire espera por uma vaga. Com AcquireTimeout <= 0 espera até ctx encerrar.
//
// Erros: ErrNoSlot quando o timeout estoura; ctx.Err() quando o próprio
// cliente desistiu antes (nesse caso não há a quem responder).
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSlot
}
