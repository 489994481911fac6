package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock abstrai o relógio e os timers usados pela suspensão e pela cota.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer é o handle cancelável de uma tarefa atrasada.
type Timer interface {
	Stop() bool
}

// FromClockwork adapta um clockwork.Clock. Nos testes use um
// clockwork.FakeClock: os AfterFunc disparam em goroutine própria quando o
// teste chama Advance.
func FromClockwork(c clockwork.Clock) Clock { return clockworkClock{c: c} }

// SystemClock retorna o relógio real do processo.
func SystemClock() Clock { return FromClockwork(clockwork.NewRealClock()) }

type clockworkClock struct {
	c clockwork.Clock
}

func (k clockworkClock) Now() time.Time { return k.c.Now() }

func (k clockworkClock) AfterFunc(d time.Duration, f func()) Timer {
	return k.c.AfterFunc(d, f)
}
