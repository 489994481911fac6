package infra

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"suspension-gateway/middleware/ratelimit/domain"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

// os AfterFunc do FakeClock rodam em goroutine própria
const fireWait = time.Second

func TestExpiryScheduler_FiresOnceAfterPeriod(t *testing.T) {
	clk := clockwork.NewFakeClockAt(epoch)
	s := NewExpiryScheduler(domain.FromClockwork(clk))

	var fired atomic.Int32
	s.Schedule("c", 200*time.Second, func() { fired.Add(1) })
	assert.Equal(t, 1, s.Pending())

	clk.Advance(199 * time.Second)
	assert.Equal(t, int32(0), fired.Load())

	clk.Advance(time.Second)
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, fireWait, time.Millisecond)
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, fireWait, time.Millisecond)

	clk.Advance(time.Hour)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

type firedLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *firedLog) add(id string) func() {
	return func() {
		l.mu.Lock()
		l.ids = append(l.ids, id)
		l.mu.Unlock()
	}
}

func (l *firedLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

func TestExpiryScheduler_RescheduleReplacesOwnTaskOnly(t *testing.T) {
	clk := clockwork.NewFakeClockAt(epoch)
	s := NewExpiryScheduler(domain.FromClockwork(clk))

	var log firedLog
	s.Schedule("a", 10*time.Second, log.add("a1"))
	s.Schedule("b", 10*time.Second, log.add("b"))
	clk.Advance(5 * time.Second)
	s.Schedule("a", 10*time.Second, log.add("a2"))

	clk.Advance(5 * time.Second)
	assert.Eventually(t, func() bool { return len(log.get()) == 1 }, fireWait, time.Millisecond)
	assert.Equal(t, []string{"b"}, log.get())

	clk.Advance(5 * time.Second)
	assert.Eventually(t, func() bool { return len(log.get()) == 2 }, fireWait, time.Millisecond)
	assert.Equal(t, []string{"b", "a2"}, log.get())
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, fireWait, time.Millisecond)
}

func TestExpiryScheduler_CancelIsScopedAndIdempotent(t *testing.T) {
	clk := clockwork.NewFakeClockAt(epoch)
	s := NewExpiryScheduler(domain.FromClockwork(clk))

	var firedA, firedB atomic.Bool
	s.Schedule("a", time.Second, func() { firedA.Store(true) })
	s.Schedule("b", time.Second, func() { firedB.Store(true) })

	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))
	assert.False(t, s.Cancel("never-scheduled"))

	clk.Advance(time.Second)
	assert.Eventually(t, firedB.Load, fireWait, time.Millisecond)
	assert.False(t, firedA.Load())

	// cancelar depois de disparar não tem efeito
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, fireWait, time.Millisecond)
	assert.False(t, s.Cancel("b"))
}

func TestExpiryScheduler_StopCancelsEverything(t *testing.T) {
	clk := clockwork.NewFakeClockAt(epoch)
	s := NewExpiryScheduler(domain.FromClockwork(clk))

	var fired atomic.Int32
	s.Schedule("a", time.Second, func() { fired.Add(1) })
	s.Schedule("b", time.Second, func() { fired.Add(1) })
	s.Stop()

	clk.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestExpiryScheduler_RealClock(t *testing.T) {
	s := NewExpiryScheduler(nil)

	done := make(chan struct{})
	s.Schedule("c", time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expiry task did not fire")
	}
}
