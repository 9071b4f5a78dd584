package flash

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every pending timer scheduled for exactly d.
func (c *fakeClock) fire(d time.Duration) {
	c.mu.Lock()
	pending := append([]*fakeTimer(nil), c.timers...)
	c.mu.Unlock()
	for _, t := range pending {
		if !t.stopped && t.d == d {
			t.stopped = true
			t.f()
		}
	}
}

func TestSuccessAutoClearsAfterDisplayDuration(t *testing.T) {
	clock := &fakeClock{}
	board := NewBoard(WithAfterFunc(clock.AfterFunc))

	msg := board.Success("s1", "Appointment confirmed successfully")
	require.Len(t, clock.timers, 1)
	assert.Equal(t, 2000*time.Millisecond, clock.timers[0].d)
	assert.Equal(t, []Message{msg}, board.Messages("s1"))

	clock.fire(1999 * time.Millisecond)
	assert.Len(t, board.Messages("s1"), 1)

	clock.fire(DisplayDuration)
	assert.Empty(t, board.Messages("s1"))
}

func TestDismissIsImmediate(t *testing.T) {
	clock := &fakeClock{}
	board := NewBoard(WithAfterFunc(clock.AfterFunc))

	msg := board.Success("s1", "Appointment cancelled successfully")
	assert.True(t, board.Dismiss("s1", msg.ID))
	assert.Empty(t, board.Messages("s1"))
	assert.True(t, clock.timers[0].stopped)
	assert.False(t, board.Dismiss("s1", msg.ID))
}

func TestErrorsStayUntilDismissed(t *testing.T) {
	clock := &fakeClock{}
	board := NewBoard(WithAfterFunc(clock.AfterFunc))

	msg := board.Error("s1", "Failed to reject appointment")
	assert.Empty(t, clock.timers)
	assert.Equal(t, []Message{msg}, board.Messages("s1"))
	assert.True(t, board.Dismiss("s1", msg.ID))
}

func TestNewerMessageReplacesAndSurvivesOldTimer(t *testing.T) {
	clock := &fakeClock{}
	board := NewBoard(WithAfterFunc(clock.AfterFunc))

	first := board.Success("s1", "first")
	second := board.Success("s1", "second")
	require.Len(t, clock.timers, 2)
	assert.True(t, clock.timers[0].stopped)

	// a late callback of the replaced message leaves the newer one alone
	clock.timers[0].f()
	assert.Equal(t, []Message{second}, board.Messages("s1"))
	assert.False(t, board.Dismiss("s1", first.ID))
}

func TestSessionsAreIsolated(t *testing.T) {
	board := NewBoard(WithDisplayDuration(0))

	board.Error("s1", "one")
	board.Success("s2", "two")
	board.Error("s2", "three")

	messages := board.Messages("s2")
	require.Len(t, messages, 2)
	assert.Equal(t, KindSuccess, messages[0].Kind)
	assert.Equal(t, KindError, messages[1].Kind)

	board.Clear("s2")
	assert.Empty(t, board.Messages("s2"))
	assert.Len(t, board.Messages("s1"), 1)
}

func TestRealTimerClears(t *testing.T) {
	board := NewBoard(WithDisplayDuration(10 * time.Millisecond))
	board.Success("s1", "done")

	assert.Eventually(t, func() bool {
		return len(board.Messages("s1")) == 0
	}, time.Second, 5*time.Millisecond)
}

type signalTimer struct {
	once    sync.Once
	stopped chan struct{}
}

func (t *signalTimer) Stop() bool {
	t.once.Do(func() { close(t.stopped) })
	return true
}

func TestIdleSessionsExpire(t *testing.T) {
	timer := &signalTimer{stopped: make(chan struct{})}
	board := NewBoard(WithTTL(20*time.Millisecond), WithAfterFunc(func(time.Duration, func()) Timer {
		return timer
	}))

	board.Error("s1", "left behind")
	board.Success("s1", "pending")
	assert.Equal(t, 1, board.Sessions())

	assert.Eventually(t, func() bool {
		return board.Sessions() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, board.Messages("s1"))

	select {
	case <-timer.stopped:
	case <-time.After(time.Second):
		t.Fatal("pending auto-clear timer was not stopped on expiry")
	}
}
