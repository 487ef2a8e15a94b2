// Package schedule provides the timer abstractions the engine runs on:
// a clock, one-shot and periodic scheduling with cancel handles, and a
// re-arming debouncer. A manual implementation lets tests drive time
// explicitly instead of sleeping.
package schedule

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Handle cancels a scheduled task. Stopping an already-fired or already-
// stopped handle is a no-op.
type Handle interface {
	Stop()
}

// Scheduler runs tasks after a delay or on a fixed interval.
type Scheduler interface {
	Clock
	// After runs task once after d.
	After(d time.Duration, task func()) Handle
	// Every runs task repeatedly every d until the handle is stopped.
	Every(d time.Duration, task func()) Handle
}

// Real is the wall-clock Scheduler.
type Real struct{}

// NewReal returns a Scheduler backed by real timers.
func NewReal() *Real { return &Real{} }

func (*Real) Now() time.Time { return time.Now() }

func (*Real) After(d time.Duration, task func()) Handle {
	return timerHandle{time.AfterFunc(d, task)}
}

func (*Real) Every(d time.Duration, task func()) Handle {
	t := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				task()
			case <-done:
				return
			}
		}
	}()
	return tickerHandle{t: t, done: done, once: &sync.Once{}}
}

type timerHandle struct{ t *time.Timer }

func (h timerHandle) Stop() { h.t.Stop() }

type tickerHandle struct {
	t    *time.Ticker
	done chan struct{}
	once *sync.Once
}

func (h tickerHandle) Stop() {
	h.once.Do(func() {
		h.t.Stop()
		close(h.done)
	})
}
