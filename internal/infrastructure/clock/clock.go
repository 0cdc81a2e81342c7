// Package clock provides an injectable time source so deferred work can be
// driven by virtual time in tests.
//
// Production code receives Real(). Tests receive Fake(start) and call
// Advance to fire timers synchronously, in deadline order.
package clock

import "time"

// Clock abstracts the time operations used by the lifecycle service.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer can cancel
	// the call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a handle on a scheduled call.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the call from running. It returns false if the call has
// already run or was already stopped.
func (t *Timer) Stop() bool {
	if t == nil || t.stopFunc == nil {
		return false
	}
	return t.stopFunc()
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stopFunc: t.Stop}
}
