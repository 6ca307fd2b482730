package user

import (
	"sync"
	"time"
)

// LoginThrottler tracks failed login attempts per remote address inside
// a fixed window. Once an address exceeds the allowed number of failures,
// further attempts are rejected until the window expires.
type LoginThrottler struct {
	mutex       sync.Mutex
	maxFailures int
	window      time.Duration
	failures    map[string][]time.Time
}

func NewLoginThrottler(maxFailures int, window time.Duration) *LoginThrottler {
	return &LoginThrottler{
		maxFailures: maxFailures,
		window:      window,
		failures:    make(map[string][]time.Time),
	}
}

// Allowed reports whether the address provided is permitted to attempt
// a login at this time.
func (throttle *LoginThrottler) Allowed(addr string) bool {
	throttle.mutex.Lock()
	defer throttle.mutex.Unlock()

	return len(throttle.recentFailures(addr)) < throttle.maxFailures
}

// RecordFailure notes a failed login attempt for the address provided.
func (throttle *LoginThrottler) RecordFailure(addr string) {
	throttle.mutex.Lock()
	defer throttle.mutex.Unlock()

	throttle.failures[addr] = append(throttle.recentFailures(addr), time.Now())
}

// RecordSuccess clears the failure history for the address provided.
func (throttle *LoginThrottler) RecordSuccess(addr string) {
	throttle.mutex.Lock()
	defer throttle.mutex.Unlock()

	delete(throttle.failures, addr)
}

// recentFailures prunes expired failure records for the address and
// returns those still inside the window. Callers must hold the mutex.
func (throttle *LoginThrottler) recentFailures(addr string) []time.Time {
	cutoff := time.Now().Add(-throttle.window)

	recent := throttle.failures[addr][:0:0]
	for _, t := range throttle.failures[addr] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) == 0 {
		delete(throttle.failures, addr)
	} else {
		throttle.failures[addr] = recent
	}

	return recent
}
