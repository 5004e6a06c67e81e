/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package engine holds the plumbing shared by every role: the reset-then-
// wait discovery-done rendezvous, the one-shot global stop event, and the
// liveness registry the Supervisor uses to compute the "died set" before
// choosing cooperative or forced shutdown per worker.
package engine

import (
	"context"
	"sync"
)

// Signal is a reset-then-wait rendezvous: Clear must be called before each
// request a waiter expects to observe, or a missed reset causes a stale Set
// to look like an immediate false positive (the discovery-done guarantee).
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewSignal returns an already-cleared Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Clear resets the signal to the unset state. Safe to call concurrently
// with Wait, but callers needing the clear-before-request guarantee must
// call Clear before they hand off the request that will eventually Set it.
func (s *Signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ch = make(chan struct{})
}

// Set raises the signal, waking every current and future Wait call until
// the next Clear.
func (s *Signal) Set() {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	select {
	case <-ch:
		// already set
	default:
		close(ch)
	}
}

// Wait blocks until Set is called or ctx is cancelled.
func (s *Signal) Wait(ctx context.Context) error {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopEvent is the process-wide, one-shot "stop" latch: once raised it stays
// raised, and Wait/Done never block again.
type StopEvent struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopEvent returns an unraised StopEvent.
func NewStopEvent() *StopEvent {
	return &StopEvent{ch: make(chan struct{})}
}

// Raise sets the stop event; safe to call more than once or concurrently.
func (s *StopEvent) Raise() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns the channel closed when the event is raised, for use in a
// select alongside queue receives and other suspension points.
func (s *StopEvent) Done() <-chan struct{} {
	return s.ch
}

// Raised reports whether Raise has already been called.
func (s *StopEvent) Raised() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
