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

package engine

import (
	"sync"

	"github.com/nabbar/iischeck/internal/message"
)

// Worker is one supervised role: its command queue plus the channel its
// goroutine closes when it returns, so the Supervisor can tell liveness
// from a simple select instead of polling.
type Worker struct {
	Name  string
	Queue message.Queue
	Dead  chan struct{}
}

// Registry tracks the workers the Supervisor started, in startup order, so
// shutdown can walk them in reverse and compute the died set once before
// choosing cooperative or forced stop per worker.
type Registry struct {
	mu      sync.Mutex
	workers []*Worker
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a worker in startup order.
func (r *Registry) Register(w *Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers = append(r.workers, w)
}

// Workers returns the registered workers in startup order.
func (r *Registry) Workers() []*Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Worker, len(r.workers))
	copy(out, r.workers)
	return out
}

// DiedSet returns the names of workers whose Dead channel is already
// closed — computed once, up front, so shutdown never joins a worker
// believing it alive when it already exited.
func (r *Registry) DiedSet() map[string]bool {
	died := make(map[string]bool)
	for _, w := range r.Workers() {
		select {
		case <-w.Dead:
			died[w.Name] = true
		default:
		}
	}
	return died
}

// AnyDied reports whether at least one registered worker has already died.
func (r *Registry) AnyDied() bool {
	for range r.DiedSet() {
		return true
	}
	return false
}

// Shutdown walks the registered workers in reverse startup order. For each
// worker already in died, it sends nothing (there is nothing listening)
// and does not join; otherwise it sends the stop message (StopExecution
// for a cooperative shutdown, ForceStopExecution for a forced one) and
// waits for the worker's Dead channel to close.
func (r *Registry) Shutdown(died map[string]bool, forced bool) {
	workers := r.Workers()

	for i := len(workers) - 1; i >= 0; i-- {
		w := workers[i]
		if died[w.Name] {
			continue
		}

		if forced {
			w.Queue <- message.ForceStopExecution()
		} else {
			w.Queue <- message.StopExecution()
		}

		<-w.Dead
	}
}
