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

// Package supervisor implements the Supervisor role (spec.md §4.7): it
// starts the other roles in dependency order, ticks a periodic
// discover/check cycle, watches for worker death on every sub-tick, and
// tears the agent down — cooperatively or forcefully — once the global
// stop event is raised.
package supervisor

import (
	"context"
	"time"

	"github.com/nabbar/iischeck/internal/engine"
	"github.com/nabbar/iischeck/internal/message"
	liblog "github.com/nabbar/iischeck/logger"
)

// SubTickInterval is THREADSET_CHECK_INTERVAL: the tick loop always wakes
// at this cadence regardless of the configured Interval, so worker death
// is detected promptly.
const SubTickInterval = 15 * time.Second

// Mode selects one of the three operating modes spec.md §4.7 names.
type Mode string

const (
	ModeService    Mode = "service"
	ModeStandalone Mode = "standalone"
	ModeDiscovery  Mode = "discovery"
)

// Config is the Supervisor's static configuration.
type Config struct {
	// Interval is the tick-loop period between Checker cycles; defaults to
	// 300s.
	Interval time.Duration
}

// DefaultConfig returns the documented 300s default interval.
func DefaultConfig() Config {
	return Config{Interval: 300 * time.Second}
}

// Role is anything the Supervisor can start and later stop: every other
// role in this module satisfies it with its own Run method.
type Role interface {
	Run(ctx context.Context, dead chan<- struct{})
}

// Component is one role to start, paired with the command queue used both
// to address it (Checker dispatch) and to shut it down.
type Component struct {
	Name  string
	Queue message.Queue
	Role  Role
}

// Supervisor starts components, ticks the Checker, watches liveness, and
// owns the shutdown sequence.
type Supervisor struct {
	cfg      Config
	stop     *engine.StopEvent
	registry *engine.Registry
	log      liblog.FuncLog
}

// New builds a Supervisor around a fresh, empty liveness registry.
func New(cfg Config, stop *engine.StopEvent, log liblog.FuncLog) *Supervisor {
	if cfg.Interval <= 0 {
		cfg.Interval = 300 * time.Second
	}
	return &Supervisor{
		cfg:      cfg,
		stop:     stop,
		registry: engine.NewRegistry(),
		log:      log,
	}
}

// Start launches every component's Run loop, in the order given — the
// caller is responsible for passing Discoverer, then Sender, then Checker,
// per spec.md §4.7's dependency order — and registers each with the
// liveness registry before returning, so the very first sub-tick already
// knows about every worker.
func (s *Supervisor) Start(ctx context.Context, components []Component) {
	for _, c := range components {
		dead := make(chan struct{})
		go c.Role.Run(ctx, dead)
		s.registry.Register(&engine.Worker{Name: c.Name, Queue: c.Queue, Dead: dead})
	}
}

// Run is the tick-loop state machine spec.md §4.7 names: sleeping (in
// SubTickInterval increments) until Interval has elapsed, at which point it
// dispatches one ProcessData to the Checker and resets; any sub-tick that
// finds a dead worker, or an external stop, moves it to stopped. Run
// returns once the global stop event is raised, whether it raised it
// itself or a peer did.
func (s *Supervisor) Run(ctx context.Context, checkerQueue message.Queue) {
	ticker := time.NewTicker(SubTickInterval)
	defer ticker.Stop()

	var elapsed time.Duration

	for {
		select {
		case <-s.stop.Done():
			return
		case <-ctx.Done():
			s.stop.Raise()
			return
		case <-ticker.C:
			if s.registry.AnyDied() {
				if l := s.logger(); l != nil {
					l.Error("a supervised worker died, raising stop", nil)
				}
				s.stop.Raise()
				return
			}

			elapsed += SubTickInterval
			if elapsed < s.cfg.Interval {
				continue
			}
			elapsed = 0

			select {
			case checkerQueue <- message.ProcessData(nil):
			case <-s.stop.Done():
				return
			case <-ctx.Done():
				s.stop.Raise()
				return
			}
		}
	}
}

// Wait is the dedicated shutdown waiter: it blocks on the global stop
// event, then walks every registered worker in reverse startup order. Any
// worker that had already died is skipped rather than joined; the rest get
// a forced stop if at least one death was observed, or a cooperative stop
// otherwise, giving the Sender a chance to drain on a clean shutdown.
func (s *Supervisor) Wait() {
	<-s.stop.Done()

	died := s.registry.DiedSet()
	s.registry.Shutdown(died, len(died) > 0)
}

func (s *Supervisor) logger() liblog.Logger {
	if s.log == nil {
		return nil
	}
	return s.log()
}
