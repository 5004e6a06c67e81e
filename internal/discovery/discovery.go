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

// Package discovery implements the Discoverer role: on ProcessData it
// refreshes the Site Inventory if the cached view is older than CacheTime,
// using either the native management API (retried on the shared backoff
// schedule) or a single external-command attempt per cycle. The
// discovery-done signal is raised on every exit path of a refresh attempt,
// including the TTL no-op, so readers waiting on it never block forever.
package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/nabbar/iischeck/internal/binding"
	"github.com/nabbar/iischeck/internal/engine"
	"github.com/nabbar/iischeck/internal/inventory"
	"github.com/nabbar/iischeck/internal/message"
	"github.com/nabbar/iischeck/internal/retry"
	"github.com/nabbar/iischeck/internal/wmisite"
	liblog "github.com/nabbar/iischeck/logger"
)

// Config is the Discoverer's static configuration, resolved from the
// "_appglobal" section at startup.
type Config struct {
	// Method selects the collaborator: "wmi" (native, retried) or "ps"
	// (external command, tried once per cycle).
	Method string
	// PrefProto/PrefHost feed the preferred-binding selection for every
	// discovered site.
	PrefProto string
	PrefHost  string
	// CacheTime is the minimum age a stale inventory must reach before a
	// ProcessData triggers an actual refresh; defaults to 900s.
	CacheTime time.Duration
}

// DefaultConfig returns the documented default cache time; Method,
// PrefProto and PrefHost must still be set from the parsed configuration.
func DefaultConfig() Config {
	return Config{CacheTime: 900 * time.Second}
}

// Discoverer is the single writer of the Site Inventory.
type Discoverer struct {
	cfg    Config
	inv    inventory.Inventory
	native wmisite.Native
	cmd    wmisite.Command
	done   *engine.Signal
	stop   *engine.StopEvent
	queue  message.Queue
	log    liblog.FuncLog

	mu          sync.Mutex
	lastSuccess time.Time
}

// New builds a Discoverer. native is used when cfg.Method is "wmi"; cmd is
// used when cfg.Method is "ps". stop is raised when the wmi retry schedule
// is exhausted, so the Supervisor can tear the agent down.
func New(cfg Config, inv inventory.Inventory, native wmisite.Native, cmd wmisite.Command, done *engine.Signal, stop *engine.StopEvent, queue message.Queue, log liblog.FuncLog) *Discoverer {
	return &Discoverer{
		cfg:    cfg,
		inv:    inv,
		native: native,
		cmd:    cmd,
		done:   done,
		stop:   stop,
		queue:  queue,
		log:    log,
	}
}

// Run is the Discoverer's long-lived run loop. It returns (closing dead)
// when a stop message is received or ctx is cancelled.
func (d *Discoverer) Run(ctx context.Context, dead chan<- struct{}) {
	defer close(dead)

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-d.queue:
			if !ok {
				return
			}
			switch m.Kind {
			case message.KindProcessData:
				d.refresh(ctx)
			case message.KindStopExecution, message.KindForceStopExecution:
				return
			}
		}
	}
}

// refresh performs one discovery attempt, guaranteeing the discovery-done
// signal is raised on every exit path: TTL skip, transient ps failure,
// successful wmi/ps refresh, or fatal wmi exhaustion.
func (d *Discoverer) refresh(ctx context.Context) {
	defer d.done.Set()

	if !d.stale() {
		return
	}

	sites, err := d.enumerate(ctx)
	if err != nil {
		return
	}

	d.publish(sites)

	d.mu.Lock()
	d.lastSuccess = time.Now()
	d.mu.Unlock()
}

func (d *Discoverer) stale() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastSuccess.IsZero() {
		return true
	}
	return time.Since(d.lastSuccess) > d.cfg.CacheTime
}

// enumerate dispatches to the configured collaborator. A ps failure is
// transient and silently leaves the inventory unchanged; a wmi failure
// after the retry schedule is exhausted is fatal and raises the global
// stop event, letting the Supervisor tear the agent down.
func (d *Discoverer) enumerate(ctx context.Context) ([]wmisite.RawSite, error) {
	if d.cfg.Method == "ps" {
		sites, err := d.cmd.Enumerate(ctx)
		if err != nil {
			if l := d.logger(); l != nil {
				l.Warning("discovery command failed, skipping this cycle", err)
			}
			return nil, err
		}
		return sites, nil
	}

	var sites []wmisite.RawSite
	err := retry.Run(ctx, d.log, func() error {
		var e error
		sites, e = d.native.Enumerate(ctx)
		return e
	})
	if err != nil {
		if l := d.logger(); l != nil {
			l.Error("discovery retry schedule exhausted, raising stop", err)
		}
		d.stop.Raise()
		return nil, ErrorRefreshFatal.Error(err)
	}

	return sites, nil
}

func (d *Discoverer) publish(raw []wmisite.RawSite) {
	d.inv.Reset()
	for _, rs := range raw {
		bindings := make([]binding.Binding, 0, len(rs.Bindings))
		for _, rb := range rs.Bindings {
			bindings = append(bindings, rb.Binding())
		}
		d.inv.Add(inventory.NewSite(rs.Name, rs.ServerAutoStart, bindings, d.cfg.PrefProto, d.cfg.PrefHost))
	}
}

func (d *Discoverer) logger() liblog.Logger {
	if d.log == nil {
		return nil
	}
	return d.log()
}
