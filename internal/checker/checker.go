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

// Package checker implements the Checker role (spec.md §4.5): on each
// ProcessData it requests a discovery refresh and waits for it to settle,
// queries every discovered site's run state, publishes a state batch, lets
// the dust settle, then probes every "started" site and publishes a probe
// batch. A fatal state-query error aborts the cycle before any batch is
// sent and raises the global stop event rather than risking a partial,
// misleading report.
package checker

import (
	"context"
	"time"

	liberr "github.com/nabbar/iischeck/errors"
	"github.com/nabbar/iischeck/internal/engine"
	"github.com/nabbar/iischeck/internal/inventory"
	"github.com/nabbar/iischeck/internal/message"
	"github.com/nabbar/iischeck/internal/metrics"
	"github.com/nabbar/iischeck/internal/probe"
	"github.com/nabbar/iischeck/internal/sender"
	"github.com/nabbar/iischeck/internal/sitecfg"
	"github.com/nabbar/iischeck/internal/stateprobe"
	"github.com/nabbar/iischeck/internal/wmisite"
	"github.com/nabbar/iischeck/internal/workerpool"
	liblog "github.com/nabbar/iischeck/logger"
)

// Config is the Checker's static configuration.
type Config struct {
	// Method selects the state-query collaborator: "wmi" (native, retried)
	// or "ps" (external command, tried once).
	Method string
	// SettleDelay is the pause between publishing the state batch and
	// starting the probe fan-out ("let the dust settle").
	SettleDelay time.Duration
}

// DefaultConfig returns the documented 5-second settle delay; Method must
// still be set from the parsed configuration.
func DefaultConfig() Config {
	return Config{SettleDelay: 5 * time.Second}
}

// Checker is the single driver of one discover/query/probe cycle per
// ProcessData it receives.
type Checker struct {
	cfg      Config
	inv      inventory.Inventory
	resolver *sitecfg.Resolver
	native   wmisite.Native
	cmd      wmisite.Command
	done     *engine.Signal
	stop     *engine.StopEvent

	queue          message.Queue
	discoveryQueue message.Queue
	senderQueue    message.Queue

	clientID string
	log      liblog.FuncLog
}

// New builds a Checker. discoveryQueue is the Discoverer's command queue;
// senderQueue is the Sender's. The Checker registers clientID with the
// Sender as soon as Run starts and deregisters it on cooperative shutdown,
// so the Sender's drain gate never closes while a cycle might still be
// publishing.
func New(cfg Config, inv inventory.Inventory, resolver *sitecfg.Resolver, native wmisite.Native, cmd wmisite.Command, done *engine.Signal, stop *engine.StopEvent, queue, discoveryQueue, senderQueue message.Queue, log liblog.FuncLog) *Checker {
	return &Checker{
		cfg:            cfg,
		inv:            inv,
		resolver:       resolver,
		native:         native,
		cmd:            cmd,
		done:           done,
		stop:           stop,
		queue:          queue,
		discoveryQueue: discoveryQueue,
		senderQueue:    senderQueue,
		clientID:       engine.NewClientID(),
		log:            log,
	}
}

// Run is the Checker's long-lived run loop.
func (c *Checker) Run(ctx context.Context, dead chan<- struct{}) {
	defer close(dead)

	select {
	case c.senderQueue <- message.RegisterClient(c.clientID):
	case <-ctx.Done():
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-c.queue:
			if !ok {
				return
			}
			switch m.Kind {
			case message.KindProcessData:
				c.cycle(ctx)
			case message.KindStopExecution:
				select {
				case c.senderQueue <- message.DeregisterClient(c.clientID):
				case <-ctx.Done():
				}
				return
			case message.KindForceStopExecution:
				return
			}
		}
	}
}

// cycle runs one discover/query/probe pass. It returns early, without
// sending anything further, once the context is cancelled.
func (c *Checker) cycle(ctx context.Context) {
	c.done.Clear()

	select {
	case c.discoveryQueue <- message.ProcessData(nil):
	case <-ctx.Done():
		return
	}

	if err := c.done.Wait(ctx); err != nil {
		return
	}

	sites := c.inv.Snapshot()
	if len(sites) == 0 {
		return
	}

	states, qerr := c.queryStates(ctx, sites)
	if qerr != nil {
		if l := c.logger(); l != nil {
			l.Error("state query cycle aborted, raising stop", qerr)
		}
		c.stop.Raise()
		return
	}

	if !c.publish(ctx, stateBatch(sites, states)) {
		return
	}

	select {
	case <-time.After(c.cfg.SettleDelay):
	case <-ctx.Done():
		return
	}

	started := startedSites(sites, states)
	if len(started) == 0 {
		return
	}

	results := c.probeSites(ctx, started)
	c.publish(ctx, probeBatch(started, results))
}

// stateResult is one worker's outcome in the state-query fan-out.
type stateResult struct {
	state stateprobe.State
	err   liberr.Error
}

// queryStates fans out one state.Query call per site, sized to the site
// count, and returns the first fatal error encountered (if any) after every
// worker has finished — the Checker never reports a partial state batch.
func (c *Checker) queryStates(ctx context.Context, sites []inventory.Site) ([]stateprobe.State, liberr.Error) {
	jobs := make([]workerpool.Job, len(sites))
	for i, site := range sites {
		site := site
		jobs[i] = func(_ int) interface{} {
			cfg := c.resolver.Resolve(site.Hostnames())
			st, err := stateprobe.Query(ctx, site.Name, c.cfg.Method, cfg.DelayDuration().Time(), c.native, c.cmd, c.log)
			return stateResult{state: st, err: err}
		}
	}

	raw := workerpool.Run(jobs)
	states := make([]stateprobe.State, len(raw))

	for i, r := range raw {
		res := r.(stateResult)
		if res.err != nil {
			return nil, res.err
		}
		states[i] = res.state
	}

	return states, nil
}

// probeResult is one worker's outcome in the probe fan-out.
type probeResult struct {
	result probe.Result
	err    liberr.Error
}

// probeSites fans out one probe.Run call per started site, sized to the
// started-site count. A probe failure (including a client-build error) is
// never fatal to the cycle, per spec.md §7: it is reported through the
// batch like any other outcome.
func (c *Checker) probeSites(ctx context.Context, sites []inventory.Site) []probeResult {
	jobs := make([]workerpool.Job, len(sites))
	for i, site := range sites {
		site := site
		jobs[i] = func(_ int) interface{} {
			cfg := c.resolver.Resolve(site.Hostnames())
			steps, e := sitecfg.ParsePlan(cfg.Path)
			if e != nil {
				return probeResult{result: probe.Result{Status: probe.StatusErrFailed}, err: e}
			}
			res, e := probe.Run(ctx, site.Preferred, cfg, steps)
			return probeResult{result: res, err: e}
		}
	}

	raw := workerpool.Run(jobs)
	out := make([]probeResult, len(raw))
	for i, r := range raw {
		out[i] = r.(probeResult)
	}
	return out
}

// publish sends a non-empty batch to the Sender, returning false only when
// the context was cancelled before the send could complete.
func (c *Checker) publish(ctx context.Context, batch sender.Batch) bool {
	if len(batch) == 0 {
		return true
	}

	select {
	case c.senderQueue <- message.ProcessData(batch):
		return true
	case <-ctx.Done():
		return false
	}
}

// stateBatch builds the Sender batch for a state-query round.
func stateBatch(sites []inventory.Site, states []stateprobe.State) sender.Batch {
	batch := make(sender.Batch, 0, len(sites))
	for i, site := range sites {
		batch = append(batch, sender.Result{
			Name:  site.Name,
			Key:   metrics.StateKey(site.Name),
			Value: string(states[i]),
		})
	}
	return batch
}

// startedSites filters sites down to the ones whose queried state is
// "started" — the only state spec.md §4.5 requires a liveness probe for.
func startedSites(sites []inventory.Site, states []stateprobe.State) []inventory.Site {
	out := make([]inventory.Site, 0, len(sites))
	for i, site := range sites {
		if states[i] == stateprobe.StateStarted {
			out = append(out, site)
		}
	}
	return out
}

// probeBatch builds the Sender batch for a probe round, keying each result
// by the protocol/host/port/address actually dialed plus the site's full
// hostname set.
func probeBatch(sites []inventory.Site, results []probeResult) sender.Batch {
	batch := make(sender.Batch, 0, len(sites))
	for i, site := range sites {
		b := site.Preferred
		batch = append(batch, sender.Result{
			Name:  site.Name,
			Key:   metrics.ProbeKey(b.Protocol, b.HostName(), b.Port, b.Address(), site.Hostnames()),
			Value: string(results[i].result.Status),
			Trace: results[i].result.Trace,
		})
	}
	return batch
}

func (c *Checker) logger() liblog.Logger {
	if c.log == nil {
		return nil
	}
	return c.log()
}
