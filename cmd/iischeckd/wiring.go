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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	liberr "github.com/nabbar/iischeck/errors"
	libprm "github.com/nabbar/iischeck/file/perm"
	"github.com/nabbar/iischeck/internal/appconfig"
	"github.com/nabbar/iischeck/internal/checker"
	"github.com/nabbar/iischeck/internal/discovery"
	"github.com/nabbar/iischeck/internal/engine"
	"github.com/nabbar/iischeck/internal/inventory"
	"github.com/nabbar/iischeck/internal/message"
	"github.com/nabbar/iischeck/internal/metrics"
	"github.com/nabbar/iischeck/internal/sender"
	"github.com/nabbar/iischeck/internal/supervisor"
	"github.com/nabbar/iischeck/internal/wmisite"
	liblog "github.com/nabbar/iischeck/logger"
	logcfg "github.com/nabbar/iischeck/logger/config"
	loglvl "github.com/nabbar/iischeck/logger/level"
)

// loadConfig reads flagConfig, registers its raw bytes with the bound
// viper instance under the format its extension implies, and parses the
// top-level document per internal/appconfig.
func loadConfig() (appconfig.Config, liberr.Error) {
	raw, err := os.ReadFile(flagConfig)
	if err != nil {
		return appconfig.Config{}, ErrorConfigRead.Error(err)
	}

	format := configFormat(flagConfig)
	vpr.SetConfigType(format)

	if err = vpr.ReadConfig(bytes.NewReader(raw)); err != nil {
		return appconfig.Config{}, ErrorConfigRead.Error(err)
	}

	return appconfig.Load(vpr, raw, format)
}

func configFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}

// buildLogger constructs the root logger from the "_appglobal" section: a
// stdout sink always on, plus an optional file sink when LogFile is set.
func buildLogger(ctx context.Context, g appconfig.Global) (liblog.Logger, liberr.Error) {
	lvl := g.LogLevel
	if flagLogLevel != "" {
		lvl = flagLogLevel
	}
	logfile := g.LogFile
	if flagLogFile != "" {
		logfile = flagLogFile
	}

	l := liblog.New(ctx)

	if lvl != "" {
		l.SetLevel(loglvl.Parse(lvl))
	}

	if logfile != "" {
		opt := &logcfg.Options{
			LogFile: logcfg.OptionsFiles{
				{
					Filepath:   logfile,
					Create:     true,
					CreatePath: true,
					FileMode:   libprm.Perm(0644),
					PathMode:   libprm.Perm(0755),
				},
			},
		}
		if err := l.SetOptions(opt); err != nil {
			return nil, ErrorConfigLoad.Error(err)
		}
	}

	return l, nil
}

// agent bundles every role and shared collaborator a running (non-discovery)
// mode needs, plus the queues the Supervisor dispatches into.
type agent struct {
	sup            *supervisor.Supervisor
	stop           *engine.StopEvent
	discoveryQueue message.Queue
	checkerQueue   message.Queue
}

// buildAgent wires the Discoverer, Sender and Checker roles around one
// shared inventory and starts them through the Supervisor, in the
// dependency order spec.md §4.7 names.
func buildAgent(ctx context.Context, cfg appconfig.Config, log liblog.FuncLog) *agent {
	inv := inventory.New()
	done := engine.NewSignal()
	stop := engine.NewStopEvent()

	native := wmisite.NewNativeUnsupported()
	cmd := wmisite.NewCommand()

	discoveryQueue := message.NewQueue(4)
	senderQueue := message.NewQueue(16)
	checkerQueue := message.NewQueue(4)

	dCfg := discovery.DefaultConfig()
	dCfg.Method = cfg.Global.DiscoveryMethod
	dCfg.PrefProto = cfg.Global.DiscoveryPrefProto
	dCfg.PrefHost = cfg.Global.DiscoveryPrefHost
	d := discovery.New(dCfg, inv, native, cmd, done, stop, discoveryQueue, log)

	var pusher sender.Pusher
	if cfg.Global.SenderType == string(sender.SinkSend) {
		pusher = metrics.NewClient(cfg.Global.ZbxServer, cfg.Global.ZbxPort, 30*time.Second)
	}
	s := sender.New(sender.Sink(cfg.Global.SenderType), os.Stdout, pusher, senderQueue, log)

	cCfg := checker.DefaultConfig()
	cCfg.Method = cfg.Global.CheckMethod
	c := checker.New(cCfg, inv, cfg.Resolver, native, cmd, done, stop, checkerQueue, discoveryQueue, senderQueue, log)

	scfg := supervisor.DefaultConfig()
	if cfg.Global.Interval > 0 {
		scfg.Interval = time.Duration(cfg.Global.Interval) * time.Second
	}
	sup := supervisor.New(scfg, stop, log)

	sup.Start(ctx, []supervisor.Component{
		{Name: "discoverer", Queue: discoveryQueue, Role: d},
		{Name: "sender", Queue: senderQueue, Role: s},
		{Name: "checker", Queue: checkerQueue, Role: c},
	})

	return &agent{sup: sup, stop: stop, discoveryQueue: discoveryQueue, checkerQueue: checkerQueue}
}

// runAgent drives a long-lived mode: it starts the tick loop, waits for
// either the OS stop signal or a supervised worker death, then runs the
// shutdown sequence. Both service and standalone modes share this body —
// spec.md §4.7 draws the service/standalone distinction at the signal
// source, not at the run loop.
func runAgent(ctx context.Context, cfg appconfig.Config, log liblog.FuncLog) {
	a := buildAgent(ctx, cfg, log)

	go supervisor.WatchSignal(ctx, a.stop)
	go a.sup.Run(ctx, a.checkerQueue)

	a.sup.Wait()
}
