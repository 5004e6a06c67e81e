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

// Package stateprobe implements the State Query collaborator (spec.md
// §4.4): for one site, jitter-sleep, then ask either the native management
// API (retried on the shared backoff schedule) or the external-command
// collaborator for the site's current run state.
package stateprobe

import (
	"context"
	"math/rand"
	"time"

	liberr "github.com/nabbar/iischeck/errors"
	"github.com/nabbar/iischeck/internal/retry"
	"github.com/nabbar/iischeck/internal/wmisite"
	liblog "github.com/nabbar/iischeck/logger"
)

// State is one of the six run states the Checker and Sender exchange.
type State string

const (
	StateStarting State = "starting"
	StateStarted  State = "started"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateUnknown  State = "unknown"
	StateNotFound State = "notfound"
)

// fromCode maps the native API's numeric state (0..4) to its State; any
// code outside that range is reported as unknown rather than rejected.
func fromCode(code int) State {
	switch code {
	case 0:
		return StateStarting
	case 1:
		return StateStarted
	case 2:
		return StateStopping
	case 3:
		return StateStopped
	default:
		return StateUnknown
	}
}

// Query runs one state query for a single site: "wmi" retries through the
// shared backoff schedule and returns an error on exhaustion (the Checker
// treats that as fatal for the whole cycle); "ps" is tried once, mapping a
// JSON failure to StateNotFound rather than an error.
func Query(ctx context.Context, name, method string, maxDelay time.Duration, native wmisite.Native, cmd wmisite.Command, log liblog.FuncLog) (State, liberr.Error) {
	if err := jitterSleep(ctx, maxDelay); err != nil {
		return "", ErrorQueryFatal.Error(err)
	}

	if method == "ps" {
		raw, notFound := cmd.State(ctx, name)
		if notFound {
			return StateNotFound, nil
		}
		return State(raw), nil
	}

	var (
		code     int
		notFound bool
	)
	err := retry.Run(ctx, log, func() error {
		var e error
		code, notFound, e = native.State(ctx, name)
		return e
	})
	if err != nil {
		return "", ErrorQueryFatal.Error(err)
	}
	if notFound {
		return StateNotFound, nil
	}

	return fromCode(code), nil
}

// jitterSleep sleeps a uniform random duration in [0, max], returning early
// with ctx.Err() if the context is cancelled first.
func jitterSleep(ctx context.Context, max time.Duration) error {
	if max <= 0 {
		return nil
	}

	d := time.Duration(rand.Int63n(int64(max) + 1))
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
