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

// Package retry implements the one fixed backoff schedule shared by the
// Discoverer and the State Query collaborator: six slots, the delays
// computed as math.Exp(x/10) for x in {0,5,10,15,20} plus a trailing
// zero-delay immediate retry, so the derivation stays auditable instead of
// hand-copying the resulting float constants.
package retry

import (
	"context"
	"math"
	"time"

	liblog "github.com/nabbar/iischeck/logger"
)

// Schedule returns the six backoff delays in source order: approximately
// {1.00, 1.65, 2.72, 4.48, 7.39, 0}.
func Schedule() []time.Duration {
	out := make([]time.Duration, 0, 6)
	for x := 0; x < 25; x += 5 {
		out = append(out, time.Duration(math.Exp(float64(x)/10)*float64(time.Second)))
	}
	return append(out, 0)
}

// Func is one retryable attempt: nil on success, any error to trigger the
// next backoff slot.
type Func func() error

// Run drives fn through Schedule(): on each failure it logs a warning and
// sleeps the slot's delay, then retries; if the final slot's attempt also
// fails, it logs critical and returns the last error. The context can
// cancel a pending backoff sleep early, returning ctx.Err().
func Run(ctx context.Context, log liblog.FuncLog, fn Func) error {
	schedule := Schedule()

	var err error
	for i, delay := range schedule {
		if err = fn(); err == nil {
			return nil
		}

		last := i == len(schedule)-1
		if last {
			if log != nil {
				if l := log(); l != nil {
					l.Error("retry attempts exhausted", err)
				}
			}
			return err
		}

		if log != nil {
			if l := log(); l != nil {
				l.Warning("retry attempt failed, backing off", err)
			}
		}

		if delay <= 0 {
			continue
		}

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}

	return err
}
