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

package supervisor

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	liberr "github.com/nabbar/iischeck/errors"
	"github.com/nabbar/iischeck/internal/discoverydoc"
	"github.com/nabbar/iischeck/internal/engine"
	"github.com/nabbar/iischeck/internal/inventory"
	"github.com/nabbar/iischeck/internal/message"
)

// WatchSignal raises stop on SIGINT, SIGTERM or SIGQUIT. Both the service
// mode's "OS stop signal" and the standalone mode's "keyboard interrupt"
// fold into this one handler: a keyboard interrupt simply is SIGINT.
func WatchSignal(ctx context.Context, stop *engine.StopEvent) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(quit)

	select {
	case <-quit:
		stop.Raise()
	case <-stop.Done():
	case <-ctx.Done():
		stop.Raise()
	}
}

// RunDiscoveryOnce drives the discovery operating mode: request a single
// discovery refresh, wait for the discovery-done signal, and return the
// resulting document. The Sender and Checker are never started in this
// mode, per spec.md §4.7.
func RunDiscoveryOnce(ctx context.Context, discoveryQueue message.Queue, done *engine.Signal, inv inventory.Inventory) (discoverydoc.Document, liberr.Error) {
	done.Clear()

	select {
	case discoveryQueue <- message.ProcessData(nil):
	case <-ctx.Done():
		return discoverydoc.Document{}, ErrorDiscoveryTimeout.Error(ctx.Err())
	}

	if err := done.Wait(ctx); err != nil {
		return discoverydoc.Document{}, ErrorDiscoveryTimeout.Error(err)
	}

	return discoverydoc.Build(inv.Snapshot()), nil
}
