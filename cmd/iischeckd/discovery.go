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
	"context"
	"fmt"
	"os"
	"time"

	spfcbr "github.com/spf13/cobra"

	"github.com/nabbar/iischeck/internal/discovery"
	"github.com/nabbar/iischeck/internal/discoverydoc"
	"github.com/nabbar/iischeck/internal/engine"
	"github.com/nabbar/iischeck/internal/inventory"
	"github.com/nabbar/iischeck/internal/message"
	"github.com/nabbar/iischeck/internal/supervisor"
	"github.com/nabbar/iischeck/internal/wmisite"
	liblog "github.com/nabbar/iischeck/logger"
)

// newDiscoveryCommand runs one discovery refresh, prints the resulting
// low-level-discovery document to standard output, and exits — the Sender
// and Checker are never started, per spec.md §4.7.
func newDiscoveryCommand() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "discovery",
		Short: "Emit a low-level-discovery document of the current site inventory and exit",
		RunE: func(cmd *spfcbr.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			l, err := buildLogger(cmd.Context(), cfg.Global)
			if err != nil {
				return err
			}
			logFn := func() liblog.Logger { return l }

			inv := inventory.New()
			done := engine.NewSignal()
			stop := engine.NewStopEvent()

			dCfg := discovery.DefaultConfig()
			dCfg.Method = cfg.Global.DiscoveryMethod
			dCfg.PrefProto = cfg.Global.DiscoveryPrefProto
			dCfg.PrefHost = cfg.Global.DiscoveryPrefHost

			discoveryQueue := message.NewQueue(1)
			d := discovery.New(dCfg, inv, wmisite.NewNativeUnsupported(), wmisite.NewCommand(), done, stop, discoveryQueue, logFn)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			dead := make(chan struct{})
			go d.Run(ctx, dead)

			doc, derr := supervisor.RunDiscoveryOnce(ctx, discoveryQueue, done, inv)
			cancel()
			<-dead

			if derr != nil {
				return ErrorDiscoveryFailed.Error(derr)
			}

			out, merr := discoverydoc.Marshal(doc)
			if merr != nil {
				return ErrorDiscoveryFailed.Error(merr)
			}

			_, werr := os.Stdout.Write(out)
			if werr != nil {
				return werr
			}
			_, werr = fmt.Fprintln(os.Stdout)
			return werr
		},
	}
}
