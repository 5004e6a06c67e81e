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

	spfcbr "github.com/spf13/cobra"

	liblog "github.com/nabbar/iischeck/logger"
)

// newStandaloneCommand runs the agent until a keyboard interrupt (SIGINT)
// arrives — the same handler service mode uses, since a keyboard interrupt
// simply is SIGINT; the distinction spec.md draws between the two modes is
// about the deployment, not the code path.
func newStandaloneCommand() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "standalone",
		Short: "Run continuously until interrupted (Ctrl-C)",
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

			ctx := context.Background()
			runAgent(ctx, cfg, logFn)
			return nil
		},
	}
}
