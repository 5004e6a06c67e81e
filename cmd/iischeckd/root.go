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

// Command iischeckd polls IIS site bindings for liveness and reports their
// state and response health to a downstream collector, or prints them to
// standard output. It runs in one of three modes: service (long-lived,
// stopped by an OS signal), standalone (long-lived, stopped by a keyboard
// interrupt) or discovery (one shot, emits the current site inventory as a
// low-level-discovery document and exits).
package main

import (
	"fmt"
	"os"

	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
)

var (
	flagConfig   string
	flagLogLevel string
	flagLogFile  string

	vpr = spfvpr.New()
)

func newRootCommand() *spfcbr.Command {
	root := &spfcbr.Command{
		Use:   "iischeckd",
		Short: "Poll IIS site bindings for liveness and push their state downstream",
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the configuration file (json, yaml or toml)")
	root.PersistentFlags().StringVar(&flagLogLevel, "loglevel", "", "override the _appglobal loglevel (Debug, Info, Warning, Error)")
	root.PersistentFlags().StringVar(&flagLogFile, "logfile", "", "override the _appglobal logfile path")

	_ = root.MarkPersistentFlagRequired("config")

	if err := vpr.BindPFlag("loglevel", root.PersistentFlags().Lookup("loglevel")); err != nil {
		panic(err)
	}
	if err := vpr.BindPFlag("logfile", root.PersistentFlags().Lookup("logfile")); err != nil {
		panic(err)
	}

	root.AddCommand(newServiceCommand())
	root.AddCommand(newStandaloneCommand())
	root.AddCommand(newDiscoveryCommand())

	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
