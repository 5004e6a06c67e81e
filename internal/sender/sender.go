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

// Package sender implements the Sender role (spec.md §4.6): it publishes
// result batches either to standard output or to a downstream metrics
// collector, and drains any late results from a shutting-down Checker
// before it is allowed to exit.
package sender

import (
	"context"
	"fmt"
	"io"

	liberr "github.com/nabbar/iischeck/errors"
	"github.com/nabbar/iischeck/internal/message"
	"github.com/nabbar/iischeck/internal/metrics"
	liblog "github.com/nabbar/iischeck/logger"
)

// Result is one published tuple: a site name, a metric key, its value, and
// an optional verbose trace buffer (probe results only).
type Result struct {
	Name  string
	Key   string
	Value string
	Trace []byte
}

// Batch is the ProcessData payload the Sender understands; anything else
// received as a KindProcessData payload is silently ignored.
type Batch []Result

// Pusher delivers a batch of metric points to a downstream collector in one
// call, satisfied by metrics.Client.
type Pusher interface {
	Push(ctx context.Context, points []metrics.Point) liberr.Error
}

// Sink selects where published results go.
type Sink string

const (
	SinkPrint Sink = "print"
	SinkSend  Sink = "send"
)

// Sender is the single consumer of every role's result batches.
type Sender struct {
	sink   Sink
	out    io.Writer
	pusher Pusher
	queue  message.Queue
	log    liblog.FuncLog

	clients map[string]struct{}
}

// New builds a Sender. out is only used in SinkPrint; pusher is only used
// in SinkSend (and may be nil otherwise).
func New(sink Sink, out io.Writer, pusher Pusher, queue message.Queue, log liblog.FuncLog) *Sender {
	return &Sender{
		sink:    sink,
		out:     out,
		pusher:  pusher,
		queue:   queue,
		log:     log,
		clients: make(map[string]struct{}),
	}
}

// Run is the Sender's long-lived run loop. While any client is registered
// it blocks on the queue; once StopExecution has been observed and the
// client set has emptied, it switches to a non-blocking drain and exits as
// soon as the queue is empty. ForceStopExecution exits immediately,
// discarding anything still queued.
func (s *Sender) Run(ctx context.Context, dead chan<- struct{}) {
	defer close(dead)

	stopping := false

	for {
		if stopping && len(s.clients) == 0 {
			select {
			case m, ok := <-s.queue:
				if !ok {
					return
				}
				if !s.handle(ctx, m, &stopping) {
					return
				}
			default:
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case m, ok := <-s.queue:
			if !ok {
				return
			}
			if !s.handle(ctx, m, &stopping) {
				return
			}
		}
	}
}

// handle applies one message; it returns false when the run loop must exit
// immediately (ForceStopExecution).
func (s *Sender) handle(ctx context.Context, m message.Message, stopping *bool) bool {
	switch m.Kind {
	case message.KindProcessData:
		s.publish(ctx, m.Payload)
	case message.KindRegisterClient:
		s.clients[m.ClientID] = struct{}{}
	case message.KindDeregisterClient:
		delete(s.clients, m.ClientID)
	case message.KindStopExecution:
		*stopping = true
	case message.KindForceStopExecution:
		return false
	}
	return true
}

// publish dispatches one batch to the configured sink. A payload that is
// not a Batch, or an empty Batch, is a no-op.
func (s *Sender) publish(ctx context.Context, payload interface{}) {
	batch, ok := payload.(Batch)
	if !ok || len(batch) == 0 {
		return
	}

	switch s.sink {
	case SinkSend:
		s.push(ctx, batch)
	default:
		s.print(batch)
	}
}

func (s *Sender) push(ctx context.Context, batch Batch) {
	if s.pusher == nil {
		return
	}

	points := make([]metrics.Point, 0, len(batch))
	for _, r := range batch {
		points = append(points, metrics.Point{Host: r.Name, Key: r.Key, Value: r.Value})
	}

	if err := s.pusher.Push(ctx, points); err != nil {
		if l := s.logger(); l != nil {
			l.Error("metrics batch push failed", err)
		}
	}
}

func (s *Sender) print(batch Batch) {
	if s.out == nil {
		return
	}

	for _, r := range batch {
		_, _ = fmt.Fprintf(s.out, "%s %s=%s\n", r.Name, r.Key, r.Value)
		if len(r.Trace) > 0 {
			_, _ = io.WriteString(s.out, decodeASCII(r.Trace))
			_, _ = io.WriteString(s.out, "\n")
		}
	}
}

// decodeASCII decodes raw as ASCII, dropping any byte outside the 7-bit
// range rather than erroring, per spec.md §4.6's print-mode trace handling.
func decodeASCII(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b < 0x80 {
			out = append(out, b)
		}
	}
	return string(out)
}

func (s *Sender) logger() liblog.Logger {
	if s.log == nil {
		return nil
	}
	return s.log()
}
