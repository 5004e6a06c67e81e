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

// Package metrics builds the two documented metric keys and pushes a batch
// of points to the downstream collector in one call, using the trapper
// protocol's line-oriented framing: a fixed "ZBXD\x01" header, an 8-byte
// little-endian payload length, then the JSON payload itself.
package metrics

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	liberr "github.com/nabbar/iischeck/errors"
)

var header = [5]byte{'Z', 'B', 'X', 'D', 0x01}

// Point is one {host, key, value} triple to push downstream.
type Point struct {
	Host  string
	Key   string
	Value string
}

type item struct {
	Host  string `json:"host"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type request struct {
	Request string `json:"request"`
	Data    []item `json:"data"`
}

// Client pushes batches to one downstream collector address.
type Client struct {
	addr    string
	timeout time.Duration
}

// NewClient builds a Client for host:port, bounding both the dial and the
// round-trip by timeout.
func NewClient(host string, port int, timeout time.Duration) *Client {
	return &Client{addr: fmt.Sprintf("%s:%d", host, port), timeout: timeout}
}

// Push opens one connection, writes the whole batch as a single framed
// payload, and reads (and discards) the collector's acknowledgement before
// closing — one push per batch, per the ordering guarantee in spec.md §5.
func (c *Client) Push(ctx context.Context, points []Point) liberr.Error {
	body, err := json.Marshal(toRequest(points))
	if err != nil {
		return ErrorPushFailed.Error(err)
	}

	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return ErrorDialFailed.Error(err)
	}
	defer func() { _ = conn.Close() }()

	if d, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(d)
	} else if c.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.timeout))
	}

	frame := make([]byte, 0, len(header)+8+len(body))
	frame = append(frame, header[:]...)
	length := make([]byte, 8)
	binary.LittleEndian.PutUint64(length, uint64(len(body)))
	frame = append(frame, length...)
	frame = append(frame, body...)

	if _, err = conn.Write(frame); err != nil {
		return ErrorPushFailed.Error(err)
	}

	var ack bytes.Buffer
	_, err = io.Copy(&ack, conn)
	if err != nil && err != io.EOF {
		return ErrorPushFailed.Error(err)
	}

	return nil
}

func toRequest(points []Point) request {
	data := make([]item, 0, len(points))
	for _, p := range points {
		data = append(data, item{Host: p.Host, Key: p.Key, Value: p.Value})
	}
	return request{Request: "sender data", Data: data}
}
