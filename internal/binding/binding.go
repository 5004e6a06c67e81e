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

// Package binding models one IIS-style site binding and the preferred-binding
// selection rule used both for probing and for metric-key construction.
package binding

import (
	"regexp"
	"strings"
)

// protocolPattern is the normative protocol validator: case-insensitive
// http/https, with no tolerance for the historical "^https?$" typo.
var protocolPattern = regexp.MustCompile(`(?i)^(http|https)$`)

// Binding is one address/port/host/protocol tuple as received from the host
// system. All four fields are raw strings; normalization (wildcard address,
// empty host) happens at probe time via Address() and Host().
type Binding struct {
	Addr     string
	Port     string
	Host     string
	Protocol string
}

// Address returns the probe-time address, normalizing the IIS wildcard "*"
// to the loopback address.
func (b Binding) Address() string {
	if b.Addr == "*" || b.Addr == "" {
		return "127.0.0.1"
	}
	return b.Addr
}

// HostName returns the probe-time host, normalizing an empty host to
// "localhost".
func (b Binding) HostName() string {
	if b.Host == "" {
		return "localhost"
	}
	return b.Host
}

// ValidProtocol reports whether Protocol is http or https, case-insensitive.
func (b Binding) ValidProtocol() bool {
	return protocolPattern.MatchString(b.Protocol)
}

// protocolEquals compares protocols case-insensitively.
func protocolEquals(a, b string) bool {
	return strings.EqualFold(a, b)
}

// hostContains reports whether needle is a case-insensitive substring of
// host. An empty needle matches nothing, mirroring "no host preference
// configured".
func hostContains(host, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(host), strings.ToLower(needle))
}

// Preferred scans bindings in source order and returns the one selected by
// the four-rule priority order: an exact protocol+host match locks
// immediately; a host-only match is held but can still be overridden by a
// later exact match; a protocol-only match is held only if no host match has
// been taken yet; otherwise the last binding in source order wins. bindings
// must be non-empty.
func Preferred(bindings []Binding, prefProto, prefHost string) Binding {
	var (
		held      Binding
		haveHost  bool
		haveProto bool
		locked    bool
	)

	for _, b := range bindings {
		if locked {
			break
		}

		protoMatch := protocolEquals(b.Protocol, prefProto)
		hostMatch := hostContains(b.Host, prefHost)

		switch {
		case protoMatch && hostMatch:
			held = b
			locked = true
		case hostMatch && !haveHost:
			held = b
			haveHost = true
		case protoMatch && !haveHost && !haveProto:
			held = b
			haveProto = true
		}
	}

	if locked || haveHost || haveProto {
		return held
	}

	return bindings[len(bindings)-1]
}
