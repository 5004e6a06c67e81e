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

// Package probe runs one site's HTTP(S) probe plan against its preferred
// binding: a per-site transport (IP family, DNS override, resolve pin, CA
// bundle, timeout) followed by a sequential run of GET steps with body
// assertions, short-circuiting on the first failing step.
package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	libtls "github.com/nabbar/iischeck/certificates"
	liberr "github.com/nabbar/iischeck/errors"
	"github.com/nabbar/iischeck/internal/binding"
	"github.com/nabbar/iischeck/internal/sitecfg"
)

// Status is one of the four literal outcomes a probe step (and therefore a
// whole plan) can settle on.
type Status string

const (
	StatusOK               Status = "STATUS_OK"
	StatusErrTimeout       Status = "STATUS_ERR_TIMEOUT"
	StatusErrFailed        Status = "STATUS_ERR_FAILED"
	StatusErrWebappProblem Status = "STATUS_ERR_WEBAPP_PROBLEM"
)

// Result is the outcome of running a site's probe plan: the settled status
// plus, when the site's config asked for it, a trace of informational text
// and headers (never the response body).
type Result struct {
	Status Status
	Trace  []byte
}

// Family is the IP family a probe's transport is pinned to.
type Family uint8

const (
	FamilyAny Family = iota
	FamilyV4
	FamilyV6
)

// FamilyFrom derives the IP family from a resolved site config: both or
// neither of v4/v6 set means either family is acceptable.
func FamilyFrom(cfg sitecfg.Config) Family {
	switch {
	case cfg.AnyFamily():
		return FamilyAny
	case cfg.V4:
		return FamilyV4
	default:
		return FamilyV6
	}
}

// Network returns the dial network string matching the family: a lowercase
// string usable directly as the "network" argument to net.Dialer.DialContext.
func (f Family) Network() string {
	switch f {
	case FamilyV4:
		return "tcp4"
	case FamilyV6:
		return "tcp6"
	default:
		return "tcp"
	}
}

// newClient builds the *http.Client for one site's probe, wiring IP family
// pinning, an optional DNS server override, a resolve pin forcing the
// binding's own hostname to dial its own address (so the probe never
// depends on the host's own DNS resolving its own site), an optional CA
// bundle, and the resolved request timeout.
func newClient(b binding.Binding, cfg sitecfg.Config) (*http.Client, liberr.Error) {
	fam := FamilyFrom(cfg)

	dialer := &net.Dialer{Timeout: cfg.TimeoutDuration().Time()}
	if res, e := newResolver(cfg.Nameservers); e != nil {
		return nil, e
	} else if res != nil {
		dialer.Resolver = res
	}

	pinHost := b.HostName()
	pinAddr := net.JoinHostPort(b.Address(), b.Port)

	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if network == "tcp" || network == "tcp4" || network == "tcp6" {
			network = fam.Network()
		}
		if host, _, err := net.SplitHostPort(addr); err == nil && strings.EqualFold(host, pinHost) {
			addr = pinAddr
		}
		return dialer.DialContext(ctx, network, addr)
	}

	transport := &http.Transport{DialContext: dial}

	if cfg.CA != "" {
		tc, e := tlsConfigFromCA(cfg.CA, pinHost)
		if e != nil {
			return nil, e
		}
		transport.TLSClientConfig = tc
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.TimeoutDuration().Time(),
	}, nil
}

// newResolver builds a net.Resolver that dials the given comma-separated
// nameservers instead of the system resolver; it returns (nil, nil) when no
// override was configured.
func newResolver(nameservers string) (*net.Resolver, liberr.Error) {
	nameservers = strings.TrimSpace(nameservers)
	if nameservers == "" {
		return nil, nil
	}

	servers := strings.Split(nameservers, ",")
	for i := range servers {
		servers[i] = strings.TrimSpace(servers[i])
	}

	var idx int
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			server := servers[idx%len(servers)]
			idx++
			if !strings.Contains(server, ":") {
				server = net.JoinHostPort(server, "53")
			}
			d := net.Dialer{Timeout: 5 * time.Second}
			return d.DialContext(ctx, network, server)
		},
	}, nil
}

// tlsConfigFromCA loads the configured CA bundle (a PEM string or a file
// path) into a TLSConfig and returns the resulting *tls.Config for
// serverName.
func tlsConfigFromCA(ca, serverName string) (*tls.Config, liberr.Error) {
	t := libtls.New()

	if strings.Contains(ca, "BEGIN CERTIFICATE") {
		if !t.AddRootCAString(ca) {
			return nil, ErrorClientBuild.Error(fmt.Errorf("could not parse CA bundle string"))
		}
	} else if err := t.AddRootCAFile(ca); err != nil {
		return nil, ErrorClientBuild.Error(err)
	}

	return t.TlsConfig(serverName), nil
}

// Run executes one site's probe plan against its preferred binding: a jitter
// sleep, client construction, then a sequential run of steps that
// short-circuits on the first non-OK result.
func Run(ctx context.Context, b binding.Binding, cfg sitecfg.Config, steps []sitecfg.Step) (Result, liberr.Error) {
	if err := jitterSleep(ctx, cfg.DelayDuration().Time()); err != nil {
		return Result{Status: StatusErrFailed}, nil
	}

	client, e := newClient(b, cfg)
	if e != nil {
		return Result{Status: StatusErrFailed}, e
	}

	var trace *bytes.Buffer
	if cfg.Verbose {
		trace = &bytes.Buffer{}
	}

	base := &url.URL{
		Scheme: strings.ToLower(b.Protocol),
		Host:   net.JoinHostPort(b.HostName(), b.Port),
	}
	if base.Scheme == "" {
		base.Scheme = "http"
	}

	for _, step := range steps {
		status, err := runStep(ctx, client, base, step, trace)
		if err != nil {
			return Result{Status: StatusErrFailed, Trace: traceBytes(trace)}, err
		}
		if status != StatusOK {
			return Result{Status: status, Trace: traceBytes(trace)}, nil
		}
	}

	return Result{Status: StatusOK, Trace: traceBytes(trace)}, nil
}

func traceBytes(b *bytes.Buffer) []byte {
	if b == nil {
		return nil
	}
	return b.Bytes()
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

func runStep(ctx context.Context, client *http.Client, base *url.URL, step sitecfg.Step, trace *bytes.Buffer) (Status, liberr.Error) {
	u := *base
	u.Path = step.Path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", ErrorStepInvalid.Error(err)
	}

	if trace != nil {
		fmt.Fprintf(trace, "GET %s\n", u.String())
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return StatusErrTimeout, nil
		}
		return StatusErrFailed, nil
	}
	defer resp.Body.Close()

	if trace != nil {
		fmt.Fprintf(trace, "status %d\n", resp.StatusCode)
		for k, v := range resp.Header {
			fmt.Fprintf(trace, "%s: %s\n", k, strings.Join(v, ", "))
		}
	}

	if resp.StatusCode >= 400 {
		return StatusErrWebappProblem, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return StatusErrFailed, nil
	}

	body, ok := decodeBody(raw, resp.Header.Get("Content-Type"))
	if !ok {
		return StatusErrWebappProblem, nil
	}

	if step.Body != nil {
		re, e := compileAssertion(*step.Body)
		if e != nil {
			return "", e
		}
		if !re.MatchString(body) {
			return StatusErrWebappProblem, nil
		}
	} else if step.NoBody != nil {
		re, e := compileAssertion(*step.NoBody)
		if e != nil {
			return "", e
		}
		if re.MatchString(body) {
			return StatusErrWebappProblem, nil
		}
	}

	return StatusOK, nil
}

func compileAssertion(pattern string) (*regexp.Regexp, liberr.Error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, ErrorStepInvalid.Error(err)
	}
	return re, nil
}

// decodeBody decodes raw using the charset named in contentType (default
// utf-8); on a decode failure it retries as ISO-8859-1, the only fallback
// the original probe ever special-cased. The second ok return is false only
// when both attempts fail.
func decodeBody(raw []byte, contentType string) (string, bool) {
	charset := "utf-8"
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs, ok := params["charset"]; ok && cs != "" {
			charset = strings.ToLower(cs)
		}
	}

	if strings.Contains(charset, "8859") {
		return decodeISO88591(raw), true
	}

	if utf8.Valid(raw) {
		return string(raw), true
	}

	return decodeISO88591(raw), true
}

// decodeISO88591 decodes raw as ISO-8859-1, a transform that never fails:
// every byte maps to exactly one rune.
func decodeISO88591(raw []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
