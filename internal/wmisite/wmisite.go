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

// Package wmisite is the native management-API / external-command
// collaborator boundary: the only four properties anything here ever reads
// are a site's Name, ServerAutoStart, State and Bindings (test_wmi.py shows
// the original never asks the native API for anything else). The native
// collaborator is a pluggable interface, since no WMI/COM binding exists
// anywhere in the retrieval pack to ground a concrete implementation on —
// see DESIGN.md. The external-command collaborator is fully implemented
// here with os/exec, spawning the host shell with a fixed, minimal-profile
// script.
package wmisite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/nabbar/iischeck/internal/binding"
)

// RawBinding is one binding as reported by either collaborator: a protocol
// plus the colon-separated "address:port:host" triple the host reports it
// in.
type RawBinding struct {
	Protocol           string `json:"protocol"`
	BindingInformation string `json:"bindingInformation"`
}

// Binding parses BindingInformation ("address:port:host") into a
// binding.Binding, tolerating a missing trailing host segment.
func (r RawBinding) Binding() binding.Binding {
	parts := strings.SplitN(r.BindingInformation, ":", 3)
	b := binding.Binding{Protocol: r.Protocol}
	if len(parts) > 0 {
		b.Addr = parts[0]
	}
	if len(parts) > 1 {
		b.Port = parts[1]
	}
	if len(parts) > 2 {
		b.Host = parts[2]
	}
	return b
}

// RawSite is one site record as reported by either collaborator.
type RawSite struct {
	Name            string       `json:"name"`
	ServerAutoStart bool         `json:"serverAutoStart"`
	Bindings        []RawBinding `json:"bindings"`
}

// Enumerator is the native management-API inventory collaborator.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]RawSite, error)
}

// StateQuerier is the native management-API state-query collaborator; the
// returned int is the raw 0..4 state code, or a negative value with
// notFound true when the site was not found.
type StateQuerier interface {
	State(ctx context.Context, name string) (state int, notFound bool, err error)
}

// Native is the Enumerator/StateQuerier pair used when the configured
// method is "wmi".
type Native interface {
	Enumerator
	StateQuerier
}

// nativeUnsupported is the default Native used when nothing else was
// injected: it reports the platform limitation explicitly rather than
// fabricating WMI data.
type nativeUnsupported struct{}

// NewNativeUnsupported returns the default Native collaborator: every call
// fails with ErrorNativeUnsupported. Production builds targeting a real
// Windows host inject their own Native implementation satisfying this same
// interface instead of using this one.
func NewNativeUnsupported() Native {
	return nativeUnsupported{}
}

func (nativeUnsupported) Enumerate(_ context.Context) ([]RawSite, error) {
	return nil, ErrorNativeUnsupported.Error(nil)
}

func (nativeUnsupported) State(_ context.Context, _ string) (int, bool, error) {
	return 0, false, ErrorNativeUnsupported.Error(nil)
}

// inventoryScript and stateScript are the fixed, minimal-profile commands
// run by the external-command collaborator; they are intentionally simple
// one-liners with no external module dependency, mirroring the "fixed,
// minimal-profile script" requirement.
const (
	inventoryScript = `Get-Website | Select-Object Name,@{N='ServerAutoStart';E={$_.serverAutoStart}},@{N='Bindings';E={$_.Bindings.Collection | ForEach-Object {@{protocol=$_.protocol;bindingInformation=$_.bindingInformation}}}} | ConvertTo-Json -Compress`
	stateScriptFmt  = `Get-Website -Name '%s' | Select-Object State | ConvertTo-Json -Compress`
)

// Command is the external-command ("ps") collaborator: it spawns the host
// shell with a fixed script and parses its JSON stdout, matching the
// documented field shapes case-insensitively.
type Command struct {
	// Shell and Args select the interpreter; defaults to PowerShell with a
	// bypassed profile and execution policy when left zero-valued.
	Shell string
	Args  []string
}

// NewCommand returns a Command configured for the documented PowerShell
// invocation ("no profile, bypassed execution policy").
func NewCommand() Command {
	return Command{
		Shell: "powershell",
		Args:  []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command"},
	}
}

// Enumerate runs the inventory script once and parses its JSON output. A
// parse failure is returned as an error; callers treat that as a transient,
// cycle-local failure per the discovery contract.
func (c Command) Enumerate(ctx context.Context) ([]RawSite, error) {
	out, err := c.run(ctx, inventoryScript)
	if err != nil {
		return nil, ErrorCommandFailed.Error(err)
	}

	var sites []RawSite
	if err = unmarshalCaseInsensitive(out, &sites); err != nil {
		return nil, ErrorCommandFailed.Error(err)
	}

	return sites, nil
}

// State runs the state script for one site name. An empty or unparsable
// result is reported as notFound rather than an error, per the state-query
// contract ("JSON failure → notfound").
func (c Command) State(ctx context.Context, name string) (string, bool) {
	out, err := c.run(ctx, sprintfScript(name))
	if err != nil {
		return "", true
	}

	var doc map[string]string
	if err = unmarshalCaseInsensitive(out, &doc); err != nil {
		return "", true
	}

	for k, v := range doc {
		if strings.EqualFold(k, "state") {
			return strings.ToLower(v), false
		}
	}

	return "", true
}

func sprintfScript(name string) string {
	escaped := strings.ReplaceAll(name, "'", "''")
	return fmt.Sprintf(stateScriptFmt, escaped)
}

func (c Command) run(ctx context.Context, script string) ([]byte, error) {
	shell, base := c.Shell, c.Args
	if shell == "" {
		d := NewCommand()
		shell, base = d.Shell, d.Args
	}
	args := append(append([]string{}, base...), script)

	cmd := exec.CommandContext(ctx, shell, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// unmarshalCaseInsensitive decodes raw into v, matching object keys
// case-insensitively, per spec's "JSON keys are matched case-insensitively"
// requirement. Go's own encoding/json already matches struct-tagged fields
// case-insensitively, so this is only needed for the map[string]string
// shape State uses internally — handled directly in State rather than
// here.
func unmarshalCaseInsensitive(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}
