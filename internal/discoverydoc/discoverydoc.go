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

// Package discoverydoc builds the discovery-mode stdout document: one
// low-level-discovery-rule-shaped JSON object per site, in the field order
// the original lld script emitted — an ordered struct rather than a map,
// since Go map iteration order would scramble it on every run.
package discoverydoc

import (
	"encoding/json"
	"strings"

	"github.com/nabbar/iischeck/internal/inventory"
)

// Entry is one site's discovery-rule record. Field order matches the
// documented stdout shape exactly: name, start mode, then the preferred
// binding's proto/host/all-hosts/port/addr.
type Entry struct {
	Name     string `json:"{#SITE_NAME}"`
	Start    string `json:"{#SITE_START}"`
	Proto    string `json:"{#SITE_PROTO}"`
	Host     string `json:"{#SITE_HOST}"`
	AllHosts string `json:"{#SITE_ALL_HOSTS}"`
	Port     string `json:"{#SITE_PORT}"`
	Addr     string `json:"{#SITE_ADDR}"`
}

// Document is the top-level stdout payload: {"data": [...]}.
type Document struct {
	Data []Entry `json:"data"`
}

// Build converts a Site Inventory snapshot into a Document, preserving the
// snapshot's source order.
func Build(sites []inventory.Site) Document {
	entries := make([]Entry, 0, len(sites))
	for _, s := range sites {
		start := "manual"
		if s.AutoStart {
			start = "auto"
		}

		entries = append(entries, Entry{
			Name:     s.Name,
			Start:    start,
			Proto:    s.Preferred.Protocol,
			Host:     s.Preferred.Host,
			AllHosts: strings.Join(s.Hostnames(), ","),
			Port:     s.Preferred.Port,
			Addr:     s.Preferred.Addr,
		})
	}

	return Document{Data: entries}
}

// Marshal encodes the Document as the literal stdout bytes, with no
// indentation — one compact JSON object, matching the original script's
// json.dumps default.
func Marshal(d Document) ([]byte, error) {
	return json.Marshal(d)
}
