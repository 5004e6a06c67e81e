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

// Package inventory holds the Site Inventory: the single-writer, many-reader
// cache of discovered sites. The Discoverer is the only writer; it replaces
// the whole inventory on every refresh rather than editing it incrementally,
// and readers always observe a fully-built slice because each refresh is
// published with one atomic Store.
package inventory

import (
	"sort"
	"strings"

	libatm "github.com/nabbar/iischeck/atomic"
	"github.com/nabbar/iischeck/internal/binding"
)

// Site is one discovered site: an immutable value once constructed. Bindings
// is non-empty whenever Preferred is meaningful.
type Site struct {
	Name      string
	AutoStart bool
	Bindings  []binding.Binding
	Preferred binding.Binding
}

// NewSite selects the preferred binding per the binding package's priority
// rule and returns the resulting immutable Site.
func NewSite(name string, autoStart bool, bindings []binding.Binding, prefProto, prefHost string) Site {
	s := Site{Name: name, AutoStart: autoStart, Bindings: bindings}
	if len(bindings) > 0 {
		s.Preferred = binding.Preferred(bindings, prefProto, prefHost)
	}
	return s
}

// Hostnames returns the sorted, de-duplicated, lowercased set of hostnames
// across all of the site's bindings — the "allhosts" value used both for
// per-site configuration lookup and for metric key construction.
func (s Site) Hostnames() []string {
	seen := make(map[string]struct{}, len(s.Bindings))
	for _, b := range s.Bindings {
		h := strings.ToLower(b.HostName())
		seen[h] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)

	return out
}

// Inventory is the Site Inventory contract: reset empties it, add appends to
// it, and snapshot returns a consistent, independent view. Readers never
// observe a torn state because each published slice is immutable once
// stored.
type Inventory interface {
	// Reset empties the inventory, starting a new build.
	Reset()
	// Add appends one site to the inventory being built.
	Add(site Site)
	// Snapshot returns the current, immutable view in source order.
	Snapshot() []Site
}

type inv struct {
	cur libatm.Value[[]Site]
	bld []Site
}

// New returns an empty Inventory.
func New() Inventory {
	i := &inv{
		cur: libatm.NewValue[[]Site](),
	}
	i.cur.Store([]Site{})
	return i
}

// Reset starts a fresh build buffer and publishes it at once, so readers
// see an empty snapshot until the next Add.
func (i *inv) Reset() {
	i.bld = make([]Site, 0)
	i.cur.Store(i.bld)
}

// Add appends to the build buffer and republishes it atomically, so a
// concurrent Snapshot never observes a half-appended slice: each Store
// publishes a brand-new backing array.
func (i *inv) Add(site Site) {
	next := make([]Site, len(i.bld)+1)
	copy(next, i.bld)
	next[len(i.bld)] = site
	i.bld = next
	i.cur.Store(i.bld)
}

// Snapshot returns the most recently published view, in source order.
func (i *inv) Snapshot() []Site {
	return i.cur.Load()
}
