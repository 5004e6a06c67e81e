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

// Package sitecfg resolves per-site probe configuration by scanning the
// parsed config's sections in insertion order and taking the first one whose
// hostname set intersects the site's own hostnames, falling back to the
// default-host section.
package sitecfg

import (
	"encoding/json"
	"fmt"
	"strings"

	libval "github.com/go-playground/validator/v10"

	libdur "github.com/nabbar/iischeck/duration"
	liberr "github.com/nabbar/iischeck/errors"
)

// Step is one probe-plan step: a path plus optional body assertions. Body
// takes precedence over NoBody when both are set; if neither is set, only
// the HTTP status code is checked.
type Step struct {
	Path   string  `json:"path" validate:"required"`
	Body   *string `json:"body,omitempty"`
	NoBody *string `json:"nobody,omitempty"`
}

// DefaultPlan is the probe plan used when a site config does not specify
// "path": a single unconditional GET of "/".
func DefaultPlan() []Step {
	return []Step{{Path: "/"}}
}

// ParsePlan decodes a probe-plan JSON document into its steps.
func ParsePlan(raw string) ([]Step, liberr.Error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultPlan(), nil
	}

	var steps []Step
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		e := ErrorParamInvalid.Error(err)
		return nil, e
	}

	if len(steps) == 0 {
		return DefaultPlan(), nil
	}

	return steps, nil
}

// Config is the resolved, validated per-site probe configuration (spec.md
// §3 "Site Configuration").
type Config struct {
	Path        string `mapstructure:"path"`
	Timeout     int    `mapstructure:"timeout" validate:"gte=0"`
	Delay       int    `mapstructure:"delay" validate:"gte=0"`
	Nameservers string `mapstructure:"nameservers"`
	V4          bool   `mapstructure:"v4"`
	V6          bool   `mapstructure:"v6"`
	CA          string `mapstructure:"ca"`
	Verbose     bool   `mapstructure:"verbose"`
}

// Default returns the documented default values: a single unconditional
// probe step, a 300s timeout, a 30s maximum jitter delay, and no IP-family
// restriction.
func Default() Config {
	return Config{
		Path:    "",
		Timeout: 300,
		Delay:   30,
	}
}

// TimeoutDuration converts Timeout to a Duration usable by the transport
// layer.
func (c Config) TimeoutDuration() libdur.Duration {
	return libdur.Seconds(int64(c.Timeout))
}

// DelayDuration converts Delay to a Duration, the upper bound of the
// pre-probe jitter sleep.
func (c Config) DelayDuration() libdur.Duration {
	return libdur.Seconds(int64(c.Delay))
}

// AnyFamily reports whether neither or both of V4/V6 were set, meaning the
// prober should accept either IP family.
func (c Config) AnyFamily() bool {
	return c.V4 == c.V6
}

// Validate runs struct-tag validation over the resolved config, following
// the teacher's validator/v10 + liberr.Error accumulation pattern.
func (c Config) Validate() liberr.Error {
	e := ErrorValidatorError.Error(nil)

	if err := libval.New().Struct(c); err != nil {
		if er, ok := err.(*libval.InvalidValidationError); ok {
			e.Add(er)
		} else if vErrs, ok := err.(libval.ValidationErrors); ok {
			for _, er := range vErrs {
				//nolint #goerr113
				e.Add(fmt.Errorf("site config field '%s' is not validated by constraint '%s'", er.Namespace(), er.ActualTag()))
			}
		}
	}

	if !e.HasParent() {
		return nil
	}

	return e
}

// Section is one raw config section as read from the underlying settings
// map: a set of hostnames (from "allhosts") plus the options recognized
// under that section.
type Section struct {
	AllHosts []string
	Values   map[string]interface{}
}

// Resolver scans sections in the order they were registered and resolves a
// site's configuration by the first section whose hostname set intersects
// the site's hostnames; unresolved fields fall back to defaults.
type Resolver struct {
	sections []Section
}

// NewResolver builds a Resolver over the given sections, preserving the
// order they are passed in — callers must derive that order from the
// underlying config source (e.g. raw TOML/YAML/JSON key order), since map
// iteration order is not a substitute.
func NewResolver(sections []Section) *Resolver {
	return &Resolver{sections: sections}
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, h := range a {
		set[strings.ToLower(h)] = struct{}{}
	}
	for _, h := range b {
		if _, ok := set[strings.ToLower(h)]; ok {
			return true
		}
	}
	return false
}

// Resolve returns the Config for a site with the given hostnames. A section
// registered with a nil/empty AllHosts is the default-host fallback: its
// values are merged in first as a base layer, regardless of position in
// registration order, since it matches every site rather than competing for
// the first-match slot. The first remaining section (in registration order)
// whose AllHosts intersects hostnames then overrides that base; if none
// match, the default-host layer (or Default() if there was none) stands.
func (r *Resolver) Resolve(hostnames []string) Config {
	cfg := Default()

	for _, sec := range r.sections {
		if len(sec.AllHosts) == 0 {
			applyValues(&cfg, sec.Values)
		}
	}

	for _, sec := range r.sections {
		if len(sec.AllHosts) == 0 {
			continue
		}
		if !intersects(sec.AllHosts, hostnames) {
			continue
		}

		applyValues(&cfg, sec.Values)
		return cfg
	}

	return cfg
}

func applyValues(cfg *Config, values map[string]interface{}) {
	if v, ok := values["path"].(string); ok {
		cfg.Path = v
	}
	if v, ok := asInt(values["timeout"]); ok {
		cfg.Timeout = v
	}
	if v, ok := asInt(values["delay"]); ok {
		cfg.Delay = v
	}
	if v, ok := values["nameservers"].(string); ok {
		cfg.Nameservers = v
	}
	if v, ok := values["v4"].(bool); ok {
		cfg.V4 = v
	}
	if v, ok := values["v6"].(bool); ok {
		cfg.V6 = v
	}
	if v, ok := values["ca"].(string); ok {
		cfg.CA = v
	}
	if v, ok := values["verbose"].(bool); ok {
		cfg.Verbose = v
	}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
