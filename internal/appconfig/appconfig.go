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

// Package appconfig parses the top-level configuration object: the
// "_appglobal" section, the "_defaulthost" default probe section, and every
// other section as a per-site override keyed by "allhosts". Section order
// matters for sitecfg's hostname-intersection scan, so this package recovers
// insertion order from the raw document rather than trusting viper's
// settings map (Go map iteration order is not stable).
package appconfig

import (
	"bufio"
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	liberr "github.com/nabbar/iischeck/errors"
	"github.com/nabbar/iischeck/internal/sitecfg"
)

const (
	sectionAppGlobal  = "_appglobal"
	sectionDefaultHost = "_defaulthost"
)

// Global holds the "_appglobal" section: the options that drive the
// Supervisor, the Discoverer and the Sender's sink mode rather than any one
// site's probe behaviour.
type Global struct {
	Interval           int    `mapstructure:"interval"`
	LogFile            string `mapstructure:"logfile"`
	LogLevel           string `mapstructure:"loglevel"`
	DiscoveryMethod    string `mapstructure:"discovery_method"`
	DiscoveryPrefProto string `mapstructure:"discovery_prefproto"`
	DiscoveryPrefHost  string `mapstructure:"discovery_prefhost"`
	SenderType         string `mapstructure:"sender_type"`
	ZbxServer          string `mapstructure:"zbx_srv"`
	ZbxPort            int    `mapstructure:"zbx_port"`
	ZbxHost            string `mapstructure:"zbx_host"`
	CheckMethod        string `mapstructure:"check_method"`
}

// DefaultGlobal returns the documented defaults: a 300s tick interval,
// https as the preferred discovery protocol, and wmi for both discovery and
// state-query methods.
func DefaultGlobal() Global {
	return Global{
		Interval:           300,
		DiscoveryMethod:    "wmi",
		DiscoveryPrefProto: "https",
		SenderType:         "print",
		CheckMethod:        "wmi",
	}
}

// Config is the fully parsed top-level configuration: the app-global
// settings plus an ordered site-config resolver built from every other
// section.
type Config struct {
	Global   Global
	Resolver *sitecfg.Resolver
}

// Load unmarshals vpr's "_appglobal" key into Global (falling back to
// DefaultGlobal's values for anything unset) and builds a sitecfg.Resolver
// from every other top-level section, in the order recovered from raw.
// format selects how raw's section order is recovered: "json", "yaml", or
// "toml" (the three formats viper itself supports for this document).
func Load(vpr *viper.Viper, raw []byte, format string) (Config, liberr.Error) {
	g := DefaultGlobal()

	if vpr.IsSet(sectionAppGlobal) {
		if err := vpr.UnmarshalKey(sectionAppGlobal, &g); err != nil {
			return Config{}, ErrorConfigInvalid.Error(err)
		}
	}

	order := sectionOrder(raw, format)

	sections := make([]sitecfg.Section, 0, len(order))

	if vpr.IsSet(sectionDefaultHost) {
		sections = append(sections, sitecfg.Section{
			AllHosts: nil, // base layer merged before any per-site match, see sitecfg.Resolver.Resolve
			Values:   vpr.GetStringMap(sectionDefaultHost),
		})
	}

	for _, name := range order {
		if name == sectionAppGlobal || name == sectionDefaultHost {
			continue
		}
		if !vpr.IsSet(name) {
			continue
		}

		sections = append(sections, sitecfg.Section{
			AllHosts: splitHosts(name),
			Values:   vpr.GetStringMap(name),
		})
	}

	return Config{Global: g, Resolver: sitecfg.NewResolver(sections)}, nil
}

func splitHosts(allhosts string) []string {
	parts := strings.Split(allhosts, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// tomlYamlSection matches a TOML "[section]" header or a YAML top-level
// "section:" key — the two textual shapes a section name can take in the
// formats viper accepts for this document.
var tomlYamlSection = regexp.MustCompile(`^\[([^\[\]]+)\]$|^([^\s:#][^:]*):\s*(#.*)?$`)

// sectionOrder recovers the order top-level sections appear in the raw
// document. JSON objects preserve key order natively through a streaming
// decoder; TOML and YAML are recovered with a line scan since neither
// viper's nor encoding/json's map-based decode exposes ordering.
func sectionOrder(raw []byte, format string) []string {
	switch strings.ToLower(format) {
	case "json":
		return jsonTopLevelKeys(raw)
	default:
		return lineScanSections(raw)
	}
}

func lineScanSections(raw []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}

		m := tomlYamlSection.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		if m[1] != "" {
			out = append(out, m[1])
		} else if m[2] != "" {
			out = append(out, strings.TrimSpace(m[2]))
		}
	}
	return out
}

func jsonTopLevelKeys(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))

	// consume the opening '{' of the root object
	if _, err := dec.Token(); err != nil {
		return nil
	}

	var out []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if key, ok := tok.(string); ok {
			out = append(out, key)
		}

		// consume the value (scalar, object or array) without caring
		// about its shape, so the next Token() call lands on the next key
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			break
		}
	}

	return out
}
