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

package metrics

import (
	"fmt"
	"strings"
)

// StateKey builds the state metric key for a site name.
func StateKey(name string) string {
	return fmt.Sprintf("iis.site.state[%s]", name)
}

// ProbeKey builds the probe metric key for one binding. hostnames must
// already be sorted, de-duplicated and lowercased (inventory.Site.Hostnames
// does this); the joined token is wrapped in double quotes only when it
// contains a comma, per the documented key grammar.
func ProbeKey(proto, host, port, addr string, hostnames []string) string {
	return fmt.Sprintf("iis.site.probe[%s,%s,%s,%s,%s]", proto, host, port, addr, allhostsToken(hostnames))
}

func allhostsToken(hostnames []string) string {
	joined := strings.Join(hostnames, ",")
	if strings.Contains(joined, ",") {
		return `"` + joined + `"`
	}
	return joined
}
