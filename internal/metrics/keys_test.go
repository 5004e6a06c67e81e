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

package metrics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/iischeck/internal/metrics"
)

var _ = Describe("StateKey", func() {
	It("wraps the site name in the documented key grammar", func() {
		Expect(metrics.StateKey("Default Web Site")).To(Equal("iis.site.state[Default Web Site]"))
	})
})

var _ = Describe("ProbeKey", func() {
	It("leaves a single hostname unquoted", func() {
		k := metrics.ProbeKey("https", "a", "443", "1.2.3.4", []string{"a"})
		Expect(k).To(Equal("iis.site.probe[https,a,443,1.2.3.4,a]"))
	})

	It("quotes the allhosts token when it contains a comma", func() {
		k := metrics.ProbeKey("https", "a", "443", "1.2.3.4", []string{"a", "b"})
		Expect(k).To(Equal(`iis.site.probe[https,a,443,1.2.3.4,"a,b"]`))
	})
})
