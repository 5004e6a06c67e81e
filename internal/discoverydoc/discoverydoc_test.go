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

package discoverydoc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/iischeck/internal/binding"
	"github.com/nabbar/iischeck/internal/discoverydoc"
	"github.com/nabbar/iischeck/internal/inventory"
)

var _ = Describe("Build and Marshal", func() {
	It("matches the documented single-site discovery document", func() {
		site := inventory.NewSite("Site1", true, []binding.Binding{
			{Addr: "*", Port: "80", Host: "localhost", Protocol: "http"},
		}, "http", "localhost")

		doc := discoverydoc.Build([]inventory.Site{site})
		raw, err := discoverydoc.Marshal(doc)
		Expect(err).ToNot(HaveOccurred())

		Expect(string(raw)).To(Equal(
			`{"data":[{"{#SITE_NAME}":"Site1","{#SITE_START}":"auto","{#SITE_PROTO}":"http","{#SITE_HOST}":"localhost","{#SITE_ALL_HOSTS}":"localhost","{#SITE_PORT}":"80","{#SITE_ADDR}":"*"}]}`,
		))
	})

	It("emits an empty data array for an empty inventory", func() {
		doc := discoverydoc.Build(nil)
		raw, err := discoverydoc.Marshal(doc)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(raw)).To(Equal(`{"data":[]}`))
	})
})
