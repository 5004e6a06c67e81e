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

package wmisite_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/iischeck/internal/wmisite"
)

var _ = Describe("RawBinding.Binding", func() {
	It("parses address:port:host", func() {
		rb := wmisite.RawBinding{Protocol: "http", BindingInformation: "*:80:example.com"}
		b := rb.Binding()
		Expect(b.Addr).To(Equal("*"))
		Expect(b.Port).To(Equal("80"))
		Expect(b.Host).To(Equal("example.com"))
		Expect(b.Protocol).To(Equal("http"))
	})

	It("tolerates a missing host segment", func() {
		rb := wmisite.RawBinding{Protocol: "http", BindingInformation: "*:80"}
		b := rb.Binding()
		Expect(b.Host).To(Equal(""))
	})
})

var _ = Describe("Command", func() {
	It("parses an inventory document emitted by the configured shell", func() {
		c := wmisite.Command{Shell: "/bin/sh", Args: []string{"-c", `echo '[{"name":"Site1","serverAutoStart":true,"bindings":[{"protocol":"http","bindingInformation":"*:80:localhost"}]}]'; true #`}}
		sites, err := c.Enumerate(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(sites).To(HaveLen(1))
		Expect(sites[0].Name).To(Equal("Site1"))
		Expect(sites[0].ServerAutoStart).To(BeTrue())
		Expect(sites[0].Bindings).To(HaveLen(1))
	})

	It("returns an error when the shell invocation fails", func() {
		c := wmisite.Command{Shell: "/bin/sh", Args: []string{"-c", "exit 1 #"}}
		_, err := c.Enumerate(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("reports notFound on unparsable state output", func() {
		c := wmisite.Command{Shell: "/bin/sh", Args: []string{"-c", "echo not-json #"}}
		_, notFound := c.State(context.Background(), "Site1")
		Expect(notFound).To(BeTrue())
	})
})

var _ = Describe("NewNativeUnsupported", func() {
	It("reports the platform limitation on Enumerate and State", func() {
		n := wmisite.NewNativeUnsupported()

		_, err := n.Enumerate(context.Background())
		Expect(err).To(HaveOccurred())

		_, notFound, err := n.State(context.Background(), "Site1")
		Expect(err).To(HaveOccurred())
		Expect(notFound).To(BeFalse())
	})
})
