package sse_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factorychat/pkg/sse"
)

var _ = Describe("ExtractNextFrame", func() {
	It("returns false for an empty buffer", func() {
		_, rest, ok := sse.ExtractNextFrame("")
		Expect(ok).To(BeFalse())
		Expect(rest).To(BeEmpty())
	})

	It("returns false when no delimiter is present", func() {
		_, rest, ok := sse.ExtractNextFrame("data: partial")
		Expect(ok).To(BeFalse())
		Expect(rest).To(Equal("data: partial"))
	})

	It("splits on a bare newline delimiter", func() {
		frame, rest, ok := sse.ExtractNextFrame("data: a\n\ndata: b")
		Expect(ok).To(BeTrue())
		Expect(frame).To(Equal("data: a"))
		Expect(rest).To(Equal("data: b"))
	})

	It("splits on a CRLF delimiter", func() {
		frame, rest, ok := sse.ExtractNextFrame("data: a\r\n\r\ndata: b\r\n\r\n")
		Expect(ok).To(BeTrue())
		Expect(frame).To(Equal("data: a"))
		Expect(rest).To(Equal("data: b\r\n\r\n"))
	})

	It("picks whichever delimiter comes first", func() {
		frame, rest, ok := sse.ExtractNextFrame("data: a\r\n\r\ndata: b\n\n")
		Expect(ok).To(BeTrue())
		Expect(frame).To(Equal("data: a"))
		Expect(rest).To(Equal("data: b\n\n"))

		frame, rest, ok = sse.ExtractNextFrame("data: a\n\ndata: b\r\n\r\n")
		Expect(ok).To(BeTrue())
		Expect(frame).To(Equal("data: a"))
		Expect(rest).To(Equal("data: b\r\n\r\n"))
	})

	It("yields one frame per delimiter", func() {
		buf := "data: 1\n\ndata: 2\r\n\r\ndata: 3\n\n"
		count := 0
		for {
			_, rest, ok := sse.ExtractNextFrame(buf)
			if !ok {
				break
			}
			count++
			buf = rest
		}
		Expect(count).To(Equal(3))
		Expect(buf).To(BeEmpty())
	})
})

var _ = Describe("ExtractPayload", func() {
	DescribeTable("payload extraction",
		func(frame string, expected string, expectedOK bool) {
			payload, ok := sse.ExtractPayload(frame)
			Expect(ok).To(Equal(expectedOK))
			Expect(payload).To(Equal(expected))
		},
		Entry("single data line", `data: {"answer":"hi"}`, `{"answer":"hi"}`, true),
		Entry("no space after colon", `data:{"answer":"hi"}`, `{"answer":"hi"}`, true),
		Entry("multiple data lines joined", "data: {\"a\":\ndata: 1}", "{\"a\":\n1}", true),
		Entry("non data fields ignored", "event: message\nid: 3\ndata: x", "x", true),
		Entry("carriage returns removed", "data: x\r\ndata: y\r", "x\ny", true),
		Entry("bare payload without data lines", `{"answer":"raw"}`, `{"answer":"raw"}`, true),
		Entry("done sentinel", "data: [DONE]", "", false),
		Entry("blank data", "data:   ", "", false),
		Entry("empty frame", "", "", false),
	)
})
