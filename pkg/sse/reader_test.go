package sse_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factorychat/pkg/sse"
)

func readAll(r *sse.Reader) ([]string, error) {
	var out []string
	for {
		p, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		It("parses a single frame then returns io.EOF", func() {
			r := sse.NewReader(strings.NewReader("data: hello world\n\n"))

			p, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal("hello world"))

			_, err = r.Next()
			Expect(err).To(MatchError(io.EOF))
		})

		It("yields frames in arrival order across mixed delimiters", func() {
			r := sse.NewReader(strings.NewReader("data: 1\n\ndata: 2\r\n\r\ndata: 3\n\n"))
			payloads, err := readAll(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"1", "2", "3"}))
			Expect(r.Frames()).To(Equal(3))
		})

		It("reassembles frames delivered one byte at a time", func() {
			src := iotest.OneByteReader(strings.NewReader("data: first\r\n\r\ndata: second\n\n"))
			payloads, err := readAll(sse.NewReader(src))
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"first", "second"}))
		})

		It("finds a delimiter split at any read boundary", func() {
			stream := "data: a\r\n\r\ndata: b\n\ndata: c\r\n\r\n"
			for i := 1; i < len(stream); i++ {
				src := io.MultiReader(strings.NewReader(stream[:i]), strings.NewReader(stream[i:]))
				payloads, err := readAll(sse.NewReader(src))
				Expect(err).NotTo(HaveOccurred())
				Expect(payloads).To(Equal([]string{"a", "b", "c"}), "split at %d", i)
			}
		})

		It("reads a long frame trickled one byte at a time", func() {
			long := strings.Repeat("x", 256*1024)
			src := iotest.OneByteReader(strings.NewReader("data: " + long + "\n\ndata: tail\n\n"))
			payloads, err := readAll(sse.NewReader(src))
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{long, "tail"}))
		})

		It("decodes multi-byte runes split across reads", func() {
			src := iotest.OneByteReader(strings.NewReader("data: {\"roomName\":\"새 채팅\"}\n\n"))
			payloads, err := readAll(sse.NewReader(src))
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{`{"roomName":"새 채팅"}`}))
		})

		It("flushes a trailing frame without a delimiter", func() {
			r := sse.NewReader(strings.NewReader("data: a\n\ndata: tail"))
			payloads, err := readAll(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"a", "tail"}))
			Expect(r.Frames()).To(Equal(2))
		})

		It("ignores a blank trailing remainder", func() {
			r := sse.NewReader(strings.NewReader("data: a\n\n \n"))
			payloads, err := readAll(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"a"}))
			Expect(r.Frames()).To(Equal(1))
		})

		It("drops done sentinels and empty frames", func() {
			r := sse.NewReader(strings.NewReader("data: a\n\n\n\ndata: [DONE]\n\n"))
			payloads, err := readAll(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"a"}))
		})

		It("returns io.EOF for an empty stream", func() {
			_, err := sse.NewReader(strings.NewReader("")).Next()
			Expect(err).To(MatchError(io.EOF))
		})

		It("surfaces read errors", func() {
			boom := errors.New("boom")
			r := sse.NewReader(iotest.ErrReader(boom))
			_, err := r.Next()
			Expect(err).To(MatchError(boom))
		})
	})

	Describe("tee", func() {
		It("writes raw bytes verbatim to the destination", func() {
			raw := "data: one\r\n\r\n: comment\ndata: two\n\n"
			dst := &bytes.Buffer{}
			r := sse.NewTeeReader(strings.NewReader(raw), dst)

			payloads, err := readAll(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"one", "two"}))
			Expect(dst.String()).To(Equal(raw))
		})
	})
})
