package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		Expect(Truncate("this is a long string", 10)).To(Equal("this is a …"))
	})

	It("counts runes rather than bytes", func() {
		Expect(Truncate("설비 가동률 알려줘", 5)).To(Equal("설비 가동…"))
	})
})

var _ = Describe("CollapseSpace", func() {
	It("collapses inner whitespace and trims the ends", func() {
		Expect(CollapseSpace("  line 3\n\n status\t now ")).To(Equal("line 3 status now"))
	})

	It("returns empty for blank input", func() {
		Expect(CollapseSpace(" \n\t")).To(BeEmpty())
	})
})
