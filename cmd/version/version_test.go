package versioncmder

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factorychat/pkg/utils"
)

var _ = Describe("version", func() {
	It("prints the build metadata", func() {
		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})

		Expect(cmd.Execute()).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(utils.Version))
		Expect(buf.String()).To(ContainSubstring("Built at:"))
	})
})
