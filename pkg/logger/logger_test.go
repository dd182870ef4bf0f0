package logger_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/pkg/logger"
)

var _ = Describe("Logger", func() {
	It("writes info entries with fields", func() {
		var buf bytes.Buffer
		l := logger.NewLoggerWithWriters(false, &buf)
		l.Info("room created", zap.String("room_id", "12345678901234567890"))
		Expect(l.Sync()).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("room created"))
		Expect(buf.String()).To(ContainSubstring("12345678901234567890"))
	})

	It("filters debug entries unless debug is enabled", func() {
		var quiet, verbose bytes.Buffer
		logger.NewLoggerWithWriters(false, &quiet).Debug("chunk")
		logger.NewLoggerWithWriters(true, &verbose).Debug("chunk")

		Expect(quiet.String()).To(BeEmpty())
		Expect(verbose.String()).To(ContainSubstring("chunk"))
	})

	It("fans out to every writer", func() {
		var a, b bytes.Buffer
		logger.NewLoggerWithWriters(false, &a, &b).Warn("retrying")

		Expect(a.String()).To(ContainSubstring("retrying"))
		Expect(b.String()).To(ContainSubstring("retrying"))
	})

	It("provides a no-op logger", func() {
		Expect(func() { logger.Nop().Info("ignored") }).NotTo(Panic())
	})
})
