package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factorychat/pkg/storage"
	"github.com/papercomputeco/factorychat/pkg/storage/sqlite"
)

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("implements storage.Driver", func() {
		var _ storage.Driver = driver
	})

	It("returns NotFoundError for a missing key", func() {
		_, err := driver.Get(ctx, "factory-chatbot.clientId")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("upserts values", func() {
		Expect(driver.Set(ctx, "chatRooms", "[]")).To(Succeed())
		Expect(driver.Set(ctx, "chatRooms", `[{"roomId":"1"}]`)).To(Succeed())

		v, err := driver.Get(ctx, "chatRooms")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(`[{"roomId":"1"}]`))
	})

	It("deletes values", func() {
		Expect(driver.Set(ctx, "k", "v")).To(Succeed())
		Expect(driver.Delete(ctx, "k")).To(Succeed())
		Expect(driver.Delete(ctx, "k")).To(Succeed())

		_, err := driver.Get(ctx, "k")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("persists values across reopen", func() {
		dir, err := os.MkdirTemp("", "sqlite-kv-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "factorychat.sqlite")

		first, err := sqlite.NewDriver(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Set(ctx, "k", "kept")).To(Succeed())
		Expect(first.Close()).To(Succeed())

		second, err := sqlite.NewDriver(path)
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()

		v, err := second.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("kept"))
	})
})
