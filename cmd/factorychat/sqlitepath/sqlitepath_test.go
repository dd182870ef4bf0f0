package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveSQLitePath", func() {
	var (
		homeDir string
		cwdDir  string
		origCwd string
	)

	BeforeEach(func() {
		homeDir = GinkgoT().TempDir()
		cwdDir = GinkgoT().TempDir()

		GinkgoT().Setenv("HOME", homeDir)
		GinkgoT().Setenv("XDG_DATA_HOME", "")
		GinkgoT().Setenv("FACTORYCHAT_SQLITE", "")
		GinkgoT().Setenv("FACTORYCHAT_DB", "")

		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(cwdDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origCwd)).To(Succeed())
	})

	It("returns the override untouched", func() {
		path, err := ResolveSQLitePath("/tmp/override.db", "/state")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/override.db"))
	})

	It("prefers FACTORYCHAT_SQLITE over FACTORYCHAT_DB", func() {
		GinkgoT().Setenv("FACTORYCHAT_SQLITE", "/tmp/custom.db")
		GinkgoT().Setenv("FACTORYCHAT_DB", "/tmp/other.db")

		path, err := ResolveSQLitePath("", "/state")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("falls back to FACTORYCHAT_DB", func() {
		GinkgoT().Setenv("FACTORYCHAT_DB", "/tmp/other.db")

		path, err := ResolveSQLitePath("", "/state")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/other.db"))
	})

	It("resolves an existing ~/.factorychat database", func() {
		dbPath := filepath.Join(homeDir, ".factorychat", FileName)
		Expect(os.MkdirAll(filepath.Dir(dbPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		path, err := ResolveSQLitePath("", "/state")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(dbPath))
	})

	It("prefers an XDG data database", func() {
		xdg := GinkgoT().TempDir()
		GinkgoT().Setenv("XDG_DATA_HOME", xdg)

		dbPath := filepath.Join(xdg, "factorychat", FileName)
		Expect(os.MkdirAll(filepath.Dir(dbPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		path, err := ResolveSQLitePath("", "/state")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(dbPath))
	})

	It("places a new database in the state directory", func() {
		path, err := ResolveSQLitePath("", "/state")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join("/state", FileName)))
	})

	It("errors without a state directory", func() {
		_, err := ResolveSQLitePath("", "")
		Expect(err).To(MatchError(ContainSubstring("pass --sqlite")))
	})
})
