package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factorychat/pkg/dotdir"
)

var _ = Describe("dotdir.Manager active room", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	It("returns nil when no room is active", func() {
		room, err := m.LoadActiveRoom(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(room).To(BeNil())
	})

	It("saves and loads the active room", func() {
		saved := &dotdir.ActiveRoom{RoomID: "12345678901234567890", RoomName: "라인 3 점검"}
		Expect(m.SaveActiveRoom(saved, tmpDir)).To(Succeed())

		loaded, err := m.LoadActiveRoom(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(saved))
	})

	It("overwrites the previous room", func() {
		Expect(m.SaveActiveRoom(&dotdir.ActiveRoom{RoomID: "1"}, tmpDir)).To(Succeed())
		Expect(m.SaveActiveRoom(&dotdir.ActiveRoom{RoomID: "2"}, tmpDir)).To(Succeed())

		loaded, err := m.LoadActiveRoom(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.RoomID).To(Equal("2"))
	})

	It("rejects rooms without an id", func() {
		Expect(m.SaveActiveRoom(nil, tmpDir)).NotTo(Succeed())
		Expect(m.SaveActiveRoom(&dotdir.ActiveRoom{RoomName: "x"}, tmpDir)).NotTo(Succeed())
	})

	It("returns error for invalid JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "active_room.json"), []byte("not json"), 0o600)).To(Succeed())

		room, err := m.LoadActiveRoom(tmpDir)
		Expect(err).To(HaveOccurred())
		Expect(room).To(BeNil())
	})

	It("clears the active room", func() {
		Expect(m.SaveActiveRoom(&dotdir.ActiveRoom{RoomID: "9"}, tmpDir)).To(Succeed())
		Expect(m.ClearActiveRoom(tmpDir)).To(Succeed())

		room, err := m.LoadActiveRoom(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(room).To(BeNil())

		Expect(m.ClearActiveRoom(tmpDir)).To(Succeed())
	})
})
