package historycmder

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/factorychat/pkg/session"
)

type fakeLoader struct {
	messages []session.Message
	err      error
	roomID   string
}

func (f *fakeLoader) LoadHistory(_ context.Context, roomID string) ([]session.Message, error) {
	f.roomID = roomID
	return f.messages, f.err
}

var _ = Describe("printHistory", func() {
	It("prints the conversation as markdown", func() {
		loader := &fakeLoader{messages: []session.Message{
			{Role: session.RoleUser, Content: "How is line 3?"},
			{Role: session.RoleAssistant, Content: "Running at 98%."},
		}}

		var buf bytes.Buffer
		Expect(printHistory(context.Background(), loader, &buf, "7", false)).To(Succeed())

		Expect(loader.roomID).To(Equal("7"))
		Expect(buf.String()).To(Equal("### You\n\nHow is line 3?\n\n### Assistant\n\nRunning at 98%.\n"))
	})

	It("renders markdown on request", func() {
		loader := &fakeLoader{messages: []session.Message{{Role: session.RoleUser, Content: "hello"}}}

		var buf bytes.Buffer
		Expect(printHistory(context.Background(), loader, &buf, "7", true)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("hello"))
	})

	It("says when a room is empty", func() {
		var buf bytes.Buffer
		Expect(printHistory(context.Background(), &fakeLoader{}, &buf, "7", false)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("No messages in room 7."))
	})

	It("returns load failures", func() {
		loader := &fakeLoader{err: errors.New("loading history for room 7: boom")}
		Expect(printHistory(context.Background(), loader, &bytes.Buffer{}, "7", false)).To(MatchError(ContainSubstring("boom")))
	})
})

var _ = Describe("NewHistoryCmd", func() {
	It("requires an active room when no id is given", func() {
		root := &cobra.Command{Use: "factorychat"}
		root.PersistentFlags().Bool("debug", false, "")
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(NewHistoryCmd())

		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"history", "--config-dir", GinkgoT().TempDir()})
		Expect(root.Execute()).To(MatchError("no active room; pass a room id"))
	})
})
