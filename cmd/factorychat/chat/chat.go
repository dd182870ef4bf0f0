// Package chatcmder provides the chat command: an interactive session with
// the factory monitoring assistant.
package chatcmder

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/factorychat/cmd/factorychat/deps"
	"github.com/papercomputeco/factorychat/pkg/config"
	"github.com/papercomputeco/factorychat/pkg/dotdir"
	"github.com/papercomputeco/factorychat/pkg/logger"
)

type chatCommander struct {
	roomID  string
	newRoom bool
	debug   bool

	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive chat with the factory monitoring assistant.

The first question of a conversation creates a room on the chat backend and
names it after the question. Later questions go to the same room. Answers
are streamed to the terminal as they arrive.

The room a session talks to is remembered in the .factorychat/ directory,
so the next "factorychat chat" resumes it with its history. Use --new to
start a fresh conversation or --room to resume a specific room.

Inside the session, /help lists commands for switching rooms, paging the
room list and resending a failed message.

Examples:
  factorychat chat
  factorychat chat --new
  factorychat chat --room 9007199254740993
  factorychat chat --api-base-url http://localhost:8090`

const chatShortDesc string = "Interactive chat with the factory assistant"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd, os.Stdin, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.roomID, "room", "r", "", "Resume the given room")
	cmd.Flags().BoolVarP(&cmder.newRoom, "new", "n", false, "Start a new conversation")
	cmd.MarkFlagsMutuallyExclusive("room", "new")
	config.AddClientFlags(cmd)

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command, in *os.File, out io.Writer) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfg, configDir, err := deps.ResolveConfig(cmd)
	if err != nil {
		return err
	}

	d, err := deps.Build(cmd.Context(), deps.Options{Config: cfg, ConfigDir: configDir, Logger: c.logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			c.logger.Warn("closing client", zap.Error(err))
		}
	}()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	r := &repl{
		chat:        d.Session,
		rooms:       d.Rooms,
		active:      dotdirActive{manager: dotdir.NewManager(), dir: configDir},
		logger:      c.logger,
		in:          scanner,
		out:         out,
		interactive: term.IsTerminal(int(in.Fd())),
	}

	if err := r.start(cmd.Context(), c.roomID, c.newRoom); err != nil {
		return err
	}
	return r.loop(cmd.Context())
}
