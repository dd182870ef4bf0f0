// Package askcmder provides the ask command for one-shot questions.
package askcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/cmd/factorychat/deps"
	"github.com/papercomputeco/factorychat/pkg/chatapi"
	"github.com/papercomputeco/factorychat/pkg/chatstream"
	"github.com/papercomputeco/factorychat/pkg/cliui"
	"github.com/papercomputeco/factorychat/pkg/config"
	"github.com/papercomputeco/factorychat/pkg/dotdir"
	"github.com/papercomputeco/factorychat/pkg/logger"
	"github.com/papercomputeco/factorychat/pkg/session"
)

type askCommander struct {
	roomID    string
	continued bool
	debug     bool

	logger *zap.Logger
}

type chatter interface {
	CreateNewChat(ctx context.Context, content string, onChunk chatstream.ChunkHandler) session.CreateResult
	SendToExistingChat(ctx context.Context, roomID, content, tempID string, onChunk chatstream.ChunkHandler) session.SendResult
}

const askLongDesc string = `Ask the factory assistant a single question.

By default the question opens a new room, which becomes the active room
for "factorychat chat". Use --continue to ask in the active room or --room
to ask in a specific one. The answer is streamed to stdout.

Examples:
  factorychat ask "What is the status of line 3?"
  factorychat ask --continue "And line 4?"
  factorychat ask --room 9007199254740993 "Any alarms since noon?"`

const askShortDesc string = "Ask a single question"

// askTempID identifies the question until the backend assigns its id.
const askTempID = "pending-1"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.roomID, "room", "r", "", "Ask in the given room")
	cmd.Flags().BoolVarP(&cmder.continued, "continue", "c", false, "Ask in the active room")
	cmd.MarkFlagsMutuallyExclusive("room", "continue")
	config.AddClientFlags(cmd)

	return cmd
}

func (c *askCommander) run(cmd *cobra.Command, question string) error {
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

	ddm := dotdir.NewManager()
	roomID := c.roomID
	if c.continued {
		active, err := ddm.LoadActiveRoom(configDir)
		if err != nil {
			return err
		}
		if active == nil {
			return errors.New("no active room; ask without --continue to start one")
		}
		roomID = active.RoomID
	}

	room, err := ask(cmd.Context(), d.Session, cmd.OutOrStdout(), roomID, question)
	if err != nil {
		return err
	}

	if room != nil {
		if err := ddm.SaveActiveRoom(room, configDir); err != nil {
			c.logger.Warn("saving active room", zap.Error(err))
		}
	}
	return nil
}

// ask streams the answer to out. When it created a room, the room is
// returned so it can become the active one.
func ask(ctx context.Context, chat chatter, out io.Writer, roomID, question string) (*dotdir.ActiveRoom, error) {
	printer := cliui.NewAnswerPrinter(out)

	if roomID != "" {
		res := chat.SendToExistingChat(ctx, roomID, question, askTempID, printer.Handle)
		if !res.Success() {
			printer.Finish("")
			return nil, errors.New(chatapi.UserMessage(res.Err))
		}
		printer.Finish(res.AssistantMessage.Content)
		return nil, nil
	}

	res := chat.CreateNewChat(ctx, question, printer.Handle)
	if !res.Success() {
		printer.Finish("")
		return nil, errors.New(chatapi.UserMessage(res.Err))
	}

	answer := ""
	for _, m := range res.Thread.Messages {
		if m.Role == session.RoleAssistant {
			answer = m.Content
		}
	}
	printer.Finish(answer)

	fmt.Fprintf(out, "%s %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(res.RoomName),
		cliui.IDStyle.Render(res.Thread.ID),
	)
	return &dotdir.ActiveRoom{RoomID: res.Thread.ID, RoomName: res.RoomName}, nil
}
