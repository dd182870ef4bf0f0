// Package historycmder provides the history command for printing a room's
// stored conversation.
package historycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/factorychat/cmd/factorychat/deps"
	"github.com/papercomputeco/factorychat/pkg/cliui"
	"github.com/papercomputeco/factorychat/pkg/config"
	"github.com/papercomputeco/factorychat/pkg/dotdir"
	"github.com/papercomputeco/factorychat/pkg/logger"
	"github.com/papercomputeco/factorychat/pkg/session"
)

type historyCommander struct {
	raw   bool
	debug bool

	logger *zap.Logger
}

type historyLoader interface {
	LoadHistory(ctx context.Context, roomID string) ([]session.Message, error)
}

const historyLongDesc string = `Print the stored conversation of a room, oldest message first.

Without an argument the active room is shown. Output is rendered as
markdown when stdout is a terminal; --raw prints the markdown source.

Examples:
  factorychat history
  factorychat history 9007199254740993
  factorychat history --raw > transcript.md`

const historyShortDesc string = "Print a room's conversation"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [room-id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			roomID := ""
			if len(args) == 1 {
				roomID = args[0]
			}
			return cmder.run(cmd, roomID)
		},
	}

	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown without rendering")
	config.AddClientFlags(cmd)

	return cmd
}

func (c *historyCommander) run(cmd *cobra.Command, roomID string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfg, configDir, err := deps.ResolveConfig(cmd)
	if err != nil {
		return err
	}

	if roomID == "" {
		active, err := dotdir.NewManager().LoadActiveRoom(configDir)
		if err != nil {
			return err
		}
		if active == nil {
			return errors.New("no active room; pass a room id")
		}
		roomID = active.RoomID
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

	render := !c.raw && term.IsTerminal(int(os.Stdout.Fd()))
	return printHistory(cmd.Context(), d.Session, cmd.OutOrStdout(), roomID, render)
}

func printHistory(ctx context.Context, loader historyLoader, out io.Writer, roomID string, render bool) error {
	messages, err := loader.LoadHistory(ctx, roomID)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		fmt.Fprintf(out, "%s\n", cliui.DimStyle.Render("No messages in room "+roomID+"."))
		return nil
	}

	entries := make([][2]string, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, [2]string{string(m.Role), m.Content})
	}
	text := cliui.Transcript(entries)

	if render {
		rendered, err := cliui.RenderMarkdown(text)
		if err != nil {
			return fmt.Errorf("rendering history: %w", err)
		}
		text = rendered
	}

	_, err = fmt.Fprint(out, text)
	return err
}
