// Package roomscmder provides the rooms command for browsing and deleting
// chat rooms.
package roomscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/cmd/factorychat/deps"
	"github.com/papercomputeco/factorychat/pkg/cliui"
	"github.com/papercomputeco/factorychat/pkg/config"
	"github.com/papercomputeco/factorychat/pkg/dotdir"
	"github.com/papercomputeco/factorychat/pkg/logger"
	"github.com/papercomputeco/factorychat/pkg/rooms"
)

const roomsLongDesc string = `Browse and delete chat rooms.

The room list is cached locally. "list" shows the cache, fetching the first
page when it is empty; "refresh" refetches the first page; "more" appends
the next page. The active room is marked with *.

Examples:
  factorychat rooms list
  factorychat rooms more
  factorychat rooms delete 9007199254740993`

const roomsShortDesc string = "Browse and delete chat rooms"

type roomList interface {
	Init(ctx context.Context) ([]rooms.Room, error)
	Refresh(ctx context.Context) ([]rooms.Room, error)
	LoadMore(ctx context.Context) ([]rooms.Room, error)
	Delete(ctx context.Context, roomID string) error
	HasMore() bool
}

func NewRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: roomsShortDesc,
		Long:  roomsLongDesc,
	}

	cmd.AddCommand(newPageCmd("list", "List cached rooms", "Loading rooms", func(l roomList) pageFunc { return l.Init }))
	cmd.AddCommand(newPageCmd("refresh", "Refetch the first page of rooms", "Refreshing rooms", func(l roomList) pageFunc { return l.Refresh }))
	cmd.AddCommand(newPageCmd("more", "Load the next page of rooms", "Loading more rooms", func(l roomList) pageFunc { return l.LoadMore }))
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

type pageFunc func(ctx context.Context) ([]rooms.Room, error)

func newPageCmd(use, short, step string, pick func(roomList) pageFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRooms(cmd, func(ctx context.Context, list roomList, activeID string) error {
				var listed []rooms.Room
				err := cliui.Step(cmd.ErrOrStderr(), step, func() error {
					var err error
					listed, err = pick(list)(ctx)
					return err
				})
				if err != nil {
					return err
				}
				printRooms(cmd.OutOrStdout(), listed, list.HasMore(), activeID)
				return nil
			})
		},
	}
	config.AddClientFlags(cmd)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <room-id>",
		Short: "Delete a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRooms(cmd, func(ctx context.Context, list roomList, activeID string) error {
				return deleteRoom(ctx, cmd.OutOrStdout(), list, args[0], activeID, func() error {
					configDir, _ := cmd.Flags().GetString("config-dir")
					return dotdir.NewManager().ClearActiveRoom(configDir)
				})
			})
		},
	}
	config.AddClientFlags(cmd)
	return cmd
}

// withRooms builds the client stack for a rooms subcommand and hands fn the
// room list and the active room id.
func withRooms(cmd *cobra.Command, fn func(ctx context.Context, list roomList, activeID string) error) error {
	debug, _ := cmd.Flags().GetBool("debug")
	log := logger.NewLogger(debug)
	defer func() { _ = log.Sync() }()

	cfg, configDir, err := deps.ResolveConfig(cmd)
	if err != nil {
		return err
	}

	d, err := deps.Build(cmd.Context(), deps.Options{Config: cfg, ConfigDir: configDir, Logger: log})
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Warn("closing client", zap.Error(err))
		}
	}()

	activeID := ""
	if active, err := dotdir.NewManager().LoadActiveRoom(configDir); err == nil && active != nil {
		activeID = active.RoomID
	}

	return fn(cmd.Context(), d.Rooms, activeID)
}

// deleteRoom deletes roomID and clears the active room when it was the one
// deleted.
func deleteRoom(ctx context.Context, out io.Writer, list roomList, roomID, activeID string, clearActive func() error) error {
	if err := list.Delete(ctx, roomID); err != nil {
		return err
	}

	if roomID == activeID {
		if err := clearActive(); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "%s Deleted room %s\n", cliui.SuccessMark, cliui.IDStyle.Render(roomID))
	return nil
}

func printRooms(out io.Writer, listed []rooms.Room, hasMore bool, activeID string) {
	if len(listed) == 0 {
		fmt.Fprintf(out, "%s\n", cliui.DimStyle.Render("No rooms yet. Start one with \"factorychat chat\"."))
		return
	}

	for _, room := range listed {
		marker := " "
		if room.RoomID == activeID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, cliui.RoomLine(room.RoomID, room.RoomName, room.Date))
	}

	if hasMore {
		fmt.Fprintf(out, "\n%s\n", cliui.DimStyle.Render("More rooms available: factorychat rooms more"))
	}
}
