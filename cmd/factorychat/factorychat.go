// Package factorychatcmder
package factorychatcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/factorychat/cmd/factorychat/ask"
	chatcmder "github.com/papercomputeco/factorychat/cmd/factorychat/chat"
	configcmder "github.com/papercomputeco/factorychat/cmd/factorychat/config"
	historycmder "github.com/papercomputeco/factorychat/cmd/factorychat/history"
	roomscmder "github.com/papercomputeco/factorychat/cmd/factorychat/rooms"
	servecmder "github.com/papercomputeco/factorychat/cmd/factorychat/serve"
	versioncmder "github.com/papercomputeco/factorychat/cmd/version"
)

const factorychatLongDesc string = `factorychat is a terminal client for the factory monitoring assistant.

Talk to the assistant using:
  factorychat chat           Start an interactive chat
  factorychat ask            Ask a single question
  factorychat rooms          Browse and delete chat rooms
  factorychat history        Print a room's conversation

Run services using:
  factorychat serve mock     Run a mock chat backend
  factorychat serve mcp      Run an MCP server for agents
  factorychat serve          Run both together`

const factorychatShortDesc string = "factorychat - Factory Assistant Client"

func NewFactorychatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "factorychat",
		Short:        factorychatShortDesc,
		Long:         factorychatLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .factorychat/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(roomscmder.NewRoomsCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
