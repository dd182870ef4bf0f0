// Package versioncmder
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/factorychat/pkg/cliui"
	"github.com/papercomputeco/factorychat/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version, commit and build time of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printVersion(cmd.OutOrStdout())
			return nil
		},
	}
}

func printVersion(out io.Writer) {
	for _, kv := range [][2]string{
		{"Version:", utils.Version},
		{"Sha:", utils.Sha},
		{"Built at:", utils.Buildtime},
	} {
		fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render(kv[0]), cliui.ValueStyle.Render(kv[1]))
	}
}
