// Package servecmder provides the serve command with subcommands for running
// the mock backend and the MCP server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/api"
	"github.com/papercomputeco/factorychat/cmd/factorychat/deps"
	mcpcmder "github.com/papercomputeco/factorychat/cmd/factorychat/serve/mcp"
	mockcmder "github.com/papercomputeco/factorychat/cmd/factorychat/serve/mock"
	"github.com/papercomputeco/factorychat/pkg/config"
	"github.com/papercomputeco/factorychat/pkg/logger"
)

type ServeCommander struct {
	mockListen string
	mcpListen  string
	debug      bool
	opts       mockcmder.Options
	logger     *zap.Logger
}

const serveLongDesc string = `Run factorychat services.

Use subcommands to run individual services or all services together:
  factorychat serve          Run the mock backend and an MCP server that talks to it
  factorychat serve mock     Run just the mock chat backend
  factorychat serve mcp      Run just the MCP server`

const serveShortDesc string = "Run factorychat services"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.mockListen, "mock-listen", "m", "", "Address for the mock backend to listen on (default from mock.listen)")
	cmd.Flags().StringVarP(&cmder.mcpListen, "mcp-listen", "p", "", "Address for the MCP server to listen on (default from mcp.listen)")
	cmder.opts.AddFlags(cmd)
	config.AddClientFlags(cmd)

	cmd.AddCommand(mockcmder.NewMockCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd())

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfg, configDir, err := deps.ResolveConfig(cmd)
	if err != nil {
		return err
	}
	if c.mockListen == "" {
		c.mockListen = cfg.Mock.Listen
	}
	if c.mcpListen == "" {
		c.mcpListen = cfg.MCP.Listen
	}

	// Point the MCP server at the mock unless a backend was chosen explicitly.
	if !cmd.Flags().Changed("api-base-url") {
		cfg.Client.APIBaseURL = LocalURL(c.mockListen)
	}

	mock := api.NewServer(c.opts.APIConfig(c.mockListen), c.logger)

	app, closeFn, err := mcpcmder.NewApp(cmd, cfg, configDir, c.logger)
	if err != nil {
		return err
	}
	defer closeFn()

	c.logger.Info("starting services",
		zap.String("mock_addr", c.mockListen),
		zap.String("mcp_addr", c.mcpListen),
		zap.String("api_base_url", cfg.Client.APIBaseURL),
	)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := mock.Run(); err != nil {
			errChan <- fmt.Errorf("mock backend error: %w", err)
		}
	}()

	go func() {
		if err := app.Listen(c.mcpListen); err != nil {
			errChan <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		_ = app.Shutdown()
		return mock.Shutdown()
	}
}

// LocalURL turns a listen address into a base URL for a client on the same
// host.
func LocalURL(listen string) string {
	host := listen
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host
}
