// Package mcpcmder provides the cobra command that runs the MCP server.
package mcpcmder

import (
	"fmt"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apimcp "github.com/papercomputeco/factorychat/api/mcp"
	"github.com/papercomputeco/factorychat/cmd/factorychat/deps"
	"github.com/papercomputeco/factorychat/pkg/config"
	"github.com/papercomputeco/factorychat/pkg/logger"
)

// Path is where the streamable HTTP MCP endpoint is mounted.
const Path = "/mcp"

type mcpCommander struct {
	listen string
	debug  bool
	logger *zap.Logger
}

const mcpLongDesc string = `Run an MCP (Model Context Protocol) server over streamable HTTP.

The server exposes the factory assistant to agents with three tools:
ask_factory_assistant, list_rooms and room_history. It talks to the chat
backend configured with --api-base-url and keeps its client id and room
cache in the configured state storage. Client metrics are served at
/metrics.

Examples:
  factorychat serve mcp
  factorychat serve mcp --listen :9001 --api-base-url https://chat.factory.example`

const mcpShortDesc string = "Run the MCP server"

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
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

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagMCPListen, &cmder.listen)
	config.AddClientFlags(cmd)

	return cmd
}

func (c *mcpCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfg, configDir, err := deps.ResolveConfig(cmd, config.FlagMCPListen)
	if err != nil {
		return err
	}

	app, closeFn, err := NewApp(cmd, cfg, configDir, c.logger)
	if err != nil {
		return err
	}
	defer closeFn()

	c.logger.Info("starting MCP server",
		zap.String("listen", cfg.MCP.Listen),
		zap.String("path", Path),
		zap.String("api_base_url", cfg.Client.APIBaseURL),
	)
	return app.Listen(cfg.MCP.Listen)
}

// NewApp wires the client stack behind an MCP server and mounts it on a
// Fiber app. The returned func releases the client stack.
func NewApp(cmd *cobra.Command, cfg *config.Config, configDir string, log *zap.Logger) (*fiber.App, func(), error) {
	registry := prometheus.NewRegistry()

	d, err := deps.Build(cmd.Context(), deps.Options{
		Config:     cfg,
		ConfigDir:  configDir,
		Logger:     log,
		Registerer: registry,
	})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := d.Close(); err != nil {
			log.Warn("closing client", zap.Error(err))
		}
	}

	server, err := apimcp.NewServer(apimcp.Config{
		Chat:   d.Session,
		Rooms:  d.Rooms,
		Logger: log,
	})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("creating MCP server: %w", err)
	}

	return Mount(server, registry), closeFn, nil
}

// Mount serves server at Path, with /ping and /metrics alongside.
func Mount(server *apimcp.Server, gatherer prometheus.Gatherer) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON("pong")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	app.All(Path, adaptor.HTTPHandler(server.Handler()))

	return app
}
