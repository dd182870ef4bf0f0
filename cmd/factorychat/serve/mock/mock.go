// Package mockcmder provides the cobra command that runs the mock chat
// backend.
package mockcmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/api"
	"github.com/papercomputeco/factorychat/pkg/config"
	"github.com/papercomputeco/factorychat/pkg/logger"
)

// Options are the mock behavior flags shared with "factorychat serve".
type Options struct {
	ChunkRunes       int
	ChunkDelay       time.Duration
	StreamReplies    bool
	UnavailableFirst int
}

// AddFlags registers the mock behavior flags on cmd.
func (o *Options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.ChunkRunes, "chunk-runes", 8, "Runes per streamed answer frame")
	cmd.Flags().DurationVar(&o.ChunkDelay, "chunk-delay", 50*time.Millisecond, "Pause between streamed frames")
	cmd.Flags().BoolVar(&o.StreamReplies, "stream-replies", false, "Answer follow-up questions as an event stream")
	cmd.Flags().IntVar(&o.UnavailableFirst, "unavailable-first", 0, "Answer the first n requests with 503")
}

// APIConfig builds the mock server config for listen.
func (o *Options) APIConfig(listen string) api.Config {
	return api.Config{
		ListenAddr:       listen,
		ChunkRunes:       o.ChunkRunes,
		ChunkDelay:       o.ChunkDelay,
		StreamReplies:    o.StreamReplies,
		UnavailableFirst: o.UnavailableFirst,
	}
}

type mockCommander struct {
	listen string
	debug  bool
	opts   Options
	logger *zap.Logger
}

const mockLongDesc string = `Run a mock factory chat backend.

The mock implements the room, chat and history endpoints, streams answers
as server-sent events, and issues ids above 2^53. Rooms are kept in memory
per client id. Prometheus metrics are served at /metrics.

Examples:
  factorychat serve mock
  factorychat serve mock --listen :9000 --stream-replies
  factorychat serve mock --unavailable-first 2`

const mockShortDesc string = "Run the mock chat backend"

func NewMockCmd() *cobra.Command {
	cmder := &mockCommander{}

	cmd := &cobra.Command{
		Use:   "mock",
		Short: mockShortDesc,
		Long:  mockLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ServeFlags, []string{config.FlagMockListen})
			cmder.listen = v.GetString("mock.listen")

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagMockListen, &cmder.listen)
	cmder.opts.AddFlags(cmd)

	return cmd
}

func (c *mockCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	server := api.NewServer(c.opts.APIConfig(c.listen), c.logger)
	return server.Run()
}
