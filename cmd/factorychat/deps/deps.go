// Package deps wires the client stack shared by the chat, ask, rooms,
// history and MCP commands: config resolution, local state storage, the
// chat API client, the room list, the turn publisher and the session
// orchestrator.
package deps

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/cmd/factorychat/sqlitepath"
	"github.com/papercomputeco/factorychat/pkg/chatapi"
	"github.com/papercomputeco/factorychat/pkg/config"
	"github.com/papercomputeco/factorychat/pkg/dotdir"
	"github.com/papercomputeco/factorychat/pkg/eventstream"
	"github.com/papercomputeco/factorychat/pkg/eventstream/kafka"
	"github.com/papercomputeco/factorychat/pkg/eventstream/nop"
	"github.com/papercomputeco/factorychat/pkg/identity"
	"github.com/papercomputeco/factorychat/pkg/rooms"
	"github.com/papercomputeco/factorychat/pkg/session"
	"github.com/papercomputeco/factorychat/pkg/storage"
	"github.com/papercomputeco/factorychat/pkg/storage/inmemory"
	"github.com/papercomputeco/factorychat/pkg/storage/postgres"
	"github.com/papercomputeco/factorychat/pkg/storage/sqlite"
)

// Options configures Build.
type Options struct {
	Config    *config.Config
	ConfigDir string
	Logger    *zap.Logger

	// Registerer receives the client metrics. Nil keeps them private.
	Registerer prometheus.Registerer
}

// Deps is the wired client stack. Close releases the storage and publisher.
type Deps struct {
	Config    *config.Config
	ConfigDir string
	Logger    *zap.Logger

	Store     storage.Driver
	Identity  *identity.Provider
	Client    *chatapi.Client
	Rooms     *rooms.List
	Publisher eventstream.Publisher
	Session   *session.Orchestrator
}

// ResolveConfig reads the --config-dir flag, layers config.toml,
// FACTORYCHAT_* environment variables and the client flags registered on
// cmd, and returns the effective config with the config dir override.
// serveKeys name the config.ServeFlags entries cmd registered.
func ResolveConfig(cmd *cobra.Command, serveKeys ...string) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", err
	}
	config.BindRegisteredFlags(v, cmd, config.ClientFlags, config.ClientFlagKeys)
	config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveKeys)

	return config.FromViper(v), configDir, nil
}

// Build wires the client stack from opts. On error everything opened so far
// is closed.
func Build(ctx context.Context, opts Options) (*Deps, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cfg := opts.Config

	store, err := NewStorageDriver(ctx, cfg.Storage, opts.ConfigDir, opts.Logger)
	if err != nil {
		return nil, err
	}

	publisher, err := NewPublisher(cfg.EventStream, opts.Logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	ids := identity.NewProvider(store)

	client, err := NewClient(cfg.Client, ids, opts.Logger, chatapi.NewMetrics(opts.Registerer))
	if err != nil {
		_ = publisher.Close()
		_ = store.Close()
		return nil, err
	}

	roomList := rooms.NewList(rooms.Config{
		Backend:  client,
		Store:    store,
		PageSize: cfg.Rooms.PageSize,
		Logger:   opts.Logger,
	})

	orchestrator := session.New(session.Config{
		Backend:   client,
		Rooms:     roomList,
		Publisher: publisher,
		Identity:  ids,
		Logger:    opts.Logger,
	})

	return &Deps{
		Config:    cfg,
		ConfigDir: opts.ConfigDir,
		Logger:    opts.Logger,
		Store:     store,
		Identity:  ids,
		Client:    client,
		Rooms:     roomList,
		Publisher: publisher,
		Session:   orchestrator,
	}, nil
}

// Close flushes the publisher and closes the state store.
func (d *Deps) Close() error {
	return errors.Join(d.Publisher.Close(), d.Store.Close())
}

// NewClient builds the chat API client. A configured retry count of zero
// disables retrying.
func NewClient(cfg config.ClientConfig, ids chatapi.ClientIDSource, logger *zap.Logger, metrics *chatapi.Metrics) (*chatapi.Client, error) {
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}
	streamTimeout, err := cfg.StreamingTimeout()
	if err != nil {
		return nil, err
	}

	return chatapi.New(chatapi.Config{
		BaseURL:       cfg.APIBaseURL,
		Timeout:       timeout,
		StreamTimeout: streamTimeout,
		Retries:       clientRetries(cfg.Retries),
		Identity:      ids,
		Logger:        logger,
		Metrics:       metrics,
	})
}

func clientRetries(configured *int) int {
	switch {
	case configured == nil:
		return chatapi.DefaultRetries
	case *configured <= 0:
		return chatapi.NoRetries
	default:
		return *configured
	}
}

// NewStorageDriver opens the configured state store.
func NewStorageDriver(ctx context.Context, cfg config.StorageConfig, configDir string, logger *zap.Logger) (storage.Driver, error) {
	switch cfg.Provider {
	case config.StorageMemory:
		logger.Debug("using in-memory state storage")
		return inmemory.NewDriver(), nil

	case config.StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres provider")
		}
		driver, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres state storage: %w", err)
		}
		logger.Debug("using postgres state storage")
		return driver, nil

	case config.StorageSQLite, "":
		stateDir, err := dotdir.NewManager().Target(configDir)
		if err != nil {
			return nil, err
		}
		path, err := sqlitepath.ResolveSQLitePath(cfg.SQLitePath, stateDir)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite state storage: %w", err)
		}
		logger.Debug("using sqlite state storage", zap.String("path", path))
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Provider)
	}
}

// NewPublisher creates the configured turn publisher.
func NewPublisher(cfg config.EventStreamConfig, logger *zap.Logger) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case config.EventStreamNop, "":
		return nop.NewPublisher(), nil

	case config.EventStreamKafka:
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		logger.Debug("publishing turns to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
		return publisher, nil

	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q", cfg.Provider)
	}
}
