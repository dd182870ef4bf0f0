package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/factorychat/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "FACTORYCHAT"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the FACTORYCHAT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (FACTORYCHAT_CLIENT_API_BASE_URL, FACTORYCHAT_MOCK_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: FACTORYCHAT_MOCK_LISTEN, FACTORYCHAT_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.api_base_url", d.Client.APIBaseURL)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("client.stream_timeout", d.Client.StreamTimeout)
	v.SetDefault("client.retries", *d.Client.Retries)

	// Rooms
	v.SetDefault("rooms.page_size", d.Rooms.PageSize)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.kafka_brokers", d.EventStream.KafkaBrokers)
	v.SetDefault("eventstream.kafka_topic", d.EventStream.KafkaTopic)

	// Servers
	v.SetDefault("mock.listen", d.Mock.Listen)
	v.SetDefault("mcp.listen", d.MCP.Listen)
}

// FromViper builds a Config from the resolved viper values, so flag and
// environment overrides apply.
func FromViper(v *viper.Viper) *Config {
	retries := v.GetInt("client.retries")

	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			APIBaseURL:    v.GetString("client.api_base_url"),
			Timeout:       v.GetString("client.timeout"),
			StreamTimeout: v.GetString("client.stream_timeout"),
			Retries:       &retries,
		},
		Rooms: RoomsConfig{
			PageSize: v.GetInt("rooms.page_size"),
		},
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		EventStream: EventStreamConfig{
			Provider:     v.GetString("eventstream.provider"),
			KafkaBrokers: splitList(strings.Join(v.GetStringSlice("eventstream.kafka_brokers"), ",")),
			KafkaTopic:   v.GetString("eventstream.kafka_topic"),
		},
		Mock: MockConfig{
			Listen: v.GetString("mock.listen"),
		},
		MCP: MCPConfig{
			Listen: v.GetString("mcp.listen"),
		},
	}
}
