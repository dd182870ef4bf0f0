// Package configcmder provides the config command for managing persistent
// factorychat configuration stored in the .factorychat/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent factorychat configuration.

Configuration is stored as config.toml in the .factorychat/ directory and
provides default values for command flags. CLI flags and FACTORYCHAT_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_base_url, client.timeout, client.stream_timeout, client.retries,
  rooms.page_size,
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  eventstream.provider, eventstream.kafka_brokers, eventstream.kafka_topic,
  mock.listen, mcp.listen

Use subcommands to get, set, or list configuration values:
  factorychat config set <key> <value>    Set a configuration value
  factorychat config get <key>            Get a configuration value
  factorychat config list                 List all configuration values

Examples:
  factorychat config set client.api_base_url https://chat.factory.example
  factorychat config set client.retries 0
  factorychat config get client.timeout
  factorychat config list`

const configShortDesc string = "Manage persistent factorychat configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
