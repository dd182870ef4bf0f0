package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-base-url
// on "factorychat chat", "factorychat ask" and "factorychat serve mcp").
type Flag struct {
	// Name is the long flag name (e.g. "api-base-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "a"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.api_base_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIBaseURL      = "api-base-url"
	FlagTimeout         = "timeout"
	FlagStreamTimeout   = "stream-timeout"
	FlagRetries         = "retries"
	FlagPageSize        = "page-size"
	FlagStorageProvider = "storage-provider"
	FlagSQLite          = "sqlite"
	FlagPostgres        = "postgres"
	FlagEventStream     = "eventstream-provider"
	FlagKafkaTopic      = "kafka-topic"

	// Serve subcommands use "listen" as the flag name but bind to
	// different viper keys depending on the server.
	FlagMockListen = "mock-listen"
	FlagMCPListen  = "mcp-listen"
)

// ClientFlags is the registry shared by every command that talks to the
// chat backend.
var ClientFlags = FlagSet{
	FlagAPIBaseURL:      {Name: "api-base-url", Shorthand: "a", ViperKey: "client.api_base_url", Description: "Chat backend base URL"},
	FlagTimeout:         {Name: "timeout", ViperKey: "client.timeout", Description: "Per-attempt request timeout"},
	FlagStreamTimeout:   {Name: "stream-timeout", ViperKey: "client.stream_timeout", Description: "Per-attempt timeout for streamed answers"},
	FlagRetries:         {Name: "retries", ViperKey: "client.retries", Description: "Retries for 502/503 and network failures"},
	FlagPageSize:        {Name: "page-size", ViperKey: "rooms.page_size", Description: "Rooms fetched per page"},
	FlagStorageProvider: {Name: "storage", ViperKey: "storage.provider", Description: "Local state storage (sqlite, postgres, memory)"},
	FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite state database"},
	FlagPostgres:        {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagEventStream:     {Name: "eventstream", ViperKey: "eventstream.provider", Description: "Turn event publisher (nop, kafka)"},
	FlagKafkaTopic:      {Name: "kafka-topic", ViperKey: "eventstream.kafka_topic", Description: "Kafka topic for turn events"},
}

// ClientFlagKeys lists the ClientFlags registry keys in display order.
var ClientFlagKeys = []string{
	FlagAPIBaseURL,
	FlagTimeout,
	FlagStreamTimeout,
	FlagRetries,
	FlagPageSize,
	FlagStorageProvider,
	FlagSQLite,
	FlagPostgres,
	FlagEventStream,
	FlagKafkaTopic,
}

// ServeFlags holds the listen flags of the serve subcommands.
var ServeFlags = FlagSet{
	FlagMockListen: {Name: "listen", Shorthand: "l", ViperKey: "mock.listen", Description: "Address for the mock backend to listen on"},
	FlagMCPListen:  {Name: "listen", Shorthand: "l", ViperKey: "mcp.listen", Description: "Address for the MCP server to listen on"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddClientFlags registers every ClientFlags entry on cmd. Values are read
// back through viper after BindRegisteredFlags, so the targets are
// throwaway.
func AddClientFlags(cmd *cobra.Command) {
	for _, key := range ClientFlagKeys {
		switch key {
		case FlagRetries, FlagPageSize:
			AddIntFlag(cmd, ClientFlags, key, new(int))
		default:
			AddStringFlag(cmd, ClientFlags, key, new(string))
		}
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}
