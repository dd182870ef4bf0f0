package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent factorychat configuration stored as
// config.toml in the .factorychat/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	Rooms       RoomsConfig       `toml:"rooms"`
	Storage     StorageConfig     `toml:"storage"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Mock        MockConfig        `toml:"mock"`
	MCP         MCPConfig         `toml:"mcp"`
}

// ClientConfig holds settings for talking to the chat backend.
// Durations use Go duration syntax ("60s", "2m").
type ClientConfig struct {
	APIBaseURL    string `toml:"api_base_url,omitempty"`
	Timeout       string `toml:"timeout,omitempty"`
	StreamTimeout string `toml:"stream_timeout,omitempty"`

	// Retries is a pointer so that an explicit 0 survives default merging.
	Retries *int `toml:"retries,omitempty"`
}

// RequestTimeout returns the per-attempt timeout, or 0 when unset.
func (c ClientConfig) RequestTimeout() (time.Duration, error) {
	return parseDuration("client.timeout", c.Timeout)
}

// StreamingTimeout returns the per-attempt timeout of streaming requests,
// or 0 when unset.
func (c ClientConfig) StreamingTimeout() (time.Duration, error) {
	return parseDuration("client.stream_timeout", c.StreamTimeout)
}

// RoomsConfig holds room list settings.
type RoomsConfig struct {
	PageSize int `toml:"page_size,omitempty"`
}

// StorageConfig selects where the client id and room cache are kept.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventStreamConfig selects where completed turns are published.
type EventStreamConfig struct {
	Provider     string   `toml:"provider,omitempty"`
	KafkaBrokers []string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `toml:"kafka_topic,omitempty"`
}

// MockConfig holds mock backend server settings.
type MockConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_base_url": {
		get: func(c *Config) string { return c.Client.APIBaseURL },
		set: func(c *Config, v string) error { c.Client.APIBaseURL = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if err := checkDuration("client.timeout", v); err != nil {
				return err
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"client.stream_timeout": {
		get: func(c *Config) string { return c.Client.StreamTimeout },
		set: func(c *Config, v string) error {
			if err := checkDuration("client.stream_timeout", v); err != nil {
				return err
			}
			c.Client.StreamTimeout = v
			return nil
		},
	},
	"client.retries": {
		get: func(c *Config) string {
			if c.Client.Retries == nil {
				return ""
			}
			return strconv.Itoa(*c.Client.Retries)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.retries: %w", err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for client.retries: %d is negative", n)
			}
			c.Client.Retries = &n
			return nil
		},
	},
	"rooms.page_size": {
		get: func(c *Config) string {
			if c.Rooms.PageSize == 0 {
				return ""
			}
			return strconv.Itoa(c.Rooms.PageSize)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for rooms.page_size: %w", err)
			}
			if n <= 0 {
				return fmt.Errorf("invalid value for rooms.page_size: %d must be positive", n)
			}
			c.Rooms.PageSize = n
			return nil
		},
	},
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case StorageSQLite, StoragePostgres, StorageMemory:
				c.Storage.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for storage.provider: %q (available: sqlite, postgres, memory)", v)
			}
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case EventStreamNop, EventStreamKafka:
				c.EventStream.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: nop, kafka)", v)
			}
		},
	},
	"eventstream.kafka_brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.KafkaBrokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.KafkaBrokers = splitList(v)
			return nil
		},
	},
	"eventstream.kafka_topic": {
		get: func(c *Config) string { return c.EventStream.KafkaTopic },
		set: func(c *Config, v string) error { c.EventStream.KafkaTopic = v; return nil },
	},
	"mock.listen": {
		get: func(c *Config) string { return c.Mock.Listen },
		set: func(c *Config, v string) error { c.Mock.Listen = v; return nil },
	},
	"mcp.listen": {
		get: func(c *Config) string { return c.MCP.Listen },
		set: func(c *Config, v string) error { c.MCP.Listen = v; return nil },
	},
}

func checkDuration(key, v string) error {
	d, err := parseDuration(key, v)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("invalid value for %s: %s must be positive", key, v)
	}
	return nil
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return d, nil
}

// splitList splits a comma separated value, dropping blank entries.
func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
