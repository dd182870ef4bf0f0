package config

// Storage providers.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Event stream providers.
const (
	EventStreamNop   = "nop"
	EventStreamKafka = "kafka"
)

const (
	defaultAPIBaseURL    = "http://localhost:8090"
	defaultTimeout       = "60s"
	defaultStreamTimeout = "60s"
	defaultRetries       = 2

	defaultPageSize = 10

	defaultStorageProvider = StorageSQLite

	defaultEventStreamProvider = EventStreamNop
	defaultKafkaTopic          = "factorychat.turns"

	defaultMockListen = ":8090"
	defaultMCPListen  = ":8091"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	retries := defaultRetries

	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APIBaseURL:    defaultAPIBaseURL,
			Timeout:       defaultTimeout,
			StreamTimeout: defaultStreamTimeout,
			Retries:       &retries,
		},
		Rooms: RoomsConfig{
			PageSize: defaultPageSize,
		},
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		EventStream: EventStreamConfig{
			Provider:   defaultEventStreamProvider,
			KafkaTopic: defaultKafkaTopic,
		},
		Mock: MockConfig{
			Listen: defaultMockListen,
		},
		MCP: MCPConfig{
			Listen: defaultMCPListen,
		},
	}
}
