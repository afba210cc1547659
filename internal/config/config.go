package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/nft-datastore/internal/domain"
)

const (
	// DriverSQLite selects the embedded SQLite file store
	DriverSQLite = "sqlite"
	// DriverPostgres selects a PostgreSQL server
	DriverPostgres = "postgres"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"` // SQLite database file
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`       // SQLite lock wait (e.g., "5s")
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// EthereumConfig holds Ethereum-specific configuration
type EthereumConfig struct {
	RPCURL            string        `mapstructure:"rpc_url"`
	ChainID           domain.Chain  `mapstructure:"chain_id"`
	StartBlock        uint64        `mapstructure:"start_block"`
	Confirmations     uint64        `mapstructure:"confirmations"`
	BlockTimestampTTL time.Duration `mapstructure:"block_timestamp_ttl"`
	RPCRateLimit      float64       `mapstructure:"rpc_rate_limit"` // Requests per second; 0 disables limiting
	RPCBurst          int           `mapstructure:"rpc_burst"`
}

// CrawlerSettings holds the ingestion loop configuration
type CrawlerSettings struct {
	EventTypes     []string      `mapstructure:"event_types"`
	BatchBlocks    uint64        `mapstructure:"batch_blocks"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	EnrichMetadata bool          `mapstructure:"enrich_metadata"`
	MaxRetries     uint64        `mapstructure:"max_retries"`
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	WorkerPoolSize  int `mapstructure:"pool_size"`
	WorkerQueueSize int `mapstructure:"queue_size"`
}

// CrawlerConfig holds configuration for nft-crawler
type CrawlerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Worker     WorkerConfig    `mapstructure:"worker"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Ethereum   EthereumConfig  `mapstructure:"ethereum"`
	Crawler    CrawlerSettings `mapstructure:"crawler"`
}

// AdminConfig holds configuration for the nft-datastore admin CLI
type AdminConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
}

// LoadCrawlerConfig loads configuration for nft-crawler
func LoadCrawlerConfig(configFile string, envPath string) (*CrawlerConfig, error) {
	v := configureViper("nft-crawler", configFile, envPath)

	// Set defaults
	setDatabaseDefaults(v)
	v.SetDefault("ethereum.chain_id", "eip155:1")
	v.SetDefault("ethereum.confirmations", 12)
	v.SetDefault("ethereum.block_timestamp_ttl", "24h")
	v.SetDefault("ethereum.rpc_rate_limit", 25)
	v.SetDefault("ethereum.rpc_burst", 10)
	v.SetDefault("crawler.event_types", []string{string(domain.EventTypeTransfer), string(domain.EventTypeMint)})
	v.SetDefault("crawler.batch_blocks", 100)
	v.SetDefault("crawler.poll_interval", "15s")
	v.SetDefault("crawler.enrich_metadata", true)
	v.SetDefault("crawler.max_retries", 5)
	v.SetDefault("worker.pool_size", 8)
	v.SetDefault("worker.queue_size", 256)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config CrawlerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks required fields and value ranges
func (c *CrawlerConfig) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	if c.Ethereum.RPCURL == "" {
		return errors.New("ethereum.rpc_url is required")
	}
	if !domain.IsValidChain(c.Ethereum.ChainID) {
		return fmt.Errorf("unsupported ethereum.chain_id: %q", c.Ethereum.ChainID)
	}

	if len(c.Crawler.EventTypes) == 0 {
		return errors.New("crawler.event_types must not be empty")
	}
	for _, et := range c.Crawler.EventTypes {
		if _, err := domain.ParseEventType(et); err != nil {
			return fmt.Errorf("invalid crawler.event_types: %w", err)
		}
	}
	if c.Ethereum.RPCRateLimit < 0 {
		return errors.New("ethereum.rpc_rate_limit must not be negative")
	}
	if c.Crawler.BatchBlocks == 0 {
		return errors.New("crawler.batch_blocks must be positive")
	}

	return nil
}

// LoadAdminConfig loads configuration for the nft-datastore admin CLI.
// Only the database section is required.
func LoadAdminConfig(configFile string, envPath string) (*AdminConfig, error) {
	v := configureViper("nft-datastore", configFile, envPath)
	setDatabaseDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config AdminConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Database.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the driver-specific required fields
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Host == "" {
			return errors.New("database.host is required for postgres")
		}
		if c.DBName == "" {
			return errors.New("database.dbname is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database.driver: %q", c.Driver)
	}
	return nil
}

// EnsureDir creates the parent directory of the SQLite database file
func (c *DatabaseConfig) EnsureDir() error {
	if c.Driver != DriverSQLite {
		return nil
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/nft-datastore.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.busy_timeout", "5s")
}

// readConfig reads the config file, falling back to defaults and environment variables when it is missing
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// ParsedEventTypes returns the configured event types in declared order, skipping invalid entries
func (c *CrawlerSettings) ParsedEventTypes() []domain.EventType {
	types := make([]domain.EventType, 0, len(c.EventTypes))
	for _, et := range c.EventTypes {
		parsed, err := domain.ParseEventType(et)
		if err != nil {
			continue
		}
		types = append(types, parsed)
	}
	return types
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/nft-crawler/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("NFT_DATASTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.driver",
		"database.path",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.busy_timeout",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.start_block",
		"ethereum.confirmations",
		"ethereum.block_timestamp_ttl",
		"ethereum.rpc_rate_limit",
		"ethereum.rpc_burst",
		// Crawler
		"crawler.event_types",
		"crawler.batch_blocks",
		"crawler.poll_interval",
		"crawler.enrich_metadata",
		"crawler.max_retries",
		// Internal Worker config
		"worker.pool_size",
		"worker.queue_size",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string for the configured driver.
// SQLite connections run in WAL mode with a busy timeout so readers never block the writer.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}

	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	return fmt.Sprintf("%s?%s", c.Path, params.Encode())
}
