package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration. Blocks are pointers so a
// config file can omit any of them and pick up the defaults.
type Config struct {
	Server  *ServerSettings `hcl:"server,block"`
	Storage *StorageConfig  `hcl:"storage,block"`
	Archive *ArchiveConfig  `hcl:"archive,block"`
	Table   *TableDefaults  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// StorageConfig selects the snapshot backend.
type StorageConfig struct {
	Backend     string `hcl:"backend,optional"` // "file" or "redis"
	Dir         string `hcl:"dir,optional"`
	RedisAddr   string `hcl:"redis_addr,optional"`
	RedisPrefix string `hcl:"redis_prefix,optional"`
}

// ArchiveConfig controls the Postgres hand-history archive.
type ArchiveConfig struct {
	Enabled     bool   `hcl:"enabled,optional"`
	PostgresDSN string `hcl:"postgres_dsn,optional"`
}

// TableDefaults are the settings applied to new games that don't override
// them at creation time.
type TableDefaults struct {
	SmallBlind    int `hcl:"small_blind,optional"`
	BigBlind      int `hcl:"big_blind,optional"`
	StartingStack int `hcl:"starting_stack,optional"`
	MaxPlayers    int `hcl:"max_players,optional"`
	TurnTimer     int `hcl:"turn_timer,optional"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Storage: &StorageConfig{
			Backend:     "file",
			Dir:         "snapshots",
			RedisPrefix: "holdem:snapshot:",
		},
		Archive: &ArchiveConfig{},
		Table: &TableDefaults{
			SmallBlind:    10,
			BigBlind:      20,
			StartingStack: 1000,
			MaxPlayers:    9,
			TurnTimer:     30,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to defaults
// when the file does not exist. Missing blocks and fields inherit defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Server == nil {
		config.Server = defaults.Server
	}
	if config.Storage == nil {
		config.Storage = defaults.Storage
	}
	if config.Archive == nil {
		config.Archive = defaults.Archive
	}
	if config.Table == nil {
		config.Table = defaults.Table
	}

	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Storage.Backend == "" {
		config.Storage.Backend = defaults.Storage.Backend
	}
	if config.Storage.Dir == "" {
		config.Storage.Dir = defaults.Storage.Dir
	}
	if config.Storage.RedisPrefix == "" {
		config.Storage.RedisPrefix = defaults.Storage.RedisPrefix
	}
	if config.Table.SmallBlind == 0 {
		config.Table.SmallBlind = defaults.Table.SmallBlind
	}
	if config.Table.BigBlind == 0 {
		config.Table.BigBlind = defaults.Table.BigBlind
	}
	if config.Table.StartingStack == 0 {
		config.Table.StartingStack = defaults.Table.StartingStack
	}
	if config.Table.MaxPlayers == 0 {
		config.Table.MaxPlayers = defaults.Table.MaxPlayers
	}
	if config.Table.TurnTimer == 0 {
		config.Table.TurnTimer = defaults.Table.TurnTimer
	}

	return &config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Storage.Backend {
	case "file":
		if c.Storage.Dir == "" {
			return fmt.Errorf("file storage requires a dir")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis storage requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.Archive.Enabled && c.Archive.PostgresDSN == "" {
		return fmt.Errorf("archive requires postgres_dsn when enabled")
	}

	if c.Table.SmallBlind <= 0 {
		return fmt.Errorf("table small blind must be positive")
	}
	if c.Table.BigBlind < c.Table.SmallBlind {
		return fmt.Errorf("table big blind must be at least the small blind")
	}
	if c.Table.MaxPlayers < 2 || c.Table.MaxPlayers > 10 {
		return fmt.Errorf("table max players must be between 2 and 10")
	}

	return nil
}

// ListenAddress returns the full listen address.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
