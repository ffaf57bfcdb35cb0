// Package config handles GraphForge configuration via environment variables,
// with an optional YAML file as a lower-priority layer underneath them.
//
// Where a setting has a direct Neo4j analogue (data directory, the optional
// Bolt-style listener, the debug log level) the Neo4j-compatible environment
// variable name is kept so existing deployment tooling still works; settings
// with no Neo4j equivalent use a GRAPHFORGE_ prefix.
//
// Configuration is loaded with Load() and validated with Validate() before
// use.
//
// Example Usage:
//
//	cfg := config.Load("")
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all GraphForge configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// DatabaseConfig controls the storage.Engine the query API opens.
type DatabaseConfig struct {
	// DataDir is where the Badger backend stores its files; unused by
	// the in-memory backend.
	DataDir string `yaml:"data_dir"`
	// Backend selects the storage.Engine implementation: "memory" or
	// "badger".
	Backend string `yaml:"backend"`
	// ReadOnly opens the engine without a writable transaction path.
	ReadOnly bool `yaml:"read_only"`
	// TransactionTimeout bounds how long a writable transaction may be
	// held open before the caller is expected to commit or roll back.
	TransactionTimeout time.Duration `yaml:"transaction_timeout"`
}

// ServerConfig holds settings for the optional Bolt-style listener stub
// (§6: no network protocol is implemented, but the address/port a future
// server would bind to is still configuration surface worth carrying).
type ServerConfig struct {
	BoltEnabled bool   `yaml:"bolt_enabled"`
	BoltPort    int    `yaml:"bolt_port"`
	BoltAddress string `yaml:"bolt_address"`
}

// LoggingConfig controls pkg/glog's default logger.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `yaml:"level"`
	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output"`
}

// Load builds a Config from defaults, an optional YAML file (path may be
// empty, in which case this step is skipped; a missing file is not an
// error), and finally environment variables, which take priority over
// both.
func Load(path string) *Config {
	cfg := defaultConfig()
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}
	applyEnv(cfg)
	return cfg
}

// LoadFromEnv builds a Config from defaults plus environment variables
// only, with no YAML layer. Kept as a distinct entry point because most
// callers (including the CLI's default path) never have a config file.
func LoadFromEnv() *Config {
	return Load("")
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataDir:            "./data",
			Backend:            "memory",
			ReadOnly:           false,
			TransactionTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			BoltEnabled: false,
			BoltPort:    7687,
			BoltAddress: "0.0.0.0",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Output: "stdout",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Database.DataDir = getEnv("NEO4J_dbms_directories_data", cfg.Database.DataDir)
	cfg.Database.Backend = getEnv("GRAPHFORGE_BACKEND", cfg.Database.Backend)
	cfg.Database.ReadOnly = getEnvBool("NEO4J_dbms_read__only", cfg.Database.ReadOnly)
	cfg.Database.TransactionTimeout = getEnvDuration("NEO4J_dbms_transaction_timeout", cfg.Database.TransactionTimeout)

	cfg.Server.BoltEnabled = getEnvBool("NEO4J_dbms_connector_bolt_enabled", cfg.Server.BoltEnabled)
	cfg.Server.BoltPort = getEnvInt("NEO4J_dbms_connector_bolt_listen__address_port", cfg.Server.BoltPort)
	cfg.Server.BoltAddress = getEnv("NEO4J_dbms_connector_bolt_listen__address", cfg.Server.BoltAddress)

	cfg.Logging.Level = getEnv("NEO4J_dbms_logs_debug_level", cfg.Logging.Level)
	cfg.Logging.Output = getEnv("GRAPHFORGE_LOG_OUTPUT", cfg.Logging.Output)
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("unknown backend %q: want \"memory\" or \"badger\"", c.Database.Backend)
	}
	if c.Database.Backend == "badger" && c.Database.DataDir == "" {
		return fmt.Errorf("badger backend requires a data directory")
	}
	if c.Server.BoltEnabled && c.Server.BoltPort <= 0 {
		return fmt.Errorf("invalid bolt port: %d", c.Server.BoltPort)
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// String returns a representation safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Backend: %s, DataDir: %s, Bolt: %s:%d (enabled=%v)}",
		c.Database.Backend, c.Database.DataDir,
		c.Server.BoltAddress, c.Server.BoltPort, c.Server.BoltEnabled)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
