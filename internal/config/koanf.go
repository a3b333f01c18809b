package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cuemsd/config.yaml",
	"/etc/cuemsd/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			Path: "/data/library",
		},
		Upload: UploadConfig{
			TmpPath: "/data/upload-tmp",
		},
		Database: DatabaseConfig{
			Path:            "/data/library/index.duckdb",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Server: ServerConfig{
			ListenAddr:        ":9876",
			DispatcherWorkers: 3,
			WriteTimeout:      10 * time.Second,
			PingInterval:      30 * time.Second,
			PongTimeout:       60 * time.Second,
		},
		Engine: EngineConfig{
			QueueCapacity:    256,
			PollInterval:     250 * time.Millisecond,
			RequestTimeout:   10 * time.Second,
			ResponseCacheTTL: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - LIBRARY_PATH -> library.path
//   - UPLOAD_TMP_PATH -> upload.tmp_path
//   - DUCKDB_PATH -> database.path
//   - WS_LISTEN_ADDR -> server.listen_addr
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"library_path": "library.path",

		"upload_tmp_path": "upload.tmp_path",

		"duckdb_path":          "database.path",
		"database_max_open":    "database.max_open_conns",
		"database_max_idle":    "database.max_idle_conns",
		"database_conn_life":   "database.conn_max_lifetime",
		"database_conn_idle":   "database.conn_max_idle_time",

		"ws_listen_addr":         "server.listen_addr",
		"ws_dispatcher_workers":  "server.dispatcher_workers",
		"ws_write_timeout":       "server.write_timeout",
		"ws_ping_interval":       "server.ping_interval",
		"ws_pong_timeout":        "server.pong_timeout",

		"engine_queue_capacity":      "engine.queue_capacity",
		"engine_poll_interval":       "engine.poll_interval",
		"engine_request_timeout":     "engine.request_timeout",
		"engine_response_cache_ttl":  "engine.response_cache_ttl",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage (testing,
// custom sources).
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}
