// Package config provides centralized configuration management for the cuems core.
//
// Configuration is layered with koanf: built-in defaults, then an optional YAML
// file, then environment variables, in increasing order of precedence. See
// LoadWithKoanf for the load sequence.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration for the cuems core server process.
type Config struct {
	Library  LibraryConfig  `koanf:"library"`
	Upload   UploadConfig   `koanf:"upload"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Engine   EngineConfig   `koanf:"engine"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// LibraryConfig locates the on-disk library tree (projects, media, trash, derivatives).
type LibraryConfig struct {
	// Path is the library root. internal/library derives projects/, media/,
	// trash/projects/, trash/media/, media/thumbnail/, media/waveform/, and
	// the matching trash-side derivative directories from this root.
	Path string `koanf:"path"`
}

// UploadConfig controls the staging area for in-flight uploads.
type UploadConfig struct {
	// TmpPath is a process-private scratch directory for partially received
	// files. It must not be shared with another process.
	TmpPath string `koanf:"tmp_path"`
}

// DatabaseConfig controls the embedded metadata store.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Use ":memory:" for ephemeral (test) stores.
	Path string `koanf:"path"`

	// MaxOpenConns bounds the connection pool. DuckDB is a single-writer
	// embedded engine; this mainly bounds concurrent readers.
	MaxOpenConns int `koanf:"max_open_conns"`

	// MaxIdleConns bounds idle pooled connections.
	MaxIdleConns int `koanf:"max_idle_conns"`

	// ConnMaxLifetime recycles pooled connections after this long.
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`

	// ConnMaxIdleTime closes idle pooled connections after this long.
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// ServerConfig controls the WebSocket session server.
type ServerConfig struct {
	// ListenAddr is the TCP address the session server binds, e.g. ":9876".
	ListenAddr string `koanf:"listen_addr"`

	// DispatcherWorkers is the number of concurrent action-dispatcher
	// goroutines per session. The spec's default is 3: enough that a slow
	// action (list/load) does not block quick actions on the same socket.
	DispatcherWorkers int `koanf:"dispatcher_workers"`

	// WriteTimeout bounds a single outbound WebSocket frame write.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// PingInterval is how often the server pings idle connections.
	PingInterval time.Duration `koanf:"ping_interval"`

	// PongTimeout is how long the server waits for a pong before dropping
	// a connection as dead.
	PongTimeout time.Duration `koanf:"pong_timeout"`
}

// EngineConfig controls the RPC bridge to the external playback engine.
type EngineConfig struct {
	// QueueCapacity bounds each of the editor->engine and engine->editor
	// in-process queues.
	QueueCapacity int `koanf:"queue_capacity"`

	// PollInterval is how often a waiting action handler re-checks the
	// response cache for its action_uuid. Spec default: 250ms.
	PollInterval time.Duration `koanf:"poll_interval"`

	// RequestTimeout is how long an action handler waits for a matching
	// engine response before giving up with a Timeout/EngineError. Spec
	// default: 10s.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// ResponseCacheTTL bounds how long an unmatched engine response is kept
	// before eviction (open question in spec §9, resolved here with a TTL
	// cache rather than unbounded retention).
	ResponseCacheTTL time.Duration `koanf:"response_cache_ttl"`
}

// LoggingConfig controls the zerolog-backed logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for internally-inconsistent or
// obviously-unusable values. It does not check filesystem existence —
// internal/library's bootstrap step creates missing directories.
func (c *Config) Validate() error {
	if c.Library.Path == "" {
		return fmt.Errorf("library.path must not be empty")
	}
	if c.Upload.TmpPath == "" {
		return fmt.Errorf("upload.tmp_path must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Server.DispatcherWorkers < 1 {
		return fmt.Errorf("server.dispatcher_workers must be at least 1, got %d", c.Server.DispatcherWorkers)
	}
	if c.Engine.QueueCapacity < 1 {
		return fmt.Errorf("engine.queue_capacity must be at least 1, got %d", c.Engine.QueueCapacity)
	}
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("engine.poll_interval must be positive")
	}
	if c.Engine.RequestTimeout <= 0 {
		return fmt.Errorf("engine.request_timeout must be positive")
	}
	if c.Engine.PollInterval >= c.Engine.RequestTimeout {
		return fmt.Errorf("engine.poll_interval (%s) must be shorter than engine.request_timeout (%s)", c.Engine.PollInterval, c.Engine.RequestTimeout)
	}
	return nil
}
