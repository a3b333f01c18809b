/*
Package config provides centralized configuration management for the cuems core.

Configuration is loaded in three layers via koanf, in increasing order of
precedence:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file (config.yaml, or $CONFIG_PATH)
 3. Environment variables (see envTransformFunc for the name mapping)

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}

# Sections

  - Library: the on-disk library root.
  - Upload: the process-private temp-upload staging directory.
  - Database: the embedded metadata store connection.
  - Server: the WebSocket session server (listen address, dispatcher pool size,
    keepalive timings).
  - Engine: the RPC bridge to the external playback engine (queue capacity,
    poll interval, request timeout, response cache TTL).
  - Logging: the zerolog sink.
*/
package config
