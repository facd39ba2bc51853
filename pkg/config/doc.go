// Package config loads and watches the shared configuration file (config.yaml).
//
// Top-level types:
//   - Config{Advisor, Server}: full config tree parsed from YAML
//   - AdvisorConfig: ceiling, scrape_interval, sources []
//   - Source: id, endpoint, transactions_metric, sessions_metric, auth, tls
//   - AuthConfig: mode (apikey|bearer|basic|none), header, key_env,
//     token_env, username, password_env; secrets resolve from the environment
//   - ServerConfig: http_port, auth, cors, and an optional ceiling override
//
// Load(path) reads the YAML file, applies defaults (200 events/s at an 80%
// safety margin, 30s scrape interval, port 8080), then validates required
// fields and enums. Defaults() is also used directly when no file is given.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config.
package config
