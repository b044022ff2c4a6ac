// Package config handles configuration loading for the proplens client.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults; a missing file is not
// an error for callers that fall back to Default().
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PROPLENS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/proplens/client.yaml
//  3. ~/.config/proplens/client.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	backend:
//	  url: "${PROPLENS_BACKEND_URL}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	backend:
//	  request_timeout: "30s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Backend endpoint:
//
//	backend:
//	  url: "http://localhost:8000"
//	  request_timeout: "30s"
//
// Local history:
//
//	history:
//	  enabled: true
//	  path: "~/.local/share/proplens/history.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
