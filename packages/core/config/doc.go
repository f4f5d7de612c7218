// Package config handles configuration loading and management for rqn.
//
// It provides functionality for:
//   - Loading configuration from .rqn.json, rqn.json, .rqn.yaml or .rqn.yml
//   - Default configuration values
//   - Translating settings into http client options
package config
