// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including the listen address, backend targets, static path routes, and health
// check timings.
package config
