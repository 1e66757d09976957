// Package config defines the application configuration structure and
// loading logic. Configuration is sourced from environment variables with
// the TRIAGE_ prefix and an optional config.yaml file, with environment
// variables taking precedence.
package config
