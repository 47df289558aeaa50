// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, .env and config files). It provides
// type-safe access to application settings needed by different components while
// keeping configuration details separate from business logic.
package config
