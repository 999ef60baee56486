/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (gateways, coordinators) via constructors.
  - Zero Hidden State: No global variables are used to store config.

Every option in [Config] is optional at parse time: the triple-store and
relational connection settings (sparql query/update endpoints, db url/user/
password) are all optional, and it is an operation attempting to use an
unset value that raises a [apperr.Config], not config loading itself.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/anchorgraph/corestack/internal/platform/apperr"
)

// # Configuration Schema

// Config holds all runtime configuration for the corestack API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Triple-Store Gateway endpoints (sparql.query.endpoint / sparql.update.endpoint)
	SparqlQueryEndpoint  string `env:"SPARQL_QUERY_ENDPOINT"`
	SparqlUpdateEndpoint string `env:"SPARQL_UPDATE_ENDPOINT"`

	// Relational Database (db.url / db.user / db.password)
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseUser     string `env:"DATABASE_USER"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`

	// MigrationPath is the filesystem path to the lookup-table migration.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Redis, backing the distributed per-node update lock
	RedisURL string `env:"REDIS_URL"`

	// AgentTimeoutSeconds is parsed but not read: the HTTP Agent Caller
	// uses constants.AgentCallTimeout.
	AgentTimeoutSeconds int `env:"AGENT_TIMEOUT_SECONDS" envDefault:"30"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RequireDatabaseURL returns the relational connection string or a
// [apperr.Config] if it was never set.
func (c *Config) RequireDatabaseURL() (string, error) {
	if c.DatabaseURL == "" {
		return "", apperr.Config("db.url is not configured")
	}
	return c.DatabaseURL, nil
}

// RequireSparqlEndpoints returns the query and update endpoints or a
// [apperr.Config] if either was never set.
func (c *Config) RequireSparqlEndpoints() (query, update string, err error) {
	if c.SparqlQueryEndpoint == "" {
		return "", "", apperr.Config("sparql.query.endpoint is not configured")
	}
	if c.SparqlUpdateEndpoint == "" {
		return "", "", apperr.Config("sparql.update.endpoint is not configured")
	}
	return c.SparqlQueryEndpoint, c.SparqlUpdateEndpoint, nil
}

// AllowedOrigins splits the comma-separated EXTRA_ORIGINS setting into a
// slice of origin suffixes accepted by the CORS middleware in production.
func (c *Config) AllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}
	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
