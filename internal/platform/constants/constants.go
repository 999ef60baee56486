/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Collaborator Timing: Per-call timeouts/retries for SPARQL, SQL, agent calls.
  - Rate Limiting: Burst capacities and IP tracking TTLs.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "corestack"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Collaborator Timing

const (
	// SparqlCallTimeout bounds a single query/update call to the Triple-Store Gateway.
	SparqlCallTimeout = 15 * time.Second

	// AgentCallTimeout bounds a single HTTP Agent Caller invocation.
	AgentCallTimeout = 30 * time.Second

	// AgentCallMaxRetries bounds retry-go's attempts on a transient agent failure.
	AgentCallMaxRetries = 3

	// SparqlCallMaxRetries bounds retry-go's attempts on a transient SPARQL gateway failure.
	SparqlCallMaxRetries = 3

	// StartupConnectMaxElapsed is the budget from which the Postgres pool
	// derives its startup retry count (see postgres.NewPool). The Redis
	// client does not use it; it retries its initial ping a fixed 10 times.
	StartupConnectMaxElapsed = 30 * time.Second
)

// # Derived-Quantity Update Locking

const (
	// UpdateLockTTL bounds how long a tslock-held per-node-id lock survives
	// if the holder crashes mid-update.
	UpdateLockTTL = 2 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Storage Defaults

const (
	// DefaultLookupTable is the central lookup table name.
	DefaultLookupTable = "dbTable"
)

// # Redis Prefixes

const (
	// RedisPrefixUpdateLock namespaces internal/platform/tslock keys.
	RedisPrefixUpdateLock = "corestack:update_lock:"

	// RedisPrefixRateLimit is a key prefix for per-IP rate-limit buckets. The
	// RateLimit middleware keeps its buckets in process memory and does not
	// use it.
	RedisPrefixRateLimit = "corestack:rate_limit:"
)
