package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Key describes one top-level configuration key: where it lives in the
// YAML file, which environment variable overrides it, and how to validate
// a raw string value before it is unmarshalled into DeploymentMode or
// CapabilityTimeouts.
type Key struct {
	Key         string // dotted viper key, e.g. "deployment.mode"
	Description string
	EnvVar      string
	Required    bool
	Default     string
	Validate    func(string) error
}

// Keys enumerates every configuration key AgentMem reads, mirroring the
// teacher's deploy.* key registry one entry per setting instead of one
// struct-tag per field. Load validates every key registered here; keys in
// a config file that are not registered are not checked and are ignored.
var Keys = []Key{
	{
		Key:         "deployment.mode",
		Description: `either "embedded" or "server"`,
		EnvVar:      "AGENTMEM_DEPLOYMENT_MODE",
		Required:    true,
		Validate:    validateMode,
	},
	{
		Key:         "deployment.embedded.db_path",
		Description: "path to the embedded SQLite database file",
		EnvVar:      "AGENTMEM_DB_PATH",
		Default:     "agentmem.db",
	},
	{
		Key:         "deployment.embedded.vector_path",
		Description: "path to the embedded sqlite-vec index file",
		EnvVar:      "AGENTMEM_VECTOR_PATH",
		Default:     "agentmem.vec.db",
	},
	{
		Key:         "deployment.embedded.vector_dimension",
		Description: "embedding dimension for the embedded vector index",
		EnvVar:      "AGENTMEM_VECTOR_DIMENSION",
		Default:     "1536",
		Validate:    validatePositiveInt,
	},
	{
		Key:         "deployment.embedded.enable_wal",
		Description: "enable SQLite WAL journal mode",
		EnvVar:      "AGENTMEM_ENABLE_WAL",
		Default:     "true",
		Validate:    validateBool,
	},
	{
		Key:         "deployment.embedded.cache_size_kb",
		Description: "SQLite page cache size in KB",
		EnvVar:      "AGENTMEM_CACHE_SIZE_KB",
		Default:     "2000",
		Validate:    validatePositiveInt,
	},
	{
		Key:         "deployment.server.database_url",
		Description: "PostgreSQL connection string for the Server deployment",
		EnvVar:      "AGENTMEM_DATABASE_URL",
	},
	{
		Key:         "deployment.server.vector_service",
		Description: "one of the closed VectorService set (spec §6)",
		EnvVar:      "AGENTMEM_VECTOR_SERVICE",
		Default:     "PgVector",
		Validate:    validateVectorService,
	},
	{
		Key:         "deployment.server.vector_dimension",
		Description: "embedding dimension for the server vector backend",
		EnvVar:      "AGENTMEM_VECTOR_DIMENSION",
		Default:     "1536",
		Validate:    validatePositiveInt,
	},
	{
		Key:         "deployment.server.pool.min_conns",
		Description: "minimum repository connection pool size",
		EnvVar:      "AGENTMEM_POOL_MIN_CONNS",
		Default:     "1",
		Validate:    validateNonNegativeInt,
	},
	{
		Key:         "deployment.server.pool.max_conns",
		Description: "maximum repository connection pool size",
		EnvVar:      "AGENTMEM_POOL_MAX_CONNS",
		Default:     "10",
		Validate:    validatePositiveInt,
	},
	{
		Key:         "deployment.server.pool.connect_timeout",
		Description: "connection acquisition timeout (Go duration string)",
		EnvVar:      "AGENTMEM_POOL_CONNECT_TIMEOUT",
		Default:     "5s",
		Validate:    validateDuration,
	},
	{
		Key:         "deployment.server.pool.idle_timeout",
		Description: "idle connection timeout (Go duration string)",
		EnvVar:      "AGENTMEM_POOL_IDLE_TIMEOUT",
		Default:     "5m",
		Validate:    validateDuration,
	},
	{
		Key:         "deployment.server.pool.max_conn_lifetime",
		Description: "maximum connection lifetime (Go duration string)",
		EnvVar:      "AGENTMEM_POOL_MAX_CONN_LIFETIME",
		Default:     "1h",
		Validate:    validateDuration,
	},
	{
		Key:         "timeouts.llm",
		Description: "per-call timeout for the LLM capability",
		EnvVar:      "AGENTMEM_TIMEOUT_LLM",
		Default:     "20s",
		Validate:    validateDuration,
	},
	{
		Key:         "timeouts.embedder",
		Description: "per-call timeout for the Embedder capability",
		EnvVar:      "AGENTMEM_TIMEOUT_EMBEDDER",
		Default:     "10s",
		Validate:    validateDuration,
	},
	{
		Key:         "timeouts.repository",
		Description: "per-call timeout for the RepositoryLayer",
		EnvVar:      "AGENTMEM_TIMEOUT_REPOSITORY",
		Default:     "5s",
		Validate:    validateDuration,
	},
	{
		Key:         "timeouts.vector",
		Description: "per-call timeout for the VectorIndex",
		EnvVar:      "AGENTMEM_TIMEOUT_VECTOR",
		Default:     "5s",
		Validate:    validateDuration,
	},
	{
		Key:         "timeouts.remote_cache",
		Description: "per-call timeout for the optional RemoteCache",
		EnvVar:      "AGENTMEM_TIMEOUT_REMOTE_CACHE",
		Default:     "2s",
		Validate:    validateDuration,
	},
	{
		Key:         "log.level",
		Description: "log/slog level",
		EnvVar:      "AGENTMEM_LOG_LEVEL",
		Default:     "info",
		Validate:    validateLogLevel,
	},
}

var keyMap map[string]*Key

func init() {
	keyMap = make(map[string]*Key, len(Keys))
	for i := range Keys {
		keyMap[Keys[i].Key] = &Keys[i]
	}
}

// IsKnownKey reports whether key is a recognised configuration key.
func IsKnownKey(key string) bool {
	_, ok := keyMap[key]
	return ok
}

// LookupKey returns the registry entry for key, or nil if unknown.
func LookupKey(key string) *Key {
	return keyMap[key]
}

// EnvMap returns the dotted-key -> environment-variable mapping for every
// key that has one, for wiring into viper.BindEnv.
func EnvMap() map[string]string {
	m := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if k.EnvVar != "" {
			m[k.Key] = k.EnvVar
		}
	}
	return m
}

func validateMode(v string) error {
	switch strings.ToLower(v) {
	case "embedded", "server":
		return nil
	default:
		return fmt.Errorf(`must be "embedded" or "server", got %q`, v)
	}
}

func validateVectorService(v string) error {
	for svc := range knownVectorServiceStrings {
		if strings.EqualFold(svc, v) {
			return nil
		}
	}
	return fmt.Errorf("must be one of %v, got %q", vectorServiceNames(), v)
}

func validatePositiveInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("must be an integer, got %q", v)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateNonNegativeInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("must be an integer, got %q", v)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateDuration(v string) error {
	if _, err := parseDuration(v); err != nil {
		return fmt.Errorf("must be a Go duration string (e.g. \"5s\"), got %q: %w", v, err)
	}
	return nil
}

func validateBool(v string) error {
	switch strings.ToLower(v) {
	case "true", "false", "1", "0", "yes", "no":
		return nil
	default:
		return fmt.Errorf("must be true or false, got %q", v)
	}
}

func validateLogLevel(v string) error {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("must be one of: debug, info, warn, error; got %q", v)
	}
}
