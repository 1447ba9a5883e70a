// Package config loads DeploymentMode and capability timeouts the way the
// teacher's internal/config loads deploy.* keys: a registry of known keys
// (keys.go) backs a layered spf13/viper loader (YAML file, then
// AGENTMEM_-prefixed env var overrides), validated eagerly so a bad
// deployment file fails at startup instead of at first use.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/types"
)

// Config is the fully loaded, validated process configuration.
type Config struct {
	Deployment types.DeploymentMode
	Timeouts   types.CapabilityTimeouts
	LogLevel   string
}

var knownVectorServiceStrings = buildKnownVectorServiceStrings()

func buildKnownVectorServiceStrings() map[string]types.VectorService {
	m := make(map[string]types.VectorService, len(types.KnownVectorServices))
	for svc := range types.KnownVectorServices {
		m[string(svc)] = svc
	}
	return m
}

func vectorServiceNames() []string {
	names := make([]string, 0, len(knownVectorServiceStrings))
	for name := range knownVectorServiceStrings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseDuration(v string) (time.Duration, error) {
	return time.ParseDuration(v)
}

func lookupVectorService(v string) (types.VectorService, bool) {
	for name, svc := range knownVectorServiceStrings {
		if strings.EqualFold(name, v) {
			return svc, true
		}
	}
	return "", false
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	for _, k := range Keys {
		if k.Default != "" {
			v.SetDefault(k.Key, k.Default)
		}
	}
	for key, env := range EnvMap() {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load reads the deployment YAML file at path (if it exists; a missing
// file is not an error, env vars and defaults still apply), validates
// every known key, and assembles a Config.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, apperr.Wrap(apperr.Validation, "config.Load", err)
			}
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	for _, k := range Keys {
		raw := v.GetString(k.Key)
		if raw == "" {
			if k.Required {
				return nil, apperr.Validationf("config.Load", "missing required key %q (%s)", k.Key, k.Description)
			}
			continue
		}
		if k.Validate != nil {
			if err := k.Validate(raw); err != nil {
				return nil, apperr.Validationf("config.Load", "%s: %v", k.Key, err)
			}
		}
	}

	cfg := &Config{LogLevel: v.GetString("log.level")}

	switch v.GetString("deployment.mode") {
	case "embedded":
		cfg.Deployment = types.DeploymentMode{Embedded: &types.EmbeddedConfig{
			DBPath:          v.GetString("deployment.embedded.db_path"),
			VectorPath:      v.GetString("deployment.embedded.vector_path"),
			VectorDimension: v.GetInt("deployment.embedded.vector_dimension"),
			EnableWAL:       v.GetBool("deployment.embedded.enable_wal"),
			CacheSizeKB:     v.GetInt("deployment.embedded.cache_size_kb"),
		}}
	case "server":
		svcName := v.GetString("deployment.server.vector_service")
		svc, ok := lookupVectorService(svcName)
		if !ok {
			return nil, apperr.Validationf("config.Load", "deployment.server.vector_service: unknown service %q", svcName)
		}
		if v.GetString("deployment.server.database_url") == "" {
			return nil, apperr.Validationf("config.Load", "deployment.server.database_url is required in server mode")
		}
		cfg.Deployment = types.DeploymentMode{Server: &types.ServerConfig{
			DatabaseURL:     v.GetString("deployment.server.database_url"),
			VectorService:   svc,
			VectorDimension: v.GetInt("deployment.server.vector_dimension"),
			VectorConfig:    v.GetStringMap("deployment.server.vector_config"),
			Pool: types.PoolConfig{
				MinConns:        v.GetInt("deployment.server.pool.min_conns"),
				MaxConns:        v.GetInt("deployment.server.pool.max_conns"),
				ConnectTimeout:  v.GetDuration("deployment.server.pool.connect_timeout"),
				IdleTimeout:     v.GetDuration("deployment.server.pool.idle_timeout"),
				MaxConnLifetime: v.GetDuration("deployment.server.pool.max_conn_lifetime"),
			},
		}}
	default:
		return nil, apperr.Validationf("config.Load", `deployment.mode must be "embedded" or "server", got %q`, v.GetString("deployment.mode"))
	}

	cfg.Timeouts = types.CapabilityTimeouts{
		LLM:         v.GetDuration("timeouts.llm"),
		Embedder:    v.GetDuration("timeouts.embedder"),
		Repository:  v.GetDuration("timeouts.repository"),
		Vector:      v.GetDuration("timeouts.vector"),
		RemoteCache: v.GetDuration("timeouts.remote_cache"),
	}

	if err := validatePoolSizes(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validatePoolSizes(cfg *Config) error {
	if cfg.Deployment.Server == nil {
		return nil
	}
	pool := cfg.Deployment.Server.Pool
	if pool.MinConns > pool.MaxConns {
		return apperr.Validationf("config.Load", "deployment.server.pool.min_conns (%d) exceeds max_conns (%d)", pool.MinConns, pool.MaxConns)
	}
	return nil
}

// Describe returns a human-readable line for one key, used by the CLI's
// config-help output; mirrors the teacher's deploy.* self-documentation.
func Describe(k Key) string {
	req := ""
	if k.Required {
		req = " (required)"
	}
	return fmt.Sprintf("%s%s: %s [env: %s]", k.Key, req, k.Description, k.EnvVar)
}
