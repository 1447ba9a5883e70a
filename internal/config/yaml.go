package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/types"
)

// yamlFile mirrors the on-disk shape Load reads via viper; kept as its own
// struct (rather than reusing types.DeploymentMode directly) because the
// wire/file shape uses lowercase dotted sections while the in-memory type
// uses Go field names, the same split the teacher's yaml_config.go keeps
// between its on-disk keys and its parsed config.
type yamlFile struct {
	Deployment yamlDeployment `yaml:"deployment"`
	Timeouts   yamlTimeouts   `yaml:"timeouts"`
	Log        yamlLog        `yaml:"log"`
}

type yamlDeployment struct {
	Mode     string        `yaml:"mode"`
	Embedded *yamlEmbedded `yaml:"embedded,omitempty"`
	Server   *yamlServer   `yaml:"server,omitempty"`
}

type yamlEmbedded struct {
	DBPath          string `yaml:"db_path"`
	VectorPath      string `yaml:"vector_path"`
	VectorDimension int    `yaml:"vector_dimension"`
	EnableWAL       bool   `yaml:"enable_wal"`
	CacheSizeKB     int    `yaml:"cache_size_kb"`
}

type yamlServer struct {
	DatabaseURL     string   `yaml:"database_url"`
	VectorService   string   `yaml:"vector_service"`
	VectorDimension int      `yaml:"vector_dimension"`
	Pool            yamlPool `yaml:"pool"`
}

type yamlPool struct {
	MinConns        int    `yaml:"min_conns"`
	MaxConns        int    `yaml:"max_conns"`
	ConnectTimeout  string `yaml:"connect_timeout"`
	IdleTimeout     string `yaml:"idle_timeout"`
	MaxConnLifetime string `yaml:"max_conn_lifetime"`
}

type yamlTimeouts struct {
	LLM         string `yaml:"llm"`
	Embedder    string `yaml:"embedder"`
	Repository  string `yaml:"repository"`
	Vector      string `yaml:"vector"`
	RemoteCache string `yaml:"remote_cache"`
}

type yamlLog struct {
	Level string `yaml:"level"`
}

// WriteDefault writes a starter deployment YAML file for mode ("embedded"
// or "server") to path, for the CLI's config-init flow.
func WriteDefault(path, mode string) error {
	var doc yamlFile
	doc.Log.Level = "info"
	doc.Timeouts = yamlTimeouts{LLM: "20s", Embedder: "10s", Repository: "5s", Vector: "5s", RemoteCache: "2s"}

	switch mode {
	case "embedded":
		doc.Deployment = yamlDeployment{
			Mode: "embedded",
			Embedded: &yamlEmbedded{
				DBPath:          "agentmem.db",
				VectorPath:      "agentmem.vec.db",
				VectorDimension: 1536,
				EnableWAL:       true,
				CacheSizeKB:     2000,
			},
		}
	case "server":
		doc.Deployment = yamlDeployment{
			Mode: "server",
			Server: &yamlServer{
				DatabaseURL:     "postgres://localhost:5432/agentmem",
				VectorService:   string(types.VectorServicePgVector),
				VectorDimension: 1536,
				Pool:            yamlPool{MinConns: 1, MaxConns: 10, ConnectTimeout: "5s", IdleTimeout: "5m", MaxConnLifetime: "1h"},
			},
		}
	default:
		return apperr.Validationf("config.WriteDefault", `mode must be "embedded" or "server", got %q`, mode)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "config.WriteDefault", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return apperr.Wrap(apperr.Internal, "config.WriteDefault", err)
	}
	return nil
}
