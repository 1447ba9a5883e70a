package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentmem/agentmem/internal/apperr"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "agentmem.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadEmbeddedMode(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
deployment:
  mode: embedded
  embedded:
    db_path: /tmp/agentmem.db
    vector_dimension: 768
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Deployment.IsEmbedded() {
		t.Fatal("expected embedded deployment")
	}
	if cfg.Deployment.Embedded.DBPath != "/tmp/agentmem.db" {
		t.Errorf("DBPath = %q", cfg.Deployment.Embedded.DBPath)
	}
	if cfg.Deployment.Dimension() != 768 {
		t.Errorf("Dimension() = %d, want 768", cfg.Deployment.Dimension())
	}
	if cfg.Timeouts.LLM.Seconds() != 20 {
		t.Errorf("default LLM timeout = %v, want 20s", cfg.Timeouts.LLM)
	}
}

func TestLoadServerMode(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
deployment:
  mode: server
  server:
    database_url: postgres://localhost/agentmem
    vector_service: PgVector
    vector_dimension: 1536
    pool:
      min_conns: 2
      max_conns: 20
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Deployment.IsServer() {
		t.Fatal("expected server deployment")
	}
	if cfg.Deployment.Server.Pool.MaxConns != 20 {
		t.Errorf("MaxConns = %d, want 20", cfg.Deployment.Server.Pool.MaxConns)
	}
}

func TestLoadServerModeMissingDatabaseURL(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
deployment:
  mode: server
  server:
    vector_service: PgVector
`)
	_, err := Load(path)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
deployment:
  mode: serverless
`)
	_, err := Load(path)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestLoadRejectsUnknownVectorService(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
deployment:
  mode: server
  server:
    database_url: postgres://localhost/agentmem
    vector_service: NotARealService
`)
	_, err := Load(path)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestLoadRejectsInvertedPoolSizes(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
deployment:
  mode: server
  server:
    database_url: postgres://localhost/agentmem
    vector_service: PgVector
    pool:
      min_conns: 10
      max_conns: 2
`)
	_, err := Load(path)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestLoadMissingFileStillAppliesDefaults(t *testing.T) {
	t.Setenv("AGENTMEM_DEPLOYMENT_MODE", "embedded")
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Deployment.Embedded.DBPath != "agentmem.db" {
		t.Errorf("DBPath = %q, want default", cfg.Deployment.Embedded.DBPath)
	}
}

func TestLoadEnvVarOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
deployment:
  mode: embedded
  embedded:
    db_path: from-file.db
`)
	t.Setenv("AGENTMEM_DB_PATH", "from-env.db")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Deployment.Embedded.DBPath != "from-env.db" {
		t.Errorf("DBPath = %q, want env override", cfg.Deployment.Embedded.DBPath)
	}
}
