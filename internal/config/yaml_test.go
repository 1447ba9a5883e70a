package config

import (
	"path/filepath"
	"testing"
)

func TestWriteDefaultEmbeddedThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentmem.yaml")
	if err := WriteDefault(path, "embedded"); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Deployment.IsEmbedded() {
		t.Fatal("expected embedded deployment")
	}
	if cfg.Deployment.Embedded.VectorDimension != 1536 {
		t.Errorf("VectorDimension = %d, want 1536", cfg.Deployment.Embedded.VectorDimension)
	}
}

func TestWriteDefaultServerThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentmem.yaml")
	if err := WriteDefault(path, "server"); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Deployment.IsServer() {
		t.Fatal("expected server deployment")
	}
	if cfg.Deployment.Server.VectorService != "PgVector" {
		t.Errorf("VectorService = %q", cfg.Deployment.Server.VectorService)
	}
}

func TestWriteDefaultRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentmem.yaml")
	if err := WriteDefault(path, "serverless"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
