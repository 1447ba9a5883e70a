package deployment

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/agentmem/agentmem/internal/config"
	"github.com/agentmem/agentmem/internal/orchestrator"
	"github.com/agentmem/agentmem/internal/types"
)

func embeddedConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Deployment: types.DeploymentMode{
			Embedded: &types.EmbeddedConfig{
				DBPath:          filepath.Join(dir, "agentmem.db"),
				VectorPath:      filepath.Join(dir, "agentmem.vec"),
				VectorDimension: 8,
				EnableWAL:       true,
			},
		},
	}
}

func TestAssembleEmbeddedBuildsWorkingOrchestrator(t *testing.T) {
	ctx := context.Background()
	a, err := Assemble(ctx, embeddedConfig(t))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	defer a.Close()

	if a.Orchestrator == nil {
		t.Fatal("Assemble returned a nil Orchestrator")
	}

	res, err := a.Orchestrator.Add(ctx, "remembers to water the plants", orchestrator.AddOptions{UserID: "u1"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Memory == nil {
		t.Fatalf("Add returned %+v, want one outcome with a memory", res)
	}

	stats, err := a.Orchestrator.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Repository.MemoryCount != 1 {
		t.Fatalf("Stats.Repository.MemoryCount = %d, want 1", stats.Repository.MemoryCount)
	}
}

func TestAssembleRejectsConfigWithNoDeploymentMode(t *testing.T) {
	_, err := Assemble(context.Background(), &config.Config{})
	if err == nil {
		t.Fatal("Assemble should reject a config with neither embedded nor server mode set")
	}
}

func TestAssembleServerRejectsNonPgVectorService(t *testing.T) {
	cfg := &config.Config{
		Deployment: types.DeploymentMode{
			Server: &types.ServerConfig{
				DatabaseURL:     "postgres://localhost/agentmem",
				VectorService:   types.VectorServicePinecone,
				VectorDimension: 8,
			},
		},
	}
	_, err := Assemble(context.Background(), cfg)
	if err == nil {
		t.Fatal("Assemble should reject a server deployment naming an unsupported vector service")
	}
}
