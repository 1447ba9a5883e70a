// Command agentmem is the thin CLI front end for the AgentMem engine: it
// loads a deployment config, assembles an Orchestrator via
// internal/deployment, and exposes add/search/get/delete/stats as
// subcommands, grounded on cmd/bd/main.go's cobra root-command wiring.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentmem/agentmem/internal/config"
	"github.com/agentmem/agentmem/internal/deployment"
	"github.com/agentmem/agentmem/internal/embedder"
	"github.com/agentmem/agentmem/internal/embedderprovider"
	"github.com/agentmem/agentmem/internal/llm"
	"github.com/agentmem/agentmem/internal/llmprovider"
)

var (
	configPath string
	jsonOutput bool

	rootCtx    context.Context
	rootCancel context.CancelFunc

	assembly *deployment.Assembly
)

var rootCmd = &cobra.Command{
	Use:   "agentmem",
	Short: "AgentMem: long-term memory management for conversational agents",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" {
			return nil
		}
		return openAssembly(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeAssembly()
	},
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "agentmem.yaml", "path to the deployment config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openAssembly loads configPath and assembles the Orchestrator every
// subcommand but `init` needs. Model credentials are resolved from the
// environment the same way llmprovider/embedderprovider already do, so a
// deployment with no API keys set simply runs in rule-based-only mode.
func openAssembly(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}

	var opts []deployment.Option
	if model, ok := anthropicFromEnv(); ok {
		opts = append(opts, deployment.WithLLM(model), deployment.WithReranker(model))
	}
	if emb, ok := openAIEmbedderFromEnv(); ok {
		opts = append(opts, deployment.WithEmbedder(emb))
	}
	opts = append(opts, deployment.WithLogger(slog.Default()))

	a, err := deployment.Assemble(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("assemble deployment: %w", err)
	}
	assembly = a
	return nil
}

func closeAssembly() {
	if assembly == nil {
		return
	}
	if err := assembly.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: error closing deployment:", err)
	}
	assembly = nil
}

func anthropicFromEnv() (llm.LLM, bool) {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, false
	}
	model, err := llmprovider.New("", "claude-3-5-haiku-latest")
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: ANTHROPIC_API_KEY set but client init failed:", err)
		return nil, false
	}
	return model, true
}

func openAIEmbedderFromEnv() (embedder.Embedder, bool) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, false
	}
	emb, err := embedderprovider.New("", "text-embedding-3-small")
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: OPENAI_API_KEY set but client init failed:", err)
		return nil, false
	}
	return emb, true
}

// printResult writes v as indented JSON when --json is set, else delegates
// to a plain-text renderer supplied by the caller.
func printResult(v any, plain func()) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	plain()
}
