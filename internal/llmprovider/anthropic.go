// Package llmprovider implements the llm.LLM capability against hosted
// model providers. The Anthropic provider is grounded on the teacher's Claude Haiku
// client (internal/compact/haiku.go): API-key resolution, bounded retry
// with exponential backoff, and lazily-initialized OTel metrics.
package llmprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/llm"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxTokens      = 1024
)

// errAPIKeyRequired is returned when no API key is available from either
// the explicit argument or the environment.
var errAPIKeyRequired = errors.New("anthropic: API key required")

// Anthropic implements llm.LLM against the Anthropic Messages API.
type Anthropic struct {
	client         anthropic.Client
	model          anthropic.Model
	maxRetries     int
	initialBackoff time.Duration
	maxTokens      int64
}

// Option configures an Anthropic client beyond its required model.
type Option func(*Anthropic)

// WithMaxRetries overrides the default retry budget (3).
func WithMaxRetries(n int) Option {
	return func(a *Anthropic) { a.maxRetries = n }
}

// WithInitialBackoff overrides the default 1s initial backoff.
func WithInitialBackoff(d time.Duration) Option {
	return func(a *Anthropic) { a.initialBackoff = d }
}

// WithMaxTokens overrides the default response token cap (1024).
func WithMaxTokens(n int64) Option {
	return func(a *Anthropic) { a.maxTokens = n }
}

// New builds an Anthropic-backed LLM. ANTHROPIC_API_KEY takes precedence
// over an explicitly supplied apiKey, matching the teacher's resolution
// order so operators can override a baked-in key at deploy time.
func New(apiKey string, model anthropic.Model, opts ...Option) (*Anthropic, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, apperr.Wrap(apperr.Validation, "llmprovider.new", fmt.Errorf("%w: set ANTHROPIC_API_KEY or pass an explicit key", errAPIKeyRequired))
	}

	a := &Anthropic{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          model,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		maxTokens:      defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Generate implements llm.LLM.
func (a *Anthropic) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  toAnthropicMessages(messages),
	}
	msg, err := a.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}
	text, err := firstTextBlock(msg)
	if err != nil {
		return "", apperr.Wrap(apperr.Capability, "llmprovider.generate", err)
	}
	return text, nil
}

// GenerateWithFunctions implements llm.LLM.
func (a *Anthropic) GenerateWithFunctions(ctx context.Context, messages []llm.Message, functions []llm.FunctionSpec) (llm.FunctionResult, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  toAnthropicMessages(messages),
		Tools:     toAnthropicTools(functions),
	}
	msg, err := a.callWithRetry(ctx, params)
	if err != nil {
		return llm.FunctionResult{}, err
	}

	var result llm.FunctionResult
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			result.Text += block.Text
		case "tool_use":
			result.FunctionCalls = append(result.FunctionCalls, llm.FunctionCall{
				Name:      block.Name,
				Arguments: []byte(block.Input),
			})
		}
	}
	return result, nil
}

func toAnthropicMessages(messages []llm.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case llm.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			// System and user turns both map to a user message; Anthropic
			// models take system instructions as a dedicated top-level
			// field, but FactExtractor/DecisionEngine prompts fold system
			// guidance into the leading message, so this keeps ordering
			// intact without a second wire-format branch.
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

func toAnthropicTools(functions []llm.FunctionSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(functions))
	for _, f := range functions {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        f.Name,
				Description: anthropic.String(f.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: f.Parameters,
				},
			},
		})
	}
	return out
}

func firstTextBlock(msg *anthropic.Message) (string, error) {
	if len(msg.Content) == 0 {
		return "", fmt.Errorf("anthropic: response had no content blocks")
	}
	block := msg.Content[0]
	if block.Type != "text" {
		return "", fmt.Errorf("anthropic: expected a text block, got %s", block.Type)
	}
	return block.Text, nil
}

func (a *Anthropic) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, apperr.Wrap(apperr.Transient, "llmprovider.call", ctx.Err())
			}
		}

		t0 := time.Now()
		message, err := a.client.Messages.New(ctx, params)
		recordLatency(ctx, a.model, time.Since(t0))

		if err == nil {
			recordTokens(ctx, a.model, message.Usage.InputTokens, message.Usage.OutputTokens)
			return message, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.Transient, "llmprovider.call", ctx.Err())
		}
		if !isRetryable(err) {
			return nil, apperr.Wrap(apperr.Capability, "llmprovider.call", err)
		}
	}
	return nil, apperr.Wrap(apperr.Transient, "llmprovider.call", fmt.Errorf("failed after %d attempts: %w", a.maxRetries+1, lastErr))
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

var (
	metricsOnce     sync.Once
	inputTokens     metric.Int64Counter
	outputTokens    metric.Int64Counter
	requestDuration metric.Float64Histogram
)

func initMetrics() {
	meter := otel.Meter("github.com/agentmem/agentmem/llmprovider")
	inputTokens, _ = meter.Int64Counter("agentmem.llm.input_tokens")
	outputTokens, _ = meter.Int64Counter("agentmem.llm.output_tokens")
	requestDuration, _ = meter.Float64Histogram("agentmem.llm.request_duration_ms", metric.WithUnit("ms"))
}

func recordTokens(ctx context.Context, model anthropic.Model, in, out int64) {
	metricsOnce.Do(initMetrics)
	attrs := metric.WithAttributes(attribute.String("agentmem.llm.model", string(model)))
	inputTokens.Add(ctx, in, attrs)
	outputTokens.Add(ctx, out, attrs)
}

func recordLatency(ctx context.Context, model anthropic.Model, d time.Duration) {
	metricsOnce.Do(initMetrics)
	attrs := metric.WithAttributes(attribute.String("agentmem.llm.model", string(model)))
	requestDuration.Record(ctx, float64(d.Milliseconds()), attrs)
}

// ParseJSONArguments is a convenience helper for DecisionEngine/FactExtractor
// call sites that expect a function call's Arguments to unmarshal into a
// known struct.
func ParseJSONArguments(call llm.FunctionCall, into any) error {
	if err := json.Unmarshal(call.Arguments, into); err != nil {
		return apperr.Wrap(apperr.Capability, "llmprovider.parse_json_arguments", err)
	}
	return nil
}
