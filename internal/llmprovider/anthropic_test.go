package llmprovider

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"

	"github.com/agentmem/agentmem/internal/apperr"
)

func TestNewRequiresAPIKey(t *testing.T) {
	os.Unsetenv("ANTHROPIC_API_KEY")
	_, err := New("", "claude-haiku-4-5")
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("New with empty key = %v, want Validation", err)
	}
}

func TestNewEnvKeyTakesPrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	a, err := New("explicit-key", "claude-haiku-4-5")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a == nil {
		t.Fatal("expected non-nil client")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableNetTimeout(t *testing.T) {
	var err error = timeoutErr{}
	if !isRetryable(err) {
		t.Fatal("expected a net.Error timeout to be retryable")
	}
	var _ net.Error = timeoutErr{}
}

func TestIsRetryableContextCanceledIsNot(t *testing.T) {
	if isRetryable(context.Canceled) {
		t.Fatal("context.Canceled must not be retryable")
	}
}

func TestIsRetryableNilIsFalse(t *testing.T) {
	if isRetryable(nil) {
		t.Fatal("nil error must not be retryable")
	}
}

func TestIsRetryableUnclassifiedIsFalse(t *testing.T) {
	if isRetryable(errors.New("boom")) {
		t.Fatal("a plain error with no classification should not be retryable")
	}
}
