package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndKindOf(t *testing.T) {
	err := apperr.Validationf("memory.create", "importance %.2f out of range", 1.5)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.True(t, apperr.Is(err, apperr.Validation))
	assert.False(t, apperr.Is(err, apperr.Conflict))
	assert.Contains(t, err.Error(), "memory.create")
}

func TestWrapPreservesCauseAndClassification(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := apperr.Wrap(apperr.Transient, "repository.find", cause)
	require.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, apperr.Transient, apperr.KindOf(wrapped))
}

func TestWrapIsIdempotentForAlreadyClassifiedErrors(t *testing.T) {
	original := apperr.Conflictf("memory.update", "version mismatch")
	rewrapped := apperr.Wrap(apperr.Internal, "orchestrator.add", original)
	assert.Equal(t, apperr.Conflict, rewrapped.Kind, "more specific classification should survive re-wrapping")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, apperr.Wrap(apperr.Internal, "op", nil))
}

func TestWithDetail(t *testing.T) {
	err := apperr.NotFoundf("memory.find", "id %s", "m-1").WithDetail("id", "m-1")
	assert.Equal(t, "m-1", err.Details["id"])
}

func TestKindOfUnclassifiedDefaultsToInternal(t *testing.T) {
	assert.Equal(t, apperr.Internal, apperr.KindOf(fmt.Errorf("boom")))
	assert.Equal(t, apperr.Kind(""), apperr.KindOf(nil))
}
