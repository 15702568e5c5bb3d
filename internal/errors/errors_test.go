package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesMetadataFromCode(t *testing.T) {
	tests := []struct {
		name          string
		code          string
		wantCategory  Category
		wantRetryable bool
	}{
		{
			name:          "blank name is validation",
			code:          ErrCodeBlankName,
			wantCategory:  CategoryValidation,
			wantRetryable: false,
		},
		{
			name:          "alias not found is resolution",
			code:          ErrCodeAliasNotFound,
			wantCategory:  CategoryResolution,
			wantRetryable: false,
		},
		{
			name:          "ambiguous alias is resolution",
			code:          ErrCodeAliasAmbiguous,
			wantCategory:  CategoryResolution,
			wantRetryable: false,
		},
		{
			name:          "cluster unavailable is retryable connectivity",
			code:          ErrCodeClusterUnavailable,
			wantCategory:  CategoryConnectivity,
			wantRetryable: true,
		},
		{
			name:          "cancellation is connectivity but not retryable",
			code:          ErrCodeOperationCancelled,
			wantCategory:  CategoryConnectivity,
			wantRetryable: false,
		},
		{
			name:          "partial batch is bulk",
			code:          ErrCodePartialBatch,
			wantCategory:  CategoryBulk,
			wantRetryable: false,
		},
		{
			name:          "rebuild in progress is conflict",
			code:          ErrCodeRebuildInProgress,
			wantCategory:  CategoryConflict,
			wantRetryable: false,
		},
		{
			name:          "internal falls through",
			code:          ErrCodeInternal,
			wantCategory:  CategoryInternal,
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
			assert.Equal(t, tt.code, GetCode(err))
		})
	}
}

func TestLiftError_ErrorFormat(t *testing.T) {
	err := NotFoundError("alias users does not resolve")
	assert.Equal(t, "[ERR_201_ALIAS_NOT_FOUND] alias users does not resolve", err.Error())
}

func TestLiftError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ConnectivityError("cluster unreachable", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, cause, err.Unwrap())
}

func TestLiftError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("rebuild failed: %w", AmbiguousError("two indices for alias"))
	assert.True(t, stderrors.Is(err, AmbiguousError("")))
	assert.False(t, stderrors.Is(err, NotFoundError("")))
}

func TestWrap(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, Wrap(ErrCodeSourceRead, nil))
	})

	t.Run("wraps cause and message", func(t *testing.T) {
		cause := stderrors.New("read timeout")
		err := Wrap(ErrCodeSourceRead, cause)
		require.NotNil(t, err)
		assert.Equal(t, "read timeout", err.Message)
		assert.True(t, err.Retryable)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(stderrors.New("plain")))
	assert.False(t, IsRetryable(ValidationError("blank")))
	assert.True(t, IsRetryable(ConnectivityError("down", nil)))
}

func TestWithDetail(t *testing.T) {
	err := ConflictError("rebuild already running").
		WithDetail("alias", "users").
		WithDetail("holder", "rebuild-7")

	assert.Equal(t, "users", err.Details["alias"])
	assert.Equal(t, "rebuild-7", err.Details["holder"])
}
