package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := NewAppError("ML_UNAVAILABLE", "model server unreachable", cause)

	assert.Equal(t, "ML_UNAVAILABLE: model server unreachable: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewAppError("BAD_INPUT", "no items", nil)
	assert.Equal(t, "BAD_INPUT: no items", bare.Error())
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WrapError(nil, "context"))

	base := ErrSignalUnavailable
	wrapped := WrapError(base, "collecting ml signal")
	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "collecting ml signal")
}

func TestGRPCHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code codes.Code
	}{
		{InvalidArgumentError("bad items"), codes.InvalidArgument},
		{NotFoundError("no submission"), codes.NotFound},
		{UnavailableError("model down"), codes.Unavailable},
		{InternalError("boom"), codes.Internal},
		{InternalErrorf("boom %d", 2), codes.Internal},
	}
	for _, tt := range tests {
		st, ok := status.FromError(tt.err)
		require.True(t, ok)
		assert.Equal(t, tt.code, st.Code())
	}
}
