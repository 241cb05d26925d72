package websocket

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapErrMatchesSentinelViaErrorsIs(t *testing.T) {
	t.Parallel()

	err := wrapErr(ErrInvalidHeaderBounds, "need %d bytes, got %d", 10, 2)
	require.ErrorIs(t, err, ErrInvalidHeaderBounds)
	require.NotErrorIs(t, err, ErrIO)
	require.Equal(t, "websocket: header indices out of bounds: need 10 bytes, got 2", err.Error())
}

func TestWrapErrUnwrapReturnsSentinel(t *testing.T) {
	t.Parallel()

	err := wrapErr(ErrIO, "dial %s", "example.com:80")
	var target *Error
	require.True(t, errors.As(err, &target))
	require.Same(t, ErrIO, target.Unwrap())
}

func TestErrorWithEmptyMessageReturnsBareSentinelText(t *testing.T) {
	t.Parallel()

	err := &Error{Kind: ErrNoFrameMask}
	require.Equal(t, ErrNoFrameMask.Error(), err.Error())
}
