package websocket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadBufferExpandAfterCurrentFrame(t *testing.T) {
	t.Parallel()

	rb := newReadBuffer(4)
	rb.currentEnd = 2
	rb.expandAfterCurrentFrame(10)

	require.GreaterOrEqual(t, len(rb.buf), 12)
	require.Len(t, rb.afterCurrentFrameMut(), len(rb.buf)-2)
}

func TestReadBufferExpandAfterCurrentFrameNoopWhenAlreadyLargeEnough(t *testing.T) {
	t.Parallel()

	rb := newReadBuffer(100)
	original := rb.buf
	rb.currentEnd = 2
	rb.expandAfterCurrentFrame(10)

	require.Same(t, &original[0], &rb.buf[0])
}

func TestReadBufferMergeCurrentFrameWithAntecedentFrames(t *testing.T) {
	t.Parallel()

	rb := newReadBuffer(16)
	rb.setIndicesThroughExpansion(0, 5, 8)
	rb.mergeCurrentFrameWithAntecedentFrames()

	require.Equal(t, 5, rb.antecedentEnd)
	require.Equal(t, 5, rb.currentEnd)
	require.True(t, rb.hasFollowingFrames())
	require.Equal(t, 3, len(rb.following()))
}

func TestReadBufferSetIndicesThroughExpansionGrows(t *testing.T) {
	t.Parallel()

	rb := newReadBuffer(2)
	rb.setIndicesThroughExpansion(0, 1, 50)

	require.GreaterOrEqual(t, len(rb.buf), 50)
	require.Equal(t, 0, rb.antecedentEnd)
	require.Equal(t, 1, rb.currentEnd)
	require.Equal(t, 50, rb.followingEnd)
}

func TestReadBufferHasFollowingFrames(t *testing.T) {
	t.Parallel()

	rb := newReadBuffer(16)
	require.False(t, rb.hasFollowingFrames())

	rb.setIndicesThroughExpansion(0, 4, 4)
	require.False(t, rb.hasFollowingFrames())

	rb.setIndicesThroughExpansion(0, 4, 9)
	require.True(t, rb.hasFollowingFrames())
}

func TestReadBufferClearResetsCursors(t *testing.T) {
	t.Parallel()

	rb := newReadBuffer(16)
	rb.setIndicesThroughExpansion(2, 6, 10)
	rb.clear()

	require.Equal(t, 0, rb.antecedentEnd)
	require.Equal(t, 0, rb.currentEnd)
	require.Equal(t, 0, rb.followingEnd)
}
