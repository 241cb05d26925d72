package websocket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameBufferSetHeaderIndicesAndPayloadLen(t *testing.T) {
	t.Parallel()

	fb := NewFrameBuffer(32)
	require.NoError(t, fb.SetHeaderIndices(4, 2))
	require.Equal(t, 2, fb.HeaderLen())

	require.NoError(t, fb.SetPayloadLen(10))
	require.Equal(t, 10, fb.PayloadLen())
	require.Len(t, fb.Payload(), 10)
	require.Len(t, fb.Frame(), 12)
}

func TestFrameBufferSetHeaderIndicesRejectsOversizedHeader(t *testing.T) {
	t.Parallel()

	fb := NewFrameBuffer(32)
	err := fb.SetHeaderIndices(0, maxHeaderLen+1)
	require.ErrorIs(t, err, ErrInvalidHeaderBounds)
}

func TestFrameBufferSetPayloadLenRejectsOverflow(t *testing.T) {
	t.Parallel()

	fb := NewFrameBuffer(16)
	require.NoError(t, fb.SetHeaderIndices(0, 2))
	err := fb.SetPayloadLen(100)
	require.ErrorIs(t, err, ErrInvalidPayloadBounds)
}

func TestFrameBufferSetParamsThroughExpansionGrowsBuffer(t *testing.T) {
	t.Parallel()

	fb := NewFrameBuffer(4)
	err := fb.SetParamsThroughExpansion(2, 2, 1000)
	require.NoError(t, err)
	require.Equal(t, 996, fb.PayloadLen())
	require.GreaterOrEqual(t, len(fb.buf), 1000)
}

func TestFrameBufferAppendPayloadGrowsAndPreservesHeader(t *testing.T) {
	t.Parallel()

	fb := NewFrameBuffer(8)
	require.NoError(t, fb.SetHeaderIndices(0, 2))
	require.NoError(t, fb.SetPayloadLen(0))

	require.NoError(t, fb.AppendPayload([]byte("hello")))
	require.NoError(t, fb.AppendPayload([]byte(" world, this is longer than the initial capacity")))

	require.Equal(t, 2, fb.HeaderLen())
	require.Equal(t, "hello world, this is longer than the initial capacity", string(fb.Payload()))
}

func TestFrameBufferFinalizeHeaderUsesLeftPadding(t *testing.T) {
	t.Parallel()

	// Reserve 10 bytes of padding (largest unmasked header) before any
	// payload, as message.go's ReadMsg does.
	fb := NewFrameBuffer(32)
	require.NoError(t, fb.SetParamsThroughExpansion(10, 0, 10))
	require.NoError(t, fb.AppendPayload([]byte("hi")))

	h := Header{Fin: true, OpCode: OpText, PayloadLen: uint64(fb.PayloadLen())}
	require.NoError(t, fb.FinalizeHeader(h))

	require.Equal(t, "hi", string(fb.Payload()))
	got, err := DecodeHeader(fb.Header())
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, append(append([]byte{}, fb.Header()...), fb.Payload()...), fb.Frame())
}

func TestFrameBufferFinalizeHeaderRejectsInsufficientPadding(t *testing.T) {
	t.Parallel()

	fb := NewFrameBuffer(32)
	require.NoError(t, fb.SetParamsThroughExpansion(1, 0, 1))

	h := Header{Fin: true, OpCode: OpText, PayloadLen: 0, Masked: true, Mask: [4]byte{1, 2, 3, 4}}
	err := fb.FinalizeHeader(h)
	require.ErrorIs(t, err, ErrInvalidHeaderBounds)
}

func TestFrameBufferClearResetsCursorsNotBackingArray(t *testing.T) {
	t.Parallel()

	fb := NewFrameBuffer(16)
	require.NoError(t, fb.SetHeaderIndices(0, 2))
	require.NoError(t, fb.SetPayloadLen(4))
	require.NoError(t, fb.AppendPayload([]byte("data")))

	backing := fb.buf
	fb.Clear()

	require.Equal(t, 0, fb.HeaderLen())
	require.Equal(t, 0, fb.PayloadLen())
	require.Same(t, &backing[0], &fb.buf[0])
}
