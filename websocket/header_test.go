package websocket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h    Header
	}{
		{"fin text 0 len", Header{Fin: true, OpCode: OpText}},
		{"fin text 125 len", Header{Fin: true, OpCode: OpText, PayloadLen: 125}},
		{"16-bit len boundary", Header{Fin: true, OpCode: OpBinary, PayloadLen: 126}},
		{"16-bit len max", Header{Fin: true, OpCode: OpBinary, PayloadLen: 0xFFFF}},
		{"64-bit len boundary", Header{Fin: true, OpCode: OpBinary, PayloadLen: 0x10000}},
		{"unfinished continuation", Header{Fin: false, OpCode: OpContinuation, PayloadLen: 10}},
		{"masked client frame", Header{Fin: true, OpCode: OpText, PayloadLen: 5, Masked: true, Mask: [4]byte{1, 2, 3, 4}}},
		{"ping control", Header{Fin: true, OpCode: OpPing, PayloadLen: 4}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := make([]byte, tc.h.EncodedLen())
			n := EncodeHeader(buf, tc.h)
			require.Equal(t, len(buf), n)

			got, err := DecodeHeader(buf)
			require.NoError(t, err)
			require.Equal(t, tc.h, got)
		})
	}
}

func TestHeaderPrefixLen(t *testing.T) {
	t.Parallel()

	require.Equal(t, 2, headerPrefixLen(50))
	require.Equal(t, 4, headerPrefixLen(126))
	require.Equal(t, 10, headerPrefixLen(127))
	// The mask bit must not affect the prefix length computation.
	require.Equal(t, 4, headerPrefixLen(0x80|126))
}

func TestDecodeHeaderRejectsReservedBits(t *testing.T) {
	t.Parallel()

	h := Header{Fin: true, OpCode: OpText, RSV1: true}
	buf := make([]byte, h.EncodedLen())
	EncodeHeader(buf, Header{Fin: true, OpCode: OpText})
	buf[0] |= 0x40 // set RSV1 directly; EncodeHeader never emits RSV bits

	_, err := DecodeHeader(buf)
	require.ErrorIs(t, err, ErrReservedBitsAreNotZero)
}

func TestDecodeHeaderRejectsInvalidOpcode(t *testing.T) {
	t.Parallel()

	buf := []byte{0x80 | 0x03, 0x00} // fin=1, opcode=3 (reserved)
	_, err := DecodeHeader(buf)
	require.ErrorIs(t, err, ErrInvalidOpCodeByte)
}

func TestDecodeHeaderRejectsFragmentedControlFrame(t *testing.T) {
	t.Parallel()

	buf := []byte{0x09, 0x00} // fin=0, opcode=ping
	_, err := DecodeHeader(buf)
	require.ErrorIs(t, err, ErrFragmentedControlFrame)
}

func TestDecodeHeaderRejectsOversizedControlFrame(t *testing.T) {
	t.Parallel()

	h := Header{Fin: true, OpCode: OpPing, PayloadLen: 126}
	buf := make([]byte, h.EncodedLen())
	EncodeHeader(buf, h)

	_, err := DecodeHeader(buf)
	require.ErrorIs(t, err, ErrVeryLargeControlFrame)
}

func TestDecodeHeaderRejectsReservedHighBitOn64BitLength(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 10)
	buf[0] = 0x80 | byte(OpBinary)
	buf[1] = payloadLen64Marker
	buf[2] = 0x80 // sets the reserved MSB of the 64-bit length

	_, err := DecodeHeader(buf)
	require.ErrorIs(t, err, ErrVeryLargePayload)
}

func TestDecodeHeaderRejectsShortBuffers(t *testing.T) {
	t.Parallel()

	_, err := DecodeHeader([]byte{0x81})
	require.ErrorIs(t, err, ErrInvalidHeaderBounds)

	_, err = DecodeHeader([]byte{0x81, payloadLen16Marker, 0x00})
	require.ErrorIs(t, err, ErrInvalidHeaderBounds)
}
