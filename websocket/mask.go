package websocket

import "encoding/binary"

// maskWordSize is the width, in bytes, of the machine words the fast
// path XORs in place of single bytes.
const maskWordSize = 8

// applyMask XORs data in place with the 4-byte mask key, cycling the
// key every 4 bytes (RFC 6455 Section 5.3):
//
//	transformed[i] = data[i] XOR mask[i%4]
//
// applyMask is its own inverse: calling it twice with the same mask
// restores the original bytes, so the same function masks and
// unmasks.
//
// The interior of data is XORed a machine word at a time. A uint64
// built by repeating the 4-byte mask twice XORs correctly against any
// 8-byte-aligned chunk whose starting offset is a multiple of 4 within
// the logical stream; to handle chunks that start at an arbitrary
// byte offset, the repeated mask is rotated left by (offset%4)*8 bits
// before use. Bytes before the first aligned word and after the last
// one are XORed individually.
func applyMask(data []byte, mask [4]byte) {
	if len(data) < maskWordSize {
		maskBytes(data, mask, 0)
		return
	}

	// Byte-wise prefix up to the first 8-byte-aligned offset.
	align := alignOffset(data)
	maskBytes(data[:align], mask, 0)

	word := repeatMask(mask, align%4)

	rest := data[align:]
	nWords := len(rest) / maskWordSize
	for i := 0; i < nWords; i++ {
		off := i * maskWordSize
		v := binary.LittleEndian.Uint64(rest[off : off+maskWordSize])
		v ^= word
		binary.LittleEndian.PutUint64(rest[off:off+maskWordSize], v)
	}

	maskBytes(rest[nWords*maskWordSize:], mask, (align+nWords*maskWordSize)%4)
}

// alignOffset returns the number of leading bytes of data that must be
// masked byte-wise before a maskWordSize-aligned slice remains. It
// aligns to typical slice backing-array alignment (word size), which
// is sufficient since LittleEndian.Uint64/PutUint64 do not require
// hardware alignment; the goal here is purely to start word XOR at a
// byte count that keeps the loop simple, not to satisfy CPU alignment
// rules.
func alignOffset(data []byte) int {
	n := len(data) % maskWordSize
	if n == 0 {
		return 0
	}
	return maskWordSize - n
}

// repeatMask builds a uint64 equal to the 4-byte mask repeated twice
// and rotated so that XORing it against 8 consecutive bytes starting
// at a stream offset congruent to shift (mod 4) reproduces the
// byte-wise masking-key cycle.
func repeatMask(mask [4]byte, shift int) uint64 {
	rotated := [4]byte{
		mask[shift%4],
		mask[(shift+1)%4],
		mask[(shift+2)%4],
		mask[(shift+3)%4],
	}
	var buf [8]byte
	copy(buf[0:4], rotated[:])
	copy(buf[4:8], rotated[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// maskBytes XORs data byte-by-byte, where data[i] corresponds to
// stream offset startOffset+i for the purpose of choosing mask[j%4].
func maskBytes(data []byte, mask [4]byte, startOffset int) {
	for i := range data {
		data[i] ^= mask[(startOffset+i)%4]
	}
}
