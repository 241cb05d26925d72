package websocket

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	mrand "math/rand/v2"
)

// RNG supplies the masking keys a client-side WebSocket uses on every
// write. Masking is not a security mechanism (RFC 6455 Section 10.3):
// it exists to defeat transparent-proxy cache poisoning, so any
// non-cryptographic stream of bytes suffices in production. Tests
// should inject a deterministic RNG instead.
type RNG interface {
	// Mask4 returns the next 4-byte masking key.
	Mask4() [4]byte
}

// xorshiftRNG is the default production RNG: a time-seeded
// xorshift64 stream (shift triple 13/7/17). It is intentionally not cryptographically
// secure - see the RNG doc comment.
type xorshiftRNG struct {
	state uint64
}

// NewXorshiftRNG returns an RNG seeded from the runtime's default
// random source (math/rand/v2, which is itself seeded from OS
// entropy). It is safe to keep one instance per WebSocket for its
// whole lifetime; it is not safe for concurrent use, matching a
// WebSocket's one-goroutine-per-connection model.
func NewXorshiftRNG() RNG {
	seed := mrand.Uint64()
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15 // avoid the fixed point at state==0
	}
	return &xorshiftRNG{state: seed}
}

func (x *xorshiftRNG) Mask4() [4]byte {
	x.state ^= x.state << 13
	x.state ^= x.state >> 7
	x.state ^= x.state << 17

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(x.state))
	return buf
}

// deterministicRNG replays a fixed sequence of masking keys, for
// reproducible tests of masking/write behavior.
type deterministicRNG struct {
	keys []([4]byte)
	next int
}

// NewDeterministicRNG returns an RNG that replays keys in order,
// repeating the last one once exhausted. Passing no keys panics: a
// deterministic RNG with nothing to replay is a test-authoring bug.
func NewDeterministicRNG(keys ...[4]byte) RNG {
	if len(keys) == 0 {
		panic("websocket: NewDeterministicRNG requires at least one key")
	}
	return &deterministicRNG{keys: keys}
}

func (d *deterministicRNG) Mask4() [4]byte {
	k := d.keys[d.next]
	if d.next < len(d.keys)-1 {
		d.next++
	}
	return k
}

// generateClientKey produces the 16 random bytes a client handshake
// nonce requires (RFC 6455 Section 4.1), read from r. Unlike masking,
// the handshake nonce has no security requirement placed on it by the
// RFC either, but crypto/rand costs nothing here and is what both the
// teacher and the pack's other client implementation use.
func generateClientKey(r io.Reader) ([16]byte, error) {
	var key [16]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, wrapErr(ErrIO, "generate client key: %v", err)
	}
	return key, nil
}

// defaultNonceSource is the io.Reader Dial draws every handshake nonce
// from; Dial has no option to replace it.
var defaultNonceSource io.Reader = rand.Reader
