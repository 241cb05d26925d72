package websocket

import (
	"github.com/rs/zerolog"
)

// Config controls a WebSocket's protocol-level policy. The zero value
// is not directly usable; call DefaultConfig and override fields as
// needed.
type Config struct {
	// AutoClose, if true (the default), makes ReadFrame echo an
	// incoming Close frame before returning it.
	AutoClose bool

	// AutoPong, if true (the default), makes ReadFrame reply to an
	// incoming Ping with a Pong carrying the same payload before
	// continuing.
	AutoPong bool

	// MaxPayloadSize bounds a single frame's payload. Exceeding it
	// fails the read with ErrVeryLargePayload. Defaults to 32 MiB.
	MaxPayloadSize uint64

	// Logger receives structured events for auto-replies and close
	// latching. The zero value (zerolog.Nop()) discards everything.
	Logger zerolog.Logger
}

// DefaultConfig returns the Config new WebSocket values use when none
// is supplied.
func DefaultConfig() Config {
	return Config{
		AutoClose:      true,
		AutoPong:       true,
		MaxPayloadSize: defaultMaxPayloadSize,
		Logger:         zerolog.Nop(),
	}
}

// WebSocket is the connection object: a transport, the read buffer
// that amortizes transport calls across it, an RNG for client-side
// masking keys, and the protocol-level policy of Config.
//
// A WebSocket is not safe for concurrent use: callers must serialize
// reads against each other and writes against each other, and must
// not run a read concurrently with a write it itself issued
// (auto-replies emitted inside a read must stay ordered after the
// caller's own prior writes). Running one WebSocket per goroutine, as
// Hub does, satisfies this.
type WebSocket struct {
	Config

	transport Transport
	rb        *readBuffer
	rng       RNG
	isClient  bool

	// scratch is a reusable FrameBuffer for control frames ReadFrame
	// emits on its own behalf (auto-Pong, Close echo/rejection), so
	// those writes never allocate and never disturb a caller's fb.
	scratch *FrameBuffer

	// readScratch receives each individual frame ReadFrame decodes
	// while ReadMsg assembles a multi-frame message, kept distinct from
	// scratch so an auto-reply write never clobbers the frame ReadMsg
	// is in the middle of consuming.
	readScratch *FrameBuffer

	isStreamClosed bool
}

// defaultReadBufferCapacity is the initial allocation for a
// WebSocket's read buffer; it grows on demand for larger frames.
const defaultReadBufferCapacity = 4096

// NewWebSocket builds a WebSocket around transport. isClient controls
// masking direction: client-to-server frames are always masked,
// server-to-client frames never are (RFC 6455 Section 5.3). rng
// supplies masking keys for client-side writes; pass nil for
// server-side WebSockets that will never need one (it is never
// consulted when isClient is false).
func NewWebSocket(transport Transport, isClient bool, rng RNG, cfg Config) *WebSocket {
	return &WebSocket{
		Config:      cfg,
		transport:   transport,
		rb:          newReadBuffer(defaultReadBufferCapacity),
		rng:         rng,
		isClient:    isClient,
		scratch:     NewFrameBuffer(maxHeaderLen + maxControlPayload),
		readScratch: NewFrameBuffer(defaultReadBufferCapacity),
	}
}

// IsStreamClosed reports whether a Close frame has already been
// written on this WebSocket. Once true, ReadFrame rejects any frame
// other than an incoming Close with ErrConnectionClosed.
func (ws *WebSocket) IsStreamClosed() bool {
	return ws.isStreamClosed
}
