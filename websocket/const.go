package websocket

const (
	// maxControlPayload is the RFC 6455 Section 5.5 hard limit on
	// control frame (Close/Ping/Pong) payload length.
	maxControlPayload = 125

	// maxCloseReasonLen is the largest a Close frame's reason string
	// may be: the 125-byte control payload ceiling minus the 2-byte
	// status code.
	maxCloseReasonLen = maxControlPayload - 2

	// defaultMaxPayloadSize is the per-frame payload ceiling a
	// WebSocket enforces when no explicit Config.MaxPayloadSize is
	// given: 32 MiB.
	defaultMaxPayloadSize = 32 * 1024 * 1024

	// websocketGUID is the fixed magic string RFC 6455 Section 1.3
	// appends to a client's nonce before SHA-1 hashing, to compute the
	// Sec-WebSocket-Accept value.
	websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
)
