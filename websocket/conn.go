package websocket

import (
	"context"
	"encoding/json/v2"
	"sync"

	"github.com/google/uuid"
)

// Conn is the high-level, message-oriented API most callers want: it
// wraps a WebSocket with the write serialization RFC 6455 Section 5.1
// requires ("An endpoint MUST NOT send a Data frame after sending a
// Close frame") and convenience methods for text/JSON payloads.
//
// Conn.Read is safe to call from a single reader goroutine at a time;
// Conn.Write and its variants are safe for any number of concurrent
// callers, serialized internally by writeMu. Running one reader and
// any number of writers per connection, as Hub does, is the intended
// shape.
type Conn struct {
	ws *WebSocket
	ID uuid.UUID

	writeMu   sync.Mutex
	writeFB   *FrameBuffer
	readFB    *FrameBuffer
	closeOnce sync.Once
}

// NewConn wraps ws as a Conn with a freshly generated ID.
func NewConn(ws *WebSocket) *Conn {
	return &Conn{
		ws:      ws,
		ID:      uuid.New(),
		writeFB: NewFrameBuffer(maxHeaderLen + maxControlPayload),
		readFB:  NewFrameBuffer(defaultReadBufferCapacity),
	}
}

// Read reads the next complete message via ReadMsg, doing nothing
// extra beyond MessageType/payload shaping - fragmentation and UTF-8
// validation are handled by WebSocket underneath. A Close or
// unsolicited Ping/Pong arriving before any data frame comes back as
// CloseMessage/PingMessage/PongMessage with its raw payload, rather
// than as a Text or Binary message.
func (c *Conn) Read(ctx context.Context) (MessageType, []byte, error) {
	msgType, err := c.ws.ReadMsg(ctx, c.readFB)
	if err != nil {
		return 0, nil, err
	}
	payload := c.readFB.Payload()
	out := make([]byte, len(payload))
	copy(out, payload)
	return msgType, out, nil
}

// ReadText reads the next message and requires it to be text.
func (c *Conn) ReadText(ctx context.Context) (string, error) {
	msgType, data, err := c.Read(ctx)
	if err != nil {
		return "", err
	}
	if msgType != TextMessage {
		return "", ErrInvalidMsgFrame
	}
	return string(data), nil
}

// ReadJSON reads the next message, requires it to be text, and
// unmarshals it into v using encoding/json/v2.
func (c *Conn) ReadJSON(ctx context.Context, v any) error {
	msgType, data, err := c.Read(ctx)
	if err != nil {
		return err
	}
	if msgType != TextMessage {
		return ErrInvalidMsgFrame
	}
	return json.Unmarshal(data, v)
}

// Write sends data as a single unfragmented frame of the given type.
// Once a Close frame has been written it sends nothing and returns
// ErrConnectionClosed.
func (c *Conn) Write(ctx context.Context, msgType MessageType, data []byte) error {
	var op OpCode
	switch msgType {
	case TextMessage:
		op = OpText
	case BinaryMessage:
		op = OpBinary
	default:
		return ErrInvalidMsgFrame
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.ws.IsStreamClosed() {
		return ErrConnectionClosed
	}
	if err := BuildFrame(c.writeFB, c.ws.isClient, true, op, data); err != nil {
		return err
	}
	return c.ws.WriteFrame(ctx, c.writeFB)
}

// WriteText sends text as a single Text frame.
func (c *Conn) WriteText(ctx context.Context, text string) error {
	return c.Write(ctx, TextMessage, []byte(text))
}

// WriteJSON marshals v with encoding/json/v2 and sends it as a Text
// frame.
func (c *Conn) WriteJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Write(ctx, TextMessage, data)
}

// Ping sends a Ping frame carrying data (at most 125 bytes).
func (c *Conn) Ping(ctx context.Context, data []byte) error {
	return c.writeControl(ctx, OpPing, data)
}

// Pong sends an unsolicited Pong frame carrying data. ReadMsg already
// auto-replies to incoming Pings when Config.AutoPong is set, so most
// callers never need this directly.
func (c *Conn) Pong(ctx context.Context, data []byte) error {
	return c.writeControl(ctx, OpPong, data)
}

func (c *Conn) writeControl(ctx context.Context, op OpCode, data []byte) error {
	if len(data) > maxControlPayload {
		return ErrVeryLargeControlFrame
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := BuildFrame(c.writeFB, c.ws.isClient, true, op, data); err != nil {
		return err
	}
	return c.ws.WriteFrame(ctx, c.writeFB)
}

// Close sends a normal-closure Close frame with no reason. It is
// idempotent: subsequent calls are no-ops.
func (c *Conn) Close(ctx context.Context) error {
	return c.CloseWithCode(ctx, CloseNormal, "")
}

// CloseWithCode sends a Close frame with the given code and reason
// (RFC 6455 Section 7.1.1). It is idempotent: subsequent calls are
// no-ops. The Close echo that ReadFrame sends on its own when
// Config.AutoClose is set is written directly by the WebSocket, not
// through this method, and does not make later calls no-ops.
func (c *Conn) CloseWithCode(ctx context.Context, code CloseCode, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		err = BuildCloseFrame(c.writeFB, c.ws.isClient, code, reason)
		if err != nil {
			return
		}
		err = c.ws.WriteFrame(ctx, c.writeFB)
	})
	return err
}

// IsClosed reports whether a Close frame has already been written on
// this connection.
func (c *Conn) IsClosed() bool {
	return c.ws.IsStreamClosed()
}
