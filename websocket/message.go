package websocket

import "context"

// MessageType distinguishes the two data opcodes at the message level
// (RFC 6455 Section 5.6), plus the three control frames ReadMsg can
// return as-is.
type MessageType int

const (
	// TextMessage indicates a message whose payload is, as a whole,
	// valid UTF-8 (RFC 6455 Section 5.6).
	TextMessage MessageType = iota + 1

	// BinaryMessage indicates a message with no encoding constraint on
	// its payload.
	BinaryMessage

	// CloseMessage indicates a Close frame arriving as the first frame
	// of a read, returned as-is rather than assembled into a Text or
	// Binary message.
	CloseMessage

	// PingMessage indicates a Ping frame arriving as the first frame of
	// a read (only possible when AutoPong is disabled), returned as-is.
	PingMessage

	// PongMessage indicates an unsolicited Pong frame arriving as the
	// first frame of a read, returned as-is.
	PongMessage
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	case CloseMessage:
		return "close"
	case PingMessage:
		return "ping"
	case PongMessage:
		return "pong"
	default:
		return "unknown"
	}
}

// messageHeaderPadding is the left padding ReadMsg reserves in its
// destination FrameBuffer: a message assembled by ReadMsg is a local,
// unmasked representation (it is never re-sent as-is), so the largest
// header it can need is the 10-byte unmasked extended-length form.
const messageHeaderPadding = 10

// ReadMsg assembles one complete message - a single unfragmented frame
// or a Text/Binary frame followed by zero or more Continuation frames
// until Fin - into fb. It returns the message's type once fully
// assembled.
//
// A control frame (Close, Pong, or Ping when AutoPong is off and lets
// one reach this far) arriving as the very first frame is not part of any
// message: it is copied into fb and returned as-is, with a
// CloseMessage/PingMessage/PongMessage type the caller can switch on.
// Once assembly has started, any frame that is not a Continuation -
// including a Pong - is a protocol violation and fails with
// ErrInvalidMsgFrame; nothing is silently skipped.
//
// fb's header slot is synthesized only at the end, once the total
// payload length is known, using FinalizeHeader: each fragment's
// payload is appended in place via AppendPayload as it arrives, and the
// header is written into the reserved left padding without ever moving
// the payload.
//
// For a Text message, UTF-8 validity is checked incrementally across
// fragment boundaries using incompleteUTF8, so a multi-byte code point
// split across two fragments is not mistaken for invalid UTF-8, and
// the stream can fail fast on the first fragment that is invalid
// independent of what follows it.
func (ws *WebSocket) ReadMsg(ctx context.Context, fb *FrameBuffer) (MessageType, error) {
	if err := fb.SetParamsThroughExpansion(messageHeaderPadding, 0, messageHeaderPadding); err != nil {
		return 0, err
	}

	var (
		msgOpCode  OpCode
		incomplete *incompleteUTF8
		started    bool
	)

	for {
		h, err := ws.ReadFrame(ctx, ws.readScratch)
		if err != nil {
			return 0, err
		}

		if !started {
			switch h.OpCode {
			case OpClose, OpPing, OpPong:
				return deliverControlAsMessage(fb, h, ws.readScratch.Payload())
			case OpContinuation:
				return 0, ErrInvalidContinuationFrame
			case OpText, OpBinary:
				msgOpCode = h.OpCode
				started = true
			default:
				return 0, ErrInvalidMsgFrame
			}
		} else if h.OpCode != OpContinuation {
			return 0, ErrInvalidMsgFrame
		}

		payload := ws.readScratch.Payload()

		if msgOpCode == OpText {
			if incomplete != nil {
				rem, done, err := incomplete.complete(payload)
				if err != nil {
					return 0, err
				}
				if !done {
					// The whole fragment went into completing the
					// pending code point and it is still not enough.
					if err := fb.AppendPayload(payload); err != nil {
						return 0, err
					}
					if h.Fin {
						return 0, ErrInvalidUTF8
					}
					continue
				}
				incomplete = nil
				payload = rem
			}

			tail, ok := validateUTF8Tail(payload)
			if !ok {
				return 0, ErrInvalidUTF8
			}
			incomplete = tail
		}

		if err := fb.AppendPayload(ws.readScratch.Payload()); err != nil {
			return 0, err
		}

		if h.Fin {
			if incomplete != nil {
				return 0, ErrInvalidUTF8
			}
			final := Header{Fin: true, OpCode: msgOpCode, PayloadLen: uint64(fb.PayloadLen())}
			if err := fb.FinalizeHeader(final); err != nil {
				return 0, err
			}
			return messageTypeFor(msgOpCode), nil
		}
	}
}

func messageTypeFor(op OpCode) MessageType {
	if op == OpText {
		return TextMessage
	}
	return BinaryMessage
}

// deliverControlAsMessage copies a control frame's header+payload into
// fb unchanged and reports it under the MessageType matching its
// opcode, for the case where a Close/Ping/Pong arrives as the first
// frame ReadMsg sees.
func deliverControlAsMessage(fb *FrameBuffer, h Header, payload []byte) (MessageType, error) {
	if err := fb.SetParamsThroughExpansion(0, h.EncodedLen(), h.EncodedLen()+len(payload)); err != nil {
		return 0, err
	}
	EncodeHeader(fb.Header(), h)
	copy(fb.Payload(), payload)
	return controlMessageTypeFor(h.OpCode), nil
}

func controlMessageTypeFor(op OpCode) MessageType {
	switch op {
	case OpPing:
		return PingMessage
	case OpPong:
		return PongMessage
	default:
		return CloseMessage
	}
}
