package websocket

import (
	"context"
	"encoding/binary"
	"io"
	"unicode/utf8"
)

// ReadFrame pulls the next frame from the transport into the read
// buffer, decodes and validates its header, applies the auto-reply
// policy, and copies the result into the caller-owned fb.
//
// Ping frames are fully absorbed when AutoPong is set: a Pong mirroring
// the Ping's payload is written and ReadFrame transparently continues
// to the next frame, so a caller only ever observes the Pong the
// transport recorded for it, never the Ping itself. Close, Pong, Text,
// Binary, and Continuation frames are always delivered to the caller.
func (ws *WebSocket) ReadFrame(ctx context.Context, fb *FrameBuffer) (Header, error) {
	for {
		start := ws.rb.currentEnd
		ws.rb.mergeCurrentFrameWithAntecedentFrames()

		if err := ws.ensureBuffered(ctx, start, 2); err != nil {
			return Header{}, err
		}

		prefixLen := headerPrefixLen(ws.rb.buf[start+1])
		if err := ws.ensureBuffered(ctx, start, prefixLen); err != nil {
			return Header{}, err
		}

		masked := ws.rb.buf[start+1]&0x80 != 0
		maskLen := 0
		if masked {
			maskLen = 4
		}
		headerLen := prefixLen + maskLen
		if err := ws.ensureBuffered(ctx, start, headerLen); err != nil {
			return Header{}, err
		}

		h, err := DecodeHeader(ws.rb.buf[start : start+headerLen])
		if err != nil {
			return Header{}, err
		}
		if h.PayloadLen > ws.MaxPayloadSize {
			return Header{}, ErrVeryLargePayload
		}

		total := headerLen + int(h.PayloadLen)
		if err := ws.ensureBuffered(ctx, start, total); err != nil {
			return Header{}, err
		}
		ws.rb.currentEnd = start + total

		if ws.isStreamClosed && h.OpCode != OpClose {
			return Header{}, ErrConnectionClosed
		}

		payload := ws.rb.buf[start+headerLen : start+total]
		finalHeaderLen := headerLen

		if !ws.isClient {
			if !h.Masked {
				return Header{}, ErrNoFrameMask
			}
			applyMask(payload, h.Mask)
			h.Masked = false
			finalHeaderLen = prefixLen // drop the 4 mask bytes now stripped
		}

		switch h.OpCode {
		case OpPing:
			if ws.AutoPong {
				if err := ws.sendPong(ctx, payload); err != nil {
					return Header{}, err
				}
				ws.Logger.Debug().Msg("auto-replied to ping with pong")
				continue // Ping itself is not delivered to the caller.
			}
			return ws.deliver(fb, h, finalHeaderLen, payload)

		case OpClose:
			if ws.AutoClose && !ws.isStreamClosed {
				return ws.handleIncomingClose(ctx, fb, h, finalHeaderLen, payload)
			}
			return ws.deliver(fb, h, finalHeaderLen, payload)

		default: // Text, Binary, Continuation, Pong.
			return ws.deliver(fb, h, finalHeaderLen, payload)
		}
	}
}

// ensureBuffered grows the read buffer and pulls from the transport
// until at least need bytes are available starting at start (which
// must equal ws.rb.currentEnd for the whole call). Each transport Read
// fills as much of the buffer's tail as the transport returns, so
// bytes belonging to following frames are captured and reused by the
// next ReadFrame call instead of triggering another transport round
// trip.
func (ws *WebSocket) ensureBuffered(ctx context.Context, start, need int) error {
	rb := ws.rb
	for rb.followingEnd-start < need {
		target := need
		if target < defaultReadBufferCapacity {
			target = defaultReadBufferCapacity
		}
		rb.expandAfterCurrentFrame(target)

		n, err := ws.transport.Read(ctx, rb.buf[rb.followingEnd:])
		if n == 0 {
			if err == nil {
				err = io.EOF
			}
			return wrapErr(ErrUnexpectedEOF, "%v", err)
		}
		rb.followingEnd += n

		if err != nil && err != io.EOF {
			return err
		}
		if err == io.EOF && rb.followingEnd-start < need {
			return wrapErr(ErrUnexpectedEOF, "transport closed mid-frame")
		}
	}
	return nil
}

// deliver copies a decoded frame (header re-encoded fresh from h, since
// server-side unmasking may have changed its length, plus the already
// unmasked payload) into fb, and clears the read buffer once nothing
// from a following frame remains buffered.
func (ws *WebSocket) deliver(fb *FrameBuffer, h Header, headerLen int, payload []byte) (Header, error) {
	if err := fb.SetParamsThroughExpansion(0, headerLen, headerLen+len(payload)); err != nil {
		return Header{}, err
	}
	EncodeHeader(fb.Header(), h)
	copy(fb.Payload(), payload)

	if !ws.rb.hasFollowingFrames() {
		ws.rb.clear()
	}

	return h, nil
}

// sendPong writes an unsolicited-looking Pong whose payload mirrors
// payload, reusing the WebSocket's scratch FrameBuffer.
func (ws *WebSocket) sendPong(ctx context.Context, payload []byte) error {
	if err := BuildFrame(ws.scratch, ws.isClient, true, OpPong, payload); err != nil {
		return err
	}
	return ws.WriteFrame(ctx, ws.scratch)
}

// handleIncomingClose validates an incoming Close frame's payload. An
// invalid payload triggers a best-effort Close(1002) write before
// surfacing ErrInvalidCloseFrame; a valid one is echoed back to the
// peer (RFC 6455 Section 7.1.1) and delivered to the caller.
func (ws *WebSocket) handleIncomingClose(ctx context.Context, fb *FrameBuffer, h Header, headerLen int, payload []byte) (Header, error) {
	code, reason, err := parseClosePayload(payload)
	if err != nil {
		_ = ws.writeCloseFrame(ctx, CloseProtocolError, "")
		ws.Logger.Debug().Err(err).Msg("rejected invalid close frame")
		return Header{}, ErrInvalidCloseFrame
	}

	if err := ws.writeCloseFrame(ctx, code, reason); err != nil {
		return Header{}, err
	}
	ws.Logger.Debug().Uint16("code", uint16(code)).Msg("echoed close frame")

	return ws.deliver(fb, h, headerLen, payload)
}

// writeCloseFrame builds and writes a Close frame, marking the stream
// closed (WriteFrame does this for any OpClose frame).
func (ws *WebSocket) writeCloseFrame(ctx context.Context, code CloseCode, reason string) error {
	if err := BuildCloseFrame(ws.scratch, ws.isClient, code, reason); err != nil {
		return err
	}
	return ws.WriteFrame(ctx, ws.scratch)
}

// parseClosePayload validates a received Close frame's payload:
// empty, or >=2 bytes with an allowed CloseCode and a UTF-8 reason of
// at most 123 bytes (a 125-byte control payload already enforces the
// length ceiling by construction).
func parseClosePayload(payload []byte) (CloseCode, string, error) {
	if len(payload) == 0 {
		return CloseNormal, "", nil
	}
	if len(payload) < 2 {
		return 0, "", ErrInvalidCloseFrame
	}

	code := CloseCode(binary.BigEndian.Uint16(payload[:2]))
	if !code.IsAllowed() {
		return 0, "", ErrInvalidCloseFrame
	}

	reason := payload[2:]
	if !utf8.Valid(reason) {
		return 0, "", ErrInvalidCloseFrame
	}

	return code, string(reason), nil
}
