package websocket

import "context"

// WriteFrame sends the header+payload currently staged in fb:
//
//  1. If this is a client-side WebSocket, a fresh mask is drawn from the
//     RNG, written into the header, and the payload is XORed in place.
//     BuildFrame always reserves the header bytes for a mask on client
//     frames but leaves the mask key itself zero, so this step is not
//     optional: skipping it would ship an all-zero "mask" instead of a
//     real one.
//  2. If the frame's opcode is Close, isStreamClosed is latched before
//     the write, so a racing caller never observes a half-sent Close
//     as "still open".
//  3. The header+payload (fb.Frame()) is written to the transport in
//     one call; a partial write surfaces as ErrIO.
//
// Callers build fb via BuildFrame or BuildCloseFrame before calling
// WriteFrame.
func (ws *WebSocket) WriteFrame(ctx context.Context, fb *FrameBuffer) error {
	h, err := DecodeHeader(fb.Header())
	if err != nil {
		return err
	}

	if ws.isClient {
		mask := ws.rng.Mask4()
		h.Masked = true
		h.Mask = mask
		n := EncodeHeader(fb.Header(), h)
		if n != fb.HeaderLen() {
			return wrapErr(ErrInvalidHeaderBounds, "mask changed header length: got %d want %d", n, fb.HeaderLen())
		}
		applyMask(fb.Payload(), mask)
	}

	if h.OpCode == OpClose {
		ws.isStreamClosed = true
	}

	if err := ws.transport.WriteAll(ctx, fb.Frame()); err != nil {
		return err
	}

	return nil
}

// BuildFrame is the common entry point for sending a single,
// unfragmented frame: it places a header sized for the payload length
// at the start of fb (no left padding), copies payload right after it,
// and encodes the header to match. isClient controls whether room for a mask is
// reserved (4 extra bytes) even though WriteFrame fills the mask bytes
// lazily.
func BuildFrame(fb *FrameBuffer, isClient bool, fin bool, opCode OpCode, payload []byte) error {
	headerLen := (Header{Fin: fin, OpCode: opCode, PayloadLen: uint64(len(payload))}).EncodedLen()
	if isClient {
		headerLen += 4
	}

	payloadEnd := headerLen + len(payload)
	if err := fb.SetParamsThroughExpansion(0, headerLen, payloadEnd); err != nil {
		return err
	}
	copy(fb.Payload(), payload)

	h := Header{Fin: fin, OpCode: opCode, PayloadLen: uint64(len(payload)), Masked: isClient}
	n := EncodeHeader(fb.Header()[:headerLen], h)
	if n != headerLen {
		return wrapErr(ErrInvalidHeaderBounds, "unexpected encoded header length: got %d want %d", n, headerLen)
	}
	return nil
}

// BuildCloseFrame stages a Close frame: the first two payload bytes
// are code in big-endian, followed by reason truncated to the
// 123-byte ceiling (125-byte control payload minus the 2-byte code).
func BuildCloseFrame(fb *FrameBuffer, isClient bool, code CloseCode, reason string) error {
	if len(reason) > maxCloseReasonLen {
		reason = reason[:maxCloseReasonLen]
	}

	payload := make([]byte, 2+len(reason))
	payload[0] = byte(code >> 8)
	payload[1] = byte(code)
	copy(payload[2:], reason)

	return BuildFrame(fb, isClient, true, OpClose, payload)
}
