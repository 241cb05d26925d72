// Package websocket implements the RFC 6455 WebSocket protocol: frame
// encoding/decoding, masking, fragmentation and message assembly,
// incremental UTF-8 validation across fragment boundaries, the
// ping/pong/close auto-reply policy, and both sides of the opening
// handshake (Upgrade for servers, Dial for clients).
//
// Framing is decoupled from the concrete connection through Transport:
// any duplex byte stream satisfying it can be framed over, not just a
// net.Conn.
//
// RFC reference: https://datatracker.ietf.org/doc/html/rfc6455
package websocket
