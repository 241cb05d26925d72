package websocket

import (
	"crypto/sha1" //nolint:gosec // SHA-1 required by RFC 6455 Section 1.3, not for cryptographic security.
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// UpgradeOptions configures the server side of the opening handshake.
// The zero value allows every origin and negotiates no subprotocol.
type UpgradeOptions struct {
	// Subprotocols is the list of subprotocols the server is willing to
	// speak; the first one also present in the client's
	// Sec-WebSocket-Protocol header is selected.
	Subprotocols []string

	// CheckOrigin verifies the Origin header. nil allows every origin,
	// which is appropriate only when the server is not reachable from
	// a browser context. Return false to reject the upgrade.
	CheckOrigin func(*http.Request) bool

	// Config is the Config the resulting WebSocket is constructed with.
	// The zero value falls back to DefaultConfig.
	Config Config
}

// Upgraded is the result of a successful server-side handshake: the
// framing layer plus the negotiated subprotocol and a per-connection ID
// useful for logging. NewConn assigns a Conn its own, separate ID, and
// that is the one Hub logs.
type Upgraded struct {
	WS          *WebSocket
	Subprotocol string
	ConnID      uuid.UUID
}

// Upgrade upgrades an HTTP/1.1 request to a WebSocket connection,
// implementing the opening handshake of RFC 6455 Section 4.2:
//
//  1. The request method must be GET.
//  2. The Upgrade header must contain the "websocket" token.
//  3. The Connection header must contain the "upgrade" token.
//  4. Sec-WebSocket-Version must be "13".
//  5. Sec-WebSocket-Key must be present.
//  6. CheckOrigin, if set, must accept the request.
//  7. A subprotocol is negotiated, if any are configured.
//  8. Sec-WebSocket-Accept is computed and the 101 response is written.
//  9. The connection is hijacked and wrapped as a server-side WebSocket.
func Upgrade(w http.ResponseWriter, r *http.Request, opts UpgradeOptions) (*Upgraded, error) {
	if r.Method != http.MethodGet {
		return nil, ErrInvalidMethod
	}
	if !headerContainsToken(r.Header.Get("Upgrade"), "websocket") {
		return nil, ErrMissingUpgradeHeader
	}
	if !headerContainsToken(r.Header.Get("Connection"), "upgrade") {
		return nil, ErrInvalidConnectionHeader
	}
	if r.Header.Get("Sec-WebSocket-Version") != "13" {
		return nil, ErrInvalidSecWebsocketVersion
	}
	key := r.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return nil, ErrMissingSecWebSocketKey
	}
	if opts.CheckOrigin != nil && !opts.CheckOrigin(r) {
		return nil, ErrOriginNotAllowed
	}

	subprotocol := negotiateSubprotocol(r, opts.Subprotocols)
	accept := computeAcceptKey(key)

	w.Header().Set("Upgrade", "websocket")
	w.Header().Set("Connection", "Upgrade")
	w.Header().Set("Sec-WebSocket-Accept", accept)
	if subprotocol != "" {
		w.Header().Set("Sec-WebSocket-Protocol", subprotocol)
	}
	w.WriteHeader(http.StatusSwitchingProtocols)

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		return nil, ErrHijackUnsupported
	}
	netConn, bufrw, err := hijacker.Hijack()
	if err != nil {
		return nil, wrapErr(ErrIO, "hijack: %v", err)
	}
	if err := bufrw.Writer.Flush(); err != nil {
		_ = netConn.Close()
		return nil, wrapErr(ErrIO, "flush 101 response: %v", err)
	}

	cfg := opts.Config
	if cfg.MaxPayloadSize == 0 {
		cfg = DefaultConfig()
	}

	ws := NewWebSocket(NewNetTransport(netConn), false, nil, cfg)
	return &Upgraded{WS: ws, Subprotocol: subprotocol, ConnID: uuid.New()}, nil
}

// computeAcceptKey computes the Sec-WebSocket-Accept value for a
// client-supplied Sec-WebSocket-Key (RFC 6455 Section 1.3):
// base64(SHA-1(key + websocketGUID)).
func computeAcceptKey(key string) string {
	h := sha1.New() //nolint:gosec // see import comment above
	h.Write([]byte(key))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// negotiateSubprotocol returns the first subprotocol in serverProtos
// that also appears in the request's Sec-WebSocket-Protocol header, or
// "" if none match or none are configured.
func negotiateSubprotocol(r *http.Request, serverProtos []string) string {
	if len(serverProtos) == 0 {
		return ""
	}
	clientProtos := strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",")
	for _, client := range clientProtos {
		client = strings.TrimSpace(client)
		for _, server := range serverProtos {
			if client == server {
				return client
			}
		}
	}
	return ""
}

// headerContainsToken reports whether header, a comma-separated list,
// contains token under case-insensitive comparison (RFC 6455 Section
// 4.2.1's Upgrade/Connection headers are specified this way).
func headerContainsToken(header, token string) bool {
	token = strings.ToLower(token)
	for _, part := range strings.Split(header, ",") {
		if strings.ToLower(strings.TrimSpace(part)) == token {
			return true
		}
	}
	return false
}

// CheckSameOrigin is a ready-to-use UpgradeOptions.CheckOrigin that
// accepts a request only when its Origin header's host matches the
// request's own Host, or when no Origin header is present at all (a
// non-browser client).
func CheckSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := parseOriginHost(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u, r.Host)
}

func parseOriginHost(origin string) (string, error) {
	// Origin is "scheme://host[:port]"; only the host[:port] part
	// matters for a same-origin comparison against r.Host.
	const schemeSep = "://"
	i := strings.Index(origin, schemeSep)
	if i < 0 {
		return "", ErrOriginNotAllowed
	}
	return origin[i+len(schemeSep):], nil
}
