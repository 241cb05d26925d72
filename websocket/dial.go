package websocket

import (
	"bufio"
	"context"
	"crypto/sha1" //nolint:gosec // SHA-1 required by RFC 6455 Section 1.3, not for cryptographic security.
	"crypto/tls"
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// DialOption configures Dial beyond its required URL argument.
type DialOption func(*dialConfig)

type dialConfig struct {
	headers http.Header
	config  Config
	rng     RNG
}

// WithHeader adds a single HTTP header to the handshake request, e.g.
// for Sec-WebSocket-Protocol negotiation or authentication.
func WithHeader(key, value string) DialOption {
	return func(c *dialConfig) {
		c.headers.Add(key, value)
	}
}

// WithConfig overrides the Config the resulting WebSocket is built
// with; the default is DefaultConfig.
func WithConfig(cfg Config) DialOption {
	return func(c *dialConfig) {
		c.config = cfg
	}
}

// WithRNG overrides the RNG used to draw client-side masking keys; the
// default draws from a fresh NewXorshiftRNG. Tests pass a
// NewDeterministicRNG to make masked frames reproducible.
func WithRNG(rng RNG) DialOption {
	return func(c *dialConfig) {
		c.rng = rng
	}
}

// Dial performs the client side of the opening handshake against wsURL
// ("ws://..." or "wss://...") and returns a ready-to-use WebSocket. The
// underlying TCP connection is established with net.Dialer; the
// handshake itself follows RFC 6455 Section 4.1.
func Dial(ctx context.Context, wsURL string, opts ...DialOption) (*WebSocket, error) {
	cfg := dialConfig{headers: http.Header{}, config: DefaultConfig()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.rng == nil {
		cfg.rng = NewXorshiftRNG()
	}

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, wrapErr(ErrNoAuthority, "parse URL: %v", err)
	}
	addr, err := dialAddr(u)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	var conn net.Conn
	if u.Scheme == "wss" {
		conn, err = (&tls.Dialer{NetDialer: &d}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, wrapErr(ErrIO, "dial %s: %v", addr, err)
	}

	nonce, err := dialNonce(defaultNonceSource)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := writeHandshakeRequest(conn, u, cfg.headers, nonce); err != nil {
		_ = conn.Close()
		return nil, err
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		_ = conn.Close()
		return nil, wrapErr(ErrIO, "read handshake response: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best effort; conn itself is what matters past this point

	if err := checkHandshakeResponse(resp, nonce); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if br.Buffered() > 0 {
		// The server piggybacked WebSocket frame bytes onto the same
		// TCP segment as the 101 response; net/http's bufio.Reader
		// would otherwise swallow them.
		conn = &prefixedConn{Conn: conn, prefix: mustDrain(br)}
	}

	return NewWebSocket(NewNetTransport(conn), true, cfg.rng, cfg.config), nil
}

func dialAddr(u *url.URL) (addr string, err error) {
	if u.Host == "" {
		return "", ErrNoAuthority
	}
	host := u.Host
	switch u.Scheme {
	case "ws":
		if !strings.Contains(host, ":") {
			host += ":80"
		}
	case "wss":
		if !strings.Contains(host, ":") {
			host += ":443"
		}
	default:
		return "", wrapErr(ErrUnexpectedScheme, "%q", u.Scheme)
	}
	return host, nil
}

// dialNonce returns the base64-encoded form of generateClientKey's
// bytes, as RFC 6455 Section 4.1 requires Sec-WebSocket-Key to be.
func dialNonce(r io.Reader) (string, error) {
	key, err := generateClientKey(r)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

func writeHandshakeRequest(conn net.Conn, u *url.URL, headers http.Header, nonce string) error {
	h := headers.Clone()
	h.Set("Host", u.Host)
	h.Set("Upgrade", "websocket")
	h.Set("Connection", "Upgrade")
	h.Set("Sec-WebSocket-Key", nonce)
	h.Set("Sec-WebSocket-Version", "13")

	req := &http.Request{
		Method:     http.MethodGet,
		URL:        &url.URL{Path: u.RequestURI()},
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     h,
		Host:       u.Host,
	}
	if err := req.Write(conn); err != nil {
		return wrapErr(ErrIO, "write handshake request: %v", err)
	}
	return nil
}

// checkHandshakeResponse validates the server's handshake response
// against RFC 6455 Section 4.2.2.
func checkHandshakeResponse(resp *http.Response, nonce string) error {
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return wrapErr(ErrMissingSwitchingProtocols, "got status %d", resp.StatusCode)
	}
	if !headerContainsToken(resp.Header.Get("Upgrade"), "websocket") {
		return ErrMissingUpgradeHeader
	}
	if !headerContainsToken(resp.Header.Get("Connection"), "upgrade") {
		return ErrInvalidConnectionHeader
	}
	want := computeAcceptKey(nonce)
	if !strings.EqualFold(resp.Header.Get("Sec-WebSocket-Accept"), want) {
		return ErrInvalidAcceptKey
	}
	return nil
}

// prefixedConn prepends prefix to the first Read after the handshake,
// recovering any frame bytes buffered (and otherwise discarded) by the
// bufio.Reader used just to parse the HTTP response.
type prefixedConn struct {
	net.Conn
	prefix []byte
}

func (c *prefixedConn) Read(b []byte) (int, error) {
	if len(c.prefix) > 0 {
		n := copy(b, c.prefix)
		c.prefix = c.prefix[n:]
		return n, nil
	}
	return c.Conn.Read(b)
}

func mustDrain(br *bufio.Reader) []byte {
	buffered := br.Buffered()
	b := make([]byte, buffered)
	_, _ = io.ReadFull(br, b)
	return b
}
