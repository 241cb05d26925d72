package websocket

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestConnPair(t *testing.T) (client, server *Conn) {
	t.Helper()
	c, s := net.Pipe()
	t.Cleanup(func() { c.Close(); s.Close() })

	cfg := DefaultConfig()
	clientWS := NewWebSocket(NewNetTransport(c), true, NewDeterministicRNG([4]byte{5, 6, 7, 8}), cfg)
	serverWS := NewWebSocket(NewNetTransport(s), false, nil, cfg)
	return NewConn(clientWS), NewConn(serverWS)
}

type greeting struct {
	Name string `json:"name"`
}

func TestConnWriteTextReadText(t *testing.T) {
	t.Parallel()
	client, server := newTestConnPair(t)
	ctx := testCtx(t)

	done := make(chan error, 1)
	go func() { done <- client.WriteText(ctx, "hello there") }()

	got, err := server.ReadText(ctx)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, "hello there", got)
}

func TestConnWriteJSONReadJSON(t *testing.T) {
	t.Parallel()
	client, server := newTestConnPair(t)
	ctx := testCtx(t)

	done := make(chan error, 1)
	go func() { done <- client.WriteJSON(ctx, greeting{Name: "ada"}) }()

	var g greeting
	require.NoError(t, server.ReadJSON(ctx, &g))
	require.NoError(t, <-done)
	require.Equal(t, "ada", g.Name)
}

func TestConnReadTextRejectsBinaryMessage(t *testing.T) {
	t.Parallel()
	client, server := newTestConnPair(t)
	ctx := testCtx(t)

	done := make(chan error, 1)
	go func() { done <- client.Write(ctx, BinaryMessage, []byte{1, 2, 3}) }()

	_, err := server.ReadText(ctx)
	require.ErrorIs(t, err, ErrInvalidMsgFrame)
	<-done
}

func TestConnPingWritesControlFrame(t *testing.T) {
	t.Parallel()
	client, server := newTestConnPair(t)
	ctx := testCtx(t)
	server.ws.AutoPong = false

	done := make(chan error, 1)
	go func() { done <- client.Ping(ctx, []byte("ping-data")) }()

	readFB := NewFrameBuffer(64)
	h, err := server.ws.ReadFrame(ctx, readFB)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, OpPing, h.OpCode)
	require.Equal(t, "ping-data", string(readFB.Payload()))
}

func TestConnWriteControlRejectsOversizePayload(t *testing.T) {
	t.Parallel()
	client, _ := newTestConnPair(t)
	ctx := testCtx(t)

	oversized := make([]byte, maxControlPayload+1)
	err := client.Ping(ctx, oversized)
	require.ErrorIs(t, err, ErrVeryLargeControlFrame)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	client, server := newTestConnPair(t)
	ctx := testCtx(t)
	server.ws.AutoClose = false

	done := make(chan error, 1)
	go func() { done <- client.Close(ctx) }()

	readFB := NewFrameBuffer(64)
	_, err := server.ws.ReadFrame(ctx, readFB)
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.True(t, client.IsClosed())
	require.NoError(t, client.Close(ctx)) // second call is a no-op, must not write again
	require.NoError(t, client.CloseWithCode(ctx, CloseGoingAway, "ignored"))
}
