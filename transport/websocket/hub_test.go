package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func echo(ctx context.Context, conn *Conn) error {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			return nil
		}
		if err := conn.WriteFrame(frame); err != nil {
			return err
		}
	}
}

func startHub(t *testing.T, handler HandlerFunc, opts ...Option) (*Hub, string) {
	t.Helper()
	hub := NewHub(handler, opts...)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	ws.SetReadDeadline(time.Now().Add(waitFor))
	return ws
}

func TestHubEchoesFrames(t *testing.T) {
	_, url := startHub(t, echo)
	ws := dial(t, url)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"key":"a"}`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("   ")))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"key":"b"}`)))

	_, first, err := ws.ReadMessage()
	require.NoError(t, err)
	_, second, err := ws.ReadMessage()
	require.NoError(t, err)

	assert.Equal(t, `{"key":"a"}`, string(first))
	assert.Equal(t, `{"key":"b"}`, string(second))
}

func TestHubConnectionLimit(t *testing.T) {
	hub, url := startHub(t, echo, WithMaxConnections(1))

	held := dial(t, url)
	require.NoError(t, held.WriteMessage(websocket.TextMessage, []byte(`{}`)))
	_, _, err := held.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, 1, hub.ConnectionCount())

	rejected := dial(t, url)
	_, msg, err := rejected.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"server-greet","error":"Server is full"}`, string(msg))

	_, _, err = rejected.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHubForgetsClosedConnections(t *testing.T) {
	hub, url := startHub(t, echo)
	ws := dial(t, url)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{}`)))
	_, _, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, 1, hub.ConnectionCount())

	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, waitFor, 5*time.Millisecond)
}

func TestConnCloseFlushesAndSendsClose(t *testing.T) {
	received := make(chan *Conn, 1)
	_, url := startHub(t, func(ctx context.Context, conn *Conn) error {
		assert.NoError(t, conn.WriteFrame([]byte(`{"key":"one"}`)))
		assert.NoError(t, conn.WriteFrame([]byte(`{"key":"two"}`)))
		conn.Close()
		received <- conn
		return nil
	})
	ws := dial(t, url)

	_, first, err := ws.ReadMessage()
	require.NoError(t, err)
	_, second, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"key":"one"}`, string(first))
	assert.Equal(t, `{"key":"two"}`, string(second))

	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	conn := <-received
	assert.False(t, conn.Writable())
	assert.ErrorIs(t, conn.WriteFrame([]byte(`{}`)), ErrClosed)
}

func TestConnReadFrameReportsPeerClose(t *testing.T) {
	got := make(chan error, 1)
	_, url := startHub(t, func(ctx context.Context, conn *Conn) error {
		_, err := conn.ReadFrame()
		got <- err
		return nil
	})
	ws := dial(t, url)

	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))

	select {
	case err := <-got:
		assert.EqualError(t, err, "EOF")
	case <-time.After(waitFor):
		t.Fatal("handler did not see the close")
	}
}

func TestConnRemoteAddr(t *testing.T) {
	got := make(chan string, 1)
	_, url := startHub(t, func(ctx context.Context, conn *Conn) error {
		got <- conn.RemoteAddr()
		return nil
	})
	dial(t, url)

	select {
	case addr := <-got:
		assert.True(t, strings.HasPrefix(addr, "127.0.0.1:"), addr)
	case <-time.After(waitFor):
		t.Fatal("handler was not called")
	}
}
