package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"SigmaSync/internal/domain/models"
	applogger "SigmaSync/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientReadsFramesUntilServerCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"regime":"bull","score":0.5}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"regime":"bear","score":-0.5}`))
	}))
	defer srv.Close()

	c := New(wsURL(srv), 0)
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())

	frames, errs := c.Read(context.Background())

	var got []string
	for f := range frames {
		got = append(got, string(f))
	}
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "bull")
	assert.Contains(t, got[1], "bear")

	err := <-errs
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTransport))
	assert.False(t, c.IsConnected())
}

func TestClientConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := New(wsURL(srv), 0)
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTransport))
	assert.False(t, c.IsConnected())
}

func TestClientReadWithoutConnect(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws", 0)
	frames, errs := c.Read(context.Background())
	_, open := <-frames
	assert.False(t, open)
	assert.Error(t, <-errs)
}

func TestClientCloseEndsRead(t *testing.T) {
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// drain control frames until the peer goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			select {
			case <-hold:
				return
			default:
			}
		}
	}))
	defer srv.Close()
	defer close(hold)

	c := New(wsURL(srv), 10*time.Millisecond)
	require.NoError(t, c.Connect(context.Background()))
	frames, errs := c.Read(context.Background())

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("read did not end after close")
	}
	for range frames {
	}
	assert.False(t, c.IsConnected())
}

func TestClientContextCancelEndsRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(wsURL(srv), 0)
	require.NoError(t, c.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	_, errs := c.Read(ctx)
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("read did not end after cancel")
	}
}

func TestClientReconnectClosesPreviousConnection(t *testing.T) {
	closed := make(chan struct{}, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closed <- struct{}{}
				return
			}
		}
	}))
	defer srv.Close()

	l, err := applogger.New(&applogger.Config{
		Level:  "debug",
		Format: "json",
		Output: filepath.Join(t.TempDir(), "stream.log"),
	})
	require.NoError(t, err)

	c := New(wsURL(srv), 0, WithLogger(l))
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("first connection was not closed on reconnect")
	}
	require.NoError(t, c.Close())
}
