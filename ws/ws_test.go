package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFake = errors.New("fake error")

func Test_Close(t *testing.T) {
	t.Run("sends close frame and closes conn", func(t *testing.T) {
		t.Parallel()
		conn := newFakeConn()
		c := newFakeClient(conn)

		require.NoError(t, c.Close())
		assert.True(t, conn.isClosed())
		assert.Equal(t, websocket.CloseMessage, conn.controlType)
	})
	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		conn := newFakeConn()
		c := newFakeClient(conn)

		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
	})
	t.Run("before connect discards late dial", func(t *testing.T) {
		t.Parallel()
		conn := newFakeConn()
		c := NewClient("ws://fake", WithDialFunc(func(context.Context, string, http.Header) (Conn, error) {
			return conn, nil
		}))

		require.NoError(t, c.Close())
		err := c.Connect(context.Background())
		assert.ErrorIs(t, err, ErrClientClosed)
		assert.True(t, conn.isClosed())
	})
}

func Test_Connect_DialError(t *testing.T) {
	c := NewClient("ws://fake", WithDialFunc(func(context.Context, string, http.Header) (Conn, error) {
		return nil, &net.OpError{Op: "dial", Err: errFake}
	}))

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrWSNetworkIssue)
}

func Test_WriteMessage(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		c := NewClient("ws://fake")
		assert.ErrorIs(t, c.WriteMessage([]byte("x")), ErrClientClosed)
	})
	t.Run("writes text frame", func(t *testing.T) {
		conn := newFakeConn()
		c := newFakeClient(conn)

		require.NoError(t, c.WriteMessage([]byte(`{"type":"heartbeat"}`)))
		w := <-conn.writeCh
		assert.Equal(t, websocket.TextMessage, w.msgType)
		assert.Equal(t, `{"type":"heartbeat"}`, string(w.data))
	})
	t.Run("write error", func(t *testing.T) {
		conn := newFakeConn()
		conn.writeErr = errFake
		c := newFakeClient(conn)

		err := c.WriteMessage([]byte("x"))
		assert.ErrorIs(t, err, ErrWriteFailed)
	})
}

func Test_startReader(t *testing.T) {
	t.Run("normal message", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		client := newFakeClient(conn)

		conn.readCh <- readResp{msgType: websocket.TextMessage, data: []byte("hello")}
		go client.startReader(context.Background(), conn)

		msg, err := client.ReadMessage()
		assert.NoError(t, err)
		assert.Equal(t, []byte("hello"), msg)
		_ = client.Close()
	})

	t.Run("read error", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		client := newFakeClient(conn)

		conn.readCh <- readResp{msgType: websocket.TextMessage, err: errFake}
		go client.startReader(context.Background(), conn)

		_, err := client.ReadMessage()
		assert.ErrorIs(t, err, ErrWSInternalError)
		assert.ErrorContains(t, err, errFake.Error())
		assert.False(t, IsCleanClose(err))

		_, err = client.ReadMessage()
		assert.ErrorIs(t, err, ErrClientClosed)
	})

	t.Run("normal close from server", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		client := newFakeClient(conn)

		conn.readCh <- readResp{
			err: &websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "bye"},
		}
		go client.startReader(context.Background(), conn)

		msg, err := client.ReadMessage()
		assert.Nil(t, msg)
		assert.ErrorIs(t, err, ErrWSNormalClosure)
		assert.True(t, IsCleanClose(err))
	})

	t.Run("going away is unclean", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		client := newFakeClient(conn)

		conn.readCh <- readResp{
			err: &websocket.CloseError{Code: websocket.CloseGoingAway},
		}
		go client.startReader(context.Background(), conn)

		_, err := client.ReadMessage()
		assert.ErrorIs(t, err, ErrWSAbnormalClosure)
		assert.False(t, IsCleanClose(err))
	})

	t.Run("context cancel", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		client := newFakeClient(conn)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		go client.startReader(ctx, conn)

		_, err := client.ReadMessage()
		assert.ErrorIs(t, err, ErrWSReadInterrupted)
	})
}

func Test_EndToEnd(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(url, WithWriteTimeout(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.WriteMessage([]byte(`{"type":"mark_read"}`)))

	msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"mark_read"}`, string(msg))

	require.NoError(t, c.Close())
	_, err = c.ReadMessage()
	assert.Error(t, err)
}

func newFakeClient(conn *fakeConn) *clientImp {
	return &clientImp{
		url:          "ws://fake",
		conn:         conn,
		writeTimeout: time.Second,
		outCh:        make(chan msgResult, 10),
		done:         make(chan struct{}),
	}
}

type fakeConn struct {
	readCh  chan readResp
	writeCh chan writeReq
	closeCh chan struct{}

	mu          sync.Mutex
	closed      bool
	controlType int
	writeErr    error
}

type readResp struct {
	msgType int
	data    []byte
	err     error
}

type writeReq struct {
	msgType int
	data    []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		readCh:  make(chan readResp, 10),
		writeCh: make(chan writeReq, 10),
		closeCh: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-c.readCh:
		return r.msgType, r.data, r.err
	case <-c.closeCh:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writeCh <- writeReq{msgType: messageType, data: data}
	return nil
}

func (c *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controlType = messageType
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closeCh)
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ Conn = (*fakeConn)(nil)
var _ Conn = (*websocket.Conn)(nil)
