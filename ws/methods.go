package ws

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

const closeGrace = time.Second

type msgResult struct {
	msg []byte
	err error
}

// Connect dials the server and starts the read pump. It blocks until the
// handshake completes or ctx ends.
func (c *clientImp) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx, c.url, c.header)
	if err != nil {
		c.errorf("connect to %s failed: %v", c.url, err)
		return classifyWSError(err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		c.debugf("connect to %s finished after close, dropping socket", c.url)
		return ErrClientClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.debugf("connected to %s", c.url)

	go c.startReader(ctx, conn)
	return nil
}

// ReadMessage returns the next inbound frame. After the read pump stops, the
// remaining buffered frames are drained and then ErrClientClosed is returned.
func (c *clientImp) ReadMessage() ([]byte, error) {
	select {
	case res := <-c.outCh:
		return res.msg, res.err
	case <-c.done:
		select {
		case res := <-c.outCh:
			return res.msg, res.err
		default:
			return nil, ErrClientClosed
		}
	}
}

func (c *clientImp) startReader(ctx context.Context, conn Conn) {
	defer close(c.done)
	defer c.Close()
	c.debugf("reader started")

	for {
		select {
		case <-ctx.Done():
			c.debugf("reader stopped by ctx")
			c.sendOrDrop(nil, fmt.Errorf("%w: %v", ErrWSReadInterrupted, ctx.Err()))
			return
		default:
			if !c.readAndHandle(conn) {
				return
			}
		}
	}
}

func (c *clientImp) readAndHandle(conn Conn) bool {
	msgType, buf, err := conn.ReadMessage()
	msgTypeStr := typeMsg(msgType)

	if err != nil {
		c.debugf("recv [%s] error: %v", msgTypeStr, err)
		c.sendOrDrop(nil, classifyWSError(err))
		return false
	}

	logWSMessage(c, msgTypeStr, buf)
	c.sendOrDrop(buf, nil)
	return true
}

func (c *clientImp) sendOrDrop(buf []byte, err error) {
	if err != nil {
		// The terminal error must reach the reader even with a full buffer.
		c.outCh <- msgResult{err: err}
		return
	}
	select {
	case c.outCh <- msgResult{msg: buf}:
	default:
		c.errorf("frame dropped from %s: inbound buffer full", c.url)
	}
}

func logWSMessage(c *clientImp, msgTypeStr string, buf []byte) {
	if len(buf) == 0 {
		c.debugf("recv [%s]: <empty>", msgTypeStr)
		return
	}
	if utf8.Valid(buf) {
		c.debugf("recv [%s]: %s", msgTypeStr, string(buf))
	} else {
		c.debugf("recv [%s]: <binary> %x", msgTypeStr, buf)
	}
}

// WriteMessage writes a text frame under the configured write deadline.
func (c *clientImp) WriteMessage(data []byte) error {
	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()

	if conn == nil || closed {
		return ErrClientClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		c.errorf("set write deadline failed: %v", err)
		return fmt.Errorf("%w: %v", ErrWriteTimeout, err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.errorf("write failed: %v", err)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	c.debugf("sent: %s", string(data))
	return nil
}

// Close sends a normal-closure frame and closes the socket. Safe to call
// multiple times and before Connect returns; a dial that completes after Close
// is discarded.
func (c *clientImp) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.writeMu.Unlock()

		if err := conn.Close(); err != nil {
			c.errorf("connection close failed: %v", err)
			c.closeErr = classifyWSError(err)
		}
	})
	return c.closeErr
}

func (c *clientImp) debugf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}

func (c *clientImp) errorf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Errorf(format, args...)
	}
}

func typeMsg(code int) string {
	switch code {
	case websocket.TextMessage:
		return "Text"
	case websocket.BinaryMessage:
		return "Binary"
	case websocket.CloseMessage:
		return "Close"
	case websocket.PingMessage:
		return "Ping"
	case websocket.PongMessage:
		return "Pong"
	default:
		return fmt.Sprintf("Unknown(%d)", code)
	}
}
