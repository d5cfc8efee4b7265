package wirehost

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn carries frames over a websocket. Send may be called from any
// goroutine; ReadLoop must run on one.
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
	heartbeat    time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ Sender = (*Conn)(nil)

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithTimeouts sets the read and write deadlines. Zero disables one.
func WithTimeouts(read, write time.Duration) ConnOption {
	return func(c *Conn) {
		c.readTimeout = read
		c.writeTimeout = write
	}
}

// WithHeartbeat sets how often ReadLoop pings the peer. Every pong extends
// the read deadline, so an idle peer that answers pings stays connected.
// Zero disables pings.
func WithHeartbeat(d time.Duration) ConnOption {
	return func(c *Conn) { c.heartbeat = d }
}

// WithConnLogger sets the connection's logger.
func WithConnLogger(l *slog.Logger) ConnOption {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConn wraps an established websocket.
func NewConn(ws *websocket.Conn, opts ...ConnOption) *Conn {
	c := &Conn{
		ws:           ws,
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		heartbeat:    30 * time.Second,
		logger:       slog.Default().With("component", "wirehost.conn"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send writes frame as one binary message.
func (c *Conn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	if c.writeTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

// ReadLoop reads binary messages and passes each to handle until the peer
// closes, ctx is done or a read fails. Errors returned by handle are
// logged and do not end the loop. A normal close returns nil. While it
// runs the peer is pinged every heartbeat interval.
func (c *Conn) ReadLoop(ctx context.Context, handle func(frame []byte) error) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	c.ws.SetPongHandler(func(string) error {
		c.extendRead()
		return nil
	})
	if c.heartbeat > 0 {
		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.pingLoop(done)
		}()
		defer wg.Wait()
		defer close(done)
	}

	for {
		c.extendRead()
		typ, msg, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
				return err
			}
			return nil
		}
		if typ != websocket.BinaryMessage {
			c.logger.Warn("ignoring non-binary message", "type", typ)
			continue
		}
		if err := handle(msg); err != nil {
			c.logger.Warn("frame rejected", "error", err)
		}
	}
}

func (c *Conn) extendRead() {
	if c.readTimeout > 0 {
		c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

// pingLoop sends a ping every heartbeat interval until done is closed or a
// ping fails.
func (c *Conn) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		case <-done:
			return
		}
	}
}

func (c *Conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	deadline := time.Now().Add(time.Second)
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, deadline)
}

// Close sends a normal close message and closes the socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}
