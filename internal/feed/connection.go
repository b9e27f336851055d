package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	ackChSize = 16
	writeWait = 10 * time.Second
)

// connection owns one overlay socket with a single write goroutine.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	ackCh  chan AckMessage
	done   chan struct{} // closed on shutdown
	closed bool

	// closed when the current write loop returns
	writerDone chan struct{}

	cfg Config

	// replayed after every reconnect
	hello []byte

	dialed     atomic.Bool
	dropped    atomic.Uint64
	reconnects atomic.Uint64

	logger *slog.Logger
}

func newConnection(cfg Config, logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, cfg.BufferSize),
		ackCh:  make(chan AckMessage, ackChSize),
		done:   make(chan struct{}),
		cfg:    cfg,
		logger: logger,
	}
}

func (c *connection) dial() error {
	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.dialed.Store(true)

	c.start(conn)
	return nil
}

// dialOnce performs a single dial with the secret query param.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	if c.cfg.Secret != "" {
		q := u.Query()
		q.Set("secret", c.cfg.Secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("feed dial failed: %w", err)
	}
	return conn, nil
}

// start runs one reader and one writer for conn. The writer exits when the
// reader does, so a replaced socket never consumes queued messages.
func (c *connection) start(conn *ws.Conn) {
	stop := make(chan struct{})
	writerDone := make(chan struct{})

	c.mu.Lock()
	c.writerDone = writerDone
	c.mu.Unlock()

	go func() {
		defer close(writerDone)
		c.writeLoop(conn, stop)
	}()
	go c.readLoop(conn, stop)
}

// writeLoop drains sendCh into conn. It returns on error or shutdown.
func (c *connection) writeLoop(conn *ws.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case data := <-c.sendCh:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("feed write deadline error", "error", err)
				go c.reconnect(conn)
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("feed write error", "error", err)
				go c.reconnect(conn)
				return
			}
		}
	}
}

// readLoop routes acks to ackCh. Anything else from the overlay is ignored.
func (c *connection) readLoop(conn *ws.Conn, stop chan<- struct{}) {
	defer close(stop)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("feed read error", "error", err)
			go c.reconnect(conn)
			return
		}

		var ack AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("ignoring feed message", "raw", string(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("feed ack channel full, dropping", "for", ack.For)
		}
	}
}

// reconnect replaces broken with a fresh socket using capped exponential
// backoff. Both loops notice a broken socket, so only the first caller acts.
func (c *connection) reconnect(broken *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != broken {
		c.mu.Unlock()
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.mu.Unlock()

	backoff := c.cfg.ReconnectBase
	for attempt := 1; attempt <= c.cfg.MaxReconnect; attempt++ {
		c.logger.Info("reconnecting to feed", "attempt", attempt, "backoff", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-timer.C:
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("feed reconnect failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, c.cfg.MaxBackoff)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		hello := c.hello
		c.mu.Unlock()

		if hello != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(ws.TextMessage, hello); err != nil {
				c.logger.Warn("failed to replay session start", "error", err)
			}
		}

		c.reconnects.Add(1)
		c.logger.Info("feed reconnected", "attempt", attempt)
		c.start(conn)
		return
	}

	c.logger.Error("feed reconnect gave up", "maxAttempts", c.cfg.MaxReconnect)
}

// send queues data for the write loop. It never blocks; a full buffer drops data.
func (c *connection) send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendCh <- data:
		return true
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("feed send buffer full, dropping messages")
		}
		return false
	}
}

// sendAndWait sends data and blocks until the overlay acks ackFor or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	if !c.send(data) {
		return fmt.Errorf("could not queue %q", ackFor)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

func (c *connection) setHello(data []byte) {
	c.mu.Lock()
	c.hello = data
	c.mu.Unlock()
}

// close stops both loops and sends a close frame once the write loop has
// returned. The socket has one writer at a time.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	writerDone := c.writerDone
	c.mu.Unlock()

	if writerDone != nil {
		select {
		case <-writerDone:
		case <-time.After(writeWait):
			c.logger.Warn("feed writer did not stop in time")
		}
	}

	if conn != nil {
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}
	return nil
}
