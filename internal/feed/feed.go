// Package feed streams display events to an external overlay over WebSocket.
// Sends never block the caller; when the buffer is full the message is dropped.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sctracker/killfeed/pkg/core"
)

// ErrNotConnected is returned by Publish before Init succeeded.
var ErrNotConnected = errors.New("feed not connected")

// Config holds overlay connection settings. Zero values take the defaults.
type Config struct {
	URL           string
	Secret        string
	BufferSize    int
	AckTimeout    time.Duration
	MaxReconnect  int
	ReconnectBase time.Duration
	MaxBackoff    time.Duration
}

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 10 * time.Second
	}
	if c.MaxReconnect <= 0 {
		c.MaxReconnect = 10
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

// Feed publishes events to one overlay.
type Feed struct {
	cfg    Config
	conn   *connection
	logger *slog.Logger
}

// New creates a Feed. Call Init to connect.
func New(cfg Config, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Feed{
		cfg:    cfg,
		conn:   newConnection(cfg, logger),
		logger: logger,
	}
}

// Init connects to the overlay.
func (f *Feed) Init() error {
	if f.cfg.URL == "" {
		return errors.New("feed URL is empty")
	}
	return f.conn.dial()
}

// Close disconnects from the overlay.
func (f *Feed) Close() error {
	return f.conn.close()
}

// Dropped returns how many messages were discarded on a full buffer.
func (f *Feed) Dropped() uint64 {
	return f.conn.dropped.Load()
}

// Reconnects returns how many times the socket was re-established.
func (f *Feed) Reconnects() uint64 {
	return f.conn.reconnects.Load()
}

// StartSession announces a session and waits for the overlay's ack.
// The announcement is replayed after every reconnect.
func (f *Feed) StartSession(s core.Session) error {
	data, err := marshalEnvelope(TypeSessionStart, sessionPayload(s))
	if err != nil {
		return err
	}
	f.conn.setHello(data)
	return f.conn.sendAndWait(data, TypeSessionStart, f.cfg.AckTimeout)
}

// EndSession closes the session on the overlay and waits for its ack.
func (f *Feed) EndSession(s core.Session) error {
	data, err := marshalEnvelope(TypeSessionEnd, sessionPayload(s))
	if err != nil {
		return err
	}
	f.conn.setHello(nil)
	return f.conn.sendAndWait(data, TypeSessionEnd, f.cfg.AckTimeout)
}

// Publish sends one event, fire-and-forget.
func (f *Feed) Publish(e core.JournalEntry) error {
	if !f.conn.dialed.Load() {
		return ErrNotConnected
	}

	p := NewEventPayload(e)
	data, err := marshalEnvelope(string(p.Kind), p)
	if err != nil {
		return err
	}
	f.conn.send(data)
	return nil
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
