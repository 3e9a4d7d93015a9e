// Package ws implements a voice session transport over a WebSocket. The
// server pushes JSON session events; the client sends control frames.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"podcast-voice-service/internal/observability/logging"
	"podcast-voice-service/internal/service/session"
	"podcast-voice-service/internal/socks"
)

// Control frame types sent to the server.
const (
	FrameSetMicrophone = "set_microphone"
)

// ControlFrame is a client-to-server message.
type ControlFrame struct {
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled,omitempty"`
}

var (
	// ErrNotOpen is returned when sending on a closed or unopened transport.
	ErrNotOpen = errors.New("websocket transport not open")
	// ErrAlreadyUsed is returned when Connect is called twice.
	ErrAlreadyUsed = errors.New("websocket transport already used")
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	writeTimeout            = 5 * time.Second
)

// Options configures the transport dialer.
type Options struct {
	HandshakeTimeout time.Duration
	// Proxy is an optional SOCKS5 address.
	Proxy string
}

// Transport is a session.Transport backed by one WebSocket connection.
type Transport struct {
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu      sync.Mutex
	handler func(session.Event)
	conn    *websocket.Conn
	used    bool
	closed  bool

	writeMu sync.Mutex
}

// New creates an unconnected transport.
func New(opts Options) (*Transport, error) {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	d := &websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	if opts.Proxy != "" {
		dial, err := socks.Dialer(opts.Proxy)
		if err != nil {
			return nil, err
		}
		d.Proxy = nil
		d.NetDialContext = dial
	}
	return &Transport{
		dialer: d,
		logger: logging.WithComponent("ws-transport"),
	}, nil
}

// Factory returns a session.TransportFactory producing transports with opts.
// Option errors surface from Connect.
func Factory(opts Options) session.TransportFactory {
	return func() session.Transport {
		t, err := New(opts)
		if err != nil {
			return &broken{err: err}
		}
		return t
	}
}

// OnEvent implements session.Transport.
func (t *Transport) OnEvent(fn func(session.Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

// Connect dials url with the token as a bearer credential and starts the
// event reader.
func (t *Transport) Connect(ctx context.Context, url, token string) error {
	t.mu.Lock()
	if t.used {
		t.mu.Unlock()
		return ErrAlreadyUsed
	}
	t.used = true
	t.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := t.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", url, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return ErrNotOpen
	}
	t.conn = conn
	t.mu.Unlock()

	t.logger.Debug().Str("url", url).Msg("WebSocket connected")
	go t.readLoop(conn)
	return nil
}

// Disconnect closes the connection. It does not wait for the reader.
func (t *Transport) Disconnect(context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	t.writeMu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"),
		time.Now().Add(writeTimeout),
	)
	t.writeMu.Unlock()
	return conn.Close()
}

// EnableLocalAudio asks the server to start or stop consuming the microphone.
func (t *Transport) EnableLocalAudio(_ context.Context, enabled bool) error {
	return t.send(ControlFrame{Type: FrameSetMicrophone, Enabled: &enabled})
}

func (t *Transport) send(frame ControlFrame) error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()
	if conn == nil || closed {
		return ErrNotOpen
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s: %w", frame.Type, err)
	}
	return nil
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	t.emit(session.Event{Type: session.EventConnected})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			reason := err.Error()
			if ce, ok := err.(*websocket.CloseError); ok && ce.Text != "" {
				reason = ce.Text
			}
			t.logger.Warn().Err(err).Msg("WebSocket read failed")
			t.emit(session.Event{Type: session.EventDisconnected, Reason: reason})
			return
		}

		var ev session.Event
		if err := json.Unmarshal(msg, &ev); err != nil || ev.Type == "" {
			t.logger.Debug().Str("msg", string(msg)).Msg("Ignoring malformed frame")
			continue
		}
		t.emit(ev)
	}
}

func (t *Transport) emit(ev session.Event) {
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

// broken is returned by Factory when the options are invalid.
type broken struct{ err error }

func (b *broken) OnEvent(func(session.Event))                   {}
func (b *broken) Connect(context.Context, string, string) error { return b.err }
func (b *broken) Disconnect(context.Context) error              { return nil }
func (b *broken) EnableLocalAudio(context.Context, bool) error  { return b.err }
