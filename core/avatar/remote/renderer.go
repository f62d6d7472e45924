// Package remote plays screenplays on an avatar reached over a websocket,
// e.g. a browser page rendering a VRM model.
package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-avatar/core/screenplay"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultPingInterval     = 30 * time.Second
	writeTimeout            = 10 * time.Second
)

var (
	ErrRendererClosed = errors.New("remote renderer closed")
	ErrAvatarFailed   = errors.New("avatar failed to play unit")
)

type Renderer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mimeType     string
	pingInterval time.Duration

	pendingMu sync.Mutex
	pending   map[string]chan error
	closed    bool
	readErr   error

	done      chan struct{}
	closeOnce sync.Once
}

type RendererOption func(*rendererOptions)

type rendererOptions struct {
	header       http.Header
	mimeType     string
	pingInterval time.Duration
}

// WithHeader adds headers to the websocket handshake, e.g. authorization.
func WithHeader(header http.Header) RendererOption {
	return func(o *rendererOptions) { o.header = header }
}

// WithMIMEType sets the MIME type announced for audio clips.
func WithMIMEType(mimeType string) RendererOption {
	return func(o *rendererOptions) { o.mimeType = mimeType }
}

// WithPingInterval sets how often keepalive pings are sent. Zero disables
// them.
func WithPingInterval(interval time.Duration) RendererOption {
	return func(o *rendererOptions) {
		if interval >= 0 {
			o.pingInterval = interval
		}
	}
}

// Dial connects to the avatar listening at url.
func Dial(ctx context.Context, url string, opts ...RendererOption) (*Renderer, error) {
	options := rendererOptions{
		mimeType:     "audio/mpeg",
		pingInterval: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, options.header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to avatar: %w", err)
	}

	r := &Renderer{
		conn:         conn,
		mimeType:     options.mimeType,
		pingInterval: options.pingInterval,
		pending:      map[string]chan error{},
		done:         make(chan struct{}),
	}
	conn.SetPingHandler(func(appData string) error {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
	})

	go r.readMessages()
	if r.pingInterval > 0 {
		go r.keepAlive()
	}

	return r, nil
}

// Speak sends the unit to the avatar and blocks until the avatar reports it
// as played.
func (r *Renderer) Speak(ctx context.Context, audio []byte, s screenplay.Screenplay) error {
	ctx, span := tracer.Start(ctx, "render screenplay remotely")
	defer span.End()

	msg := SpeakMessage{
		Type:       messageTypeSpeak,
		ID:         uuid.NewString(),
		Screenplay: s,
	}
	if audio != nil {
		msg.Audio = base64.StdEncoding.EncodeToString(audio)
		msg.MIMEType = r.mimeType
	}
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.Int("audio.bytes", len(audio)),
	)

	played, err := r.register(msg.ID)
	if err != nil {
		return err
	}
	defer r.unregister(msg.ID)

	if err := r.writeJSON(msg); err != nil {
		err = fmt.Errorf("failed to send unit to avatar: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	select {
	case err := <-played:
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Renderer) register(id string) (chan error, error) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	if r.closed {
		if r.readErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrRendererClosed, r.readErr)
		}
		return nil, ErrRendererClosed
	}

	played := make(chan error, 1)
	r.pending[id] = played
	return played, nil
}

func (r *Renderer) unregister(id string) {
	r.pendingMu.Lock()
	delete(r.pending, id)
	r.pendingMu.Unlock()
}

func (r *Renderer) writeJSON(v any) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return r.conn.WriteJSON(v)
}

func (r *Renderer) readMessages() {
	var readErr error
	defer func() { r.shutdown(readErr) }()

	for {
		var msg PlayedMessage
		if err := r.conn.ReadJSON(&msg); err != nil {
			select {
			case <-r.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warn("avatar connection lost", "error", err)
				}
				readErr = err
			}
			return
		}

		var result error
		switch msg.Type {
		case messageTypePlayed:
		case messageTypeError:
			result = fmt.Errorf("%w: %s", ErrAvatarFailed, msg.Error)
		default:
			logger.Debug("ignoring avatar message", "type", msg.Type)
			continue
		}

		r.pendingMu.Lock()
		played, ok := r.pending[msg.ID]
		r.pendingMu.Unlock()
		if !ok {
			logger.Debug("acknowledgement for unknown unit", "id", msg.ID)
			continue
		}
		select {
		case played <- result:
		default:
		}
	}
}

func (r *Renderer) keepAlive() {
	ticker := time.NewTicker(r.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.writeMu.Lock()
			err := r.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			r.writeMu.Unlock()
			if err != nil {
				logger.Debug("failed to ping avatar", "error", err)
				return
			}
		}
	}
}

// shutdown fails every unit still waiting for the avatar.
func (r *Renderer) shutdown(readErr error) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.readErr = readErr

	err := ErrRendererClosed
	if readErr != nil {
		err = fmt.Errorf("%w: %w", ErrRendererClosed, readErr)
	}
	for _, played := range r.pending {
		select {
		case played <- err:
		default:
		}
	}
}

func (r *Renderer) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		r.shutdown(nil)

		r.writeMu.Lock()
		_ = r.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		r.writeMu.Unlock()
		err = r.conn.Close()
	})
	return err
}
