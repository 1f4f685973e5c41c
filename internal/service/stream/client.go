package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SigmaSync/internal/domain/models"
	drepo "SigmaSync/internal/domain/repository"
	applogger "SigmaSync/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements PushStream over a websocket. One snapshot per text frame.
type Client struct {
	url          string
	pingInterval time.Duration
	dialer       *websocket.Dialer
	logger       *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

type Option func(*Client)

// WithDialer replaces the default dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a websocket push stream for url.
func New(url string, pingInterval time.Duration, opts ...Option) drepo.PushStream {
	c := &Client{
		url:          url,
		pingInterval: pingInterval,
		dialer:       websocket.DefaultDialer,
		logger:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the upstream. Any previous connection is closed first.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.Close(); err != nil {
		c.logger.Debug("previous push connection close failed", applogger.Error(err))
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: push connect: %v", models.ErrTransport, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Read streams raw frames until the connection fails or ctx ends. The error
// channel receives one value and both channels are then closed.
func (c *Client) Read(ctx context.Context) (<-chan []byte, <-chan error) {
	frames := make(chan []byte, 64)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		errs <- fmt.Errorf("%w: push not connected", models.ErrTransport)
		close(frames)
		close(errs)
		return frames, errs
	}

	readCtx, cancel := context.WithCancel(ctx)

	// unblock ReadMessage on cancellation
	go func() {
		<-readCtx.Done()
		_ = conn.Close()
	}()

	if c.pingInterval > 0 {
		go c.pingLoop(readCtx, conn)
	}

	go func() {
		defer cancel()
		defer close(frames)
		defer close(errs)
		defer c.markDown(conn)

		for {
			kind, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					errs <- ctx.Err()
				} else {
					errs <- fmt.Errorf("%w: push read: %v", models.ErrTransport, err)
				}
				return
			}
			if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
				continue
			}
			select {
			case frames <- b:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return frames, errs
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.pingInterval)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (c *Client) markDown(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.connected = false
	}
	c.mu.Unlock()
}

// Close closes the websocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	if err := conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
