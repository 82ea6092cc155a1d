// Package feed implements the streaming market data connection. Outbound
// frames (subscriptions, pings) pass through an unbounded in-process
// queue drained by a writer goroutine; a reader goroutine parses inbound
// messages. Connection failures surface to the caller of Run — the
// orchestrator owns liveness, the feed does not silently reconnect.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

var ErrNotConnected = errors.New("feed not connected")

type Client struct {
	url          string
	pingInterval time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending [][]byte
	wake    chan struct{}
}

func New(url string, pingInterval time.Duration, log *zap.Logger) *Client {
	return &Client{
		url:          url,
		pingInterval: pingInterval,
		log:          log,
		wake:         make(chan struct{}, 1),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// Subscribe queues a subscription frame for the writer loop.
func (c *Client) Subscribe(ctx context.Context, kind, symbol string, params map[string]any) error {
	_ = ctx
	sub := map[string]any{
		"method": "subscribe",
		"subscription": map[string]any{
			"type": kind,
			"coin": symbol,
		},
	}
	for k, v := range params {
		sub["subscription"].(map[string]any)[k] = v
	}
	frame, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	c.enqueue(frame)
	return nil
}

func (c *Client) enqueue(frame []byte) {
	c.mu.Lock()
	c.pending = append(c.pending, frame)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run drives the reader and writer loops until the connection fails or
// ctx is cancelled. The first error wins and is returned to the caller.
func (c *Client) Run(ctx context.Context, handler func(json.RawMessage)) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- c.writeLoop(runCtx, conn)
	}()

	readErr := c.readLoop(runCtx, conn, handler)
	cancel()
	writeErr := <-writerDone

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if readErr != nil {
		c.logLoopError(readErr)
		return readErr
	}
	return writeErr
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, handler func(json.RawMessage)) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if handler != nil {
			handler(json.RawMessage(data))
		}
	}
}

// writeLoop drains the pending queue and forwards frames to the
// transport, pinging on the configured interval.
func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	var ping <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		c.mu.Lock()
		batch := c.pending
		c.pending = nil
		c.mu.Unlock()
		for _, frame := range batch {
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-c.wake:
		case <-ping:
			if err := conn.Write(ctx, websocket.MessageText, pingFrame); err != nil {
				return err
			}
		}
	}
}

// Disconnect closes the connection; safe to call repeatedly and without
// a live connection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(websocket.StatusNormalClosure, "disconnect")
	c.conn = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Client) logLoopError(err error) {
	if c.log == nil {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		c.log.Info("feed read loop ended", zap.Error(err))
		return
	}
	c.log.Warn("feed read loop ended", zap.Error(err))
}

var pingFrame = []byte(`{"method":"ping"}`)
