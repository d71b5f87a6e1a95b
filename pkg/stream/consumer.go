// Package stream maintains one websocket connection to a venue's book
// feed, decoding frames into sequenced updates. Venue adapters compose a
// Consumer with their wire-format Decoder to satisfy the streaming price
// source contract.
package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crossarb/crossarb/pkg/types"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Decoder turns one raw frame into a sequenced update. Returning
// (nil, nil) skips frames that do not carry book data (heartbeats,
// subscription acks).
type Decoder func(frame []byte) (*types.SequencedUpdate, error)

// SubscribeBuilder produces the venue-specific subscription payload for
// a set of pairs. The payload is JSON-encoded onto the wire.
type SubscribeBuilder func(pairs []types.Pair) any

// Config holds stream consumer configuration.
type Config struct {
	URL    string
	Venue  string
	Logger *zap.Logger

	Decode    Decoder
	Subscribe SubscribeBuilder

	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	UpdateBufferSize      int
}

// Consumer owns one connection and the goroutines reading from it.
type Consumer struct {
	config       Config
	logger       *zap.Logger
	reconnectMgr *ReconnectManager

	updates chan types.SequencedUpdate
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.RWMutex
	conn      *websocket.Conn
	pairs     []types.Pair
	connected atomic.Bool
	lastPong  atomic.Int64
}

// New creates a stream consumer. Decode is required; Subscribe may be
// nil for venues that stream everything without a subscription message.
func New(cfg Config) (*Consumer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}
	if cfg.Decode == nil {
		return nil, fmt.Errorf("decoder cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 45 * time.Second
	}
	if cfg.ReconnectInitialDelay <= 0 {
		cfg.ReconnectInitialDelay = time.Second
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = time.Minute
	}
	if cfg.ReconnectBackoffMult <= 1 {
		cfg.ReconnectBackoffMult = 2
	}
	if cfg.UpdateBufferSize <= 0 {
		cfg.UpdateBufferSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		config: cfg,
		logger: cfg.Logger,
		reconnectMgr: NewReconnectManager(ReconnectConfig{
			InitialDelay:      cfg.ReconnectInitialDelay,
			MaxDelay:          cfg.ReconnectMaxDelay,
			BackoffMultiplier: cfg.ReconnectBackoffMult,
			JitterPercent:     0.2,
		}, cfg.Logger),
		updates: make(chan types.SequencedUpdate, cfg.UpdateBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Subscribe connects, sends the subscription for the pairs and returns
// the update channel. The channel closes when the consumer is closed.
func (c *Consumer) Subscribe(ctx context.Context, pairs []types.Pair) (<-chan types.SequencedUpdate, error) {
	c.mu.Lock()
	c.pairs = pairs
	c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return nil, fmt.Errorf("initial connection: %w", err)
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c.updates, nil
}

// Resubscribe tears the connection down and re-establishes it, forcing
// the venue to send a fresh snapshot. Called after a sequence gap.
func (c *Consumer) Resubscribe(ctx context.Context) error {
	c.closeConn()
	return c.reconnectMgr.Reconnect(ctx, c.connect)
}

// Close stops the consumer and closes the update channel.
func (c *Consumer) Close() {
	c.cancel()
	c.closeConn()
	c.wg.Wait()
	close(c.updates)
	c.logger.Info("stream-closed", zap.String("venue", c.config.Venue))
}

func (c *Consumer) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.config.URL, err)
	}

	conn.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now().Unix())
		return nil
	})

	if c.config.Subscribe != nil {
		c.mu.RLock()
		payload := c.config.Subscribe(c.pairs)
		c.mu.RUnlock()

		msg, err := json.Marshal(payload)
		if err != nil {
			conn.Close()
			return fmt.Errorf("encode subscription: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			return fmt.Errorf("send subscription: %w", err)
		}
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.lastPong.Store(time.Now().Unix())
	ActiveConnections.WithLabelValues(c.config.Venue).Set(1)

	c.logger.Info("stream-connected",
		zap.String("venue", c.config.Venue),
		zap.String("url", c.config.URL))
	return nil
}

func (c *Consumer) closeConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.connected.Store(false)
	ActiveConnections.WithLabelValues(c.config.Venue).Set(0)
}

// dropConn closes old, clearing the current connection only if old is
// still it. A loop erroring on a stale connection must not tear down
// the replacement Resubscribe already installed.
func (c *Consumer) dropConn(old *websocket.Conn) {
	c.mu.Lock()
	current := c.conn == old
	if current {
		c.conn = nil
	}
	c.mu.Unlock()

	old.Close()
	if current {
		c.connected.Store(false)
		ActiveConnections.WithLabelValues(c.config.Venue).Set(0)
	}
}

// Connected reports whether a connection is currently up.
func (c *Consumer) Connected() bool {
	return c.connected.Load()
}

func (c *Consumer) readLoop() {
	defer c.wg.Done()

	for {
		if c.ctx.Err() != nil {
			return
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			if err := c.reconnectMgr.Reconnect(c.ctx, c.connect); err != nil {
				return
			}
			continue
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Warn("stream-read-failed",
				zap.String("venue", c.config.Venue), zap.Error(err))
			c.dropConn(conn)
			continue
		}

		FramesTotal.WithLabelValues(c.config.Venue).Inc()

		update, err := c.config.Decode(frame)
		if err != nil {
			DecodeErrorsTotal.WithLabelValues(c.config.Venue).Inc()
			c.logger.Warn("stream-decode-failed",
				zap.String("venue", c.config.Venue), zap.Error(err))
			continue
		}
		if update == nil {
			continue
		}

		select {
		case c.updates <- *update:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-c.ctx.Done():
			return
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			continue
		}

		if time.Since(time.Unix(c.lastPong.Load(), 0)) > c.config.PongTimeout {
			c.logger.Warn("stream-pong-timeout", zap.String("venue", c.config.Venue))
			c.dropConn(conn)
			continue
		}

		deadline := time.Now().Add(c.config.DialTimeout)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			c.logger.Warn("stream-ping-failed",
				zap.String("venue", c.config.Venue), zap.Error(err))
			c.dropConn(conn)
		}
	}
}
