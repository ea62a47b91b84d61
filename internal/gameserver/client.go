package gameserver

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	defaultSendQueueSize = 32
	defaultWriteTimeout  = 5 * time.Second
	defaultReadTimeout   = 60 * time.Second

	// maxIntentSize caps inbound frames; intents are tiny JSON envelopes.
	maxIntentSize = 512
)

// Client is one WebSocket connection bound to a ship.
//
// Outbound frames go through a bounded queue drained by writePump. Snapshots
// are unreliable: when the queue is full the frame is dropped for this client
// and the connection stays open.
type Client struct {
	conn   *websocket.Conn
	ip     string
	shipID uint64

	// frameType is websocket.TextMessage or websocket.BinaryMessage, fixed per codec.
	frameType int

	limiter *rate.Limiter

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	dropped atomic.Uint64

	writeTimeout time.Duration
	readTimeout  time.Duration
}

// ClientOptions tune a Client. Zero values fall back to defaults.
type ClientOptions struct {
	SendQueueSize int
	WriteTimeout  time.Duration
	ReadTimeout   time.Duration
	IntentRate    float64
	IntentBurst   int
	Binary        bool
}

// NewClient wraps an upgraded connection for shipID.
func NewClient(conn *websocket.Conn, ip string, shipID uint64, opts ClientOptions) *Client {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = defaultSendQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}

	limit := rate.Inf
	if opts.IntentRate > 0 {
		limit = rate.Limit(opts.IntentRate)
	}
	burst := max(opts.IntentBurst, 1)

	frameType := websocket.TextMessage
	if opts.Binary {
		frameType = websocket.BinaryMessage
	}

	return &Client{
		conn:         conn,
		ip:           ip,
		shipID:       shipID,
		frameType:    frameType,
		limiter:      rate.NewLimiter(limit, burst),
		sendCh:       make(chan []byte, opts.SendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: opts.WriteTimeout,
		readTimeout:  opts.ReadTimeout,
	}
}

// ShipID returns the ship controlled by this client.
func (c *Client) ShipID() uint64 {
	return c.shipID
}

// IP returns the remote host.
func (c *Client) IP() string {
	return c.ip
}

// Dropped returns how many frames were discarded because the queue was full.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// Send queues a frame without blocking. It returns false when the frame was
// dropped (queue full or client closed).
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.closeCh:
		return false
	default:
	}

	select {
	case c.sendCh <- frame:
		return true
	default:
		if c.dropped.Add(1) == 1 {
			slog.Warn("send queue full, dropping snapshots", "client", c.ip, "shipID", c.shipID)
		}
		return false
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
// It owns all writes to conn.
func (c *Client) writePump() {
	ping := time.NewTicker(c.readTimeout * 9 / 10)
	defer ping.Stop()

	for {
		select {
		case frame := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				slog.Warn("set write deadline failed", "client", c.ip, "error", err)
				return
			}
			if err := c.conn.WriteMessage(c.frameType, frame); err != nil {
				slog.Warn("write failed", "client", c.ip, "error", err)
				c.CloseAsync()
				return
			}

		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				slog.Warn("ping failed", "client", c.ip, "error", err)
				c.CloseAsync()
				return
			}

		case <-c.closeCh:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
			return
		}
	}
}

// readPump reads frames until the connection fails or the client is closed,
// passing each frame that fits the rate limit to handle.
func (c *Client) readPump(handle func(data []byte)) {
	c.conn.SetReadLimit(maxIntentSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("read failed", "client", c.ip, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))

		if !c.limiter.Allow() {
			slog.Debug("intent rate limited", "client", c.ip, "shipID", c.shipID)
			continue
		}
		handle(data)
	}
}

// CloseAsync signals writePump to send a close frame and stop.
// Safe to call multiple times.
func (c *Client) CloseAsync() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
	})
}

// Close stops the write pump and closes the connection.
func (c *Client) Close() error {
	c.CloseAsync()
	return c.conn.Close()
}
