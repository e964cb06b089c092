package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is one live WebSocket connection. A user may hold several clients,
// one per device; each carries the identity proven at handshake.
type Client struct {
	ID        string
	UserID    string
	ProfileID string
	Moderator bool

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}

	writeWait    time.Duration
	pingInterval time.Duration
	readDeadline time.Duration
	maxFrame     int64

	log zerolog.Logger
}

// ClientConfig bounds the connection's IO behavior.
type ClientConfig struct {
	SendBufferSize int
	WriteWait      time.Duration
	PingInterval   time.Duration
	ReadDeadline   time.Duration
	MaxFrameBytes  int64
}

// NewClient wraps an upgraded connection.
func NewClient(id, userID, profileID string, moderator bool, conn *websocket.Conn, cfg ClientConfig, log zerolog.Logger) *Client {
	return &Client{
		ID:           id,
		UserID:       userID,
		ProfileID:    profileID,
		Moderator:    moderator,
		conn:         conn,
		send:         make(chan []byte, cfg.SendBufferSize),
		closed:       make(chan struct{}),
		writeWait:    cfg.WriteWait,
		pingInterval: cfg.PingInterval,
		readDeadline: cfg.ReadDeadline,
		maxFrame:     cfg.MaxFrameBytes,
		log:          log.With().Str("conn_id", id).Str("user_id", userID).Logger(),
	}
}

// Send queues a frame without blocking. A consumer that cannot keep up has
// its connection closed rather than stalling the broadcast path.
func (c *Client) Send(data []byte) {
	select {
	case <-c.closed:
	case c.send <- data:
	default:
		c.log.Warn().Msg("send buffer full, closing slow connection")
		c.Close()
	}
}

// SendEvent marshals and queues a single-connection event.
func (c *Client) SendEvent(event *Event) {
	data, err := event.Marshal()
	if err != nil {
		c.log.Error().Err(err).Str("event", event.Event).Msg("marshal event")
		return
	}
	c.Send(data)
}

// Close tears the connection down once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// Closed reports whether teardown has begun.
func (c *Client) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// ReadPump consumes inbound frames and hands them to the handler until the
// connection dies. Pong receipt extends the read deadline; a peer that
// misses enough heartbeats times out here.
func (c *Client) ReadPump(handle func(data []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(c.maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.readDeadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("unexpected close")
			}
			return
		}
		handle(data)
	}
}

// WritePump drains the send queue and emits protocol-level pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
