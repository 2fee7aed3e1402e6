package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/types"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Hub fans every realtime event out to all connected clients. Clients filter
// by userId themselves, so the hub keeps no per-user routing.
type Hub struct {
	log          *zap.SugaredLogger
	subscriber   types.EventSubscriber
	connections  map[string]*Connection // userID -> connection
	mu           sync.RWMutex
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
	sendBuffer   int
	pingInterval time.Duration
	writeTimeout time.Duration
}

// Connection is one client socket and its outbound queue.
type Connection struct {
	UserID string
	Conn   *websocket.Conn
	sendCh chan types.Event
	mu     sync.Mutex
	closed bool
}

type HubConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   256,
	}
}

func NewHub(subscriber types.EventSubscriber, cfg ...HubConfig) *Hub {
	config := DefaultHubConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultHubConfig().SendBuffer
	}

	return &Hub{
		log:          logger.GetLogger().Named("websocket_hub"),
		subscriber:   subscriber,
		connections:  make(map[string]*Connection),
		done:         make(chan struct{}),
		sendBuffer:   config.SendBuffer,
		pingInterval: config.PingInterval,
		writeTimeout: config.WriteTimeout,
	}
}

// Start subscribes to the realtime channel and dispatches events until
// Shutdown is called.
func (h *Hub) Start(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	events, err := h.subscriber.Subscribe(subCtx)
	if err != nil {
		cancel()
		return err
	}
	h.cancel = cancel

	go func() {
		defer close(h.done)
		for event := range events {
			h.Broadcast(event)
		}
	}()
	h.log.Info("WebSocket hub started")
	return nil
}

// Register adds a connection for userID. An existing connection for the same
// user is closed and replaced.
func (h *Hub) Register(userID string, conn *websocket.Conn) *Connection {
	connection := &Connection{
		UserID: userID,
		Conn:   conn,
		sendCh: make(chan types.Event, h.sendBuffer),
	}

	h.mu.Lock()
	existing := h.connections[userID]
	h.connections[userID] = connection
	h.mu.Unlock()

	if existing != nil {
		h.closeConnection(existing, "replaced by new connection")
	}

	h.log.Infow("WebSocket connection registered", "userID", userID)
	return connection
}

// Unregister removes conn if it is still the user's current connection.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if current, ok := h.connections[conn.UserID]; ok && current == conn {
		delete(h.connections, conn.UserID)
	}
	h.mu.Unlock()

	h.closeConnection(conn, "unregistered")
}

// Broadcast queues event on every connection. Slow clients drop events
// rather than stall the others.
func (h *Hub) Broadcast(event types.Event) {
	h.mu.RLock()
	connections := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		connections = append(connections, conn)
	}
	h.mu.RUnlock()

	for _, conn := range connections {
		if !conn.enqueue(event) {
			h.log.Warnw("Connection send buffer full, dropping event",
				"userID", conn.UserID,
				"event", event.Name)
		}
	}
}

func (c *Connection) enqueue(event types.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.sendCh <- event:
		return true
	default:
		return false
	}
}

func (h *Hub) closeConnection(conn *Connection, reason string) {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.closed = true
	close(conn.sendCh)
	conn.mu.Unlock()

	if conn.Conn != nil {
		_ = conn.Conn.Close(websocket.StatusNormalClosure, reason)
	}

	h.log.Infow("WebSocket connection closed",
		"userID", conn.UserID,
		"reason", reason)
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown stops dispatching and closes every connection.
func (h *Hub) Shutdown(ctx context.Context) error {
	var err error
	h.shutdownOnce.Do(func() {
		if h.cancel != nil {
			h.cancel()
			select {
			case <-h.done:
			case <-ctx.Done():
				err = ctx.Err()
			}
		}

		h.mu.Lock()
		connections := make([]*Connection, 0, len(h.connections))
		for _, conn := range h.connections {
			connections = append(connections, conn)
		}
		h.connections = make(map[string]*Connection)
		h.mu.Unlock()

		for _, conn := range connections {
			h.closeConnection(conn, "server shutdown")
		}
		h.log.Info("WebSocket hub shutdown complete")
	})
	return err
}

// SendChannel returns the outbound queue. It is closed with the connection.
func (c *Connection) SendChannel() <-chan types.Event {
	return c.sendCh
}

func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
