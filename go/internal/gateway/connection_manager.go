package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/rpsls/go/internal/events"
	"github.com/mcdev12/rpsls/go/internal/room"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns live websocket connections and hands their events
// to the room registry
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	// pumps counts read pumps that have not finished leave handling
	pumps       sync.WaitGroup

	upgrader websocket.Upgrader
	config   ConnectionConfig
	registry *room.Registry
}

// Connection is one authenticated websocket client
type Connection struct {
	id       string
	username string
	conn     *websocket.Conn
	send     chan []byte
	manager  *ConnectionManager

	// current room, only written by the read pump
	roomMu sync.Mutex
	roomID string

	done      chan struct{}
	closeOnce sync.Once
	leaveOnce sync.Once

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for websocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default websocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  64,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a connection manager bound to registry
func NewConnectionManager(config ConnectionConfig, registry *room.Registry) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:   config,
		registry: registry,
	}
}

// UpgradeConnection upgrades an authenticated HTTP request to a websocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, username string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		id:          uuid.New().String(),
		username:    username,
		conn:        conn,
		send:        make(chan []byte, cm.config.SendBufferSize),
		manager:     cm,
		done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	cm.pumps.Add(1)
	go connection.writePump()
	go func() {
		defer cm.pumps.Done()
		connection.readPump()
	}()

	log.Info().
		Str("connection_id", connection.id).
		Str("username", username).
		Msg("websocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[c.id] = c

	log.Debug().
		Str("connection_id", c.id).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.connections[c.id]; ok {
		delete(cm.connections, c.id)
		log.Info().
			Str("connection_id", c.id).
			Str("username", c.username).
			Msg("connection unregistered")
	}
}

// disconnect runs leave handling exactly once for c
func (cm *ConnectionManager) disconnect(c *Connection) {
	c.leaveOnce.Do(func() {
		if roomID := c.currentRoom(); roomID != "" {
			if err := cm.registry.Leave(c, roomID); err != nil {
				log.Warn().Err(err).Str("room_id", roomID).Str("connection_id", c.id).Msg("leave on disconnect failed")
			}
			c.setRoom("")
		}
		cm.unregisterConnection(c)
		c.Close()
	})
}

// CloseAll closes every live connection and waits until each one has left
// its room
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
	cm.pumps.Wait()
}

// Count returns the number of live connections
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// Stats returns statistics about active connections and rooms
func (cm *ConnectionManager) Stats() Stats {
	return Stats{
		Connections: cm.Count(),
		Stats:       cm.registry.Stats(),
	}
}

// ID implements room.Member
func (c *Connection) ID() string {
	return c.id
}

// Username implements room.Member
func (c *Connection) Username() string {
	return c.username
}

// Send queues msg without blocking. A client that cannot keep up is closed,
// which triggers leave handling from its read pump.
func (c *Connection) Send(msg events.Message) {
	select {
	case <-c.done:
		return
	default:
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("event", string(msg.Event)).Msg("failed to marshal outbound event")
		return
	}

	select {
	case c.send <- data:
	default:
		log.Warn().
			Str("connection_id", c.id).
			Str("username", c.username).
			Msg("connection send buffer full, closing connection")
		c.Close()
	}
}

// Close shuts the underlying websocket once
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Connection) currentRoom() string {
	c.roomMu.Lock()
	defer c.roomMu.Unlock()
	return c.roomID
}

func (c *Connection) setRoom(id string) {
	c.roomMu.Lock()
	defer c.roomMu.Unlock()
	c.roomID = id
}

// writePump drains the send queue and keeps the connection alive with pings
func (c *Connection) writePump() {
	cfg := c.manager.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client events until the transport closes, then leaves the room
func (c *Connection) readPump() {
	cfg := c.manager.config
	defer c.manager.disconnect(c)

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected websocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}
