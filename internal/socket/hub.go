// internal/socket/hub.go
package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageNotification      MessageType = "notification"
	MessageNotificationCount MessageType = "notification_count"

	MessageTaskCreated  MessageType = "task_created"
	MessageTaskUpdated  MessageType = "task_updated"
	MessageTaskDeleted  MessageType = "task_deleted"
	MessageTaskAssigned MessageType = "task_assigned"

	MessageProjectUpdated MessageType = "project_updated"
	MessageProjectDeleted MessageType = "project_deleted"
	MessageMemberAdded    MessageType = "member_added"
	MessageMemberRemoved  MessageType = "member_removed"

	MessageCommentAdded   MessageType = "comment_added"
	MessageCommentDeleted MessageType = "comment_deleted"

	MessageAttachmentAdded   MessageType = "attachment_added"
	MessageAttachmentDeleted MessageType = "attachment_deleted"

	MessageUserOnline  MessageType = "user_online"
	MessageUserOffline MessageType = "user_offline"

	MessagePing  MessageType = "ping"
	MessagePong  MessageType = "pong"
	MessageAck   MessageType = "ack"
	MessageError MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType            `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// RoomAuthorizer decides whether a user may subscribe to a room.
type RoomAuthorizer interface {
	CanJoinRoom(ctx context.Context, userID, room string) bool
}

// Client represents a connected WebSocket client
type Client struct {
	ID       string
	UserID   string
	Conn     *websocket.Conn
	Hub      *Hub
	Send     chan []byte
	Rooms    map[string]bool
	mu       sync.Mutex
	closed   bool
	lastPing time.Time
}

// trySend queues data without blocking. It reports false once the client
// is closed or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Hub maintains the set of active clients and routes messages to them.
type Hub struct {
	clients     map[*Client]bool
	userClients map[string]map[*Client]bool
	roomClients map[string]map[*Client]bool

	register      chan *Client
	unregister    chan *Client
	broadcast     chan []byte
	roomBroadcast chan *RoomMessage
	directMessage chan *DirectMessage

	authorizer RoomAuthorizer

	mu sync.RWMutex
}

// RoomMessage represents a message to be sent to a specific room
type RoomMessage struct {
	Room    string
	Message []byte
	Exclude string // User ID to exclude from broadcast
}

// DirectMessage represents a message to be sent to a specific user
type DirectMessage struct {
	UserID  string
	Message []byte
}

func NewHub(authorizer RoomAuthorizer) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		userClients:   make(map[string]map[*Client]bool),
		roomClients:   make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan []byte, 256),
		roomBroadcast: make(chan *RoomMessage, 256),
		directMessage: make(chan *DirectMessage, 256),
		authorizer:    authorizer,
	}
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	logger.Info().Str("component", "hub").Msg("websocket hub started")

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToAll(message)

		case rm := <-h.roomBroadcast:
			h.broadcastToRoom(rm)

		case dm := <-h.directMessage:
			h.sendToUser(dm)

		case <-pingTicker.C:
			h.pingClients()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.userClients[client.UserID] == nil {
		h.userClients[client.UserID] = make(map[*Client]bool)
	}
	firstConnection := len(h.userClients[client.UserID]) == 0
	h.userClients[client.UserID][client] = true

	// personal room for direct notifications
	h.addToRoom(client, UserRoom(client.UserID))

	logger.Debug().Str("user_id", client.UserID).Str("client_id", client.ID).
		Int("total_clients", len(h.clients)).Msg("client registered")

	if firstConnection {
		h.queueUserStatus(client.UserID, true)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	if clients, ok := h.userClients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userClients, client.UserID)
			h.queueUserStatus(client.UserID, false)
		}
	}

	client.mu.Lock()
	for room := range client.Rooms {
		if clients, ok := h.roomClients[room]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.roomClients, room)
			}
		}
	}
	client.mu.Unlock()

	client.close()
	logger.Debug().Str("user_id", client.UserID).Str("client_id", client.ID).
		Int("total_clients", len(h.clients)).Msg("client disconnected")
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
		delete(h.clients, client)
	}
	h.userClients = make(map[string]map[*Client]bool)
	h.roomClients = make(map[string]map[*Client]bool)
	logger.Info().Str("component", "hub").Msg("websocket hub stopped")
}

// deliver queues a message; a client with a full buffer is dropped.
func (h *Hub) deliver(client *Client, message []byte) bool {
	if client.trySend(message) {
		return true
	}
	go func(c *Client) {
		h.unregister <- c
	}(client)
	return false
}

func (h *Hub) broadcastToAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		h.deliver(client, message)
	}
}

func (h *Hub) broadcastToRoom(rm *RoomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.roomClients[rm.Room] {
		if rm.Exclude != "" && client.UserID == rm.Exclude {
			continue
		}
		if h.deliver(client, rm.Message) {
			sent++
		}
	}
	logger.Debug().Str("room", rm.Room).Int("sent", sent).Msg("room broadcast")
}

func (h *Hub) sendToUser(dm *DirectMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.userClients[dm.UserID] {
		h.deliver(client, dm.Message)
	}
}

func (h *Hub) pingClients() {
	data, _ := json.Marshal(Message{Type: MessagePing, Timestamp: time.Now()})
	h.broadcastToAll(data)
}

// ============================================
// Room Management
// ============================================

// JoinRoom adds a registered client to a room without any authorization
// check. It reports false if the client has already been unregistered.
func (h *Hub) JoinRoom(client *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return false
	}
	h.addToRoom(client, room)

	logger.Debug().Str("user_id", client.UserID).Str("room", room).Msg("client joined room")
	return true
}

// addToRoom requires h.mu.
func (h *Hub) addToRoom(client *Client, room string) {
	client.mu.Lock()
	client.Rooms[room] = true
	client.mu.Unlock()

	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true
}

// AuthorizedJoin joins the room only if the authorizer allows it and the
// client is still connected.
func (h *Hub) AuthorizedJoin(ctx context.Context, client *Client, room string) bool {
	if h.authorizer == nil || !h.authorizer.CanJoinRoom(ctx, client.UserID, room) {
		logger.Warn().Str("user_id", client.UserID).Str("room", room).Msg("room join refused")
		return false
	}
	return h.JoinRoom(client, room)
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.Rooms, room)
	client.mu.Unlock()

	if clients, ok := h.roomClients[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roomClients, room)
		}
	}
}

// ============================================
// Sending
// ============================================

func encode(msgType MessageType, payload map[string]interface{}) ([]byte, bool) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		logger.Error().Err(err).Str("type", string(msgType)).Msg("failed to marshal message")
		return nil, false
	}
	return data, true
}

// SendToUser sends a message to every connection of one user.
func (h *Hub) SendToUser(userID string, msgType MessageType, payload map[string]interface{}) {
	if data, ok := encode(msgType, payload); ok {
		h.directMessage <- &DirectMessage{UserID: userID, Message: data}
	}
}

// SendToRoom broadcasts a message to all clients in a room
func (h *Hub) SendToRoom(room string, msgType MessageType, payload map[string]interface{}, excludeUserID string) {
	if data, ok := encode(msgType, payload); ok {
		h.roomBroadcast <- &RoomMessage{Room: room, Message: data, Exclude: excludeUserID}
	}
}

// queueUserStatus must not block while h.mu is held.
func (h *Hub) queueUserStatus(userID string, online bool) {
	msgType := MessageUserOffline
	if online {
		msgType = MessageUserOnline
	}
	data, ok := encode(msgType, map[string]interface{}{"userId": userID, "online": online})
	if !ok {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// ============================================
// Queries
// ============================================

func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.userClients[userID]
	return ok
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomClients[room])
}

func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
