package realtime

import (
	"encoding/json"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Events pushed to browsers.
const (
	// EventCollectionChanged tells dashboards that a cached collection was mutated and should be reloaded.
	EventCollectionChanged = "collection_changed"
	// EventExportReady tells a user that an asynchronous export finished (or failed).
	EventExportReady = "export_ready"
)

// RoomAdmin is joined by every admin connection.
const RoomAdmin = "admin"

// UserRoom is the private room of one user.
func UserRoom(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) }

// CollectionChange is the payload of EventCollectionChanged.
type CollectionChange struct {
	Collection string `json:"collection"`
	Action     string `json:"action"`
	ID         int64  `json:"id,omitempty"`
	ActorID    int64  `json:"actor_id,omitempty"`
}

// Publisher publishes room events to Redis for cross-instance broadcast.
type Publisher interface {
	PublishRoomEvent(room, event string, payload []byte) error
}

// Subscriber subscribes to a room channel and invokes handler for incoming events.
type Subscriber interface {
	SubscribeRoom(room string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains room -> set of connections and broadcasts messages.
// With Redis configured every event goes through pub/sub so all instances deliver it once.
type Hub struct {
	rooms  map[string]map[string]*Client
	subs   map[string]func() // cancel Redis subscription per room
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[string]*Client),
		subs:   make(map[string]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to each of its rooms, subscribing to Redis for rooms that
// had no local members yet.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range c.Rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[string]*Client)
			if h.sub != nil {
				cancel, err := h.sub.SubscribeRoom(room, func(event string, payload []byte) {
					h.Broadcast(room, event, json.RawMessage(payload))
				})
				if err != nil {
					h.logger.Warn("room subscribe failed", zap.String("room", room), zap.Error(err))
				} else {
					h.subs[room] = cancel
				}
			}
		}
		h.rooms[room][c.ID] = c
	}
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID), zap.Strings("rooms", c.Rooms))
}

// Unregister removes a client from its rooms. The Redis subscription of a room is
// cancelled when its last local client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range c.Rooms {
		m, ok := h.rooms[room]
		if !ok {
			continue
		}
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, room)
			if cancel, ok := h.subs[room]; ok {
				cancel()
				delete(h.subs, room)
			}
		}
	}
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID))
}

// Broadcast sends a message to all local clients in a room.
func (h *Hub) Broadcast(room, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("marshal event", zap.String("event", event), zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to a room on every instance. Without Redis it is a local broadcast.
func (h *Hub) Publish(room, event string, payload interface{}) {
	if h.pub == nil {
		h.Broadcast(room, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.pub.PublishRoomEvent(room, event, data); err != nil {
		h.logger.Warn("publish room event failed, delivering locally", zap.String("room", room), zap.Error(err))
		h.Broadcast(room, event, json.RawMessage(data))
	}
}

// CollectionChanged notifies admin dashboards that collection was mutated.
func (h *Hub) CollectionChanged(change CollectionChange) {
	h.Publish(RoomAdmin, EventCollectionChanged, change)
}

// RoomSize returns the number of local clients in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
