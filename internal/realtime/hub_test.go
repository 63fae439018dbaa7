package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	mu        sync.Mutex
	handlers  map[string]func(event string, payload []byte)
	cancelled []string
	failPub   bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: map[string]func(string, []byte){}}
}

func (b *fakeBus) PublishRoomEvent(room, event string, payload []byte) error {
	if b.failPub {
		return errors.New("redis down")
	}
	b.mu.Lock()
	h := b.handlers[room]
	b.mu.Unlock()
	if h != nil {
		h(event, payload)
	}
	return nil
}

func (b *fakeBus) SubscribeRoom(room string, handler func(event string, payload []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[room] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, room)
		b.cancelled = append(b.cancelled, room)
	}, nil
}

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case m := <-c.send:
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestNewClient_Rooms(t *testing.T) {
	h := NewHub(nil, nil, nil)
	assert.Equal(t, []string{"user:7"}, NewClient(h, 7, "volunteer").Rooms)
	assert.Equal(t, []string{"user:1", RoomAdmin}, NewClient(h, 1, "admin").Rooms)
}

func TestHub_LocalPublish(t *testing.T) {
	h := NewHub(nil, nil, nil)
	admin := NewClient(h, 1, "admin")
	volunteer := NewClient(h, 2, "volunteer")
	h.Register(admin)
	h.Register(volunteer)

	h.CollectionChanged(CollectionChange{Collection: "tags", Action: "create", ID: 4})

	msgs := drain(admin)
	require.Len(t, msgs, 1)
	assert.Equal(t, EventCollectionChanged, msgs[0].Event)
	var change CollectionChange
	require.NoError(t, json.Unmarshal(msgs[0].Data, &change))
	assert.Equal(t, CollectionChange{Collection: "tags", Action: "create", ID: 4}, change)
	assert.Empty(t, drain(volunteer))
}

func TestHub_PublishGoesThroughRedisOnce(t *testing.T) {
	bus := newFakeBus()
	h := NewHub(nil, bus, bus)
	c := NewClient(h, 3, "volunteer")
	h.Register(c)

	h.Publish(UserRoom(3), EventExportReady, map[string]string{"status": "completed"})
	msgs := drain(c)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"status":"completed"}`, string(msgs[0].Data))
}

func TestHub_PublishFallsBackToLocal(t *testing.T) {
	bus := newFakeBus()
	bus.failPub = true
	h := NewHub(nil, bus, bus)
	c := NewClient(h, 3, "volunteer")
	h.Register(c)

	h.Publish(UserRoom(3), EventExportReady, map[string]int{"n": 1})
	assert.Len(t, drain(c), 1)
}

func TestHub_UnregisterCancelsEmptyRooms(t *testing.T) {
	bus := newFakeBus()
	h := NewHub(nil, bus, bus)
	a := NewClient(h, 1, "admin")
	b := NewClient(h, 2, "admin")
	h.Register(a)
	h.Register(b)
	assert.Equal(t, 2, h.RoomSize(RoomAdmin))

	h.Unregister(a)
	assert.Equal(t, 1, h.RoomSize(RoomAdmin))
	assert.ElementsMatch(t, []string{"user:1"}, bus.cancelled)

	h.Unregister(b)
	assert.Zero(t, h.RoomSize(RoomAdmin))
	assert.ElementsMatch(t, []string{"user:1", "user:2", RoomAdmin}, bus.cancelled)
}
