package socket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allowRooms map[string]bool

func (a allowRooms) CanJoinRoom(_ context.Context, userID, room string) bool {
	return a[userID+"|"+room]
}

func newTestClient(h *Hub, userID string) *Client {
	c := NewClient(h, userID, nil)
	h.registerClient(c)
	return c
}

func readMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestBroadcastToRoomExcludesActor(t *testing.T) {
	h := NewHub(nil)
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")
	carol := newTestClient(h, "carol")

	room := ProjectRoom("p1")
	h.JoinRoom(alice, room)
	h.JoinRoom(bob, room)

	data, ok := encode(MessageTaskCreated, map[string]interface{}{"id": "t1"})
	require.True(t, ok)
	h.broadcastToRoom(&RoomMessage{Room: room, Message: data, Exclude: "alice"})

	msg := readMessage(t, bob)
	assert.Equal(t, MessageTaskCreated, msg.Type)
	assert.Equal(t, "t1", msg.Payload["id"])
	assertNoMessage(t, alice)
	assertNoMessage(t, carol)
}

func TestJoinRequiresAuthorization(t *testing.T) {
	h := NewHub(allowRooms{"alice|project:p1": true})
	alice := newTestClient(h, "alice")

	alice.handleMessage([]byte(`{"action":"join","room":"project:p1"}`))
	ack := readMessage(t, alice)
	assert.Equal(t, MessageAck, ack.Type)
	assert.Equal(t, 1, h.RoomSize("project:p1"))

	alice.handleMessage([]byte(`{"action":"join","room":"project:p2"}`))
	refused := readMessage(t, alice)
	assert.Equal(t, MessageError, refused.Type)
	assert.Equal(t, 0, h.RoomSize("project:p2"))

	alice.handleMessage([]byte(`{"action":"leave","room":"project:p1"}`))
	readMessage(t, alice)
	assert.Equal(t, 0, h.RoomSize("project:p1"))
}

func TestNilAuthorizerRefusesJoins(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(h, "alice")
	assert.False(t, h.AuthorizedJoin(context.Background(), c, "project:p1"))
}

func TestUnregisterCleansUp(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(h, "alice")
	h.JoinRoom(c, "project:p1")
	assert.True(t, h.IsUserOnline("alice"))

	h.unregisterClient(c)
	assert.False(t, h.IsUserOnline("alice"))
	assert.Equal(t, 0, h.RoomSize("project:p1"))
	assert.Equal(t, 0, h.ConnectedClients())

	_, open := <-c.Send
	assert.False(t, open)
}

func TestJoinAfterUnregisterIsRefused(t *testing.T) {
	h := NewHub(allowRooms{"alice|project:p1": true})
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")
	h.JoinRoom(bob, "project:p1")

	h.unregisterClient(alice)

	assert.False(t, h.AuthorizedJoin(context.Background(), alice, "project:p1"))
	assert.False(t, h.JoinRoom(alice, "project:p2"))
	assert.Equal(t, 1, h.RoomSize("project:p1"))
	assert.Equal(t, 0, h.RoomSize("project:p2"))

	// a late join frame from the dropped client must not panic
	alice.handleMessage([]byte(`{"action":"join","room":"project:p1"}`))

	data, _ := encode(MessageTaskCreated, map[string]interface{}{"id": "t1"})
	assert.NotPanics(t, func() {
		h.broadcastToRoom(&RoomMessage{Room: "project:p1", Message: data})
	})
	assert.Equal(t, MessageTaskCreated, readMessage(t, bob).Type)
}

func TestRegisterJoinsPersonalRoom(t *testing.T) {
	h := NewHub(nil)
	alice := newTestClient(h, "alice")

	assert.Equal(t, 1, h.RoomSize(UserRoom("alice")))
	assert.True(t, alice.Rooms[UserRoom("alice")])

	h.unregisterClient(alice)
	assert.Equal(t, 0, h.RoomSize(UserRoom("alice")))
}

func TestFullBufferDropsClient(t *testing.T) {
	h := NewHub(nil)
	slow := newTestClient(h, "slow")
	for i := 0; i < cap(slow.Send); i++ {
		require.True(t, slow.trySend([]byte("x")))
	}

	assert.False(t, h.deliver(slow, []byte("overflow")))

	select {
	case c := <-h.unregister:
		assert.Same(t, slow, c)
		h.unregisterClient(c)
	case <-time.After(time.Second):
		t.Fatal("client was not queued for unregister")
	}
	assert.False(t, slow.trySend([]byte("late")))
}

func TestSendToUser(t *testing.T) {
	h := NewHub(nil)
	a1 := newTestClient(h, "alice")
	a2 := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	data, _ := encode(MessageNotification, map[string]interface{}{"title": "hi"})
	h.sendToUser(&DirectMessage{UserID: "alice", Message: data})

	assert.Equal(t, MessageNotification, readMessage(t, a1).Type)
	assert.Equal(t, MessageNotification, readMessage(t, a2).Type)
	assertNoMessage(t, bob)
}

func TestParseRoom(t *testing.T) {
	kind, id, ok := ParseRoom("project:abc")
	assert.True(t, ok)
	assert.Equal(t, "project", kind)
	assert.Equal(t, "abc", id)

	for _, bad := range []string{"", "project", "project:", ":abc"} {
		_, _, ok := ParseRoom(bad)
		assert.False(t, ok, bad)
	}
}
