package socket

import "strings"

const (
	projectRoomPrefix = "project:"
	userRoomPrefix    = "user:"
)

func ProjectRoom(projectID string) string { return projectRoomPrefix + projectID }

func UserRoom(userID string) string { return userRoomPrefix + userID }

// ParseRoom splits "kind:id". ok is false for malformed names.
func ParseRoom(room string) (kind, id string, ok bool) {
	kind, id, ok = strings.Cut(room, ":")
	if !ok || kind == "" || id == "" {
		return "", "", false
	}
	return kind, id, true
}

// Broadcaster provides high-level methods for broadcasting events
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// ProjectEvent sends an event to everyone subscribed to the project room,
// except the user who caused it.
func (b *Broadcaster) ProjectEvent(projectID string, msgType MessageType, payload map[string]interface{}, actorID string) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["projectId"] = projectID
	b.hub.SendToRoom(ProjectRoom(projectID), msgType, payload, actorID)
}

// UserEvent sends an event to one user's connections.
func (b *Broadcaster) UserEvent(userID string, msgType MessageType, payload map[string]interface{}) {
	b.hub.SendToUser(userID, msgType, payload)
}
