package pokerws

import (
	"github.com/pokerpoint/pokerpoint-go/poker"
)

// Snapshot is a room's connection set as read once at the start of handling
// a message.
type Snapshot struct {
	RoomID      string
	Connections []poker.Connection
}

// Contains reports whether the connection is in the snapshot.
func (s Snapshot) Contains(connectionID string) bool {
	_, ok := s.Find(connectionID)
	return ok
}

// Find returns the connection's row from the snapshot.
func (s Snapshot) Find(connectionID string) (poker.Connection, bool) {
	for _, conn := range s.Connections {
		if conn.ConnectionID == connectionID {
			return conn, true
		}
	}
	return poker.Connection{}, false
}

// Participants lists the users in the room, once per user even when a user
// holds several connections. The first connection seen for a user wins.
func (s Snapshot) Participants() []Participant {
	seen := make(map[string]struct{}, len(s.Connections))
	participants := make([]Participant, 0, len(s.Connections))
	for _, conn := range s.Connections {
		if _, ok := seen[conn.UserID]; ok {
			continue
		}
		seen[conn.UserID] = struct{}{}
		participants = append(participants, Participant{
			UserID:      conn.UserID,
			DisplayName: conn.DisplayName,
		})
	}
	return participants
}

// With returns a copy of the snapshot that includes conn.
func (s Snapshot) With(conn poker.Connection) Snapshot {
	if s.Contains(conn.ConnectionID) {
		return s
	}
	conns := make([]poker.Connection, 0, len(s.Connections)+1)
	conns = append(conns, s.Connections...)
	conns = append(conns, conn)
	return Snapshot{RoomID: s.RoomID, Connections: conns}
}
