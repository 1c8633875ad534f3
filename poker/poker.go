// Package poker holds the plain entities shared by the session coordinator,
// the REST API and the Jira proxy. Storage encodings live in the dao
// packages under poker-ws.
package poker

import "time"

// Retention is how long session scoped rows live before the store expires them.
const Retention = 8 * time.Hour

// NoCard is the active card of a room nobody has picked a card for yet.
const NoCard = ""

// Room is a named session with a fixed deck of estimation cards.
type Room struct {
	RoomID      string
	RoomName    string
	Cards       []string
	CurrentCard string
	OwnerID     string
	Expiry      time.Time
}

// Connection is a participant's membership in a room. It is not the socket
// itself; a socket that never sent a join has no Connection.
type Connection struct {
	RoomID       string
	ConnectionID string
	UserID       string
	DisplayName  string
	Endpoint     string
	JoinedAt     time.Time
	Expiry       time.Time
}

// Vote is one user's hidden estimate for the room's active card.
type Vote struct {
	RoomID string
	UserID string
	Vote   string
	Expiry time.Time
}

// JiraLink scopes one user's Jira OAuth credentials to one room.
type JiraLink struct {
	UserID      string
	RoomID      string
	AccessToken string
	CloudID     string
	ExpiresAt   time.Time
	Expiry      time.Time
}

// Expired reports whether the access token is past its expiry at now. Links
// without an expiry never expire.
func (l JiraLink) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !now.Before(l.ExpiresAt)
}

// ExpiryFrom returns the expiry for a row written at now.
func ExpiryFrom(now time.Time, retention time.Duration) time.Time {
	if retention <= 0 {
		retention = Retention
	}
	return now.Add(retention)
}
