package connectiondao

import (
	"time"

	"github.com/pokerpoint/pokerpoint-go/poker"
)

// ConnectionIndex is the GSI keyed by connection_id, used to find the room of
// a socket that is disconnecting. Like every GSI it is eventually consistent.
const ConnectionIndex = "ConnectionIndex"

// Connection is a room membership row. The table is keyed by room so that the
// room listing can be served by a strongly consistent query.
type Connection struct {
	RoomID       string `dynamodbav:"room_id" ddb:"hash"`
	ConnectionID string `dynamodbav:"connection_id" ddb:"range"`
	UserID       string `dynamodbav:"user_id"`
	DisplayName  string `dynamodbav:"display_name"`
	Endpoint     string `dynamodbav:"endpoint,omitempty"`
	JoinedAt     int64  `dynamodbav:"joined_at"`
	TTL          int64  `dynamodbav:"ttl"`
}

func fromModel(c poker.Connection) Connection {
	return Connection{
		RoomID:       c.RoomID,
		ConnectionID: c.ConnectionID,
		UserID:       c.UserID,
		DisplayName:  c.DisplayName,
		Endpoint:     c.Endpoint,
		JoinedAt:     c.JoinedAt.Unix(),
		TTL:          c.Expiry.Unix(),
	}
}

func (c Connection) toModel() poker.Connection {
	return poker.Connection{
		RoomID:       c.RoomID,
		ConnectionID: c.ConnectionID,
		UserID:       c.UserID,
		DisplayName:  c.DisplayName,
		Endpoint:     c.Endpoint,
		JoinedAt:     time.Unix(c.JoinedAt, 0),
		Expiry:       time.Unix(c.TTL, 0),
	}
}

func toModels(items []Connection) []poker.Connection {
	conns := make([]poker.Connection, 0, len(items))
	for _, item := range items {
		conns = append(conns, item.toModel())
	}
	return conns
}
