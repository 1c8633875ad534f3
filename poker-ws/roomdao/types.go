package roomdao

import (
	"time"

	"github.com/pokerpoint/pokerpoint-go/poker"
)

// Room is a room row as stored in DynamoDB.
type Room struct {
	RoomID      string   `dynamodbav:"room_id" ddb:"hash"`
	RoomName    string   `dynamodbav:"room_name"`
	Cards       []string `dynamodbav:"cards"`
	CurrentCard string   `dynamodbav:"current_card"`
	OwnerID     string   `dynamodbav:"owner_id"`
	TTL         int64    `dynamodbav:"ttl"`
}

// expired reports whether the row's ttl has passed. DynamoDB removes expired
// items lazily so reads must filter them.
func (r Room) expired(now time.Time) bool {
	return r.TTL > 0 && r.TTL <= now.Unix()
}

func fromModel(r poker.Room) Room {
	return Room{
		RoomID:      r.RoomID,
		RoomName:    r.RoomName,
		Cards:       r.Cards,
		CurrentCard: r.CurrentCard,
		OwnerID:     r.OwnerID,
		TTL:         r.Expiry.Unix(),
	}
}

func (r Room) toModel() poker.Room {
	cards := r.Cards
	if cards == nil {
		cards = []string{}
	}
	return poker.Room{
		RoomID:      r.RoomID,
		RoomName:    r.RoomName,
		Cards:       cards,
		CurrentCard: r.CurrentCard,
		OwnerID:     r.OwnerID,
		Expiry:      time.Unix(r.TTL, 0),
	}
}
