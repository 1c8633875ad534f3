package votedao

import (
	"time"

	"github.com/pokerpoint/pokerpoint-go/poker"
)

// Vote is a vote row. The range key is the user, not the socket, so a vote
// survives the user reconnecting to the same room.
type Vote struct {
	RoomID string `dynamodbav:"room_id" ddb:"hash"`
	UserID string `dynamodbav:"user_id" ddb:"range"`
	Vote   string `dynamodbav:"vote"`
	TTL    int64  `dynamodbav:"ttl"`
}

func fromModel(v poker.Vote) Vote {
	return Vote{
		RoomID: v.RoomID,
		UserID: v.UserID,
		Vote:   v.Vote,
		TTL:    v.Expiry.Unix(),
	}
}

func (v Vote) toModel() poker.Vote {
	return poker.Vote{
		RoomID: v.RoomID,
		UserID: v.UserID,
		Vote:   v.Vote,
		Expiry: time.Unix(v.TTL, 0),
	}
}
