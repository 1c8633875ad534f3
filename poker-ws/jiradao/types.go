package jiradao

import (
	"time"

	"github.com/pokerpoint/pokerpoint-go/poker"
)

// Link holds a user's Jira OAuth credentials, scoped to a single room.
type Link struct {
	UserID      string `dynamodbav:"user_id" ddb:"hash"`
	RoomID      string `dynamodbav:"room_id"`
	AccessToken string `dynamodbav:"access_token"`
	CloudID     string `dynamodbav:"cloud_id"`
	ExpiresAt   int64  `dynamodbav:"expires_at"`
	TTL         int64  `dynamodbav:"ttl"`
}

func (l Link) expired(now time.Time) bool {
	return l.TTL > 0 && l.TTL <= now.Unix()
}

func fromModel(l poker.JiraLink) Link {
	var expiresAt int64
	if !l.ExpiresAt.IsZero() {
		expiresAt = l.ExpiresAt.Unix()
	}
	return Link{
		UserID:      l.UserID,
		RoomID:      l.RoomID,
		AccessToken: l.AccessToken,
		CloudID:     l.CloudID,
		ExpiresAt:   expiresAt,
		TTL:         l.Expiry.Unix(),
	}
}

func (l Link) toModel() poker.JiraLink {
	var expiresAt time.Time
	if l.ExpiresAt > 0 {
		expiresAt = time.Unix(l.ExpiresAt, 0)
	}
	return poker.JiraLink{
		UserID:      l.UserID,
		RoomID:      l.RoomID,
		AccessToken: l.AccessToken,
		CloudID:     l.CloudID,
		ExpiresAt:   expiresAt,
		Expiry:      time.Unix(l.TTL, 0),
	}
}
