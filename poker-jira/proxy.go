package pokerjira

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pokerpoint/pokerpoint-go/poker"
	"github.com/pokerpoint/pokerpoint-go/sanitize"
)

var (
	ErrNotLinked    = errors.New("jira needs to be linked")
	ErrRoomMismatch = errors.New("jira link belongs to another room")
	ErrTokenExpired = errors.New("jira access token has expired")

	// ErrLinkLookup wraps failures of the link store itself, as opposed to a
	// link that is missing or unusable.
	ErrLinkLookup = errors.New("jira link lookup failed")
)

// LinkFinder looks up a user's Jira link; a nil link means not linked.
type LinkFinder interface {
	Get(ctx context.Context, userID string) (*poker.JiraLink, error)
}

// Searcher runs JQL searches with a resolved credential.
type Searcher interface {
	Search(ctx context.Context, cloudID, accessToken, jql string) ([]Issue, error)
	SearchRaw(ctx context.Context, cloudID, accessToken, jql string) ([]byte, error)
}

// Proxy resolves a participant's Jira credentials and relays searches for the
// room they are linked to.
type Proxy struct {
	Links  LinkFinder
	Client Searcher
	Now    func() time.Time
}

func (p *Proxy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Resolve returns the user's link if it exists, belongs to roomID and has
// not expired.
func (p *Proxy) Resolve(ctx context.Context, userID, roomID string) (poker.JiraLink, error) {
	link, err := p.Links.Get(ctx, userID)
	if err != nil {
		return poker.JiraLink{}, fmt.Errorf("%w for user %v: %w", ErrLinkLookup, userID, err)
	}
	if link == nil {
		return poker.JiraLink{}, ErrNotLinked
	}
	if link.RoomID != roomID {
		return poker.JiraLink{}, ErrRoomMismatch
	}
	if link.Expired(p.now()) {
		return poker.JiraLink{}, ErrTokenExpired
	}
	return *link, nil
}

// Search resolves the user's link and returns the matching issues with
// summaries sanitized for broadcast.
func (p *Proxy) Search(ctx context.Context, userID, roomID, jql string) ([]Issue, error) {
	link, err := p.Resolve(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	issues, err := p.Client.Search(ctx, link.CloudID, link.AccessToken, jql)
	if err != nil {
		return nil, fmt.Errorf("jira search for user %v failed: %w", userID, err)
	}
	for i := range issues {
		issues[i].Summary = sanitize.Text(issues[i].Summary)
	}
	return issues, nil
}

// SearchRaw resolves the user's link and returns Jira's response unmodified.
func (p *Proxy) SearchRaw(ctx context.Context, userID, roomID, jql string) ([]byte, error) {
	link, err := p.Resolve(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	return p.Client.SearchRaw(ctx, link.CloudID, link.AccessToken, jql)
}
