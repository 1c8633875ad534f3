package pokerws

import (
	"context"

	"github.com/pokerpoint/pokerpoint-go/poker"
	pokerjira "github.com/pokerpoint/pokerpoint-go/poker-jira"
)

// Registry tracks which connections are present in which room. It is
// implemented by connectiondao.DAO.
type Registry interface {
	Add(ctx context.Context, conn poker.Connection) error
	Remove(ctx context.Context, roomID, connectionID string) error
	ListByRoom(ctx context.Context, roomID string) ([]poker.Connection, error)
	ResolveRoom(ctx context.Context, connectionID string) (roomID string, found bool, err error)
	Lookup(ctx context.Context, roomID, connectionID string) (conn poker.Connection, found bool, err error)
}

// RoomStore holds room metadata and the active card. It is implemented by
// roomdao.DAO.
type RoomStore interface {
	Get(ctx context.Context, roomID string) (poker.Room, error)
	SetCurrentCard(ctx context.Context, roomID, name string) error
}

// VoteStore holds one vote per user per room. It is implemented by
// votedao.DAO.
type VoteStore interface {
	Record(ctx context.Context, vote poker.Vote) error
	List(ctx context.Context, roomID string) ([]poker.Vote, error)
	ClearAll(ctx context.Context, roomID string) error
}

// IssueSearcher relays a participant's Jira search. It is implemented by
// pokerjira.Proxy.
type IssueSearcher interface {
	Search(ctx context.Context, userID, roomID, jql string) ([]pokerjira.Issue, error)
}
