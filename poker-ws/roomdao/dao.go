package roomdao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pokerpoint/pokerpoint-go/poker"
	pokerddb "github.com/pokerpoint/pokerpoint-go/poker-ddb"
	"github.com/savaki/ddb"
)

var (
	ErrNotFound = errors.New("room not found")
	ErrExists   = errors.New("room already exists")
)

// DAO provides access to the rooms table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new rooms DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Room{}),
		api:       api,
		tableName: tableName,
	}
}

// Create stores a new room. It fails with ErrExists if the id is taken.
func (d *DAO) Create(ctx context.Context, room poker.Room) error {
	err := d.table.Put(fromModel(room)).
		Condition("attribute_not_exists(#RoomID)").
		RunWithContext(ctx)
	if err != nil {
		if pokerddb.IsConditionalCheckFailed(err) {
			return ErrExists
		}
		return fmt.Errorf("failed to create room %v: %w", room.RoomID, err)
	}
	return nil
}

// Get retrieves a room by id, failing with ErrNotFound if it does not exist
// or has expired.
func (d *DAO) Get(ctx context.Context, roomID string) (poker.Room, error) {
	var item Room
	if err := d.table.Get(roomID).ConsistentRead(true).ScanWithContext(ctx, &item); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return poker.Room{}, ErrNotFound
		}
		return poker.Room{}, fmt.Errorf("failed to get room %v: %w", roomID, err)
	}
	if item.expired(time.Now()) {
		return poker.Room{}, ErrNotFound
	}
	return item.toModel(), nil
}

// SetCurrentCard overwrites the room's active card. It fails with ErrNotFound
// if the room row is gone, so an update never recreates a row without a ttl.
func (d *DAO) SetCurrentCard(ctx context.Context, roomID, name string) error {
	err := d.table.Update(roomID).
		Set("#CurrentCard = ?", name).
		Condition("attribute_exists(#RoomID)").
		RunWithContext(ctx)
	if err != nil {
		if pokerddb.IsConditionalCheckFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to set card for room %v: %w", roomID, err)
	}
	return nil
}
