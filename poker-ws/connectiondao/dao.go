package connectiondao

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pokerpoint/pokerpoint-go/poker"
	pokerddb "github.com/pokerpoint/pokerpoint-go/poker-ddb"
	"github.com/savaki/ddb"
)

// ErrAlreadyMember is returned by Add when the connection already has a row
// in the room.
var ErrAlreadyMember = errors.New("connection is already a member of the room")

// DAO provides access to the room connections table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new connections DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Connection{}),
		api:       api,
		tableName: tableName,
	}
}

// Add stores a membership row unless one already exists for the same room and
// connection. Two racing joins for one socket produce exactly one row and one
// ErrAlreadyMember.
func (d *DAO) Add(ctx context.Context, conn poker.Connection) error {
	err := d.table.Put(fromModel(conn)).
		Condition("attribute_not_exists(#ConnectionID)").
		RunWithContext(ctx)
	if err != nil {
		if pokerddb.IsConditionalCheckFailed(err) {
			return ErrAlreadyMember
		}
		return fmt.Errorf("failed to add connection %v to room %v: %w", conn.ConnectionID, conn.RoomID, err)
	}
	return nil
}

// Remove deletes a membership row. Removing an absent row is not an error.
func (d *DAO) Remove(ctx context.Context, roomID, connectionID string) error {
	if err := d.table.Delete(roomID).Range(connectionID).RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to remove connection %v from room %v: %w", connectionID, roomID, err)
	}
	return nil
}

// ListByRoom returns every connection in the room using a strongly consistent
// query, so rows written earlier in the same request are visible.
func (d *DAO) ListByRoom(ctx context.Context, roomID string) ([]poker.Connection, error) {
	var items []Connection
	err := d.table.Query("#RoomID = ?", roomID).
		ConsistentRead(true).
		FindAllWithContext(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections for room %v: %w", roomID, err)
	}
	return toModels(items), nil
}

// IsMember reports whether the connection has a row in the room.
func (d *DAO) IsMember(ctx context.Context, roomID, connectionID string) (bool, error) {
	_, found, err := d.Lookup(ctx, roomID, connectionID)
	return found, err
}

// Lookup reads the connection's row in the room with a consistent read.
func (d *DAO) Lookup(ctx context.Context, roomID, connectionID string) (poker.Connection, bool, error) {
	var item Connection
	err := d.table.Get(roomID).Range(connectionID).
		ConsistentRead(true).
		ScanWithContext(ctx, &item)
	if err != nil {
		if ddb.IsItemNotFoundError(err) {
			return poker.Connection{}, false, nil
		}
		return poker.Connection{}, false, fmt.Errorf("failed to get connection %v in room %v: %w", connectionID, roomID, err)
	}
	return item.toModel(), true, nil
}

// ResolveRoom finds the room a connection joined via the ConnectionIndex GSI.
// A connection that never joined, or whose row the index has not caught up
// with yet, reports found == false.
func (d *DAO) ResolveRoom(ctx context.Context, connectionID string) (roomID string, found bool, err error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		IndexName:              aws.String(ConnectionIndex),
		KeyConditionExpression: aws.String("connection_id = :connection_id"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":connection_id": {S: aws.String(connectionID)},
		},
		Limit: aws.Int64(1),
	}

	output, err := d.api.QueryWithContext(ctx, input)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve room for connection %v: %w", connectionID, err)
	}
	if len(output.Items) == 0 {
		return "", false, nil
	}

	var item Connection
	if err := dynamodbattribute.UnmarshalMap(output.Items[0], &item); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal connection %v: %w", connectionID, err)
	}
	return item.RoomID, true, nil
}

// ScanAll visits every connection in the table a page at a time. Returning
// false from fn stops the scan.
func (d *DAO) ScanAll(ctx context.Context, fn func(conns []poker.Connection) bool) error {
	var unmarshalErr error
	input := &dynamodb.ScanInput{
		TableName: aws.String(d.tableName),
	}
	err := d.api.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, lastPage bool) bool {
		var items []Connection
		if err := dynamodbattribute.UnmarshalListOfMaps(page.Items, &items); err != nil {
			unmarshalErr = err
			return false
		}
		return fn(toModels(items))
	})
	if err != nil {
		return fmt.Errorf("failed to scan connections table %v: %w", d.tableName, err)
	}
	if unmarshalErr != nil {
		return fmt.Errorf("failed to unmarshal connections page: %w", unmarshalErr)
	}
	return nil
}
