package votedao

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pokerpoint/pokerpoint-go/poker"
	"github.com/savaki/ddb"
)

// DAO provides access to the votes table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new votes DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Vote{}),
		api:       api,
		tableName: tableName,
	}
}

// Record stores or replaces the user's vote in the room.
func (d *DAO) Record(ctx context.Context, vote poker.Vote) error {
	if err := d.table.Put(fromModel(vote)).RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to record vote for user %v in room %v: %w", vote.UserID, vote.RoomID, err)
	}
	return nil
}

// List returns every vote currently held for the room.
func (d *DAO) List(ctx context.Context, roomID string) ([]poker.Vote, error) {
	var items []Vote
	err := d.table.Query("#RoomID = ?", roomID).
		ConsistentRead(true).
		FindAllWithContext(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes for room %v: %w", roomID, err)
	}

	votes := make([]poker.Vote, 0, len(items))
	for _, item := range items {
		votes = append(votes, item.toModel())
	}
	return votes, nil
}

// ClearAll deletes every vote for the room.
func (d *DAO) ClearAll(ctx context.Context, roomID string) error {
	votes, err := d.List(ctx, roomID)
	if err != nil {
		return err
	}

	// Batch delete in chunks of 25 (DynamoDB limit)
	const batchSize = 25
	for i := 0; i < len(votes); i += batchSize {
		end := i + batchSize
		if end > len(votes) {
			end = len(votes)
		}
		chunk := votes[i:end]

		writeRequests := make([]*dynamodb.WriteRequest, len(chunk))
		for j, vote := range chunk {
			key, err := dynamodbattribute.MarshalMap(map[string]string{
				"room_id": vote.RoomID,
				"user_id": vote.UserID,
			})
			if err != nil {
				return fmt.Errorf("failed to marshal key for vote %v in room %v: %w", vote.UserID, roomID, err)
			}
			writeRequests[j] = &dynamodb.WriteRequest{
				DeleteRequest: &dynamodb.DeleteRequest{Key: key},
			}
		}

		unprocessed := map[string][]*dynamodb.WriteRequest{
			d.tableName: writeRequests,
		}

		const maxRetries = 5
		for attempt := 0; attempt < maxRetries; attempt++ {
			output, err := d.api.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: unprocessed,
			})
			if err != nil {
				return fmt.Errorf("failed to batch delete votes for room %v: %w", roomID, err)
			}
			if len(output.UnprocessedItems) == 0 {
				break
			}
			unprocessed = output.UnprocessedItems
			if attempt < maxRetries-1 {
				backoff := time.Duration(1<<attempt) * 100 * time.Millisecond
				timer := time.NewTimer(backoff)
				select {
				case <-ctx.Done():
					timer.Stop()
					return fmt.Errorf("context cancelled during retry for room %v: %w", roomID, ctx.Err())
				case <-timer.C:
				}
			} else {
				return fmt.Errorf("failed to delete all votes for room %v: %d items unprocessed after %d retries", roomID, len(unprocessed[d.tableName]), maxRetries)
			}
		}
	}

	return nil
}
