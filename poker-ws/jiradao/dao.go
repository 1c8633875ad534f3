package jiradao

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pokerpoint/pokerpoint-go/poker"
	"github.com/savaki/ddb"
)

// DAO provides access to the Jira link table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new Jira link DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Link{}),
		api:       api,
		tableName: tableName,
	}
}

// Put stores or replaces the user's link.
func (d *DAO) Put(ctx context.Context, link poker.JiraLink) error {
	if err := d.table.Put(fromModel(link)).RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to store jira link for user %v: %w", link.UserID, err)
	}
	return nil
}

// Get retrieves the user's link. Returns nil if the user never linked Jira or
// the link has expired.
func (d *DAO) Get(ctx context.Context, userID string) (*poker.JiraLink, error) {
	var item Link
	if err := d.table.Get(userID).ScanWithContext(ctx, &item); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get jira link for user %v: %w", userID, err)
	}
	if item.expired(time.Now()) {
		return nil, nil
	}
	link := item.toModel()
	return &link, nil
}
