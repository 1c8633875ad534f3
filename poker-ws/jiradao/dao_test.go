//go:build integration

package jiradao

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/pokerpoint/pokerpoint-go/poker"
	"github.com/savaki/ddb"
	"github.com/tj/assert"
)

func withTable(t *testing.T, callback func(ctx context.Context, dao *DAO)) {
	var (
		s = session.Must(session.NewSession(aws.NewConfig().
			WithCredentials(credentials.NewStaticCredentials("blah", "blah", "")).
			WithEndpoint("http://localhost:8000").
			WithRegion("us-west-2")))
		api       = dynamodb.New(s)
		client    = ddb.New(api)
		tableName = fmt.Sprintf("table-%v", time.Now().UnixNano())
		table     = client.MustTable(tableName, Link{})
		dao       = New(api, tableName)
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := table.CreateTableIfNotExists(ctx)
	assert.Nil(t, err)
	defer table.DeleteTableIfExists(ctx)

	callback(ctx, dao)
}

func TestDAO(t *testing.T) {
	withTable(t, func(ctx context.Context, dao *DAO) {
		link, err := dao.Get(ctx, "alice")
		assert.Nil(t, err)
		assert.Nil(t, link)

		expiresAt := time.Unix(time.Now().Add(time.Hour).Unix(), 0)
		err = dao.Put(ctx, poker.JiraLink{
			UserID:      "alice",
			RoomID:      "room",
			AccessToken: "token",
			CloudID:     "cloud",
			ExpiresAt:   expiresAt,
			Expiry:      time.Now().Add(8 * time.Hour),
		})
		assert.Nil(t, err)

		link, err = dao.Get(ctx, "alice")
		assert.Nil(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, "room", link.RoomID)
		assert.Equal(t, "token", link.AccessToken)
		assert.Equal(t, "cloud", link.CloudID)
		assert.True(t, expiresAt.Equal(link.ExpiresAt))

		err = dao.Put(ctx, poker.JiraLink{
			UserID:      "bob",
			RoomID:      "room",
			AccessToken: "token",
			CloudID:     "cloud",
			Expiry:      time.Now().Add(-time.Minute),
		})
		assert.Nil(t, err)

		link, err = dao.Get(ctx, "bob")
		assert.Nil(t, err)
		assert.Nil(t, link)
	})
}
