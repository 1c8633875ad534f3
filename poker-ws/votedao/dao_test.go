//go:build integration

package votedao

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
		table     = client.MustTable(tableName, Vote{})
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
		expiry := time.Now().Add(time.Hour)

		assert.Nil(t, dao.Record(ctx, poker.Vote{RoomID: "room", UserID: "alice", Vote: "3", Expiry: expiry}))
		// the second vote from alice replaces the first
		assert.Nil(t, dao.Record(ctx, poker.Vote{RoomID: "room", UserID: "alice", Vote: "5", Expiry: expiry}))
		assert.Nil(t, dao.Record(ctx, poker.Vote{RoomID: "room", UserID: "bob", Vote: "8", Expiry: expiry}))
		assert.Nil(t, dao.Record(ctx, poker.Vote{RoomID: "other", UserID: "carol", Vote: "1", Expiry: expiry}))

		votes, err := dao.List(ctx, "room")
		assert.Nil(t, err)
		assert.Len(t, votes, 2)
		got := map[string]string{}
		for _, v := range votes {
			got[v.UserID] = v.Vote
		}
		assert.Equal(t, map[string]string{"alice": "5", "bob": "8"}, got)

		assert.Nil(t, dao.ClearAll(ctx, "room"))
		votes, err = dao.List(ctx, "room")
		assert.Nil(t, err)
		assert.Len(t, votes, 0)

		// other rooms are untouched
		votes, err = dao.List(ctx, "other")
		assert.Nil(t, err)
		assert.Len(t, votes, 1)
	})

	t.Run("clear more than one batch", func(t *testing.T) {
		withTable(t, func(ctx context.Context, dao *DAO) {
			for i := 0; i < 60; i++ {
				err := dao.Record(ctx, poker.Vote{RoomID: "room", UserID: fmt.Sprintf("user-%02d", i), Vote: "1"})
				assert.Nil(t, err)
			}
			assert.Nil(t, dao.ClearAll(ctx, "room"))
			votes, err := dao.List(ctx, "room")
			assert.Nil(t, err)
			assert.Len(t, votes, 0)
		})
	})
}
