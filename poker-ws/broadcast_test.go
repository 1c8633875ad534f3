package pokerws

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
	"github.com/pokerpoint/pokerpoint-go/poker"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

func TestBroadcast(t *testing.T) {
	ctx := context.Background()
	recipients := []poker.Connection{
		{RoomID: "R", ConnectionID: "conn-a", UserID: "A"},
		{RoomID: "R", ConnectionID: "conn-b", UserID: "B"},
		{RoomID: "R", ConnectionID: "conn-c", UserID: "C"},
	}

	setup := func() (*Broadcaster, *memRegistry, *mockManagementAPI) {
		registry := newMemRegistry()
		for _, conn := range recipients {
			assert.NoError(t, registry.Add(ctx, conn))
		}
		mgmt := newMockManagementAPI()
		b := &Broadcaster{
			Registry:    registry,
			Logger:      zerolog.Nop(),
			Concurrency: 2,
			NewClient:   func(string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI { return mgmt },
		}
		return b, registry, mgmt
	}

	t.Run("delivers to everyone", func(t *testing.T) {
		b, _, mgmt := setup()
		deliveries, err := b.Broadcast(ctx, "https://example", EventCard, CardData{Name: "Story-1"}, recipients, KeepOnFailure)
		assert.NoError(t, err)
		assert.Len(t, deliveries, 3)
		for i, d := range deliveries {
			assert.Equal(t, recipients[i].ConnectionID, d.ConnectionID)
			assert.NoError(t, d.Err)
		}
		for _, conn := range recipients {
			got := mgmt.received(t, conn.ConnectionID)
			assert.Len(t, got, 1)
			assert.Equal(t, EventCard, got[0].Event)
		}
	})

	t.Run("failure is isolated and kept", func(t *testing.T) {
		b, registry, mgmt := setup()
		mgmt.postErrs["conn-b"] = awserr.New(apigatewaymanagementapi.ErrCodeGoneException, "gone", nil)

		deliveries, err := b.Broadcast(ctx, "https://example", EventVote, VoteData{UserID: "A"}, recipients, KeepOnFailure)
		assert.NoError(t, err)
		assert.NoError(t, deliveries[0].Err)
		assert.Error(t, deliveries[1].Err)
		assert.True(t, deliveries[1].Gone)
		assert.False(t, deliveries[1].Pruned)
		assert.NoError(t, deliveries[2].Err)

		assert.Len(t, mgmt.received(t, "conn-a"), 1)
		assert.Len(t, mgmt.received(t, "conn-c"), 1)
		assert.Equal(t, []string{"conn-a", "conn-b", "conn-c"}, registry.members("R"))
	})

	t.Run("failure is pruned", func(t *testing.T) {
		b, registry, mgmt := setup()
		mgmt.postErrs["conn-c"] = errors.New("connection reset")

		deliveries, err := b.Broadcast(ctx, "https://example", EventUserJoin, UserJoinData{UserID: "D"}, recipients, PruneOnFailure)
		assert.NoError(t, err)
		assert.False(t, deliveries[2].Gone)
		assert.True(t, deliveries[2].Pruned)
		assert.Equal(t, []string{"conn-a", "conn-b"}, registry.members("R"))
	})

	t.Run("no recipients", func(t *testing.T) {
		b, _, mgmt := setup()
		deliveries, err := b.Broadcast(ctx, "https://example", EventShow, []ShowEntry{}, nil, KeepOnFailure)
		assert.NoError(t, err)
		assert.Empty(t, deliveries)
		assert.Equal(t, 0, mgmt.total())
	})

	t.Run("unencodable payload", func(t *testing.T) {
		b, _, _ := setup()
		_, err := b.Broadcast(ctx, "https://example", EventCard, make(chan int), recipients, KeepOnFailure)
		assert.Error(t, err)
	})
}

func TestManagementClientCache(t *testing.T) {
	var built []string
	b := &Broadcaster{
		NewClient: func(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
			built = append(built, endpoint)
			return newMockManagementAPI()
		},
	}

	first := b.getManagementClient("https://one")
	assert.True(t, first == b.getManagementClient("https://one"))
	b.getManagementClient("https://two")
	assert.Equal(t, []string{"https://one", "https://two"}, built)
}

func TestEndpointFor(t *testing.T) {
	conn := poker.Connection{Endpoint: "https://stored"}
	assert.Equal(t, "https://given", endpointFor("https://given", conn))
	assert.Equal(t, "https://stored", endpointFor("", conn))
}

func TestIsGoneException(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{awserr.New(apigatewaymanagementapi.ErrCodeGoneException, "gone", nil), true},
		{fmt.Errorf("posting: %w", awserr.New(apigatewaymanagementapi.ErrCodeGoneException, "gone", nil)), true},
		{errors.New("status code: 410"), true},
		{errors.New("LimitExceededException"), false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, isGoneException(tt.err))
		})
	}
}
