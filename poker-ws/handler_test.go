package pokerws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/tj/assert"
)

func TestHandleEvent(t *testing.T) {
	t.Run("connect does not register", func(t *testing.T) {
		f := newFixture()
		assert.Equal(t, 200, f.route(t, "$connect", "conn-a", ""))
		assert.Empty(t, f.registry.members("R"))
		assert.Equal(t, 0, f.mgmt.total())
	})

	t.Run("unknown route", func(t *testing.T) {
		f := newFixture()
		assert.Equal(t, 400, f.route(t, "$custom", "conn-a", ""))
	})

	t.Run("endpoint from request", func(t *testing.T) {
		f := newFixture()
		req := events.APIGatewayWebsocketProxyRequest{
			RequestContext: events.APIGatewayWebsocketProxyRequestContext{
				DomainName: "abc123.execute-api.eu-west-2.amazonaws.com",
				Stage:      "production",
			},
		}
		assert.Equal(t, "https://abc123.execute-api.eu-west-2.amazonaws.com/production", f.handler.endpoint(req))

		f.handler.Config.Endpoint = "https://ws.pokerpoint.example"
		assert.Equal(t, "https://ws.pokerpoint.example", f.handler.endpoint(req))
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("remaining members are told", func(t *testing.T) {
		f := newFixture()
		f.join(t, "conn-a", "A", "Alice")
		f.join(t, "conn-b", "B", "Bob")
		f.mgmt.reset()

		assert.Equal(t, 200, f.route(t, "$disconnect", "conn-a", ""))

		assert.Equal(t, []string{"conn-b"}, f.registry.members("R"))
		got := eventsNamed(f.mgmt.received(t, "conn-b"), EventUserDisconnect)
		assert.Len(t, got, 1)
		assert.JSONEq(t, `{"userId":"conn-a"}`, string(got[0].Data))
		assert.Empty(t, f.mgmt.received(t, "conn-a"))
	})

	t.Run("last member leaves an empty room", func(t *testing.T) {
		f := newFixture()
		f.join(t, "conn-a", "A", "Alice")
		f.mgmt.reset()

		assert.Equal(t, 200, f.route(t, "$disconnect", "conn-a", ""))
		assert.Empty(t, f.registry.members("R"))
		assert.Equal(t, 0, f.mgmt.total())
	})

	t.Run("unresolved connection is already handled", func(t *testing.T) {
		f := newFixture()
		f.join(t, "conn-a", "A", "Alice")
		f.mgmt.reset()

		assert.Equal(t, 200, f.route(t, "$disconnect", "conn-never-joined", ""))
		assert.Equal(t, []string{"conn-a"}, f.registry.members("R"))
		assert.Equal(t, 0, f.mgmt.total())
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture()
		f.registry.err = errors.New("boom")
		assert.Equal(t, 500, f.route(t, "$disconnect", "conn-a", ""))
	})

	t.Run("resolve delay honours cancellation", func(t *testing.T) {
		f := newFixture()
		f.handler.Config.ResolveDelay = time.Hour

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := f.handler.Disconnect(ctx, f.handler.Logger, "https://example", "conn-a")
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestSleep(t *testing.T) {
	assert.NoError(t, sleep(context.Background(), 0))
	assert.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(sleep(ctx, time.Minute), context.Canceled))
}
