package pokercron

import (
	"context"
	"errors"
	"testing"

	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

func TestRunOnce(t *testing.T) {
	t.Run("passes a logger to the task", func(t *testing.T) {
		var calls int
		h := NewHandler(pokercli.NewService("cron-test"), pokercli.Metrics{}, func(ctx context.Context) error {
			calls++
			assert.NotEqual(t, zerolog.Disabled, zerolog.Ctx(ctx).GetLevel())
			return nil
		})
		assert.NoError(t, h.RunOnce(context.Background(), nil))
		assert.Equal(t, 1, calls)
	})

	t.Run("returns task errors", func(t *testing.T) {
		boom := errors.New("boom")
		h := NewHandler(pokercli.NewService("cron-test"), pokercli.Metrics{}, func(context.Context) error {
			return boom
		})
		assert.Equal(t, boom, h.RunOnce(context.Background(), nil))
	})
}
