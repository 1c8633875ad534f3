// Package pokercron runs scheduled jobs, either once from the console or as
// a Lambda invoked by an EventBridge schedule.
package pokercron

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	"github.com/rs/zerolog"
)

type RunCallback func(ctx context.Context) error

type Handler struct {
	service pokercli.Service
	logger  zerolog.Logger
	metrics pokercli.Metrics

	runOnce RunCallback
}

func NewHandler(
	service pokercli.Service,
	metrics pokercli.Metrics,
	runOnce RunCallback,
) *Handler {
	return &Handler{
		service: service,
		logger:  pokercli.Logger(service),
		metrics: metrics,
		runOnce: runOnce,
	}
}

func (h *Handler) RunOnce(ctx context.Context, _ json.RawMessage) error {
	ctx = h.logger.WithContext(ctx)
	start := time.Now()
	h.logger.Info().Msg("running scheduled task")

	err := h.runOnce(ctx)
	h.metrics.Timing(ctx, pokercli.ResponseTimeMetric, start, map[pokercli.DimensionName]string{
		pokercli.OperationNameDimension: h.service.Name,
	})
	if err != nil {
		h.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("scheduled task failed")
		return err
	}
	h.logger.Info().Dur("elapsed", time.Since(start)).Msg("scheduled task complete")
	return nil
}

func (h *Handler) Start() error {
	switch {
	case pokercli.CommonOpts.Console:
		return h.RunOnce(context.Background(), nil)

	default:
		lambda.Start(h.RunOnce)
	}
	return nil
}
