package pokerws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	"github.com/rs/zerolog"
)

// Handler handles WebSocket API Gateway events for planning poker rooms.
type Handler struct {
	Registry    Registry
	Rooms       RoomStore
	Votes       VoteStore
	Jira        IssueSearcher
	Broadcaster *Broadcaster
	Logger      zerolog.Logger
	Metrics     pokercli.Metrics
	Config      Config
	Now         func() time.Time
}

// HandleEvent routes an API Gateway WebSocket event to the appropriate handler.
func (h *Handler) HandleEvent(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := h.Logger.With().
		Str("connection_id", req.RequestContext.ConnectionID).
		Str("route", req.RequestContext.RouteKey).
		Logger()
	ctx = logger.WithContext(ctx)

	switch req.RequestContext.RouteKey {
	case "$connect":
		return h.handleConnect(ctx, logger, req)
	case "$disconnect":
		return h.handleDisconnect(ctx, logger, req)
	case "$default":
		return h.handleMessage(ctx, logger, req)
	default:
		logger.Warn().Msg("unknown route")
		return events.APIGatewayProxyResponse{StatusCode: 400}, nil
	}
}

func (h *Handler) handleConnect(_ context.Context, logger zerolog.Logger, _ events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger.Info().Msg("connection established")
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func (h *Handler) handleDisconnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := h.Disconnect(ctx, logger, h.endpoint(req), req.RequestContext.ConnectionID); err != nil {
		logger.Error().Err(err).Msg("failed to handle disconnect")
		return events.APIGatewayProxyResponse{StatusCode: 500}, nil
	}
	logger.Info().Msg("connection closed")
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

// Disconnect removes a closed socket from its room and tells the remaining
// members. A socket that cannot be resolved to a room is already gone.
func (h *Handler) Disconnect(ctx context.Context, logger zerolog.Logger, endpoint, connID string) error {
	// the connection index is eventually consistent
	if err := sleep(ctx, h.Config.ResolveDelay); err != nil {
		return err
	}

	roomID, found, err := h.Registry.ResolveRoom(ctx, connID)
	if err != nil {
		return fmt.Errorf("resolving room for connection %v: %w", connID, err)
	}
	if !found {
		logger.Debug().Msg("connection not in any room")
		return nil
	}
	logger = logger.With().Str("room_id", roomID).Logger()

	if err := h.Registry.Remove(ctx, roomID, connID); err != nil {
		return fmt.Errorf("removing connection %v: %w", connID, err)
	}

	snap, err := h.snapshot(ctx, roomID)
	if err != nil {
		return err
	}

	_, err = h.Broadcaster.Broadcast(ctx, endpoint, EventUserDisconnect, UserDisconnectData{UserID: connID}, snap.Connections, KeepOnFailure)
	if err != nil {
		return err
	}
	logger.Info().Int("remaining", len(snap.Connections)).Msg("left room")
	return nil
}

func (h *Handler) handleMessage(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	msg, err := ParseMessage(req.Body)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid message")
		return events.APIGatewayProxyResponse{StatusCode: 400}, nil
	}

	logger = logger.With().
		Str("action", string(msg.Action)).
		Str("room_id", msg.RoomID).
		Logger()

	start := time.Now()
	err = h.Dispatch(ctx, logger, h.endpoint(req), req.RequestContext.ConnectionID, msg)
	h.Metrics.Timing(ctx, pokercli.ResponseTimeMetric, start, map[pokercli.DimensionName]string{
		pokercli.OperationNameDimension: string(msg.Action.Kind()),
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to handle message")
		return events.APIGatewayProxyResponse{StatusCode: 500}, nil
	}
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func (h *Handler) endpoint(req events.APIGatewayWebsocketProxyRequest) string {
	if h.Config.Endpoint != "" {
		return h.Config.Endpoint
	}
	return fmt.Sprintf("https://%s/%s", req.RequestContext.DomainName, req.RequestContext.Stage)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// snapshot reads the room's connections once for the current message.
func (h *Handler) snapshot(ctx context.Context, roomID string) (Snapshot, error) {
	if err := sleep(ctx, h.Config.ReadDelay); err != nil {
		return Snapshot{}, err
	}
	conns, err := h.Registry.ListByRoom(ctx, roomID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing connections for room %v: %w", roomID, err)
	}
	return Snapshot{RoomID: roomID, Connections: conns}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
